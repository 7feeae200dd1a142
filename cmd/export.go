package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

var (
	exportFormat string
	exportDays   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export journal entries and events to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md")
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Export the last N days instead of this week")
}

func runExport(cmd *cobra.Command, args []string) error {
	now := time.Now()

	from, to := timecalc.WeekRange(now)
	if exportDays > 0 {
		from = timecalc.StartOfDay(now.AddDate(0, 0, -(exportDays - 1)))
		to = timecalc.EndOfDay(now)
	}

	a := loadApp(cmd.Context(), false)
	defer a.Close()

	items, err := a.store.LoadRange(cmd.Context(), a.cfg.User, from, to)
	if err != nil {
		return storageError(err)
	}

	switch exportFormat {
	case "json":
		if items == nil {
			items = []model.TimelineItem{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Println(string(data))
	case "md":
		printTimeline(os.Stdout, items)
	default: // csv
		printCSV(os.Stdout, items)
	}

	return nil
}

func printCSV(w io.Writer, items []model.TimelineItem) {
	fmt.Fprintln(w, "kind,id,created_at,title_or_text,mood,planetary_day,planetary_hour,sun_sign,moon_sign,moon_phase,hashtags")
	for _, it := range items {
		at := it.CreatedAt().Format(time.RFC3339)
		if e := it.Entry; e != nil {
			fmt.Fprintf(w, "entry,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
				csvEscape(e.ID),
				csvEscape(at),
				csvEscape(e.Text),
				csvEscape(string(e.Mood)),
				csvEscape(string(e.PlanetaryDay)),
				csvEscape(string(e.PlanetaryHour)),
				csvEscape(string(e.SunSign)),
				csvEscape(string(e.MoonSign)),
				csvEscape(string(e.MoonPhase)),
				csvEscape(strings.Join(e.Hashtags, " ")),
			)
			continue
		}
		h := it.Event.Header()
		fmt.Fprintf(w, "%s,%s,%s,%s,,,,,,,\n",
			csvEscape(string(h.Type)),
			csvEscape(h.ID),
			csvEscape(at),
			csvEscape(h.Title),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
