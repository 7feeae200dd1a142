package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/astro"
	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

var (
	nowAt       string
	nowLocation string
	nowEnrich   bool
	nowJSON     bool
)

var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Show the planetary snapshot for now (or --at)",
	Args:  cobra.NoArgs,
	RunE:  runNow,
}

func init() {
	nowCmd.Flags().StringVar(&nowAt, "at", "", "Instant to compute (RFC3339, \"YYYY-MM-DD HH:MM\" or YYYY-MM-DD)")
	nowCmd.Flags().StringVar(&nowLocation, "location", "", "Location hint passed to the enrichment service")
	nowCmd.Flags().BoolVar(&nowEnrich, "enrich", false, "Ask the enrichment service even if it is disabled in the config")
	nowCmd.Flags().BoolVar(&nowJSON, "json", false, "Print the snapshot as JSON")
}

func runNow(cmd *cobra.Command, args []string) error {
	at := time.Now()
	if nowAt != "" {
		t, err := timecalc.ParseLocal(nowAt, time.Local)
		if err != nil {
			return userError(fmt.Errorf("invalid --at value: %w", err))
		}
		at = t
	}

	a := loadApp(cmd.Context(), nowEnrich)
	defer a.Close()

	res, err := a.resolver.Resolve(cmd.Context(), at, nowLocation)
	if err != nil {
		return err
	}
	hour, err := astro.HourOf(at)
	if err != nil {
		return err
	}

	if nowJSON {
		data, err := json.MarshalIndent(res.Info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printSnapshot(at, res.Info, hour)
	if res.Advisory != "" {
		fmt.Fprintf(os.Stderr, "Note: %s\n", res.Advisory)
	}
	return nil
}

func printSnapshot(at time.Time, info model.PlanetaryInfo, hour astro.PlanetaryHour) {
	period := "night"
	if hour.Daytime {
		period = "day"
	}
	fmt.Println(at.Format("Monday, 2006-01-02 15:04 MST"))
	if info.LocationName != "" {
		fmt.Printf("  Location:       %s\n", info.LocationName)
	}
	fmt.Printf("  Planetary day:  %s\n", info.PlanetaryDay)
	fmt.Printf("  Planetary hour: %s (%s hour %d, %s–%s, %s left)\n",
		info.PlanetaryHour, period, hour.Index+1,
		hour.Start.Format("15:04"), hour.End.Format("15:04"),
		timecalc.FormatDuration(hour.End.Sub(at)))
	fmt.Printf("  Sun sign:       %s\n", info.SunSign)
	fmt.Printf("  Moon sign:      %s\n", info.MoonSign)
	fmt.Printf("  Moon phase:     %s\n", info.MoonPhase)
	if len(info.Retrogrades) > 0 {
		names := make([]string, len(info.Retrogrades))
		for i, p := range info.Retrogrades {
			names[i] = string(p)
		}
		fmt.Printf("  Retrograde:     %s\n", strings.Join(names, ", "))
	}
}
