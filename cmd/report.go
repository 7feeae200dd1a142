package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

var (
	reportWeek   bool
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show weekly mood and planetary day tallies",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "Report for this week (default)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

type tally struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type weekReport struct {
	Week       string  `json:"week"`
	Entries    int     `json:"entries"`
	Events     int     `json:"events"`
	Moods      []tally `json:"moods"`
	Categories []tally `json:"categories"`
	Days       []tally `json:"planetaryDays"`
	Phases     []tally `json:"moonPhases"`
}

func runReport(cmd *cobra.Command, args []string) error {
	now := time.Now()
	from, to := timecalc.WeekRange(now)

	a := loadApp(cmd.Context(), false)
	defer a.Close()

	items, err := a.store.LoadRange(cmd.Context(), a.cfg.User, from, to)
	if err != nil {
		return storageError(err)
	}

	rep := buildReport(timecalc.ISOWeekLabel(now), items)
	switch reportFormat {
	case "csv":
		writeReportCSV(os.Stdout, rep)
	case "json":
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default: // md
		writeReportMD(os.Stdout, rep)
	}
	return nil
}

func buildReport(week string, items []model.TimelineItem) weekReport {
	moods := map[string]int{}
	cats := map[string]int{}
	days := map[string]int{}
	phases := map[string]int{}

	rep := weekReport{Week: week}
	for _, it := range items {
		if it.Entry == nil {
			rep.Events++
			continue
		}
		e := it.Entry
		rep.Entries++
		moods[string(e.Mood)]++
		if c, ok := e.Mood.Category(); ok {
			cats[string(c)]++
		}
		days[string(e.PlanetaryDay)]++
		phases[string(e.MoonPhase)]++
	}
	rep.Moods = sortedTallies(moods)
	rep.Categories = sortedTallies(cats)
	rep.Days = sortedTallies(days)
	rep.Phases = sortedTallies(phases)
	return rep
}

// sortedTallies orders by count descending, then name.
func sortedTallies(m map[string]int) []tally {
	out := make([]tally, 0, len(m))
	for k, v := range m {
		out = append(out, tally{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func writeReportCSV(w io.Writer, rep weekReport) {
	fmt.Fprintln(w, "week,group,name,count")
	for _, g := range []struct {
		name string
		rows []tally
	}{
		{"mood", rep.Moods},
		{"category", rep.Categories},
		{"planetary_day", rep.Days},
		{"moon_phase", rep.Phases},
	} {
		for _, t := range g.rows {
			fmt.Fprintf(w, "%s,%s,%s,%d\n", rep.Week, g.name, csvEscape(t.Name), t.Count)
		}
	}
}

func writeReportMD(w io.Writer, rep weekReport) {
	fmt.Fprintf(w, "Week %s\n", rep.Week)
	fmt.Fprintln(w, "--------------------------------")
	fmt.Fprintf(w, "%-20s%d\n", "Entries", rep.Entries)
	fmt.Fprintf(w, "%-20s%d\n", "Transitions", rep.Events)
	for _, g := range []struct {
		title string
		rows  []tally
	}{
		{"Moods", rep.Moods},
		{"Mood categories", rep.Categories},
		{"Planetary days", rep.Days},
		{"Moon phases", rep.Phases},
	} {
		if len(g.rows) == 0 {
			continue
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintln(w, g.title)
		for _, t := range g.rows {
			fmt.Fprintf(w, "  %-18s%d\n", t.Name, t.Count)
		}
	}
}
