package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/search"
	"github.com/Tiliavir/astro-journal/internal/timecalc"
)

var (
	listToday       bool
	listWeek        bool
	listDays        int
	listHide        []string
	listEventsOnly  bool
	listEntriesOnly bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries and timeline events",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listToday, "today", false, "Show today's timeline (default)")
	listCmd.Flags().BoolVar(&listWeek, "week", false, "Show this week's timeline")
	listCmd.Flags().IntVar(&listDays, "days", 0, "Show the last N days")
	listCmd.Flags().StringSliceVar(&listHide, "hide", nil, "Event kinds to hide, e.g. PlanetaryHourChange, or all")
	listCmd.Flags().BoolVar(&listEventsOnly, "events-only", false, "Show only timeline events")
	listCmd.Flags().BoolVar(&listEntriesOnly, "entries-only", false, "Show only journal entries")
	listCmd.MarkFlagsMutuallyExclusive("events-only", "entries-only")
	listCmd.MarkFlagsMutuallyExclusive("today", "week", "days")
}

func runList(cmd *cobra.Command, args []string) error {
	now := time.Now()

	vis, err := search.Hiding(listHide...)
	if err != nil {
		return userError(fmt.Errorf("invalid --hide value: %w", err))
	}

	var from, to time.Time
	switch {
	case listWeek:
		from, to = timecalc.WeekRange(now)
	case listDays > 0:
		from = timecalc.StartOfDay(now.AddDate(0, 0, -(listDays - 1)))
		to = timecalc.EndOfDay(now)
	default:
		// Default to today (covers --today and the bare command).
		from = timecalc.StartOfDay(now)
		to = timecalc.EndOfDay(now)
	}

	a := loadApp(cmd.Context(), false)
	defer a.Close()

	items, err := a.store.LoadRange(cmd.Context(), a.cfg.User, from, to)
	if err != nil {
		return storageError(err)
	}

	printTimeline(os.Stdout, filterView(vis.Apply(items), listEventsOnly, listEntriesOnly))
	return nil
}

func filterView(items []model.TimelineItem, eventsOnly, entriesOnly bool) []model.TimelineItem {
	out := items[:0:0]
	for _, it := range items {
		if (eventsOnly && it.Entry != nil) || (entriesOnly && it.Entry == nil) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// printTimeline groups items by local date and prints them newest first.
func printTimeline(w io.Writer, items []model.TimelineItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing recorded.")
		return
	}

	var prev time.Time
	for i, it := range items {
		at := it.CreatedAt().Local()
		if i == 0 || !timecalc.SameDay(at, prev) {
			fmt.Fprintln(w, at.Format("2006-01-02 Monday"))
		}
		prev = at

		if e := it.Entry; e != nil {
			fmt.Fprintf(w, "%s  %s  [%s]  %s/%s · %s · Moon %s %s\n",
				at.Format("15:04"), e.ID, e.Mood,
				e.PlanetaryDay, e.PlanetaryHour, e.SunSign, e.MoonSign, e.MoonPhase)
			fmt.Fprintf(w, "       %s\n", oneLine(e.Text, 72))
			if len(e.Hashtags) > 0 {
				fmt.Fprintf(w, "       #%s\n", strings.Join(e.Hashtags, " #"))
			}
			continue
		}

		h := it.Event.Header()
		fmt.Fprintf(w, "%s  ✦ %s  (%s)\n", at.Format("15:04"), h.Title, h.ID)
	}
}

// oneLine flattens s and shortens it to limit runes.
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
