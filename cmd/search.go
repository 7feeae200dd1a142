package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/model"
	"github.com/Tiliavir/astro-journal/internal/search"
)

var (
	searchQuery search.Query
	searchDays  int
)

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search journal entries by text, hashtag or sky",
	Example: `  aj search ocean
  aj search --tag work --day Saturn
  aj search --phase waxing --moon Cancer`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchQuery.Hashtag, "tag", "", "Hashtag (with or without #)")
	searchCmd.Flags().StringVar(&searchQuery.Day, "day", "", "Planetary day ruler")
	searchCmd.Flags().StringVar(&searchQuery.Hour, "hour", "", "Planetary hour ruler")
	searchCmd.Flags().StringVar(&searchQuery.SunSign, "sun", "", "Sun sign")
	searchCmd.Flags().StringVar(&searchQuery.MoonSign, "moon", "", "Moon sign")
	searchCmd.Flags().StringVar(&searchQuery.Phase, "phase", "", "Moon phase (Waxing/Waning also match the named phases)")
	searchCmd.Flags().IntVar(&searchDays, "days", 365, "How many days back to search")
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := searchQuery
	if len(args) == 1 {
		q.Keyword = args[0]
	}
	f, err := q.Filter()
	if err != nil {
		return userError(err)
	}
	if searchDays < 1 {
		return userError(errors.New("--days must be positive"))
	}

	a := loadApp(cmd.Context(), false)
	defer a.Close()

	to := time.Now()
	items, err := a.store.LoadRange(cmd.Context(), a.cfg.User, to.AddDate(0, 0, -searchDays), to)
	if err != nil {
		return storageError(err)
	}

	entries := f.Entries(items)
	out := make([]model.TimelineItem, len(entries))
	for i := range entries {
		out[i] = model.TimelineItem{Entry: &entries[i]}
	}
	printTimeline(os.Stdout, out)
	fmt.Printf("%d matching entries\n", len(entries))
	return nil
}
