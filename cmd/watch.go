package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/session"
)

var (
	watchInterval time.Duration
	watchLocation string
	watchEnrich   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the sky and record transitions until interrupted",
	Long: `watch polls the planetary snapshot at a fixed interval and records a
timeline event whenever the planetary day or hour, a sign or the Moon phase
changes. Events are printed as they happen. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (default poll.interval from the config)")
	watchCmd.Flags().StringVar(&watchLocation, "location", "", "Location hint passed to the enrichment service")
	watchCmd.Flags().BoolVar(&watchEnrich, "enrich", false, "Ask the enrichment service even if it is disabled in the config")
}

// newServerContext returns a context cancelled on SIGINT or SIGTERM.
func newServerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := newServerContext(cmd.Context())
	defer stop()

	a := loadApp(ctx, watchEnrich)
	defer a.Close()

	interval := a.cfg.Poll.Interval
	if watchInterval > 0 {
		interval = watchInterval
	}

	p := session.New(a.resolver, a.store, session.Options{
		User:     a.cfg.User,
		Location: watchLocation,
		Interval: interval,
		Log:      a.log,
		OnPoll:   printPoll,
	})

	fmt.Printf("Watching the sky every %s. Press Ctrl+C to stop.\n", interval)
	return p.Run(ctx)
}

func printPoll(r session.Result) {
	if r.Primed {
		s := r.Snapshot
		fmt.Printf("%s  %s day, %s hour · Sun in %s · Moon in %s (%s)\n",
			r.At.Format("15:04"), s.PlanetaryDay, s.PlanetaryHour, s.SunSign, s.MoonSign, s.MoonPhase)
	}
	for _, ev := range r.Events {
		h := ev.Header()
		fmt.Printf("%s  ✦ %s\n       %s\n", h.CreatedAt.Format("15:04"), h.Title, h.Description)
	}
	if r.Advisory != "" {
		fmt.Fprintf(os.Stderr, "Note: %s\n", r.Advisory)
	}
}
