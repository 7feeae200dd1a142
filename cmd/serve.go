package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/astro-journal/internal/api"
	"github.com/Tiliavir/astro-journal/internal/config"
	"github.com/Tiliavir/astro-journal/internal/journal"
	"github.com/Tiliavir/astro-journal/internal/logger"
	"github.com/Tiliavir/astro-journal/internal/session"
)

var (
	serveAddr     string
	serveLocation string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the journal over HTTP while recording transitions",
	Long: `serve runs the HTTP API (see /api/v1/...) and the transition poller in
one process. Prometheus metrics are exposed on /metrics. Changes to
log.level and poll.interval in the config file apply without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr from the config)")
	serveCmd.Flags().StringVar(&serveLocation, "location", "", "Location hint for polled snapshots")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := newServerContext(cmd.Context())
	defer stop()

	a := loadApp(ctx, false)
	defer a.Close()
	log := a.log

	poller := session.New(a.resolver, a.store, session.Options{
		User:     a.cfg.User,
		Location: serveLocation,
		Interval: a.cfg.Poll.Interval,
		Log:      log,
	})
	svc := journal.NewService(a.store, a.resolver, a.cfg.User, log, journal.WithLastSnapshot(poller.Last))

	config.Watch(func(cfg config.Config) {
		lvl := logger.SetLevel(cfg.Log.Level)
		poller.SetInterval(cfg.Poll.Interval)
		log.Info().Str("level", lvl.String()).Dur("interval", cfg.Poll.Interval).Msg("config reloaded")
	}, func(err error) {
		log.Warn().Err(err).Msg("ignoring invalid config change")
	})

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	server := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(api.Deps{
			Store:    a.store,
			Journal:  svc,
			Resolver: a.resolver,
			User:     a.cfg.User,
			Log:      log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("user", a.cfg.User).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		_ = poller.Run(ctx)
	}()
	// The store is closed on return, so wait for an in-flight poll first.
	defer func() {
		stop()
		<-pollDone
	}()

	// Graceful shutdown on signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}
