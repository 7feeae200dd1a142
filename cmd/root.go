package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tiliavir/astro-journal/internal/config"
	"github.com/Tiliavir/astro-journal/internal/journal"
	"github.com/Tiliavir/astro-journal/internal/logger"
	"github.com/Tiliavir/astro-journal/internal/provider"
	"github.com/Tiliavir/astro-journal/internal/storage"
	"github.com/Tiliavir/astro-journal/internal/storage/sqlite"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "aj",
	Short: "AstroJournal – a journal stamped with the sky of the moment",
	Long: `aj is a single-binary journal. Every entry records the planetary day and
hour, the Sun and Moon signs and the Moon phase of the moment it was written,
and a timeline of astrological transitions is kept alongside your entries.
Data is stored in ~/.astrojournal/ (JSON files per day, or SQLite).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitError carries the process exit status out of a RunE so deferred
// cleanup runs before the process exits.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// userError marks invalid input (exit status 1).
func userError(err error) error { return &exitError{code: 1, err: err} }

// storageError marks a storage failure (exit status 2).
func storageError(err error) error { return &exitError{code: 2, err: err} }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.astrojournal/config.toml)")
	rootCmd.PersistentFlags().String("user", "", "journal owner (overrides the config file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.AddCommand(nowCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if err := config.Init(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the components shared by the commands.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	store    storage.Store
	resolver *provider.Fallback
	journal  *journal.Service
}

// loadApp reads the configuration and opens the store. Configuration
// problems exit with status 1, storage problems with status 2.
func loadApp(ctx context.Context, enrich bool) *app {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := storage.ValidateUser(cfg.User); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log := logger.New("aj", level, cfg.Log.Format)

	store, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		resolver: newResolver(cfg, enrich, log),
	}
	a.journal = journal.NewService(store, a.resolver, cfg.User, log)
	return a
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing store")
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return sqlite.Open(ctx, cfg.Storage.SQLitePath)
	default:
		return storage.NewFileStore(cfg.Storage.Dir), nil
	}
}

// newResolver builds the provider chain. The remote provider is used when
// enrichment is enabled in the config or requested with --enrich.
func newResolver(cfg config.Config, enrich bool, log zerolog.Logger) *provider.Fallback {
	f := &provider.Fallback{
		Secondary: provider.Local{},
		Timeout:   cfg.Enrichment.Timeout,
		Log:       log,
	}
	if (cfg.Enrichment.Enabled || enrich) && cfg.Enrichment.URL != "" {
		f.Primary = provider.NewRemote(provider.RemoteConfig{
			URL:          cfg.Enrichment.URL,
			Timeout:      cfg.Enrichment.Timeout,
			MaxRetries:   cfg.Enrichment.MaxRetries,
			TokenURL:     cfg.Enrichment.TokenURL,
			ClientID:     cfg.Enrichment.ClientID,
			ClientSecret: cfg.Enrichment.ClientSecret,
			Scopes:       cfg.Enrichment.Scopes,
			TokenCache:   filepath.Join(cfg.Storage.Dir, "auth", "enrichment_token.json"),
		}, log)
	} else if enrich {
		log.Warn().Msg("--enrich ignored: enrichment.url is not configured")
	}
	return f
}
