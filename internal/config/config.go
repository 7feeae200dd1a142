package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config is the root configuration for aj, stored in ~/.astrojournal/config.toml.
// Every key can be overridden with an AJ_-prefixed environment variable, for
// example AJ_STORAGE_BACKEND=sqlite.
type Config struct {
	User       string           `mapstructure:"user"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Poll       PollConfig       `mapstructure:"poll"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "file" (one JSON file per day) or "sqlite".
	Backend    string `mapstructure:"backend" toml:"backend"`
	Dir        string `mapstructure:"dir" toml:"dir"`
	SQLitePath string `mapstructure:"sqlite_path" toml:"sqlite_path"`
}

// PollConfig controls the background change detector.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// EnrichmentConfig configures the optional remote snapshot provider.
type EnrichmentConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Scopes       []string      `mapstructure:"scopes"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

// ServerConfig configures `aj serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr" toml:"addr"`
}

const (
	DefaultUser         = "default"
	DefaultPollInterval = time.Minute
	DefaultTimeout      = 8 * time.Second
	DefaultMaxRetries   = 2
	DefaultAddr         = "127.0.0.1:8080"
	EnvPrefix           = "AJ"
)

// BaseDir returns ~/.astrojournal.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".astrojournal"), nil
}

// DefaultPath returns the path to ~/.astrojournal/config.toml.
func DefaultPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.toml"), nil
}

// configTemplate is the annotated config written on first run.
const configTemplate = `# aj configuration - ~/.astrojournal/config.toml
#
# All settings are optional; the defaults shown below work out of the box.
# Any key can be overridden from the environment, e.g. AJ_USER=alice or
# AJ_STORAGE_BACKEND=sqlite.

# Journal owner. Each user has a separate timeline.
user = "default"

[storage]
# "file" keeps one JSON file per day, "sqlite" a single database.
backend = "file"
# Data directory; empty means ~/.astrojournal.
dir = ""
# Database path for the sqlite backend; empty means <dir>/journal.db.
sqlite_path = ""

[poll]
# How often the planetary snapshot is refreshed while watching or serving.
interval = "1m"

[enrichment]
# Ask a remote service for richer snapshots (retrogrades, eight moon phases).
# On any failure aj falls back to its own calculator.
enabled = false
url = ""
timeout = "8s"
max_retries = 2
# OAuth2 client credentials; leave token_url empty for unauthenticated calls.
token_url = ""
client_id = ""
client_secret = ""
scopes = []

[log]
# debug, info, warn or error.
level = "info"
# "console" for humans, "json" for log collectors.
format = "console"

[server]
addr = "127.0.0.1:8080"
`

func setDefaults() {
	viper.SetDefault("user", DefaultUser)
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.dir", "")
	viper.SetDefault("storage.sqlite_path", "")
	viper.SetDefault("poll.interval", DefaultPollInterval)
	viper.SetDefault("enrichment.enabled", false)
	viper.SetDefault("enrichment.url", "")
	viper.SetDefault("enrichment.timeout", DefaultTimeout)
	viper.SetDefault("enrichment.max_retries", DefaultMaxRetries)
	viper.SetDefault("enrichment.token_url", "")
	viper.SetDefault("enrichment.client_id", "")
	viper.SetDefault("enrichment.client_secret", "")
	viper.SetDefault("enrichment.scopes", []string{})
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("server.addr", DefaultAddr)
}

// Init points viper at path (or the default path), writing the annotated
// template on first run, and enables AJ_* environment overrides.
func Init(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("toml")
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	return nil
}

// Load returns the effective configuration from defaults, the config file,
// environment and bound flags.
func Load() (Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Storage.Dir == "" {
		base, err := BaseDir()
		if err != nil {
			return Config{}, err
		}
		cfg.Storage.Dir = base
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.Dir, "journal.db")
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be \"file\" or \"sqlite\", got %q", c.Storage.Backend)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Enrichment.Enabled && c.Enrichment.URL == "" {
		return fmt.Errorf("enrichment.url is required when enrichment is enabled")
	}
	if c.Enrichment.Timeout <= 0 {
		return fmt.Errorf("enrichment.timeout must be positive, got %s", c.Enrichment.Timeout)
	}
	return nil
}

// Watch calls fn with the reloaded configuration whenever the config file
// changes. Reloads that fail to decode or validate are passed to onErr.
func Watch(fn func(Config), onErr func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load()
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		fn(cfg)
	})
	viper.WatchConfig()
}

// encoded mirrors Config with durations as strings and the secret masked.
type encoded struct {
	User       string        `toml:"user"`
	Storage    StorageConfig `toml:"storage"`
	Poll       struct {
		Interval string `toml:"interval"`
	} `toml:"poll"`
	Enrichment struct {
		Enabled      bool     `toml:"enabled"`
		URL          string   `toml:"url"`
		Timeout      string   `toml:"timeout"`
		MaxRetries   int      `toml:"max_retries"`
		TokenURL     string   `toml:"token_url"`
		ClientID     string   `toml:"client_id"`
		ClientSecret string   `toml:"client_secret"`
		Scopes       []string `toml:"scopes"`
	} `toml:"enrichment"`
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
}

// Encode renders cfg as TOML. The client secret is masked.
func Encode(cfg Config) ([]byte, error) {
	var e encoded
	e.User = cfg.User
	e.Storage = cfg.Storage
	e.Poll.Interval = cfg.Poll.Interval.String()
	e.Enrichment.Enabled = cfg.Enrichment.Enabled
	e.Enrichment.URL = cfg.Enrichment.URL
	e.Enrichment.Timeout = cfg.Enrichment.Timeout.String()
	e.Enrichment.MaxRetries = cfg.Enrichment.MaxRetries
	e.Enrichment.TokenURL = cfg.Enrichment.TokenURL
	e.Enrichment.ClientID = cfg.Enrichment.ClientID
	if cfg.Enrichment.ClientSecret != "" {
		e.Enrichment.ClientSecret = "********"
	}
	e.Enrichment.Scopes = cfg.Enrichment.Scopes
	if e.Enrichment.Scopes == nil {
		e.Enrichment.Scopes = []string{}
	}
	e.Log = cfg.Log
	e.Server = cfg.Server

	data, err := toml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
