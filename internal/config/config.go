// Package config loads and validates onionwatch configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid marks configuration that is present but explicitly wrong (for
// example a negative worker count). Unlike a missing or unparsable file, which
// degrades to Default, ErrInvalid should abort startup.
var ErrInvalid = errors.New("invalid configuration")

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	// Sources lists the pages scraped for candidate .onion addresses.
	Sources []string `mapstructure:"sources"`
	// Keywords drive the content filter's whole-word matching.
	Keywords []string `mapstructure:"keywords"`
	// ScamPatterns is loaded for forward compatibility; no matching semantics
	// are defined for it yet and it is not consumed by the scanner.
	ScamPatterns []string `mapstructure:"scam_patterns"`

	Verifier VerifierConfig `mapstructure:"verifier"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Filter   FilterConfig   `mapstructure:"filter"`
	DB       DBConfig       `mapstructure:"db"`
	Status   StatusConfig   `mapstructure:"status"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// VerifierConfig governs the liveness verification worker pool.
type VerifierConfig struct {
	// Workers is the fixed size of the probe pool.
	Workers int `mapstructure:"workers"`
	// BatchSize is the number of probe outcomes aggregated per batch log line.
	BatchSize int `mapstructure:"batch_size"`
}

// HTTPConfig configures the probe/collection HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	// Proxy is the SOCKS5 endpoint used to reach hidden services.
	Proxy string `mapstructure:"proxy"`
}

// FilterConfig configures the content filter's client and retry behavior.
type FilterConfig struct {
	TimeoutSeconds    int `mapstructure:"timeout_seconds"`
	MaxAttempts       int `mapstructure:"max_attempts"`
	RetryBaseSeconds  int `mapstructure:"retry_base_seconds"`
	RetryStepSeconds  int `mapstructure:"retry_step_seconds"`
	SnippetBeforeSize int `mapstructure:"snippet_before"`
	SnippetAfterSize  int `mapstructure:"snippet_after"`
}

// DBConfig controls access to the link and filter stores.
type DBConfig struct {
	LinksDSN      string `mapstructure:"links_dsn"`
	FilteredDSN   string `mapstructure:"filtered_dsn"`
	LinksTable    string `mapstructure:"links_table"`
	FilteredTable string `mapstructure:"filtered_table"`
	// MaxConns bounds each store's pool; 0 derives it from verifier.workers.
	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`
}

// StatusConfig controls the optional status/metrics HTTP listener.
type StatusConfig struct {
	// Addr is a listen address like ":9108"; empty disables the listener.
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. A config file that cannot be
// read or parsed is not fatal: Load falls back to Default (no sources, no
// keywords, so a run proceeds and does nothing) and returns the degraded
// config together with an error describing what was ignored. Only values that
// are present but explicitly wrong return ErrInvalid.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ONIONWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Default(), fmt.Errorf("read config, using defaults: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("unmarshal config, using defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the built-in configuration: empty source and keyword lists
// with every other knob at its default.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verifier.workers", 100)
	v.SetDefault("verifier.batch_size", 100)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (onionwatch/1.0)")
	v.SetDefault("http.proxy", "socks5://127.0.0.1:9050")
	v.SetDefault("filter.timeout_seconds", 60)
	v.SetDefault("filter.max_attempts", 3)
	v.SetDefault("filter.retry_base_seconds", 3)
	v.SetDefault("filter.retry_step_seconds", 2)
	v.SetDefault("filter.snippet_before", 80)
	v.SetDefault("filter.snippet_after", 120)
	v.SetDefault("db.links_table", "onion_links")
	v.SetDefault("db.filtered_table", "filtered_links")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Failures wrap
// ErrInvalid so callers can distinguish them from degraded file loads.
func (c Config) Validate() error {
	if c.Verifier.Workers <= 0 {
		return fmt.Errorf("%w: verifier.workers must be > 0", ErrInvalid)
	}
	if c.Verifier.BatchSize <= 0 {
		return fmt.Errorf("%w: verifier.batch_size must be > 0", ErrInvalid)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: http.timeout_seconds must be > 0", ErrInvalid)
	}
	if c.Filter.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: filter.timeout_seconds must be > 0", ErrInvalid)
	}
	if c.Filter.MaxAttempts <= 0 {
		return fmt.Errorf("%w: filter.max_attempts must be > 0", ErrInvalid)
	}
	if c.Filter.SnippetBeforeSize < 0 || c.Filter.SnippetAfterSize < 0 {
		return fmt.Errorf("%w: filter snippet bounds must be >= 0", ErrInvalid)
	}
	if c.DB.MaxConns < 0 || c.DB.MinConns < 0 {
		return fmt.Errorf("%w: db connection bounds must be >= 0", ErrInvalid)
	}
	return nil
}

// ProbeTimeout converts the HTTP timeout into a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// FilterTimeout converts the filter client timeout into a duration.
func (c Config) FilterTimeout() time.Duration {
	return time.Duration(c.Filter.TimeoutSeconds) * time.Second
}

// StoreMaxConns returns the pool ceiling for store connections. When unset it
// covers the verifier pool plus headroom for the run coordinator.
func (c Config) StoreMaxConns() int32 {
	if c.DB.MaxConns > 0 {
		return c.DB.MaxConns
	}
	return int32(c.Verifier.Workers) + 4
}
