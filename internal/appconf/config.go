// Package appconf holds the process-wide configuration: listen port,
// environment, dataset locations and refresh tuning. Values come from the
// environment (optionally seeded from a .env file) and may be overridden by
// command line flags.
package appconf

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvironmentFromString maps "production", "test" and "development" (any
// case) to an Environment. Unknown values fall back to Development.
func EnvironmentFromString(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

const (
	DefaultPort            = 4000
	DefaultRefreshInterval = 30 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultCycleTimeout    = 25 * time.Second
	DefaultSnapTolerance   = 0.01
	DefaultRateLimit       = 60
	DefaultFetchRetries    = 2
)

type Config struct {
	Port          int
	Env           Environment
	Verbose       bool
	ApiKeys       []string
	ExemptApiKeys []string

	// RateLimit is the number of API requests allowed per minute per client.
	RateLimit int

	ProvidersPath  string
	StationsPath   string
	StationsDBPath string
	RailsPath      string
	StaticDir      string

	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	CycleTimeout    time.Duration
	FetchRetries    int
	SnapTolerance   float64
	UpcomingHorizon time.Duration
	MergeProviders  bool

	// FakeNowEnvVar names the environment variable read by the replay clock.
	FakeNowEnvVar string
}

// Default returns a Config with every tunable at its default value.
func Default() Config {
	return Config{
		Port:            DefaultPort,
		Env:             Development,
		RateLimit:       DefaultRateLimit,
		ProvidersPath:   "config/providers.yaml",
		StationsPath:    "data/stations/gares.json",
		StationsDBPath:  ":memory:",
		RailsPath:       "data/network/railSegments.json",
		StaticDir:       "web",
		RefreshInterval: DefaultRefreshInterval,
		FetchTimeout:    DefaultFetchTimeout,
		CycleTimeout:    DefaultCycleTimeout,
		FetchRetries:    DefaultFetchRetries,
		SnapTolerance:   DefaultSnapTolerance,
		MergeProviders:  true,
		FakeNowEnvVar:   "TRAINFLOW_FAKE_NOW",
	}
}

// LoadDotEnv seeds the process environment from the given files. Missing
// files are ignored; variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv starts from Default and applies every TRAINFLOW_* variable found
// through lookup. Pass os.LookupEnv in production.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	integer("TRAINFLOW_PORT", &cfg.Port)
	if v, ok := lookup("TRAINFLOW_ENV"); ok {
		cfg.Env = EnvironmentFromString(v)
	}
	boolean("TRAINFLOW_VERBOSE", &cfg.Verbose)
	if v, ok := lookup("TRAINFLOW_API_KEYS"); ok && strings.TrimSpace(v) != "" {
		cfg.ApiKeys = ParseList(v)
	}
	if v, ok := lookup("TRAINFLOW_EXEMPT_API_KEYS"); ok && strings.TrimSpace(v) != "" {
		cfg.ExemptApiKeys = ParseList(v)
	}
	integer("TRAINFLOW_RATE_LIMIT", &cfg.RateLimit)

	str("TRAINFLOW_PROVIDERS", &cfg.ProvidersPath)
	str("TRAINFLOW_STATIONS", &cfg.StationsPath)
	str("TRAINFLOW_STATIONS_DB", &cfg.StationsDBPath)
	str("TRAINFLOW_RAILS", &cfg.RailsPath)
	str("TRAINFLOW_STATIC_DIR", &cfg.StaticDir)

	duration("TRAINFLOW_REFRESH_INTERVAL", &cfg.RefreshInterval)
	duration("TRAINFLOW_FETCH_TIMEOUT", &cfg.FetchTimeout)
	duration("TRAINFLOW_CYCLE_TIMEOUT", &cfg.CycleTimeout)
	integer("TRAINFLOW_FETCH_RETRIES", &cfg.FetchRetries)
	duration("TRAINFLOW_UPCOMING_HORIZON", &cfg.UpcomingHorizon)
	boolean("TRAINFLOW_MERGE_PROVIDERS", &cfg.MergeProviders)

	if v, ok := lookup("TRAINFLOW_SNAP_TOLERANCE"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRAINFLOW_SNAP_TOLERANCE: %w", err))
		} else {
			cfg.SnapTolerance = f
		}
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid environment configuration: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the refresh loop or the snapper cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("refresh interval must be positive"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.CycleTimeout < c.FetchTimeout {
		errs = append(errs, errors.New("cycle timeout must not be shorter than the fetch timeout"))
	}
	if c.FetchRetries < 0 {
		errs = append(errs, errors.New("fetch retries must not be negative"))
	}
	if c.SnapTolerance <= 0 {
		errs = append(errs, errors.New("snap tolerance must be positive"))
	}
	if c.UpcomingHorizon < 0 {
		errs = append(errs, errors.New("upcoming horizon must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ParseList splits a comma separated value and trims each entry.
func ParseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
