package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config holds environment-driven configuration.
type Config struct {
	DB struct {
		Driver string // mysql (default) or sqlite
		DSN    string // MYSQL_DSN or SQLITE_PATH, depending on Driver
	}
	HTTP struct {
		Addr string // default: :8080
	}
	GitLab struct {
		BaseURL   string // default: https://gitlab.com
		Token     string
		ProjectID string // numeric id or url-encoded path; empty disables the integration
	}
	Clock struct {
		Location         *time.Location // TIMECLOCK_TZ, default: Local
		AggregateTimeout time.Duration  // default: 10s
	}
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config

	cfg.DB.Driver = getenv("DB_DRIVER", "mysql")
	switch cfg.DB.Driver {
	case "mysql":
		cfg.DB.DSN = os.Getenv("MYSQL_DSN")
		if cfg.DB.DSN == "" {
			return cfg, errors.New("MYSQL_DSN is required when DB_DRIVER=mysql")
		}
	case "sqlite":
		cfg.DB.DSN = getenv("SQLITE_PATH", "timeclock.db")
	default:
		return cfg, fmt.Errorf("DB_DRIVER must be mysql or sqlite, got %q", cfg.DB.Driver)
	}

	cfg.HTTP.Addr = getenv("HTTP_ADDR", ":8080")

	cfg.GitLab.BaseURL = getenv("GITLAB_BASE_URL", "https://gitlab.com")
	cfg.GitLab.Token = os.Getenv("GITLAB_TOKEN")
	cfg.GitLab.ProjectID = os.Getenv("GITLAB_PROJECT_ID")

	loc, err := Location()
	if err != nil {
		return cfg, err
	}
	cfg.Clock.Location = loc

	cfg.Clock.AggregateTimeout = 10 * time.Second
	if v := os.Getenv("AGGREGATE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, errors.New("AGGREGATE_TIMEOUT must be a positive duration, e.g. 10s")
		}
		cfg.Clock.AggregateTimeout = d
	}

	return cfg, nil
}

// GitLabEnabled reports whether the issue tracker integration is configured.
func (c Config) GitLabEnabled() bool {
	return c.GitLab.Token != "" && c.GitLab.ProjectID != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Location returns the zone named by TIMECLOCK_TZ, or time.Local when unset.
func Location() (*time.Location, error) {
	tz := os.Getenv("TIMECLOCK_TZ")
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMECLOCK_TZ %q: %w", tz, err)
	}
	return loc, nil
}
