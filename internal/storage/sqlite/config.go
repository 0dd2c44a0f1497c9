package sqlite

import (
	"fmt"
	"net/url"
	"strings"

	"newsletter-gate/internal/storage"
)

type Config struct {
	DatabasePath string
	// BusyTimeoutMs makes writers wait on a locked database instead of failing
	BusyTimeoutMs int
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.BusyTimeoutMs <= 0 {
		c.BusyTimeoutMs = 5000
	}
	return nil
}

func (c *Config) GetType() string {
	return "sqlite"
}

// GetConnectionString returns a go-sqlite3 DSN with WAL journaling and a busy timeout
func (c *Config) GetConnectionString() string {
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprintf("%d", c.BusyTimeoutMs))
	params.Set("_journal_mode", "WAL")

	sep := "?"
	if strings.Contains(c.DatabasePath, "?") {
		sep = "&"
	}
	return "file:" + c.DatabasePath + sep + params.Encode()
}

func DefaultConfig() *Config {
	return &Config{
		DatabasePath:  "./newsletter_gate.db",
		BusyTimeoutMs: 5000,
	}
}

// configFrom accepts either a *Config or the GenericConfig built by storage.NewStorage
func configFrom(cfg storage.StorageConfig) (*Config, error) {
	switch c := cfg.(type) {
	case *Config:
		return c, nil
	case storage.GenericConfig:
		return &Config{DatabasePath: c.String("path")}, nil
	default:
		return nil, fmt.Errorf("invalid config type for SQLite storage")
	}
}
