package postgres

import (
	"fmt"
	"net/url"
	"strconv"

	"newsletter-gate/internal/storage"
)

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("PostgreSQL host is required")
	}
	if c.Port <= 0 {
		c.Port = 5432
	}
	if c.Database == "" {
		return fmt.Errorf("PostgreSQL database name is required")
	}
	if c.Username == "" {
		return fmt.Errorf("PostgreSQL username is required")
	}
	if c.SSLMode == "" {
		c.SSLMode = "prefer"
	}
	return nil
}

func (c *Config) GetType() string {
	return "postgres"
}

// GetConnectionString returns a postgres:// URL understood by pgx
func (c *Config) GetConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewConfigFromURL parses a postgres:// connection URL
func NewConfigFromURL(connStr string) (*Config, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("invalid PostgreSQL URL scheme: %s", u.Scheme)
	}

	config := &Config{
		Host:     u.Hostname(),
		Port:     5432,
		Username: u.User.Username(),
		SSLMode:  "prefer",
	}
	if len(u.Path) > 1 {
		config.Database = u.Path[1:]
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PostgreSQL port: %s", p)
		}
		config.Port = port
	}
	if password, ok := u.User.Password(); ok {
		config.Password = password
	}
	if sslMode := u.Query().Get("sslmode"); sslMode != "" {
		config.SSLMode = sslMode
	}

	return config, nil
}

func configFrom(cfg storage.StorageConfig) (*Config, error) {
	switch c := cfg.(type) {
	case *Config:
		return c, nil
	case storage.GenericConfig:
		port, _ := strconv.Atoi(c.String("port"))
		return &Config{
			Host:     c.String("host"),
			Port:     port,
			Database: c.String("database"),
			Username: c.String("username"),
			Password: c.String("password"),
			SSLMode:  c.String("sslmode"),
		}, nil
	default:
		return nil, fmt.Errorf("invalid config type for PostgreSQL storage")
	}
}
