// Package config provides configuration management for the newsletter gate service.
// It loads configuration from environment variables with sensible defaults
// and validates it so the application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - BASE_URL: Public home URL, used as the OAuth redirect (default: http://localhost:8080)
//   - TEMPLATE_DIR: Directory holding newslettergate/ form overrides
//   - SETTINGS_FILE: YAML file seeding settings that are not stored yet
//
// Database Configuration:
//   - DATABASE_TYPE: "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./newsletter_gate.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER,
//     POSTGRES_PASSWORD, POSTGRES_SSL_MODE
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address; empty disables Redis
//   - REDIS_PASSWORD, REDIS_DB (0-15), REDIS_POOL_SIZE
//
// Security Configuration:
//   - JWT_SECRET: JWT signing secret (required, minimum 32 characters)
//   - CONFIG_ENCRYPTION_KEY: Encryption key for API keys and OAuth tokens (32 characters if provided)
//   - ADMIN_USERNAME / ADMIN_PASSWORD: default admin created when no users exist
//
// Gate:
//   - COOKIE_DOMAIN, COOKIE_SECURE
//   - SUBSCRIPTION_TTL: cookie lifetime (default: 720h, accepts "30d")
//   - PURGE_SCHEDULE: cron spec for purging expired rows (default: @every 1h)
//   - OAUTH_REFRESH_SCHEDULE: cron spec for the token refresh sweep (default: @every 5m)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED (default: true), RATE_LIMIT_DEFAULT (default: 60), RATE_LIMIT_WINDOW (default: 60s)
//   - TRUSTED_PROXIES: comma-separated IPs or CIDRs whose X-Forwarded-For is believed
//
// Events:
//   - AMQP_URL, AMQP_EXCHANGE (default: newslettergate)
//   - EVENTS_CHANNEL: Redis pub/sub channel (default: newslettergate:events)
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"newsletter-gate/internal/common/utils"
)

// Config holds all configuration values for the service.
type Config struct {
	// Application settings
	Port         string
	LogLevel     string
	BaseURL      string
	TemplateDir  string
	SettingsFile string
	TLSCert      string
	TLSKey       string

	// Database
	DatabaseType     string
	DatabasePath     string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Redis, optional
	RedisAddress  string
	RedisPassword string
	RedisDB       string
	RedisPoolSize string

	// Rate limiting for the public gate endpoints
	RateLimitEnabled bool
	RateLimitDefault string
	RateLimitWindow  string
	TrustedProxies   string

	// Security
	JWTSecret     string
	EncryptionKey string
	AdminUsername string
	AdminPassword string

	// Gate cookies and housekeeping
	CookieDomain         string
	CookieSecure         bool
	SubscriptionTTL      string
	PurgeSchedule        string
	OAuthRefreshSchedule string

	// Events
	AMQPURL       string
	AMQPExchange  string
	EventsChannel string
}

// Load creates a Config from environment variables, falling back to defaults.
// It does not validate; call Validate on the result.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		TemplateDir:  getEnv("TEMPLATE_DIR", ""),
		SettingsFile: getEnv("SETTINGS_FILE", ""),
		TLSCert:      getEnv("TLS_CERT_FILE", ""),
		TLSKey:       getEnv("TLS_KEY_FILE", ""),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./newsletter_gate.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "newsletter_gate"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
		RateLimitDefault: getEnv("RATE_LIMIT_DEFAULT", "60"),
		RateLimitWindow:  getEnv("RATE_LIMIT_WINDOW", "60s"),
		TrustedProxies:   getEnv("TRUSTED_PROXIES", ""),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		EncryptionKey: getEnv("CONFIG_ENCRYPTION_KEY", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		CookieDomain:         getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:         getBoolEnv("COOKIE_SECURE", false),
		SubscriptionTTL:      getEnv("SUBSCRIPTION_TTL", "720h"),
		PurgeSchedule:        getEnv("PURGE_SCHEDULE", "@every 1h"),
		OAuthRefreshSchedule: getEnv("OAUTH_REFRESH_SCHEDULE", "@every 5m"),

		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "newslettergate"),
		EventsChannel: getEnv("EVENTS_CHANNEL", "newslettergate:events"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts anything strconv.ParseBool does; other values yield defaultValue.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks required fields, formats and cross-field dependencies.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long for security")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute URL")
	}

	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	switch c.DatabaseType {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	if c.IsPostgres() {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if c.RateLimitEnabled {
		if limit, err := strconv.Atoi(c.RateLimitDefault); err != nil || limit < 1 {
			return fmt.Errorf("RATE_LIMIT_DEFAULT must be a positive number")
		}
		if _, err := time.ParseDuration(c.RateLimitWindow); err != nil {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be a valid duration (e.g., '60s', '1m')")
		}
	}

	if _, err := c.TrustedProxyNets(); err != nil {
		return err
	}

	if c.EncryptionKey != "" && len(c.EncryptionKey) != 32 {
		return fmt.Errorf("CONFIG_ENCRYPTION_KEY must be exactly 32 characters (256 bits) when provided")
	}

	if ttl, err := utils.ParseDuration(c.SubscriptionTTL); err != nil || ttl <= 0 {
		return fmt.Errorf("SUBSCRIPTION_TTL must be a positive duration (e.g., '720h', '30d')")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.PurgeSchedule); err != nil {
		return fmt.Errorf("PURGE_SCHEDULE is not a valid cron spec: %w", err)
	}
	if _, err := parser.Parse(c.OAuthRefreshSchedule); err != nil {
		return fmt.Errorf("OAUTH_REFRESH_SCHEDULE is not a valid cron spec: %w", err)
	}

	return nil
}

// IsPostgres reports whether DATABASE_TYPE selects PostgreSQL.
func (c *Config) IsPostgres() bool {
	return c.DatabaseType == "postgres" || c.DatabaseType == "postgresql"
}

// CookieTTL returns the parsed SUBSCRIPTION_TTL. Validate guarantees it parses.
func (c *Config) CookieTTL() time.Duration {
	ttl, err := utils.ParseDuration(c.SubscriptionTTL)
	if err != nil || ttl <= 0 {
		return 30 * 24 * time.Hour
	}
	return ttl
}

// RateLimit returns the parsed per-window request limit and window.
func (c *Config) RateLimit() (int, time.Duration) {
	limit, err := strconv.Atoi(c.RateLimitDefault)
	if err != nil || limit < 1 {
		limit = 60
	}
	window, err := time.ParseDuration(c.RateLimitWindow)
	if err != nil || window <= 0 {
		window = time.Minute
	}
	return limit, window
}

// TrustedProxyNets parses TRUSTED_PROXIES. A bare address is a single-host network.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, entry := range strings.Split(c.TrustedProxies, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", entry)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// SettingsSeed is the YAML document read from SETTINGS_FILE. Values are
// written to storage only for keys that are not set yet.
//
//	settings:
//	  heading: Members only
//	  mailchimp_enabled: "1"
type SettingsSeed struct {
	Settings map[string]string `yaml:"settings"`
}

// LoadSettingsSeed reads a settings seed file. An empty path yields an empty seed.
func LoadSettingsSeed(path string) (*SettingsSeed, error) {
	seed := &SettingsSeed{Settings: map[string]string{}}
	if path == "" {
		return seed, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if seed.Settings == nil {
		seed.Settings = map[string]string{}
	}
	return seed, nil
}
