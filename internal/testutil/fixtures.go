// Package testutil holds fixtures shared by package tests: a migrated
// SQLite store, a valid configuration and fake provider APIs.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/config"
	"newsletter-gate/internal/storage"
	"newsletter-gate/internal/storage/sqlite"
)

const (
	TestJWTSecret     = "test-secret-that-is-at-least-32-characters"
	TestAdminUsername = "admin"
	TestAdminPassword = "correct horse battery staple"
)

// NewTestStorage returns a migrated SQLite store in a temp dir, closed on cleanup
func NewTestStorage(t *testing.T) storage.Storage {
	t.Helper()

	store, err := sqlite.NewAdapter(&sqlite.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

// NewTestConfig returns a configuration that passes Validate, on SQLite in
// a temp dir, without Redis or AMQP.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Port:         "0",
		LogLevel:     "error",
		BaseURL:      "http://localhost:8080",
		DatabaseType: "sqlite",
		DatabasePath: filepath.Join(t.TempDir(), "app.db"),

		RedisDB:       "0",
		RedisPoolSize: "10",

		RateLimitEnabled: true,
		RateLimitDefault: "60",
		RateLimitWindow:  "60s",

		JWTSecret:     TestJWTSecret,
		AdminUsername: TestAdminUsername,
		AdminPassword: TestAdminPassword,

		SubscriptionTTL:      "720h",
		PurgeSchedule:        "@every 1h",
		OAuthRefreshSchedule: "@every 5m",

		AMQPExchange:  "newslettergate",
		EventsChannel: "newslettergate:events",
	}
}
