// Package storage defines the persistence layer of the newsletter gate: the
// local cache of verified subscriptions, plugin settings and admin users.
//
// Adapters for SQLite and PostgreSQL register themselves with DefaultRegistry
// from their package init, so the application imports them for side effects
// and selects one with DATABASE_TYPE:
//
//	import (
//		_ "newsletter-gate/internal/storage/postgres"
//		_ "newsletter-gate/internal/storage/sqlite"
//	)
//
//	store, err := storage.NewStorage(cfg)
package storage

import (
	"context"
	stderrors "errors"
	"time"
)

// SchemaVersion is recorded in the schema_version setting after migrating
const SchemaVersion = "1.2.0"

// ErrNotFound is returned by lookups of a single row that does not exist
var ErrNotFound = stderrors.New("not found")

// Storage is implemented by every database adapter
type Storage interface {
	// Connection management
	Close() error
	Health() error
	Migrate(ctx context.Context) error

	// Subscribers: the local cache of confirmed provider subscriptions.
	// FindSubscriber returns ErrNotFound when no row matches.
	FindSubscriber(ctx context.Context, email, provider, listID string) (*Subscriber, error)
	FindSubscribersByRefIDs(ctx context.Context, provider string, refIDs []string) ([]*Subscriber, error)
	FindSubscribersByEmail(ctx context.Context, provider, email string) ([]*Subscriber, error)
	// UpsertSubscriber inserts the row or, when (email, provider, list) already
	// exists, moves its expiry. The row's ID, RefID and Date are set from the
	// stored row, so concurrent writers converge on one reference id.
	UpsertSubscriber(ctx context.Context, sub *Subscriber) error
	DeleteExpiredSubscribers(ctx context.Context, before time.Time) (int64, error)
	CountSubscribers(ctx context.Context) (int, error)
	// ListSubscribers returns one page of rows, newest first
	ListSubscribers(ctx context.Context, limit, offset int) ([]*Subscriber, error)

	// Settings. GetSetting returns "" for unset keys.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetAllSettings(ctx context.Context) (map[string]string, error)

	// Admin users
	CreateUser(ctx context.Context, username, password string) (*User, error)
	ValidateUser(ctx context.Context, username, password string) (*User, error)
	GetUserCount(ctx context.Context) (int, error)
}

// StorageConfig is the connection configuration handed to a factory
type StorageConfig interface {
	Validate() error
	GetType() string
	GetConnectionString() string
}

// StorageFactory opens a Storage for one database type
type StorageFactory interface {
	Create(config StorageConfig) (Storage, error)
	GetType() string
}

// Subscriber is one row of the local cache table. It records that Email is
// subscribed to ListID at Provider until ExpiresAt.
type Subscriber struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	ListID    string    `json:"list_id"`
	Provider  string    `json:"provider"`
	RefID     string    `json:"ref_id"`
	Date      time.Time `json:"date"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsActive reports whether the row has not expired at now
func (s *Subscriber) IsActive(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// User is an admin account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// GenericConfig is a map-based StorageConfig built from the application config
type GenericConfig map[string]interface{}

func (gc GenericConfig) Validate() error {
	return nil
}

func (gc GenericConfig) GetType() string {
	if t, ok := gc["type"].(string); ok {
		return t
	}
	return "unknown"
}

func (gc GenericConfig) GetConnectionString() string {
	if cs, ok := gc["connection_string"].(string); ok {
		return cs
	}
	return ""
}

// String returns the string value under key, or "" when missing
func (gc GenericConfig) String(key string) string {
	v, _ := gc[key].(string)
	return v
}
