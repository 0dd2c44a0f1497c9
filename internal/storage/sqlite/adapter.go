// Package sqlite is the embedded storage adapter, backed by mattn/go-sqlite3.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"newsletter-gate/internal/storage"
	"newsletter-gate/internal/storage/sqlstore"
)

// Adapter is a sqlstore.Store on a SQLite file
type Adapter struct {
	*sqlstore.Store
	config *Config
}

// NewAdapter opens the database file. Call Migrate before first use.
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; WAL lets readers proceed alongside it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Adapter{
		Store:  sqlstore.New(db, sqlstore.SQLite),
		config: config,
	}, nil
}

type Factory struct{}

func (f *Factory) Create(config storage.StorageConfig) (storage.Storage, error) {
	cfg, err := configFrom(config)
	if err != nil {
		return nil, err
	}
	return NewAdapter(cfg)
}

func (f *Factory) GetType() string {
	return "sqlite"
}

func init() {
	storage.Register("sqlite", &Factory{})
}
