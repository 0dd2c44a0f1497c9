// Package postgres is the PostgreSQL storage adapter. Connections are made
// with pgx and exposed through its database/sql driver.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"newsletter-gate/internal/storage"
	"newsletter-gate/internal/storage/sqlstore"
)

type Adapter struct {
	*sqlstore.Store
	config *Config
}

// NewAdapter connects to PostgreSQL. Call Migrate before first use.
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	connConfig, err := pgx.ParseConfig(config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Adapter{
		Store:  sqlstore.New(db, sqlstore.Postgres),
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
	return "postgres"
}

func init() {
	storage.Register("postgres", &Factory{})
}
