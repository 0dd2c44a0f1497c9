package storage

import (
	"context"
	"fmt"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/config"
)

// NewStorage opens the adapter selected by DATABASE_TYPE and migrates it
func NewStorage(cfg *config.Config) (Storage, error) {
	var storageType string
	var storageConfig StorageConfig

	switch cfg.DatabaseType {
	case "sqlite":
		storageType = "sqlite"
		storageConfig = GenericConfig{
			"type": "sqlite",
			"path": cfg.DatabasePath,
		}

	case "postgres", "postgresql":
		storageType = "postgres"
		storageConfig = GenericConfig{
			"type":     "postgres",
			"host":     cfg.PostgresHost,
			"port":     cfg.PostgresPort,
			"database": cfg.PostgresDB,
			"username": cfg.PostgresUser,
			"password": cfg.PostgresPassword,
			"sslmode":  cfg.PostgresSSLMode,
		}

	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported database type: %s", cfg.DatabaseType))
	}

	store, err := Create(storageType, storageConfig)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}
