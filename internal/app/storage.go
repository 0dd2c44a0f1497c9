package app

import (
	"fmt"

	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/storage"

	_ "newsletter-gate/internal/storage/postgres"
	_ "newsletter-gate/internal/storage/sqlite"
)

func (app *App) initializeStorage() error {
	if app.Config.IsPostgres() {
		app.Logger.Info("Database: PostgreSQL",
			logging.String("host", app.Config.PostgresHost),
			logging.String("port", app.Config.PostgresPort),
			logging.String("database", app.Config.PostgresDB),
		)
	} else {
		app.Logger.Info("Database: SQLite", logging.String("path", app.Config.DatabasePath))
	}

	store, err := storage.NewStorage(app.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.Storage = store
	return nil
}
