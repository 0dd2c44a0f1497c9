package app

import (
	"context"

	"newsletter-gate/internal/auth"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/ratelimit"
	"newsletter-gate/internal/common/templates"
	"newsletter-gate/internal/config"
	"newsletter-gate/internal/crypto"
	"newsletter-gate/internal/events"
	"newsletter-gate/internal/gate"
	"newsletter-gate/internal/locks"
	"newsletter-gate/internal/oauth2"
	"newsletter-gate/internal/providers"
	"newsletter-gate/internal/redis"
	"newsletter-gate/internal/scheduler"
	"newsletter-gate/internal/settings"
	"newsletter-gate/internal/storage"

	gatehttp "newsletter-gate/internal/common/http"
)

// App holds all the application dependencies
type App struct {
	Config       *config.Config
	Storage      storage.Storage
	RedisClient  *redis.Client
	Encryptor    *crypto.ConfigEncryptor
	Auth         *auth.Auth
	Settings     *settings.Service
	HTTPClient   *gatehttp.Client
	Providers    *providers.Registry
	OAuthManager *oauth2.Manager
	Locks        locks.Manager
	Events       events.Publisher
	Templates    *templates.Engine
	Gate         *gate.Gate
	Scheduler    *scheduler.Scheduler
	RateLimiter  ratelimit.Limiter
	Logger       logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.String("component", "app")),
	}

	// Initialize components in order of dependency
	if err := app.initializeStorage(); err != nil {
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without Redis", logging.Err(err))
	}

	if err := app.initializeEncryption(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeAuth(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeProviders(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeOAuth()
	app.initializeLocks()
	app.initializeEvents()

	if err := app.initializeGate(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeScheduler(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.RateLimiter = app.InitializeRateLimiter()
	return app, nil
}

// NewForCLI opens only what the admin commands need: storage, settings,
// providers and the gate cache.
func NewForCLI(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.String("component", "cli")),
	}

	if err := app.initializeStorage(); err != nil {
		return nil, err
	}
	if err := app.initializeEncryption(); err != nil {
		app.Cleanup()
		return nil, err
	}
	if err := app.initializeProviders(); err != nil {
		app.Cleanup()
		return nil, err
	}
	app.Locks = locks.NewLocalManager()
	app.Events = events.Noop{}
	app.Gate = gate.New(app.Storage, app.Providers, app.Settings, nil, nil,
		gate.Config{CookieTTL: cfg.CookieTTL()}, gate.WithLocks(app.Locks))
	return app, nil
}

// Shutdown stops background work; Cleanup releases connections afterwards
func (app *App) Shutdown(ctx context.Context) error {
	if app.Scheduler != nil {
		if err := app.Scheduler.Stop(ctx); err != nil {
			app.Logger.Warn("Error stopping scheduler", logging.Err(err))
		} else {
			app.Logger.Info("Scheduler stopped")
		}
	}

	if app.Events != nil {
		if err := app.Events.Close(); err != nil {
			app.Logger.Warn("Error closing event publishers", logging.Err(err))
		}
		app.Events = nil
	}
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Events != nil {
		app.Events.Close()
	}
	if app.Locks != nil {
		app.Locks.Close()
	}
	if app.Storage != nil {
		app.Storage.Close()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
