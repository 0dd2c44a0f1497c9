package app

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"newsletter-gate/internal/common/cache"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/common/ratelimit"
	"newsletter-gate/internal/handlers"
	"newsletter-gate/internal/server"
)

const listsCacheTTL = 5 * time.Minute

// Handler builds the router with all handlers configured
func (app *App) Handler(webFS fs.FS) http.Handler {
	deps := handlers.Deps{
		Storage:   app.Storage,
		Config:    app.Config,
		WebFS:     webFS,
		Auth:      app.Auth,
		Gate:      app.Gate,
		Settings:  app.Settings,
		Providers: app.Providers,
		OAuth:     app.OAuthManager,
		Breakers:  app.HTTPClient.Breakers(),
	}
	if app.RedisClient != nil {
		deps.Redis = app.RedisClient
	}
	deps.Lists = cache.New(cache.Config{
		TTL:         listsCacheTTL,
		KeyPrefix:   "ngate:lists:",
		RedisClient: app.goRedis(),
	})

	router := mux.NewRouter()
	SetupRoutes(router, handlers.New(deps), app.Auth.RequireAuth, app.RateLimiter, app.clientKey())
	return router
}

// clientKey keys the public rate limit by client IP, believing forwarding
// headers only from TRUSTED_PROXIES.
func (app *App) clientKey() func(*http.Request) string {
	trusted, err := app.Config.TrustedProxyNets()
	if err != nil {
		app.Logger.Warn("Ignoring TRUSTED_PROXIES, rate limiting by connecting address", logging.Err(err))
		return ratelimit.IPKey
	}
	return ratelimit.IPKeyFunc(trusted)
}

// RunServer starts the scheduler and returns the HTTP server, not yet started
func (app *App) RunServer(webFS fs.FS) (*server.Server, http.Handler) {
	router := app.Handler(webFS)

	if app.Scheduler != nil {
		app.Scheduler.Start()
	}

	srv := server.New(router, app.Config.Port, app.Config.TLSCert, app.Config.TLSKey)
	return srv, router
}
