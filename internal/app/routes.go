package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"newsletter-gate/internal/common/ratelimit"
	"newsletter-gate/internal/handlers"
	"newsletter-gate/internal/metrics"
	"newsletter-gate/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, authMiddleware func(http.Handler) http.Handler, rateLimiter ratelimit.Limiter, clientKey func(*http.Request) string) {
	router.Use(middleware.Recover)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)

	// Public gate endpoints, throttled per client IP
	public := router.PathPrefix("/api/gate").Subrouter()
	if rateLimiter != nil {
		public.Use(ratelimit.HTTPMiddleware(rateLimiter, clientKey))
	}
	public.HandleFunc("/check", h.HandleCheck).Methods("POST")
	public.HandleFunc("/subscribe", h.HandleSubscribe).Methods("POST")
	public.HandleFunc("/render", h.HandleRender).Methods("GET", "POST")
	public.HandleFunc("/nonce", h.HandleNonce).Methods("GET")
	public.HandleFunc("/styles.css", h.HandleStyles).Methods("GET")

	// Auth routes (no auth required for login and logout)
	router.HandleFunc("/api/auth/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/api/auth/logout", h.HandleLogout).Methods("POST")
	router.Handle("/api/auth/me", authMiddleware(http.HandlerFunc(h.HandleMe))).Methods("GET")

	// Health check and metrics (no auth required)
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Swagger UI (no auth required)
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Browser assets for embedding sites
	router.PathPrefix("/assets/").Handler(h.ServeAssets()).Methods("GET")

	// The provider redirects the admin's browser here with the session cookie
	router.Handle("/oauth/callback", authMiddleware(http.HandlerFunc(h.HandleOAuthCallback))).Methods("GET")

	// Protected admin routes
	protected := router.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	api := protected.PathPrefix("/api").Subrouter()

	// Settings endpoints (protected)
	api.HandleFunc("/settings", h.GetSettings).Methods("GET")
	api.HandleFunc("/settings", h.UpdateSettings).Methods("POST")

	// Local cache table (protected)
	api.HandleFunc("/subscribers", h.ListSubscribers).Methods("GET")

	// Integration endpoints (protected)
	api.HandleFunc("/integrations", h.ListIntegrations).Methods("GET")
	api.HandleFunc("/integrations/{provider}/lists", h.GetIntegrationLists).Methods("GET")
	api.HandleFunc("/integrations/{provider}/connection", h.CheckIntegrationConnection).Methods("POST")
	api.HandleFunc("/integrations/{provider}/oauth/authorize", h.AuthorizeIntegration).Methods("GET")
}
