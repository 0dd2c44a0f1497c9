package handlers

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"newsletter-gate/internal/auth"
	"newsletter-gate/internal/circuitbreaker"
	"newsletter-gate/internal/common/cache"
	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/config"
	"newsletter-gate/internal/gate"
	"newsletter-gate/internal/oauth2"
	"newsletter-gate/internal/providers"
	"newsletter-gate/internal/settings"
	"newsletter-gate/internal/storage"
)

// HealthChecker is an optional dependency reported by /health
type HealthChecker interface {
	Health() error
}

type Handlers struct {
	storage   storage.Storage
	config    *config.Config
	webFS     fs.FS
	auth      *auth.Auth
	gate      *gate.Gate
	settings  *settings.Service
	providers *providers.Registry
	oauth     *oauth2.Manager
	redis     HealthChecker
	breakers  *circuitbreaker.Manager
	lists     cache.Cache
	logger    logging.Logger
}

// Deps are the components the handlers serve. Redis and Breakers may be
// nil; Lists defaults to a local cache.
type Deps struct {
	Storage   storage.Storage
	Config    *config.Config
	WebFS     fs.FS
	Auth      *auth.Auth
	Gate      *gate.Gate
	Settings  *settings.Service
	Providers *providers.Registry
	OAuth     *oauth2.Manager
	Redis     HealthChecker
	Breakers  *circuitbreaker.Manager
	Lists     cache.Cache
}

func New(d Deps) *Handlers {
	if d.Lists == nil {
		d.Lists = cache.New(cache.Config{})
	}
	return &Handlers{
		storage:   d.Storage,
		config:    d.Config,
		webFS:     d.WebFS,
		auth:      d.Auth,
		gate:      d.Gate,
		settings:  d.Settings,
		providers: d.Providers,
		oauth:     d.OAuth,
		redis:     d.Redis,
		breakers:  d.Breakers,
		lists:     d.Lists,
		logger:    logging.GetGlobalLogger().WithFields(logging.String("component", "handlers")),
	}
}

// Response is the envelope of every JSON answer. The gate endpoints put
// error messages in Data like the browser script expects; the admin API
// uses Error.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// statusFor maps an error type to its HTTP status
func statusFor(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeConfig:
		return http.StatusBadRequest
	case errors.ErrTypeAuth:
		return http.StatusUnauthorized
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeRateLimit:
		return http.StatusTooManyRequests
	case errors.ErrTypeProvider:
		return http.StatusBadGateway
	case errors.ErrTypeConnection:
		return http.StatusServiceUnavailable
	case errors.ErrTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal error details from clients
func publicMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return errors.Message(err, err.Error())
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("Failed to write response", logging.Err(err))
	}
}

func (h *Handlers) sendJSONResponse(w http.ResponseWriter, data interface{}) {
	h.sendJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// sendJSONError logs err and answers with the admin API error envelope
func (h *Handlers) sendJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).Error("Request failed", err, logging.String("path", r.URL.Path))
	}
	h.sendJSON(w, status, Response{Success: false, Error: publicMessage(err)})
}

// sendGateError answers the gate endpoints, message in data
func (h *Handlers) sendGateError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).Error("Gate request failed", err, logging.String("path", r.URL.Path))
	}
	h.sendJSON(w, status, Response{Success: false, Data: publicMessage(err)})
}

// decodeJSON reads a JSON body capped at 1 MiB
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.ValidationError("Invalid JSON")
	}
	return nil
}
