package handlers

import (
	"net/http"
	"time"
)

// Version is reported by /health
var Version = "1.0.0"

// HealthCheck returns the health status of the application
// @Summary Health check
// @Description Returns the health status of the application and its dependencies
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Failure 503 {object} map[string]interface{} "Storage unavailable"
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	}
	code := http.StatusOK

	if err := h.storage.Health(); err != nil {
		status["status"] = "unhealthy"
		status["storage_status"] = "unhealthy"
		status["storage_error"] = err.Error()
		code = http.StatusServiceUnavailable
	} else {
		status["storage_status"] = "healthy"
	}

	// Redis trouble degrades the status but never fails the check
	if h.redis != nil {
		if err := h.redis.Health(); err != nil {
			status["redis_status"] = "unhealthy"
			status["redis_error"] = err.Error()
			if code == http.StatusOK {
				status["status"] = "degraded"
			}
		} else {
			status["redis_status"] = "healthy"
		}
	} else {
		status["redis_status"] = "not_configured"
	}

	if h.breakers != nil {
		status["circuit_breakers"] = h.breakers.AllStats()
	}

	h.sendJSON(w, code, status)
}
