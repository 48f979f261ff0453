package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"timetrack-gateway/internal/common/logging"
)

// HealthCheck is the liveness probe. It only proves the process serves HTTP.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   h.version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// ReadinessCheck reports ready once a machine token has been obtained. Redis
// and breaker status are informational and never fail readiness.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"timestamp": time.Now(),
	}
	ready := true

	if h.credentials != nil {
		status["credentials_state"] = h.credentials.State().String()
		if token := h.credentials.Current(); token != nil {
			status["token_obtained_at"] = token.ObtainedAt
			status["token_expires_at"] = token.ExpiresAt()
		}
		ready = h.credentials.Ready()
	} else {
		status["credentials_state"] = "not_configured"
	}

	if h.redis != nil {
		if err := h.redis.Health(); err != nil {
			status["redis_status"] = "unhealthy"
			status["redis_error"] = err.Error()
		} else {
			status["redis_status"] = "healthy"
		}
	} else {
		status["redis_status"] = "not_configured"
	}

	if h.breaker != nil {
		status["identity_breaker"] = h.breaker.Stats()
	}

	code := http.StatusOK
	status["status"] = "ready"
	if !ready {
		code = http.StatusServiceUnavailable
		status["status"] = "not_ready"
		h.logger.WithContext(r.Context()).Debug("Readiness probe failed",
			logging.Field{Key: "credentials_state", Value: status["credentials_state"]},
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
