// Package handler provides HTTP handlers for the busgraph API.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/busgraph/busgraph/internal/api/models"
	"github.com/busgraph/busgraph/internal/api/response"
	"github.com/busgraph/busgraph/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// The service is not ready while any upstream circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.registry != nil && !h.registry.Ready() {
		response.Error(w, r, http.StatusServiceUnavailable, "an upstream transit provider is unavailable")
		return
	}
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - upstream provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Providers: []models.ProviderStatus{},
	}

	if h.registry != nil {
		worst := resilience.StatusHealthy
		for _, ph := range h.registry.Snapshot() {
			status.Providers = append(status.Providers, providerStatus(ph))
			worst = max(worst, ph.Status)
		}
		status.Status = healthStatuses[worst]
	}

	response.JSON(w, r, http.StatusOK, status)
}

// ProviderStatus handles GET /v1/ops/status/{provider} - one upstream provider.
func (h *OpsHandler) ProviderStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	if h.registry == nil {
		response.Error(w, r, http.StatusNotFound, "unknown provider "+name)
		return
	}
	ph, ok := h.registry.Health(name)
	if !ok {
		response.Error(w, r, http.StatusNotFound, "unknown provider "+name)
		return
	}
	response.JSON(w, r, http.StatusOK, providerStatus(ph))
}

var healthStatuses = map[resilience.Status]models.HealthStatus{
	resilience.StatusHealthy:   models.HealthStatusOK,
	resilience.StatusDegraded:  models.HealthStatusDegraded,
	resilience.StatusUnhealthy: models.HealthStatusFail,
}

func providerStatus(ph resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		Status:              healthStatuses[ph.Status],
		CircuitState:        ph.CircuitState.String(),
		ConsecutiveFailures: ph.ConsecutiveFailures,
		LastSuccessAt:       models.TimestampPtr(ph.LastSuccessAt),
		LastFailureAt:       models.TimestampPtr(ph.LastFailureAt),
	}
	if ph.Status != resilience.StatusHealthy && ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}
