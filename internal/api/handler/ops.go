// Package handler provides HTTP handlers for the water monitor API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/response"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/provider/resilience"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality/reference"
)

// readinessTimeout bounds the storage ping of readiness and status checks.
const readinessTimeout = 2 * time.Second

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies inspected by the ops endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Storage is pinged by readiness and status checks.
	Storage Pinger

	// Registry lists upstream providers. Optional.
	Registry *resilience.Registry

	// Reference reports the reference cache. Optional.
	Reference *reference.Service
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	storage   Pinger
	registry  *resilience.Registry
	reference *reference.Service
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		storage:   cfg.Storage,
		registry:  cfg.Registry,
		reference: cfg.Reference,
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

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Not ready while
// storage is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if err := h.pingStorage(r.Context()); err != nil {
		health.Status = models.HealthStatusFail
		health.Details = map[string]interface{}{"storage": err.Error()}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{h.storageStatus(r.Context())},
		Providers:  []models.ProviderStatus{},
	}

	if h.reference != nil {
		cache := h.reference.CacheStatus()
		status.Reference = cache
		status.Subsystems = append(status.Subsystems, referenceStatus(cache))
	}

	if h.registry != nil {
		for _, p := range h.registry.All() {
			status.Providers = append(status.Providers, providerStatus(p))
		}
	}

	status.Status = models.HealthStatusOK
	for _, s := range status.Subsystems {
		status.Status = status.Status.Worse(s.Status)
	}
	for _, p := range status.Providers {
		status.Status = status.Status.Worse(p.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingStorage(ctx context.Context) error {
	if h.storage == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.storage.Ping(ctx)
}

func (h *OpsHandler) storageStatus(ctx context.Context) models.SubsystemStatus {
	s := models.SubsystemStatus{Name: "storage", Status: models.HealthStatusOK}
	if err := h.pingStorage(ctx); err != nil {
		s.Status = models.HealthStatusFail
		s.Detail = err.Error()
	}
	return s
}

func referenceStatus(cache reference.CacheStatus) models.SubsystemStatus {
	s := models.SubsystemStatus{Name: "reference-cache", Status: models.HealthStatusOK}

	switch {
	case !cache.HasData:
		s.Status = models.HealthStatusDegraded
		s.Detail = "no reference dataset loaded yet"
	case cache.IsStale:
		s.Status = models.HealthStatusDegraded
		s.Detail = "reference dataset is past its stale-if-error window"
	case cache.IsExpired:
		s.Detail = "reference dataset expired, refreshed on next use"
	}
	return s
}

func providerStatus(h resilience.Health) models.ProviderStatus {
	p := models.ProviderStatus{
		Provider:     h.Name,
		CircuitState: h.CircuitState,
		Message:      h.LastError,
	}

	switch h.Status {
	case resilience.StatusUnhealthy:
		p.Status = models.HealthStatusFail
	case resilience.StatusDegraded:
		p.Status = models.HealthStatusDegraded
	default:
		p.Status = models.HealthStatusOK
	}

	if h.LastSuccessAt != nil {
		p.LastSuccessAt = models.TimestampPtr(*h.LastSuccessAt)
	}
	if h.LastFailureAt != nil {
		p.LastFailureAt = models.TimestampPtr(*h.LastFailureAt)
	}
	return p
}
