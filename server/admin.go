package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/config"
	"github.com/brightpath/lmscache/invalidation"
	"github.com/brightpath/lmscache/logger"
	"github.com/brightpath/lmscache/maintenance"
)

// Maintenance action names accepted by the admin API.
const (
	ActionHealthCheck    = "health_check"
	ActionCleanupExpired = "cleanup_expired"
	ActionClearByTags    = "clear_by_tags"
	ActionClearAll       = "clear_all"
)

// AdminHandler serves the cache dashboard's metrics and maintenance routes.
// These endpoints are for administrators: unlike the cache-aside read path,
// they surface store errors explicitly instead of degrading silently.
type AdminHandler struct {
	svc      *cache.Service
	cleaner  *maintenance.Cleaner
	analyzer *maintenance.Analyzer
	hooks    *invalidation.Hooks
	cfg      config.CacheConfig
	log      logger.Logger
}

// NewAdminHandler wires the admin routes' collaborators together.
func NewAdminHandler(
	svc *cache.Service,
	cleaner *maintenance.Cleaner,
	analyzer *maintenance.Analyzer,
	hooks *invalidation.Hooks,
	cfg config.CacheConfig,
	log logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		svc:      svc,
		cleaner:  cleaner,
		analyzer: analyzer,
		hooks:    hooks,
		cfg:      cfg,
		log:      log,
	}
}

// Register mounts the admin routes on e.
func (h *AdminHandler) Register(e *echo.Echo) {
	group := e.Group("/admin/cache")
	group.GET("/metrics", h.metrics)
	group.POST("/maintenance", h.maintenance)
	group.POST("/invalidate", h.invalidate)
}

// EfficiencySummary condenses the snapshot into the dashboard's headline
// numbers.
type EfficiencySummary struct {
	HitRate             float64 `json:"hit_rate"`
	ActiveEntries       int64   `json:"active_entries"`
	ExpiredEntries      int64   `json:"expired_entries"`
	AverageHitsPerEntry float64 `json:"average_hits_per_entry"`
}

// MetricsResponse is the GET /admin/cache/metrics payload.
type MetricsResponse struct {
	Metrics              cache.MetricsSnapshot `json:"metrics"`
	Stats                cache.Stats           `json:"stats"`
	Efficiency           EfficiencySummary     `json:"efficiency"`
	EstimatedTimeSavedMs int64                 `json:"estimated_time_saved_ms"`
	Health               maintenance.Report    `json:"health"`
	Timestamp            time.Time             `json:"timestamp"`
}

func (h *AdminHandler) metrics(c echo.Context) error {
	ctx := c.Request().Context()

	snapshot, err := h.svc.Metrics(ctx)
	if err != nil {
		return respondError(c, NewInternalError("failed to compute cache metrics").WithDetails("error", err.Error()))
	}

	stats, err := h.svc.Stats(ctx, h.cfg.TopEntries)
	if err != nil {
		return respondError(c, NewInternalError("failed to compute cache statistics").WithDetails("error", err.Error()))
	}

	health, err := h.analyzer.Analyze(ctx)
	if err != nil {
		return respondError(c, NewInternalError("failed to analyze cache health").WithDetails("error", err.Error()))
	}

	totalHits := int64(snapshot.AverageHits * float64(snapshot.TotalEntries))
	response := MetricsResponse{
		Metrics: snapshot,
		Stats:   stats,
		Efficiency: EfficiencySummary{
			HitRate:             stats.HitRate,
			ActiveEntries:       snapshot.TotalEntries,
			ExpiredEntries:      snapshot.ExpiredEntries,
			AverageHitsPerEntry: snapshot.AverageHits,
		},
		EstimatedTimeSavedMs: totalHits * h.cfg.HitSaving.Milliseconds(),
		Health:               health,
		Timestamp:            time.Now().UTC(),
	}

	return respond(c, http.StatusOK, response)
}

// MaintenanceRequest selects a maintenance action by name.
type MaintenanceRequest struct {
	Action  string   `json:"action" validate:"required,oneof=health_check cleanup_expired clear_by_tags clear_all"`
	Tags    []string `json:"tags"`
	Confirm string   `json:"confirm"`
}

// MaintenanceResponse reports what a maintenance action did.
type MaintenanceResponse struct {
	Action  string              `json:"action"`
	Removed int64               `json:"removed,omitempty"`
	Health  *maintenance.Report `json:"health,omitempty"`
	Message string              `json:"message,omitempty"`
}

func (h *AdminHandler) maintenance(c echo.Context) error {
	var req MaintenanceRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, NewBadRequestError("invalid request body").WithDetails("error", err.Error()))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, NewBadRequestError("request validation failed").WithDetails("error", err.Error()))
	}

	ctx := c.Request().Context()

	switch req.Action {
	case ActionHealthCheck:
		report, err := h.analyzer.Analyze(ctx)
		if err != nil {
			return respondError(c, NewInternalError("health check failed").WithDetails("error", err.Error()))
		}
		return respond(c, http.StatusOK, MaintenanceResponse{Action: req.Action, Health: &report})

	case ActionCleanupExpired:
		removed, err := h.cleaner.CleanupExpired(ctx)
		if err != nil {
			return respondError(c, NewInternalError("cleanup failed").WithDetails("error", err.Error()))
		}
		return respond(c, http.StatusOK, MaintenanceResponse{Action: req.Action, Removed: removed})

	case ActionClearByTags:
		if len(cache.NormalizeTags(req.Tags)) == 0 {
			return respondError(c, NewBadRequestError("clear_by_tags requires a non-empty tag list"))
		}
		removed, err := h.svc.Invalidate(ctx, req.Tags)
		if err != nil {
			return respondError(c, NewInternalError("tag invalidation failed").WithDetails("error", err.Error()))
		}
		return respond(c, http.StatusOK, MaintenanceResponse{Action: req.Action, Removed: removed})

	case ActionClearAll:
		err := maintenance.EmergencyClear(ctx, h.svc, h.log, req.Confirm, h.cfg.ConfirmToken)
		if errors.Is(err, cache.ErrConfirmationRequired) {
			return respondError(c, NewForbiddenError("emergency clear requires the confirmation token"))
		}
		if err != nil {
			return respondError(c, NewInternalError("emergency clear failed").WithDetails("error", err.Error()))
		}
		return respond(c, http.StatusOK, MaintenanceResponse{Action: req.Action, Message: "cache cleared"})

	default:
		// Unreachable: the validator's oneof rule already rejected it.
		return respondError(c, NewBadRequestError("unknown action "+req.Action))
	}
}

// InvalidateRequest describes a domain mutation whose dependent cache
// entries must be purged.
type InvalidateRequest struct {
	EntityType string `json:"entity_type" validate:"required,oneof=student expert_session product module assessment"`
	EntityID   string `json:"entity_id" validate:"required"`
	ChangeKind string `json:"change_kind" validate:"required,oneof=create update delete"`
}

// InvalidateResponse reports how many entries a cascade purged.
type InvalidateResponse struct {
	Purged int64 `json:"purged"`
}

func (h *AdminHandler) invalidate(c echo.Context) error {
	var req InvalidateRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, NewBadRequestError("invalid request body").WithDetails("error", err.Error()))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, NewBadRequestError("request validation failed").WithDetails("error", err.Error()))
	}

	purged, err := h.hooks.Cascade(c.Request().Context(),
		invalidation.EntityType(req.EntityType), req.EntityID, invalidation.ChangeKind(req.ChangeKind))
	if err != nil {
		return respondError(c, NewInternalError("cascade invalidation failed").WithDetails("error", err.Error()))
	}

	return respond(c, http.StatusOK, InvalidateResponse{Purged: purged})
}
