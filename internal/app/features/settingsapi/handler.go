// Package settingsapi provides the tracker settings API endpoints.
//
// Endpoints:
//   - GET /api/settings - read the current tracking policy
//   - PUT /api/settings - replace the tracking policy
//
// The policy is a single document in the tracker_settings collection and
// is re-read by the ingest path on every request, so changes made here
// take effect immediately.
package settingsapi

import (
	"context"
	"net/http"

	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	settingsstore "github.com/tangra/visitortrack/internal/app/store/trackersettings"
	"github.com/tangra/visitortrack/internal/app/system/jsonutil"
	"github.com/tangra/visitortrack/internal/app/system/normalize"
	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxRetentionDays bounds the configurable retention window.
const MaxRetentionDays = 3650

// Handler handles tracker settings API requests.
type Handler struct {
	settings *settingsstore.Store
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a new settingsapi Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		settings: settingsstore.New(db),
		errLog:   errLog,
		logger:   logger,
	}
}

// Get handles GET /api/settings requests. Defaults are returned when no
// policy has been saved yet.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	settings, err := h.settings.Get(ctx)
	if err != nil {
		h.errLog.Log(r, "load tracker settings failed", err)
		jsonutil.InternalError(w, "failed to load settings")
		return
	}
	jsonutil.OK(w, settings)
}

type updateRequest struct {
	TrackGuests   bool     `json:"track_guests"`
	AnonymizeIP   bool     `json:"anonymize_ip"`
	RetentionDays int      `json:"retention_days"`
	ExcludedRoles []string `json:"excluded_roles"`
}

// Update handles PUT /api/settings requests. The body replaces the whole
// policy; the saved result is echoed back.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid request body")
		return
	}

	if req.RetentionDays < 1 || req.RetentionDays > MaxRetentionDays {
		jsonutil.BadRequest(w, "retention_days must be between 1 and 3650")
		return
	}

	roles := make([]string, 0, len(req.ExcludedRoles))
	for _, role := range req.ExcludedRoles {
		if role = normalize.Role(role); role != "" {
			roles = append(roles, role)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	settings := models.TrackerSettings{
		TrackGuests:   req.TrackGuests,
		AnonymizeIP:   req.AnonymizeIP,
		RetentionDays: req.RetentionDays,
		ExcludedRoles: roles,
	}
	if err := h.settings.Save(ctx, settings); err != nil {
		h.errLog.Log(r, "save tracker settings failed", err)
		jsonutil.InternalError(w, "failed to save settings")
		return
	}

	saved, err := h.settings.Get(ctx)
	if err != nil {
		h.errLog.Log(r, "reload tracker settings failed", err)
		jsonutil.InternalError(w, "failed to load settings")
		return
	}

	h.logger.Info("tracker settings updated",
		zap.Bool("track_guests", saved.TrackGuests),
		zap.Bool("anonymize_ip", saved.AnonymizeIP),
		zap.Int("retention_days", saved.RetentionDays),
		zap.Strings("excluded_roles", saved.ExcludedRoles),
	)
	jsonutil.OK(w, saved)
}
