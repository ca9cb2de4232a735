// internal/app/features/analytics/analytics.go
package analytics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	eventstore "github.com/tangra/visitortrack/internal/app/store/events"
	"github.com/tangra/visitortrack/internal/app/system/jsonutil"
	"github.com/tangra/visitortrack/internal/app/system/normalize"
	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the analytics API endpoints.
type Handler struct {
	events *eventstore.Store
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new analytics Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		events: eventstore.New(db),
		errLog: errLog,
		logger: logger,
	}
}

// Stats handles GET /api/analytics/stats requests.
//
// Query parameters:
//   - from:   start date, YYYY-MM-DD (inclusive, optional)
//   - to:     end date, YYYY-MM-DD (inclusive, optional)
//   - event:  filter by event kind, "view" or "login" (optional)
//   - guests: include guest traffic, true/false (default true)
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	summary, err := h.events.Aggregate(ctx, filter)
	if err != nil {
		h.errLog.Log(r, "analytics aggregation failed", err)
		jsonutil.InternalError(w, "failed to compute analytics")
		return
	}

	// Dashboards poll this endpoint; stale cached numbers confuse admins.
	w.Header().Set("Cache-Control", "no-store")
	jsonutil.OK(w, summary)
}

func parseFilter(r *http.Request) (eventstore.Filter, error) {
	q := r.URL.Query()

	filter := eventstore.Filter{IncludeGuests: true}

	if s := normalize.QueryParam(q.Get("from")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return filter, &paramError{"from", s}
		}
		filter.From = &t
	}
	if s := normalize.QueryParam(q.Get("to")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return filter, &paramError{"to", s}
		}
		filter.To = &t
	}
	if s := normalize.EventKind(q.Get("event")); s != "" {
		kind := models.EventKind(s)
		if kind != models.EventView && kind != models.EventLogin {
			return filter, &paramError{"event", s}
		}
		filter.Kind = kind
	}
	if s := normalize.QueryParam(q.Get("guests")); s != "" {
		include, err := strconv.ParseBool(s)
		if err != nil {
			return filter, &paramError{"guests", s}
		}
		filter.IncludeGuests = include
	}

	return filter, nil
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + e.value
}
