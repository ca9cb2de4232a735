// internal/app/features/logs/logs.go
package logs

import (
	"context"
	"net/http"
	"strconv"

	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	eventstore "github.com/tangra/visitortrack/internal/app/store/events"
	"github.com/tangra/visitortrack/internal/app/system/jsonutil"
	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultPageSize is the number of events per page in log listings.
const DefaultPageSize = 50

// Handler provides the visit log API endpoints.
type Handler struct {
	events *eventstore.Store
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new logs Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		events: eventstore.New(db),
		errLog: errLog,
		logger: logger,
	}
}

// eventRow is the JSON shape of a listed event. The stored binary IP is
// rendered as text here rather than exposing raw bytes.
type eventRow struct {
	ID        string `json:"id"`
	Timestamp string `json:"ts"`
	Email     string `json:"email,omitempty"`
	IP        string `json:"ip,omitempty"`
	URL       string `json:"url"`
	UserAgent string `json:"ua,omitempty"`
	Kind      string `json:"event"`
}

func toRow(ev models.Event) eventRow {
	row := eventRow{
		ID:        ev.ID.Hex(),
		Timestamp: ev.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		IP:        ev.IPString(),
		URL:       ev.URL,
		UserAgent: ev.UserAgent,
		Kind:      string(ev.Kind),
	}
	if ev.Email != nil {
		row.Email = *ev.Email
	}
	return row
}

type listResponse struct {
	Events   []eventRow `json:"events"`
	Total    int64      `json:"total"`
	Page     int64      `json:"page"`
	PageSize int64      `json:"page_size"`
}

// List handles GET /api/logs requests. Events are returned newest first,
// paged by the "page" query parameter (1-based).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := int64(1)
	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			jsonutil.BadRequest(w, "invalid page parameter")
			return
		}
		page = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, total, err := h.events.ListPage(ctx, page, DefaultPageSize)
	if err != nil {
		h.errLog.Log(r, "list visit events failed", err)
		jsonutil.InternalError(w, "failed to list events")
		return
	}

	rows := make([]eventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, toRow(ev))
	}

	jsonutil.OK(w, listResponse{
		Events:   rows,
		Total:    total,
		Page:     page,
		PageSize: DefaultPageSize,
	})
}

// Clear handles POST /api/logs/clear requests and deletes every stored event.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	removed, err := h.events.Clear(ctx)
	if err != nil {
		h.errLog.Log(r, "clear visit events failed", err)
		jsonutil.InternalError(w, "failed to clear events")
		return
	}

	h.logger.Info("visit log cleared", zap.Int64("removed", removed))
	jsonutil.OK(w, map[string]int64{"removed": removed})
}
