// internal/app/features/privacy/privacy.go
package privacy

import (
	"context"
	"net/http"

	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	eventstore "github.com/tangra/visitortrack/internal/app/store/events"
	"github.com/tangra/visitortrack/internal/app/system/jsonutil"
	"github.com/tangra/visitortrack/internal/app/system/normalize"
	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ExportPageSize is the number of events returned per export page.
const ExportPageSize = 250

// EraseBatchSize is the number of events removed per erase call.
const EraseBatchSize = 500

// Handler provides the subject-access API endpoints: export and erasure
// of all events attributed to a given email address.
type Handler struct {
	events *eventstore.Store
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new privacy Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		events: eventstore.New(db),
		errLog: errLog,
		logger: logger,
	}
}

type exportRequest struct {
	Email string `json:"email"`
	Page  int64  `json:"page"`
}

type exportResponse struct {
	Events   []models.Event `json:"events"`
	Page     int64          `json:"page"`
	PageSize int64          `json:"page_size"`
	Done     bool           `json:"done"`
}

// Export handles POST /api/privacy/export requests. It returns one page of
// the subject's events, oldest first; callers repeat with increasing page
// numbers until done is true.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid request body")
		return
	}

	email := normalize.Email(req.Email)
	if email == "" {
		jsonutil.BadRequest(w, "email is required")
		return
	}
	page := req.Page
	if page < 1 {
		page = 1
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.events.FindByEmailPage(ctx, email, page, ExportPageSize)
	if err != nil {
		h.errLog.Log(r, "privacy export failed", err)
		jsonutil.InternalError(w, "failed to export events")
		return
	}

	jsonutil.OK(w, exportResponse{
		Events:   events,
		Page:     page,
		PageSize: ExportPageSize,
		Done:     int64(len(events)) < ExportPageSize,
	})
}

type eraseRequest struct {
	Email string `json:"email"`
}

type eraseResponse struct {
	Removed int64 `json:"removed"`
	Done    bool  `json:"done"`
}

// Erase handles POST /api/privacy/erase requests. Each call removes one
// batch of the subject's events; callers repeat until done is true.
func (h *Handler) Erase(w http.ResponseWriter, r *http.Request) {
	var req eraseRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid request body")
		return
	}

	email := normalize.Email(req.Email)
	if email == "" {
		jsonutil.BadRequest(w, "email is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	removed, done, err := h.events.DeleteByEmailBatch(ctx, email, EraseBatchSize)
	if err != nil {
		h.errLog.Log(r, "privacy erase failed", err)
		jsonutil.InternalError(w, "failed to erase events")
		return
	}

	if removed > 0 {
		h.logger.Info("privacy erase batch",
			zap.String("email", email),
			zap.Int64("removed", removed),
			zap.Bool("done", done),
		)
	}
	jsonutil.OK(w, eraseResponse{Removed: removed, Done: done})
}
