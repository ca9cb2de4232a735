// internal/app/features/login/login.go
package login

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	accountstore "github.com/tangra/visitortrack/internal/app/store/accounts"
	"github.com/tangra/visitortrack/internal/app/system/auth"
	"github.com/tangra/visitortrack/internal/app/system/authutil"
	"github.com/tangra/visitortrack/internal/app/system/jsonutil"
	"github.com/tangra/visitortrack/internal/app/system/normalize"
	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/app/system/tracking"
	"github.com/tangra/visitortrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the login and logout endpoints.
type Handler struct {
	accounts   *accountstore.Store
	sessionMgr *auth.SessionManager
	ingestor   *tracking.Ingestor // nil disables login event recording
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new login Handler. ingestor may be nil, in which
// case successful logins are not recorded as visit events.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	ingestor *tracking.Ingestor,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		accounts:   accountstore.New(db),
		sessionMgr: sessionMgr,
		ingestor:   ingestor,
		errLog:     errLog,
		logger:     logger,
	}
}

// MountRootEndpoints adds the session endpoints directly on the root
// router:
//   - POST /login  - authenticate and create a session
//   - POST /logout - destroy the session
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// Login handles POST /login requests. On success a session cookie is set
// and a login event is recorded for the authenticated account.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(r, &req); err != nil {
		jsonutil.BadRequest(w, "invalid request body")
		return
	}

	email := normalize.Email(req.Email)
	if email == "" || req.Password == "" {
		jsonutil.BadRequest(w, "email and password are required")
		return
	}

	account, err := h.accounts.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, accountstore.ErrNotFound) {
			jsonutil.Unauthorized(w, "invalid credentials")
			return
		}
		h.errLog.Log(r, "account lookup failed", err)
		jsonutil.InternalError(w, "login failed")
		return
	}

	if !account.IsActive() {
		h.logger.Warn("login attempt on inactive account",
			zap.String("email", account.Email),
			zap.String("status", account.Status),
		)
		jsonutil.Unauthorized(w, "invalid credentials")
		return
	}

	if !authutil.CheckPassword(req.Password, account.PasswordHash) {
		h.logger.Warn("login failed: bad password", zap.String("email", account.Email))
		jsonutil.Unauthorized(w, "invalid credentials")
		return
	}

	sessionToken, err := auth.GenerateSessionToken()
	if err != nil {
		h.errLog.Log(r, "session token generation failed", err)
		jsonutil.InternalError(w, "login failed")
		return
	}
	if err := h.sessionMgr.CreateSession(w, r, account.ID, account.Email, account.Roles, sessionToken); err != nil {
		h.errLog.Log(r, "session creation failed", err)
		jsonutil.InternalError(w, "login failed")
		return
	}

	h.recordLogin(r, account)

	h.logger.Info("login succeeded", zap.String("email", account.Email))
	jsonutil.OK(w, loginResponse{
		ID:    account.ID.Hex(),
		Email: account.Email,
		Roles: account.Roles,
	})
}

// recordLogin records a login visit event for the just-authenticated
// account. The session is not in the request context yet, so the account
// is attached explicitly. Recording failures never fail the login.
func (h *Handler) recordLogin(r *http.Request, account *models.Account) {
	if h.ingestor == nil {
		return
	}

	info := h.ingestor.Capture(r, models.EventLogin)
	info.Account = account

	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Short(), h.logger, "store login event")
	defer cancel()
	if _, err := h.ingestor.Ingest(ctx, info); err != nil {
		h.logger.Error("login event store failed",
			zap.Error(err),
			zap.String("email", account.Email),
		)
	}
}

// Logout handles POST /logout requests. Destroying a session that does
// not exist is not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessionMgr.DestroySession(w, r)
	jsonutil.NoContent(w)
}
