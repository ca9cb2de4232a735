// internal/app/system/tracking/ingest.go

// Package tracking turns inbound requests into stored visit events.
//
// The pipeline is split in two: Capture reads everything it needs from
// the request synchronously (handlers and middleware must not touch the
// request after it is served), and Ingest applies the suppression policy
// and persists. Only store failures surface as errors; a bad cookie or
// an unparsable address degrades to a partially attributed event, never
// a failed page.
package tracking

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tangra/visitortrack/internal/app/system/auth"
	"github.com/tangra/visitortrack/internal/app/system/identity"
	"github.com/tangra/visitortrack/internal/app/system/network"
	"github.com/tangra/visitortrack/internal/app/system/scrub"
	"github.com/tangra/visitortrack/internal/app/system/token"
	"github.com/tangra/visitortrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventWriter persists events. *eventstore.Store satisfies this; tests
// substitute an in-memory recorder.
type EventWriter interface {
	Insert(ctx context.Context, ev models.Event) error
}

// SettingsLoader supplies the current tracking policy.
// *settingsstore.Store satisfies this.
type SettingsLoader interface {
	Get(ctx context.Context) (*models.TrackerSettings, error)
}

// Ingestor applies the tracking policy and writes events.
type Ingestor struct {
	events   EventWriter
	settings SettingsLoader
	secret   []byte
	logger   *zap.Logger
}

// NewIngestor creates an Ingestor. secret verifies the front-gate
// session cookie; it may be empty when no front gate is deployed, in
// which case cookie identities are ignored.
func NewIngestor(events EventWriter, settings SettingsLoader, secret []byte, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		events:   events,
		settings: settings,
		secret:   secret,
		logger:   logger,
	}
}

// RequestInfo is everything Ingest needs, detached from the request so
// persistence can happen after the response is written.
type RequestInfo struct {
	Account   *models.Account // nil for guests
	Claims    token.Payload   // verified cookie claims, nil if none
	RemoteIP  string
	URL       string
	UserAgent string
	Kind      models.EventKind
}

// Capture snapshots the request. The session account, if any, comes from
// the request context; the front-gate cookie is verified here so the
// claims carried forward are always trustworthy.
func (ing *Ingestor) Capture(r *http.Request, kind models.EventKind) RequestInfo {
	info := RequestInfo{
		RemoteIP:  network.ClientIP(r),
		URL:       scrub.PageURL(requestURL(r)),
		UserAgent: scrub.UserAgent(r.UserAgent(), models.MaxUserAgentLen),
		Kind:      kind,
	}

	if sa, ok := auth.CurrentAccount(r); ok {
		info.Account = &models.Account{
			ID:    sa.AccountID(),
			Email: sa.Email,
			Roles: sa.Roles,
		}
	}

	info.Claims = ing.verifyCookie(r)
	return info
}

// verifyCookie decodes the front-gate session cookie. Failures are
// absorbed; a mismatched signature is the one case worth a warning
// because it can indicate tampering.
func (ing *Ingestor) verifyCookie(r *http.Request) token.Payload {
	if len(ing.secret) == 0 {
		return nil
	}
	cookie, err := r.Cookie(token.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := token.Decode(cookie.Value, ing.secret, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, token.ErrSignatureMismatch):
			ing.logger.Warn("front-gate cookie signature mismatch",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("path", r.URL.Path))
		case errors.Is(err, token.ErrExpired):
			ing.logger.Debug("front-gate cookie expired",
				zap.String("path", r.URL.Path))
		default:
			ing.logger.Debug("front-gate cookie malformed",
				zap.String("path", r.URL.Path))
		}
		return nil
	}
	return claims
}

// Ingest applies the suppression policy to a captured request and
// persists an event when the policy allows one. The bool reports whether
// an event was stored; suppression is a normal outcome, not an error.
func (ing *Ingestor) Ingest(ctx context.Context, info RequestInfo) (bool, error) {
	settings, err := ing.settings.Get(ctx)
	if err != nil {
		return false, err
	}

	// Excluded roles are never logged, for any event kind.
	if info.Account != nil && settings.RoleExcluded(info.Account.Roles) {
		return false, nil
	}

	// Guest suppression. Login events always carry an account, so this
	// rule only ever fires for views.
	if info.Account == nil && !settings.TrackGuests {
		return false, nil
	}

	ev := models.Event{
		Timestamp: time.Now().UTC(),
		URL:       info.URL,
		UserAgent: info.UserAgent,
		Kind:      info.Kind,
		IP:        network.PackIP(info.RemoteIP, settings.AnonymizeIP),
	}
	if info.Account != nil && info.Account.ID != primitive.NilObjectID {
		id := info.Account.ID
		ev.AccountID = &id
	}
	ev.Email = identity.ResolveEmail(info.Claims, info.Account)

	if err := ing.events.Insert(ctx, ev); err != nil {
		return false, err
	}
	return true, nil
}

// requestURL reconstructs the full requested URL. The scheme honors the
// proxy's X-Forwarded-Proto so stored URLs match what the visitor saw.
func requestURL(r *http.Request) string {
	if r.Host == "" {
		return "/"
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fp := r.Header.Get("X-Forwarded-Proto"); fp != "" {
		scheme = fp
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
