package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Session error classification for logging and monitoring.
type sessionErrorType int

const (
	sessionErrUnknown sessionErrorType = iota
	sessionErrExpired                  // timestamp expired - normal
	sessionErrTampered                 // MAC invalid - potential attack
	sessionErrCorrupted                // decode/decrypt failed - corruption or key rotation
	sessionErrBackend                  // store/backend failure
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey       = "is_authenticated"
	accountIDKey    = "account_id"
	accountEmailKey = "account_email"
	accountRolesKey = "account_roles"
	sessionTokenKey = "session_token"
)

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager - injectable session management                              |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager encapsulates session store and configuration.
// It provides middleware and utilities for session-based authentication.
// Use NewSessionManager to create an instance.
type SessionManager struct {
	store          *sessions.CookieStore
	logger         *zap.Logger
	name           string
	accountFetcher AccountFetcher
}

// NewSessionManager creates a new SessionManager with the provided configuration.
//
// Parameters:
//   - sessionKey: signing key for cookies (must be ≥32 chars in production)
//   - name: session cookie name (defaults to "visitortrack-session" if empty)
//   - domain: cookie domain (empty means current host)
//   - maxAge: session cookie lifetime (e.g., 24*time.Hour)
//   - secure: if true, cookies are Secure (for HTTPS production)
//   - logger: zap logger for session error logging
//
// Returns an error if sessionKey is empty or too weak for production mode.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, &SessionConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}

	isWeak := len(sessionKey) < 32 || isDefaultKey(sessionKey)

	if secure {
		// In production mode, require a strong key - fail startup if weak
		if isWeak {
			return nil, &SessionConfigError{
				Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
			}
		}
	} else if isWeak {
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(sessionKey)),
			zap.Bool("is_default", isDefaultKey(sessionKey)))
	}

	if name == "" {
		name = "visitortrack-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}

	// SameSite=Lax is the recommended setting for first-party session cookies.
	// It allows cookies on same-site requests and top-level navigations while
	// blocking cross-site POST requests.
	opts.SameSite = http.SameSiteLaxMode

	store.Options = opts

	logger.Info("session manager initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain))

	return &SessionManager{
		store:  store,
		logger: logger,
		name:   name,
	}, nil
}

// SessionConfigError is returned when session configuration is invalid.
type SessionConfigError struct {
	Message string
}

func (e *SessionConfigError) Error() string {
	return e.Message
}

// SessionName returns the configured session cookie name.
func (sm *SessionManager) SessionName() string {
	return sm.name
}

// Store returns the underlying session store.
func (sm *SessionManager) Store() *sessions.CookieStore {
	return sm.store
}

// SetAccountFetcher sets the AccountFetcher used by LoadSessionAccount to
// fetch fresh account data on each request. This must be called after
// database initialization.
func (sm *SessionManager) SetAccountFetcher(af AccountFetcher) {
	sm.accountFetcher = af
}

/*─────────────────────────────────────────────────────────────────────────────*
| AccountFetcher interface                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// AccountFetcher fetches fresh account data from the database.
// Implementations should return nil if the account is not found or is
// disabled.
type AccountFetcher interface {
	// FetchAccount retrieves an account by ID. Returns nil if the account
	// is not found, disabled, or any other condition that should
	// invalidate the session.
	FetchAccount(ctx context.Context, accountID string) *SessionAccount
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-Account helper                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionAccount represents the authenticated account in the request
// context. This data is fetched fresh from the database on each request so
// role changes and disabled accounts take effect immediately.
type SessionAccount struct {
	ID    string
	Email string
	Roles []string
	Token string // Session token for session management
}

// AccountID returns the account's ID as an ObjectID.
// If the ID is invalid, returns a zero ObjectID.
func (a *SessionAccount) AccountID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

type ctxKey string

const currentAccountKey ctxKey = "currentAccount"

// CurrentAccount returns the account & "found?" flag from the request context.
func CurrentAccount(r *http.Request) (*SessionAccount, bool) {
	a, ok := r.Context().Value(currentAccountKey).(*SessionAccount)
	return a, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSessionAccount returns middleware that injects the account into
// context if logged in. If an AccountFetcher is configured, fresh account
// data is fetched from the database on each request.
func (sm *SessionManager) LoadSessionAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			errType, errCategory := classifySessionError(err)
			switch errType {
			case sessionErrExpired:
				sm.logger.Debug("session expired, starting fresh session",
					zap.String("category", errCategory),
					zap.String("path", r.URL.Path))
			case sessionErrTampered:
				sm.logger.Warn("session MAC validation failed (possible tampering)",
					zap.String("category", errCategory),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("user_agent", r.UserAgent()))
			case sessionErrCorrupted:
				sm.logger.Info("session decode failed, starting fresh session",
					zap.String("category", errCategory),
					zap.String("path", r.URL.Path))
			case sessionErrBackend:
				sm.logger.Error("session store error, starting fresh session",
					zap.Error(err),
					zap.String("path", r.URL.Path))
			default:
				sm.logger.Warn("session error, starting fresh session",
					zap.Error(err),
					zap.String("category", errCategory),
					zap.String("path", r.URL.Path))
			}
		}

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			accountID := getString(sess, accountIDKey)
			sessionToken := getString(sess, sessionTokenKey)

			// If we have an AccountFetcher, get fresh data from DB
			if sm.accountFetcher != nil && accountID != "" {
				a := sm.accountFetcher.FetchAccount(r.Context(), accountID)
				if a != nil {
					a.Token = sessionToken
					r = withAccount(r, a)
				} else {
					// Account not found, disabled, or deleted - clear session
					sm.logger.Info("session invalidated: account not found or disabled",
						zap.String("account_id", accountID),
						zap.String("path", r.URL.Path))
					sess.Values[isAuthKey] = false
					delete(sess.Values, accountIDKey)
					_ = sess.Save(r, w) // Best effort to clear
				}
			} else if accountID != "" {
				// Fallback: no AccountFetcher configured, use session data
				a := &SessionAccount{
					ID:    accountID,
					Email: getString(sess, accountEmailKey),
					Roles: getRoles(sess),
					Token: sessionToken,
				}
				r = withAccount(r, a)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn returns middleware that ensures there is an account in
// context. All consumers of this service are API clients, so failures are
// a plain 401 with no redirect.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentAccount(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func withAccount(r *http.Request, a *SessionAccount) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentAccountKey, a))
}

// WithTestAccount injects a SessionAccount into the request context for testing.
func WithTestAccount(r *http.Request, a *SessionAccount) *http.Request {
	return withAccount(r, a)
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

// getRoles extracts the roles list from a session value. Roles round-trip
// through the cookie as a comma-joined string so the session codec never
// sees a slice type it has to register.
func getRoles(s *sessions.Session) []string {
	joined := getString(s, accountRolesKey)
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}

// isDefaultKey checks if the session key appears to be a default/placeholder value.
func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	patterns := []string{
		"dev-only",
		"change-me",
		"placeholder",
		"default",
		"example",
		"insecure",
		"test-key",
		"secret123",
		"password",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// classifySessionError categorizes a session/cookie error for appropriate logging.
func classifySessionError(err error) (sessionErrorType, string) {
	if err == nil {
		return sessionErrUnknown, "none"
	}

	errStr := strings.ToLower(err.Error())

	if scErr, ok := err.(securecookie.Error); ok {
		if !scErr.IsDecode() {
			return sessionErrBackend, "backend"
		}

		switch {
		case strings.Contains(errStr, "expired timestamp"):
			return sessionErrExpired, "expired"
		case strings.Contains(errStr, "mac") || strings.Contains(errStr, "hash"):
			return sessionErrTampered, "mac_invalid"
		case strings.Contains(errStr, "decrypt"):
			return sessionErrCorrupted, "decrypt_failed"
		case strings.Contains(errStr, "base64") || strings.Contains(errStr, "decode"):
			return sessionErrCorrupted, "decode_failed"
		default:
			return sessionErrCorrupted, "decode_other"
		}
	}

	return sessionErrBackend, "unknown"
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session Management                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// CreateSession establishes a session for the account.
// If token is empty, a new token will be generated.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, accountID primitive.ObjectID, email string, roles []string, token string) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		// Create new session if can't get existing
		sess, _ = sm.store.New(r, sm.name)
	}

	if token == "" {
		token, err = GenerateSessionToken()
		if err != nil {
			return err
		}
	}

	sess.Values[isAuthKey] = true
	sess.Values[accountIDKey] = accountID.Hex()
	sess.Values[accountEmailKey] = email
	sess.Values[accountRolesKey] = strings.Join(roles, ",")
	sess.Values[sessionTokenKey] = token

	return sess.Save(r, w)
}

// GetSessionToken returns the session token from the current request.
func (sm *SessionManager) GetSessionToken(r *http.Request) string {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return ""
	}
	return getString(sess, sessionTokenKey)
}

// GenerateSessionToken generates a random URL-safe token for session tracking.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// DestroySession terminates the account's session.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return
	}

	sess.Values[isAuthKey] = false
	delete(sess.Values, accountIDKey)
	delete(sess.Values, accountEmailKey)
	delete(sess.Values, accountRolesKey)
	delete(sess.Values, sessionTokenKey)

	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
}
