package login

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	accountstore "github.com/tangra/visitortrack/internal/app/store/accounts"
	eventstore "github.com/tangra/visitortrack/internal/app/store/events"
	settingsstore "github.com/tangra/visitortrack/internal/app/store/trackersettings"
	"github.com/tangra/visitortrack/internal/app/system/auth"
	"github.com/tangra/visitortrack/internal/app/system/authutil"
	"github.com/tangra/visitortrack/internal/app/system/tracking"
	"github.com/tangra/visitortrack/internal/domain/models"
	"github.com/tangra/visitortrack/internal/testutil"
	"go.uber.org/zap"
)

const testPassword = "correct-horse-battery-staple-9"

type testEnv struct {
	handler  *Handler
	accounts *accountstore.Store
	events   *eventstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager(
		"test-session-key-for-testing-1234567890",
		"test-session",
		"",
		24*time.Hour,
		false,
		logger,
	)
	if err != nil {
		t.Fatalf("create session manager: %v", err)
	}

	events := eventstore.New(db)
	ingestor := tracking.NewIngestor(events, settingsstore.New(db), nil, logger)

	h := NewHandler(db, sessionMgr, ingestor, errorsfeature.NewErrorLogger(logger), logger)
	return &testEnv{
		handler:  h,
		accounts: accountstore.New(db),
		events:   events,
	}
}

func (env *testEnv) createAccount(t *testing.T, email string, roles []string, status string) models.Account {
	t.Helper()
	hash, err := authutil.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	ctx, cancel := testutil.TestContext()
	defer cancel()
	account, err := env.accounts.Create(ctx, models.Account{
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		Status:       status,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func (env *testEnv) listEvents(t *testing.T) ([]models.Event, int64) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	events, total, err := env.events.ListPage(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return events, total
}

func postLogin(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t, "vera@example.com", []string{models.RoleViewer}, models.StatusActive)

	rec := postLogin(t, env.handler, `{"email":"vera@example.com","password":"`+testPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Email != "vera@example.com" {
		t.Errorf("email = %q, want vera@example.com", resp.Email)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != models.RoleViewer {
		t.Errorf("roles = %v, want [viewer]", resp.Roles)
	}

	// Session cookie is set.
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}

	// A login event is recorded for the account.
	events, total := env.listEvents(t)
	if total != 1 {
		t.Fatalf("events = %d, want 1", total)
	}
	if events[0].Kind != models.EventLogin {
		t.Errorf("event kind = %q, want login", events[0].Kind)
	}
	if events[0].Email == nil || *events[0].Email != "vera@example.com" {
		t.Errorf("event email = %v, want vera@example.com", events[0].Email)
	}
	if events[0].AccountID == nil {
		t.Error("event has no account id")
	}
}

func TestLogin_EmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t, "vera@example.com", []string{models.RoleViewer}, models.StatusActive)

	rec := postLogin(t, env.handler, `{"email":" VERA@Example.com ","password":"`+testPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLogin_ExcludedRoleNotRecorded(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t, "root@example.com", []string{models.RoleAdmin}, models.StatusActive)

	rec := postLogin(t, env.handler, `{"email":"root@example.com","password":"`+testPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	// Admin is excluded by the default policy, so no event is stored.
	_, total := env.listEvents(t)
	if total != 0 {
		t.Errorf("events = %d, want 0", total)
	}
}

func TestLogin_Rejections(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t, "vera@example.com", []string{models.RoleViewer}, models.StatusActive)
	env.createAccount(t, "off@example.com", []string{models.RoleViewer}, models.StatusDisabled)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"wrong password", `{"email":"vera@example.com","password":"nope-nope-nope"}`, http.StatusUnauthorized},
		{"unknown account", `{"email":"who@example.com","password":"` + testPassword + `"}`, http.StatusUnauthorized},
		{"disabled account", `{"email":"off@example.com","password":"` + testPassword + `"}`, http.StatusUnauthorized},
		{"missing email", `{"password":"x"}`, http.StatusBadRequest},
		{"missing password", `{"email":"vera@example.com"}`, http.StatusBadRequest},
		{"malformed body", `{"email":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postLogin(t, env.handler, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Code == http.StatusUnauthorized {
				// Rejections never reveal which check failed.
				if !strings.Contains(rec.Body.String(), "invalid credentials") {
					t.Errorf("body = %q, want generic message", rec.Body.String())
				}
			}
		})
	}

	// No events were stored for failed attempts.
	_, total := env.listEvents(t)
	if total != 0 {
		t.Errorf("events = %d, want 0", total)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	env.handler.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
