package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	eventstore "github.com/tangra/visitortrack/internal/app/store/events"
	"github.com/tangra/visitortrack/internal/domain/models"
	"github.com/tangra/visitortrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *eventstore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	h := NewHandler(db, errorsfeature.NewErrorLogger(logger), logger)
	return h, eventstore.New(db)
}

func seedEvent(t *testing.T, store *eventstore.Store, ts time.Time, kind models.EventKind, email, url string) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev := models.Event{
		Timestamp: ts,
		Kind:      kind,
		URL:       url,
	}
	if email != "" {
		ev.Email = &email
		id := primitive.NewObjectID()
		ev.AccountID = &id
	}
	if err := store.Insert(ctx, ev); err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func getStats(t *testing.T, h *Handler, query string) (*httptest.ResponseRecorder, *eventstore.Summary) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/stats"+query, nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		return rec, nil
	}
	var summary eventstore.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, &summary
}

func TestStats(t *testing.T) {
	h, store := newTestHandler(t)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedEvent(t, store, base, models.EventView, "amy@example.com", "/home")
	seedEvent(t, store, base.Add(time.Hour), models.EventLogin, "amy@example.com", "/login")
	seedEvent(t, store, base.AddDate(0, 0, 1), models.EventView, "", "/home")
	seedEvent(t, store, base.AddDate(0, 0, 2), models.EventView, "bob@example.com", "/docs")

	rec, summary := getStats(t, h, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}

	if summary.KPIs.Total != 4 {
		t.Errorf("total = %d, want 4", summary.KPIs.Total)
	}
	if summary.KPIs.Views != 3 {
		t.Errorf("views = %d, want 3", summary.KPIs.Views)
	}
	if summary.KPIs.Logins != 1 {
		t.Errorf("logins = %d, want 1", summary.KPIs.Logins)
	}
	if summary.KPIs.UniqueEmails != 2 {
		t.Errorf("unique emails = %d, want 2", summary.KPIs.UniqueEmails)
	}
	if len(summary.Daily) != 3 {
		t.Errorf("daily buckets = %d, want 3", len(summary.Daily))
	}
	if len(summary.TopPages) == 0 || summary.TopPages[0].URL != "/home" {
		t.Errorf("top page = %+v, want /home first", summary.TopPages)
	}
}

func TestStats_Filters(t *testing.T) {
	h, store := newTestHandler(t)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedEvent(t, store, base, models.EventView, "amy@example.com", "/home")
	seedEvent(t, store, base.Add(time.Hour), models.EventLogin, "amy@example.com", "/login")
	seedEvent(t, store, base.AddDate(0, 0, 1), models.EventView, "", "/home")

	tests := []struct {
		name      string
		query     string
		wantTotal int64
	}{
		{"event filter logins", "?event=login", 1},
		{"event filter views", "?event=view", 2},
		{"guests excluded", "?guests=false", 2},
		{"date range single day", "?from=2026-03-10&to=2026-03-10", 2},
		{"date range covers all", "?from=2026-03-01&to=2026-04-01", 3},
		{"date range empty", "?from=2027-01-01", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, summary := getStats(t, h, tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if summary.KPIs.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", summary.KPIs.Total, tt.wantTotal)
			}
		})
	}
}

func TestStats_BadParams(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name  string
		query string
	}{
		{"bad from date", "?from=March-1"},
		{"bad to date", "?to=2026-13-99"},
		{"unknown event kind", "?event=purchase"},
		{"bad guests flag", "?guests=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := getStats(t, h, tt.query)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestStats_EmptyStore(t *testing.T) {
	h, _ := newTestHandler(t)

	rec, summary := getStats(t, h, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if summary.KPIs.Total != 0 {
		t.Errorf("total = %d, want 0", summary.KPIs.Total)
	}
}
