package settingsapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	"github.com/tangra/visitortrack/internal/domain/models"
	"github.com/tangra/visitortrack/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return NewHandler(db, errorsfeature.NewErrorLogger(logger), logger)
}

func decodeSettings(t *testing.T, rec *httptest.ResponseRecorder) models.TrackerSettings {
	t.Helper()
	var s models.TrackerSettings
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return s
}

func TestGet_Defaults(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	s := decodeSettings(t, rec)
	if !s.TrackGuests || !s.AnonymizeIP {
		t.Errorf("defaults = %+v, want guests and anonymization on", s)
	}
	if s.RetentionDays != models.DefaultRetentionDays {
		t.Errorf("retention = %d, want %d", s.RetentionDays, models.DefaultRetentionDays)
	}
	if len(s.ExcludedRoles) != 1 || s.ExcludedRoles[0] != models.RoleAdmin {
		t.Errorf("excluded roles = %v, want [%s]", s.ExcludedRoles, models.RoleAdmin)
	}
}

func TestUpdate(t *testing.T) {
	h := newTestHandler(t)

	body := `{"track_guests":false,"anonymize_ip":false,"retention_days":90,"excluded_roles":[" Admin ","editor",""]}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	s := decodeSettings(t, rec)
	if s.TrackGuests || s.AnonymizeIP {
		t.Errorf("saved = %+v, want guests and anonymization off", s)
	}
	if s.RetentionDays != 90 {
		t.Errorf("retention = %d, want 90", s.RetentionDays)
	}
	// Roles are trimmed, lowercased, and empties dropped.
	if len(s.ExcludedRoles) != 2 || s.ExcludedRoles[0] != "admin" || s.ExcludedRoles[1] != "editor" {
		t.Errorf("excluded roles = %v, want [admin editor]", s.ExcludedRoles)
	}
	if s.UpdatedAt == nil {
		t.Error("updated_at not set")
	}

	// A subsequent Get sees the saved policy.
	getRec := httptest.NewRecorder()
	h.Get(getRec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	got := decodeSettings(t, getRec)
	if got.RetentionDays != 90 || got.TrackGuests {
		t.Errorf("reloaded = %+v, want saved policy", got)
	}
}

func TestUpdate_BadRequests(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"retention_days":`},
		{"retention zero", `{"retention_days":0}`},
		{"retention negative", `{"retention_days":-7}`},
		{"retention too large", `{"retention_days":99999}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.Update(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
