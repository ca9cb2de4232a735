package eventstore

import (
	"testing"
	"time"

	"github.com/tangra/visitortrack/internal/domain/models"
	"github.com/tangra/visitortrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strptr(s string) *string { return &s }

// seedEvent inserts one event with the given attributes.
func seedEvent(t *testing.T, store *Store, ts time.Time, kind models.EventKind, email, url string) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev := models.Event{
		Timestamp: ts,
		URL:       url,
		Kind:      kind,
	}
	if email != "" {
		ev.Email = strptr(email)
		oid := primitive.NewObjectID()
		ev.AccountID = &oid
	}
	if err := store.Insert(ctx, ev); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
}

func TestStore_Insert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Insert(ctx, models.Event{
		URL:  "/home",
		Kind: models.EventView,
		IP:   []byte{192, 168, 1, 0},
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	events, total, err := store.ListPage(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListPage() error = %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("ListPage() total = %d, len = %d, want 1, 1", total, len(events))
	}
	ev := events[0]
	if ev.URL != "/home" || ev.Kind != models.EventView {
		t.Errorf("stored event = %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Error("Insert() did not default the timestamp")
	}
	if ev.IPString() != "192.168.1.0" {
		t.Errorf("IPString() = %q, want 192.168.1.0", ev.IPString())
	}
	if ev.Email != nil {
		t.Error("guest event should have no email")
	}
}

func TestStore_ListPage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedEvent(t, store, base.Add(time.Duration(i)*time.Hour), models.EventView, "", "/p")
	}

	events, total, err := store.ListPage(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListPage() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	// Newest first.
	if !events[0].Timestamp.After(events[1].Timestamp) {
		t.Errorf("page not sorted newest first: %v then %v", events[0].Timestamp, events[1].Timestamp)
	}

	// Last page has the remainder.
	events, _, err = store.ListPage(ctx, 3, 2)
	if err != nil {
		t.Fatalf("ListPage() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("last page len = %d, want 1", len(events))
	}
}

func TestStore_DeleteOlderThan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -365)
	seedEvent(t, store, now.AddDate(0, 0, -400), models.EventView, "", "/old")
	seedEvent(t, store, now.AddDate(0, 0, -366), models.EventView, "", "/old")
	seedEvent(t, store, cutoff.Add(-time.Second), models.EventView, "", "/just-past")
	seedEvent(t, store, cutoff, models.EventView, "", "/boundary")
	seedEvent(t, store, now.AddDate(0, 0, -10), models.EventView, "", "/recent")

	deleted, err := store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	remaining, total, err := store.ListPage(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListPage() error = %v", err)
	}
	if total != 2 {
		t.Errorf("remaining = %d, want 2", total)
	}
	// The event at exactly the cutoff survives; only strictly older go.
	urls := make(map[string]bool, len(remaining))
	for _, ev := range remaining {
		urls[ev.URL] = true
	}
	if !urls["/boundary"] {
		t.Error("event at exactly the cutoff was deleted")
	}
	if urls["/just-past"] {
		t.Error("event one second past the cutoff was retained")
	}

	// Idempotent: a second sweep with the same cutoff removes nothing.
	deleted, err = store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeleteOlderThan() second run error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("second run deleted = %d, want 0", deleted)
	}
}

func TestStore_Clear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 3; i++ {
		seedEvent(t, store, time.Now().UTC(), models.EventView, "", "/p")
	}

	deleted, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	_, total, err := store.ListPage(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListPage() error = %v", err)
	}
	if total != 0 {
		t.Errorf("remaining = %d, want 0", total)
	}
}

func TestStore_FindByEmailPage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedEvent(t, store, base.Add(time.Duration(i)*time.Minute), models.EventView, "subject@example.com", "/p")
	}
	seedEvent(t, store, base, models.EventView, "other@example.com", "/p")

	events, err := store.FindByEmailPage(ctx, "subject@example.com", 1, 3)
	if err != nil {
		t.Fatalf("FindByEmailPage() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("page 1 len = %d, want 3", len(events))
	}
	// Oldest first so paging stays stable while new events arrive.
	if !events[0].Timestamp.Before(events[1].Timestamp) {
		t.Error("page not sorted oldest first")
	}

	events, err = store.FindByEmailPage(ctx, "subject@example.com", 2, 3)
	if err != nil {
		t.Fatalf("FindByEmailPage() page 2 error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("page 2 len = %d, want 1", len(events))
	}
}

func TestStore_DeleteByEmailBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 5; i++ {
		seedEvent(t, store, time.Now().UTC(), models.EventView, "erase-me@example.com", "/p")
	}
	seedEvent(t, store, time.Now().UTC(), models.EventView, "keep@example.com", "/p")

	removed, done, err := store.DeleteByEmailBatch(ctx, "erase-me@example.com", 3)
	if err != nil {
		t.Fatalf("DeleteByEmailBatch() error = %v", err)
	}
	if removed != 3 || done {
		t.Errorf("first batch removed = %d done = %v, want 3 false", removed, done)
	}

	removed, done, err = store.DeleteByEmailBatch(ctx, "erase-me@example.com", 3)
	if err != nil {
		t.Fatalf("DeleteByEmailBatch() second batch error = %v", err)
	}
	if removed != 2 || !done {
		t.Errorf("second batch removed = %d done = %v, want 2 true", removed, done)
	}

	// Other subjects untouched.
	events, err := store.FindByEmailPage(ctx, "keep@example.com", 1, 10)
	if err != nil {
		t.Fatalf("FindByEmailPage() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("unrelated events remaining = %d, want 1", len(events))
	}

	// Nothing left for the erased subject.
	removed, done, err = store.DeleteByEmailBatch(ctx, "erase-me@example.com", 3)
	if err != nil {
		t.Fatalf("DeleteByEmailBatch() empty batch error = %v", err)
	}
	if removed != 0 || !done {
		t.Errorf("empty batch removed = %d done = %v, want 0 true", removed, done)
	}
}

func TestStore_Aggregate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	seedEvent(t, store, day1, models.EventView, "a@example.com", "/home")
	seedEvent(t, store, day1, models.EventView, "", "/home")
	seedEvent(t, store, day2, models.EventLogin, "a@example.com", "/login")
	seedEvent(t, store, day2, models.EventView, "b@example.com", "/about")
	seedEvent(t, store, day3, models.EventView, "", "/home")

	t.Run("unfiltered with guests", func(t *testing.T) {
		got, err := store.Aggregate(ctx, Filter{IncludeGuests: true})
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		want := KPIs{Total: 5, Views: 4, Logins: 1, UniqueEmails: 2}
		if got.KPIs != want {
			t.Errorf("KPIs = %+v, want %+v", got.KPIs, want)
		}
		if len(got.Daily) != 3 {
			t.Fatalf("daily len = %d, want 3", len(got.Daily))
		}
		if got.Daily[0].Day != "2026-03-01" || got.Daily[0].Count != 2 {
			t.Errorf("daily[0] = %+v, want 2026-03-01 x2", got.Daily[0])
		}
		if got.Daily[2].Day != "2026-03-03" || got.Daily[2].Count != 1 {
			t.Errorf("daily[2] = %+v, want 2026-03-03 x1", got.Daily[2])
		}
		if len(got.TopPages) != 3 {
			t.Fatalf("top pages len = %d, want 3", len(got.TopPages))
		}
		if got.TopPages[0].URL != "/home" || got.TopPages[0].Count != 3 {
			t.Errorf("top page = %+v, want /home x3", got.TopPages[0])
		}
	})

	t.Run("guests excluded everywhere", func(t *testing.T) {
		got, err := store.Aggregate(ctx, Filter{IncludeGuests: false})
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		want := KPIs{Total: 3, Views: 2, Logins: 1, UniqueEmails: 2}
		if got.KPIs != want {
			t.Errorf("KPIs = %+v, want %+v", got.KPIs, want)
		}
		// Guest-only day 3 disappears from the series.
		if len(got.Daily) != 2 {
			t.Fatalf("daily len = %d, want 2", len(got.Daily))
		}
		// /home drops to one attributed view.
		for _, p := range got.TopPages {
			if p.URL == "/home" && p.Count != 1 {
				t.Errorf("/home count = %d, want 1", p.Count)
			}
		}
	})

	t.Run("kind filter", func(t *testing.T) {
		got, err := store.Aggregate(ctx, Filter{Kind: models.EventLogin, IncludeGuests: true})
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		want := KPIs{Total: 1, Views: 0, Logins: 1, UniqueEmails: 1}
		if got.KPIs != want {
			t.Errorf("KPIs = %+v, want %+v", got.KPIs, want)
		}
	})

	t.Run("date range inclusive both ends", func(t *testing.T) {
		from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		got, err := store.Aggregate(ctx, Filter{From: &from, To: &to, IncludeGuests: true})
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if got.KPIs.Total != 4 {
			t.Errorf("total = %d, want 4 (day 3 excluded)", got.KPIs.Total)
		}
	})

	t.Run("inverted range is empty not an error", func(t *testing.T) {
		from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		got, err := store.Aggregate(ctx, Filter{From: &from, To: &to, IncludeGuests: true})
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if got.KPIs.Total != 0 || len(got.Daily) != 0 || len(got.TopPages) != 0 {
			t.Errorf("inverted range returned data: %+v", got)
		}
	})
}

func TestStore_Aggregate_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.Aggregate(ctx, Filter{IncludeGuests: true})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got.KPIs.Total != 0 {
		t.Errorf("total = %d, want 0", got.KPIs.Total)
	}
	if len(got.Daily) != 0 || len(got.TopPages) != 0 {
		t.Errorf("empty store returned series data: %+v", got)
	}
}

func TestStore_Aggregate_TopPagesLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		url := "/p/" + string(rune('a'+i))
		seedEvent(t, store, base, models.EventView, "", url)
	}

	got, err := store.Aggregate(ctx, Filter{IncludeGuests: true})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(got.TopPages) != TopPagesLimit {
		t.Errorf("top pages len = %d, want %d", len(got.TopPages), TopPagesLimit)
	}
}
