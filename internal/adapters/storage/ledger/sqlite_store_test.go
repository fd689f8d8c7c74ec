package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/ledger"
)

// newTestStore opens an in-memory database seeded with one member holding
// two active subscriptions. sub-early expires before sub-late; each carries
// one pool. pg-cardio covers cardio only, pg-multi covers cardio and
// strength.
func newTestStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	fixtures := []struct {
		query string
		args  []any
	}{
		{"INSERT INTO member (id, email, name, status) VALUES (?, ?, ?, ?)",
			[]any{"mem-1", "mia@example.com", "Mia Pereira", "active"}},
		{"INSERT INTO plan (id, name) VALUES (?, ?)",
			[]any{"plan-1", "Mixed 20"}},
		{"INSERT INTO plan_group (id, plan_id, name, sessions, categories) VALUES (?, ?, ?, ?, ?)",
			[]any{"pg-cardio", "plan-1", "Cardio sessions", 10, "cardio"}},
		{"INSERT INTO plan_group (id, plan_id, name, sessions, categories) VALUES (?, ?, ?, ?, ?)",
			[]any{"pg-multi", "plan-1", "Mixed sessions", 10, "cardio,strength"}},
		{"INSERT INTO subscription (id, member_id, plan_id, start_date, end_date, status) VALUES (?, ?, ?, ?, ?, ?)",
			[]any{"sub-early", "mem-1", "plan-1", "2026-01-01", "2026-06-30", "active"}},
		{"INSERT INTO subscription (id, member_id, plan_id, start_date, end_date, status) VALUES (?, ?, ?, ?, ?, ?)",
			[]any{"sub-late", "mem-1", "plan-1", "2026-01-01", "2026-12-31", "active"}},
		{"INSERT INTO group_session (id, subscription_id, group_id, remaining, total) VALUES (?, ?, ?, ?, ?)",
			[]any{"gs-early", "sub-early", "pg-cardio", 5, 10}},
		{"INSERT INTO group_session (id, subscription_id, group_id, remaining, total) VALUES (?, ?, ?, ?, ?)",
			[]any{"gs-late", "sub-late", "pg-multi", 5, 10}},
	}
	for _, f := range fixtures {
		if _, err := db.Exec(f.query, f.args...); err != nil {
			t.Fatalf("fixture insert failed: %v", err)
		}
	}
	return NewSQLiteStore(db), db
}

func adjustEntry(id string, delta int) domain.Entry {
	return domain.Entry{
		ID:             id,
		GroupSessionID: "gs-early",
		Delta:          delta,
		Reason:         domain.ReasonManualAdjust,
		Actor:          "acct-staff",
		CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestAdjustWithEntry_AppliesDelta(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	session, err := store.GetGroupSession(ctx, "gs-early")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}
	if err := store.AdjustWithEntry(ctx, session, adjustEntry("le-1", 3)); err != nil {
		t.Fatalf("AdjustWithEntry failed: %v", err)
	}

	got, err := store.GetGroupSession(ctx, "gs-early")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}
	if got.Remaining != 8 {
		t.Errorf("remaining = %d, want 8", got.Remaining)
	}

	entries, err := store.ListEntries(ctx, "gs-early")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Delta != 3 || entries[0].Reason != domain.ReasonManualAdjust {
		t.Errorf("entries = %+v, want one manual_adjust of +3", entries)
	}
}

func TestAdjustWithEntry_RejectsUnderflow(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	session, err := store.GetGroupSession(ctx, "gs-early")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}
	err = store.AdjustWithEntry(ctx, session, adjustEntry("le-1", -6))
	if !errors.Is(err, domain.ErrInsufficientSessions) {
		t.Fatalf("got %v, want ErrInsufficientSessions", err)
	}

	// The rejected adjustment must leave no ledger trace.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM ledger_entry").Scan(&count); err != nil {
		t.Fatalf("failed to count ledger entries: %v", err)
	}
	if count != 0 {
		t.Errorf("ledger entries = %d, want 0", count)
	}
}

func TestAdjustWithEntry_RejectsOverflow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	session, err := store.GetGroupSession(ctx, "gs-early")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}
	err = store.AdjustWithEntry(ctx, session, adjustEntry("le-1", 6))
	if !errors.Is(err, domain.ErrOverRefund) {
		t.Fatalf("got %v, want ErrOverRefund", err)
	}

	got, err := store.GetGroupSession(ctx, "gs-early")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}
	if got.Remaining != 5 {
		t.Errorf("remaining = %d, want 5", got.Remaining)
	}
}

func TestAdjustWithEntry_StaleReadStillBounded(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	session, err := store.GetGroupSession(ctx, "gs-early")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}
	// Another writer drains the pool between the read and the adjust.
	if _, err := db.Exec("UPDATE group_session SET remaining = 0 WHERE id = 'gs-early'"); err != nil {
		t.Fatalf("failed to drain pool: %v", err)
	}

	err = store.AdjustWithEntry(ctx, session, adjustEntry("le-1", -1))
	if !errors.Is(err, domain.ErrInsufficientSessions) {
		t.Fatalf("got %v, want ErrInsufficientSessions on stale read", err)
	}
}

func TestListEligible_FiltersByCategory(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Only pg-multi covers strength.
	pools, err := store.ListEligible(ctx, "mem-1", "strength", "2026-03-02")
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(pools) != 1 || pools[0].ID != "gs-late" {
		t.Fatalf("pools = %+v, want only gs-late", pools)
	}

	// "card" must not match "cardio" on a substring basis.
	pools, err = store.ListEligible(ctx, "mem-1", "card", "2026-03-02")
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(pools) != 0 {
		t.Errorf("pools = %+v, want none for partial category", pools)
	}
}

func TestListEligible_SoonestExpiringFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	pools, err := store.ListEligible(ctx, "mem-1", "cardio", "2026-03-02")
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("got %d pools, want 2", len(pools))
	}
	if pools[0].ID != "gs-early" || pools[1].ID != "gs-late" {
		t.Errorf("order = [%s, %s], want [gs-early, gs-late]", pools[0].ID, pools[1].ID)
	}
}

func TestListEligible_RespectsCoverageWindow(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	// After sub-early expires only the longer subscription's pool remains.
	pools, err := store.ListEligible(ctx, "mem-1", "cardio", "2026-07-15")
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(pools) != 1 || pools[0].ID != "gs-late" {
		t.Fatalf("pools = %+v, want only gs-late past sub-early's end date", pools)
	}

	// Drained pools are never eligible.
	if _, err := db.Exec("UPDATE group_session SET remaining = 0 WHERE id = 'gs-late'"); err != nil {
		t.Fatalf("failed to drain pool: %v", err)
	}
	pools, err = store.ListEligible(ctx, "mem-1", "cardio", "2026-07-15")
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(pools) != 0 {
		t.Errorf("pools = %+v, want none once drained", pools)
	}
}

func TestListEligible_SkipsInactiveSubscription(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	if _, err := db.Exec("UPDATE subscription SET status = 'expired' WHERE id = 'sub-early'"); err != nil {
		t.Fatalf("failed to expire subscription: %v", err)
	}

	pools, err := store.ListEligible(ctx, "mem-1", "cardio", "2026-03-02")
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	if len(pools) != 1 || pools[0].ID != "gs-late" {
		t.Errorf("pools = %+v, want only gs-late", pools)
	}
}

func TestListEntries_OldestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	session, err := store.GetGroupSession(ctx, "gs-early")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}

	first := adjustEntry("le-1", -2)
	first.CreatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := store.AdjustWithEntry(ctx, session, first); err != nil {
		t.Fatalf("first adjust failed: %v", err)
	}
	second := adjustEntry("le-2", 1)
	second.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.AdjustWithEntry(ctx, session, second); err != nil {
		t.Fatalf("second adjust failed: %v", err)
	}

	entries, err := store.ListEntries(ctx, "gs-early")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "le-1" || entries[1].ID != "le-2" {
		t.Errorf("order = [%s, %s], want [le-1, le-2]", entries[0].ID, entries[1].ID)
	}
	if entries[0].Delta != -2 || entries[1].Delta != 1 {
		t.Errorf("deltas = [%d, %d], want [-2, 1]", entries[0].Delta, entries[1].Delta)
	}
}

func TestSaveGroupSession_Upserts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entity := domain.GroupSession{
		ID:             "gs-new",
		SubscriptionID: "sub-late",
		GroupID:        "pg-cardio",
		Remaining:      10,
		Total:          10,
	}
	if err := store.SaveGroupSession(ctx, entity); err != nil {
		t.Fatalf("SaveGroupSession failed: %v", err)
	}

	entity.Remaining = 7
	if err := store.SaveGroupSession(ctx, entity); err != nil {
		t.Fatalf("second SaveGroupSession failed: %v", err)
	}

	got, err := store.GetGroupSession(ctx, "gs-new")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}
	if got.Remaining != 7 || got.Total != 10 {
		t.Errorf("got remaining %d total %d, want 7 and 10", got.Remaining, got.Total)
	}

	_, err = store.GetGroupSession(ctx, "gs-missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v, want wrapped sql.ErrNoRows", err)
	}
}
