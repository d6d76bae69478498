package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func storeBackends(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "ledger.json")),
		"sqlite": sqliteStore,
	}
}

func TestUpsertIsIdempotentPerID(t *testing.T) {
	ctx := context.Background()
	engagedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Ensure(ctx); err != nil {
				t.Fatalf("Ensure() error = %v", err)
			}
			first, err := store.Upsert(ctx, Record{ID: "5511999990001@c.us", EngagedAt: engagedAt})
			if err != nil {
				t.Fatalf("Upsert(first) error = %v", err)
			}
			if err := store.MarkSent(ctx, first.ID); err != nil {
				t.Fatalf("MarkSent() error = %v", err)
			}

			// A later engagement must neither duplicate the record nor
			// reset engaged_at or the delivery flag.
			second, err := store.Upsert(ctx, Record{ID: "5511999990001@c.us", EngagedAt: engagedAt.Add(48 * time.Hour)})
			if err != nil {
				t.Fatalf("Upsert(second) error = %v", err)
			}
			if !second.EngagedAt.Equal(engagedAt) {
				t.Fatalf("engaged_at was overwritten: got %v want %v", second.EngagedAt, engagedAt)
			}
			if !second.FollowUpSent {
				t.Fatalf("follow_up_sent was reset by upsert")
			}

			all, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("record count mismatch: got %d want 1", len(all))
			}
		})
	}
}

func TestMarkSentIsIdempotent(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Ensure(ctx); err != nil {
				t.Fatalf("Ensure() error = %v", err)
			}
			if _, err := store.Upsert(ctx, Record{ID: "5511999990002@c.us"}); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
			if err := store.MarkSent(ctx, "5511999990002@c.us"); err != nil {
				t.Fatalf("MarkSent(first) error = %v", err)
			}
			if err := store.MarkSent(ctx, "5511999990002@c.us"); err != nil {
				t.Fatalf("MarkSent(second) error = %v", err)
			}
			got, ok, err := store.Get(ctx, "5511999990002@c.us")
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v, %v", got, ok, err)
			}
			if !got.FollowUpSent {
				t.Fatalf("follow_up_sent expected true")
			}
		})
	}
}

func TestFindDueWholeDayFloor(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	almost := now.Add(-time.Duration(4.9 * 24 * float64(time.Hour)))
	exact := now.Add(-5 * 24 * time.Hour)

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Ensure(ctx); err != nil {
				t.Fatalf("Ensure() error = %v", err)
			}
			if _, err := store.Upsert(ctx, Record{ID: "almost@c.us", EngagedAt: almost}); err != nil {
				t.Fatalf("Upsert(almost) error = %v", err)
			}
			if _, err := store.Upsert(ctx, Record{ID: "exact@c.us", EngagedAt: exact}); err != nil {
				t.Fatalf("Upsert(exact) error = %v", err)
			}

			due, err := store.FindDue(ctx, now, 5)
			if err != nil {
				t.Fatalf("FindDue() error = %v", err)
			}
			if len(due) != 1 {
				t.Fatalf("due count mismatch: got %d want 1 (%+v)", len(due), due)
			}
			if due[0].ID != "exact@c.us" {
				t.Fatalf("due record mismatch: got %s want exact@c.us", due[0].ID)
			}
		})
	}
}

func TestFindDueExcludesSent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	old := now.Add(-10 * 24 * time.Hour)

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Ensure(ctx); err != nil {
				t.Fatalf("Ensure() error = %v", err)
			}
			if _, err := store.Upsert(ctx, Record{ID: "sent@c.us", EngagedAt: old}); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
			if err := store.MarkSent(ctx, "sent@c.us"); err != nil {
				t.Fatalf("MarkSent() error = %v", err)
			}
			due, err := store.FindDue(ctx, now, 5)
			if err != nil {
				t.Fatalf("FindDue() error = %v", err)
			}
			if len(due) != 0 {
				t.Fatalf("sent record must not be due: got %+v", due)
			}
		})
	}
}

func TestMarkSentMissingRecord(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Ensure(ctx); err != nil {
				t.Fatalf("Ensure() error = %v", err)
			}
			if err := store.MarkSent(ctx, "nobody@c.us"); err == nil {
				t.Fatalf("MarkSent(missing) expected error")
			}
		})
	}
}
