package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	store := NewFileStore(path)
	if err := store.Ensure(ctx); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	engagedAt := time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)
	if _, err := store.Upsert(ctx, Record{ID: "5511988880000@c.us", EngagedAt: engagedAt}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	reopened := NewFileStore(path)
	got, ok, err := reopened.Get(ctx, "5511988880000@c.us")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatalf("record missing after reopen")
	}
	if !got.EngagedAt.Equal(engagedAt) || got.FollowUpSent {
		t.Fatalf("record mismatch after reopen: %+v", got)
	}
}

func TestFileStoreRejectsUnknownVersion(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "records": []}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store := NewFileStore(path)
	if _, err := store.List(ctx); err == nil {
		t.Fatalf("List() expected version error")
	}
}

func TestFileStoreEmptyFileIsEmptyLedger(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "ledger.json"))

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty ledger, got %+v", records)
	}
	due, err := store.FindDue(ctx, time.Now().UTC(), DefaultThresholdDays)
	if err != nil {
		t.Fatalf("FindDue() error = %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected no due records, got %+v", due)
	}
}
