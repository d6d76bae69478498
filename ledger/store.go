package ledger

import (
	"context"
	"time"
)

// Store is the contract both backends honor identically.
//
// Upsert inserts a record when the id is absent; when the id already exists
// it must not overwrite EngagedAt or FollowUpSent, only MarkSent flips the
// delivery flag. FindDue returns records not yet followed up whose
// engagement is at least thresholdDays whole days in the past. MarkSent is
// idempotent and touches only the delivery flag.
type Store interface {
	Ensure(ctx context.Context) error

	Upsert(ctx context.Context, record Record) (Record, error)
	Get(ctx context.Context, id string) (Record, bool, error)
	List(ctx context.Context) ([]Record, error)
	FindDue(ctx context.Context, now time.Time, thresholdDays int) ([]Record, error)
	MarkSent(ctx context.Context, id string) error
}

func ensureNotCanceled(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
