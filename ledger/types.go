// Package ledger persists which correspondents entered the quote flow and
// whether the delayed follow-up message has been delivered to them.
package ledger

import (
	"errors"
	"strings"
	"time"
)

const DefaultThresholdDays = 5

// ErrNotFound reports that no record exists for the given correspondent id.
var ErrNotFound = errors.New("ledger: record not found")

// Record tracks one engaged correspondent. FollowUpSent starts false and
// only ever transitions to true; it never reverts.
type Record struct {
	ID           string    `json:"id"`
	EngagedAt    time.Time `json:"engaged_at"`
	FollowUpSent bool      `json:"follow_up_sent"`
}

func normalizeRecord(r Record, now time.Time) (Record, error) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return Record{}, errors.New("ledger: record id is required")
	}
	if r.EngagedAt.IsZero() {
		if now.IsZero() {
			now = time.Now()
		}
		r.EngagedAt = now
	}
	r.EngagedAt = r.EngagedAt.UTC()
	return r, nil
}

// elapsedDays computes whole elapsed days with floor semantics; a partial
// day never counts.
func elapsedDays(now time.Time, engagedAt time.Time) int {
	d := now.Sub(engagedAt)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func isDue(r Record, now time.Time, thresholdDays int) bool {
	if r.FollowUpSent {
		return false
	}
	return elapsedDays(now, r.EngagedAt) >= thresholdDays
}
