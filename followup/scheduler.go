// Package followup runs the low-frequency sweep that delivers the one-time
// delayed message to engaged correspondents.
//
// Delivery is at-least-once across crashes: a record is marked sent strictly
// after the send succeeds, so a crash in between re-sends on the next sweep
// instead of silently dropping. That ordering is deliberate; do not invert
// it or wrap it in a two-phase commit.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/borealmoveis/atendebot/ledger"
)

const (
	defaultInterval = time.Hour
)

// SenderProvider returns the current outbound surface, or nil while the
// session is being rebuilt. The scheduler borrows it per sweep and never
// touches lifecycle state.
type SenderProvider func() Sender

type Sender interface {
	SendText(ctx context.Context, to string, text string) error
}

type Options struct {
	Store         ledger.Store
	Sender        SenderProvider
	Text          string
	ThresholdDays int
	Interval      time.Duration
	Logger        *slog.Logger

	// Now exists for tests; defaults to the real clock.
	Now func() time.Time
}

type Scheduler struct {
	store         ledger.Store
	sender        SenderProvider
	text          string
	thresholdDays int
	interval      time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("followup: ledger store is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("followup: sender provider is required")
	}
	if opts.Text == "" {
		return nil, fmt.Errorf("followup: message text is required")
	}
	if opts.ThresholdDays <= 0 {
		opts.ThresholdDays = ledger.DefaultThresholdDays
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		store:         opts.Store,
		sender:        opts.Sender,
		text:          opts.Text,
		thresholdDays: opts.ThresholdDays,
		interval:      opts.Interval,
		logger:        opts.Logger,
		now:           opts.Now,
	}, nil
}

// Run sweeps on a fixed period until ctx is canceled. There is no retry or
// backoff beyond the period itself: a failed send stays due and the next
// tick picks it up again.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass: find due records, send to each, and mark only
// the confirmed sends. A store read failure yields an empty sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	sweepID := uuid.NewString()
	now := s.now().UTC()

	due, err := s.store.FindDue(ctx, now, s.thresholdDays)
	if err != nil {
		s.logger.Error("followup_find_due_failed", "sweep_id", sweepID, "error", err.Error())
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Info("followup_sweep_started", "sweep_id", sweepID, "due", len(due))

	sender := s.sender()
	if sender == nil {
		s.logger.Warn("followup_no_session", "sweep_id", sweepID)
		return
	}

	sent := 0
	for _, record := range due {
		if ctx.Err() != nil {
			return
		}
		if err := sender.SendText(ctx, record.ID, s.text); err != nil {
			// Left due; retried by the next tick.
			s.logger.Error("followup_send_failed", "sweep_id", sweepID, "id", record.ID, "error", err.Error())
			continue
		}
		if err := s.store.MarkSent(ctx, record.ID); err != nil {
			s.logger.Error("followup_mark_failed", "sweep_id", sweepID, "id", record.ID, "error", err.Error())
			continue
		}
		sent++
	}
	s.logger.Info("followup_sweep_done", "sweep_id", sweepID, "sent", sent, "due", len(due))
}
