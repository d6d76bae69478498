// Package router maps inbound message text to canned responses and the
// single ledger mutation of the quote flow.
//
// Dispatch discipline: the maintenance switch short-circuits everything;
// the greeting and the numbered intents "1"/"2"/"3" form one first-match
// chain; the keyword intents (delivery time, service area, payment) are
// evaluated independently after the chain and each may fire on its own.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/borealmoveis/atendebot/ledger"
	"github.com/borealmoveis/atendebot/session"
)

const (
	defaultDirectSuffix = "@c.us"
	defaultTypingDelay  = 2 * time.Second
	defaultPartDelay    = 1500 * time.Millisecond
)

var defaultGreetingPattern = regexp.MustCompile(`menu|oi|olá|ola|dia|tarde|noite`)

type Config struct {
	// Maintenance answers every message with the maintenance notice and
	// performs no ledger mutation.
	Maintenance bool

	// DirectSuffix marks the direct-message address class; greetings from
	// any other address class (groups) are ignored.
	DirectSuffix string

	GreetingPattern *regexp.Regexp
	TypingDelay     time.Duration
	PartDelay       time.Duration
	Replies         Replies
}

type Options struct {
	Config Config
	Store  ledger.Store
	Logger *slog.Logger

	// Now and Sleep exist for tests; both default to the real clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

type Router struct {
	cfg    Config
	store  ledger.Store
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration)
}

func New(opts Options) (*Router, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("router: ledger store is required")
	}
	cfg := opts.Config
	if strings.TrimSpace(cfg.DirectSuffix) == "" {
		cfg.DirectSuffix = defaultDirectSuffix
	}
	if cfg.GreetingPattern == nil {
		cfg.GreetingPattern = defaultGreetingPattern
	}
	if cfg.TypingDelay <= 0 {
		cfg.TypingDelay = defaultTypingDelay
	}
	if cfg.PartDelay <= 0 {
		cfg.PartDelay = defaultPartDelay
	}
	if cfg.Replies.MenuTemplate == "" {
		cfg.Replies = DefaultReplies()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	return &Router{
		cfg:    cfg,
		store:  opts.Store,
		logger: logger,
		now:    now,
		sleep:  sleep,
	}, nil
}

// Handle processes one inbound message. Transport errors are logged per
// send and never propagate; the correspondent sees canned text or silence.
func (r *Router) Handle(ctx context.Context, sender session.Sender, msg session.InboundMessage) {
	if sender == nil {
		r.logger.Warn("router_no_session", "from", msg.From)
		return
	}
	body := strings.ToLower(strings.TrimSpace(msg.Body))
	if body == "" {
		return
	}

	if r.cfg.Maintenance {
		r.send(ctx, sender, msg.From, r.cfg.Replies.Maintenance)
		return
	}

	switch {
	case r.isGreeting(body, msg.From):
		r.handleGreeting(ctx, sender, msg)
	case body == "1":
		r.simulateTyping(ctx, sender, msg.From)
		r.sendParts(ctx, sender, msg.From, r.cfg.Replies.About)
	case body == "2":
		r.simulateTyping(ctx, sender, msg.From)
		r.sendParts(ctx, sender, msg.From, r.cfg.Replies.Quote)
		r.recordEngagement(ctx, msg.From)
	case body == "3":
		r.simulateTyping(ctx, sender, msg.From)
		r.sendParts(ctx, sender, msg.From, r.cfg.Replies.Team)
	}

	// Keyword answers fire independently of the chain above.
	if strings.Contains(body, "prazo") {
		r.send(ctx, sender, msg.From, r.cfg.Replies.DeliveryTime)
	}
	if strings.Contains(body, "cidade") || strings.Contains(body, "local") || strings.Contains(body, "atendem") {
		r.send(ctx, sender, msg.From, r.cfg.Replies.ServiceArea)
	}
	if strings.Contains(body, "pagamento") {
		r.send(ctx, sender, msg.From, r.cfg.Replies.Payment)
	}
}

func (r *Router) isGreeting(body string, from string) bool {
	return r.cfg.GreetingPattern.MatchString(body) && strings.HasSuffix(from, r.cfg.DirectSuffix)
}

func (r *Router) handleGreeting(ctx context.Context, sender session.Sender, msg session.InboundMessage) {
	name := r.cfg.Replies.FallbackName
	if msg.ResolveProfile != nil {
		profile, err := msg.ResolveProfile(ctx)
		if err != nil {
			r.logger.Warn("profile_resolve_failed", "from", msg.From, "error", err.Error())
		} else if display := strings.TrimSpace(profile.DisplayName); display != "" {
			name = strings.Fields(display)[0]
		}
	}
	r.simulateTyping(ctx, sender, msg.From)
	r.send(ctx, sender, msg.From, fmt.Sprintf(r.cfg.Replies.MenuTemplate, name))
}

// recordEngagement upserts the correspondent. Repeats are harmless: the
// store keeps the first engagement and never resets delivery state. A store
// failure degrades to a no-op and the next "2" rebuilds the record.
func (r *Router) recordEngagement(ctx context.Context, from string) {
	record := ledger.Record{ID: from, EngagedAt: r.now().UTC()}
	if _, err := r.store.Upsert(ctx, record); err != nil {
		r.logger.Error("ledger_upsert_failed", "id", from, "error", err.Error())
	}
}

func (r *Router) sendParts(ctx context.Context, sender session.Sender, to string, parts []string) {
	for i, part := range parts {
		if i > 0 {
			r.sleep(ctx, r.cfg.PartDelay)
		}
		r.send(ctx, sender, to, part)
	}
}

func (r *Router) send(ctx context.Context, sender session.Sender, to string, text string) {
	if err := sender.SendText(ctx, to, text); err != nil {
		r.logger.Error("send_failed", "to", to, "error", err.Error())
	}
}

// simulateTyping signals composing, holds briefly, then clears the signal.
// All of it is best effort; failures are logged and swallowed.
func (r *Router) simulateTyping(ctx context.Context, sender session.Sender, to string) {
	if err := sender.SendTyping(ctx, to, true); err != nil {
		r.logger.Warn("typing_failed", "to", to, "error", err.Error())
	}
	r.sleep(ctx, r.cfg.TypingDelay)
	if err := sender.SendTyping(ctx, to, false); err != nil {
		r.logger.Warn("typing_clear_failed", "to", to, "error", err.Error())
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
