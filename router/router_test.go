package router

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/borealmoveis/atendebot/ledger"
	"github.com/borealmoveis/atendebot/session"
)

type sentMessage struct {
	To   string
	Text string
}

type fakeSender struct {
	sent      []sentMessage
	typing    int
	sendErr   error
	typingErr error
}

func (f *fakeSender) SendText(ctx context.Context, to string, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{To: to, Text: text})
	return nil
}

func (f *fakeSender) SendTyping(ctx context.Context, to string, composing bool) error {
	if f.typingErr != nil {
		return f.typingErr
	}
	f.typing++
	return nil
}

func newTestRouter(t *testing.T, cfg Config) (*Router, ledger.Store) {
	t.Helper()
	store := ledger.NewFileStore(filepath.Join(t.TempDir(), "ledger.json"))
	r, err := New(Options{
		Config: cfg,
		Store:  store,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		Sleep:  func(ctx context.Context, d time.Duration) {},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r, store
}

func TestGreetingFromDirectAddressSendsMenu(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	sender := &fakeSender{}

	r.Handle(context.Background(), sender, session.InboundMessage{
		From: "5511999990001@c.us",
		Body: "Oi",
	})

	if len(sender.sent) != 1 {
		t.Fatalf("send count mismatch: got %d want 1 (%+v)", len(sender.sent), sender.sent)
	}
	if !strings.Contains(sender.sent[0].Text, "1 - Quem somos") {
		t.Fatalf("menu text missing: got %q", sender.sent[0].Text)
	}
	if !strings.Contains(sender.sent[0].Text, "cliente") {
		t.Fatalf("fallback name missing: got %q", sender.sent[0].Text)
	}
}

func TestGreetingFromGroupAddressIsIgnored(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	sender := &fakeSender{}

	r.Handle(context.Background(), sender, session.InboundMessage{
		From: "5511999990001-12345@g.us",
		Body: "Oi",
	})

	if len(sender.sent) != 0 {
		t.Fatalf("group greeting must be silent: got %+v", sender.sent)
	}
}

func TestGreetingUsesResolvedFirstName(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	sender := &fakeSender{}

	r.Handle(context.Background(), sender, session.InboundMessage{
		From: "5511999990001@c.us",
		Body: "bom dia",
		ResolveProfile: func(ctx context.Context) (session.Profile, error) {
			return session.Profile{DisplayName: "Maria Clara"}, nil
		},
	})

	if len(sender.sent) != 1 {
		t.Fatalf("send count mismatch: got %d want 1", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Text, "Olá, Maria!") {
		t.Fatalf("first name missing: got %q", sender.sent[0].Text)
	}
}

func TestGreetingSurvivesProfileFailure(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	sender := &fakeSender{}

	r.Handle(context.Background(), sender, session.InboundMessage{
		From: "5511999990001@c.us",
		Body: "olá",
		ResolveProfile: func(ctx context.Context) (session.Profile, error) {
			return session.Profile{}, errors.New("contact lookup timed out")
		},
	})

	if len(sender.sent) != 1 {
		t.Fatalf("send count mismatch: got %d want 1", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Text, "cliente") {
		t.Fatalf("fallback name expected: got %q", sender.sent[0].Text)
	}
}

func TestQuoteIntentUpsertsOnce(t *testing.T) {
	r, store := newTestRouter(t, Config{})
	sender := &fakeSender{}
	ctx := context.Background()

	r.Handle(ctx, sender, session.InboundMessage{From: "5511999990002@c.us", Body: "2"})
	r.Handle(ctx, sender, session.InboundMessage{From: "5511999990002@c.us", Body: " 2 "})

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("record count mismatch: got %d want 1 (%+v)", len(records), records)
	}
	if records[0].ID != "5511999990002@c.us" {
		t.Fatalf("record id mismatch: got %s", records[0].ID)
	}
	if records[0].FollowUpSent {
		t.Fatalf("follow_up_sent must start false")
	}
	if len(sender.sent) != 4 {
		t.Fatalf("expected both quote replies twice: got %d sends", len(sender.sent))
	}
}

func TestMaintenanceShortCircuits(t *testing.T) {
	r, store := newTestRouter(t, Config{Maintenance: true})
	sender := &fakeSender{}
	ctx := context.Background()

	r.Handle(ctx, sender, session.InboundMessage{From: "5511999990003@c.us", Body: "1"})

	if len(sender.sent) != 1 {
		t.Fatalf("send count mismatch: got %d want 1", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Text, "manutenção") {
		t.Fatalf("maintenance notice expected: got %q", sender.sent[0].Text)
	}
	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("maintenance must not mutate the ledger: got %+v", records)
	}
}

func TestNumberedIntentsSendAllParts(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	sender := &fakeSender{}

	r.Handle(context.Background(), sender, session.InboundMessage{From: "x@c.us", Body: "1"})
	if len(sender.sent) != 2 {
		t.Fatalf("about parts mismatch: got %d want 2", len(sender.sent))
	}

	sender.sent = nil
	r.Handle(context.Background(), sender, session.InboundMessage{From: "x@c.us", Body: "3"})
	if len(sender.sent) != 2 {
		t.Fatalf("team parts mismatch: got %d want 2", len(sender.sent))
	}
}

func TestKeywordIntentsFireIndependently(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	sender := &fakeSender{}

	r.Handle(context.Background(), sender, session.InboundMessage{
		From: "x@c.us",
		Body: "Qual o prazo e o pagamento? Vocês atendem minha cidade?",
	})

	if len(sender.sent) != 3 {
		t.Fatalf("keyword replies mismatch: got %d want 3 (%+v)", len(sender.sent), sender.sent)
	}
}

func TestSendFailureDoesNotPanic(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	sender := &fakeSender{sendErr: errors.New("transport down"), typingErr: errors.New("transport down")}

	r.Handle(context.Background(), sender, session.InboundMessage{From: "x@c.us", Body: "oi"})
	r.Handle(context.Background(), sender, session.InboundMessage{From: "x@c.us", Body: "2"})
}
