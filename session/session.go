// Package session owns the messaging-session lifecycle: it holds the single
// active session handle, reacts to provider events, and guarantees the
// process never keeps running against corrupted cached credentials.
package session

import (
	"context"
	"time"
)

// Profile is the richer correspondent context a provider may be able to
// resolve for an inbound message. Resolution is best effort.
type Profile struct {
	DisplayName string
}

// InboundMessage is one message received from the transport. ResolveProfile
// is an optional capability; callers must tolerate it being nil or failing.
type InboundMessage struct {
	ID             string
	From           string
	ChatType       string
	Body           string
	SentAt         time.Time
	ResolveProfile func(ctx context.Context) (Profile, error)
}

// Session is the abstract messaging session supplied by the external
// transport provider. The Manager exclusively owns lifecycle calls
// (Connect/Close); the router and scheduler only borrow it to send.
type Session interface {
	Connect(ctx context.Context) error
	Events() <-chan Event
	Messages() <-chan InboundMessage

	SendText(ctx context.Context, to string, text string) error
	SendTyping(ctx context.Context, to string, composing bool) error

	Close() error
}

// Sender is the narrow outbound surface handed to the router and the
// follow-up scheduler.
type Sender interface {
	SendText(ctx context.Context, to string, text string) error
	SendTyping(ctx context.Context, to string, composing bool) error
}

// Factory builds a fresh session. The Manager calls it once at startup and
// again after any restart-worthy failure.
type Factory func(ctx context.Context) (Session, error)
