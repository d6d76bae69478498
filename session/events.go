package session

// Status is the lifecycle position of the active messaging session. Only
// the Manager moves it; other components just borrow the session to send.
type Status string

const (
	StatusUninitialized   Status = "uninitialized"
	StatusAwaitingPairing Status = "awaiting_pairing"
	StatusReady           Status = "ready"
	StatusAuthenticated   Status = "authenticated"
	StatusDisconnected    Status = "disconnected"
	StatusFailed          Status = "failed"
)

// Event is the closed set of lifecycle signals a session provider emits.
// The Manager consumes these with an exhaustive type switch.
type Event interface {
	sessionEvent()
}

// EventPairingCode carries the scannable pairing payload shown to the
// operator before the session can become ready.
type EventPairingCode struct {
	Code string
}

type EventReady struct{}

type EventAuthenticated struct{}

// EventAuthFailure means the remote side rejected the cached credentials.
// Always terminal: the local session cache is stale.
type EventAuthFailure struct {
	Message string
}

// EventDisconnected carries the provider's reason string. Whether it is
// terminal depends on the Manager's configured reason set.
type EventDisconnected struct {
	Reason string
}

func (EventPairingCode) sessionEvent()   {}
func (EventReady) sessionEvent()         {}
func (EventAuthenticated) sessionEvent() {}
func (EventAuthFailure) sessionEvent()   {}
func (EventDisconnected) sessionEvent()  {}
