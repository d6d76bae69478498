package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event names carried by the bridge protocol. Inbound names mirror the
// provider's lifecycle; outbound names are commands.
const (
	eventQR            = "qr"
	eventReady         = "ready"
	eventAuthenticated = "authenticated"
	eventAuthFailure   = "auth_failure"
	eventDisconnected  = "disconnected"
	eventMessage       = "message"

	cmdSendText   = "send_text"
	cmdSendTyping = "send_typing"
)

// frame is the single wire envelope, both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type qrPayload struct {
	Code string `json:"code"`
}

type authFailurePayload struct {
	Message string `json:"message"`
}

type disconnectedPayload struct {
	Reason string `json:"reason"`
}

type messagePayload struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	ChatType  string `json:"chat_type"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
}

type sendTextPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type sendTypingPayload struct {
	To        string `json:"to"`
	Composing bool   `json:"composing"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	f := frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		f.Data = raw
	}
	out, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", event, err)
	}
	return out, nil
}

func decodeFrame(raw []byte) (frame, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return frame{}, fmt.Errorf("decode frame: %w", err)
	}
	f.Event = strings.TrimSpace(f.Event)
	if f.Event == "" {
		return frame{}, fmt.Errorf("decode frame: missing event name")
	}
	return f, nil
}

func decodePayload[T any](f frame) (T, error) {
	var payload T
	if len(f.Data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", f.Event, err)
	}
	return payload, nil
}
