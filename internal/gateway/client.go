// Package gateway speaks to the external transport bridge: a websocket
// stream for lifecycle events and inbound messages, and a small HTTP
// surface for contact lookups. The bridge process itself can be launched
// as a child, see launcher.go.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/borealmoveis/atendebot/session"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second

	eventBuffer   = 16
	messageBuffer = 64
)

type Options struct {
	// URL is the websocket endpoint of the bridge, e.g. ws://127.0.0.1:3900/stream.
	URL string

	// HTTPURL is the bridge's HTTP base for contact lookups. Optional; when
	// empty, inbound messages carry no profile resolver.
	HTTPURL string

	// Token, when set, is sent as a bearer credential on both surfaces.
	Token string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is one websocket session against the bridge. It satisfies
// session.Session; the lifecycle manager owns Connect and Close.
type Client struct {
	opts   Options
	logger *slog.Logger
	http   *http.Client

	// writeMu serializes frame writes and guards conn itself; the session
	// manager publishes the client to other goroutines once Connect returns.
	writeMu sync.Mutex
	conn    *websocket.Conn

	events   chan session.Event
	messages chan session.InboundMessage

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("gateway url is required")
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		opts:     opts,
		logger:   opts.Logger,
		http:     opts.HTTPClient,
		events:   make(chan session.Event, eventBuffer),
		messages: make(chan session.InboundMessage, messageBuffer),
		done:     make(chan struct{}),
	}, nil
}

func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	conn, resp, err := dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial gateway: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("dial gateway: %w", err)
	}
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
				time.Now().Add(2*time.Second))
			_ = conn.Close()
		case <-c.done:
		}
	}()

	go c.readLoop(ctx, conn)
	return nil
}

func (c *Client) Events() <-chan session.Event { return c.events }

func (c *Client) Messages() <-chan session.InboundMessage { return c.messages }

func (c *Client) SendText(ctx context.Context, to string, text string) error {
	return c.writeFrame(cmdSendText, sendTextPayload{To: to, Text: text})
}

func (c *Client) SendTyping(ctx context.Context, to string, composing bool) error {
	return c.writeFrame(cmdSendTyping, sendTypingPayload{To: to, Composing: composing})
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) writeFrame(event string, payload any) error {
	raw, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("gateway not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

// readLoop turns wire frames into typed lifecycle events and inbound
// messages. It closes both channels on exit; the manager treats that as a
// transient stream failure and rebuilds the session.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(c.events)
	defer close(c.messages)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("gateway_stream_closed", "error", err.Error())
			}
			return
		}
		f, err := decodeFrame(raw)
		if err != nil {
			c.logger.Warn("gateway_frame_invalid", "error", err.Error())
			continue
		}
		if done := c.dispatch(ctx, f); done {
			return
		}
	}
}

func (c *Client) dispatch(ctx context.Context, f frame) bool {
	switch f.Event {
	case eventQR:
		payload, err := decodePayload[qrPayload](f)
		if err != nil {
			c.logger.Warn("gateway_frame_invalid", "error", err.Error())
			return false
		}
		return c.emit(ctx, session.EventPairingCode{Code: payload.Code})

	case eventReady:
		return c.emit(ctx, session.EventReady{})

	case eventAuthenticated:
		return c.emit(ctx, session.EventAuthenticated{})

	case eventAuthFailure:
		payload, err := decodePayload[authFailurePayload](f)
		if err != nil {
			c.logger.Warn("gateway_frame_invalid", "error", err.Error())
			return false
		}
		return c.emit(ctx, session.EventAuthFailure{Message: payload.Message})

	case eventDisconnected:
		payload, err := decodePayload[disconnectedPayload](f)
		if err != nil {
			c.logger.Warn("gateway_frame_invalid", "error", err.Error())
			return false
		}
		return c.emit(ctx, session.EventDisconnected{Reason: payload.Reason})

	case eventMessage:
		payload, err := decodePayload[messagePayload](f)
		if err != nil {
			c.logger.Warn("gateway_frame_invalid", "error", err.Error())
			return false
		}
		msg := session.InboundMessage{
			ID:       payload.ID,
			From:     payload.From,
			ChatType: payload.ChatType,
			Body:     payload.Body,
		}
		if payload.Timestamp > 0 {
			msg.SentAt = time.Unix(payload.Timestamp, 0).UTC()
		}
		if c.opts.HTTPURL != "" {
			from := payload.From
			msg.ResolveProfile = func(ctx context.Context) (session.Profile, error) {
				return c.LookupProfile(ctx, from)
			}
		}
		select {
		case c.messages <- msg:
			return false
		case <-ctx.Done():
			return true
		}

	default:
		c.logger.Debug("gateway_event_ignored", "event", f.Event)
		return false
	}
}

func (c *Client) emit(ctx context.Context, event session.Event) bool {
	select {
	case c.events <- event:
		return false
	case <-ctx.Done():
		return true
	}
}
