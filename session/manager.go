package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Policy selects what happens after a purge: exit so an external supervisor
// relaunches the process, or rebuild the session in-process after a fixed
// backoff. A purge always precedes either path.
type Policy string

const (
	PolicyExit      Policy = "exit"
	PolicyReconnect Policy = "reconnect"
)

const defaultBackoff = 15 * time.Second

// ErrSessionFatal is returned by Run when the lifecycle policy demands a
// process exit; main maps it to a non-zero status.
var ErrSessionFatal = errors.New("session: fatal lifecycle failure")

// Terminal disconnect reasons: the remote side explicitly invalidated the
// session. Anything else reconnects without purging the local cache.
var defaultTerminalReasons = []string{"DISCONNECTED", "LOGGED_OUT", "BANNED"}

type ManagerOptions struct {
	Factory  Factory
	CacheDir string
	Policy   Policy
	Backoff  time.Duration

	// TerminalReasons overrides the disconnect reasons treated as fatal.
	TerminalReasons []string

	// RenderPairingToken shows the pairing payload to the operator.
	RenderPairingToken func(code string)

	// HandleMessage processes one inbound message. Panics are recovered
	// and logged; they never take the process down.
	HandleMessage func(ctx context.Context, sender Sender, msg InboundMessage)

	Logger *slog.Logger
}

type Manager struct {
	factory         Factory
	cacheDir        string
	policy          Policy
	backoff         time.Duration
	terminalReasons map[string]bool
	renderToken     func(code string)
	handleMessage   func(ctx context.Context, sender Sender, msg InboundMessage)
	logger          *slog.Logger

	mu      sync.Mutex
	status  Status
	current Session
}

func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	if strings.TrimSpace(opts.CacheDir) == "" {
		return nil, fmt.Errorf("session cache dir is required")
	}
	switch opts.Policy {
	case PolicyExit, PolicyReconnect:
	case "":
		opts.Policy = PolicyExit
	default:
		return nil, fmt.Errorf("unknown session policy: %s", opts.Policy)
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	reasons := opts.TerminalReasons
	if len(reasons) == 0 {
		reasons = defaultTerminalReasons
	}
	terminal := make(map[string]bool, len(reasons))
	for _, reason := range reasons {
		reason = strings.ToUpper(strings.TrimSpace(reason))
		if reason != "" {
			terminal[reason] = true
		}
	}
	return &Manager{
		factory:         opts.Factory,
		cacheDir:        strings.TrimSpace(opts.CacheDir),
		policy:          opts.Policy,
		backoff:         opts.Backoff,
		terminalReasons: terminal,
		renderToken:     opts.RenderPairingToken,
		handleMessage:   opts.HandleMessage,
		logger:          opts.Logger,
	}, nil
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == "" {
		return StatusUninitialized
	}
	return m.status
}

// Sender returns the current session's outbound surface, or nil before the
// first connect. Borrowers must tolerate per-send failures.
func (m *Manager) Sender() Sender {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current
}

func (m *Manager) setStatus(status Status) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Manager) setCurrent(s Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

// Run owns the session until ctx is canceled or the policy demands a
// process exit. It serializes event and message handling on a single loop;
// sends awaited inside handlers are the only suspension points.
func (m *Manager) Run(ctx context.Context) error {
	for {
		fatal, err := m.runOnce(ctx)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if fatal {
			return fmt.Errorf("%w: %v", ErrSessionFatal, err)
		}
		if err != nil {
			m.logger.Warn("session_restart_scheduled", "backoff", m.backoff.String(), "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff):
		}
	}
}

// runOnce drives one session from connect to its terminal condition.
// fatal=true means the policy wants the process gone.
func (m *Manager) runOnce(ctx context.Context) (fatal bool, err error) {
	m.setStatus(StatusUninitialized)

	sess, err := m.factory(ctx)
	if err != nil {
		return false, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		m.setCurrent(nil)
		_ = sess.Close()
	}()

	if err := sess.Connect(ctx); err != nil {
		return false, fmt.Errorf("connect session: %w", err)
	}
	// Publish only after Connect succeeds so borrowers never see a session
	// that is still wiring up its transport.
	m.setCurrent(sess)
	m.logger.Info("session_connected")

	events := sess.Events()
	messages := sess.Messages()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()

		case event, ok := <-events:
			if !ok {
				m.setStatus(StatusDisconnected)
				return false, fmt.Errorf("event stream closed")
			}
			done, fatal, err := m.handleEvent(event)
			if done || err != nil {
				return fatal, err
			}

		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			m.safeHandleMessage(ctx, sess, msg)
		}
	}
}

// handleEvent applies one lifecycle event. done=true ends the current
// session; fatal additionally ends the process.
func (m *Manager) handleEvent(event Event) (done bool, fatal bool, err error) {
	switch e := event.(type) {
	case EventPairingCode:
		m.setStatus(StatusAwaitingPairing)
		m.logger.Info("session_pairing_token")
		if m.renderToken != nil {
			m.renderToken(e.Code)
		}
		return false, false, nil

	case EventReady:
		m.setStatus(StatusReady)
		m.logger.Info("session_ready")
		return false, false, nil

	case EventAuthenticated:
		m.setStatus(StatusAuthenticated)
		m.logger.Info("session_authenticated")
		return false, false, nil

	case EventAuthFailure:
		m.setStatus(StatusFailed)
		m.logger.Error("session_auth_failure", "message", e.Message)
		m.purge()
		if m.policy == PolicyExit {
			return true, true, fmt.Errorf("auth failure: %s", e.Message)
		}
		return true, false, fmt.Errorf("auth failure: %s", e.Message)

	case EventDisconnected:
		m.setStatus(StatusDisconnected)
		reason := strings.ToUpper(strings.TrimSpace(e.Reason))
		if m.terminalReasons[reason] {
			m.logger.Error("session_disconnected_terminal", "reason", e.Reason)
			m.purge()
			if m.policy == PolicyExit {
				return true, true, fmt.Errorf("terminal disconnect: %s", e.Reason)
			}
			return true, false, fmt.Errorf("terminal disconnect: %s", e.Reason)
		}
		// Transient drop: reconnect with the cache intact.
		m.logger.Warn("session_disconnected", "reason", e.Reason)
		return true, false, fmt.Errorf("disconnected: %s", e.Reason)

	default:
		m.logger.Warn("session_event_unknown", "event", fmt.Sprintf("%T", event))
		return false, false, nil
	}
}

// purge deletes the provider's local credential cache. It runs before any
// retry or relaunch so a restart never reuses invalidated credentials.
func (m *Manager) purge() {
	m.logger.Warn("session_purge", "cache_dir", m.cacheDir)
	if err := os.RemoveAll(m.cacheDir); err != nil {
		m.logger.Error("session_purge_failed", "cache_dir", m.cacheDir, "error", err.Error())
		return
	}
	m.logger.Info("session_purge_done", "cache_dir", m.cacheDir)
}

func (m *Manager) safeHandleMessage(ctx context.Context, sender Sender, msg InboundMessage) {
	if m.handleMessage == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("message_handler_panic", "from", msg.From, "panic", fmt.Sprintf("%v", r))
		}
	}()
	m.handleMessage(ctx, sender, msg)
}
