// Package session manages the authenticated connection lifecycle of a single
// bot: resolve the socket URL, connect, authorize with start-bot, then hand
// inbound events to listeners until the transport drops.
package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/FF7FSystem/go-roschat-bot/pkg/config"
	"github.com/FF7FSystem/go-roschat-bot/pkg/events"
	"github.com/FF7FSystem/go-roschat-bot/pkg/transport"
)

// ---------------------------------------------------------------------------
// Session states
// ---------------------------------------------------------------------------

// State is the connection lifecycle state of a session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateAuthorizing  State = "authorizing"
	StateReady        State = "ready"
)

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// PortResolver is the external collaborator that turns the base URL into a
// socket URL. The default implementation fetches the webserver config.
type PortResolver func(ctx context.Context, client *http.Client, baseURL string) (string, error)

// Session owns one transport connection. It is created once per process,
// connected at most once, and a disconnect is terminal; reconnection policy
// belongs to the caller.
type Session struct {
	settings    *config.Settings
	logger      *slog.Logger
	tr          transport.Transport
	httpClient  *http.Client
	resolver    PortResolver
	authTimeout time.Duration

	mu      sync.Mutex
	state   State
	started bool

	authOnce  sync.Once
	readyOnce sync.Once
	doneOnce  sync.Once
	ready     chan struct{}
	done      chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger injects the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTransport swaps the transport implementation.
func WithTransport(t transport.Transport) Option {
	return func(s *Session) { s.tr = t }
}

// WithHTTPClient sets the client used for socket URL discovery.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.httpClient = c }
}

// WithPortResolver swaps the socket URL discovery collaborator.
func WithPortResolver(r PortResolver) Option {
	return func(s *Session) { s.resolver = r }
}

// WithAuthTimeout bounds the authorization wait inside Connect. Defaults to
// 10 seconds.
func WithAuthTimeout(d time.Duration) Option {
	return func(s *Session) { s.authTimeout = d }
}

// New creates a session from validated settings. The logger and every
// collaborator can be injected; defaults are derived from the settings.
func New(settings *config.Settings, opts ...Option) *Session {
	s := &Session{
		settings:    settings,
		state:       StateDisconnected,
		resolver:    transport.ResolveSocketURL,
		authTimeout: 10 * time.Second,
		ready:       make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: settings.InsecureTLS()},
			},
		}
	}
	if s.tr == nil {
		s.tr = transport.NewWSTransport(transport.Options{
			Query:              settings.Query,
			InsecureSkipVerify: settings.InsecureTLS(),
			Logger:             s.logger,
		})
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Connect resolves the socket URL, dials, authorizes, and waits for the
// server's acknowledgment. Callable at most once; every failure is fatal to
// this session instance.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.started = true
	s.state = StateConnecting
	s.mu.Unlock()

	socketURL, err := s.resolver(ctx, s.httpClient, s.settings.BaseURL)
	if err != nil {
		s.handleDisconnect(err)
		return err
	}
	s.logger.Info("socket url resolved", "socket_url", socketURL)

	s.tr.On(events.Connect.String(), s.onConnected)
	s.tr.OnDisconnect(s.handleDisconnect)

	if err := s.tr.Connect(ctx, socketURL); err != nil {
		s.handleDisconnect(err)
		return err
	}

	if err := s.WaitReady(s.authTimeout); err != nil {
		s.tr.Close()
		return err
	}
	return nil
}

// onConnected runs on the transport's connect notification and immediately
// starts the authorization handshake.
func (s *Session) onConnected(json.RawMessage) {
	s.setState(StateConnected)
	s.authOnce.Do(s.authorize)
}

func (s *Session) authorize() {
	s.setState(StateAuthorizing)
	s.logger.Info("authorizing bot", "bot_name", s.settings.BotName)

	err := s.tr.Emit(events.StartBot.String(), s.settings.Credentials(),
		func(reply json.RawMessage, err error) {
			if err != nil {
				s.logger.Error("authorization failed", "error", err)
				return
			}
			s.markReady(reply)
		})
	if err != nil {
		s.logger.Error("authorization emit failed", "error", err)
	}
}

func (s *Session) markReady(reply json.RawMessage) {
	s.readyOnce.Do(func() {
		s.setState(StateReady)
		s.logger.Info("bot authorized", "reply", string(reply))
		close(s.ready)
	})
}

// WaitReady blocks until authorization is acknowledged, the session ends, or
// the timeout elapses. After a timeout the session is unusable.
func (s *Session) WaitReady(timeout time.Duration) error {
	// A completed authorization wins even when the session has since ended.
	select {
	case <-s.ready:
		return nil
	default:
	}

	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return &AuthorizationError{Reason: "connection lost before authorization completed"}
	case <-time.After(timeout):
		return &AuthorizationError{Timeout: timeout}
	}
}

// Emit sends one event without blocking. Allowed as soon as the transport is
// connected; start-bot itself goes out while authorizing. A transport
// failure reaches ack when one is supplied and is otherwise logged and
// dropped.
func (s *Session) Emit(kind events.Kind, payload any, ack transport.AckFunc) error {
	switch s.State() {
	case StateConnected, StateAuthorizing, StateReady:
	default:
		return ErrNotConnected
	}

	if err := s.tr.Emit(kind.String(), payload, ack); err != nil {
		if ack != nil {
			ack(nil, err)
		} else {
			s.logger.Error("emit dropped", "event", kind.String(), "error", err)
		}
	}
	return nil
}

// On registers a raw listener for one server event kind. Most bots want the
// decoded routing in pkg/bot instead.
func (s *Session) On(kind events.Kind, fn transport.EventFunc) {
	s.tr.On(kind.String(), fn)
}

// OnAny registers a raw listener for every inbound event.
func (s *Session) OnAny(fn transport.AnyFunc) {
	s.tr.OnAny(fn)
}

// handleDisconnect is the single path to the terminal state.
func (s *Session) handleDisconnect(reason error) {
	s.setState(StateDisconnected)
	s.doneOnce.Do(func() {
		s.logger.Warn("session ended", "reason", reason)
		close(s.done)
	})
}

// Done closes when the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run blocks until the session ends or ctx is canceled. This is the
// run-forever point for bots that do all their work in handlers.
func (s *Session) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	case <-s.done:
		return nil
	}
}

// Close tears the session down.
func (s *Session) Close() error {
	return s.tr.Close()
}
