package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// connectEvent is the synthetic event delivered once the dial succeeds, so
// user code can observe the connection the same way it observes server
// events.
const connectEvent = "connect"

// Options tune the websocket dial and keepalive behavior. Zero values get
// sensible defaults.
type Options struct {
	// Query is appended to the socket URL as its raw query string.
	Query string

	// InsecureSkipVerify disables TLS certificate verification for the
	// dial. RosChat installations commonly run self-signed.
	InsecureSkipVerify bool

	HandshakeTimeout time.Duration // default 10s
	PingInterval     time.Duration // default 30s
	PongTimeout      time.Duration // default 60s, must exceed PingInterval
	WriteTimeout     time.Duration // default 10s
	SendBuffer       int           // default 256

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// WSTransport is the gorilla/websocket implementation of Transport. All
// writes go through a single pump goroutine; reads fan out through the
// listener table.
type WSTransport struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	send      chan []byte
	done      chan struct{}
	listeners *listenerTable

	pendingMu sync.Mutex
	pending   map[string]AckFunc

	notifyMu      sync.Mutex
	disconnectFns []func(error)

	shutdownOnce sync.Once
}

// NewWSTransport creates a transport ready for a single Connect.
func NewWSTransport(opts Options) *WSTransport {
	opts = opts.withDefaults()
	return &WSTransport{
		opts:      opts,
		logger:    opts.Logger,
		send:      make(chan []byte, opts.SendBuffer),
		done:      make(chan struct{}),
		listeners: newListenerTable(),
		pending:   make(map[string]AckFunc),
	}
}

// Connect dials the socket URL, starts the pumps, and delivers the synthetic
// connect event. The URL may use an http(s) scheme; it is mapped to ws(s).
func (t *WSTransport) Connect(ctx context.Context, socketURL string) error {
	target, err := dialURL(socketURL, t.opts.Query)
	if err != nil {
		return &TransportError{Op: "dial", Err: err}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: t.opts.HandshakeTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: t.opts.InsecureSkipVerify},
	}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return &TransportError{Op: "dial", Err: err}
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.mu.Unlock()

	go t.readPump(conn)
	go t.writePump(conn)

	t.logger.Info("socket connected", "url", target)
	t.listeners.dispatch(connectEvent, nil)
	return nil
}

func dialURL(socketURL, query string) (string, error) {
	u, err := url.Parse(socketURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if query != "" {
		u.RawQuery = query
	}
	return u.String(), nil
}

// Emit queues one outbound frame without blocking. A full queue or a closed
// connection surfaces as a TransportError instead of stalling the caller.
func (t *WSTransport) Emit(event string, payload any, ack AckFunc) error {
	if !t.Connected() {
		return &TransportError{Op: "emit " + event, Err: ErrNotConnected}
	}

	env := envelope{Name: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &TransportError{Op: "emit " + event, Err: err}
		}
		env.Data = data
	}
	if ack != nil {
		env.AckID = uuid.NewString()
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return &TransportError{Op: "emit " + event, Err: err}
	}

	if ack != nil {
		// Serialized with the shutdown sweep: after done closes no new ack
		// enters the map, so every registered ack is either resolved by a
		// reply or failed by the sweep.
		t.pendingMu.Lock()
		select {
		case <-t.done:
			t.pendingMu.Unlock()
			return &TransportError{Op: "emit " + event, Err: ErrClosed}
		default:
		}
		t.pending[env.AckID] = ack
		t.pendingMu.Unlock()
	}

	select {
	case t.send <- frame:
		return nil
	case <-t.done:
		return t.withdrawAck(env.AckID, event, ErrClosed)
	default:
		return t.withdrawAck(env.AckID, event, ErrQueueFull)
	}
}

// withdrawAck rolls a pending ack back after a failed enqueue. On a non-nil
// return the ack has not been and will never be invoked; a nil return means
// the shutdown sweep took the ack first and already failed it.
func (t *WSTransport) withdrawAck(ackID, event string, reason error) error {
	if ackID == "" {
		return &TransportError{Op: "emit " + event, Err: reason}
	}
	t.pendingMu.Lock()
	_, mine := t.pending[ackID]
	delete(t.pending, ackID)
	t.pendingMu.Unlock()
	if !mine {
		return nil
	}
	return &TransportError{Op: "emit " + event, Err: reason}
}

// On registers a listener for one event name.
func (t *WSTransport) On(event string, fn EventFunc) { t.listeners.on(event, fn) }

// OnAny registers a listener for every inbound event.
func (t *WSTransport) OnAny(fn AnyFunc) { t.listeners.onAny(fn) }

// OnDisconnect registers a callback invoked once when the connection ends.
func (t *WSTransport) OnDisconnect(fn func(reason error)) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	t.disconnectFns = append(t.disconnectFns, fn)
}

// Close tears the connection down. Pending acks fail and disconnect
// callbacks fire, same as a remote close.
func (t *WSTransport) Close() error {
	t.shutdown(ErrClosed)
	return nil
}

// Connected reports whether the socket is up.
func (t *WSTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// --- Pumps ---

func (t *WSTransport) readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(t.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(t.opts.PongTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.shutdown(err)
			return
		}
		t.handleFrame(data)
	}
}

func (t *WSTransport) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(t.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-t.send:
			conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				t.shutdown(err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.shutdown(err)
				return
			}

		case <-t.done:
			conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (t *WSTransport) handleFrame(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.logger.Debug("dropping unparseable frame", "error", err)
		return
	}

	if env.Name == "" {
		if env.AckID != "" {
			t.resolveAck(env.AckID, env.Data)
		} else {
			t.logger.Debug("dropping frame without name or ackId")
		}
		return
	}

	if n := t.listeners.dispatch(env.Name, env.Data); n == 0 {
		t.logger.Debug("no listeners for event", "event", env.Name)
	}
}

func (t *WSTransport) resolveAck(id string, reply json.RawMessage) {
	t.pendingMu.Lock()
	ack, ok := t.pending[id]
	delete(t.pending, id)
	t.pendingMu.Unlock()

	if !ok {
		t.logger.Debug("reply for unknown ack", "ackId", id)
		return
	}
	ack(reply, nil)
}

// shutdown runs the teardown exactly once: mark disconnected, close the
// socket, fail every outstanding ack, then notify.
func (t *WSTransport) shutdown(reason error) {
	t.shutdownOnce.Do(func() {
		t.mu.Lock()
		t.connected = false
		conn := t.conn
		t.mu.Unlock()

		close(t.done)
		if conn != nil {
			conn.Close()
		}

		t.pendingMu.Lock()
		pending := t.pending
		t.pending = make(map[string]AckFunc)
		t.pendingMu.Unlock()
		for _, ack := range pending {
			ack(nil, &TransportError{Op: "ack", Err: reason})
		}

		t.notifyMu.Lock()
		fns := make([]func(error), len(t.disconnectFns))
		copy(fns, t.disconnectFns)
		t.notifyMu.Unlock()
		for _, fn := range fns {
			fn(reason)
		}

		t.logger.Warn("socket disconnected", "reason", reason)
	})
}

// Verify interface compliance at compile time.
var _ Transport = (*WSTransport)(nil)
