// Package transport provides the bidirectional event channel a bot session
// drives. The websocket implementation speaks the platform's ver4 JSON
// envelope; anything with the same semantics can stand in for it.
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// AckFunc receives the server's reply to a single emit, or the error that
// prevented delivery. It is called at most once.
type AckFunc func(reply json.RawMessage, err error)

// EventFunc handles one inbound server event payload.
type EventFunc func(payload json.RawMessage)

// AnyFunc handles every inbound server event, tagged with its name.
type AnyFunc func(event string, payload json.RawMessage)

// Transport is the event channel port. A transport instance backs a single
// connection: Connect is called once, and a disconnect is terminal.
type Transport interface {
	// Connect dials the socket URL and starts the delivery loops. The
	// synthetic "connect" event is delivered to listeners before it
	// returns.
	Connect(ctx context.Context, socketURL string) error

	// Emit queues an outbound event without blocking. When ack is non-nil
	// the server reply, or the send failure, is delivered to it.
	Emit(event string, payload any, ack AckFunc) error

	// On registers a listener for one event name. Safe before or after
	// Connect.
	On(event string, fn EventFunc)

	// OnAny registers a listener for every inbound event.
	OnAny(fn AnyFunc)

	// OnDisconnect registers a callback invoked once when the connection
	// ends, with the reason.
	OnDisconnect(fn func(reason error))

	Close() error
	Connected() bool
}

// Sentinel conditions, reachable through errors.Is on a TransportError.
var (
	ErrNotConnected = errors.New("not connected")
	ErrQueueFull    = errors.New("send queue full")
	ErrClosed       = errors.New("closed by client")
)

// TransportError wraps a socket-layer failure with the operation that hit it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "transport " + e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// envelope is one ver4 wire frame. Client frames carry a name and an
// optional ackId; server frames carry either a name (an event) or a bare
// ackId (a reply to an emit).
type envelope struct {
	Name  string          `json:"name,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}
