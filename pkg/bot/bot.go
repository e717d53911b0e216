// Package bot is the user-facing layer of the RosChat bot client. It wraps a
// session with handler registries, a priority router for inbound events, and
// a typed facade for the outbound operations, so application code deals in
// handlers and decoded outcomes rather than wire frames.
package bot

import (
	"context"
	"log/slog"

	"github.com/FF7FSystem/go-roschat-bot/pkg/config"
	"github.com/FF7FSystem/go-roschat-bot/pkg/events"
	"github.com/FF7FSystem/go-roschat-bot/pkg/session"
	"github.com/FF7FSystem/go-roschat-bot/pkg/transport"
)

// HandlerFunc processes one decoded event. Handlers run on the transport's
// delivery goroutine; returned errors are logged and never propagate past
// the dispatch boundary.
type HandlerFunc func(ev *events.Outcome, api API) error

// client is the slice of session behavior the bot drives.
type client interface {
	Connect(ctx context.Context) error
	Emit(kind events.Kind, payload any, ack transport.AckFunc) error
	On(kind events.Kind, fn transport.EventFunc)
	OnAny(fn transport.AnyFunc)
	Run(ctx context.Context) error
	Close() error
}

var _ client = (*session.Session)(nil)

// Bot routes inbound events to registered handlers and exposes the outbound
// operations of the protocol. Registration is allowed at any time, including
// from inside a running handler.
type Bot struct {
	settings *config.Settings
	logger   *slog.Logger
	sess     client
	sessOpts []session.Option
	registry *registry
}

// Option customizes a Bot before it binds to its session.
type Option func(*Bot)

// WithLogger routes the bot's and the underlying session's logging through l.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.logger = l }
}

// WithSessionOptions forwards options to the session the bot constructs.
func WithSessionOptions(opts ...session.Option) Option {
	return func(b *Bot) { b.sessOpts = append(b.sessOpts, opts...) }
}

// withClient swaps the session implementation, for tests.
func withClient(c client) Option {
	return func(b *Bot) { b.sess = c }
}

// New wires a bot around validated settings. The inbound dispatcher is bound
// immediately, so handlers registered before Connect see every event from
// the first frame on.
func New(settings *config.Settings, opts ...Option) *Bot {
	b := &Bot{
		settings: settings,
		registry: newRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.sess == nil {
		sessOpts := append([]session.Option{session.WithLogger(b.logger)}, b.sessOpts...)
		b.sess = session.New(settings, sessOpts...)
	}
	b.sess.OnAny(b.dispatch)
	return b
}

// --- lifecycle ---

// Connect brings the session up and blocks until the bot is authorized.
func (b *Bot) Connect(ctx context.Context) error {
	return b.sess.Connect(ctx)
}

// Run blocks until the connection ends or ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	return b.sess.Run(ctx)
}

// Close tears the session down.
func (b *Bot) Close() error {
	return b.sess.Close()
}

// On registers a raw listener for one server event kind, bypassing the
// router. The payload arrives undecoded.
func (b *Bot) On(kind events.Kind, fn transport.EventFunc) {
	b.sess.On(kind, fn)
}

// --- registration ---

// Command registers a handler for a slash command. The pattern must be a
// slash-prefixed word such as "/start"; anything else fails fast. A repeat
// pattern overwrites the previous handler.
func (b *Bot) Command(pattern string, h HandlerFunc) error {
	return b.registry.addCommand(pattern, h)
}

// Button registers a handler under a callback-data label. The label also
// becomes the button's text on the derived keyboard. A repeat label
// overwrites the previous handler but keeps its original keyboard position.
func (b *Bot) Button(label string, h HandlerFunc) error {
	return b.registry.addButton(label, h)
}

// Buttons registers one handler under several labels.
func (b *Bot) Buttons(labels []string, h HandlerFunc) error {
	for _, label := range labels {
		if err := b.registry.addButton(label, h); err != nil {
			return err
		}
	}
	return nil
}

// Message sets the generic message handler, invoked for message events that
// did not resolve to a command. A second call overwrites.
func (b *Bot) Message(h HandlerFunc) {
	b.registry.setMessage(h)
}
