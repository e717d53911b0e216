package bot

import (
	"encoding/json"

	"github.com/FF7FSystem/go-roschat-bot/pkg/events"
)

// dispatch is the containment boundary between the transport and user code.
// It decodes routable frames and hands them to the router; a malformed
// payload, a handler error, or a handler panic is logged and the delivery
// goroutine moves on to the next event.
func (b *Bot) dispatch(event string, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked", "event", event, "panic", r)
		}
	}()

	kind := events.Kind(event)
	switch kind {
	case events.BotMessageEvent, events.BotButtonEvent:
		ev, err := events.Decode(kind, payload)
		if err != nil {
			b.logger.Warn("dropping undecodable event", "event", event, "error", err)
			return
		}
		b.route(ev)
	default:
		b.logger.Debug("event observed", "event", event)
	}
}

// route selects at most one handler for a decoded event. Registries are
// consulted at dispatch time, so handlers registered mid-flight take effect
// on the next event.
func (b *Bot) route(ev *events.Outcome) {
	switch ev.Kind {
	case events.BotMessageEvent:
		b.routeMessage(ev)
	case events.BotButtonEvent:
		b.routeButton(ev)
	default:
		b.logger.Debug("event observed", "event", ev.Kind.String(), "cid", ev.Cid)
	}
}

// routeMessage applies the message priority order: typing indicators are
// discarded, then command extraction, then the generic handler.
func (b *Bot) routeMessage(ev *events.Outcome) {
	if ev.Data.IsTyping() {
		return
	}
	if ev.Data.IsText() {
		if cmd, ok := extractCommand(ev.Data.Text); ok {
			if h, found := b.registry.command(cmd); found {
				b.invoke(h, ev)
				return
			}
			// A command-shaped message never falls through to the
			// generic handler.
			b.logger.Warn("unregistered command", "command", cmd, "cid", ev.Cid)
			return
		}
	}
	if h := b.registry.messageHandler(); h != nil {
		b.invoke(h, ev)
	}
}

// routeButton matches on the event's callback data. Presses without callback
// data carry nothing to route on and are dropped silently.
func (b *Bot) routeButton(ev *events.Outcome) {
	if ev.CallbackData == "" {
		return
	}
	if h, found := b.registry.button(ev.CallbackData); found {
		b.invoke(h, ev)
		return
	}
	b.logger.Warn("unregistered button", "callback_data", ev.CallbackData, "cid", ev.Cid)
}

func (b *Bot) invoke(h HandlerFunc, ev *events.Outcome) {
	if err := h(ev, b); err != nil {
		b.logger.Error("handler failed", "event", ev.Kind.String(), "cid", ev.Cid, "error", err)
	}
}
