package bot

import (
	"encoding/json"

	"github.com/FF7FSystem/go-roschat-bot/pkg/events"
	"github.com/FF7FSystem/go-roschat-bot/pkg/transport"
)

// API is the facade handed to handlers. Every call is safe from any
// goroutine, including from inside another handler. The optional trailing
// ack receives the server's reply to the operation; callers who pass none
// fire and forget.
type API interface {
	// SendMessage delivers data to the user behind cid. Strings go out
	// verbatim; any other value is JSON-serialized first.
	SendMessage(cid int64, data any, ack ...transport.AckFunc) error
	// MarkReceived reports the delivery receipt for a message id.
	MarkReceived(id int64, ack ...transport.AckFunc) error
	// MarkWatched reports the read receipt for a message id.
	MarkWatched(id int64, ack ...transport.AckFunc) error
	// DeleteMessage removes a previously sent message.
	DeleteMessage(id int64, ack ...transport.AckFunc) error
	// TurnOnKeyboard shows the keyboard derived from the button registry.
	TurnOnKeyboard(cid int64, ack ...transport.AckFunc) error
	// TurnOffKeyboard hides the bot's keyboard.
	TurnOffKeyboard(cid int64, ack ...transport.AckFunc) error
	// Keyboard returns the current derived keyboard layout.
	Keyboard() [][]events.Button
	// Commands returns the registered command patterns in registration order.
	Commands() []string
}

var _ API = (*Bot)(nil)

func firstAck(acks []transport.AckFunc) transport.AckFunc {
	if len(acks) == 0 {
		return nil
	}
	return acks[0]
}

// stringifyData renders outbound message content. The wire carries data as a
// string, so structured values are serialized and strings pass through.
func stringifyData(data any) (string, error) {
	switch v := data.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", &events.ValidationError{Field: "data", Reason: err.Error()}
		}
		return string(raw), nil
	}
}

func (b *Bot) SendMessage(cid int64, data any, ack ...transport.AckFunc) error {
	text, err := stringifyData(data)
	if err != nil {
		return err
	}
	msg := events.OutboundMessage{Cid: cid, Data: text}
	return b.sess.Emit(events.SendBotMessage, msg, firstAck(ack))
}

func (b *Bot) MarkReceived(id int64, ack ...transport.AckFunc) error {
	return b.sess.Emit(events.BotMessageReceived, events.MessageRef{ID: id}, firstAck(ack))
}

func (b *Bot) MarkWatched(id int64, ack ...transport.AckFunc) error {
	return b.sess.Emit(events.BotMessageWatched, events.MessageRef{ID: id}, firstAck(ack))
}

func (b *Bot) DeleteMessage(id int64, ack ...transport.AckFunc) error {
	return b.sess.Emit(events.DeleteBotMessage, events.MessageRef{ID: id}, firstAck(ack))
}

func (b *Bot) TurnOnKeyboard(cid int64, ack ...transport.AckFunc) error {
	return b.setKeyboard(cid, events.KeyboardShow, firstAck(ack))
}

func (b *Bot) TurnOffKeyboard(cid int64, ack ...transport.AckFunc) error {
	return b.setKeyboard(cid, events.KeyboardHide, firstAck(ack))
}

// setKeyboard snapshots the registry-derived layout at call time and
// validates it before anything reaches the wire.
func (b *Bot) setKeyboard(cid int64, action events.KeyboardAction, ack transport.AckFunc) error {
	req := events.KeyboardRequest{
		Cid:      cid,
		Keyboard: b.Keyboard(),
		Action:   action,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	return b.sess.Emit(events.SetBotKeyboard, req, ack)
}

// Keyboard derives the layout from the button registry at call time, one
// entry per registered button in registration order. It is never cached, so
// buttons added later show up on the next call.
func (b *Bot) Keyboard() [][]events.Button {
	return b.registry.keyboard(b.settings.KeyboardCols)
}

// Commands lists the registered command patterns in registration order.
func (b *Bot) Commands() []string {
	return b.registry.commandList()
}
