// Package events defines the typed event contracts for the RosChat bot protocol.
// Every payload crossing the socket boundary MUST use one of these types.
// No ad-hoc map[string]interface{} events.
package events

// --- Event Kinds ---

// Kind identifies a RosChat server event. The wire strings are fixed by the
// platform and case-sensitive.
type Kind string

const (
	// Connect is the transport-level connection notification.
	Connect Kind = "connect"

	// StartBot carries the bot credentials during authorization.
	StartBot Kind = "start-bot"

	// Outbound operations.
	SendBotMessage   Kind = "send-bot-message"
	DeleteBotMessage Kind = "delete-bot-message"
	SetBotKeyboard   Kind = "set-bot-keyboard"

	// Inbound user activity.
	BotMessageEvent Kind = "bot-message-event"
	BotButtonEvent  Kind = "bot-button-event"

	// Delivery receipts, sent by the bot and echoed by the server.
	BotMessageReceived Kind = "bot-message-received"
	BotMessageWatched  Kind = "bot-message-watched"
)

// Kinds returns every known event kind.
func Kinds() []Kind {
	return []Kind{
		Connect, StartBot, SendBotMessage, BotMessageEvent,
		BotMessageReceived, BotMessageWatched, DeleteBotMessage,
		SetBotKeyboard, BotButtonEvent,
	}
}

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// Valid returns true if the kind is recognized.
func (k Kind) Valid() bool {
	for _, kk := range Kinds() {
		if kk == k {
			return true
		}
	}
	return false
}

// --- Data Type Discriminators ---

// Values of the data.type field inside message payloads.
const (
	DataTypeText   = "text"
	DataTypeTyping = "message-writing"
)
