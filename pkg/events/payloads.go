package events

// --- Outbound Payloads ---

// Credentials is the start-bot authorization payload.
type Credentials struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

// OutboundMessage is the send-bot-message payload. Data must already be a
// string; non-string content is JSON-serialized by the sender before it gets
// here.
type OutboundMessage struct {
	Cid  int64  `json:"cid"`
	Data string `json:"data"`
}

// MessageRef addresses one message for the receipt and delete operations.
type MessageRef struct {
	ID int64 `json:"id"`
}

// --- Keyboard ---

// Button is a single keyboard entry.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callbackData"`
}

// KeyboardAction tells the client whether to show or hide the bot keyboard.
type KeyboardAction string

const (
	KeyboardShow KeyboardAction = "show"
	KeyboardHide KeyboardAction = "hide"
)

// Valid returns true if the action is recognized.
func (a KeyboardAction) Valid() bool { return a == KeyboardShow || a == KeyboardHide }

// KeyboardRequest is the set-bot-keyboard payload.
type KeyboardRequest struct {
	Cid      int64          `json:"cid"`
	Keyboard [][]Button     `json:"keyboard"`
	Action   KeyboardAction `json:"action"`
}

// Validate checks the request before anything is emitted.
func (r *KeyboardRequest) Validate() error {
	if r.Cid == 0 {
		return &ValidationError{Field: "cid", Reason: "required"}
	}
	if len(r.Keyboard) == 0 {
		return &ValidationError{Field: "keyboard", Reason: "must not be empty"}
	}
	for _, row := range r.Keyboard {
		if len(row) == 0 {
			return &ValidationError{Field: "keyboard", Reason: "contains an empty row"}
		}
	}
	if !r.Action.Valid() {
		return &ValidationError{Field: "action", Reason: "must be " + string(KeyboardShow) + " or " + string(KeyboardHide)}
	}
	return nil
}
