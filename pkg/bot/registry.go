package bot

import (
	"regexp"
	"sync"

	"github.com/FF7FSystem/go-roschat-bot/pkg/events"
)

// commandPattern is the slash-prefixed word syntax a registered command must
// satisfy.
var commandPattern = regexp.MustCompile(`^/\w+$`)

// extractPattern pulls a command token out of message text: optional
// surrounding whitespace, one leading slash, word characters, nothing else.
var extractPattern = regexp.MustCompile(`^\s*(/\w+)\s*$`)

func extractCommand(text string) (string, bool) {
	m := extractPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// registry holds the command, button, and generic message handlers. It is
// mutated by registration and read by live dispatch, possibly at the same
// time, so every access is guarded. Insertion order is tracked because it
// drives the keyboard layout.
type registry struct {
	mu       sync.RWMutex
	commands map[string]HandlerFunc
	cmdOrder []string
	buttons  map[string]HandlerFunc
	btnOrder []string
	message  HandlerFunc
}

func newRegistry() *registry {
	return &registry{
		commands: make(map[string]HandlerFunc),
		buttons:  make(map[string]HandlerFunc),
	}
}

func (r *registry) addCommand(pattern string, h HandlerFunc) error {
	if !commandPattern.MatchString(pattern) {
		return &events.ValidationError{Field: "pattern", Reason: "must be a slash-prefixed word, e.g. /start"}
	}
	if h == nil {
		return &events.ValidationError{Field: "handler", Reason: "required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[pattern]; !exists {
		r.cmdOrder = append(r.cmdOrder, pattern)
	}
	r.commands[pattern] = h
	return nil
}

func (r *registry) addButton(label string, h HandlerFunc) error {
	if label == "" {
		return &events.ValidationError{Field: "label", Reason: "must not be empty"}
	}
	if h == nil {
		return &events.ValidationError{Field: "handler", Reason: "required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.buttons[label]; !exists {
		r.btnOrder = append(r.btnOrder, label)
	}
	r.buttons[label] = h
	return nil
}

func (r *registry) setMessage(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.message = h
}

func (r *registry) command(pattern string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[pattern]
	return h, ok
}

func (r *registry) button(label string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.buttons[label]
	return h, ok
}

func (r *registry) messageHandler() HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.message
}

func (r *registry) commandList() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.cmdOrder))
	copy(out, r.cmdOrder)
	return out
}

// keyboard derives the layout from the button registry in insertion order.
// Each entry's label doubles as its callback data. cols <= 0 keeps every
// button on a single row; otherwise rows hold cols buttons each.
func (r *registry) keyboard(cols int) [][]events.Button {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.btnOrder) == 0 {
		return nil
	}
	buttons := make([]events.Button, len(r.btnOrder))
	for i, label := range r.btnOrder {
		buttons[i] = events.Button{Text: label, CallbackData: label}
	}
	if cols <= 0 {
		return [][]events.Button{buttons}
	}

	rows := make([][]events.Button, 0, (len(buttons)+cols-1)/cols)
	for len(buttons) > cols {
		rows = append(rows, buttons[:cols])
		buttons = buttons[cols:]
	}
	return append(rows, buttons)
}
