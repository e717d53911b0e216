package bot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/FF7FSystem/go-roschat-bot/pkg/config"
	"github.com/FF7FSystem/go-roschat-bot/pkg/events"
	"github.com/FF7FSystem/go-roschat-bot/pkg/transport"
)

// ---------------------------------------------------------------------------
// test doubles
// ---------------------------------------------------------------------------

type emitCall struct {
	kind    events.Kind
	payload any
	ack     transport.AckFunc
}

type fakeClient struct {
	mu        sync.Mutex
	emits     []emitCall
	emitErr   error
	connected bool
	closed    bool
	anyFn     transport.AnyFunc
}

func (f *fakeClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeClient) Emit(kind events.Kind, payload any, ack transport.AckFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.emits = append(f.emits, emitCall{kind: kind, payload: payload, ack: ack})
	return nil
}

func (f *fakeClient) On(kind events.Kind, fn transport.EventFunc) {}

func (f *fakeClient) OnAny(fn transport.AnyFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anyFn = fn
}

func (f *fakeClient) Run(ctx context.Context) error { return nil }

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) emitted() []emitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]emitCall, len(f.emits))
	copy(out, f.emits)
	return out
}

var _ client = (*fakeClient)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() *config.Settings {
	return &config.Settings{
		Token:   strings.Repeat("a", 64),
		BaseURL: "https://chat.example.org",
		BotName: "TestBot",
	}
}

func newTestBot(t *testing.T) (*Bot, *fakeClient) {
	t.Helper()
	fake := &fakeClient{}
	b := New(testSettings(), WithLogger(testLogger()), withClient(fake))
	return b, fake
}

// ---------------------------------------------------------------------------
// outbound operations
// ---------------------------------------------------------------------------

func TestSendMessageString(t *testing.T) {
	b, fake := newTestBot(t)

	if err := b.SendMessage(5, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	emits := fake.emitted()
	if len(emits) != 1 {
		t.Fatalf("expected 1 emit, got %d", len(emits))
	}
	if emits[0].kind != events.SendBotMessage {
		t.Fatalf("expected kind %q, got %q", events.SendBotMessage, emits[0].kind)
	}
	want := events.OutboundMessage{Cid: 5, Data: "hello"}
	if emits[0].payload != want {
		t.Fatalf("expected payload %+v, got %+v", want, emits[0].payload)
	}
	if emits[0].ack != nil {
		t.Fatal("expected no ack for fire-and-forget send")
	}
}

func TestSendMessageSerializesStructured(t *testing.T) {
	b, fake := newTestBot(t)

	tests := []struct {
		name string
		data any
		want string
	}{
		{name: "map", data: map[string]int{"answer": 42}, want: `{"answer":42}`},
		{name: "struct", data: struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "text", Text: "hi"}, want: `{"type":"text","text":"hi"}`},
		{name: "bytes pass through", data: []byte("raw body"), want: "raw body"},
		{name: "number", data: 7, want: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.SendMessage(1, tt.data); err != nil {
				t.Fatalf("SendMessage: %v", err)
			}
			emits := fake.emitted()
			got := emits[len(emits)-1].payload.(events.OutboundMessage)
			if got.Data != tt.want {
				t.Fatalf("expected data %q, got %q", tt.want, got.Data)
			}
		})
	}
}

func TestSendMessageAckForwarded(t *testing.T) {
	b, fake := newTestBot(t)

	called := false
	err := b.SendMessage(5, "ping", func(reply json.RawMessage, err error) {
		called = true
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	emits := fake.emitted()
	if emits[0].ack == nil {
		t.Fatal("expected ack to be forwarded to the session")
	}
	emits[0].ack(nil, nil)
	if !called {
		t.Fatal("expected forwarded ack to reach the caller's callback")
	}
}

func TestMessageLifecycleOps(t *testing.T) {
	b, fake := newTestBot(t)

	tests := []struct {
		name string
		call func() error
		kind events.Kind
	}{
		{name: "received", call: func() error { return b.MarkReceived(11) }, kind: events.BotMessageReceived},
		{name: "watched", call: func() error { return b.MarkWatched(11) }, kind: events.BotMessageWatched},
		{name: "delete", call: func() error { return b.DeleteMessage(11) }, kind: events.DeleteBotMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			emits := fake.emitted()
			last := emits[len(emits)-1]
			if last.kind != tt.kind {
				t.Fatalf("expected kind %q, got %q", tt.kind, last.kind)
			}
			want := events.MessageRef{ID: 11}
			if last.payload != want {
				t.Fatalf("expected payload %+v, got %+v", want, last.payload)
			}
		})
	}
}

func TestEmitErrorSurfaces(t *testing.T) {
	b, fake := newTestBot(t)
	fake.emitErr = transport.ErrNotConnected

	if err := b.SendMessage(5, "hi"); !errors.Is(err, transport.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// keyboard operations
// ---------------------------------------------------------------------------

func TestTurnOnKeyboard(t *testing.T) {
	b, fake := newTestBot(t)
	mustButton(t, b, "Yes")
	mustButton(t, b, "No")

	if err := b.TurnOnKeyboard(9); err != nil {
		t.Fatalf("TurnOnKeyboard: %v", err)
	}

	emits := fake.emitted()
	if len(emits) != 1 {
		t.Fatalf("expected 1 emit, got %d", len(emits))
	}
	if emits[0].kind != events.SetBotKeyboard {
		t.Fatalf("expected kind %q, got %q", events.SetBotKeyboard, emits[0].kind)
	}
	req := emits[0].payload.(events.KeyboardRequest)
	if req.Cid != 9 {
		t.Fatalf("expected cid 9, got %d", req.Cid)
	}
	if req.Action != events.KeyboardShow {
		t.Fatalf("expected action %q, got %q", events.KeyboardShow, req.Action)
	}
	want := [][]events.Button{{
		{Text: "Yes", CallbackData: "Yes"},
		{Text: "No", CallbackData: "No"},
	}}
	if !reflect.DeepEqual(req.Keyboard, want) {
		t.Fatalf("expected keyboard %+v, got %+v", want, req.Keyboard)
	}
}

func TestTurnOffKeyboard(t *testing.T) {
	b, fake := newTestBot(t)
	mustButton(t, b, "Yes")

	if err := b.TurnOffKeyboard(9); err != nil {
		t.Fatalf("TurnOffKeyboard: %v", err)
	}

	req := fake.emitted()[0].payload.(events.KeyboardRequest)
	if req.Action != events.KeyboardHide {
		t.Fatalf("expected action %q, got %q", events.KeyboardHide, req.Action)
	}
}

func TestTurnOnKeyboardWithoutButtons(t *testing.T) {
	b, fake := newTestBot(t)

	err := b.TurnOnKeyboard(9)
	var verr *events.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "keyboard" {
		t.Fatalf("expected field keyboard, got %q", verr.Field)
	}
	if len(fake.emitted()) != 0 {
		t.Fatal("expected no emit for an invalid keyboard request")
	}
}

func TestKeyboardColumnsFromSettings(t *testing.T) {
	b, _ := newTestBot(t)
	b.settings.KeyboardCols = 2
	for _, label := range []string{"A", "B", "C"} {
		mustButton(t, b, label)
	}

	kb := b.Keyboard()
	if len(kb) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(kb))
	}
	if len(kb[0]) != 2 || len(kb[1]) != 1 {
		t.Fatalf("expected row sizes 2 and 1, got %d and %d", len(kb[0]), len(kb[1]))
	}
}

// ---------------------------------------------------------------------------
// lifecycle
// ---------------------------------------------------------------------------

func TestLifecycleDelegates(t *testing.T) {
	b, fake := newTestBot(t)

	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !fake.connected {
		t.Fatal("expected Connect to reach the session")
	}
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fake.closed {
		t.Fatal("expected Close to reach the session")
	}
}

func TestNewBindsDispatcher(t *testing.T) {
	b, fake := newTestBot(t)

	var got *events.Outcome
	b.Message(func(ev *events.Outcome, api API) error {
		got = ev
		return nil
	})

	fake.anyFn(events.BotMessageEvent.String(), messageFrame(t, 7, events.DataContent{Type: events.DataTypeText, Text: "hi"}))

	if got == nil {
		t.Fatal("expected the dispatcher bound by New to route the event")
	}
	if got.Cid != 7 {
		t.Fatalf("expected cid 7, got %d", got.Cid)
	}
}

func mustButton(t *testing.T, b *Bot, label string) {
	t.Helper()
	if err := b.Button(label, func(ev *events.Outcome, api API) error { return nil }); err != nil {
		t.Fatalf("Button(%q): %v", label, err)
	}
}
