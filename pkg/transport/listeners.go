package transport

import (
	"encoding/json"
	"sync"
)

// listenerTable dispatches inbound events to registered listeners. Named
// listeners run before catch-all listeners. Handlers are invoked outside the
// lock so they may register further listeners.
type listenerTable struct {
	mu    sync.RWMutex
	named map[string][]EventFunc
	any   []AnyFunc
}

func newListenerTable() *listenerTable {
	return &listenerTable{named: make(map[string][]EventFunc)}
}

func (l *listenerTable) on(event string, fn EventFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.named[event] = append(l.named[event], fn)
}

func (l *listenerTable) onAny(fn AnyFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.any = append(l.any, fn)
}

func (l *listenerTable) dispatch(event string, payload json.RawMessage) int {
	l.mu.RLock()
	named := make([]EventFunc, len(l.named[event]))
	copy(named, l.named[event])
	catchAll := make([]AnyFunc, len(l.any))
	copy(catchAll, l.any)
	l.mu.RUnlock()

	for _, fn := range named {
		fn(payload)
	}
	for _, fn := range catchAll {
		fn(event, payload)
	}
	return len(named) + len(catchAll)
}
