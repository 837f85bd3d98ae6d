package session

import "sync"

// KeyListener handles a key press and reports whether it consumed it
type KeyListener func(key string) bool

// KeyHub is a registry of key listeners shared by a UI. Listeners registered
// later see keys first.
type KeyHub struct {
	mu        sync.Mutex
	nextID    int
	listeners []registeredListener
}

type registeredListener struct {
	id int
	fn KeyListener
}

// NewKeyHub creates an empty key hub
func NewKeyHub() *KeyHub {
	return &KeyHub{}
}

// Register adds a listener and returns a function that removes it. The
// returned function is safe to call more than once.
func (h *KeyHub) Register(fn KeyListener) (unregister func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, registeredListener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *KeyHub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, l := range h.listeners {
		if l.id == id {
			h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
			return
		}
	}
}

// Dispatch offers key to listeners, newest first, until one consumes it
func (h *KeyHub) Dispatch(key string) bool {
	h.mu.Lock()
	listeners := make([]KeyListener, len(h.listeners))
	for i, l := range h.listeners {
		listeners[len(h.listeners)-1-i] = l.fn
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		if fn(key) {
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners
func (h *KeyHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
