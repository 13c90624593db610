package catalog

import (
	"sync"
	"sync/atomic"
)

// Holder publishes the current snapshot to concurrent readers and notifies
// subscribers when it is replaced.
type Holder struct {
	current atomic.Pointer[Snapshot]

	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewHolder creates a holder; initial may be nil.
func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{subs: make(map[chan string]struct{})}
	if initial != nil {
		h.current.Store(initial)
	}
	return h
}

// Load returns the current snapshot, or nil before the first Update.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Update swaps in s and notifies subscribers with its ETag.
func (h *Holder) Update(s *Snapshot) {
	h.current.Store(s)
	h.publish(s.ETag)
}

// Subscribe registers a listener and returns its channel and an unsubscribe func.
// The channel carries ETags of new snapshots; slow listeners miss intermediate ones.
func (h *Holder) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, unsub
}

// publish notifies all listeners without blocking.
func (h *Holder) publish(etag string) {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- etag:
		default:
		}
	}
	h.mu.Unlock()
}
