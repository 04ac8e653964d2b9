package bridge

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Envelope is one posted message: the sender origin plus the JSON body.
type Envelope struct {
	Origin string
	Data   []byte
}

// Bus is a page-scoped broadcast channel. Every subscriber sees every
// envelope and decides for itself whether it is relevant.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan Envelope
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Envelope)}
}

// Post marshals v and delivers it to all current subscribers.
// A subscriber whose buffer is full misses the envelope.
func (b *Bus) Post(origin string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	env := Envelope{Origin: origin, Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- env:
		default:
			slog.Warn("bridge: subscriber buffer full, dropping message", slog.Int("sub", id))
		}
	}
	return nil
}

// Subscribe registers a listener. The returned func unsubscribes and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Envelope, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Envelope, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// header is the common prefix of Message and Response.
type header struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func peek(data []byte) (header, bool) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil || h.Type == "" {
		return h, false
	}
	return h, true
}
