package service

import (
	"sync"

	"airdrop_backend/internal/model"
)

const subscriberBuffer = 8

type subscription struct {
	filter model.UserFilter
	ch     chan model.Message
}

// MessageHub fans pending campaign messages out to live subscribers of a
// user record.
type MessageHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

func NewMessageHub() *MessageHub {
	return &MessageHub{subs: make(map[int]subscription)}
}

// Subscribe returns a channel of messages for filter and a func that
// unsubscribes and closes the channel.
func (h *MessageHub) Subscribe(filter model.UserFilter) (<-chan model.Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	sub := subscription{filter: filter, ch: make(chan model.Message, subscriberBuffer)}
	h.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(sub.ch)
		})
	}
}

// Publish delivers msg to every subscriber of filter. Slow subscribers whose
// buffer is full miss the message.
func (h *MessageHub) Publish(filter model.UserFilter, msg model.Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, sub := range h.subs {
		if sub.filter != filter {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}
