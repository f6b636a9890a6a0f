// Package progress fans import progress out to any number of listeners.
package progress

import "sync"

const (
	subscriberBuffer = 16
	maxRetained      = 256
)

// Event is a snapshot of one import's state.
type Event struct {
	ImportID     string `json:"importId"`
	Status       string `json:"status"`
	TotalRows    int    `json:"total"`
	Processed    int    `json:"processed"`
	InsertedRows int    `json:"inserted"`
	SkippedRows  int    `json:"skipped"`
	FailedRows   int    `json:"failed"`
	Message      string `json:"error,omitempty"`
	Done         bool   `json:"done"`
}

// Hub keeps the latest event per import and delivers new events to
// subscribers. A slow subscriber loses intermediate events but always
// receives the most recent one.
type Hub struct {
	mu    sync.Mutex
	subs  map[string]map[chan Event]struct{}
	last  map[string]Event
	order []string
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
		last: make(map[string]Event),
	}
}

// Subscribe returns a channel of events for importID and a cancel func.
// The current state, if any, is delivered first. The channel is closed
// after the terminal event or when cancel is called.
func (h *Hub) Subscribe(importID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()

	if ev, ok := h.last[importID]; ok {
		ch <- ev
		if ev.Done {
			close(ch)
			return ch, func() {}
		}
	}
	if h.subs[importID] == nil {
		h.subs[importID] = make(map[chan Event]struct{})
	}
	h.subs[importID][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[importID]; ok {
				if _, live := set[ch]; live {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(h.subs, importID)
				}
			}
		})
	}
	return ch, cancel
}

// Publish records ev as the latest state and forwards it to subscribers.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, seen := h.last[ev.ImportID]; !seen {
		h.order = append(h.order, ev.ImportID)
		h.evict()
	}
	h.last[ev.ImportID] = ev

	for ch := range h.subs[ev.ImportID] {
		deliver(ch, ev)
		if ev.Done {
			close(ch)
		}
	}
	if ev.Done {
		delete(h.subs, ev.ImportID)
	}
}

// Subscribers reports how many listeners importID has.
func (h *Hub) Subscribers(importID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[importID])
}

// evict drops the oldest finished imports once too many are retained.
func (h *Hub) evict() {
	for len(h.order) > maxRetained {
		victim := -1
		for i, id := range h.order {
			if h.last[id].Done {
				victim = i
				break
			}
		}
		if victim < 0 {
			return
		}
		delete(h.last, h.order[victim])
		h.order = append(h.order[:victim], h.order[victim+1:]...)
	}
}

func deliver(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	// full: drop the oldest queued event to make room
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
