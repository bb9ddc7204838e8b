// Package events fans session events out to any number of subscribers, such
// as the WebSocket clients of the event stream.
package events

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gluk-w/claworc/shellhub/internal/mailbox"
	"github.com/gluk-w/claworc/shellhub/internal/session"
)

// DefaultMaxPending is the backlog at which a subscriber is cut off.
const DefaultMaxPending = 10000

// Hub is a session.EventSink. Publish never blocks: each subscriber has its
// own unbounded queue, and a subscriber whose backlog exceeds MaxPending is
// dropped.
type Hub struct {
	MaxPending int

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{MaxPending: DefaultMaxPending, subs: make(map[*Subscription]struct{})}
}

// Subscription receives every event published after it was created.
type Subscription struct {
	// Name identifies the subscriber in logs, e.g. its remote address.
	Name string

	hub     *Hub
	inbox   *mailbox.Mailbox[session.Event]
	once    sync.Once
	dropped atomic.Bool
}

// Subscribe registers a new subscriber. On a closed hub the subscription is
// returned already closed.
func (h *Hub) Subscribe(name string) *Subscription {
	s := &Subscription{Name: name, hub: h, inbox: mailbox.New[session.Event]()}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.inbox.Close()
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *Hub) Publish(e session.Event) {
	h.mu.RLock()
	var overflow []*Subscription
	for s := range h.subs {
		if h.MaxPending > 0 && s.inbox.Len() >= h.MaxPending {
			overflow = append(overflow, s)
			continue
		}
		s.inbox.Send(e)
	}
	h.mu.RUnlock()

	for _, s := range overflow {
		log.Printf("[events] subscriber %s fell %d events behind, dropping it", s.Name, h.MaxPending)
		s.dropped.Store(true)
		s.Close()
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later events are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.closed = true
	h.mu.Unlock()
	for s := range subs {
		s.inbox.Close()
	}
}

// Next blocks for the next event. It returns mailbox.ErrClosed once the
// subscription is closed and its backlog delivered.
func (s *Subscription) Next(ctx context.Context) (session.Event, error) {
	return s.inbox.Receive(ctx)
}

// Dropped reports whether the hub cut the subscription off for falling
// behind. Events queued before the cut-off remain readable.
func (s *Subscription) Dropped() bool {
	return s.dropped.Load()
}

// Close unsubscribes. Events already queued can still be read with Next.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		s.inbox.Close()
	})
}
