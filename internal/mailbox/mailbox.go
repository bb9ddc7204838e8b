// Package mailbox provides an unbounded single-consumer message queue.
//
// A Mailbox decouples producers that must never block (HTTP handlers sending
// terminal input, session runners publishing events) from a single goroutine
// that drains the queue at its own pace. Producers call Send; the consumer
// waits on Notify and drains with TryReceive, or blocks in Receive.
package mailbox

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close, and by Receive once the mailbox
// is closed and drained.
var ErrClosed = errors.New("mailbox closed")

// State reports the outcome of TryReceive.
type State int

const (
	// Received means a message was returned.
	Received State = iota
	// Empty means no message is queued but the mailbox is still open.
	Empty
	// Disconnected means the mailbox is closed and every queued message has
	// already been received.
	Disconnected
)

func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case Empty:
		return "empty"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Mailbox is an unbounded FIFO queue. Any number of goroutines may Send;
// exactly one goroutine should receive.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	notify chan struct{}
}

// New creates an open, empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Send enqueues v. It never blocks.
func (m *Mailbox[T]) Send(v T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.items = append(m.items, v)
	m.mu.Unlock()
	m.signal()
	return nil
}

// TryReceive dequeues the oldest message without blocking.
func (m *Mailbox[T]) TryReceive() (T, State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	if len(m.items) == 0 {
		if m.closed {
			return zero, Disconnected
		}
		return zero, Empty
	}
	v := m.items[0]
	m.items[0] = zero
	m.items = m.items[1:]
	return v, Received
}

// Receive blocks until a message is available, the mailbox is closed and
// drained (ErrClosed), or ctx is done.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, error) {
	for {
		v, st := m.TryReceive()
		switch st {
		case Received:
			return v, nil
		case Disconnected:
			return v, ErrClosed
		}
		select {
		case <-m.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Notify returns a channel that receives a value after Send or Close. A
// single notification may cover several messages, so the consumer must drain
// with TryReceive until Empty.
func (m *Mailbox[T]) Notify() <-chan struct{} {
	return m.notify
}

// Close disconnects the mailbox. Queued messages remain receivable.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

// Len returns the number of queued messages.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Mailbox[T]) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
