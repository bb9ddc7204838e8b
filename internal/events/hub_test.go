package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gluk-w/claworc/shellhub/internal/mailbox"
	"github.com/gluk-w/claworc/shellhub/internal/session"
)

func data(id, line string) session.Event {
	return session.Event{Kind: session.EventData, SessionID: id, Stream: session.StreamStdout, Data: line}
}

func next(t *testing.T, s *Subscription) session.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	e, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return e
}

func TestHub_FanOut(t *testing.T) {
	h := NewHub()
	a, b := h.Subscribe("a"), h.Subscribe("b")
	if h.Count() != 2 {
		t.Fatalf("Count = %d, want 2", h.Count())
	}

	h.Publish(data("s1", "one"))
	h.Publish(session.Event{Kind: session.EventClosed, SessionID: "s1"})

	for _, s := range []*Subscription{a, b} {
		if e := next(t, s); e.Data != "one" {
			t.Errorf("first event = %+v", e)
		}
		if e := next(t, s); e.Kind != session.EventClosed {
			t.Errorf("second event = %+v", e)
		}
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("test")
	h.Publish(data("s1", "before"))
	s.Close()
	s.Close()
	h.Publish(data("s1", "after"))

	if h.Count() != 0 {
		t.Errorf("Count = %d, want 0", h.Count())
	}
	if s.Dropped() {
		t.Error("Dropped() = true after a voluntary close")
	}
	if e := next(t, s); e.Data != "before" {
		t.Errorf("queued event = %+v", e)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, mailbox.ErrClosed) {
		t.Errorf("Next after close = %v, want ErrClosed", err)
	}
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := NewHub()
	h.MaxPending = 3
	slow := h.Subscribe("slow")
	for i := 0; i < 5; i++ {
		h.Publish(data("s1", "x"))
	}
	if h.Count() != 0 {
		t.Fatalf("slow subscriber still registered")
	}
	got := 0
	for {
		if _, err := slow.Next(context.Background()); err != nil {
			break
		}
		got++
	}
	if got != 3 {
		t.Errorf("slow subscriber received %d events, want 3", got)
	}
	if !slow.Dropped() {
		t.Error("Dropped() = false for a cut-off subscriber")
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("test")
	h.Close()
	if _, err := s.Next(context.Background()); !errors.Is(err, mailbox.ErrClosed) {
		t.Errorf("Next after hub close = %v", err)
	}
	late := h.Subscribe("late")
	if _, err := late.Next(context.Background()); !errors.Is(err, mailbox.ErrClosed) {
		t.Errorf("subscription on closed hub should be closed, got %v", err)
	}
	h.Publish(data("s1", "ignored"))
}

func TestHub_ConcurrentPublishers(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("test")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish(data("s", "x"))
			}
		}()
	}
	wg.Wait()
	for i := 0; i < 1000; i++ {
		next(t, s)
	}
}

func TestHub_IsEventSink(t *testing.T) {
	var _ session.EventSink = NewHub()
}
