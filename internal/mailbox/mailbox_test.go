package mailbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMailbox_FIFO(t *testing.T) {
	mb := New[int]()
	for i := 0; i < 5; i++ {
		if err := mb.Send(i); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}
	if mb.Len() != 5 {
		t.Fatalf("expected 5 queued, got %d", mb.Len())
	}
	for i := 0; i < 5; i++ {
		v, st := mb.TryReceive()
		if st != Received {
			t.Fatalf("expected Received, got %s", st)
		}
		if v != i {
			t.Errorf("expected %d, got %d", i, v)
		}
	}
	if _, st := mb.TryReceive(); st != Empty {
		t.Errorf("expected Empty, got %s", st)
	}
}

func TestMailbox_DisconnectedAfterDrain(t *testing.T) {
	mb := New[string]()
	mb.Send("a")
	mb.Close()

	if err := mb.Send("b"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Send after Close, got %v", err)
	}

	v, st := mb.TryReceive()
	if st != Received || v != "a" {
		t.Fatalf("expected queued message before disconnect, got %q/%s", v, st)
	}
	if _, st := mb.TryReceive(); st != Disconnected {
		t.Errorf("expected Disconnected, got %s", st)
	}
}

func TestMailbox_CloseIsIdempotent(t *testing.T) {
	mb := New[int]()
	mb.Close()
	mb.Close()
	if _, st := mb.TryReceive(); st != Disconnected {
		t.Errorf("expected Disconnected, got %s", st)
	}
}

func TestMailbox_NotifyOnSend(t *testing.T) {
	mb := New[int]()
	mb.Send(1)
	select {
	case <-mb.Notify():
	case <-time.After(time.Second):
		t.Fatal("expected notification after Send")
	}
}

func TestMailbox_ReceiveBlocksUntilSend(t *testing.T) {
	mb := New[int]()
	go func() {
		time.Sleep(20 * time.Millisecond)
		mb.Send(42)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := mb.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestMailbox_ReceiveContextCancelled(t *testing.T) {
	mb := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := mb.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestMailbox_ReceiveAfterClose(t *testing.T) {
	mb := New[int]()
	go func() {
		time.Sleep(20 * time.Millisecond)
		mb.Close()
	}()
	if _, err := mb.Receive(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestMailbox_ConcurrentProducers(t *testing.T) {
	mb := New[int]()
	const producers, perProducer = 8, 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				mb.Send(i)
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		_, st := mb.TryReceive()
		if st != Received {
			break
		}
		count++
	}
	if count != producers*perProducer {
		t.Errorf("expected %d messages, got %d", producers*perProducer, count)
	}
}
