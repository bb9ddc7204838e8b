package session

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

const waitTimeout = 5 * time.Second

// recorder is an EventSink that keeps every event for inspection.
type recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 1)}
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *recorder) forSession(id string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.SessionID == id {
			out = append(out, e)
		}
	}
	return out
}

// waitFor blocks until an event of session id satisfies match.
func (r *recorder) waitFor(t *testing.T, id, what string, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		for _, e := range r.forSession(id) {
			if match(e) {
				return e
			}
		}
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %s; events: %s", what, dump(r.forSession(id)))
		}
	}
}

func (r *recorder) waitLine(t *testing.T, id string, stream Stream, data string) {
	t.Helper()
	r.waitFor(t, id, fmt.Sprintf("%s line %q", stream, data), func(e Event) bool {
		return e.Kind == EventData && e.Stream == stream && e.Data == data
	})
}

func (r *recorder) waitClosed(t *testing.T, id string) {
	t.Helper()
	r.waitFor(t, id, "closed event", func(e Event) bool { return e.Kind == EventClosed })
}

func dump(events []Event) string {
	var b strings.Builder
	for _, e := range events {
		if e.Kind == EventClosed {
			b.WriteString("\n  <closed>")
			continue
		}
		fmt.Fprintf(&b, "\n  [%s] %q", e.Stream, e.Data)
	}
	return b.String()
}

func countClosed(events []Event) int {
	n := 0
	for _, e := range events {
		if e.Kind == EventClosed {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *recorder) {
	t.Helper()
	rec := newRecorder()
	m, err := NewManager(rec, cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		if err := m.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return m, rec
}

func skipWithoutPosixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestNewManager_RequiresSink(t *testing.T) {
	if _, err := NewManager(nil, Config{}); err == nil {
		t.Fatal("NewManager(nil) should fail")
	}
}

func TestNewManager_BadKnownHosts(t *testing.T) {
	_, err := NewManager(newRecorder(), Config{KnownHostsPath: "/nonexistent/known_hosts"})
	if err == nil {
		t.Fatal("NewManager should fail for a missing known_hosts file")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.TerminalType != DefaultTerminalType || cfg.TermCols != 80 || cfg.TermRows != 24 {
		t.Errorf("terminal defaults = %q %dx%d", cfg.TerminalType, cfg.TermCols, cfg.TermRows)
	}
	if cfg.LocalKillGrace != DefaultLocalKillGrace {
		t.Errorf("LocalKillGrace = %v, want %v", cfg.LocalKillGrace, DefaultLocalKillGrace)
	}
	if cfg.ConnectTimeout <= 0 {
		t.Errorf("ConnectTimeout = %v, want > 0", cfg.ConnectTimeout)
	}

	custom := Config{LocalKillGrace: -1, TermCols: 132}.withDefaults()
	if custom.LocalKillGrace != -1 {
		t.Errorf("negative LocalKillGrace overwritten: %v", custom.LocalKillGrace)
	}
	if custom.TermCols != 132 {
		t.Errorf("TermCols = %d, want 132", custom.TermCols)
	}
}

func TestSessionIDFormat(t *testing.T) {
	a, b := newSessionID(), newSessionID()
	if a == b {
		t.Fatalf("ids collide: %s", a)
	}
	if !strings.HasPrefix(a, "session-") || len(a) != len("session-")+32 {
		t.Errorf("unexpected id %q", a)
	}
	if strings.Contains(strings.TrimPrefix(a, "session-"), "-") {
		t.Errorf("id %q should not contain uuid dashes", a)
	}
}

func TestSendInput_UnknownSession(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	err := m.SendInput("missing", "ls\n")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("SendInput(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestCloseSession_UnknownSession(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	if err := m.CloseSession("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("CloseSession(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestCreateSession_InvalidRemoteDescriptor(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	_, err := m.CreateSession(&ConnectionDescriptor{Protocol: ProtocolSSH, Username: "alice"}, nil)
	if err == nil {
		t.Fatal("CreateSession without host should fail")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d after failed create, want 0", m.Len())
	}
}

func TestShutdown_StopsSessionsAndRejectsNew(t *testing.T) {
	skipWithoutPosixShell(t)
	rec := newRecorder()
	m, err := NewManager(rec, Config{LocalShell: "/bin/sh", LocalKillGrace: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := m.CreateSession(nil, nil)
		if err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		ids = append(ids, id)
	}
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d after Shutdown, want 0", m.Len())
	}
	for _, id := range ids {
		if n := countClosed(rec.forSession(id)); n != 1 {
			t.Errorf("session %s: %d closed events, want 1", id, n)
		}
	}

	if _, err := m.CreateSession(nil, nil); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("CreateSession after Shutdown = %v, want ErrManagerClosed", err)
	}
}
