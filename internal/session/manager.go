package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/gluk-w/claworc/shellhub/internal/logutil"
)

// Default terminal settings for remote shells.
const (
	DefaultTerminalType = "xterm-256color"
	DefaultTermCols     = 80
	DefaultTermRows     = 24
)

// DefaultLocalKillGrace is how long a closed local shell may keep running
// after its stdin was dropped before it is killed.
const DefaultLocalKillGrace = 3 * time.Second

// ErrManagerClosed is returned by CreateSession after Shutdown.
var ErrManagerClosed = errors.New("session manager is shut down")

// Config holds the tunables of a Manager. Zero values fall back to defaults.
type Config struct {
	// LocalShell overrides the platform shell command line, e.g. "/bin/bash -i".
	LocalShell string
	// LocalKillGrace is the delay between dropping a local shell's stdin and
	// killing it. Negative disables the kill.
	LocalKillGrace time.Duration

	// ConnectTimeout bounds the TCP dial of remote sessions.
	ConnectTimeout time.Duration
	TerminalType   string
	TermCols       int
	TermRows       int
	// KnownHostsPath enables host key verification against an OpenSSH
	// known_hosts file. Empty accepts any host key.
	KnownHostsPath string
	// AgentSocket is the ssh-agent socket. Empty uses $SSH_AUTH_SOCK.
	AgentSocket string
}

func (c Config) withDefaults() Config {
	if c.LocalKillGrace == 0 {
		c.LocalKillGrace = DefaultLocalKillGrace
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.TerminalType == "" {
		c.TerminalType = DefaultTerminalType
	}
	if c.TermCols <= 0 {
		c.TermCols = DefaultTermCols
	}
	if c.TermRows <= 0 {
		c.TermRows = DefaultTermRows
	}
	return c
}

// Manager owns every running session. It is safe for concurrent use; there
// is no lock shared between sessions beyond the short registry map lock.
type Manager struct {
	cfg      Config
	sink     EventSink
	registry *registry
	auth     *AuthResolver
	hostKeys ssh.HostKeyCallback

	mu      sync.Mutex
	closed  bool
	runners sync.WaitGroup
}

// NewManager creates a Manager that publishes session events to sink.
func NewManager(sink EventSink, cfg Config) (*Manager, error) {
	if sink == nil {
		return nil, fmt.Errorf("new session manager: event sink is nil")
	}
	cfg = cfg.withDefaults()

	hostKeys := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsPath != "" {
		cb, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known hosts %s: %w", logutil.SanitizeForLog(cfg.KnownHostsPath), err)
		}
		hostKeys = cb
	} else {
		log.Printf("[session-mgr] WARNING: no known_hosts file configured, remote host keys are not verified")
	}

	return &Manager{
		cfg:      cfg,
		sink:     sink,
		registry: newRegistry(),
		auth:     &AuthResolver{AgentSocket: cfg.AgentSocket},
		hostKeys: hostKeys,
	}, nil
}

// CreateSession starts a session and returns its id. Descriptors with an
// ssh or sftp protocol open a remote shell; anything else, including a nil
// descriptor, spawns a local shell.
//
// For remote sessions the id is returned as soon as the worker is registered.
// Connection, handshake, authentication and channel failures are reported as a
// stderr event followed by the closure notification.
func (m *Manager) CreateSession(desc *ConnectionDescriptor, secret *Secret) (string, error) {
	if desc != nil && desc.Protocol.Remote() {
		if err := desc.Validate(); err != nil {
			return "", err
		}
		return m.startRemote(*desc, secret)
	}
	if desc != nil && desc.Protocol != ProtocolNone {
		log.Printf("[session-mgr] protocol %q has no shell driver, starting a local shell",
			logutil.SanitizeForLog(string(desc.Protocol)))
	}
	return m.startLocal()
}

// SendInput forwards text to the session's input stream.
func (m *Manager) SendInput(sessionID, text string) error {
	return m.registry.withHandle(sessionID, func(h handle) error {
		return h.sendInput(text)
	})
}

// CloseSession removes the session and asks its driver to shut down. Closing
// an id that is not registered returns ErrSessionNotFound.
func (m *Manager) CloseSession(sessionID string) error {
	h, ok := m.registry.remove(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, logutil.SanitizeForLog(sessionID))
	}
	h.close()
	log.Printf("[session-mgr] closed session %s", sessionID)
	return nil
}

// Sessions lists the registered sessions, oldest first.
func (m *Manager) Sessions() []Info {
	return m.registry.snapshot()
}

// Has reports whether sessionID is registered.
func (m *Manager) Has(sessionID string) bool {
	return m.registry.contains(sessionID)
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	return m.registry.len()
}

// Shutdown disconnects every session and waits for their runners to exit or
// for ctx to be done. Sessions cannot be created afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	handles := m.registry.drain()
	for _, h := range handles {
		h.disconnect()
	}
	if len(handles) > 0 {
		log.Printf("[session-mgr] disconnecting %d session(s)", len(handles))
	}

	done := make(chan struct{})
	go func() {
		m.runners.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown sessions: %w", ctx.Err())
	}
}

// track registers h and accounts for its runner. Every successful call must
// be paired with exactly one finish.
func (m *Manager) track(id string, h handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	if err := m.registry.register(id, h); err != nil {
		return err
	}
	m.runners.Add(1)
	return nil
}

// finish makes the session invisible: the registry entry goes first, then
// the single closure notification.
func (m *Manager) finish(id string, em *emitter) {
	m.registry.remove(id)
	em.closed()
	m.runners.Done()
}

func (m *Manager) newEmitter(id string) *emitter {
	return &emitter{id: id, sink: m.sink}
}

func newSessionID() string {
	return "session-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
