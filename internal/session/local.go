package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// localHandle drives a shell process spawned on this machine.
type localHandle struct {
	id        string
	createdAt time.Time
	cmd       *exec.Cmd
	grace     time.Duration

	writeMu sync.Mutex
	stdin   io.WriteCloser
	closed  atomic.Bool
	exited  chan struct{}
}

func (h *localHandle) info() Info {
	state := "running"
	select {
	case <-h.exited:
		state = "exited"
	default:
		if h.closed.Load() {
			state = "closing"
		}
	}
	return Info{ID: h.id, Kind: KindLocal, Target: h.cmd.Path, State: state, CreatedAt: h.createdAt}
}

func (h *localHandle) sendInput(text string) error {
	if h.closed.Load() {
		return fmt.Errorf("%w: stdin of %s is closed", ErrIO, h.id)
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if _, err := io.WriteString(h.stdin, text); err != nil {
		return fmt.Errorf("%w: write stdin of %s: %w", ErrIO, h.id, err)
	}
	return nil
}

// close drops the write end of stdin so the shell sees EOF. A shell that is
// still alive after the grace period is killed.
func (h *localHandle) close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	// Not under writeMu: a write blocked on a full pipe must not stall close.
	h.stdin.Close()
	if h.grace < 0 {
		return
	}
	go h.killAfter(h.grace)
}

func (h *localHandle) disconnect() {
	h.close()
}

func (h *localHandle) killAfter(grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-h.exited:
	case <-timer.C:
		log.Printf("[local-shell] session %s still running %s after stdin closed, killing pid %d",
			h.id, grace, h.cmd.Process.Pid)
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Printf("[local-shell] kill session %s: %v", h.id, err)
		}
	}
}

// startLocal spawns the platform shell with piped standard streams.
func (m *Manager) startLocal() (string, error) {
	name, args := m.localShellCommand()
	cmd := exec.Command(name, args...)
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("local shell stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("local shell stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("local shell stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start local shell %s: %w", name, err)
	}

	id := newSessionID()
	h := &localHandle{
		id:        id,
		createdAt: time.Now(),
		cmd:       cmd,
		grace:     m.cfg.LocalKillGrace,
		stdin:     stdin,
		exited:    make(chan struct{}),
	}
	if err := m.track(id, h); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return "", err
	}

	em := m.newEmitter(id)
	em.line(StreamStdout, "local shell started")

	var readers sync.WaitGroup
	readers.Add(2)
	for stream, r := range map[Stream]io.Reader{StreamStdout: stdout, StreamStderr: stderr} {
		go func() {
			defer readers.Done()
			if err := readLines(r, stream, em); err != nil {
				log.Printf("[local-shell] session %s %s reader stopped: %v", id, stream, err)
			}
		}()
	}

	// Wait must not run before both pipes are fully read.
	go func() {
		readers.Wait()
		err := cmd.Wait()
		close(h.exited)
		if err != nil {
			log.Printf("[local-shell] session %s exited: %v", id, err)
		} else {
			log.Printf("[local-shell] session %s exited", id)
		}
		m.finish(id, em)
	}()

	log.Printf("[session-mgr] created local session %s (pid %d, shell %s)", id, cmd.Process.Pid, name)
	return id, nil
}

func (m *Manager) localShellCommand() (string, []string) {
	if fields := strings.Fields(m.cfg.LocalShell); len(fields) > 0 {
		return fields[0], fields[1:]
	}
	return defaultLocalShell()
}

// readLines publishes every line of r tagged with stream. A final line
// without a newline is published at EOF.
func readLines(r io.Reader, stream Stream, em *emitter) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			em.line(stream, trimLineEnding(decodeLine(line)))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}
