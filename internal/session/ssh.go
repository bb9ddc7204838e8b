package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/gluk-w/claworc/shellhub/internal/mailbox"
)

// remoteState tracks the setup progress of an SSH worker.
type remoteState int32

const (
	stateConnecting remoteState = iota
	stateHandshaking
	stateAuthenticating
	stateInteractive
	stateClosing
	stateClosed
)

func (s remoteState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateHandshaking:
		return "handshaking"
	case stateAuthenticating:
		return "authenticating"
	case stateInteractive:
		return "interactive"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("remoteState(%d)", int32(s))
	}
}

type inputKind int

const (
	inputData inputKind = iota
	inputClose
)

type inputMessage struct {
	kind inputKind
	data string
}

// reasonUserClosed marks an exit requested through CloseSession. It is never
// reported as an event.
const reasonUserClosed = "closed by user"

// remoteHandle is the sending side of an SSH worker.
type remoteHandle struct {
	id        string
	target    string
	createdAt time.Time
	inbox     *mailbox.Mailbox[inputMessage]
	cancel    context.CancelFunc
	state     atomic.Int32
}

func (h *remoteHandle) info() Info {
	return Info{
		ID:        h.id,
		Kind:      KindRemote,
		Target:    h.target,
		State:     remoteState(h.state.Load()).String(),
		CreatedAt: h.createdAt,
	}
}

// sendInput queues text for the worker. Delivery happens asynchronously, so a
// write failure surfaces later as the session's exit reason.
func (h *remoteHandle) sendInput(text string) error {
	if err := h.inbox.Send(inputMessage{kind: inputData, data: text}); err != nil {
		return fmt.Errorf("%w: session %s input: %w", ErrIO, h.id, err)
	}
	return nil
}

// close asks the worker to stop. Cancelling also aborts a setup that is still
// dialing or authenticating. Send only fails once the mailbox was closed by
// a disconnect, which the worker already treats as fatal.
func (h *remoteHandle) close() {
	if err := h.inbox.Send(inputMessage{kind: inputClose}); err != nil {
		log.Printf("[ssh-session] %s close request not queued: %v", h.id, err)
	}
	h.cancel()
}

// disconnect drops the sending side without a close request, which the
// worker treats as a lost mailbox.
func (h *remoteHandle) disconnect() {
	h.inbox.Close()
	h.cancel()
}

func (m *Manager) startRemote(desc ConnectionDescriptor, secret *Secret) (string, error) {
	id := newSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	h := &remoteHandle{
		id:        id,
		target:    desc.Username + "@" + desc.Address(),
		createdAt: time.Now(),
		inbox:     mailbox.New[inputMessage](),
		cancel:    cancel,
	}
	if err := m.track(id, h); err != nil {
		cancel()
		return "", err
	}

	w := &sshWorker{
		mgr:    m,
		id:     id,
		desc:   desc,
		secret: secret,
		handle: h,
		em:     m.newEmitter(id),
		output:   make(chan []byte),
		exited:   make(chan error, 1),
		done:     make(chan struct{}),
		input:    mailbox.New[string](),
		writeErr: make(chan error, 1),
	}
	// The id is not handed out before the connecting header is queued.
	w.em.line(StreamStdout, "connecting to "+desc.label())
	go w.run(ctx)

	log.Printf("[session-mgr] created remote session %s for %s", id, h.target)
	return id, nil
}

// sshWorker owns the connection, the channel and the line buffer of one
// remote session. Everything below run executes on the worker goroutine,
// except the chunk writers fed by the SSH library and writeInput.
type sshWorker struct {
	mgr    *Manager
	id     string
	desc   ConnectionDescriptor
	secret *Secret
	handle *remoteHandle
	em     *emitter

	output chan []byte
	exited chan error
	done   chan struct{}

	// input feeds writeInput, which reports the first failed write on writeErr.
	input    *mailbox.Mailbox[string]
	writeErr chan error
}

func (w *sshWorker) setState(s remoteState) {
	w.handle.state.Store(int32(s))
}

func (w *sshWorker) run(ctx context.Context) {
	defer w.mgr.finish(w.id, w.em)
	defer w.setState(stateClosed)

	client, sess, stdin, err := w.establish(ctx)
	if err != nil {
		close(w.done)
		if ctx.Err() != nil {
			log.Printf("[ssh-session] %s closed during setup", w.id)
			return
		}
		log.Printf("[ssh-session] %s setup failed: %v", w.id, err)
		w.em.line(StreamStderr, "SSH session error: "+err.Error())
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		w.writeInput(stdin)
	}()

	reason := w.interact()
	w.setState(stateClosing)
	w.input.Close()
	close(w.done)
	// Closing the client fails a write blocked on the remote window.
	sess.Close()
	client.Close()
	<-writerDone

	if reason == reasonUserClosed {
		log.Printf("[ssh-session] %s closed by user", w.id)
		return
	}
	log.Printf("[ssh-session] %s ended: %s", w.id, reason)
	w.em.line(StreamStderr, "SSH session ended: "+reason)
}

// establish runs the setup sequence. Until the shell is up, cancelling ctx
// closes the TCP connection, which unblocks any pending protocol step.
func (w *sshWorker) establish(ctx context.Context) (*ssh.Client, *ssh.Session, io.WriteCloser, error) {
	addr := w.desc.Address()
	w.setState(stateConnecting)

	dialer := net.Dialer{Timeout: w.mgr.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: dial %s: %w", ErrConnection, addr, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	stopWatch := context.AfterFunc(ctx, func() { conn.Close() })

	client, err := w.connect(conn, addr)
	if err != nil {
		stopWatch()
		conn.Close()
		return nil, nil, nil, err
	}

	sess, stdin, err := w.openShell(client)
	if err != nil {
		stopWatch()
		client.Close()
		return nil, nil, nil, err
	}

	if !stopWatch() {
		sess.Close()
		client.Close()
		return nil, nil, nil, ctx.Err()
	}
	w.setState(stateInteractive)
	return client, sess, stdin, nil
}

func (w *sshWorker) connect(conn net.Conn, addr string) (*ssh.Client, error) {
	w.setState(stateHandshaking)

	methods, release, err := w.mgr.auth.Methods(w.secret)
	w.secret = nil
	defer release()
	if err != nil {
		return nil, err
	}

	var handshook atomic.Bool
	verify := w.mgr.hostKeys
	cfg := &ssh.ClientConfig{
		User: w.desc.Username,
		Auth: methods,
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			if err := verify(hostname, remote, key); err != nil {
				return err
			}
			// Rekeys call back again; only the first exchange is reported.
			if handshook.CompareAndSwap(false, true) {
				w.setState(stateAuthenticating)
				w.em.line(StreamStdout, "SSH handshake complete")
			}
			return nil
		},
	}

	cc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		if handshook.Load() {
			return nil, fmt.Errorf("%w: %s@%s: %w", ErrAuthentication, w.desc.Username, addr, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrHandshake, addr, err)
	}
	w.em.line(StreamStdout, "SSH authentication succeeded")
	return ssh.NewClient(cc, chans, reqs), nil
}

func (w *sshWorker) openShell(client *ssh.Client) (*ssh.Session, io.WriteCloser, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open session: %w", ErrChannel, err)
	}

	// stdout and stderr share one PTY stream on the wire.
	out := &chunkWriter{out: w.output, done: w.done}
	sess.Stdout = out
	sess.Stderr = out

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("%w: stdin pipe: %w", ErrChannel, err)
	}

	cfg := w.mgr.cfg
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(cfg.TerminalType, cfg.TermRows, cfg.TermCols, modes); err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("%w: request pty: %w", ErrChannel, err)
	}
	if err := sess.Shell(); err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("%w: start shell: %w", ErrChannel, err)
	}
	w.em.line(StreamStdout, "PTY and shell established")

	go func() { w.exited <- sess.Wait() }()
	return sess, stdin, nil
}

// interact multiplexes remote output, remote exit and queued input until the
// session ends, and returns the exit reason.
func (w *sshWorker) interact() string {
	var lines lineBuffer
	for {
		select {
		case chunk := <-w.output:
			for _, line := range lines.feed(chunk) {
				w.em.line(StreamStdout, line)
			}
		case err := <-w.exited:
			// Wait returns only after both copy loops drained into output.
			w.flush(&lines)
			return exitReason(err)
		case err := <-w.writeErr:
			w.flush(&lines)
			return fmt.Errorf("%w: write to channel: %w", ErrIO, err).Error()
		case <-w.handle.inbox.Notify():
			if reason, stop := w.drainInput(&lines); stop {
				return reason
			}
		}
	}
}

// drainInput forwards queued data to writeInput, so a remote that stops
// reading never blocks the loop.
func (w *sshWorker) drainInput(lines *lineBuffer) (string, bool) {
	for {
		msg, st := w.handle.inbox.TryReceive()
		switch st {
		case mailbox.Empty:
			return "", false
		case mailbox.Disconnected:
			w.flush(lines)
			return "session mailbox disconnected", true
		}

		if msg.kind == inputClose {
			return reasonUserClosed, true
		}
		w.input.Send(msg.data)
	}
}

// writeInput copies forwarded input to the channel until the input queue is
// closed or a write fails.
func (w *sshWorker) writeInput(stdin io.Writer) {
	for {
		data, err := w.input.Receive(context.Background())
		if err != nil {
			return
		}
		if _, err := io.WriteString(stdin, data); err != nil {
			w.writeErr <- err
			return
		}
	}
}

func (w *sshWorker) flush(lines *lineBuffer) {
	if rest, ok := lines.flush(); ok {
		w.em.line(StreamStdout, rest)
	}
}

func exitReason(err error) string {
	var exitErr *ssh.ExitError
	var missing *ssh.ExitMissingError
	switch {
	case err == nil:
		return "remote closed the channel"
	case errors.As(err, &exitErr):
		return fmt.Sprintf("remote closed the channel (exit status %d)", exitErr.ExitStatus())
	case errors.As(err, &missing):
		return "remote closed the channel"
	default:
		return fmt.Sprintf("%v: read: %v", ErrIO, err)
	}
}

// chunkWriter hands copies of remote output to the worker. Writes block until
// the worker takes the chunk or has stopped.
type chunkWriter struct {
	out  chan<- []byte
	done <-chan struct{}
}

func (c *chunkWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case c.out <- buf:
		return len(p), nil
	case <-c.done:
		return 0, io.ErrClosedPipe
	}
}
