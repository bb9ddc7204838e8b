// Package session multiplexes interactive terminal sessions behind one
// create / send-input / close contract.
//
// Two kinds of session exist:
//
//   - Local: a platform shell spawned with piped standard streams. One reader
//     goroutine per output stream publishes line events.
//   - Remote: an interactive SSH shell. A dedicated worker goroutine owns the
//     TCP connection, the SSH client and the PTY channel, and talks to the rest
//     of the system only through a [mailbox.Mailbox] of input messages.
//
// # Lifecycle
//
//  1. [Manager.CreateSession] registers a handle and returns the session id.
//     Output arrives asynchronously through the [EventSink].
//  2. [Manager.SendInput] and [Manager.CloseSession] look the handle up in the
//     registry and forward to the session's own driver.
//  3. When a runner ends (EOF, error, or explicit close) it removes its id from
//     the registry and publishes exactly one session-closed event.
//
// # Remote session states
//
//	connecting → handshaking → authenticating → interactive → closing → closed
//
// Any failure before interactive jumps to closed after a stderr event
// describing the error. Failures are classified by the sentinel errors in
// errors.go and can be matched with errors.Is.
//
// # Log Prefixes
//
// Manager operations log at [session-mgr], local shells at [local-shell] and
// SSH workers at [ssh-session].
package session
