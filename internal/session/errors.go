package session

import "errors"

var (
	// ErrSessionNotFound is returned for ids that are not (or no longer) registered.
	ErrSessionNotFound = errors.New("session not found")
	// ErrConnection means the TCP connection to the remote host failed.
	ErrConnection = errors.New("connection error")
	// ErrHandshake means the SSH protocol handshake failed.
	ErrHandshake = errors.New("handshake error")
	// ErrAuthentication means no credential was accepted by the remote host.
	ErrAuthentication = errors.New("authentication error")
	// ErrChannel means opening the session channel, PTY or shell failed.
	ErrChannel = errors.New("channel error")
	// ErrIO means reading from or writing to a session failed.
	ErrIO = errors.New("io error")
)
