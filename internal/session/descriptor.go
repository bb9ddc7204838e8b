package session

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Protocol is the transport named by a connection profile.
type Protocol string

const (
	ProtocolNone Protocol = ""
	ProtocolSSH  Protocol = "ssh"
	ProtocolSFTP Protocol = "sftp"
	ProtocolFTP  Protocol = "ftp"
)

// ParseProtocol maps a user-supplied protocol name. Unknown names default to ssh.
func ParseProtocol(s string) Protocol {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sftp":
		return ProtocolSFTP
	case "ftp":
		return ProtocolFTP
	case "none", "local":
		return ProtocolNone
	default:
		return ProtocolSSH
	}
}

// Remote reports whether sessions for this protocol run an SSH shell.
func (p Protocol) Remote() bool {
	return p == ProtocolSSH || p == ProtocolSFTP
}

// ConnectionDescriptor identifies a remote endpoint. It is owned by the
// connection directory and passed by value into session creation.
type ConnectionDescriptor struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Protocol Protocol `json:"protocol"`
}

// Address returns host:port, defaulting the port to 22.
func (d ConnectionDescriptor) Address() string {
	port := d.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

// Validate checks the fields required to open an SSH connection.
func (d ConnectionDescriptor) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("connection descriptor: host is empty")
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("connection descriptor: invalid port %d", d.Port)
	}
	if d.Username == "" {
		return fmt.Errorf("connection descriptor: username is empty")
	}
	return nil
}

func (d ConnectionDescriptor) label() string {
	target := d.Username + "@" + d.Address()
	if d.Name == "" {
		return target
	}
	return d.Name + " " + target
}

// Secret carries the ephemeral password for a single authentication attempt.
// It is never persisted and prints as a redacted placeholder.
type Secret struct {
	Password string
}

func (Secret) String() string   { return "[redacted]" }
func (Secret) GoString() string { return "session.Secret{[redacted]}" }

func (s *Secret) password() (string, bool) {
	if s == nil || s.Password == "" {
		return "", false
	}
	return s.Password, true
}
