package session

import (
	"fmt"
	"log"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/gluk-w/claworc/shellhub/internal/logutil"
)

// AuthResolver builds the client authentication chain for a remote session:
// the supplied password is tried once, then every identity the running
// ssh-agent offers, in agent order, until one is accepted.
type AuthResolver struct {
	// AgentSocket is the ssh-agent socket path. Empty means $SSH_AUTH_SOCK.
	AgentSocket string
}

func (r *AuthResolver) socket() string {
	if r.AgentSocket != "" {
		return r.AgentSocket
	}
	return os.Getenv("SSH_AUTH_SOCK")
}

// Methods returns the auth methods for secret. The release func closes the
// agent connection and must be called once authentication is over. When no
// password is given and no agent is reachable the error wraps
// ErrAuthentication.
func (r *AuthResolver) Methods(secret *Secret) ([]ssh.AuthMethod, func(), error) {
	var methods []ssh.AuthMethod
	release := func() {}

	if pw, ok := secret.password(); ok {
		methods = append(methods, ssh.Password(pw))
	}

	var agentErr error
	if sock := r.socket(); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			agentErr = err
			log.Printf("[ssh-session] ssh-agent at %s unavailable: %v", logutil.SanitizeForLog(sock), err)
		} else {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			release = func() { conn.Close() }
		}
	}

	if len(methods) == 0 {
		if agentErr != nil {
			return nil, release, fmt.Errorf("%w: no password provided and ssh-agent unavailable: %w", ErrAuthentication, agentErr)
		}
		return nil, release, fmt.Errorf("%w: no password provided and no ssh-agent configured", ErrAuthentication)
	}
	return methods, release, nil
}
