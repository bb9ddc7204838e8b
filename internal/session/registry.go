package session

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Kind distinguishes the two session drivers.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Info describes a registered session for listing.
type Info struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Target    string    `json:"target,omitempty"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// handle is the registry's view of a session. Each driver keeps its own
// internals behind it: the local variant owns the process stdin, the remote
// variant owns the sending end of the SSH worker's mailbox.
type handle interface {
	info() Info
	sendInput(text string) error
	// close requests an orderly shutdown initiated by the user.
	close()
	// disconnect tears the session down because the manager is going away.
	disconnect()
}

// registry maps session ids to handles. The lock guards the map only; handle
// operations always run after it is released.
type registry struct {
	mu      sync.Mutex
	handles map[string]handle
}

func newRegistry() *registry {
	return &registry{handles: make(map[string]handle)}
}

func (r *registry) register(id string, h handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handles[id]; exists {
		return fmt.Errorf("session %q already registered", id)
	}
	r.handles[id] = h
	return nil
}

// withHandle runs fn against the handle registered under id.
func (r *registry) withHandle(id string, fn func(handle) error) error {
	r.mu.Lock()
	h, ok := r.handles[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return fn(h)
}

func (r *registry) remove(id string) (handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if ok {
		delete(r.handles, id)
	}
	return h, ok
}

// drain removes and returns every handle.
func (r *registry) drain() []handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]handle, 0, len(r.handles))
	for id, h := range r.handles {
		out = append(out, h)
		delete(r.handles, id)
	}
	return out
}

func (r *registry) contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[id]
	return ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// snapshot returns the info of every registered session, oldest first.
func (r *registry) snapshot() []Info {
	r.mu.Lock()
	handles := make([]handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	infos := make([]Info, 0, len(handles))
	for _, h := range handles {
		infos = append(infos, h.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}
