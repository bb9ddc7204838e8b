// Package handlers implements the HTTP command API and event stream of the
// session service.
package handlers

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gluk-w/claworc/shellhub/internal/database"
	"github.com/gluk-w/claworc/shellhub/internal/events"
	"github.com/gluk-w/claworc/shellhub/internal/session"
)

// SessionManager is the part of *session.Manager the API uses.
type SessionManager interface {
	CreateSession(desc *session.ConnectionDescriptor, secret *session.Secret) (string, error)
	SendInput(sessionID, text string) error
	CloseSession(sessionID string) error
	Sessions() []session.Info
	Len() int
}

// ConnectionDirectory stores connection profiles.
type ConnectionDirectory interface {
	List(ctx context.Context) ([]database.Connection, error)
	Get(ctx context.Context, id string) (*database.Connection, error)
	Create(ctx context.Context, c *database.Connection) error
	Delete(ctx context.Context, id string) error
	MarkConnected(ctx context.Context, id string, t time.Time) error
	Ping(ctx context.Context) error
}

// Handler carries the dependencies of every endpoint.
type Handler struct {
	Sessions    SessionManager
	Connections ConnectionDirectory
	Events      *events.Hub

	// MaxInputBytes limits the body of an input request.
	MaxInputBytes int64
	// CommandTimeout bounds one-shot commands.
	CommandTimeout time.Duration
}

// Routes registers the /api/v1 endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.CreateSession)
		r.Post("/{id}/input", h.SendInput)
		r.Delete("/{id}", h.CloseSession)
	})
	r.Get("/events", h.EventStream)

	r.Route("/connections", func(r chi.Router) {
		r.Get("/", h.ListConnections)
		r.Post("/", h.CreateConnection)
		r.Get("/{id}", h.GetConnection)
		r.Delete("/{id}", h.DeleteConnection)
	})

	r.Post("/terminal/run", h.RunCommand)

	r.Get("/logs", GetServerLogs)
	r.Delete("/logs", ClearServerLogs)
}
