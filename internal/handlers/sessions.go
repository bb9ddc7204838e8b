package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gluk-w/claworc/shellhub/internal/database"
	"github.com/gluk-w/claworc/shellhub/internal/logutil"
	"github.com/gluk-w/claworc/shellhub/internal/session"
)

type connectionTarget struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Protocol string `json:"protocol"`
}

type createSessionRequest struct {
	ConnectionID string            `json:"connection_id"`
	Connection   *connectionTarget `json:"connection"`
	Password     string            `json:"password"`
}

type inputRequest struct {
	Data string `json:"data"`
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": h.Sessions.Sessions(),
	})
}

// CreateSession starts a local shell, or a remote one when the body names a
// saved connection or an ad-hoc target. An empty body is a local shell.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, 0, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var desc *session.ConnectionDescriptor
	switch {
	case req.ConnectionID != "":
		conn, err := h.Connections.Get(r.Context(), req.ConnectionID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Connection not found")
				return
			}
			log.Printf("[api] load connection %s: %v", logutil.SanitizeForLog(req.ConnectionID), err)
			writeError(w, http.StatusInternalServerError, "Failed to load connection")
			return
		}
		d := conn.Descriptor()
		desc = &d
	case req.Connection != nil:
		desc = &session.ConnectionDescriptor{
			Name:     req.Connection.Name,
			Host:     req.Connection.Host,
			Port:     req.Connection.Port,
			Username: req.Connection.Username,
			Protocol: session.ParseProtocol(req.Connection.Protocol),
		}
	}

	var secret *session.Secret
	if req.Password != "" {
		secret = &session.Secret{Password: req.Password}
	}

	id, err := h.Sessions.CreateSession(desc, secret)
	if err != nil {
		if errors.Is(err, session.ErrManagerClosed) {
			writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
			return
		}
		if desc != nil && desc.Protocol.Remote() {
			// Remote failures past validation arrive as events, so this is a bad target.
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[api] create session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	if req.ConnectionID != "" {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		if err := h.Connections.MarkConnected(ctx, req.ConnectionID, time.Now()); err != nil {
			log.Printf("[api] WARNING: mark connection %s used: %v", logutil.SanitizeForLog(req.ConnectionID), err)
		}
		cancel()
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *Handler) SendInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req inputRequest
	if err := decodeJSON(w, r, h.MaxInputBytes, &req); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Input too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Sessions.SendInput(id, req.Data); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, session.ErrIO):
			writeError(w, http.StatusGone, "Session input is closed")
		default:
			log.Printf("[api] send input to %s: %v", logutil.SanitizeForLog(id), err)
			writeError(w, http.StatusInternalServerError, "Failed to send input")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Sessions.CloseSession(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
