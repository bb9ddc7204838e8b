package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gluk-w/claworc/shellhub/internal/database"
)

func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.Connections.List(r.Context())
	if err != nil {
		log.Printf("[api] list connections: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list connections")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"connections": conns})
}

func (h *Handler) GetConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Connections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeConnectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *Handler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var conn database.Connection
	if err := decodeJSON(w, r, 0, &conn); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Connections.Create(r.Context(), &conn); err != nil {
		writeConnectionError(w, err)
		return
	}
	log.Printf("[api] created connection %s (%s)", conn.ID, conn.Protocol)
	writeJSON(w, http.StatusCreated, conn)
}

func (h *Handler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.Connections.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeConnectionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeConnectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "Connection not found")
	case errors.Is(err, database.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[api] connection store: %v", err)
		writeError(w, http.StatusInternalServerError, "Connection store error")
	}
}
