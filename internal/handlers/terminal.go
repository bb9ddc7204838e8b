package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gluk-w/claworc/shellhub/internal/logutil"
	"github.com/gluk-w/claworc/shellhub/internal/terminal"
)

type runCommandRequest struct {
	Command string `json:"command"`
}

// RunCommand executes a one-shot local command and returns its output.
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	var req runCommandRequest
	if err := decodeJSON(w, r, h.MaxInputBytes, &req); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Command too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.CommandTimeout)
		defer cancel()
	}

	log.Printf("[api] run command %q", logutil.Truncate(logutil.SanitizeForLog(req.Command), 80))
	res, err := terminal.Run(ctx, req.Command)
	if err != nil {
		switch {
		case errors.Is(err, terminal.ErrEmptyCommand):
			writeError(w, http.StatusBadRequest, "Command is empty")
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "Command timed out")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}
