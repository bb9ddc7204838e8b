package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/coder/websocket"

	"github.com/gluk-w/claworc/shellhub/internal/mailbox"
)

// EventStream upgrades to a WebSocket and writes every session event as one
// JSON text message. The optional session_id query parameter restricts the
// stream to one session. Client messages are ignored.
func (h *Handler) EventStream(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("session_id")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[events] failed to accept websocket: %v", err)
		return
	}
	defer conn.CloseNow()

	sub := h.Events.Subscribe(r.RemoteAddr)
	defer sub.Close()

	// CloseRead cancels ctx once the client goes away.
	ctx := conn.CloseRead(r.Context())
	log.Printf("[events] subscriber connected from %s (%d active)", r.RemoteAddr, h.Events.Count())

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, mailbox.ErrClosed) {
				if sub.Dropped() {
					conn.Close(websocket.StatusPolicyViolation, "subscriber fell behind, events were dropped")
				} else {
					conn.Close(websocket.StatusGoingAway, "event stream closed")
				}
			}
			return
		}
		if filter != "" && ev.SessionID != filter {
			continue
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("[events] marshal event: %v", err)
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			log.Printf("[events] subscriber %s gone: %v", r.RemoteAddr, err)
			return
		}
	}
}
