package interview

import (
	"log"
	"net/http"
	"time"

	"github.com/zhouzirui/z-interview/backend/pkg/utils"
)

const keepAliveInterval = 15 * time.Second

// handleEvents streams session events as Server-Sent Events. The current
// state is sent first so late subscribers can render immediately.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, release := session.Subscribe()
	defer release()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	log.Printf("[sse] opening event stream for session=%s", session.ID())
	if err := utils.SendSSEEvent(w, flusher, "state", session.State()); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing event stream for session=%s", session.ID())
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(e.Type), e); err != nil {
				log.Printf("[sse] write failed session=%s: %v", session.ID(), err)
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keepalive"); err != nil {
				return
			}
		}
	}
}
