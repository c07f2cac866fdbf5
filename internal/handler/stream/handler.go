package stream

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/uttaranchal/gyandoot/backend/internal/model/chat"
	"github.com/uttaranchal/gyandoot/backend/internal/service/orchestrator"
	"github.com/uttaranchal/gyandoot/backend/internal/service/session"
	"github.com/uttaranchal/gyandoot/backend/pkg/utils"
)

// DeltaStreamer produces one answer incrementally, invoking onDelta for each
// content chunk before returning the assembled result. The answer service
// satisfies this interface.
type DeltaStreamer interface {
	StreamDeltas(ctx context.Context, history []chat.Turn, query string, onDelta func(delta string)) (*orchestrator.AnswerResult, error)
}

// Handler serves the Server-Sent Events surface: state snapshots so the
// browser can poll-free track in-flight submissions and playback, and
// token-by-token answer streams when a message is supplied.
type Handler struct {
	sessions *session.Manager
	streamer DeltaStreamer
	interval time.Duration
}

// New creates the stream handler. streamer may be nil when the model is not
// configured; delta streams then degrade to 503.
func New(sessions *session.Manager, streamer DeltaStreamer) *Handler {
	return &Handler{sessions: sessions, streamer: streamer, interval: 2 * time.Second}
}

// snapshot is one state frame pushed to the client.
type snapshot struct {
	SessionID    string                `json:"sessionId"`
	Submitting   bool                  `json:"submitting"`
	MessageCount int                   `json:"messageCount"`
	Capturing    bool                  `json:"capturing"`
	Playback     session.PlaybackState `json:"playback"`
}

// HandleStream serves one SSE connection for a session. With a ?message=
// query it streams a single answer as delta events; otherwise it pushes state
// snapshots until the client disconnects.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request, sessionID string) {
	c, err := h.sessions.Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if message := strings.TrimSpace(r.URL.Query().Get("message")); message != "" {
		h.handleDeltaStream(w, r, flusher, c, message)
		return
	}

	utils.SetupSSEHeaders(w)

	ctx := r.Context()
	log.Printf("[sse] opening state stream for session=%s", sessionID)

	h.sendSnapshot(w, flusher, c, "status")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing state stream for session=%s", sessionID)
			return
		case <-ticker.C:
			h.sendSnapshot(w, flusher, c, "state")
		}
	}
}

// handleDeltaStream streams one answer token by token. The exchange is not
// recorded in the session log; the client persists the assembled message
// through the REST surface.
func (h *Handler) handleDeltaStream(w http.ResponseWriter, r *http.Request, flusher http.Flusher, c *session.Controller, message string) {
	if h.streamer == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "answer streaming is not configured")
		return
	}

	utils.SetupSSEHeaders(w)
	log.Printf("[sse] opening delta stream for session=%s", c.ID())

	history := chat.HistoryFromMessages(c.Messages())

	result, err := h.streamer.StreamDeltas(r.Context(), history, message, func(delta string) {
		utils.SendSSEEvent(w, flusher, "delta", map[string]string{"delta": delta})
	})
	if err != nil {
		log.Printf("[sse] delta stream for session=%s failed: %v", c.ID(), err)
		utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": "answer generation failed"})
		return
	}

	utils.SendSSEEvent(w, flusher, "message", result)
	utils.SendSSEEvent(w, flusher, "end", map[string]string{"sessionId": c.ID()})
}

func (h *Handler) sendSnapshot(w http.ResponseWriter, flusher http.Flusher, c *session.Controller, event string) {
	utils.SendSSEEvent(w, flusher, event, snapshot{
		SessionID:    c.ID(),
		Submitting:   c.Submitting(),
		MessageCount: len(c.Messages()),
		Capturing:    c.Capturing(),
		Playback:     c.Playback(),
	})
}
