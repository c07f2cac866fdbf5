package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/uttaranchal/gyandoot/backend/internal/model/chat"
	"github.com/uttaranchal/gyandoot/backend/internal/service/orchestrator"
	"github.com/uttaranchal/gyandoot/backend/internal/service/session"
	"github.com/uttaranchal/gyandoot/backend/pkg/utils"
)

// Orchestrator is the slice of the orchestration service the handler needs.
type Orchestrator interface {
	Orchestrate(ctx context.Context, history []chat.Turn, query string) (*orchestrator.Result, error)
}

// SlangAdapter rewrites text with regional idiom.
type SlangAdapter interface {
	AdaptToRegionalSlang(ctx context.Context, text, language, region string) (string, error)
}

// AudioFeeder delivers an uploaded clip to a session's active voice capture
// and releases the capture source when the session goes away.
type AudioFeeder interface {
	Feed(sessionID string, audio io.Reader, format string) error
	Remove(sessionID string)
}

// Handler serves the conversational surface: one-shot orchestration, slang
// adaptation, and the session lifecycle.
type Handler struct {
	orc       Orchestrator
	slang     SlangAdapter
	sessions  *session.Manager
	audioFeed AudioFeeder
}

// New creates the chat handler. orc, slang and audioFeed may be nil when the
// backing capability is not configured; the corresponding routes then degrade.
func New(orc Orchestrator, slang SlangAdapter, sessions *session.Manager, audioFeed AudioFeeder) *Handler {
	return &Handler{orc: orc, slang: slang, sessions: sessions, audioFeed: audioFeed}
}

// RegisterRoutes mounts the chat and session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/slang", h.handleSlang)

	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(sr chi.Router) {
		sr.Delete("/", h.handleRemoveSession)
		sr.Get("/messages", h.handleMessages)
		sr.Post("/messages", h.handleSubmit)
		sr.Post("/playback", h.handleTogglePlayback)
		sr.Post("/locale", h.handleSetLocale)
		sr.Post("/capture/start", h.handleStartCapture)
		sr.Post("/capture/stop", h.handleStopCapture)
		sr.Post("/capture/audio", h.handleCaptureAudio)
	})
}

// handleChat runs one stateless orchestration: the caller supplies the
// conversation so far and the new query, and gets back the answer with its
// detected language and best-effort audio.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if h.orc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "answer generation unavailable")
		return
	}

	var payload struct {
		History []chat.Turn `json:"history"`
		Query   string      `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Query) == "" {
		utils.RespondError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.orc.Orchestrate(r.Context(), payload.History, payload.Query)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "failed to generate answer")
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleSlang adapts text with regional slang for a language and region.
func (h *Handler) handleSlang(w http.ResponseWriter, r *http.Request) {
	if h.slang == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "slang adaptation unavailable")
		return
	}

	var payload struct {
		Text     string `json:"text"`
		Language string `json:"language"`
		Region   string `json:"region"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if strings.TrimSpace(payload.Region) == "" {
		utils.RespondError(w, http.StatusBadRequest, "region is required")
		return
	}

	adapted, err := h.slang.AdaptToRegionalSlang(r.Context(), payload.Text, payload.Language, payload.Region)
	if err != nil {
		utils.RespondError(w, http.StatusBadGateway, "failed to adapt text")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": adapted})
}

// handleCreateSession provisions a session; the response carries the greeting
// as the first message.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Locale string `json:"locale"`
	}
	// An empty body is fine: the session falls back to the default locale.
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	c := h.sessions.Create(payload.Locale)

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"session":  c.Session(),
		"messages": c.Messages(),
	})
}

func (h *Handler) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.sessions.Get(sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	h.sessions.Remove(sessionID)
	if h.audioFeed != nil {
		h.audioFeed.Remove(sessionID)
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// handleMessages returns the full session log in conversational order.
func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"messages":   c.Messages(),
		"submitting": c.Submitting(),
		"playback":   c.Playback(),
	})
}

// handleSubmit runs one user query through the session. Overlapping
// submissions answer 409; the caller retries after the active one settles.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	var payload struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	botMsg, err := c.Submit(r.Context(), payload.Query)
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		utils.RespondError(w, http.StatusBadRequest, "query is required")
		return
	case errors.Is(err, session.ErrSubmissionInFlight):
		utils.RespondError(w, http.StatusConflict, "a submission is already in flight")
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, "submission failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message":  botMsg,
		"messages": c.Messages(),
	})
}

// handleTogglePlayback toggles playback for one bot message and returns the
// resulting playback state.
func (h *Handler) handleTogglePlayback(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	var payload struct {
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := c.TogglePlayback(payload.MessageID)
	switch {
	case errors.Is(err, session.ErrMessageNotFound):
		utils.RespondError(w, http.StatusNotFound, "message not found")
		return
	case errors.Is(err, session.ErrNoAudio):
		utils.RespondError(w, http.StatusBadRequest, "message has no audio")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"playback": state})
}

// handleSetLocale switches the locale used for recognition and phrasing.
func (h *Handler) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	var payload struct {
		Locale string `json:"locale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Locale) == "" {
		utils.RespondError(w, http.StatusBadRequest, "locale is required")
		return
	}

	c.SetLocale(payload.Locale)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"locale": c.Locale()})
}

// handleStartCapture begins voice capture in the session's locale.
func (h *Handler) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	// The capture outlives this request: it ends on stop or transcript.
	err := c.StartVoiceCapture(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, session.ErrCaptureUnavailable):
		utils.RespondError(w, http.StatusNotImplemented, "voice capture unavailable")
		return
	case err != nil:
		utils.RespondError(w, http.StatusBadGateway, "failed to start voice capture")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"capturing": c.Capturing()})
}

// handleStopCapture ends voice capture and returns any transcript that arrived
// before the stop.
func (h *Handler) handleStopCapture(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	c.StopVoiceCapture()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"capturing":    c.Capturing(),
		"pendingInput": c.PendingInput(),
	})
}

// handleCaptureAudio accepts the recorded clip for an active voice capture.
// The body is buffered before the feed so the transcription can outlive this
// request.
func (h *Handler) handleCaptureAudio(w http.ResponseWriter, r *http.Request) {
	c, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	if h.audioFeed == nil {
		utils.RespondError(w, http.StatusNotImplemented, "voice capture unavailable")
		return
	}
	if !c.Capturing() {
		utils.RespondError(w, http.StatusConflict, "no capture in progress")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio upload")
		return
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	if format == "" {
		format = "wav"
	}

	if err := h.audioFeed.Feed(c.ID(), &buf, format); err != nil {
		utils.RespondError(w, http.StatusConflict, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
}

func (h *Handler) resolveSession(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	c, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return c, true
}
