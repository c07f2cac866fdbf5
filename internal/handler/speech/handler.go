package speech

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
	"github.com/uttaranchal/gyandoot/backend/pkg/utils"
)

// SpeechService abstracts the speech provider so the handler can be tested
// against fakes.
type SpeechService interface {
	Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error)
	SynthesizeRequest(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error)
}

// Handler serves the raw speech surface: transcription, synthesis and a
// health probe.
type Handler struct {
	speechSvc SpeechService
}

// New creates the speech handler.
func New(speechSvc SpeechService) *Handler {
	return &Handler{speechSvc: speechSvc}
}

// RegisterRoutes mounts the speech routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(sr chi.Router) {
		sr.Post("/transcribe", h.handleTranscribe)
		sr.Post("/synthesize", h.handleSynthesize)
		sr.Get("/health", h.handleHealth)
	})
}

// RegisterUnavailableRoutes mounts 501 stubs for when the speech provider is
// not configured.
func RegisterUnavailableRoutes(r chi.Router) {
	r.Route("/speech", func(sr chi.Router) {
		unavailable := func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondError(w, http.StatusNotImplemented, "speech service not configured")
		}
		sr.Post("/transcribe", unavailable)
		sr.Post("/synthesize", unavailable)
		sr.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{
				"status":  "disabled",
				"service": "speech",
			})
		})
	})
}

// handleTranscribe accepts a multipart upload and returns the transcript.
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
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

	req := &speechmodel.ASRRequest{
		SessionID: r.FormValue("sessionId"),
		AudioData: file,
		Format:    inferAudioFormat(header.Filename),
		Language:  r.FormValue("language"),
	}

	resp, err := h.speechSvc.Transcribe(r.Context(), req)
	if err != nil {
		log.Printf("[speech] ASR error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "speech recognition failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleSynthesize runs one synthesis request. The audio bytes are returned
// directly so the browser can feed them to an audio element.
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speechmodel.TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, err := h.speechSvc.SynthesizeRequest(r.Context(), &req)
	if err != nil {
		log.Printf("[speech] TTS error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "speech synthesis failed")
		return
	}

	if len(resp.AudioData) > 0 {
		format := resp.Format
		if format == "" {
			format = "octet-stream"
		}
		w.Header().Set("Content-Type", "audio/"+format)
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(resp.AudioData); err != nil {
			log.Printf("failed to write audio response: %v", err)
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "speech",
	})
}

// inferAudioFormat maps an upload filename to the provider's format tag.
func inferAudioFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "mp3"
	case ".webm":
		return "webm"
	case ".m4a":
		return "m4a"
	case ".aac":
		return "aac"
	default:
		return "wav"
	}
}
