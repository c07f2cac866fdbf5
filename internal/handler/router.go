package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/uttaranchal/gyandoot/backend/internal/handler/chat"
	speechHandler "github.com/uttaranchal/gyandoot/backend/internal/handler/speech"
	"github.com/uttaranchal/gyandoot/backend/internal/handler/stream"
	middlewarePkg "github.com/uttaranchal/gyandoot/backend/internal/middleware"
	"github.com/uttaranchal/gyandoot/backend/internal/service/session"
	"github.com/uttaranchal/gyandoot/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. orc and slang may be nil when
// the model is not configured, speechSvc and audioFeed may be nil when the
// speech provider is not configured; the affected routes degrade instead of
// disappearing.
func NewRouter(orc chatHandler.Orchestrator, slang chatHandler.SlangAdapter, sessions *session.Manager, streamer stream.DeltaStreamer, speechSvc speechHandler.SpeechService, audioFeed chatHandler.AudioFeeder) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	ch := chatHandler.New(orc, slang, sessions, audioFeed)
	streamHandler := stream.New(sessions, streamer)

	r.Route("/api", func(api chi.Router) {
		ch.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			streamHandler.HandleStream(w, r, chi.URLParam(r, "sessionID"))
		})

		if speechSvc != nil {
			speechHandler.New(speechSvc).RegisterRoutes(api)
		} else {
			speechHandler.RegisterUnavailableRoutes(api)
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
