package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/uttaranchal/gyandoot/backend/internal/config"
	"github.com/uttaranchal/gyandoot/backend/internal/handler"
	chatHandler "github.com/uttaranchal/gyandoot/backend/internal/handler/chat"
	speechHandler "github.com/uttaranchal/gyandoot/backend/internal/handler/speech"
	"github.com/uttaranchal/gyandoot/backend/internal/handler/stream"
	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
	"github.com/uttaranchal/gyandoot/backend/internal/service/answer"
	"github.com/uttaranchal/gyandoot/backend/internal/service/orchestrator"
	"github.com/uttaranchal/gyandoot/backend/internal/service/session"
	"github.com/uttaranchal/gyandoot/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Answer capability: the university knowledge prompt over the configured
	// chat model. Missing credentials leave it nil; sessions still work, every
	// submission then settles into the apology message.
	var answerSvc *answer.Service
	if cfg.AI.Enabled() {
		answerSvc, err = answer.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize answer service: %v", err)
			log.Println("continuing without answer generation - check the ARK_* environment variables")
		} else {
			log.Println("answer service initialized successfully")
		}
	} else {
		log.Println("model credentials not configured, skipping answer generation")
	}

	var speechSvc *speech.Service
	if cfg.Speech.Enabled {
		speechSvc = speech.NewService(&speechmodel.Config{
			AppID:       cfg.Speech.AppID,
			AccessToken: cfg.Speech.AccessToken,
			BaseURL:     cfg.Speech.BaseURL,
			ASRLanguage: cfg.Speech.ASRLanguage,
			TTSVoice:    cfg.Speech.TTSVoice,
			TTSSpeed:    cfg.Speech.TTSSpeed,
			TTSVolume:   cfg.Speech.TTSVolume,
			TTSLanguage: cfg.Speech.TTSLanguage,
			Timeout:     cfg.Speech.Timeout,
		})
		log.Println("speech service initialized successfully")
	} else {
		log.Println("speech credentials not configured, skipping speech features")
	}

	var answerCap orchestrator.AnswerCapability
	var slang chatHandler.SlangAdapter
	if answerSvc != nil {
		answerCap = answerSvc
		slang = answerSvc
	}

	var synth orchestrator.SpeechSynthesizer
	if speechSvc != nil {
		synth = speechSvc
	}

	orc := orchestrator.NewService(answerCap, synth)

	// Voice capture is wired only when recognition is available: each session
	// gets an upload-fed input port registered with the hub.
	var ports session.PortFactory
	var hub *speech.CaptureHub
	if speechSvc != nil {
		hub = speech.NewCaptureHub(speechSvc)
		ports.Input = func(c *session.Controller) session.SpeechInputPort {
			return hub.InputPort(c.ID(), c)
		}
	}

	sessions := session.NewManager(orc, ports, cfg.Chat.DefaultLocale)

	var orcForHandler chatHandler.Orchestrator
	var streamer stream.DeltaStreamer
	if answerSvc != nil {
		orcForHandler = orc
		streamer = answerSvc
	}

	var speechForHandler speechHandler.SpeechService
	var audioFeed chatHandler.AudioFeeder
	if speechSvc != nil {
		speechForHandler = speechSvc
		audioFeed = hub
	}

	router := handler.NewRouter(orcForHandler, slang, sessions, streamer, speechForHandler, audioFeed)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Gyandoot backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
