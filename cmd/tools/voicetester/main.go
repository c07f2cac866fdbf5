package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/uttaranchal/gyandoot/backend/internal/config"
	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
	"github.com/uttaranchal/gyandoot/backend/internal/service/speech"
)

// voicetester exercises the speech provider directly: transcribe a recorded
// file or synthesize text to an audio file, using real credentials.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.Speech.Enabled {
		log.Fatal("speech provider not configured: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
	}

	mode := flag.String("mode", "", "test mode: asr or tts")
	audioPath := flag.String("audio", "", "ASR input audio file path")
	text := flag.String("text", "", "TTS input text")
	outputPath := flag.String("out", "", "TTS output audio file path (generated from format when empty)")
	format := flag.String("format", "", "audio format (ASR: input format; TTS: output format)")
	language := flag.String("lang", "", "language tag, defaults to the configured language")
	voice := flag.String("voice", "", "TTS voice id, defaults to the configured TTSVoice")
	sessionID := flag.String("session", "", "custom session id, generated when empty")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		log.Fatal("specify the test mode with -mode=asr or -mode=tts")
	}

	sid := *sessionID
	if sid == "" {
		sid = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	svc := speech.NewService(&speechmodel.Config{
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, svc, cfg, sid, *audioPath, *format, *language)
	case "tts":
		runTTS(ctx, svc, cfg, sid, *text, *voice, *format, *language, *outputPath)
	}
}

func runASR(ctx context.Context, svc *speech.Service, cfg *config.Config, sessionID, audioPath, format, language string) {
	if audioPath == "" {
		log.Fatal("asr mode requires an audio file via -audio")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		log.Fatalf("failed to open audio file: %v", err)
	}
	defer file.Close()

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
		if format == "" {
			format = "wav"
		}
	}

	if language == "" {
		language = cfg.Speech.ASRLanguage
	}

	req := &speechmodel.ASRRequest{
		SessionID: sessionID,
		AudioData: file,
		Format:    format,
		Language:  language,
	}

	log.Printf("running ASR test: session=%s format=%s language=%s", sessionID, format, language)

	resp, err := svc.Transcribe(ctx, req)
	if err != nil {
		log.Fatalf("ASR request failed: %v", err)
	}

	log.Printf("ASR succeeded: text=%q confidence=%.2f duration=%dms", resp.Text, resp.Confidence, resp.Duration)
}

func runTTS(ctx context.Context, svc *speech.Service, cfg *config.Config, sessionID, text, voice, format, language, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("tts mode requires input text via -text")
	}

	if voice == "" {
		voice = cfg.Speech.TTSVoice
	}
	if language == "" {
		language = cfg.Speech.TTSLanguage
	}
	if format == "" {
		format = "mp3"
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	req := &speechmodel.TTSRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     voice,
		Format:    format,
		Language:  language,
	}

	log.Printf("running TTS test: session=%s voice=%s format=%s", sessionID, voice, format)

	resp, err := svc.SynthesizeRequest(ctx, req)
	if err != nil {
		log.Fatalf("TTS request failed: %v", err)
	}

	if err := os.WriteFile(outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}

	log.Printf("TTS succeeded: wrote %s, duration=%dms", outputPath, resp.Duration)
}
