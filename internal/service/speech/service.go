package speech

import (
	"context"
	"time"

	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
)

// Service fronts the speech provider: synthesis for the orchestrator and
// transcription for voice capture.
type Service struct {
	config    *speechmodel.Config
	ttsClient *TTSClient
	asrClient *ASRClient
}

// NewService builds the speech service from provider configuration.
func NewService(config *speechmodel.Config) *Service {
	return &Service{
		config:    config,
		ttsClient: NewTTSClient(config),
		asrClient: NewASRClient(config),
	}
}

// Synthesize implements the orchestrator's SpeechSynthesizer port: it returns
// the opaque audio reference for the given answer text.
func (s *Service) Synthesize(ctx context.Context, text, language string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.ttsClient.Synthesize(ctx, &speechmodel.TTSRequest{
		Text:     text,
		Language: language,
	})
	if err != nil {
		return "", err
	}
	return resp.AudioRef, nil
}

// SynthesizeRequest runs a full synthesis request, returning raw audio.
func (s *Service) SynthesizeRequest(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.ttsClient.Synthesize(ctx, req)
}

// Transcribe turns one recorded capture into its final transcript.
func (s *Service) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.asrClient.Transcribe(ctx, req)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config == nil || s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(s.config.Timeout)*time.Second)
}
