package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/uttaranchal/gyandoot/backend/internal/model/chat"
)

// ErrOrchestration is the only failure callers observe. The underlying cause
// (model unreachable vs. malformed result) is logged but not distinguished,
// so the UI layer can surface a single fixed fallback.
var ErrOrchestration = errors.New("orchestration failed")

// AnswerResult is what the answer capability returns. Auxiliary fields the
// model may emit are dropped before reaching this struct.
type AnswerResult struct {
	Answer   string `json:"answer"`
	Language string `json:"language"`
}

// Result merges the answer with the best-effort synthesis output. AudioData
// may be empty even on success.
type Result struct {
	Answer    string `json:"answer"`
	Language  string `json:"language"`
	AudioData string `json:"audioData,omitempty"`
}

// AnswerCapability produces an answer for a query given the conversation so far.
type AnswerCapability interface {
	Generate(ctx context.Context, history []chat.Turn, query string) (*AnswerResult, error)
}

// SpeechSynthesizer turns answer text into an opaque audio reference.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, language string) (string, error)
}

// Service coordinates one answer-generation call with a parallel synthesis
// call. It is stateless; both capabilities are injected.
type Service struct {
	answer AnswerCapability
	synth  SpeechSynthesizer
}

// NewService wires the orchestrator. Either capability may be nil: a nil
// synthesizer means results never carry audio, a nil answer capability makes
// every orchestration fail.
func NewService(answer AnswerCapability, synth SpeechSynthesizer) *Service {
	return &Service{answer: answer, synth: synth}
}

// Orchestrate forwards the query to the answer capability, validates the
// response shape, and merges in synthesized audio. Synthesis failures degrade
// to an empty audio reference and never fail the call.
func (s *Service) Orchestrate(ctx context.Context, history []chat.Turn, query string) (*Result, error) {
	if s.answer == nil {
		log.Printf("[orchestrator] no answer capability configured")
		return nil, fmt.Errorf("%w: upstream error", ErrOrchestration)
	}

	answer, err := s.answer.Generate(ctx, history, query)
	if err != nil {
		log.Printf("[orchestrator] answer capability failed: %v", err)
		return nil, fmt.Errorf("%w: upstream error", ErrOrchestration)
	}

	if answer == nil || answer.Answer == "" || answer.Language == "" {
		log.Printf("[orchestrator] answer capability returned incomplete result")
		return nil, fmt.Errorf("%w: invalid response", ErrOrchestration)
	}

	audioCh := make(chan string, 1)
	go s.synthesize(ctx, answer.Answer, answer.Language, audioCh)

	return &Result{
		Answer:    answer.Answer,
		Language:  answer.Language,
		AudioData: <-audioCh,
	}, nil
}

// synthesize runs off the critical path: any failure is swallowed and logged,
// leaving the audio reference empty.
func (s *Service) synthesize(ctx context.Context, text, language string, out chan<- string) {
	if s.synth == nil {
		out <- ""
		return
	}

	ref, err := s.synth.Synthesize(ctx, text, language)
	if err != nil {
		log.Printf("[orchestrator] speech synthesis failed, returning answer without audio: %v", err)
		out <- ""
		return
	}
	out <- ref
}
