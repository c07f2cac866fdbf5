package session

import (
	"context"

	"github.com/uttaranchal/gyandoot/backend/internal/model/chat"
	"github.com/uttaranchal/gyandoot/backend/internal/service/orchestrator"
)

// Orchestrator is the server-side capability a controller submits queries to.
type Orchestrator interface {
	Orchestrate(ctx context.Context, history []chat.Turn, query string) (*orchestrator.Result, error)
}

// SpeechInputPort abstracts the speech-recognition capability. Start begins a
// capture session for the given locale; the adapter delivers exactly one final
// transcript (or one error) back to the controller via HandleTranscript /
// HandleRecognitionError. Stop aborts the capture.
type SpeechInputPort interface {
	Start(ctx context.Context, locale string) error
	Stop()
}

// AudioOutputPort abstracts audio playback. The controller guarantees at most
// one track is active at a time; end-of-track and playback errors come back
// through HandlePlaybackEnded / HandlePlaybackError.
type AudioOutputPort interface {
	Play(messageID, audioRef string) error
	Pause(messageID string) error
	Resume(messageID string) error
	Stop(messageID string) error
}
