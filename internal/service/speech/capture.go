package speech

import (
	"context"
	"fmt"
	"io"
	"sync"
)

type upload struct {
	audio  io.Reader
	format string
}

// UploadSource is an AudioSource fed by HTTP uploads: Record blocks until the
// browser posts the recorded clip for the active capture.
type UploadSource struct {
	ch chan upload
}

// NewUploadSource creates a source holding at most one pending upload.
func NewUploadSource() *UploadSource {
	return &UploadSource{ch: make(chan upload, 1)}
}

// Record waits for the next uploaded clip or the end of the capture.
func (s *UploadSource) Record(ctx context.Context) (io.Reader, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case u := <-s.ch:
		return u.audio, u.format, nil
	}
}

// Provide hands one uploaded clip to the waiting capture.
func (s *UploadSource) Provide(audio io.Reader, format string) error {
	select {
	case s.ch <- upload{audio: audio, format: format}:
		return nil
	default:
		return fmt.Errorf("a clip is already pending for this capture")
	}
}

// CaptureHub routes uploaded capture audio to per-session input ports.
type CaptureHub struct {
	svc Transcriber

	mu      sync.Mutex
	sources map[string]*UploadSource
}

// NewCaptureHub creates the hub over the given transcriber.
func NewCaptureHub(svc Transcriber) *CaptureHub {
	return &CaptureHub{
		svc:     svc,
		sources: make(map[string]*UploadSource),
	}
}

// InputPort builds the speech-input port for one session, registering its
// upload source under the session id.
func (h *CaptureHub) InputPort(sessionID string, sink TranscriptSink) *InputPort {
	source := NewUploadSource()

	h.mu.Lock()
	h.sources[sessionID] = source
	h.mu.Unlock()

	return NewInputPort(h.svc, source, sink)
}

// Feed delivers an uploaded clip to the session's active capture.
func (h *CaptureHub) Feed(sessionID string, audio io.Reader, format string) error {
	h.mu.Lock()
	source, ok := h.sources[sessionID]
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("no capture source for session %s", sessionID)
	}
	return source.Provide(audio, format)
}

// Remove drops the session's upload source.
func (h *CaptureHub) Remove(sessionID string) {
	h.mu.Lock()
	delete(h.sources, sessionID)
	h.mu.Unlock()
}
