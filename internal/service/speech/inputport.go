package speech

import (
	"context"
	"io"
	"sync"

	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
)

// Transcriber is the slice of Service the input port needs.
type Transcriber interface {
	Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error)
}

// AudioSource supplies the recorded audio for one capture session, for
// example an upload fed by the browser. Record blocks until the recording is
// complete or the context is cancelled.
type AudioSource interface {
	Record(ctx context.Context) (audio io.Reader, format string, err error)
}

// TranscriptSink receives the outcome of a capture session. The session
// controller satisfies this interface.
type TranscriptSink interface {
	HandleTranscript(text string)
	HandleRecognitionError(err error)
}

// InputPort adapts the recognition client to the session controller's
// speech-input port: one capture session yields exactly one final transcript
// or one error. At most one capture goroutine runs at a time; a restart
// cancels the previous capture and waits for it to settle so a stale result
// can never cross into the new session.
type InputPort struct {
	svc    Transcriber
	source AudioSource
	sink   TranscriptSink

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewInputPort wires a capture port for one session controller.
func NewInputPort(svc Transcriber, source AudioSource, sink TranscriptSink) *InputPort {
	return &InputPort{svc: svc, source: source, sink: sink}
}

// Start begins a capture session in the given locale. The capture runs in the
// background; the result is delivered through the sink.
func (p *InputPort) Start(ctx context.Context, locale string) error {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	prev := p.done
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	if prev != nil {
		<-prev
	}

	go p.capture(ctx, locale, done)
	return nil
}

// Stop aborts the active capture session.
func (p *InputPort) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (p *InputPort) capture(ctx context.Context, locale string, done chan struct{}) {
	defer close(done)

	audio, format, err := p.source.Record(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Explicit stop: the controller already discarded the capture.
			return
		}
		p.sink.HandleRecognitionError(err)
		return
	}

	resp, err := p.svc.Transcribe(ctx, &speechmodel.ASRRequest{
		AudioData: audio,
		Format:    format,
		Language:  locale,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.sink.HandleRecognitionError(err)
		return
	}

	if ctx.Err() != nil {
		// The capture was cancelled while the transcript was in flight.
		return
	}
	p.sink.HandleTranscript(resp.Text)
}
