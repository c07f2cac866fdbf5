package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uttaranchal/gyandoot/backend/internal/model/chat"
)

var (
	ErrEmptyQuery         = errors.New("query is empty")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrNoAudio            = errors.New("message has no audio attached")
	ErrCaptureUnavailable = errors.New("speech capture is not available")
	ErrMessageNotFound    = errors.New("message not found")
)

// Greeting opens every session as the first bot message.
const Greeting = "Namaste! I am Gyandoot, your guide to Uttaranchal University. How may I help you today?"

// Apology replaces the bot answer when orchestration fails. It carries no
// language or audio so the UI never offers playback for it.
const Apology = "Sorry, something went wrong. Please try again later."

// PlaybackStatus enumerates the playback sub-states.
type PlaybackStatus string

const (
	PlaybackIdle    PlaybackStatus = "idle"
	PlaybackPlaying PlaybackStatus = "playing"
	PlaybackPaused  PlaybackStatus = "paused"
)

// PlaybackState identifies the single now-playing track, if any.
type PlaybackState struct {
	MessageID string         `json:"messageId,omitempty"`
	Status    PlaybackStatus `json:"status"`
}

// Controller owns one conversation: the ordered message log, the single-flight
// submission lifecycle, voice-capture state and playback state. All methods
// are safe for concurrent use; the orchestration call itself runs outside the
// lock so the session stays responsive while a submission is in flight.
type Controller struct {
	id     string
	orc    Orchestrator
	input  SpeechInputPort
	audio  AudioOutputPort
	notify func(string)
	now    func() time.Time

	mu           sync.Mutex
	locale       string
	messages     []chat.Message
	submitting   bool
	capturing    bool
	pendingInput string
	playback     PlaybackState
}

// NewController seeds a session with the fixed greeting. input and audio may
// be nil when the corresponding capability is absent.
func NewController(orc Orchestrator, input SpeechInputPort, audio AudioOutputPort, locale string) *Controller {
	c := &Controller{
		id:       uuid.NewString(),
		orc:      orc,
		input:    input,
		audio:    audio,
		notify:   func(notice string) { log.Printf("[session] notice: %s", notice) },
		now:      time.Now,
		locale:   locale,
		playback: PlaybackState{Status: PlaybackIdle},
	}

	c.messages = append(c.messages, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleBot,
		Content:   Greeting,
		Language:  "en-IN",
		CreatedAt: c.now().UTC(),
	})

	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// SetNotifier replaces the user-visible notice sink.
func (c *Controller) SetNotifier(notify func(string)) {
	if notify == nil {
		return
	}
	c.mu.Lock()
	c.notify = notify
	c.mu.Unlock()
}

// Locale returns the active locale tag.
func (c *Controller) Locale() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locale
}

// SetLocale changes the locale used for speech recognition and phrasing.
func (c *Controller) SetLocale(locale string) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return
	}
	c.mu.Lock()
	c.locale = locale
	c.mu.Unlock()
}

// Messages returns a copy of the session log in conversational order.
func (c *Controller) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make([]chat.Message, len(c.messages))
	copy(copied, c.messages)
	return copied
}

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Submit runs one user query through the orchestrator. Blank queries and
// overlapping submissions are rejected without touching the log. Orchestration
// failure is absorbed into the fixed apology bot message, so a non-nil error
// always means the submission never started.
func (c *Controller) Submit(ctx context.Context, query string) (chat.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return chat.Message{}, ErrEmptyQuery
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return chat.Message{}, ErrSubmissionInFlight
	}
	c.submitting = true
	c.pendingInput = ""

	userMsg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   query,
		CreatedAt: c.now().UTC(),
	}
	c.messages = append(c.messages, userMsg)

	// History sent upstream is everything displayed so far, the new user
	// message included.
	history := chat.HistoryFromMessages(c.messages)
	c.mu.Unlock()

	result, err := c.orc.Orchestrate(ctx, history, query)

	botMsg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleBot,
		CreatedAt: c.now().UTC(),
	}
	if err != nil {
		log.Printf("[session] submission failed for session=%s: %v", c.id, err)
		botMsg.Content = Apology
	} else {
		botMsg.Content = result.Answer
		botMsg.Language = result.Language
		botMsg.AudioData = result.AudioData
	}

	c.mu.Lock()
	c.messages = append(c.messages, botMsg)
	c.submitting = false
	c.mu.Unlock()

	return botMsg, nil
}

// StartVoiceCapture begins a speech-recognition session in the active locale.
// Starting while a capture is already running is a no-op.
func (c *Controller) StartVoiceCapture(ctx context.Context) error {
	if c.input == nil {
		return ErrCaptureUnavailable
	}

	c.mu.Lock()
	if c.capturing {
		c.mu.Unlock()
		return nil
	}
	c.capturing = true
	locale := c.locale
	c.mu.Unlock()

	if err := c.input.Start(ctx, locale); err != nil {
		c.mu.Lock()
		c.capturing = false
		notify := c.notify
		c.mu.Unlock()

		log.Printf("[session] voice capture failed to start: %v", err)
		notify("Could not start voice recognition. Please check your microphone.")
		return err
	}

	return nil
}

// StopVoiceCapture aborts an active capture, discarding any transcript that
// arrives afterwards.
func (c *Controller) StopVoiceCapture() {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return
	}
	c.capturing = false
	c.mu.Unlock()

	c.input.Stop()
}

// Capturing reports whether a voice capture is active.
func (c *Controller) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// HandleTranscript receives the final transcript from the input port. The
// transcript becomes the pending input text; captures stopped by the user
// discard late transcripts.
func (c *Controller) HandleTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.capturing {
		return
	}
	c.pendingInput = text
	c.capturing = false
}

// HandleRecognitionError ends the capture and surfaces a notice.
func (c *Controller) HandleRecognitionError(err error) {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return
	}
	c.capturing = false
	notify := c.notify
	c.mu.Unlock()

	log.Printf("[session] voice recognition error: %v", err)
	notify("Could not recognize voice. Please try again.")
}

// PendingInput returns transcript text waiting to be submitted.
func (c *Controller) PendingInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingInput
}

// TogglePlayback plays, pauses or resumes the audio attached to a bot
// message. Starting a different track stops the current one first; at most one
// track is ever active. Port errors are absorbed: playback resets to idle and
// a notice is raised.
func (c *Controller) TogglePlayback(messageID string) (PlaybackState, error) {
	c.mu.Lock()

	msg, ok := c.findMessage(messageID)
	if !ok {
		state := c.playback
		c.mu.Unlock()
		return state, ErrMessageNotFound
	}
	if msg.Role != chat.RoleBot || msg.AudioData == "" {
		state := c.playback
		c.mu.Unlock()
		return state, ErrNoAudio
	}

	var portErr error
	switch {
	case c.playback.MessageID == messageID && c.playback.Status == PlaybackPlaying:
		portErr = c.pausePort(messageID)
		if portErr == nil {
			c.playback.Status = PlaybackPaused
		}
	case c.playback.MessageID == messageID && c.playback.Status == PlaybackPaused:
		portErr = c.resumePort(messageID)
		if portErr == nil {
			c.playback.Status = PlaybackPlaying
		}
	default:
		if c.playback.Status != PlaybackIdle {
			// Release the previous track before acquiring the next one.
			c.stopPort(c.playback.MessageID)
		}
		portErr = c.playPort(messageID, msg.AudioData)
		if portErr == nil {
			c.playback = PlaybackState{MessageID: messageID, Status: PlaybackPlaying}
		}
	}

	if portErr != nil {
		c.playback = PlaybackState{Status: PlaybackIdle}
		notify := c.notify
		state := c.playback
		c.mu.Unlock()

		log.Printf("[session] playback error for message=%s: %v", messageID, portErr)
		notify("Audio playback failed.")
		return state, nil
	}

	state := c.playback
	c.mu.Unlock()
	return state, nil
}

// HandlePlaybackEnded resets playback when a track finishes naturally.
func (c *Controller) HandlePlaybackEnded(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playback.MessageID != messageID {
		return
	}
	c.playback = PlaybackState{Status: PlaybackIdle}
}

// HandlePlaybackError resets playback and surfaces a notice.
func (c *Controller) HandlePlaybackError(messageID string, err error) {
	c.mu.Lock()
	if c.playback.MessageID != messageID {
		c.mu.Unlock()
		return
	}
	c.playback = PlaybackState{Status: PlaybackIdle}
	notify := c.notify
	c.mu.Unlock()

	log.Printf("[session] playback error for message=%s: %v", messageID, err)
	notify("Audio playback failed.")
}

// Playback returns the current playback state.
func (c *Controller) Playback() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playback
}

// Session returns the session metadata.
func (c *Controller) Session() chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return chat.Session{ID: c.id, Locale: c.locale, CreatedAt: c.messages[0].CreatedAt}
}

func (c *Controller) findMessage(messageID string) (chat.Message, bool) {
	for _, msg := range c.messages {
		if msg.ID == messageID {
			return msg, true
		}
	}
	return chat.Message{}, false
}

func (c *Controller) playPort(messageID, audioRef string) error {
	if c.audio == nil {
		return nil
	}
	return c.audio.Play(messageID, audioRef)
}

func (c *Controller) pausePort(messageID string) error {
	if c.audio == nil {
		return nil
	}
	return c.audio.Pause(messageID)
}

func (c *Controller) resumePort(messageID string) error {
	if c.audio == nil {
		return nil
	}
	return c.audio.Resume(messageID)
}

func (c *Controller) stopPort(messageID string) {
	if c.audio == nil {
		return
	}
	if err := c.audio.Stop(messageID); err != nil {
		log.Printf("[session] failed to stop previous track %s: %v", messageID, err)
	}
}
