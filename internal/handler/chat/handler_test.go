package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uttaranchal/gyandoot/backend/internal/model/chat"
	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
	"github.com/uttaranchal/gyandoot/backend/internal/service/orchestrator"
	"github.com/uttaranchal/gyandoot/backend/internal/service/session"
	speechservice "github.com/uttaranchal/gyandoot/backend/internal/service/speech"
)

type fakeOrchestrator struct {
	result  *orchestrator.Result
	err     error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeOrchestrator) Orchestrate(ctx context.Context, history []chat.Turn, query string) (*orchestrator.Result, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &orchestrator.Result{Answer: "answer to: " + query, Language: "en-IN"}, nil
}

type fakeSlang struct {
	err error
}

func (f *fakeSlang) AdaptToRegionalSlang(ctx context.Context, text, language, region string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s (%s, %s)", text, language, region), nil
}

func newTestRouter(orc Orchestrator, slang SlangAdapter, sessions *session.Manager) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		New(orc, slang, sessions, nil).RegisterRoutes(api)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := postJSON(t, router, "/api/session", map[string]string{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", rec.Code)
	}

	var resp struct {
		Session chat.Session `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if resp.Session.ID == "" {
		t.Fatal("create response carries no session id")
	}
	return resp.Session.ID
}

func TestCreateSessionIncludesGreeting(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)

	rec := postJSON(t, router, "/api/session", map[string]string{"locale": "hi-IN"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp struct {
		Session  chat.Session   `json:"session"`
		Messages []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Session.Locale != "hi-IN" {
		t.Errorf("locale = %q, want hi-IN", resp.Session.Locale)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Content != session.Greeting {
		t.Errorf("expected the greeting as the only message, got %+v", resp.Messages)
	}
}

func TestSubmitAppendsExchange(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	rec := postJSON(t, router, "/api/session/"+id+"/messages", map[string]string{"query": "hostel fees?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Message  chat.Message   `json:"message"`
		Messages []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message.Content != "answer to: hostel fees?" {
		t.Errorf("bot answer = %q", resp.Message.Content)
	}
	if len(resp.Messages) != 3 {
		t.Errorf("message count = %d, want 3", len(resp.Messages))
	}
}

func TestSubmitBlankQueryRejected(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	rec := postJSON(t, router, "/api/session/"+id+"/messages", map[string]string{"query": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)

	rec := postJSON(t, router, "/api/session/no-such-id/messages", map[string]string{"query": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitWhileInFlightConflicts(t *testing.T) {
	orc := &fakeOrchestrator{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	done := make(chan struct{})
	go func() {
		defer close(done)
		postJSON(t, router, "/api/session/"+id+"/messages", map[string]string{"query": "first"})
	}()

	<-orc.started
	rec := postJSON(t, router, "/api/session/"+id+"/messages", map[string]string{"query": "second"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}

	close(orc.block)
	<-done
}

func TestSubmitFailureYieldsApology(t *testing.T) {
	orc := &fakeOrchestrator{err: errors.New("model down")}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	rec := postJSON(t, router, "/api/session/"+id+"/messages", map[string]string{"query": "anything"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Message chat.Message `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message.Content != session.Apology {
		t.Errorf("bot answer = %q, want the apology", resp.Message.Content)
	}
}

func TestPlaybackUnknownMessage(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	rec := postJSON(t, router, "/api/session/"+id+"/playback", map[string]string{"messageId": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPlaybackMessageWithoutAudio(t *testing.T) {
	orc := &fakeOrchestrator{result: &orchestrator.Result{Answer: "plain", Language: "en-IN"}}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	rec := postJSON(t, router, "/api/session/"+id+"/messages", map[string]string{"query": "q"})
	var submitResp struct {
		Message chat.Message `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitResp); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}

	rec = postJSON(t, router, "/api/session/"+id+"/playback", map[string]string{"messageId": submitResp.Message.ID})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPlaybackToggleWithAudio(t *testing.T) {
	orc := &fakeOrchestrator{result: &orchestrator.Result{
		Answer:    "spoken",
		Language:  "en-IN",
		AudioData: "data:audio/mp3;base64,AAE=",
	}}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	rec := postJSON(t, router, "/api/session/"+id+"/messages", map[string]string{"query": "q"})
	var submitResp struct {
		Message chat.Message `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitResp); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}

	rec = postJSON(t, router, "/api/session/"+id+"/playback", map[string]string{"messageId": submitResp.Message.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Playback session.PlaybackState `json:"playback"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Playback.Status != session.PlaybackPlaying {
		t.Errorf("playback status = %q, want playing", resp.Playback.Status)
	}
}

func TestSetLocale(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	rec := postJSON(t, router, "/api/session/"+id+"/locale", map[string]string{"locale": "hi-IN"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	c, err := sessions.Get(id)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if c.Locale() != "hi-IN" {
		t.Errorf("locale = %q, want hi-IN", c.Locale())
	}
}

func TestCaptureUnavailableWithoutPort(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	rec := postJSON(t, router, "/api/session/"+id+"/capture/start", map[string]string{})
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

type fakeTranscriber struct {
	text string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	return &speechmodel.ASRResponse{Text: f.text}, nil
}

func TestCaptureUploadYieldsPendingInput(t *testing.T) {
	orc := &fakeOrchestrator{}
	hub := speechservice.NewCaptureHub(&fakeTranscriber{text: "library timings"})
	sessions := session.NewManager(orc, session.PortFactory{
		Input: func(c *session.Controller) session.SpeechInputPort {
			return hub.InputPort(c.ID(), c)
		},
	}, "en-IN")

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		New(orc, nil, sessions, hub).RegisterRoutes(api)
	})
	id := createSession(t, r)

	rec := postJSON(t, r, "/api/session/"+id+"/capture/start", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("capture start status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte{0x01, 0x02}); err != nil {
		t.Fatalf("failed to write audio: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/session/"+id+"/capture/audio", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("capture audio status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	c, err := sessions.Get(id)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}

	deadline := time.After(time.Second)
	for c.PendingInput() != "library timings" {
		select {
		case <-deadline:
			t.Fatalf("pending input = %q, want transcript", c.PendingInput())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCaptureUploadWithoutActiveCapture(t *testing.T) {
	orc := &fakeOrchestrator{}
	hub := speechservice.NewCaptureHub(&fakeTranscriber{text: "ignored"})
	sessions := session.NewManager(orc, session.PortFactory{
		Input: func(c *session.Controller) session.SpeechInputPort {
			return hub.InputPort(c.ID(), c)
		},
	}, "en-IN")

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		New(orc, nil, sessions, hub).RegisterRoutes(api)
	})
	id := createSession(t, r)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("audio", "clip.wav")
	part.Write([]byte{0x01})
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/session/"+id+"/capture/audio", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRemoveSession(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)
	id := createSession(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/api/session/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if _, err := sessions.Get(id); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("expected session to be removed, got err=%v", err)
	}
}

func TestStatelessChat(t *testing.T) {
	orc := &fakeOrchestrator{result: &orchestrator.Result{
		Answer:    "Our B.Tech admissions are open.",
		Language:  "en-IN",
		AudioData: "data:audio/mp3;base64,AAE=",
	}}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)

	rec := postJSON(t, router, "/api/chat", map[string]any{
		"history": []chat.Turn{{Role: chat.RoleUser, Content: "hello"}},
		"query":   "admissions?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp orchestrator.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Answer != "Our B.Tech admissions are open." || resp.AudioData == "" {
		t.Errorf("unexpected result: %+v", resp)
	}
}

func TestStatelessChatUnavailable(t *testing.T) {
	sessions := session.NewManager(&fakeOrchestrator{}, session.PortFactory{}, "en-IN")
	router := newTestRouter(nil, nil, sessions)

	rec := postJSON(t, router, "/api/chat", map[string]string{"query": "hi"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStatelessChatUpstreamFailure(t *testing.T) {
	orc := &fakeOrchestrator{err: orchestrator.ErrOrchestration}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, nil, sessions)

	rec := postJSON(t, router, "/api/chat", map[string]string{"query": "hi"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSlangAdaptation(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, &fakeSlang{}, sessions)

	rec := postJSON(t, router, "/api/slang", map[string]string{
		"text":     "Welcome to the campus",
		"language": "hi-IN",
		"region":   "Garhwal",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["text"] != "Welcome to the campus (hi-IN, Garhwal)" {
		t.Errorf("adapted text = %q", resp["text"])
	}
}

func TestSlangRequiresRegion(t *testing.T) {
	orc := &fakeOrchestrator{}
	sessions := session.NewManager(orc, session.PortFactory{}, "en-IN")
	router := newTestRouter(orc, &fakeSlang{}, sessions)

	rec := postJSON(t, router, "/api/slang", map[string]string{"text": "hello"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
