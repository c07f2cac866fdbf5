package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
)

type fakeSpeechService struct {
	asrResp *speechmodel.ASRResponse
	ttsResp *speechmodel.TTSResponse
	err     error

	lastASR *speechmodel.ASRRequest
	lastTTS *speechmodel.TTSRequest
}

func (f *fakeSpeechService) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	f.lastASR = req
	if f.err != nil {
		return nil, f.err
	}
	return f.asrResp, nil
}

func (f *fakeSpeechService) SynthesizeRequest(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	f.lastTTS = req
	if f.err != nil {
		return nil, f.err
	}
	return f.ttsResp, nil
}

func newSpeechRouter(svc SpeechService) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		if svc != nil {
			New(svc).RegisterRoutes(api)
		} else {
			RegisterUnavailableRoutes(api)
		}
	})
	return r
}

func multipartAudioRequest(t *testing.T, path, filename, language string, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatalf("failed to write audio part: %v", err)
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			t.Fatalf("failed to write language field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestTranscribeMultipartUpload(t *testing.T) {
	svc := &fakeSpeechService{asrResp: &speechmodel.ASRResponse{Text: "namaste"}}
	router := newSpeechRouter(svc)

	req := multipartAudioRequest(t, "/api/speech/transcribe", "clip.webm", "hi-IN", []byte{0x01, 0x02})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp speechmodel.ASRResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Text != "namaste" {
		t.Errorf("text = %q, want namaste", resp.Text)
	}
	if svc.lastASR.Format != "webm" {
		t.Errorf("format = %q, want webm", svc.lastASR.Format)
	}
	if svc.lastASR.Language != "hi-IN" {
		t.Errorf("language = %q, want hi-IN", svc.lastASR.Language)
	}

	data, err := io.ReadAll(svc.lastASR.AudioData)
	if err != nil {
		t.Fatalf("failed to read forwarded audio: %v", err)
	}
	if !bytes.Equal(data, []byte{0x01, 0x02}) {
		t.Errorf("forwarded audio = %v", data)
	}
}

func TestTranscribeRequiresAudioFile(t *testing.T) {
	router := newSpeechRouter(&fakeSpeechService{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/speech/transcribe", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTranscribeProviderFailure(t *testing.T) {
	router := newSpeechRouter(&fakeSpeechService{err: errors.New("provider down")})

	req := multipartAudioRequest(t, "/api/speech/transcribe", "clip.wav", "", []byte{0x01})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSynthesizeReturnsAudioBytes(t *testing.T) {
	svc := &fakeSpeechService{ttsResp: &speechmodel.TTSResponse{
		AudioData: []byte{0xAA, 0xBB},
		Format:    "mp3",
	}}
	router := newSpeechRouter(svc)

	body, _ := json.Marshal(map[string]string{"text": "Namaste"})
	req := httptest.NewRequest(http.MethodPost, "/api/speech/synthesize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mp3" {
		t.Errorf("content type = %q, want audio/mp3", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), []byte{0xAA, 0xBB}) {
		t.Errorf("body = %v", rec.Body.Bytes())
	}
	if svc.lastTTS.Text != "Namaste" {
		t.Errorf("forwarded text = %q", svc.lastTTS.Text)
	}
}

func TestSynthesizeRequiresText(t *testing.T) {
	router := newSpeechRouter(&fakeSpeechService{})

	body, _ := json.Marshal(map[string]string{"text": "  "})
	req := httptest.NewRequest(http.MethodPost, "/api/speech/synthesize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newSpeechRouter(&fakeSpeechService{})

	req := httptest.NewRequest(http.MethodGet, "/api/speech/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUnavailableRoutes(t *testing.T) {
	router := newSpeechRouter(nil)

	body, _ := json.Marshal(map[string]string{"text": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/speech/synthesize", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("synthesize status = %d, want 501", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/speech/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestInferAudioFormat(t *testing.T) {
	cases := map[string]string{
		"clip.mp3":  "mp3",
		"clip.WEBM": "webm",
		"clip.m4a":  "m4a",
		"clip.aac":  "aac",
		"clip.wav":  "wav",
		"clip.ogg":  "wav",
		"clip":      "wav",
	}
	for filename, want := range cases {
		if got := inferAudioFormat(filename); got != want {
			t.Errorf("inferAudioFormat(%q) = %q, want %q", filename, got, want)
		}
	}
}
