package speech

import "io"

// ASRRequest carries one voice-capture recording for transcription.
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // mp3, wav, webm, pcm
	Language  string    `json:"language"` // locale tag, e.g. hi-IN
}

// TTSRequest asks for synthesized speech for one answer.
type TTSRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice"`
	Speed     float32 `json:"speed"`  // 0.5-2.0
	Volume    float32 `json:"volume"` // 0.0-1.0
	Format    string  `json:"format"` // mp3, wav
	Language  string  `json:"language"`
}
