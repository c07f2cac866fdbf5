package speech

// Config holds credentials and defaults for the speech provider.
type Config struct {
	AppID       string `json:"appId"`
	AccessToken string `json:"accessToken"`
	BaseURL     string `json:"baseUrl"`

	ASRLanguage string `json:"asrLanguage"`

	TTSVoice    string  `json:"ttsVoice"`
	TTSSpeed    float32 `json:"ttsSpeed"`
	TTSVolume   float32 `json:"ttsVolume"`
	TTSLanguage string  `json:"ttsLanguage"`

	Timeout int `json:"timeout"` // seconds
}
