package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
)

const defaultTTSEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// TTSClient synthesizes speech over the provider's streaming websocket API.
type TTSClient struct {
	config *speechmodel.Config
	dialer *websocket.Dialer
}

// NewTTSClient builds a synthesis client from the provider configuration.
func NewTTSClient(config *speechmodel.Config) *TTSClient {
	return &TTSClient{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
	}
}

type ttsRequestPayload struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate"`
	SpeedRatio  float32 `json:"speed_ratio,omitempty"`
	VolumeRatio float32 `json:"volume_ratio,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// Synthesize runs one synthesis request and collects the audio stream.
func (c *TTSClient) Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("TTS text is empty")
	}

	appID, accessToken, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSpace(c.config.BaseURL)
	if endpoint == "" {
		endpoint = defaultTTSEndpoint
	}

	format := strings.TrimSpace(req.Format)
	if format == "" {
		format = "mp3"
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", accessToken)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS websocket: %w", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	payload := c.buildRequestPayload(req, format)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return nil, fmt.Errorf("failed to send TTS request: %w", err)
	}

	return c.collectAudio(ctx, conn, req, format)
}

func (c *TTSClient) buildRequestPayload(req *speechmodel.TTSRequest, format string) *ttsRequestPayload {
	payload := &ttsRequestPayload{}
	payload.User.UID = req.SessionID

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = strings.TrimSpace(c.config.TTSVoice)
	}

	speed := req.Speed
	if speed == 0 {
		speed = c.config.TTSSpeed
	}
	volume := req.Volume
	if volume == 0 {
		volume = c.config.TTSVolume
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = c.config.TTSLanguage
	}

	payload.ReqParams.Speaker = voice
	payload.ReqParams.Text = req.Text
	payload.ReqParams.Language = language
	payload.ReqParams.AudioParams = ttsAudioParams{
		Format:      format,
		SampleRate:  24000,
		SpeedRatio:  speed,
		VolumeRatio: volume,
	}

	return payload
}

func (c *TTSClient) collectAudio(ctx context.Context, conn *websocket.Conn, req *speechmodel.TTSRequest, format string) (*speechmodel.TTSResponse, error) {
	var audio bytes.Buffer
	var requestID string
	var durationMS int64

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && audio.Len() > 0 {
				break
			}
			return nil, fmt.Errorf("failed to read TTS response: %w", err)
		}

		var msg ttsServerMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode TTS response: %w", err)
		}

		if msg.Code != 0 {
			return nil, fmt.Errorf("TTS server error %d: %s", msg.Code, msg.Message)
		}

		if msg.ReqID != "" {
			requestID = msg.ReqID
		}

		if msg.Data != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode TTS audio chunk: %w", err)
			}
			audio.Write(chunk)
		}

		if msg.Addition.Duration != "" {
			if parsed, err := strconv.ParseInt(msg.Addition.Duration, 10, 64); err == nil {
				durationMS = parsed
			}
		}

		// A negative sequence number marks the final chunk.
		if msg.Sequence < 0 {
			break
		}
	}

	if audio.Len() == 0 {
		return nil, fmt.Errorf("TTS synthesis produced no audio")
	}

	data := audio.Bytes()
	return &speechmodel.TTSResponse{
		SessionID: req.SessionID,
		AudioData: data,
		AudioRef:  AudioDataURI(data, format),
		Duration:  durationMS,
		Format:    format,
		RequestID: requestID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AudioDataURI wraps raw audio bytes as the opaque reference handed to the
// session log.
func AudioDataURI(data []byte, format string) string {
	if len(data) == 0 {
		return ""
	}
	return "data:audio/" + format + ";base64," + base64.StdEncoding.EncodeToString(data)
}
