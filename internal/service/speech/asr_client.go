package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	speechmodel "github.com/uttaranchal/gyandoot/backend/internal/model/speech"
)

const defaultASREndpoint = "wss://openspeech.bytedance.com/api/v2/asr"

// asrChunkSize is the number of audio bytes sent per frame.
const asrChunkSize = 3200

// ASRClient transcribes recorded audio over the provider's websocket API.
type ASRClient struct {
	config *speechmodel.Config
	dialer *websocket.Dialer
}

// NewASRClient builds a recognition client from the provider configuration.
func NewASRClient(config *speechmodel.Config) *ASRClient {
	return &ASRClient{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
	}
}

type asrRequestPayload struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	Audio struct {
		Format   string `json:"format"`
		Language string `json:"language,omitempty"`
	} `json:"audio"`
	Request struct {
		ReqID      string `json:"reqid"`
		Sequence   int    `json:"sequence"`
		ShowUtters bool   `json:"show_utterances"`
	} `json:"request"`
}

type asrServerPayload struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// Transcribe streams the recording to the recognition endpoint and returns
// the final transcript.
func (c *ASRClient) Transcribe(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	if req.AudioData == nil {
		return nil, fmt.Errorf("ASR request carries no audio")
	}

	appID, accessToken, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSpace(c.config.BaseURL)
	if endpoint == "" {
		endpoint = defaultASREndpoint
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", accessToken)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ASR websocket: %w", err)
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	requestID := uuid.NewString()
	if err := c.sendOpeningFrame(conn, req, requestID); err != nil {
		return nil, err
	}

	if err := c.streamAudio(ctx, conn, req.AudioData); err != nil {
		return nil, err
	}

	return c.awaitTranscript(ctx, conn, req, requestID)
}

func (c *ASRClient) sendOpeningFrame(conn *websocket.Conn, req *speechmodel.ASRRequest, requestID string) error {
	payload := &asrRequestPayload{}
	payload.User.UID = req.SessionID
	payload.Audio.Format = req.Format
	payload.Audio.Language = req.Language
	if payload.Audio.Language == "" {
		payload.Audio.Language = c.config.ASRLanguage
	}
	payload.Request.ReqID = requestID
	payload.Request.Sequence = 1

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal ASR request: %w", err)
	}

	compressed, err := CompressPayload(body, GzipCompression)
	if err != nil {
		return err
	}

	frame := NewFullClientRequest(compressed, GzipCompression)
	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(frame)); err != nil {
		return fmt.Errorf("failed to send ASR opening frame: %w", err)
	}
	return nil
}

func (c *ASRClient) streamAudio(ctx context.Context, conn *websocket.Conn, audio io.Reader) error {
	buf := make([]byte, asrChunkSize)
	sequence := int32(1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := io.ReadFull(audio, buf)
		isLast := readErr == io.ErrUnexpectedEOF || readErr == io.EOF
		if readErr != nil && !isLast {
			return fmt.Errorf("failed to read capture audio: %w", readErr)
		}

		if n > 0 {
			sequence++
			compressed, err := CompressPayload(buf[:n], GzipCompression)
			if err != nil {
				return err
			}
			frame := NewAudioOnlyRequest(compressed, sequence, isLast, GzipCompression)
			if err := conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(frame)); err != nil {
				return fmt.Errorf("failed to send audio frame: %w", err)
			}
		} else if isLast {
			// Empty tail read: flag the end of stream with an empty frame.
			frame := NewAudioOnlyRequest(nil, sequence+1, true, GzipCompression)
			if err := conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(frame)); err != nil {
				return fmt.Errorf("failed to send final audio frame: %w", err)
			}
		}

		if isLast {
			return nil
		}
	}
}

func (c *ASRClient) awaitTranscript(ctx context.Context, conn *websocket.Conn, req *speechmodel.ASRRequest, requestID string) (*speechmodel.ASRResponse, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read ASR response: %w", err)
		}

		frame, err := DecodeFrame(bytes.NewReader(message))
		if err != nil {
			return nil, err
		}

		if frame.IsErrorMessage() {
			return nil, fmt.Errorf("ASR server error %d: %s", frame.ErrorCode, string(frame.Payload))
		}

		payload, err := DecompressPayload(frame.Payload, frame.Header.CompressionMethod)
		if err != nil {
			return nil, err
		}

		var result asrServerPayload
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("failed to decode ASR response: %w", err)
		}

		if result.Code != 0 && result.Code != 1000 {
			return nil, fmt.Errorf("ASR server error %d: %s", result.Code, result.Message)
		}

		if !frame.IsLastPacket() {
			continue
		}

		resp := &speechmodel.ASRResponse{
			SessionID: req.SessionID,
			RequestID: requestID,
			Duration:  result.AudioInfo.Duration,
			CreatedAt: time.Now().UTC(),
		}
		if len(result.Result) > 0 {
			resp.Text = result.Result[0].Text
			resp.Confidence = result.Result[0].Confidence
		}
		return resp, nil
	}
}
