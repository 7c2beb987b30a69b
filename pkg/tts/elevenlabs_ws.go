package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quizlab/go-trivia/pkg/audio"
)

const (
	elevenLabsWSBaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	wsWriteTimeout      = 10 * time.Second
)

// ElevenLabsWS implements streaming TTS over the ElevenLabs WebSocket
// input API. Audio chunks arrive while later text is still being
// synthesized, which cuts time-to-first-byte for long host monologues.
// Each Synthesize call opens one socket for one utterance.
type ElevenLabsWS struct {
	config  *Config
	logger  *slog.Logger
	baseURL string
	dialer  *websocket.Dialer
}

// NewElevenLabsWS creates a WebSocket-based ElevenLabs TTS provider.
func NewElevenLabsWS(opts ...Option) (*ElevenLabsWS, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsWSBaseURL
	}

	return &ElevenLabsWS{
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.elevenlabs_ws"),
		baseURL: baseURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.Timeout,
		},
	}, nil
}

// wsMessage is the inbound frame from the stream-input API.
type wsMessage struct {
	Audio   string `json:"audio"`
	IsFinal *bool  `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Synthesize streams text through the socket and returns the assembled
// audio buffer once the final chunk arrives.
func (e *ElevenLabsWS) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerElevenLabs, ErrEmptyText)
	}

	start := time.Now()

	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=mp3_44100_128",
		e.baseURL, e.config.VoiceID, e.config.ModelID)

	conn, resp, err := e.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    "websocket handshake failed",
				Provider:   providerElevenLabs,
			}
		}
		return nil, WrapError(providerElevenLabs, fmt.Errorf("dial: %w", err))
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	// Handshake frame carries the key and voice settings.
	open := map[string]interface{}{
		"text": " ",
		"voice_settings": map[string]interface{}{
			"stability":        e.config.VoiceSettings.Stability,
			"similarity_boost": e.config.VoiceSettings.SimilarityBoost,
		},
		"xi_api_key": e.config.APIKey,
	}
	if err := e.writeJSON(conn, open); err != nil {
		return nil, err
	}

	if err := e.writeJSON(conn, map[string]interface{}{
		"text":                   text + " ",
		"try_trigger_generation": true,
	}); err != nil {
		return nil, err
	}

	// Empty text closes the input stream.
	if err := e.writeJSON(conn, map[string]interface{}{"text": ""}); err != nil {
		return nil, err
	}

	var audioBytes []byte
	firstChunkMs := int64(-1)
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, WrapError(providerElevenLabs, fmt.Errorf("read: %w", err))
		}

		if msg.Error != "" {
			return nil, WrapError(providerElevenLabs,
				fmt.Errorf("%s: %s", msg.Error, msg.Message))
		}

		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, WrapError(providerElevenLabs, fmt.Errorf("decode audio: %w", err))
			}
			if firstChunkMs < 0 {
				firstChunkMs = time.Since(start).Milliseconds()
			}
			audioBytes = append(audioBytes, chunk...)
		}

		if msg.IsFinal != nil && *msg.IsFinal {
			break
		}
	}

	if len(audioBytes) == 0 {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("no audio received"))
	}

	e.logger.Debug("streamed audio",
		"chars", len(text),
		"bytes", len(audioBytes),
		"first_chunk_ms", firstChunkMs,
		"total_ms", time.Since(start).Milliseconds(),
	)

	return &AudioResult{
		Audio:     audioBytes,
		Format:    audio.FormatMP3,
		CharCount: len(text),
		LatencyMs: firstChunkMs,
	}, nil
}

// Health verifies the API key against the HTTP voices endpoint; the
// socket endpoint has no cheap probe.
func (e *ElevenLabsWS) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		elevenLabsBaseURL+"/voices", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "voices probe failed",
			Provider:   providerElevenLabs,
		}
	}
	return nil
}

// Close releases resources. Sockets are per-utterance, nothing persists.
func (e *ElevenLabsWS) Close() error {
	return nil
}

func (e *ElevenLabsWS) writeJSON(conn *websocket.Conn, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("marshal frame: %w", err))
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("write frame: %w", err))
	}
	return nil
}

// Verify ElevenLabsWS implements Provider at compile time.
var _ Provider = (*ElevenLabsWS)(nil)
