package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/quizlab/go-trivia/internal/httpc"
	"github.com/quizlab/go-trivia/internal/retry"
	"github.com/quizlab/go-trivia/pkg/audio"
)

const (
	whisperBaseURL  = "https://api.openai.com/v1"
	providerWhisper = "whisper"
)

// Whisper implements Provider using the OpenAI audio transcription API.
// Capture happens locally through the recorder; only the finished WAV
// leaves the machine.
type Whisper struct {
	config   *Config
	recorder audio.Recorder
	client   *http.Client
	logger   *slog.Logger
	baseURL  string
}

// NewWhisper creates a remote transcription provider reading from recorder.
func NewWhisper(recorder audio.Recorder, opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if recorder == nil {
		return nil, ErrNoRecorder
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = whisperBaseURL
	}

	return &Whisper{
		config:   cfg,
		recorder: recorder,
		client:   httpc.NewClient(cfg.Timeout),
		logger:   cfg.Logger.With("component", "stt.whisper"),
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Listen records for up to timeout and transcribes the capture.
func (w *Whisper) Listen(ctx context.Context, timeout time.Duration) (*Transcript, error) {
	if timeout <= 0 {
		timeout = DefaultListenWindow
	}

	wav, err := w.recorder.Record(ctx, timeout)
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("capture: %w", err))
	}

	start := time.Now()

	policy := w.config.Retry
	policy.Retryable = IsRetryable
	policy.Notify = func(err error, next time.Duration) {
		w.logger.Warn("transcription failed, retrying", "error", err, "next_in", next)
	}

	text, err := retry.Do(ctx, policy, func() (string, error) {
		return w.transcribe(ctx, wav)
	})
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoSpeech
	}

	latency := time.Since(start).Milliseconds()
	w.logger.Debug("transcribed speech",
		"chars", len(text),
		"capture_bytes", len(wav),
		"latency_ms", latency,
	)

	return &Transcript{Text: text, LatencyMs: latency}, nil
}

// Health checks API connectivity and key validity.
func (w *Whisper) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerWhisper, err)
	}
	req.Header.Set("Authorization", "Bearer "+w.config.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return WrapError(providerWhisper, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return w.parseError(resp)
	}
	return nil
}

// Close releases resources.
func (w *Whisper) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

// transcribe uploads the WAV as multipart form data.
func (w *Whisper) transcribe(ctx context.Context, wav []byte) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", "answer.wav")
	if err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("create form: %w", err))
	}
	if _, err := part.Write(wav); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("write form: %w", err))
	}
	form.WriteField("model", w.config.Model)
	if w.config.Language != "" {
		form.WriteField("language", w.config.Language)
	}
	if err := form.Close(); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("close form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		w.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.config.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", WrapError(providerWhisper, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", w.parseError(resp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", WrapError(providerWhisper, fmt.Errorf("decode response: %w", err))
	}
	return result.Text, nil
}

// parseError reads and parses an error response.
func (w *Whisper) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerWhisper,
	}
}

// Verify Whisper implements Provider at compile time.
var _ Provider = (*Whisper)(nil)
