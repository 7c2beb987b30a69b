package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quizlab/go-trivia/internal/httpc"
)

const (
	providerOllama    = "ollama"
	ollamaBaseURL     = "http://localhost:11434"
	ollamaProbeWindow = 30 * time.Second
)

// Ollama is the local generation provider, backed by a co-located Ollama
// server. The model is loaded into memory once at construction and kept
// warm for the process lifetime, so the one-time load cost is not paid
// per round.
type Ollama struct {
	baseURL string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewOllama creates a local generation provider.
//
// Construction probes the server and fails fast with ErrModelUnavailable
// when the server is unreachable or the configured model is not pulled,
// rather than failing deep inside the game loop.
func NewOllama(opts ...Option) (*Ollama, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = ollamaBaseURL
	cfg.Model = ""
	cfg.Apply(opts...)

	if cfg.Model == "" {
		return nil, ErrNoModel
	}

	o := &Ollama{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		http:    httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "generation.ollama"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), ollamaProbeWindow)
	defer cancel()

	if err := o.probeModel(ctx); err != nil {
		return nil, err
	}
	if err := o.warmModel(ctx); err != nil {
		// The model exists but could not be loaded (typically memory
		// pressure on the accelerator). Still startup-fatal.
		return nil, err
	}

	return o, nil
}

// Generate produces a chat completion from the local model.
func (o *Ollama) Generate(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = o.config.Model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = o.config.MaxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = o.config.Temperature
	}

	messages := make([]map[string]string, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = map[string]string{
			"role":    string(msg.Role),
			"content": msg.Content,
		}
	}

	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
		"stream":   false,
		// Keep the model resident between rounds.
		"keep_alive": "30m",
		"options": map[string]interface{}{
			"num_predict": maxTokens,
			"temperature": temp,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerOllama, fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerOllama, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, WrapError(providerOllama, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp),
			Provider:   providerOllama,
		}
	}

	var result struct {
		Model   string `json:"model"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		DoneReason      string `json:"done_reason"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerOllama, fmt.Errorf("decode response: %w", err))
	}

	if result.Message.Content == "" {
		return nil, WrapError(providerOllama, ErrEmptyResponse)
	}

	return &Result{
		Message:      NewAssistantMessage(result.Message.Content),
		FinishReason: result.DoneReason,
		Usage: Usage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
			TotalTokens:      result.PromptEvalCount + result.EvalCount,
		},
		Model:     result.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health checks that the Ollama server is reachable.
func (o *Ollama) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return WrapError(providerOllama, err)
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return WrapError(providerOllama, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    readErrorBody(resp),
			Provider:   providerOllama,
		}
	}
	return nil
}

// Close releases resources. The server-side model unloads on its own
// keep-alive schedule.
func (o *Ollama) Close() error {
	o.http.CloseIdleConnections()
	return nil
}

// probeModel verifies the configured model is pulled on the server.
func (o *Ollama) probeModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return WrapError(providerOllama, err)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: server unreachable at %s: %v", ErrModelUnavailable, o.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: server returned %d", ErrModelUnavailable, resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return WrapError(providerOllama, fmt.Errorf("decode tags: %w", err))
	}

	for _, m := range tags.Models {
		if m.Name == o.config.Model || strings.TrimSuffix(m.Name, ":latest") == o.config.Model {
			return nil
		}
	}
	return fmt.Errorf("%w: model %q not pulled (run: ollama pull %s)",
		ErrModelUnavailable, o.config.Model, o.config.Model)
}

// warmModel loads the model into memory so the first round does not pay
// the load cost.
func (o *Ollama) warmModel(ctx context.Context) error {
	payload := map[string]interface{}{
		"model":      o.config.Model,
		"keep_alive": "30m",
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return WrapError(providerOllama, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: load failed: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: load returned %d: %s",
			ErrModelUnavailable, resp.StatusCode, readErrorBody(resp))
	}

	o.logger.Info("model loaded",
		"model", o.config.Model,
		"load_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// readErrorBody extracts an error message from an Ollama error response.
func readErrorBody(resp *http.Response) string {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
		return errResp.Error
	}
	return resp.Status
}

// Verify Ollama implements Provider at compile time.
var _ Provider = (*Ollama)(nil)
