package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quizlab/go-trivia/internal/retry"
	"github.com/quizlab/go-trivia/pkg/generation"
)

func chatOK(content string) map[string]interface{} {
	return map[string]interface{}{
		"model": "test-model",
		"choices": []map[string]interface{}{{
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
	}
}

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(payload.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(payload.Messages))
		}

		json.NewEncoder(w).Encode(chatOK("What year did the Titanic sink?"))
	}))
	defer srv.Close()

	gen, err := generation.NewOpenAI(
		generation.WithAPIKey("test-key"),
		generation.WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer gen.Close()

	resp, err := gen.Generate(context.Background(), &generation.Request{
		Messages: []generation.Message{
			generation.NewSystemMessage("You are a trivia host."),
			generation.NewUserMessage("Ask me something about history."),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message.Content != "What year did the Titanic sink?" {
		t.Errorf("unexpected content %q", resp.Message.Content)
	}
	if resp.Message.Role != generation.RoleAssistant {
		t.Errorf("expected assistant role, got %q", resp.Message.Role)
	}
	if resp.Usage.TotalTokens != 19 {
		t.Errorf("expected 19 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(chatOK("recovered"))
	}))
	defer srv.Close()

	gen, err := generation.NewOpenAI(
		generation.WithAPIKey("test-key"),
		generation.WithBaseURL(srv.URL),
		generation.WithRetryPolicy(fastRetry(3)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer gen.Close()

	resp, err := gen.Generate(context.Background(), &generation.Request{
		Messages: []generation.Message{generation.NewUserMessage("hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message.Content != "recovered" {
		t.Errorf("unexpected content %q", resp.Message.Content)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestOpenAIDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "invalid api key", "code": "invalid_api_key"},
		})
	}))
	defer srv.Close()

	gen, err := generation.NewOpenAI(
		generation.WithAPIKey("bad-key"),
		generation.WithBaseURL(srv.URL),
		generation.WithRetryPolicy(fastRetry(5)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer gen.Close()

	_, err = gen.Generate(context.Background(), &generation.Request{
		Messages: []generation.Message{generation.NewUserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *generation.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if !apiErr.IsUnauthorized() {
		t.Errorf("expected unauthorized, got status %d", apiErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("auth failure must not be retried, got %d attempts", calls.Load())
	}
}

func TestOpenAIRequiresAPIKey(t *testing.T) {
	_, err := generation.NewOpenAI(generation.WithModel("gpt-4o-mini"))
	if !errors.Is(err, generation.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	gen, _ := generation.NewOpenAI(
		generation.WithAPIKey("test-key"),
		generation.WithBaseURL(srv.URL),
	)
	defer gen.Close()

	_, err := gen.Generate(context.Background(), &generation.Request{
		Messages: []generation.Message{generation.NewUserMessage("hi")},
	})
	if !errors.Is(err, generation.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}
