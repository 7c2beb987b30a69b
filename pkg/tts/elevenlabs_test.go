package tts_test

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
	"github.com/quizlab/go-trivia/pkg/audio"
	"github.com/quizlab/go-trivia/pkg/tts"
)

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	mp3 := []byte("ID3-fake-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header %q", got)
		}

		var payload struct {
			Text    string `json:"text"`
			ModelID string `json:"model_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Text != "Welcome to trivia night!" {
			t.Errorf("unexpected text %q", payload.Text)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(mp3)
	}))
	defer srv.Close()

	provider, err := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithVoice("voice-1"),
		tts.WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "Welcome to trivia night!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Audio) != string(mp3) {
		t.Error("audio bytes do not match")
	}
	if result.Format != audio.FormatMP3 {
		t.Errorf("expected mp3 format, got %s", result.Format)
	}
}

func TestElevenLabsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	provider, _ := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithVoice("voice-1"),
		tts.WithBaseURL(srv.URL),
		tts.WithRetryPolicy(fastRetry(3)),
	)
	defer provider.Close()

	if _, err := provider.Synthesize(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestElevenLabsDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"detail": map[string]string{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	provider, _ := tts.NewElevenLabs(
		tts.WithAPIKey("bad-key"),
		tts.WithVoice("voice-1"),
		tts.WithBaseURL(srv.URL),
		tts.WithRetryPolicy(fastRetry(5)),
	)
	defer provider.Close()

	_, err := provider.Synthesize(context.Background(), "hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if !apiErr.IsUnauthorized() {
		t.Errorf("expected unauthorized, got %d", apiErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("auth failure must not be retried, got %d attempts", calls.Load())
	}
}

func TestElevenLabsValidation(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		_, err := tts.NewElevenLabs(tts.WithVoice("voice-1"))
		if !errors.Is(err, tts.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("missing voice", func(t *testing.T) {
		_, err := tts.NewElevenLabs(tts.WithAPIKey("key"))
		if !errors.Is(err, tts.ErrNoVoiceID) {
			t.Errorf("expected ErrNoVoiceID, got %v", err)
		}
	})
}

func TestElevenLabsRejectsEmptyText(t *testing.T) {
	provider, _ := tts.NewElevenLabs(
		tts.WithAPIKey("key"),
		tts.WithVoice("voice-1"),
	)
	defer provider.Close()

	_, err := provider.Synthesize(context.Background(), "")
	if !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}
