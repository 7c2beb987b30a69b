package stt_test

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
	"github.com/quizlab/go-trivia/pkg/stt"
)

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func TestWhisperListen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing audio file: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "the answer is Paris"})
	}))
	defer srv.Close()

	recorder := &audio.MockRecorder{}
	provider, err := stt.NewWhisper(recorder,
		stt.WithAPIKey("test-key"),
		stt.WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Close()

	transcript, err := provider.Listen(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript.Text != "the answer is Paris" {
		t.Errorf("unexpected transcript %q", transcript.Text)
	}
	if recorder.Captures() != 1 {
		t.Errorf("expected 1 capture, got %d", recorder.Captures())
	}
}

func TestWhisperEmptyTranscriptIsNoSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "   "})
	}))
	defer srv.Close()

	provider, _ := stt.NewWhisper(&audio.MockRecorder{},
		stt.WithAPIKey("test-key"),
		stt.WithBaseURL(srv.URL),
	)
	defer provider.Close()

	_, err := provider.Listen(context.Background(), time.Second)
	if !errors.Is(err, stt.ErrNoSpeech) {
		t.Errorf("expected ErrNoSpeech, got %v", err)
	}
}

func TestWhisperRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "recovered"})
	}))
	defer srv.Close()

	provider, _ := stt.NewWhisper(&audio.MockRecorder{},
		stt.WithAPIKey("test-key"),
		stt.WithBaseURL(srv.URL),
		stt.WithRetryPolicy(fastRetry(3)),
	)
	defer provider.Close()

	transcript, err := provider.Listen(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript.Text != "recovered" {
		t.Errorf("unexpected transcript %q", transcript.Text)
	}
}

func TestWhisperDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	provider, _ := stt.NewWhisper(&audio.MockRecorder{},
		stt.WithAPIKey("bad-key"),
		stt.WithBaseURL(srv.URL),
		stt.WithRetryPolicy(fastRetry(5)),
	)
	defer provider.Close()

	_, err := provider.Listen(context.Background(), time.Second)
	var apiErr *stt.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if calls.Load() != 1 {
		t.Errorf("auth failure must not be retried, got %d attempts", calls.Load())
	}
}

func TestWhisperCaptureFailure(t *testing.T) {
	boom := errors.New("mic unplugged")
	recorder := &audio.MockRecorder{
		RecordFunc: func(ctx context.Context, d time.Duration) ([]byte, error) {
			return nil, boom
		},
	}
	provider, _ := stt.NewWhisper(recorder, stt.WithAPIKey("test-key"))
	defer provider.Close()

	_, err := provider.Listen(context.Background(), time.Second)
	if !errors.Is(err, boom) {
		t.Errorf("expected capture error, got %v", err)
	}
}

func TestWhisperConstruction(t *testing.T) {
	t.Run("requires recorder", func(t *testing.T) {
		_, err := stt.NewWhisper(nil, stt.WithAPIKey("key"))
		if !errors.Is(err, stt.ErrNoRecorder) {
			t.Errorf("expected ErrNoRecorder, got %v", err)
		}
	})

	t.Run("requires api key", func(t *testing.T) {
		_, err := stt.NewWhisper(&audio.MockRecorder{})
		if !errors.Is(err, stt.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestMockSilent(t *testing.T) {
	m := stt.NewMockSilent()
	_, err := m.Listen(context.Background(), time.Second)
	if !errors.Is(err, stt.ErrNoSpeech) {
		t.Errorf("expected ErrNoSpeech, got %v", err)
	}
	if m.CallCount("Listen") != 1 {
		t.Errorf("expected 1 Listen call, got %d", m.CallCount("Listen"))
	}
}
