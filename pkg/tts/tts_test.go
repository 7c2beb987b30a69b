package tts_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quizlab/go-trivia/pkg/audio"
	"github.com/quizlab/go-trivia/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)

	_, err := mock.Synthesize(context.Background(), "Hello")
	if !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if err := mock.Health(context.Background()); err == nil {
		t.Error("expected health error")
	}
}

func TestSpeakerSpeaksSegments(t *testing.T) {
	mock := tts.NewMock()
	player := &audio.MockPlayer{}
	speaker := tts.NewSpeaker(mock, player, nil)
	speaker.MaxSegmentLen = 40

	text := "This is the first sentence. This is a much longer second sentence for splitting."
	if err := speaker.Speak(context.Background(), text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.CallCount("Synthesize") < 2 {
		t.Errorf("expected multiple synthesis calls, got %d", mock.CallCount("Synthesize"))
	}
	if player.Played() != mock.CallCount("Synthesize") {
		t.Errorf("every synthesized segment should be played: %d synth, %d played",
			mock.CallCount("Synthesize"), player.Played())
	}
}

func TestSpeakerCleansTextBeforeSynthesis(t *testing.T) {
	mock := tts.NewMock()
	speaker := tts.NewSpeaker(mock, &audio.MockPlayer{}, nil)

	if err := speaker.Speak(context.Background(), "Line one\nLine two"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := mock.Calls()
	if len(calls) == 0 {
		t.Fatal("expected synthesis calls")
	}
	if strings.Contains(calls[0].Text, "\n") {
		t.Errorf("newline reached the provider: %q", calls[0].Text)
	}
}

func TestSpeakerPropagatesSynthesisError(t *testing.T) {
	boom := errors.New("backend down")
	speaker := tts.NewSpeaker(tts.WithError(boom), &audio.MockPlayer{}, nil)

	err := speaker.Speak(context.Background(), "Hello")
	if !errors.Is(err, boom) {
		t.Errorf("expected synthesis error, got %v", err)
	}
}

func TestCache(t *testing.T) {
	mock := tts.NewMock()
	cache, err := tts.NewCache(mock, 8, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cache.Synthesize(ctx, "Correct!"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := mock.CallCount("Synthesize"); got != 1 {
		t.Errorf("expected 1 backend call for repeated text, got %d", got)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached utterance, got %d", cache.Len())
	}

	t.Run("errors are not cached", func(t *testing.T) {
		boom := errors.New("backend down")
		failing := tts.WithError(boom)
		cache, _ := tts.NewCache(failing, 8, nil)

		_, err := cache.Synthesize(ctx, "oops")
		if !errors.Is(err, boom) {
			t.Fatalf("expected error, got %v", err)
		}
		if cache.Len() != 0 {
			t.Error("failed synthesis must not be cached")
		}
	})
}
