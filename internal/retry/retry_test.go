package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quizlab/go-trivia/internal/retry"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	v, err := retry.Do(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Errorf("expected ok, got %q", v)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	transient := errors.New("transient")
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy(3), func() (int, error) {
		calls++
		return 0, transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	authErr := errors.New("unauthorized")
	p := fastPolicy(5)
	p.Retryable = func(err error) bool { return !errors.Is(err, authErr) }

	calls := 0
	_, err := retry.Do(context.Background(), p, func() (int, error) {
		calls++
		return 0, authErr
	})
	if !errors.Is(err, authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoNotify(t *testing.T) {
	notified := 0
	p := fastPolicy(3)
	p.Notify = func(err error, next time.Duration) { notified++ }

	_, _ = retry.Do(context.Background(), p, func() (int, error) {
		return 0, errors.New("transient")
	})
	if notified != 2 {
		t.Errorf("expected 2 notifications, got %d", notified)
	}
}

func TestDoRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retry.Do(ctx, fastPolicy(10), func() (int, error) {
		return 0, errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}
