package audio

import (
	"context"
	"sync"
	"time"
)

// MockPlayer implements Player for testing.
type MockPlayer struct {
	// PlayFunc overrides Play. If nil, Play succeeds instantly.
	PlayFunc func(ctx context.Context, data []byte, format Format) error

	mu      sync.Mutex
	played  int
	lastFmt Format
}

// Play records the call and delegates to PlayFunc.
func (m *MockPlayer) Play(ctx context.Context, data []byte, format Format) error {
	m.mu.Lock()
	m.played++
	m.lastFmt = format
	m.mu.Unlock()
	if m.PlayFunc != nil {
		return m.PlayFunc(ctx, data, format)
	}
	return nil
}

// Played returns how many buffers were played.
func (m *MockPlayer) Played() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.played
}

// LastFormat returns the format of the most recent playback.
func (m *MockPlayer) LastFormat() Format {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFmt
}

// MockRecorder implements Recorder for testing.
type MockRecorder struct {
	// RecordFunc overrides Record. If nil, returns a short silent WAV.
	RecordFunc func(ctx context.Context, d time.Duration) ([]byte, error)

	mu       sync.Mutex
	captures int
}

// Record records the call and delegates to RecordFunc.
func (m *MockRecorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	m.mu.Lock()
	m.captures++
	m.mu.Unlock()
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, d)
	}
	return make([]byte, 44+3200), nil // WAV header plus ~100ms of silence
}

// Captures returns how many recordings were made.
func (m *MockRecorder) Captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

// Verify mocks implement the interfaces at compile time.
var (
	_ Player   = (*MockPlayer)(nil)
	_ Recorder = (*MockRecorder)(nil)
)
