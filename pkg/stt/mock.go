package stt

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// ListenFunc is called when Listen is invoked.
	// If nil, returns a canned answer.
	ListenFunc func(ctx context.Context, timeout time.Duration) (*Transcript, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method  string
	Timeout time.Duration
	Time    time.Time
}

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		ListenFunc: func(ctx context.Context, timeout time.Duration) (*Transcript, error) {
			return &Transcript{Text: "forty two", LatencyMs: 1}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// NewMockSilent creates a mock that always hears nothing.
func NewMockSilent() *Mock {
	return &Mock{
		ListenFunc: func(ctx context.Context, timeout time.Duration) (*Transcript, error) {
			return nil, ErrNoSpeech
		},
	}
}

// Listen calls ListenFunc and records the call.
func (m *Mock) Listen(ctx context.Context, timeout time.Duration) (*Transcript, error) {
	m.recordCall("Listen", timeout)
	if m.ListenFunc != nil {
		return m.ListenFunc(ctx, timeout)
	}
	return nil, ErrNoSpeech
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", 0)
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", 0)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method string, timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:  method,
		Timeout: timeout,
		Time:    time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// WithError returns a mock whose calls always fail with err.
func WithError(err error) *Mock {
	return &Mock{
		ListenFunc: func(ctx context.Context, timeout time.Duration) (*Transcript, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
