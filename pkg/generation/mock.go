package generation

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, echoes a canned host line.
	GenerateFunc func(ctx context.Context, req *Request) (*Result, error)

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
	Method   string
	Messages []Message
	Time     time.Time
}

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return &Result{
				Message:      NewAssistantMessage("Here is a question for you."),
				FinishReason: "stop",
				Model:        "mock",
				LatencyMs:    1,
			}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// NewMockScript creates a mock that returns the given responses in order,
// then repeats the last one.
func NewMockScript(responses ...string) *Mock {
	i := 0
	m := &Mock{}
	m.GenerateFunc = func(ctx context.Context, req *Request) (*Result, error) {
		text := responses[len(responses)-1]
		if i < len(responses) {
			text = responses[i]
			i++
		}
		return &Result{
			Message:      NewAssistantMessage(text),
			FinishReason: "stop",
			Model:        "mock",
		}, nil
	}
	return m
}

// Generate calls GenerateFunc and records the call.
func (m *Mock) Generate(ctx context.Context, req *Request) (*Result, error) {
	m.recordCall("Generate", req.Messages)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrEmptyResponse)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", nil)
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", nil)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method string, messages []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:   method,
		Messages: messages,
		Time:     time.Now(),
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

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock whose calls always fail with err.
func WithError(err error) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, req *Request) (*Result, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
