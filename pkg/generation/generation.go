// Package generation provides a unified interface for language generation.
//
// The package abstracts chat-style text generation behind a single Provider
// interface, enabling seamless switching between remote OpenAI-compatible
// endpoints (OpenAI, Together, Groq, vLLM) and a locally hosted model via
// Ollama. The game orchestrator depends only on Provider and never branches
// on which backend is active.
//
// Example usage:
//
//	gen, _ := generation.NewOpenAI(
//	    generation.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    generation.WithModel("gpt-4o-mini"),
//	)
//	defer gen.Close()
//
//	resp, _ := gen.Generate(ctx, &generation.Request{
//	    Messages: []generation.Message{
//	        generation.NewSystemMessage("You are a trivia host."),
//	        generation.NewUserMessage("Ask me something about space."),
//	    },
//	})
package generation

import "context"

// Provider is the language generation interface.
// All implementations must satisfy this interface.
type Provider interface {
	// Generate produces the next host utterance from the accumulated
	// conversation. Blocks until the backend responds or ctx is done.
	Generate(ctx context.Context, req *Request) (*Result, error)

	// Health checks backend connectivity and credential validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request for a generation call.
type Request struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// Model overrides the provider's default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0).
	Temperature float64
}

// Result of a generation call.
type Result struct {
	// Message is the generated assistant message.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model that produced the response.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
