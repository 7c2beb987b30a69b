package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizlab/go-trivia/pkg/generation"
)

// Exchange is one completed question round handed to a Judge.
type Exchange struct {
	// Question is the host's trivia question.
	Question string

	// Answer is the player's transcribed answer.
	Answer string

	// Verdict is the host's spoken reaction to the answer, when one was
	// generated. May be empty in degraded rounds.
	Verdict string
}

// Judge decides the score delta for a round. Positive for a correct
// answer, negative or zero otherwise. Judges run only when the player
// actually answered.
type Judge interface {
	Score(ctx context.Context, ex Exchange) (int, error)
}

// NopJudge disables scoring. Every round scores zero.
type NopJudge struct{}

// Score always returns 0.
func (NopJudge) Score(ctx context.Context, ex Exchange) (int, error) {
	return 0, nil
}

// VerdictJudge scores deterministically from the host's own verdict text.
// The system prompt instructs the host to open its judgment with Correct
// or Incorrect; this judge keys off that marker without another model
// call.
type VerdictJudge struct{}

// Score returns +1 when the verdict opens affirmatively, -1 when it opens
// negatively, and 0 when the verdict carries no recognizable marker.
func (VerdictJudge) Score(ctx context.Context, ex Exchange) (int, error) {
	v := strings.ToLower(strings.TrimSpace(ex.Verdict))
	switch {
	case v == "":
		return 0, nil
	case strings.HasPrefix(v, "incorrect") || strings.HasPrefix(v, "wrong") || strings.HasPrefix(v, "not quite"):
		return -1, nil
	case strings.HasPrefix(v, "correct") || strings.HasPrefix(v, "right") || strings.HasPrefix(v, "yes"):
		return 1, nil
	}
	return 0, nil
}

const llmJudgePrompt = `You are grading a trivia answer. Reply with exactly one word: CORRECT if the answer is right, INCORRECT if it is not. Accept minor spelling and phrasing differences.`

// LLMJudge asks a generation provider to adjudicate the answer in a
// dedicated call, independent of the host's theatrical verdict. Useful
// when the host personality is too unreliable to parse.
type LLMJudge struct {
	provider generation.Provider
}

// NewLLMJudge creates a judge backed by the given provider.
func NewLLMJudge(provider generation.Provider) *LLMJudge {
	return &LLMJudge{provider: provider}
}

// Score runs the adjudication call and maps the reply to +1 or -1.
func (j *LLMJudge) Score(ctx context.Context, ex Exchange) (int, error) {
	req := &generation.Request{
		Messages: []generation.Message{
			generation.NewSystemMessage(llmJudgePrompt),
			generation.NewUserMessage(fmt.Sprintf("Question: %s\n\nAnswer: %s", ex.Question, ex.Answer)),
		},
		MaxTokens:   8,
		Temperature: 0,
	}
	res, err := j.provider.Generate(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("judge: %w", err)
	}
	reply := strings.ToUpper(strings.TrimSpace(res.Message.Content))
	if strings.HasPrefix(reply, "INCORRECT") {
		return -1, nil
	}
	if strings.HasPrefix(reply, "CORRECT") {
		return 1, nil
	}
	return 0, fmt.Errorf("judge: unrecognized reply %q", res.Message.Content)
}

// Compile-time interface checks.
var (
	_ Judge = NopJudge{}
	_ Judge = VerdictJudge{}
	_ Judge = (*LLMJudge)(nil)
)
