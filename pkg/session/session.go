// Package session holds the mutable state for one run of the trivia game.
//
// A Session aggregates the conversation history, round counter, cumulative
// score and termination flag. It has exactly one writer, the game
// orchestrator, so history, round and score carry no locking. The
// termination flag is the one exception: it is atomic so a signal
// handler goroutine may call MarkTerminate while the orchestrator polls
// ShouldTerminate at the round boundary. History is append-only: turns
// are never rewritten or removed once recorded.
package session

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	// RoleHost is text generated by the trivia host.
	RoleHost Role = "host"

	// RolePlayer is text transcribed (or typed) from the player.
	RolePlayer Role = "player"

	// RoleSystem is the personality prompt seeding the conversation.
	RoleSystem Role = "system"
)

// Kind distinguishes real content from degraded-mode placeholders.
type Kind string

const (
	// KindText is a normal turn with real content.
	KindText Kind = "text"

	// KindSkipped marks a host turn recorded when generation failed and
	// the round was skipped.
	KindSkipped Kind = "skipped"

	// KindNoAnswer marks a player turn recorded when listening timed out
	// or transcription failed. Distinct from a genuinely empty answer.
	KindNoAnswer Kind = "no_answer"
)

// Turn is one immutable entry in the conversation history.
type Turn struct {
	ID        string
	Round     int
	Role      Role
	Kind      Kind
	Text      string
	Timestamp time.Time
}

// NewTurn creates a normal text turn for the given round.
func NewTurn(round int, role Role, text string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Round:     round,
		Role:      role,
		Kind:      KindText,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewSkippedTurn creates the placeholder host turn recorded when a round
// is skipped after generation failure.
func NewSkippedTurn(round int) Turn {
	t := NewTurn(round, RoleHost, "")
	t.Kind = KindSkipped
	return t
}

// NewNoAnswerTurn creates the explicit no-answer player turn recorded
// when listening produced nothing.
func NewNoAnswerTurn(round int) Turn {
	t := NewTurn(round, RolePlayer, "")
	t.Kind = KindNoAnswer
	return t
}

// Session is the mutable aggregate for one game run.
// All methods must be called from the single owning goroutine, except
// MarkTerminate, which may be called from any goroutine.
type Session struct {
	id         string
	turns      []Turn
	round      int
	score      int
	maxRounds  int
	terminated atomic.Bool
}

// New creates a session that terminates after maxRounds completed rounds.
// A maxRounds of zero or less means the session never enters a round.
func New(maxRounds int) *Session {
	return &Session{
		id:        uuid.NewString(),
		maxRounds: maxRounds,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// AppendTurn records a turn. History is append-only.
func (s *Session) AppendTurn(t Turn) {
	s.turns = append(s.turns, t)
}

// History returns a copy of the recorded turns in order.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// TurnCount returns the number of recorded turns.
func (s *Session) TurnCount() int {
	return len(s.turns)
}

// Round returns the current round number. Rounds start at 0.
func (s *Session) Round() int {
	return s.round
}

// AdvanceRound increments the round counter by exactly one.
func (s *Session) AdvanceRound() {
	s.round++
}

// Score returns the cumulative score. May be negative.
func (s *Session) Score() int {
	return s.score
}

// AddScore adjusts the cumulative score by delta.
func (s *Session) AddScore(delta int) {
	s.score += delta
}

// MarkTerminate sets the termination flag. Once set it is never cleared.
// Safe to call from any goroutine; the owning goroutine observes it at
// the next ShouldTerminate check.
func (s *Session) MarkTerminate() {
	s.terminated.Store(true)
}

// ShouldTerminate reports whether the game loop should stop: either an
// explicit stop was requested or the configured round budget is spent.
func (s *Session) ShouldTerminate() bool {
	return s.terminated.Load() || s.round >= s.maxRounds
}
