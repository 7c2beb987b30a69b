package game

import (
	"fmt"
	"strings"

	"github.com/quizlab/go-trivia/pkg/generation"
)

// Personality describes the trivia host. Every field feeds the system
// prompt; zero values fall back to DefaultPersonality.
type Personality struct {
	// Name is what the host calls itself.
	Name string

	// Role is the host's persona in one or two words ("pirate", "robot").
	Role string

	// RoleDesc elaborates the persona in a short clause.
	RoleDesc string

	// RoleBase is the subject matter the persona draws insults and
	// compliments from ("the high seas", "circuitry").
	RoleBase string

	// LikesToReference is something the host name-drops when excited.
	LikesToReference string

	// LoveAndPride is what the host is proud of.
	LoveAndPride string

	// HopeForPlayer is what the host wishes for the player.
	HopeForPlayer string

	// Extra is an optional additional trait, appended verbatim.
	Extra string

	// GradeLevel calibrates question difficulty ("5th", "8th").
	GradeLevel string
}

// DefaultPersonality returns the stock quizmaster host.
func DefaultPersonality() Personality {
	return Personality{
		Name:             "Tessa",
		Role:             "quizmaster",
		RoleDesc:         "an enthusiastic game show quizmaster",
		RoleBase:         "game shows",
		LikesToReference: "favorite game show moments",
		LoveAndPride:     "hosting trivia",
		HopeForPlayer:    "playing along",
		GradeLevel:       "8th",
	}
}

// SystemPrompt renders the host instructions sent as the system message.
func (p Personality) SystemPrompt() string {
	d := DefaultPersonality()
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.Role == "" {
		p.Role = d.Role
	}
	if p.RoleDesc == "" {
		p.RoleDesc = d.RoleDesc
	}
	if p.RoleBase == "" {
		p.RoleBase = d.RoleBase
	}
	if p.LikesToReference == "" {
		p.LikesToReference = d.LikesToReference
	}
	if p.LoveAndPride == "" {
		p.LoveAndPride = d.LoveAndPride
	}
	if p.HopeForPlayer == "" {
		p.HopeForPlayer = d.HopeForPlayer
	}
	if p.GradeLevel == "" {
		p.GradeLevel = d.GradeLevel
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a trivia host named %s. You are %s. ", p.Name, p.RoleDesc)
	b.WriteString("In this conversation, I will ask you for a trivia question about a topic, ")
	b.WriteString("you will pose the question, I will answer, and you will tell me whether ")
	b.WriteString("my answer is correct. Then we repeat.\n\n")

	b.WriteString("Rules for your trivia questions:\n")
	fmt.Fprintf(&b, "1) The question should be at a %s grade level. A %s grader should be able to answer it.\n", p.GradeLevel, p.GradeLevel)
	b.WriteString("2) The question must be based in reality and have a verifiable answer.\n")
	b.WriteString("3) The question should be one to two paragraphs long.\n")
	b.WriteString("4) When judging an answer, begin your reply with the word Correct or Incorrect.\n\n")

	b.WriteString("Your personality traits:\n")
	fmt.Fprintf(&b, "1) You are upbeat and encouraging, and you occasionally reference your %s.\n", p.LikesToReference)
	fmt.Fprintf(&b, "2) You love %s and are proud of it. You hope the player is having a great time %s.\n", p.LoveAndPride, p.HopeForPlayer)
	fmt.Fprintf(&b, "3) When an answer is correct, you are delighted and work your %s attributes or the question's subject into your compliments.\n", p.Role)
	fmt.Fprintf(&b, "4) When an answer is wrong, you are briefly and theatrically devastated, grumbling in terms of %s, before regaining your composure and moving on.\n", p.RoleBase)
	n := 5
	if p.Extra != "" {
		fmt.Fprintf(&b, "%d) %s\n", n, p.Extra)
		n++
	}
	fmt.Fprintf(&b, "%d) Keep your replies to five sentences or fewer, except the question itself.\n\n", n)

	b.WriteString("Alright, let the trivia begin!")
	return b.String()
}

// DefaultTopics is cycled when the config does not supply a topic list.
var DefaultTopics = []string{
	"science",
	"history",
	"geography",
	"music",
	"movies",
	"animals",
	"space",
	"sports",
}

// DefaultHistorySets is how many completed question rounds stay in the
// generation window alongside the system prompt.
const DefaultHistorySets = 5

// Script owns the generation-side conversation: the system prompt plus a
// sliding window of recent rounds. It is separate from session history,
// which is the full immutable record; the script is only what the model
// sees next.
//
// Not safe for concurrent use. The orchestrator is the single caller.
type Script struct {
	system     generation.Message
	topics     []string
	topicIdx   int
	useHistory bool
	maxSets    int

	// rounds holds the message exchanges of completed and in-progress
	// rounds, oldest first. A round may be ragged when a degraded step
	// left a message out; the window trims whole rounds, so raggedness
	// never corrupts it.
	rounds [][]generation.Message
}

// ScriptOption configures a Script.
type ScriptOption func(*Script)

// WithTopics sets the topic rotation. An empty list keeps DefaultTopics.
func WithTopics(topics []string) ScriptOption {
	return func(s *Script) {
		if len(topics) > 0 {
			s.topics = topics
		}
	}
}

// WithoutHistory makes every round start from just the system prompt.
func WithoutHistory() ScriptOption {
	return func(s *Script) { s.useHistory = false }
}

// WithHistorySets sets how many past rounds stay in the window.
func WithHistorySets(n int) ScriptOption {
	return func(s *Script) {
		if n > 0 {
			s.maxSets = n
		}
	}
}

// NewScript creates a Script for the given host personality.
func NewScript(p Personality, opts ...ScriptOption) *Script {
	s := &Script{
		system:     generation.NewSystemMessage(p.SystemPrompt()),
		topics:     DefaultTopics,
		useHistory: true,
		maxSets:    DefaultHistorySets,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginRound trims the history window, opens a new round with the next
// topic's category request, and returns the topic.
func (s *Script) BeginRound() string {
	if !s.useHistory {
		s.rounds = s.rounds[:0]
	} else if len(s.rounds) >= s.maxSets {
		s.rounds = s.rounds[len(s.rounds)-s.maxSets+1:]
	}

	topic := s.topics[s.topicIdx%len(s.topics)]
	s.topicIdx++
	s.rounds = append(s.rounds, []generation.Message{
		generation.NewUserMessage(fmt.Sprintf("Okay, new question: ask me something about %s.", topic)),
	})
	return topic
}

// AbandonRound drops the in-progress round, leaving no residue in the
// window. Called when question generation fails and the round is skipped.
func (s *Script) AbandonRound() {
	if len(s.rounds) > 0 {
		s.rounds = s.rounds[:len(s.rounds)-1]
	}
}

// RecordHost appends host text (question or verdict) to the current round.
func (s *Script) RecordHost(text string) {
	s.appendCurrent(generation.NewAssistantMessage(text))
}

// RecordPlayer appends the player's answer to the current round.
func (s *Script) RecordPlayer(text string) {
	s.appendCurrent(generation.NewUserMessage(text))
}

func (s *Script) appendCurrent(m generation.Message) {
	if len(s.rounds) == 0 {
		s.rounds = append(s.rounds, nil)
	}
	i := len(s.rounds) - 1
	s.rounds[i] = append(s.rounds[i], m)
}

// Messages flattens the window into the request payload, system prompt
// first. The returned slice is a copy.
func (s *Script) Messages() []generation.Message {
	out := make([]generation.Message, 0, 1+4*len(s.rounds))
	out = append(out, s.system)
	for _, r := range s.rounds {
		out = append(out, r...)
	}
	return out
}

// Rounds returns how many rounds are currently in the window.
func (s *Script) Rounds() int {
	return len(s.rounds)
}
