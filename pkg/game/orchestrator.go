// Package game sequences the trivia round loop: generate a question,
// speak it, optionally listen for the player's answer, score it, repeat.
// The orchestrator is indifferent to which concrete providers are wired
// in; it talks to the generation, tts and stt capability interfaces only.
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/quizlab/go-trivia/pkg/generation"
	"github.com/quizlab/go-trivia/pkg/session"
	"github.com/quizlab/go-trivia/pkg/stt"
	"github.com/quizlab/go-trivia/pkg/tts"
)

// State identifies where the round machine is.
type State int

const (
	StateIdle State = iota
	StateAwaitingGeneration
	StateAwaitingSynthesis
	StateAwaitingListen
	StateScoring
	StateRoundComplete
	StateSessionComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingGeneration:
		return "awaiting_generation"
	case StateAwaitingSynthesis:
		return "awaiting_synthesis"
	case StateAwaitingListen:
		return "awaiting_listen"
	case StateScoring:
		return "scoring"
	case StateRoundComplete:
		return "round_complete"
	case StateSessionComplete:
		return "session_complete"
	default:
		return "unknown"
	}
}

// ErrNoGenerator is returned when New is called without a generation
// provider. The host cannot run without one.
var ErrNoGenerator = errors.New("game: generation provider required")

// DefaultListenWindow bounds how long the host waits for an answer.
const DefaultListenWindow = 10 * time.Second

// Lines fed to the model in degraded or self-answer rounds. The player
// never spoke these; they exist only in the generation window.
const (
	noAnswerLine   = "I don't have an answer."
	selfAnswerLine = "I'll pass on this one. Please reveal the answer yourself."
)

// Orchestrator drives the session through rounds. Single writer of the
// session; one outstanding provider call at a time. Not safe for
// concurrent use.
type Orchestrator struct {
	generator generation.Provider
	speaker   *tts.Speaker
	listener  stt.Provider
	judge     Judge
	script    *Script
	sess      *session.Session

	listenWindow time.Duration
	personality  Personality
	out          io.Writer
	logger       *slog.Logger

	state   State
	onState func(State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSpeaker enables spoken host output.
func WithSpeaker(s *tts.Speaker) Option {
	return func(o *Orchestrator) { o.speaker = s }
}

// WithListener enables spoken player answers. Without one the loop skips
// the listen state and the host answers its own questions.
func WithListener(l stt.Provider) Option {
	return func(o *Orchestrator) { o.listener = l }
}

// WithJudge sets the scoring judge. Defaults to VerdictJudge.
func WithJudge(j Judge) Option {
	return func(o *Orchestrator) { o.judge = j }
}

// WithScript replaces the generation script.
func WithScript(s *Script) Option {
	return func(o *Orchestrator) { o.script = s }
}

// WithPersonality sets the host personality used for the default script
// and the intro line.
func WithPersonality(p Personality) Option {
	return func(o *Orchestrator) { o.personality = p }
}

// WithListenWindow bounds each listen attempt.
func WithListenWindow(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.listenWindow = d
		}
	}
}

// WithOutput sets where host dialogue is printed. Defaults to io.Discard;
// the CLI passes os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithStateFunc registers a callback invoked on every state transition.
func WithStateFunc(fn func(State)) Option {
	return func(o *Orchestrator) { o.onState = fn }
}

// New wires an orchestrator around the session and generation provider.
// Speech in and out are optional.
func New(generator generation.Provider, sess *session.Session, opts ...Option) (*Orchestrator, error) {
	if generator == nil {
		return nil, ErrNoGenerator
	}
	o := &Orchestrator{
		generator:    generator,
		sess:         sess,
		judge:        VerdictJudge{},
		listenWindow: DefaultListenWindow,
		personality:  DefaultPersonality(),
		out:          io.Discard,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.script == nil {
		o.script = NewScript(o.personality)
	}
	return o, nil
}

// State returns the machine's current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run plays rounds until the session terminates or ctx is cancelled.
// Provider failures inside a round degrade that round and never stop the
// loop; Run returns ctx.Err() only when cancelled mid-session.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.sess.ShouldTerminate() {
		o.setState(StateSessionComplete)
		return nil
	}

	o.announce(ctx)

	for {
		if err := ctx.Err(); err != nil {
			o.sess.MarkTerminate()
			o.setState(StateSessionComplete)
			return err
		}
		o.playRound(ctx)
		o.sess.AdvanceRound()
		if o.sess.ShouldTerminate() {
			o.setState(StateSessionComplete)
			return nil
		}
	}
}

// announce prints and speaks the host introduction before round 1.
func (o *Orchestrator) announce(ctx context.Context) {
	p := o.personality
	intro := fmt.Sprintf("Your %s grade level trivia today will be provided by %s the %s.",
		p.GradeLevel, p.Name, p.Role)
	fmt.Fprintf(o.out, "\n> %s\n\n", intro)
	o.say(ctx, intro)
}

func (o *Orchestrator) playRound(ctx context.Context) {
	round := o.sess.Round()

	o.setState(StateAwaitingGeneration)
	topic := o.script.BeginRound()
	o.logger.Debug("round start", "round", round, "topic", topic)

	question, err := o.generate(ctx)
	if err != nil {
		o.logger.Warn("question generation failed, skipping round",
			"round", round, "error", err)
		o.script.AbandonRound()
		o.sess.AppendTurn(session.NewSkippedTurn(round))
		o.setState(StateRoundComplete)
		return
	}
	o.script.RecordHost(question)
	o.sess.AppendTurn(session.NewTurn(round, session.RoleHost, question))

	o.setState(StateAwaitingSynthesis)
	fmt.Fprintf(o.out, "> %s: %s\n\n", o.personality.Name, question)
	o.say(ctx, question)

	if o.quizOnly() {
		// Nobody answers and nothing is scored, so a verdict would just
		// have the host grading its own silence. One question per round.
		o.setState(StateRoundComplete)
		return
	}

	answer, answered := o.collectAnswer(ctx, round)

	o.setState(StateScoring)
	verdict := o.deliverVerdict(ctx, round)
	if answered {
		delta, err := o.judge.Score(ctx, Exchange{
			Question: question,
			Answer:   answer,
			Verdict:  verdict,
		})
		if err != nil {
			o.logger.Warn("scoring failed", "round", round, "error", err)
		} else {
			o.sess.AddScore(delta)
			o.logger.Debug("scored", "round", round, "delta", delta, "score", o.sess.Score())
		}
	}

	o.setState(StateRoundComplete)
}

// quizOnly reports whether the session is a pure question feed: no
// listener to answer and no judge keeping score.
func (o *Orchestrator) quizOnly() bool {
	if o.listener != nil {
		return false
	}
	_, nop := o.judge.(NopJudge)
	return nop
}

// collectAnswer runs the listen state when a listener is wired, recording
// the outcome in both the session and the script. With no listener the
// host is asked to reveal the answer itself and no player turn exists.
func (o *Orchestrator) collectAnswer(ctx context.Context, round int) (string, bool) {
	if o.listener == nil {
		o.script.RecordPlayer(selfAnswerLine)
		return "", false
	}

	o.setState(StateAwaitingListen)
	transcript, err := o.listener.Listen(ctx, o.listenWindow)
	if err != nil {
		if !errors.Is(err, stt.ErrNoSpeech) {
			o.logger.Warn("listen failed", "round", round, "error", err)
		}
		o.sess.AppendTurn(session.NewNoAnswerTurn(round))
		o.script.RecordPlayer(noAnswerLine)
		return "", false
	}

	fmt.Fprintf(o.out, "> You: %s\n\n", transcript.Text)
	o.sess.AppendTurn(session.NewTurn(round, session.RolePlayer, transcript.Text))
	o.script.RecordPlayer(transcript.Text)
	return transcript.Text, true
}

// deliverVerdict generates and speaks the host's reaction. A failure here
// degrades silently: the round still completes, just without commentary.
func (o *Orchestrator) deliverVerdict(ctx context.Context, round int) string {
	verdict, err := o.generate(ctx)
	if err != nil {
		o.logger.Warn("verdict generation failed", "round", round, "error", err)
		return ""
	}
	o.script.RecordHost(verdict)
	o.sess.AppendTurn(session.NewTurn(round, session.RoleHost, verdict))
	fmt.Fprintf(o.out, "> %s: %s\n\n", o.personality.Name, verdict)
	o.say(ctx, verdict)
	return verdict
}

func (o *Orchestrator) generate(ctx context.Context) (string, error) {
	res, err := o.generator.Generate(ctx, &generation.Request{
		Messages: o.script.Messages(),
	})
	if err != nil {
		return "", err
	}
	return res.Message.Content, nil
}

// say speaks text when a speaker is wired. Synthesis and playback errors
// are warnings; the text was already printed.
func (o *Orchestrator) say(ctx context.Context, text string) {
	if o.speaker == nil {
		return
	}
	if err := o.speaker.Speak(ctx, text); err != nil {
		o.logger.Warn("speech failed", "error", err)
	}
}

func (o *Orchestrator) setState(s State) {
	o.state = s
	if o.onState != nil {
		o.onState(s)
	}
}
