package game_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quizlab/go-trivia/pkg/audio"
	"github.com/quizlab/go-trivia/pkg/game"
	"github.com/quizlab/go-trivia/pkg/generation"
	"github.com/quizlab/go-trivia/pkg/session"
	"github.com/quizlab/go-trivia/pkg/stt"
	"github.com/quizlab/go-trivia/pkg/tts"
)

func countKind(turns []session.Turn, kind session.Kind) int {
	n := 0
	for _, turn := range turns {
		if turn.Kind == kind {
			n++
		}
	}
	return n
}

func countRole(turns []session.Turn, role session.Role) int {
	n := 0
	for _, turn := range turns {
		if turn.Role == role {
			n++
		}
	}
	return n
}

func TestRunFullRound(t *testing.T) {
	gen := generation.NewMockScript(
		"What is the largest planet in our solar system?",
		"Correct! Jupiter it is, well done.",
	)
	listener := stt.NewMock() // answers "forty two"
	sess := session.New(1)

	o, err := game.New(gen, sess,
		game.WithListener(listener),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if o.State() != game.StateSessionComplete {
		t.Errorf("expected session_complete, got %s", o.State())
	}
	turns := sess.History()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns (question, answer, verdict), got %d", len(turns))
	}
	if turns[0].Role != session.RoleHost || turns[1].Role != session.RolePlayer || turns[2].Role != session.RoleHost {
		t.Errorf("unexpected turn roles: %v %v %v", turns[0].Role, turns[1].Role, turns[2].Role)
	}
	if sess.Score() != 1 {
		t.Errorf("expected score 1 from affirmative verdict, got %d", sess.Score())
	}
	if listener.CallCount("Listen") != 1 {
		t.Errorf("expected 1 listen, got %d", listener.CallCount("Listen"))
	}
}

func TestRunZeroMaxRoundsProducesNoTurns(t *testing.T) {
	for _, max := range []int{0, -1} {
		gen := generation.NewMock()
		sess := session.New(max)
		o, err := game.New(gen, sess)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := o.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.TurnCount() != 0 {
			t.Errorf("max=%d: expected zero turns, got %d", max, sess.TurnCount())
		}
		if gen.CallCount("Generate") != 0 {
			t.Errorf("max=%d: expected no generation calls, got %d", max, gen.CallCount("Generate"))
		}
		if o.State() != game.StateSessionComplete {
			t.Errorf("max=%d: expected session_complete, got %s", max, o.State())
		}
	}
}

func TestRunSkipsRoundsWhenGenerationAlwaysFails(t *testing.T) {
	gen := generation.WithError(errors.New("model on fire"))
	sess := session.New(3)
	o, err := game.New(gen, sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run must terminate despite failures: %v", err)
	}

	turns := sess.History()
	if len(turns) != 3 {
		t.Fatalf("expected 3 skip placeholders, got %d turns", len(turns))
	}
	if got := countKind(turns, session.KindSkipped); got != 3 {
		t.Errorf("expected 3 skipped turns, got %d", got)
	}
	for i, turn := range turns {
		if turn.Round != i {
			t.Errorf("turn %d recorded for round %d", i, turn.Round)
		}
	}
	if sess.Score() != 0 {
		t.Errorf("skipped rounds must not score, got %d", sess.Score())
	}
}

func TestRunWithoutListenerSkipsListenState(t *testing.T) {
	gen := generation.NewMockScript(
		"Name the capital of France.",
		"The answer was Paris, of course.",
	)
	sess := session.New(2)

	var states []game.State
	o, err := game.New(gen, sess,
		game.WithStateFunc(func(s game.State) { states = append(states, s) }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, s := range states {
		if s == game.StateAwaitingListen {
			t.Fatal("listen state entered with no listener wired")
		}
	}
	if got := countRole(sess.History(), session.RolePlayer); got != 0 {
		t.Errorf("expected no player turns, got %d", got)
	}
	// Two host turns per round with the default judge: question and reveal.
	if got := countRole(sess.History(), session.RoleHost); got != 4 {
		t.Errorf("expected 4 host turns, got %d", got)
	}
	if got := gen.CallCount("Generate"); got != 4 {
		t.Errorf("expected 4 generation calls, got %d", got)
	}
	if o.State() != game.StateSessionComplete {
		t.Errorf("expected session_complete, got %s", o.State())
	}
}

func TestRunQuizOnlyAsksOneQuestionPerRound(t *testing.T) {
	// No listener and no judge: a pure question feed. No reveal is
	// generated, so each round contributes exactly one host turn.
	gen := generation.NewMockScript(
		"Name the capital of France.",
		"What year did the Berlin Wall fall?",
	)
	sess := session.New(2)

	o, err := game.New(gen, sess,
		game.WithJudge(game.NopJudge{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turns := sess.History()
	if len(turns) != 2 {
		t.Fatalf("expected exactly 2 turns, got %d", len(turns))
	}
	if got := countRole(turns, session.RoleHost); got != 2 {
		t.Errorf("expected 2 host turns, got %d", got)
	}
	if got := gen.CallCount("Generate"); got != 2 {
		t.Errorf("expected 2 generation calls, got %d", got)
	}
	if sess.Score() != 0 {
		t.Errorf("nothing to score, got %d", sess.Score())
	}
	if o.State() != game.StateSessionComplete {
		t.Errorf("expected session_complete, got %s", o.State())
	}
}

func TestRunScoreChangesOnlyDuringScoring(t *testing.T) {
	gen := generation.NewMockScript(
		"Question one?",
		"Correct! Nice.",
		"Question two?",
		"Incorrect. Oh no.",
	)
	sess := session.New(2)

	type snapshot struct {
		state game.State
		score int
	}
	var trace []snapshot
	o, err := game.New(gen, sess,
		game.WithListener(stt.NewMock()),
		game.WithStateFunc(func(s game.State) {
			trace = append(trace, snapshot{s, sess.Score()})
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A score change observed at a transition must have happened while
	// the machine sat in the scoring state.
	for i := 1; i < len(trace); i++ {
		if trace[i].score != trace[i-1].score && trace[i-1].state != game.StateScoring {
			t.Errorf("score changed while in %s", trace[i-1].state)
		}
	}
	if sess.Score() != 0 {
		t.Errorf("one correct and one incorrect should net zero, got %d", sess.Score())
	}
}

func TestRunSpeaksQuestionsAndVerdicts(t *testing.T) {
	gen := generation.NewMockScript(
		"Short question?",
		"Correct! Great.",
	)
	synth := tts.NewMock()
	player := &audio.MockPlayer{}
	speaker := tts.NewSpeaker(synth, player, nil)
	sess := session.New(2)

	o, err := game.New(gen, sess,
		game.WithSpeaker(speaker),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Intro plus question and verdict per round, all short enough to be
	// a single segment each.
	want := 1 + 2*2
	if got := synth.CallCount("Synthesize"); got != want {
		t.Errorf("expected %d synthesize calls, got %d", want, got)
	}
	if player.Played() != want {
		t.Errorf("expected %d playbacks, got %d", want, player.Played())
	}
}

func TestRunSynthesisFailureDoesNotStopTheRound(t *testing.T) {
	gen := generation.NewMockScript(
		"A question?",
		"Correct!",
	)
	synth := tts.WithError(errors.New("speaker melted"))
	speaker := tts.NewSpeaker(synth, &audio.MockPlayer{}, nil)
	sess := session.New(1)

	o, err := game.New(gen, sess,
		game.WithSpeaker(speaker),
		game.WithListener(stt.NewMock()),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sess.TurnCount() != 3 {
		t.Errorf("round must complete despite synthesis failure, got %d turns", sess.TurnCount())
	}
	if sess.Score() != 1 {
		t.Errorf("expected score 1, got %d", sess.Score())
	}
}

func TestRunListenFailureDegradesToNoAnswer(t *testing.T) {
	gen := generation.NewMockScript(
		"Question one?",
		"The answer was seven.",
		"Question two?",
		"Correct!",
	)
	calls := 0
	listener := &stt.Mock{
		ListenFunc: func(ctx context.Context, timeout time.Duration) (*stt.Transcript, error) {
			calls++
			if calls == 1 {
				return nil, stt.ErrNoSpeech
			}
			return &stt.Transcript{Text: "seven"}, nil
		},
	}
	sess := session.New(2)

	o, err := game.New(gen, sess,
		game.WithListener(listener),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turns := sess.History()
	if got := countKind(turns, session.KindNoAnswer); got != 1 {
		t.Fatalf("expected 1 no-answer turn, got %d", got)
	}
	var noAnswer session.Turn
	for _, turn := range turns {
		if turn.Kind == session.KindNoAnswer {
			noAnswer = turn
		}
	}
	if noAnswer.Round != 0 {
		t.Errorf("no-answer turn should be in round 0, got %d", noAnswer.Round)
	}
	// Round 1 scored despite round 0's silence.
	if sess.Score() != 1 {
		t.Errorf("expected score 1 from round 1, got %d", sess.Score())
	}
}

func TestRunRoundNumbersStayMonotonic(t *testing.T) {
	fail := true
	gen := &generation.Mock{
		GenerateFunc: func(ctx context.Context, req *generation.Request) (*generation.Result, error) {
			fail = !fail
			if !fail {
				return &generation.Result{
					Message: generation.NewAssistantMessage("Some text."),
				}, nil
			}
			return nil, errors.New("flaky")
		},
	}
	sess := session.New(4)
	o, err := game.New(gen, sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := -1
	for _, turn := range sess.History() {
		if turn.Round < last {
			t.Fatalf("round went backwards: %d after %d", turn.Round, last)
		}
		last = turn.Round
	}
	if last != 3 {
		t.Errorf("expected final turn in round 3, got %d", last)
	}
}

func TestRunCancelledContextTerminates(t *testing.T) {
	gen := generation.NewMock()
	sess := session.New(1000)
	ctx, cancel := context.WithCancel(context.Background())

	rounds := 0
	o, err := game.New(gen, sess,
		game.WithStateFunc(func(s game.State) {
			if s == game.StateRoundComplete {
				rounds++
				if rounds == 2 {
					cancel()
				}
			}
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = o.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !sess.ShouldTerminate() {
		t.Error("session should be marked terminated after cancellation")
	}
	if rounds != 2 {
		t.Errorf("expected 2 completed rounds before cancel, got %d", rounds)
	}
}

func TestNewRequiresGenerator(t *testing.T) {
	_, err := game.New(nil, session.New(1))
	if !errors.Is(err, game.ErrNoGenerator) {
		t.Errorf("expected ErrNoGenerator, got %v", err)
	}
}
