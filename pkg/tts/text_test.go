package tts_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/quizlab/go-trivia/pkg/tts"
)

func TestCleanText(t *testing.T) {
	got := tts.CleanText("Hello\nworld\tthis is\r\na test")
	if strings.ContainsAny(got, "\r\n\t") {
		t.Errorf("control characters survived cleaning: %q", got)
	}
	if got != "Hello world this is  a test" {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestSplitTextShortTextUnsplit(t *testing.T) {
	segments := tts.SplitText("A short question.", 200)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0] != "A short question." {
		t.Errorf("unexpected segment: %q", segments[0])
	}
}

func TestSplitTextPrefersSentenceBoundaries(t *testing.T) {
	text := "This is the first sentence. This is the second sentence and it keeps going for a while."
	segments := tts.SplitText(text, 40)

	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	if segments[0] != "This is the first sentence." {
		t.Errorf("expected split at sentence boundary, got %q", segments[0])
	}
}

func TestSplitTextIncludesTrailingPunctuation(t *testing.T) {
	text := `He said "Is that right?!" and then continued talking for quite some time after that.`
	segments := tts.SplitText(text, 30)

	if !strings.HasSuffix(segments[0], `?!"`) {
		t.Errorf("trailing punctuation should stay with the first segment, got %q", segments[0])
	}
}

func TestSplitTextFallsBackToSpaces(t *testing.T) {
	text := strings.Repeat("word ", 30) // no punctuation at all
	segments := tts.SplitText(strings.TrimSpace(text), 50)

	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	for _, s := range segments {
		if len(s) > 50 {
			t.Errorf("segment exceeds max length: %q", s)
		}
	}
}

func TestSplitTextReassemblesLosslessly(t *testing.T) {
	text := "One sentence here. Another one there! A question maybe? Then a; clause, and more words to pad this out."
	segments := tts.SplitText(text, 30)

	joined := strings.Join(segments, " ")
	// Collapse double spaces introduced at the join points.
	normalize := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}
	if normalize(joined) != normalize(text) {
		t.Errorf("content lost in split:\n want %q\n got  %q", text, joined)
	}
}

func TestSplitTextMultiByteSplitCharacter(t *testing.T) {
	// An em dash is a valid clause break but spans three bytes. Splitting
	// there must not cut through the middle of the rune.
	text := strings.Repeat("a", 50) + "—" + strings.Repeat("b", 100)
	segments := tts.SplitText(text, 60)

	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	for i, s := range segments {
		if !utf8.ValidString(s) {
			t.Errorf("segment %d is not valid UTF-8: %q", i, s)
		}
	}
	if !strings.HasSuffix(segments[0], "—") {
		t.Errorf("em dash should stay with the first segment, got %q", segments[0])
	}
}

func TestSplitTextZeroMaxDisablesSplitting(t *testing.T) {
	text := strings.Repeat("long sentence without breaks ", 20)
	segments := tts.SplitText(text, 0)
	if len(segments) != 1 {
		t.Errorf("expected no splitting, got %d segments", len(segments))
	}
}
