package tts

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxSegmentLen is the longest text segment sent to a provider in
// one request. Long host rants synthesize more reliably in pieces.
const DefaultMaxSegmentLen = 200

// Split preference tiers. Sentence enders first, then clause breaks,
// then commas, then any whitespace as a last resort.
var (
	tier1Splits = []string{".", "?", "!"}
	tier2Splits = []string{":", ";", "—"}
	tier3Splits = []string{","}
	tier4Splits = []string{" "}

	// Characters that may trail a sentence ender and belong with it.
	tier1Additions = "\"?!"
)

// CleanText strips characters that are unsafe for voice synthesis.
func CleanText(text string) string {
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	return strings.TrimSpace(replacer.Replace(text))
}

// SplitText breaks text into segments no longer than maxLen, preferring
// sentence boundaries, then clause breaks, then commas, then spaces.
// A maxLen of zero or less returns the text as a single segment.
func SplitText(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{strings.TrimSpace(text)}
	}

	var segments []string
	for len(text) > maxLen {
		idx := lastIndexAny(text, maxLen, tier1Splits)
		sentence := idx >= 0
		if idx < 0 {
			idx = lastIndexAny(text, maxLen, tier2Splits)
		}
		if idx < 0 {
			idx = lastIndexAny(text, maxLen, tier3Splits)
		}
		if idx < 0 {
			idx = lastIndexAny(text, maxLen, tier4Splits)
		}
		if idx < 0 {
			// No usable split point within maxLen.
			break
		}
		// Include the split character with the first chunk. Clause breaks
		// like the em dash are multi-byte, so advance by the full rune.
		_, size := utf8.DecodeRuneInString(text[idx:])
		idx += size
		if sentence {
			// Pull trailing quote/punctuation into this segment.
			for idx < len(text) && strings.ContainsRune(tier1Additions, rune(text[idx])) {
				idx++
			}
		}
		segments = append(segments, strings.TrimSpace(text[:idx]))
		text = text[idx:]
	}

	segments = append(segments, strings.TrimSpace(text))
	return segments
}

// lastIndexAny finds the rightmost occurrence of any candidate within
// text[:limit]. Returns -1 when none occur.
func lastIndexAny(text string, limit int, candidates []string) int {
	if limit > len(text) {
		limit = len(text)
	}
	best := -1
	for _, c := range candidates {
		if idx := strings.LastIndex(text[:limit], c); idx > best {
			best = idx
		}
	}
	return best
}
