// Package timing holds the per-character delay and pause weighting model.
package timing

import (
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/verte-zerg/cadence/internal/model"
)

const (
	// CharsPerWord is the average word length assumed when converting WPM.
	CharsPerWord = 5.0
	// FloorDelay applies when the configured rate is not positive.
	FloorDelay = 0.1
	// DialogDamping shortens pauses for dialog and list sentences.
	DialogDamping = 0.7

	jitterMin = 0.8
	jitterMax = 1.2
)

// BaseDelay returns the seconds between characters at the given rate.
func BaseDelay(wpm float64) float64 {
	charsPerSecond := wpm * CharsPerWord / 60
	if charsPerSecond > 0 {
		return 60 / (wpm * CharsPerWord)
	}
	return FloorDelay
}

// Multiplier weights the sentence pause by the sentence's tags. Weights
// compose multiplicatively and the dialog/list damping is applied last.
func Multiplier(tags model.TagSet, cfg model.TypingConfig) float64 {
	m := 1.0
	if tags.Has(model.TagQuote) {
		m *= cfg.QuoteWeight
	}
	if tags.Has(model.TagAnalysis) || tags.Has(model.TagLong) {
		m *= cfg.AnalysisWeight
	}
	if tags.Has(model.TagContext) {
		m *= cfg.ContextWeight
	}
	if tags.Has(model.TagDialog) || tags.Has(model.TagList) {
		m *= DialogDamping
	}
	return m
}

// SentencePause returns the scaled end-of-sentence pause in seconds.
func SentencePause(tags model.TagSet, cfg model.TypingConfig) float64 {
	return cfg.SentencePauseSeconds * Multiplier(tags, cfg)
}

// IsTerminator reports whether r ends a sentence.
func IsTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// LastRune returns the byte offset and value of the sentence's last character in source.
func LastRune(s model.Sentence, source string) (int, rune) {
	end := s.End
	if end > len(source) {
		end = len(source)
	}
	if end <= s.Start {
		return -1, utf8.RuneError
	}
	r, size := utf8.DecodeLastRuneInString(source[:end])
	return end - size, r
}

// IsClosingQuote reports whether r may follow terminal punctuation inside
// the same terminator run.
func IsClosingQuote(r rune) bool {
	return r == '"' || r == '\'' || r == '”' || r == '’'
}

// PauseOffset returns the byte offset of the punctuation that ends the
// sentence, looking back past closing quotes. The sentence pause is taken
// right before typing that character. ok is false for unterminated sentences.
func PauseOffset(s model.Sentence, source string) (off int, ok bool) {
	off, r := LastRune(s, source)
	for off > s.Start && IsClosingQuote(r) {
		var size int
		r, size = utf8.DecodeLastRuneInString(source[:off])
		off -= size
	}
	if off < 0 || !IsTerminator(r) {
		return -1, false
	}
	return off, true
}

// EndsWithTerminator reports whether the sentence ends in terminal
// punctuation, optionally followed by closing quotes.
func EndsWithTerminator(s model.Sentence, source string) bool {
	_, ok := PauseOffset(s, source)
	return ok
}

// ParagraphBreaks counts non-overlapping double line breaks.
func ParagraphBreaks(s string) int {
	return strings.Count(s, "\n\n")
}

// Jitter returns a uniform scale factor in [0.8, 1.2).
func Jitter(rnd *rand.Rand) float64 {
	return jitterMin + rnd.Float64()*(jitterMax-jitterMin)
}

// Seconds converts fractional seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
