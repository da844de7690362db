// Package eta estimates the remaining playback time from expectations only.
package eta

import (
	"fmt"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/sentence"
	"github.com/verte-zerg/cadence/internal/timing"
)

// Breakdown holds each term of an estimate, in seconds.
type Breakdown struct {
	Chars           int
	BaseDelay       float64
	Typing          float64
	Mistakes        float64
	MidPauses       float64
	SentencePauses  float64
	ParagraphPauses float64
	Sentences       int
	Paragraphs      int
}

// Total sums all terms.
func (b Breakdown) Total() float64 {
	return b.Typing + b.Mistakes + b.MidPauses + b.SentencePauses + b.ParagraphPauses
}

// Estimate returns the expected seconds to type text starting at character from.
func Estimate(text string, from int, cfg model.TypingConfig) float64 {
	return Compute(text, from, cfg).Total()
}

// Compute returns the estimate for text starting at character from, split by term.
func Compute(text string, from int, cfg model.TypingConfig) Breakdown {
	normalized := sentence.Normalize(text)
	return compute(normalized, sentence.Analyze(normalized), from, cfg)
}

// compute works on normalized text and its analysed sentences. A sentence
// contributes its pause when its last character has not been typed yet.
func compute(normalized string, sentences []model.Sentence, from int, cfg model.TypingConfig) Breakdown {
	offset := byteOffset(normalized, from)
	remaining := normalized[offset:]
	if remaining == "" {
		return Breakdown{}
	}

	base := timing.BaseDelay(cfg.WPM)
	chars := utf8.RuneCountInString(remaining)
	if chars < 1 {
		chars = 1
	}
	n := float64(chars)
	b := Breakdown{
		Chars:     chars,
		BaseDelay: base,
		Typing:    n * base,
		// The mid-pause chance doubles as the mistake frequency here.
		Mistakes: n * cfg.MidPauseChance * timing.MistakeCost * base,
	}
	if !cfg.Thinking {
		return b
	}

	b.MidPauses = n * cfg.MidPauseChance * cfg.MidPauseSeconds
	for _, s := range sentences {
		last, ok := timing.PauseOffset(s, normalized)
		if !ok || last < offset {
			continue
		}
		b.Sentences++
		b.SentencePauses += timing.SentencePause(s.Tags, cfg)
	}
	b.Paragraphs = timing.ParagraphBreaks(remaining)
	b.ParagraphPauses = float64(b.Paragraphs) * cfg.ParagraphPauseSeconds
	return b
}

// byteOffset converts a character index into a byte offset, clamped to text.
func byteOffset(text string, from int) int {
	if from <= 0 {
		return 0
	}
	i := 0
	for off := range text {
		if i == from {
			return off
		}
		i++
	}
	return len(text)
}

// Estimator caches the sentence analysis of the last text it saw. It is safe
// for concurrent use.
type Estimator struct {
	mu         sync.Mutex
	text       string
	normalized string
	sentences  []model.Sentence
	primed     bool
}

// NewEstimator returns an empty estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Compute behaves like the package-level Compute, reusing the cached analysis
// when text is unchanged.
func (e *Estimator) Compute(text string, from int, cfg model.TypingConfig) Breakdown {
	e.mu.Lock()
	if !e.primed || e.text != text {
		e.text = text
		e.normalized = sentence.Normalize(text)
		e.sentences = sentence.Analyze(e.normalized)
		e.primed = true
	}
	normalized, sentences := e.normalized, e.sentences
	e.mu.Unlock()
	return compute(normalized, sentences, from, cfg)
}

// Estimate returns the total of Compute.
func (e *Estimator) Estimate(text string, from int, cfg model.TypingConfig) float64 {
	return e.Compute(text, from, cfg).Total()
}

// WholeSeconds rounds an estimate up so a pending run never reads as zero.
func WholeSeconds(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int(math.Ceil(seconds - 1e-9))
}

// Format renders seconds as MM:SS, or H:MM:SS past an hour.
func Format(seconds float64) string {
	d := time.Duration(WholeSeconds(seconds)) * time.Second
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
