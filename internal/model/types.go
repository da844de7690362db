// Package model defines shared data structures.
package model

import (
	"math"
	"strings"
	"time"
)

// Tag marks a structural feature of a sentence that modulates pacing.
type Tag uint8

// Sentence tags.
const (
	TagQuote Tag = 1 << iota
	TagDialog
	TagList
	TagAnalysis
	TagContext
	TagLong
)

// AllTags lists every tag in display order.
var AllTags = []Tag{TagQuote, TagDialog, TagList, TagAnalysis, TagContext, TagLong}

// String returns the lower-case tag name.
func (t Tag) String() string {
	switch t {
	case TagQuote:
		return "quote"
	case TagDialog:
		return "dialog"
	case TagList:
		return "list"
	case TagAnalysis:
		return "analysis"
	case TagContext:
		return "context"
	case TagLong:
		return "long"
	default:
		return "unknown"
	}
}

// TagSet is a set of sentence tags.
type TagSet uint8

// Has reports whether t is in the set.
func (s TagSet) Has(t Tag) bool {
	return s&TagSet(t) != 0
}

// Add returns the set with t included.
func (s TagSet) Add(t Tag) TagSet {
	return s | TagSet(t)
}

// Strings returns tag names in display order.
func (s TagSet) Strings() []string {
	out := make([]string, 0, len(AllTags))
	for _, t := range AllTags {
		if s.Has(t) {
			out = append(out, t.String())
		}
	}
	return out
}

// String joins tag names with commas, or "-" for the empty set.
func (s TagSet) String() string {
	if s == 0 {
		return "-"
	}
	return strings.Join(s.Strings(), ",")
}

// Sentence is a span of normalized source text. Start and End are byte offsets.
type Sentence struct {
	Start int
	End   int
	Text  string
	Tags  TagSet
}

// TypingConfig is an immutable snapshot of typing settings.
type TypingConfig struct {
	WPM                   float64
	Thinking              bool
	MidPauseChance        float64
	MidPauseSeconds       float64
	SentencePauseSeconds  float64
	ParagraphPauseSeconds float64
	QuoteWeight           float64
	AnalysisWeight        float64
	ContextWeight         float64
}

// Documented defaults.
const (
	DefaultWPM                   = 40.0
	DefaultThinking              = true
	DefaultMidPauseChance        = 0.05
	DefaultMidPauseSeconds       = 0.8
	DefaultSentencePauseSeconds  = 1.6
	DefaultParagraphPauseSeconds = 20.0
	DefaultQuoteWeight           = 1.5
	DefaultAnalysisWeight        = 1.8
	DefaultContextWeight         = 1.3
)

// DefaultTypingConfig returns the documented defaults.
func DefaultTypingConfig() TypingConfig {
	return TypingConfig{
		WPM:                   DefaultWPM,
		Thinking:              DefaultThinking,
		MidPauseChance:        DefaultMidPauseChance,
		MidPauseSeconds:       DefaultMidPauseSeconds,
		SentencePauseSeconds:  DefaultSentencePauseSeconds,
		ParagraphPauseSeconds: DefaultParagraphPauseSeconds,
		QuoteWeight:           DefaultQuoteWeight,
		AnalysisWeight:        DefaultAnalysisWeight,
		ContextWeight:         DefaultContextWeight,
	}
}

// Sanitize replaces negative or non-finite numeric fields with defaults.
// WPM may be zero; the timing model applies its floor delay in that case.
func (c TypingConfig) Sanitize() TypingConfig {
	d := DefaultTypingConfig()
	fix := func(v *float64, def float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			*v = def
		}
	}
	fix(&c.WPM, d.WPM)
	fix(&c.MidPauseChance, d.MidPauseChance)
	fix(&c.MidPauseSeconds, d.MidPauseSeconds)
	fix(&c.SentencePauseSeconds, d.SentencePauseSeconds)
	fix(&c.ParagraphPauseSeconds, d.ParagraphPauseSeconds)
	fix(&c.QuoteWeight, d.QuoteWeight)
	fix(&c.AnalysisWeight, d.AnalysisWeight)
	fix(&c.ContextWeight, d.ContextWeight)
	return c
}

// EventKind classifies a keystroke event.
type EventKind string

// Keystroke event kinds.
const (
	EventType      EventKind = "type"
	EventMistake   EventKind = "mistake"
	EventBackspace EventKind = "backspace"
	EventPause     EventKind = "pause"
)

// KeystrokeEvent is one step of the execution trace. Delay is the wait that
// follows the step; At is the elapsed run time when the step was issued.
type KeystrokeEvent struct {
	Kind  EventKind
	Text  string
	Delay time.Duration
	At    time.Duration
}

// PlaybackState is a snapshot of the single run state.
type PlaybackState struct {
	Position int
	Running  bool
	Aborted  bool
}

// RunStatus is the terminal status of a playback run.
type RunStatus string

// Run statuses.
const (
	StatusCompleted RunStatus = "completed"
	StatusAborted   RunStatus = "aborted"
)

// RunRecord captures a finished playback run.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	EndedAt    time.Time
	Status     RunStatus
	CharsTotal int
	CharsTyped int
	Mistakes   int
	Pauses     int
	WPM        float64
	DurationMs int64
	Error      string
	TagCounts  map[string]int
}

// StatsConfig defines filters for run history output.
type StatsConfig struct {
	Since  *time.Time
	Last   int
	Status RunStatus
	Window int
}

// RunAggregate summarizes a stored run for reporting.
type RunAggregate struct {
	ID         int64
	RunID      string
	EndedAt    time.Time
	Status     RunStatus
	CharsTotal int
	CharsTyped int
	Mistakes   int
	Pauses     int
	WPM        float64
	DurationMs int64
}

// TagAggregate counts sentences carrying a tag across runs.
type TagAggregate struct {
	Tag   string
	Count int
}
