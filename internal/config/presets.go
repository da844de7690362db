package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/cadence/internal/model"
)

// ErrUnknownPreset is returned for a preset name that does not exist.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named set of typing settings. Nil weights leave the current
// value untouched.
type Preset struct {
	Name           string
	Description    string
	WPM            float64
	MidPauseChance float64
	MidPause       float64
	SentencePause  float64
	ParagraphPause float64
	QuoteWeight    *float64
	AnalysisWeight *float64
	ContextWeight  *float64
}

func weight(v float64) *float64 { return &v }

var presets = map[string]Preset{
	"conservative": {
		Name:           "conservative",
		Description:    "slow and steady, few pauses",
		WPM:            30,
		MidPauseChance: 0.02,
		MidPause:       0.5,
		SentencePause:  1.0,
		ParagraphPause: 45.0,
	},
	"normal": {
		Name:           "normal",
		Description:    "balanced everyday typing",
		WPM:            45,
		MidPauseChance: 0.05,
		MidPause:       0.8,
		SentencePause:  1.6,
		ParagraphPause: 20.0,
		QuoteWeight:    weight(1.4),
		AnalysisWeight: weight(1.6),
		ContextWeight:  weight(1.2),
	},
	"deep": {
		Name:           "deep",
		Description:    "deep thinker, long deliberate pauses",
		WPM:            35,
		MidPauseChance: 0.12,
		MidPause:       1.6,
		SentencePause:  3.0,
		ParagraphPause: 60.0,
		QuoteWeight:    weight(1.6),
		AnalysisWeight: weight(2.0),
		ContextWeight:  weight(1.4),
	},
	"student": {
		Name:           "student",
		Description:    "average student typist",
		WPM:            38,
		MidPauseChance: 0.07,
		MidPause:       0.9,
		SentencePause:  1.8,
		ParagraphPause: 15.0,
		QuoteWeight:    weight(1.3),
		AnalysisWeight: weight(1.5),
		ContextWeight:  weight(1.2),
	},
}

// LookupPreset finds a preset by case-insensitive name.
func LookupPreset(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := presets[key]; ok {
		return p, nil
	}
	return Preset{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
}

// PresetNames returns preset names sorted alphabetically.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns every preset sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, name := range PresetNames() {
		out = append(out, presets[name])
	}
	return out
}

// Apply returns cfg with the preset values laid over it. Every preset
// enables thinking pauses.
func (p Preset) Apply(cfg model.TypingConfig) model.TypingConfig {
	cfg.WPM = p.WPM
	cfg.Thinking = true
	cfg.MidPauseChance = p.MidPauseChance
	cfg.MidPauseSeconds = p.MidPause
	cfg.SentencePauseSeconds = p.SentencePause
	cfg.ParagraphPauseSeconds = p.ParagraphPause
	setFloat(&cfg.QuoteWeight, p.QuoteWeight)
	setFloat(&cfg.AnalysisWeight, p.AnalysisWeight)
	setFloat(&cfg.ContextWeight, p.ContextWeight)
	return cfg
}
