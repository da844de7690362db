// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/cadence/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Typing   TypingConfig   `toml:"typing"`
	Playback PlaybackConfig `toml:"playback"`
	Log      LogConfig      `toml:"log"`
}

// TypingConfig maps typing-related settings. Nil fields are unset.
type TypingConfig struct {
	Preset         *string  `toml:"preset"`
	WPM            *float64 `toml:"wpm"`
	Thinking       *bool    `toml:"thinking"`
	MidPauseChance *float64 `toml:"mid-pause-chance"`
	MidPause       *float64 `toml:"mid-pause"`
	SentencePause  *float64 `toml:"sentence-pause"`
	ParagraphPause *float64 `toml:"paragraph-pause"`
	QuoteWeight    *float64 `toml:"quote-weight"`
	AnalysisWeight *float64 `toml:"analysis-weight"`
	ContextWeight  *float64 `toml:"context-weight"`
}

// PlaybackConfig maps injector settings.
type PlaybackConfig struct {
	Injector  *string   `toml:"injector"`
	Countdown *Duration `toml:"countdown"`
	FailSafe  *bool     `toml:"fail-safe"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level      *string `toml:"level"`
	File       *string `toml:"file"`
	MaxSizeMB  *int    `toml:"max-size-mb"`
	MaxBackups *int    `toml:"max-backups"`
	MaxAgeDays *int    `toml:"max-age-days"`
}

// Duration decodes TOML strings such as "3s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Apply overlays the set fields onto base. A preset, when named, applies
// first so explicit fields still win.
func (t TypingConfig) Apply(base model.TypingConfig) (model.TypingConfig, error) {
	cfg := base
	if t.Preset != nil && *t.Preset != "" {
		p, err := LookupPreset(*t.Preset)
		if err != nil {
			return base, err
		}
		cfg = p.Apply(cfg)
	}
	setFloat(&cfg.WPM, t.WPM)
	if t.Thinking != nil {
		cfg.Thinking = *t.Thinking
	}
	setFloat(&cfg.MidPauseChance, t.MidPauseChance)
	setFloat(&cfg.MidPauseSeconds, t.MidPause)
	setFloat(&cfg.SentencePauseSeconds, t.SentencePause)
	setFloat(&cfg.ParagraphPauseSeconds, t.ParagraphPause)
	setFloat(&cfg.QuoteWeight, t.QuoteWeight)
	setFloat(&cfg.AnalysisWeight, t.AnalysisWeight)
	setFloat(&cfg.ContextWeight, t.ContextWeight)
	return cfg.Sanitize(), nil
}

func setFloat(target, value *float64) {
	if value != nil {
		*target = *value
	}
}

// DefaultTemplate renders the commented settings file written by `cadence config`.
func DefaultTemplate() string {
	d := model.DefaultTypingConfig()
	return fmt.Sprintf(`# cadence configuration
# Uncomment a value to enable it. CLI flags override config values.

[typing]
# preset = "normal"          # conservative, normal, deep, student
# wpm = %.0f                  # Typing speed in words per minute
# thinking = %t             # Enable thinking pauses
# mid-pause-chance = %.2f    # Chance of a mid-sentence pause per character
# mid-pause = %.1f            # Mid-sentence pause, seconds
# sentence-pause = %.1f       # End-of-sentence pause, seconds
# paragraph-pause = %.1f     # Paragraph pause, seconds
# quote-weight = %.1f         # Sentence pause multiplier for quotes
# analysis-weight = %.1f      # Sentence pause multiplier for analysis or long sentences
# context-weight = %.1f       # Sentence pause multiplier for context lead-ins

[playback]
# injector = "xdotool"       # xdotool or stdout
# countdown = "3s"           # Wait before the first keystroke
# fail-safe = true           # Abort when the pointer reaches a screen corner

[log]
# level = "warn"             # debug, info, warn, error
# file = ""                  # JSON log file (rotated); defaults to $XDG_STATE_HOME/cadence/cadence.log under the TUI
# max-size-mb = 10
# max-backups = 3
# max-age-days = 28
`,
		d.WPM,
		d.Thinking,
		d.MidPauseChance,
		d.MidPauseSeconds,
		d.SentencePauseSeconds,
		d.ParagraphPauseSeconds,
		d.QuoteWeight,
		d.AnalysisWeight,
		d.ContextWeight,
	)
}
