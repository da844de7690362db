package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/verte-zerg/cadence/internal/model"
)

// Flat record keys.
const (
	KeyText           = "text_to_type"
	KeyWPM            = "typing_speed_wpm"
	KeyThinking       = "enable_thinking"
	KeyMidPauseChance = "mid_sentence_pause_chance"
	KeyMidPause       = "mid_sentence_pause_seconds"
	KeySentencePause  = "sentence_pause_seconds"
	KeyParagraphPause = "paragraph_pause_seconds"
	KeyQuoteWeight    = "quote_sentence_multiplier"
	KeyAnalysisWeight = "analysis_sentence_multiplier"
	KeyContextWeight  = "context_sentence_multiplier"
	KeyShowAdvanced   = "show_advanced"
)

// Record is the flat key/value configuration persisted between sessions.
type Record struct {
	Text         string
	Config       model.TypingConfig
	ShowAdvanced bool
}

// DefaultRecord returns an empty text with the documented defaults.
func DefaultRecord() Record {
	return Record{Config: model.DefaultTypingConfig(), ShowAdvanced: true}
}

// DecodeRecord overlays the fields present in data onto base. Each field is
// decoded on its own; a missing or malformed value keeps the base value and
// unknown keys are ignored. The returned slice names the rejected keys.
func DecodeRecord(data []byte, base Record) (Record, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return base, nil, fmt.Errorf("failed to decode record: %w", err)
	}
	rec := base
	var rejected []string
	decodeField := func(key string, apply func(json.RawMessage) bool) {
		v, ok := raw[key]
		if !ok {
			return
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) || !apply(v) {
			rejected = append(rejected, key)
		}
	}

	decodeField(KeyText, func(v json.RawMessage) bool {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return false
		}
		rec.Text = s
		return true
	})
	decodeField(KeyThinking, boolField(&rec.Config.Thinking))
	decodeField(KeyShowAdvanced, boolField(&rec.ShowAdvanced))
	decodeField(KeyWPM, floatField(&rec.Config.WPM))
	decodeField(KeyMidPauseChance, floatField(&rec.Config.MidPauseChance))
	decodeField(KeyMidPause, floatField(&rec.Config.MidPauseSeconds))
	decodeField(KeySentencePause, floatField(&rec.Config.SentencePauseSeconds))
	decodeField(KeyParagraphPause, floatField(&rec.Config.ParagraphPauseSeconds))
	decodeField(KeyQuoteWeight, floatField(&rec.Config.QuoteWeight))
	decodeField(KeyAnalysisWeight, floatField(&rec.Config.AnalysisWeight))
	decodeField(KeyContextWeight, floatField(&rec.Config.ContextWeight))
	return rec, rejected, nil
}

// floatField accepts JSON numbers and numeric strings that are finite and
// non-negative.
func floatField(target *float64) func(json.RawMessage) bool {
	return func(v json.RawMessage) bool {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return false
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return false
			}
			f = parsed
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return false
		}
		*target = f
		return true
	}
}

// boolField accepts JSON booleans, "true"/"false" strings and 0/1.
func boolField(target *bool) func(json.RawMessage) bool {
	return func(v json.RawMessage) bool {
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			*target = b
			return true
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			parsed, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return false
			}
			*target = parsed
			return true
		}
		var n float64
		if err := json.Unmarshal(v, &n); err == nil && (n == 0 || n == 1) {
			*target = n == 1
			return true
		}
		return false
	}
}

// EncodeRecord renders the record as indented JSON.
func EncodeRecord(rec Record) ([]byte, error) {
	c := rec.Config
	flat := map[string]any{
		KeyText:           rec.Text,
		KeyWPM:            c.WPM,
		KeyThinking:       c.Thinking,
		KeyMidPauseChance: c.MidPauseChance,
		KeyMidPause:       c.MidPauseSeconds,
		KeySentencePause:  c.SentencePauseSeconds,
		KeyParagraphPause: c.ParagraphPauseSeconds,
		KeyQuoteWeight:    c.QuoteWeight,
		KeyAnalysisWeight: c.AnalysisWeight,
		KeyContextWeight:  c.ContextWeight,
		KeyShowAdvanced:   rec.ShowAdvanced,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(flat); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadRecord reads a record from path over base. A missing file returns base.
func LoadRecord(path string, base Record) (Record, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil, nil
		}
		return base, nil, fmt.Errorf("failed to read record: %w", err)
	}
	return DecodeRecord(data, base)
}

// SaveRecord writes the record atomically through a temp file and rename.
func SaveRecord(path string, rec Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create record dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "record-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}
