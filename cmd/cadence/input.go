package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/cadence/internal/config"
	"github.com/verte-zerg/cadence/internal/eta"
	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/playback"
	"github.com/verte-zerg/cadence/internal/sentence"
)

var (
	inputText       string
	inputRecord     string
	inputPreset     string
	typingWPM       float64
	typingThinking  bool
	typingMidChance float64
	typingMidPause  float64
	typingSentence  float64
	typingParagraph float64
	typingQuote     float64
	typingAnalysis  float64
	typingContext   float64
)

// input is the resolved text and typing configuration for a command.
type input struct {
	text       string
	cfg        model.TypingConfig
	record     config.Record
	recordPath string
	file       config.FileConfig
}

func addInputFlags(cmd *cobra.Command) {
	d := model.DefaultTypingConfig()
	flags := cmd.Flags()
	flags.StringVar(&inputText, "text", "", "text to type instead of a file")
	flags.StringVar(&inputRecord, "record", "", "JSON record to load text and settings from (saved back on change)")
	flags.StringVar(&inputPreset, "preset", "", "typing preset: "+strings.Join(config.PresetNames(), ", "))
	flags.Float64Var(&typingWPM, "wpm", d.WPM, "typing speed in words per minute")
	flags.BoolVar(&typingThinking, "thinking", d.Thinking, "enable thinking pauses")
	flags.Float64Var(&typingMidChance, "mid-pause-chance", d.MidPauseChance, "chance of a mid-sentence pause per character (0-1)")
	flags.Float64Var(&typingMidPause, "mid-pause", d.MidPauseSeconds, "mid-sentence pause, seconds")
	flags.Float64Var(&typingSentence, "sentence-pause", d.SentencePauseSeconds, "end-of-sentence pause, seconds")
	flags.Float64Var(&typingParagraph, "paragraph-pause", d.ParagraphPauseSeconds, "paragraph pause, seconds")
	flags.Float64Var(&typingQuote, "quote-weight", d.QuoteWeight, "sentence pause multiplier for quotes")
	flags.Float64Var(&typingAnalysis, "analysis-weight", d.AnalysisWeight, "sentence pause multiplier for analysis or long sentences")
	flags.Float64Var(&typingContext, "context-weight", d.ContextWeight, "sentence pause multiplier for context lead-ins")
}

// loadInput layers defaults, the TOML file, the record, the preset flag and
// explicit flags, in that order, and reads the text to type.
func loadInput(cmd *cobra.Command, args []string) (input, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return input{}, fmt.Errorf("failed to load config: %w", err)
	}
	base, err := fileCfg.Typing.Apply(model.DefaultTypingConfig())
	if err != nil {
		return input{}, fmt.Errorf("failed to apply config: %w", err)
	}

	in := input{file: fileCfg, recordPath: inputRecord}
	rec := config.DefaultRecord()
	rec.Config = base
	if in.recordPath != "" {
		var rejected []string
		rec, rejected, err = config.LoadRecord(in.recordPath, rec)
		if err != nil {
			return input{}, err
		}
		if len(rejected) > 0 {
			logErrf("ignoring invalid record values: %s\n", strings.Join(rejected, ", "))
		}
		base = rec.Config
	}
	if cmd.Flags().Changed("preset") {
		p, err := config.LookupPreset(inputPreset)
		if err != nil {
			return input{}, err
		}
		base = p.Apply(base)
	}

	applyFloatConfig(cmd, "wpm", &typingWPM, &base.WPM)
	applyBoolConfig(cmd, "thinking", &typingThinking, &base.Thinking)
	applyFloatConfig(cmd, "mid-pause-chance", &typingMidChance, &base.MidPauseChance)
	applyFloatConfig(cmd, "mid-pause", &typingMidPause, &base.MidPauseSeconds)
	applyFloatConfig(cmd, "sentence-pause", &typingSentence, &base.SentencePauseSeconds)
	applyFloatConfig(cmd, "paragraph-pause", &typingParagraph, &base.ParagraphPauseSeconds)
	applyFloatConfig(cmd, "quote-weight", &typingQuote, &base.QuoteWeight)
	applyFloatConfig(cmd, "analysis-weight", &typingAnalysis, &base.AnalysisWeight)
	applyFloatConfig(cmd, "context-weight", &typingContext, &base.ContextWeight)

	in.cfg = model.TypingConfig{
		WPM:                   typingWPM,
		Thinking:              typingThinking,
		MidPauseChance:        typingMidChance,
		MidPauseSeconds:       typingMidPause,
		SentencePauseSeconds:  typingSentence,
		ParagraphPauseSeconds: typingParagraph,
		QuoteWeight:           typingQuote,
		AnalysisWeight:        typingAnalysis,
		ContextWeight:         typingContext,
	}
	if err := validateTyping(in.cfg); err != nil {
		return input{}, err
	}

	text, err := readText(cmd, args, rec.Text)
	if err != nil {
		return input{}, err
	}
	in.text = sentence.Normalize(text)
	rec.Text = in.text
	rec.Config = in.cfg
	in.record = rec
	return in, nil
}

func validateTyping(cfg model.TypingConfig) error {
	checks := []struct {
		flag  string
		value float64
	}{
		{"wpm", cfg.WPM},
		{"mid-pause", cfg.MidPauseSeconds},
		{"sentence-pause", cfg.SentencePauseSeconds},
		{"paragraph-pause", cfg.ParagraphPauseSeconds},
		{"quote-weight", cfg.QuoteWeight},
		{"analysis-weight", cfg.AnalysisWeight},
		{"context-weight", cfg.ContextWeight},
	}
	for _, c := range checks {
		if c.value < 0 {
			return fmt.Errorf("--%s must be >= 0", c.flag)
		}
	}
	if cfg.MidPauseChance < 0 || cfg.MidPauseChance > 1 {
		return fmt.Errorf("--mid-pause-chance must be between 0 and 1")
	}
	return nil
}

// readText picks the text from --text, a file argument, "-" for stdin, the
// record, or piped stdin, in that order.
func readText(cmd *cobra.Command, args []string, recordText string) (string, error) {
	if cmd.Flags().Changed("text") {
		return inputText, nil
	}
	if len(args) == 1 {
		if args[0] == "-" {
			return readAll(cmd.InOrStdin())
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read text: %w", err)
		}
		return string(data), nil
	}
	if recordText != "" {
		return recordText, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && f == os.Stdin && !isTerminal(f) {
		return readAll(f)
	}
	return "", fmt.Errorf("no text to type: pass a file, -, --text or --record")
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// recordSink saves every change to the record at path.
func recordSink(path string, showAdvanced bool, logger *zap.Logger) func(config.ChangeEvent) {
	return func(ev config.ChangeEvent) {
		rec := config.Record{Text: ev.Text, Config: ev.Config, ShowAdvanced: showAdvanced}
		if err := config.SaveRecord(path, rec); err != nil {
			logger.Warn("failed to save record", zap.String("path", path), zap.Error(err))
		}
	}
}

// progressPrinter writes a single refreshing progress line for non-TTY runs.
type progressPrinter struct {
	mu        sync.Mutex
	w         io.Writer
	text      string
	bus       *config.Bus
	estimator *eta.Estimator
	lastPct   int
}

func newProgressPrinter(w io.Writer, text string, bus *config.Bus, estimator *eta.Estimator) *progressPrinter {
	return &progressPrinter{w: w, text: text, bus: bus, estimator: estimator, lastPct: -1}
}

// OnProgress implements playback.Observer.
func (p *progressPrinter) OnProgress(done, total int) {
	if total <= 0 {
		return
	}
	pct := done * 100 / total
	p.mu.Lock()
	defer p.mu.Unlock()
	if pct == p.lastPct {
		return
	}
	p.lastPct = pct
	remaining := p.estimator.Estimate(p.text, done, p.bus.Current().Config)
	if _, err := fmt.Fprintf(p.w, "\r%3d%%  %d/%d  ETA %s ", pct, done, total, eta.Format(remaining)); err != nil {
		_ = err
	}
}

// OnEvent implements playback.Observer.
func (p *progressPrinter) OnEvent(model.KeystrokeEvent) {}

// OnFinish implements playback.Observer.
func (p *progressPrinter) OnFinish(playback.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastPct >= 0 {
		if _, err := fmt.Fprintln(p.w); err != nil {
			_ = err
		}
	}
	p.lastPct = -1
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target, value *time.Duration) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}
