package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/cadence/internal/config"
	"github.com/verte-zerg/cadence/internal/eta"
	"github.com/verte-zerg/cadence/internal/inject"
	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/playback"
	"github.com/verte-zerg/cadence/internal/sentence"
	"github.com/verte-zerg/cadence/internal/stats"
	"github.com/verte-zerg/cadence/internal/store"
	"github.com/verte-zerg/cadence/internal/timing"
)

const (
	defaultStatsWindow = 5
	defaultTopPauses   = 3
)

var (
	etaFrom  int
	etaWatch bool

	timelineJSON    bool
	timelineSeed    int64
	timelineMistake float64

	statsSince  string
	statsLast   int
	statsStatus string
	statsWindow int
)

func newETACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eta [file|-]",
		Short: "Estimate how long typing the text takes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runETACmd,
	}
	addInputFlags(cmd)
	cmd.Flags().IntVar(&etaFrom, "from", 0, "character index to estimate from")
	cmd.Flags().BoolVar(&etaWatch, "watch", false, "recompute when the text file or record changes")
	return cmd
}

func runETACmd(cmd *cobra.Command, args []string) error {
	if etaFrom < 0 {
		return fmt.Errorf("--from must be >= 0")
	}
	in, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := printETA(out, in.text, in.cfg); err != nil {
		return err
	}
	if !etaWatch {
		return nil
	}

	path := in.recordPath
	if len(args) == 1 && args[0] != "-" {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("--watch needs a file argument or --record")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := config.NewBus(in.cfg, in.text)
	bus.Subscribe(func(ev config.ChangeEvent) {
		if _, err := fmt.Fprintf(out, "\n[%s] %s changed\n", time.Now().Format("15:04:05"), filepath.Base(path)); err != nil {
			return
		}
		if err := printETA(out, ev.Text, ev.Config); err != nil {
			logErrf("failed to print estimate: %v\n", err)
		}
	})
	logErrf("Watching %s (ctrl+c to stop)\n", path)
	return config.Watch(ctx, path, config.DefaultDebounce, func() {
		next, err := loadInput(cmd, args)
		if err != nil {
			logErrf("failed to reload: %v\n", err)
			return
		}
		bus.Set(config.SourceFile, next.cfg, next.text)
	})
}

func printETA(w io.Writer, text string, cfg model.TypingConfig) error {
	b := eta.Compute(text, etaFrom, cfg)
	total := b.Total()
	lines := []string{
		fmt.Sprintf("ETA %s (%ds)", eta.Format(total), eta.WholeSeconds(total)),
		fmt.Sprintf("  characters       %d at %.3fs", b.Chars, b.BaseDelay),
		fmt.Sprintf("  typing           %.2fs", b.Typing),
		fmt.Sprintf("  corrections      %.2fs", b.Mistakes),
		fmt.Sprintf("  mid pauses       %.2fs", b.MidPauses),
		fmt.Sprintf("  sentence pauses  %.2fs (%d)", b.SentencePauses, b.Sentences),
		fmt.Sprintf("  paragraph pauses %.2fs (%d)", b.ParagraphPauses, b.Paragraphs),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [file|-]",
		Short: "Show how each sentence will be paced",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlanCmd,
	}
	addInputFlags(cmd)
	return cmd
}

func runPlanCmd(cmd *cobra.Command, args []string) error {
	in, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	rows := stats.BuildPlan(in.text, sentence.Analyze(in.text), in.cfg)
	if err := stats.RenderPlan(out, rows); err != nil {
		return err
	}
	top := stats.LongestPauses(rows, defaultTopPauses)
	if len(top) > 0 {
		parts := make([]string, 0, len(top))
		for _, r := range top {
			parts = append(parts, fmt.Sprintf("#%d %.2fs", r.Index, r.Pause))
		}
		if _, err := fmt.Fprintf(out, "\nLongest pauses: %s\n", strings.Join(parts, ", ")); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(out, "Estimated total: %s\n", eta.Format(eta.Estimate(in.text, 0, in.cfg)))
	return err
}

func newTimelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline [file|-]",
		Short: "Dry-run playback on a virtual clock and print every event",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTimelineCmd,
	}
	addInputFlags(cmd)
	cmd.Flags().BoolVar(&timelineJSON, "json", false, "print events as JSON lines")
	cmd.Flags().Int64Var(&timelineSeed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&timelineMistake, "mistake-rate", timing.MistakeRate, "chance of a corrected slip per character (0-1)")
	return cmd
}

type timelineEvent struct {
	AtMs    int64  `json:"at_ms"`
	Kind    string `json:"kind"`
	Text    string `json:"text"`
	DelayMs int64  `json:"delay_ms"`
}

func runTimelineCmd(cmd *cobra.Command, args []string) error {
	if timelineMistake < 0 || timelineMistake > 1 {
		return fmt.Errorf("--mistake-rate must be between 0 and 1")
	}
	in, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	var writeErr error
	printer := playback.ObserverFuncs{Event: func(ev model.KeystrokeEvent) {
		if writeErr != nil {
			return
		}
		if timelineJSON {
			writeErr = enc.Encode(timelineEvent{
				AtMs:    ev.At.Milliseconds(),
				Kind:    string(ev.Kind),
				Text:    ev.Text,
				DelayMs: ev.Delay.Milliseconds(),
			})
			return
		}
		_, writeErr = fmt.Fprintf(out, "%10s  %-9s %-12q %s\n", ev.At.Round(time.Millisecond), ev.Kind, ev.Text, ev.Delay.Round(time.Millisecond))
	}}

	clock := &playback.VirtualClock{}
	recorder := &inject.Recorder{}
	engine := playback.New(recorder, in.cfg,
		playback.WithSleeper(clock),
		playback.WithSeed(timelineSeed),
		playback.WithMistakeModel(timing.MistakeModel{Rate: timelineMistake}),
		playback.WithObserver(printer),
	)
	res, _ := engine.Run(context.Background(), in.text)
	if writeErr != nil {
		return fmt.Errorf("failed to write output: %w", writeErr)
	}
	if recorder.Text() != in.text {
		return fmt.Errorf("timeline replay does not reproduce the text")
	}
	logErrf("Virtual duration %s: %d characters, %d mistakes corrected, %d pauses.\n",
		clock.Elapsed().Round(time.Millisecond), res.Position, res.Mistakes, res.Pauses)
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show playback history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().StringVar(&statsStatus, "status", "", "filter by status: completed or aborted")
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average window for the WPM trend")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	status := model.RunStatus(statsStatus)
	switch status {
	case "", model.StatusCompleted, model.StatusAborted:
	default:
		return fmt.Errorf("--status must be %s or %s", model.StatusCompleted, model.StatusAborted)
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}

	cfg := model.StatsConfig{
		Since:  sinceTime,
		Last:   statsLast,
		Status: status,
		Window: statsWindow,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout())
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List typing presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return stats.RenderPresets(cmd.OutOrStdout(), config.Presets())
		},
	}
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <path> [file|-]",
		Short: "Write the effective settings and text as a JSON record",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runRecordCmd,
	}
	addInputFlags(cmd)
	return cmd
}

func runRecordCmd(cmd *cobra.Command, args []string) error {
	in, err := loadInput(cmd, args[1:])
	if err != nil {
		return err
	}
	if err := config.SaveRecord(args[0], in.record); err != nil {
		return err
	}
	logErrf("Wrote %s\n", args[0])
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.DefaultTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		logErrln("Created", path)
	}
	return nil
}
