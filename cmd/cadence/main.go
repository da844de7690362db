// Package main provides the CLI entrypoint for cadence.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/cadence/internal/config"
	"github.com/verte-zerg/cadence/internal/eta"
	"github.com/verte-zerg/cadence/internal/inject"
	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/observability"
	"github.com/verte-zerg/cadence/internal/playback"
	"github.com/verte-zerg/cadence/internal/store"
	"github.com/verte-zerg/cadence/internal/timing"
	"github.com/verte-zerg/cadence/internal/tui"
)

const (
	injectorXdotool = "xdotool"
	injectorStdout  = "stdout"

	defaultCountdown = 3 * time.Second
	defaultLogLevel  = "warn"
)

var (
	playInjector    string
	playCountdown   time.Duration
	playFailSafe    bool
	playSeed        int64
	playNoTUI       bool
	playMistakeRate float64
	playNoHistory   bool
	logLevel        string
)

var errInjector = errors.New("playback stopped by injector error")

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cadence [file|-]",
		Short:         "Type text into the focused window with a human cadence",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	addInputFlags(rootCmd)
	rootCmd.Flags().StringVar(&playInjector, "injector", injectorXdotool, "keystroke injector: xdotool or stdout")
	rootCmd.Flags().DurationVar(&playCountdown, "countdown", defaultCountdown, "wait before the first keystroke")
	rootCmd.Flags().BoolVar(&playFailSafe, "fail-safe", true, "abort when the pointer reaches a screen corner (xdotool)")
	rootCmd.Flags().Int64Var(&playSeed, "seed", 0, "random seed for reproducible runs (0 = random)")
	rootCmd.Flags().BoolVar(&playNoTUI, "no-tui", false, "print plain progress instead of the terminal UI")
	rootCmd.Flags().Float64Var(&playMistakeRate, "mistake-rate", timing.MistakeRate, "chance of a corrected slip per character (0-1)")
	rootCmd.Flags().BoolVar(&playNoHistory, "no-history", false, "do not save the run to the history database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level: debug, info, warn, error")

	rootCmd.AddCommand(newETACmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newTimelineCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newPresetsCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, args []string) error {
	in, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "injector", &playInjector, in.file.Playback.Injector)
	applyBoolConfig(cmd, "fail-safe", &playFailSafe, in.file.Playback.FailSafe)
	if in.file.Playback.Countdown != nil {
		applyDurationConfig(cmd, "countdown", &playCountdown, &in.file.Playback.Countdown.Duration)
	}
	if err := validatePlayFlags(); err != nil {
		return err
	}

	useTUI := !playNoTUI && playInjector != injectorStdout && isTerminal(os.Stdin) && isTerminal(os.Stdout)
	logger, err := newLogger(cmd, in.file.Log, !useTUI)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	injector, err := newInjector()
	if err != nil {
		return err
	}

	var st *store.Store
	if !playNoHistory {
		st, err = store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := config.NewBus(in.cfg, in.text)
	estimator := eta.NewEstimator()
	tracker := tui.NewTracker()
	observers := playback.Observers{tracker}
	if !useTUI {
		observers = append(observers, newProgressPrinter(os.Stderr, in.text, bus, estimator))
	}
	engine := playback.New(injector, in.cfg, engineOptions(logger, observers)...)
	bus.Subscribe(func(ev config.ChangeEvent) {
		engine.UpdateConfig(ev.Config)
		logger.Debug("configuration changed", zap.String("source", ev.Source), zap.Float64("wpm", ev.Config.WPM))
	})
	if in.recordPath != "" {
		bus.Subscribe(recordSink(in.recordPath, in.record.ShowAdvanced, logger))
	}

	if !useTUI {
		logErrf("Typing %d characters, estimated %s. Focus the target window.\n",
			utf8.RuneCountInString(in.text), eta.Format(estimator.Estimate(in.text, 0, in.cfg)))
	}
	var res playback.Result
	if useTUI {
		m := tui.NewModel(ctx, tui.Options{Engine: engine, Bus: bus, Estimator: estimator, Tracker: tracker, Text: in.text})
		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		if m.Result() == nil {
			// The program exited before the run reported back.
			engine.Abort()
			return nil
		}
		res = *m.Result()
	} else {
		var ok bool
		res, ok = engine.Run(ctx, in.text)
		if !ok {
			return fmt.Errorf("playback already running")
		}
	}

	if st != nil {
		if _, err := st.InsertRun(context.Background(), res.Record()); err != nil {
			logErrf("failed to save run: %v\n", err)
		}
	}
	return reportResult(res)
}

func validatePlayFlags() error {
	switch playInjector {
	case injectorXdotool, injectorStdout:
	default:
		return fmt.Errorf("--injector must be %s or %s", injectorXdotool, injectorStdout)
	}
	if playCountdown < 0 {
		return fmt.Errorf("--countdown must be >= 0")
	}
	if playMistakeRate < 0 || playMistakeRate > 1 {
		return fmt.Errorf("--mistake-rate must be between 0 and 1")
	}
	return nil
}

func newInjector() (playback.Injector, error) {
	if playInjector == injectorStdout {
		return inject.NewWriter(os.Stdout), nil
	}
	x := inject.NewXdotool(inject.WithFailSafe(playFailSafe))
	if err := x.Available(); err != nil {
		return nil, fmt.Errorf("failed to init injector: %w (use --injector stdout for a dry run)", err)
	}
	return x, nil
}

func engineOptions(logger *zap.Logger, observer playback.Observer) []playback.Option {
	opts := []playback.Option{
		playback.WithLogger(logger),
		playback.WithObserver(observer),
		playback.WithCountdown(playCountdown),
		playback.WithMistakeModel(timing.MistakeModel{Rate: playMistakeRate}),
	}
	if playSeed != 0 {
		opts = append(opts, playback.WithSeed(playSeed))
	}
	return opts
}

func newLogger(cmd *cobra.Command, fileCfg config.LogConfig, console bool) (*zap.Logger, error) {
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Level)
	opts := observability.Options{Level: logLevel}
	if fileCfg.File != nil {
		opts.File = *fileCfg.File
	} else if !console {
		opts.File = config.DefaultLogPath()
	}
	if fileCfg.MaxSizeMB != nil {
		opts.MaxSizeMB = *fileCfg.MaxSizeMB
	}
	if fileCfg.MaxBackups != nil {
		opts.MaxBackups = *fileCfg.MaxBackups
	}
	if fileCfg.MaxAgeDays != nil {
		opts.MaxAgeDays = *fileCfg.MaxAgeDays
	}
	sink := observability.Stderr()
	if !console {
		sink = nil
	}
	logger, err := observability.New(opts, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return logger, nil
}

func reportResult(res playback.Result) error {
	elapsed := res.EndedAt.Sub(res.StartedAt).Round(time.Second)
	switch {
	case res.Status == model.StatusCompleted:
		logErrf("Completed %d characters in %s (%d mistakes corrected, %d pauses).\n", res.Position, elapsed, res.Mistakes, res.Pauses)
	case res.Reason == playback.ReasonInjector:
		logErrf("Aborted at %d/%d: %v\n", res.Position, res.Total, res.Err)
		return fmt.Errorf("%w: %v", errInjector, res.Err)
	default:
		logErrf("Aborted (%s) at %d/%d after %s.\n", res.Reason, res.Position, res.Total, elapsed)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
