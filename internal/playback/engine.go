// Package playback drives a timed keystroke run through an Injector.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/sentence"
	"github.com/verte-zerg/cadence/internal/timing"
)

// Pause labels carried in pause events.
const (
	PauseCountdown = "countdown"
	PauseMid       = "mid"
	PauseSentence  = "sentence"
	PauseParagraph = "paragraph"
)

// AbortReason explains why a run stopped early.
type AbortReason string

// Abort reasons.
const (
	ReasonNone     AbortReason = ""
	ReasonFailSafe AbortReason = "fail-safe"
	ReasonCanceled AbortReason = "canceled"
	ReasonInjector AbortReason = "injector error"
)

// Result describes a finished run.
type Result struct {
	ID        uuid.UUID
	Status    model.RunStatus
	Reason    AbortReason
	Position  int
	Total     int
	Mistakes  int
	Pauses    int
	Err       error
	Config    model.TypingConfig
	TagCounts map[string]int
	StartedAt time.Time
	EndedAt   time.Time
}

// Record converts the result into its persisted form.
func (r Result) Record() model.RunRecord {
	rec := model.RunRecord{
		RunID:      r.ID.String(),
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		Status:     r.Status,
		CharsTotal: r.Total,
		CharsTyped: r.Position,
		Mistakes:   r.Mistakes,
		Pauses:     r.Pauses,
		WPM:        r.Config.WPM,
		DurationMs: r.EndedAt.Sub(r.StartedAt).Milliseconds(),
		TagCounts:  r.TagCounts,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}

// Engine runs at most one playback at a time.
type Engine struct {
	injector  Injector
	sleeper   Sleeper
	rnd       *rand.Rand
	mistakes  timing.MistakeModel
	logger    *zap.Logger
	observer  Observer
	countdown time.Duration
	now       func() time.Time

	live     atomic.Pointer[model.TypingConfig]
	running  atomic.Bool
	stop     atomic.Bool
	position atomic.Int64
	total    atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSleeper replaces the real-time sleeper.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleeper = s }
}

// WithRand sets the random source used for mistakes, mid pauses and jitter.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithSeed seeds a new random source.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithMistakeModel overrides the typo model.
func WithMistakeModel(m timing.MistakeModel) Option {
	return func(e *Engine) { e.mistakes = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver sets the observer notified of progress, events and completion.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithCountdown waits d before the first keystroke.
func WithCountdown(d time.Duration) Option {
	return func(e *Engine) { e.countdown = d }
}

// WithClock sets the wall clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an idle engine.
func New(injector Injector, cfg model.TypingConfig, opts ...Option) *Engine {
	e := &Engine{
		injector: injector,
		sleeper:  realSleeper{},
		mistakes: timing.DefaultMistakeModel(),
		logger:   zap.NewNop(),
		observer: ObserverFuncs{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.UpdateConfig(cfg)
	return e
}

// UpdateConfig swaps the live configuration. A running playback picks up the
// new rate and pause settings at its next character.
func (e *Engine) UpdateConfig(cfg model.TypingConfig) {
	cfg = cfg.Sanitize()
	e.live.Store(&cfg)
}

// Config returns the live configuration.
func (e *Engine) Config() model.TypingConfig {
	return *e.live.Load()
}

// Abort requests the running playback to stop at the next character boundary.
func (e *Engine) Abort() {
	if e.running.Load() {
		e.stop.Store(true)
	}
}

// State returns a snapshot of the run state.
func (e *Engine) State() model.PlaybackState {
	return model.PlaybackState{
		Position: int(e.position.Load()),
		Running:  e.running.Load(),
		Aborted:  e.stop.Load(),
	}
}

// Position returns the number of characters processed in the current run.
func (e *Engine) Position() int {
	return int(e.position.Load())
}

// Total returns the character count of the current run.
func (e *Engine) Total() int {
	return int(e.total.Load())
}

// Start launches a run in the background. It returns false without starting
// anything when a run is already active.
func (e *Engine) Start(ctx context.Context, text string) (<-chan Result, bool) {
	if !e.acquire() {
		return nil, false
	}
	done := make(chan Result, 1)
	go func() {
		defer close(done)
		done <- e.run(ctx, text)
	}()
	return done, true
}

// Run executes a playback and blocks until it finishes. It returns false when
// a run is already active.
func (e *Engine) Run(ctx context.Context, text string) (Result, bool) {
	if !e.acquire() {
		return Result{}, false
	}
	return e.run(ctx, text), true
}

func (e *Engine) acquire() bool {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Debug("start ignored, playback already running")
		return false
	}
	e.stop.Store(false)
	return true
}

// plan is the immutable snapshot computed when a run starts.
type plan struct {
	text        string
	total       int
	multipliers map[int]float64
	tagCounts   map[string]int
}

func newPlan(text string, cfg model.TypingConfig) plan {
	text = sentence.Normalize(text)
	p := plan{
		text:        text,
		total:       utf8.RuneCountInString(text),
		multipliers: make(map[int]float64),
		tagCounts:   make(map[string]int),
	}
	for _, s := range sentence.Analyze(text) {
		for _, name := range s.Tags.Strings() {
			p.tagCounts[name]++
		}
		off, ok := timing.PauseOffset(s, text)
		if !ok {
			continue
		}
		p.multipliers[off] = timing.Multiplier(s.Tags, cfg)
	}
	return p
}

// runner holds the per-run mutable counters. Only the worker touches it.
type runner struct {
	e        *Engine
	ctx      context.Context
	elapsed  time.Duration
	mistakes int
	pauses   int
}

func (e *Engine) run(ctx context.Context, text string) Result {
	cfg := e.Config()
	p := newPlan(text, cfg)
	res := Result{
		ID:        uuid.New(),
		Status:    model.StatusCompleted,
		Total:     p.total,
		Config:    cfg,
		TagCounts: p.tagCounts,
		StartedAt: e.now(),
	}
	e.total.Store(int64(p.total))
	e.position.Store(0)
	log := e.logger.With(zap.String("run_id", res.ID.String()))
	log.Info("playback started", zap.Int("chars", p.total), zap.Float64("wpm", cfg.WPM))

	r := &runner{e: e, ctx: ctx}
	err := r.execute(p)

	res.Position = int(e.position.Load())
	res.Mistakes = r.mistakes
	res.Pauses = r.pauses
	res.EndedAt = e.now()
	switch {
	case err == nil:
	case errors.Is(err, ErrFailSafe):
		res.Status, res.Reason = model.StatusAborted, ReasonFailSafe
		log.Warn("playback aborted by fail-safe", zap.Int("position", res.Position))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, errStopped):
		res.Status, res.Reason = model.StatusAborted, ReasonCanceled
		log.Info("playback canceled", zap.Int("position", res.Position))
	default:
		res.Status, res.Reason, res.Err = model.StatusAborted, ReasonInjector, err
		log.Error("playback failed", zap.Int("position", res.Position), zap.Error(err))
	}
	if res.Status == model.StatusCompleted {
		log.Info("playback completed", zap.Int("mistakes", res.Mistakes), zap.Int("pauses", res.Pauses))
	}

	e.position.Store(0)
	e.total.Store(0)
	e.stop.Store(false)
	e.running.Store(false)
	e.observer.OnFinish(res)
	return res
}

var errStopped = errors.New("playback stopped")

// boundary reports why the run must stop before the next character.
func (r *runner) boundary() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if r.e.stop.Load() {
		return errStopped
	}
	return nil
}

func (r *runner) emit(kind model.EventKind, text string, delay time.Duration) {
	r.e.observer.OnEvent(model.KeystrokeEvent{Kind: kind, Text: text, Delay: delay, At: r.elapsed})
}

func (r *runner) sleep(d time.Duration) {
	r.e.sleeper.Sleep(d)
	r.elapsed += d
}

func (r *runner) pause(label string, seconds float64) {
	if seconds <= 0 {
		return
	}
	d := timing.Seconds(seconds)
	r.pauses++
	r.emit(model.EventPause, label, d)
	r.sleep(d)
}

func (r *runner) countdown(d time.Duration) error {
	for d > 0 {
		step := time.Second
		if d < step {
			step = d
		}
		r.emit(model.EventPause, PauseCountdown, step)
		r.sleep(step)
		d -= step
		if err := r.boundary(); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) execute(p plan) error {
	e := r.e
	if p.total == 0 {
		return nil
	}
	if err := r.countdown(e.countdown); err != nil {
		return err
	}
	newlines := 0
	index := 0
	for off, ch := range p.text {
		if err := r.boundary(); err != nil {
			return err
		}
		cfg := e.Config()
		base := timing.BaseDelay(cfg.WPM)

		if m, ok := e.mistakes.Decide(ch, base, e.rnd); ok {
			hold := timing.Seconds(m.Hold)
			if err := e.injector.TypeText(r.ctx, string(m.Wrong)); err != nil {
				return fmt.Errorf("type mistake: %w", err)
			}
			r.mistakes++
			r.emit(model.EventMistake, string(m.Wrong), hold)
			r.sleep(hold)
			settle := timing.Seconds(m.Recover)
			if err := e.injector.PressKey(r.ctx, KeyBackspace); err != nil {
				return fmt.Errorf("press %s: %w", KeyBackspace, err)
			}
			r.emit(model.EventBackspace, KeyBackspace, settle)
			r.sleep(settle)
		}

		if ch == '\n' {
			newlines++
		} else {
			newlines = 0
		}
		if cfg.Thinking {
			if !unicode.IsSpace(ch) && e.rnd.Float64() < cfg.MidPauseChance {
				r.pause(PauseMid, cfg.MidPauseSeconds)
			}
			if mult, ok := p.multipliers[off]; ok {
				r.pause(PauseSentence, cfg.SentencePauseSeconds*mult)
			}
			if newlines > 0 && newlines%2 == 0 {
				r.pause(PauseParagraph, cfg.ParagraphPauseSeconds)
			}
		}

		if err := e.injector.TypeText(r.ctx, string(ch)); err != nil {
			return fmt.Errorf("type character %d: %w", index, err)
		}
		delay := timing.Seconds(base * timing.Jitter(e.rnd))
		r.emit(model.EventType, string(ch), delay)
		r.sleep(delay)

		index++
		e.position.Store(int64(index))
		e.observer.OnProgress(index, p.total)
	}
	return nil
}
