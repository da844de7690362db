package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/timing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(inj Injector, cfg model.TypingConfig, log *eventLog, opts ...Option) (*Engine, *VirtualClock) {
	clock := &VirtualClock{}
	base := []Option{
		WithSleeper(clock),
		WithSeed(42),
		WithMistakeModel(timing.MistakeModel{Rate: 0}),
	}
	if log != nil {
		base = append(base, WithObserver(log))
	}
	return New(inj, cfg, append(base, opts...)...), clock
}

func TestRunHiBye(t *testing.T) {
	inj := &mockInjector{}
	log := &eventLog{}
	e, clock := newTestEngine(inj, quietConfig(), log)

	res, ok := e.Run(context.Background(), "Hi. Bye.")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, ReasonNone, res.Reason)
	assert.NoError(t, res.Err)
	assert.Equal(t, 8, res.Total)
	assert.Equal(t, 8, res.Position)
	assert.Equal(t, "Hi. Bye.", inj.Typed())
	assert.Empty(t, inj.Keys())
	assert.Zero(t, res.Pauses)

	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 8)
	for _, d := range sleeps {
		assert.True(t, within(d, 160*time.Millisecond, 240*time.Millisecond), "jittered delay %v", d)
	}
	assert.True(t, within(clock.Elapsed(), 1280*time.Millisecond, 1920*time.Millisecond))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, log.Progress())
	assert.Len(t, log.ofKind(model.EventType), 8)

	state := e.State()
	assert.False(t, state.Running)
	assert.Zero(t, state.Position)
}

func TestRunEmptyText(t *testing.T) {
	inj := &mockInjector{}
	log := &eventLog{}
	e, clock := newTestEngine(inj, model.DefaultTypingConfig(), log, WithCountdown(3*time.Second))

	res, ok := e.Run(context.Background(), "")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Zero(t, res.Total)
	assert.Empty(t, log.Events())
	assert.Zero(t, clock.Elapsed())
}

func TestStartIgnoredWhileRunning(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	inj := &mockInjector{}
	inj.onType = func(_ context.Context, call int, _ string) error {
		if call == 1 {
			close(entered)
			<-release
		}
		return nil
	}
	log := &eventLog{}
	e, _ := newTestEngine(inj, quietConfig(), log)

	done, ok := e.Start(context.Background(), "abcdef")
	require.True(t, ok)
	<-entered

	assert.True(t, e.State().Running)
	second, ok := e.Start(context.Background(), "zzz")
	assert.False(t, ok)
	assert.Nil(t, second)
	_, ok = e.Run(context.Background(), "zzz")
	assert.False(t, ok)

	close(release)
	res := <-done
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, "abcdef", inj.Typed())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, log.Progress())

	_, open := <-done
	assert.False(t, open, "result channel must be closed")

	_, ok = e.Run(context.Background(), "x")
	assert.True(t, ok, "engine must accept a new run after finishing")
}

func TestFailSafeAbortsRun(t *testing.T) {
	inj := &mockInjector{}
	inj.onType = func(_ context.Context, call int, _ string) error {
		if call == 3 {
			return ErrFailSafe
		}
		return nil
	}
	e, _ := newTestEngine(inj, quietConfig(), &eventLog{})

	res, ok := e.Run(context.Background(), "abcdef")
	require.True(t, ok)
	assert.Equal(t, model.StatusAborted, res.Status)
	assert.Equal(t, ReasonFailSafe, res.Reason)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, res.Position)
	assert.Equal(t, "ab", inj.Typed())
	assert.False(t, e.State().Running)

	inj.onType = nil
	res, ok = e.Run(context.Background(), "ok")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, res.Status)
}

func TestInjectorErrorSurfaces(t *testing.T) {
	boom := errors.New("display gone")
	inj := &mockInjector{}
	inj.onType = func(context.Context, int, string) error { return boom }
	e, _ := newTestEngine(inj, quietConfig(), &eventLog{})

	res, ok := e.Run(context.Background(), "abc")
	require.True(t, ok)
	assert.Equal(t, model.StatusAborted, res.Status)
	assert.Equal(t, ReasonInjector, res.Reason)
	assert.ErrorIs(t, res.Err, boom)
	assert.Zero(t, res.Position)
	assert.Equal(t, "display gone", errors.Unwrap(res.Err).Error())
	assert.NotEmpty(t, res.Record().Error)
}

func TestCancelStopsAtBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inj := &mockInjector{}
	log := &eventLog{}
	obs := Observers{log, ObserverFuncs{Progress: func(done, _ int) {
		if done == 2 {
			cancel()
		}
	}}}
	e, _ := newTestEngine(inj, quietConfig(), nil, WithObserver(obs))

	res, ok := e.Run(ctx, "abcdef")
	require.True(t, ok)
	assert.Equal(t, model.StatusAborted, res.Status)
	assert.Equal(t, ReasonCanceled, res.Reason)
	assert.Equal(t, 2, res.Position)
	assert.Equal(t, "ab", inj.Typed())
	assert.Equal(t, []int{1, 2}, log.Progress())
}

func TestAbortStopsRun(t *testing.T) {
	inj := &mockInjector{}
	var e *Engine
	obs := ObserverFuncs{Progress: func(done, _ int) {
		if done == 3 {
			e.Abort()
			assert.True(t, e.State().Aborted)
		}
	}}
	e, _ = newTestEngine(inj, quietConfig(), nil, WithObserver(obs))

	res, ok := e.Run(context.Background(), "abcdef")
	require.True(t, ok)
	assert.Equal(t, model.StatusAborted, res.Status)
	assert.Equal(t, ReasonCanceled, res.Reason)
	assert.Equal(t, 3, res.Position)
	assert.False(t, e.State().Aborted)

	e.Abort()
	res, _ = e.Run(context.Background(), "ok")
	assert.Equal(t, model.StatusCompleted, res.Status, "abort while idle must not leak into the next run")
}

func TestMistakesAreCorrected(t *testing.T) {
	inj := &mockInjector{}
	log := &eventLog{}
	e, _ := newTestEngine(inj, quietConfig(), log, WithMistakeModel(timing.MistakeModel{Rate: 1}))

	res, ok := e.Run(context.Background(), "asd")
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 3, res.Mistakes)
	assert.Equal(t, []string{KeyBackspace, KeyBackspace, KeyBackspace}, inj.Keys())

	inj.mu.Lock()
	typed := append([]string(nil), inj.typed...)
	inj.mu.Unlock()
	require.Len(t, typed, 6)
	assert.Equal(t, []string{"a", "s", "d"}, []string{typed[1], typed[3], typed[5]})

	events := log.Events()
	require.Len(t, events, 9)
	assert.Equal(t, model.EventMistake, events[0].Kind)
	assert.Equal(t, 400*time.Millisecond, events[0].Delay)
	assert.Equal(t, model.EventBackspace, events[1].Kind)
	assert.Equal(t, 100*time.Millisecond, events[1].Delay)
	assert.Equal(t, model.EventType, events[2].Kind)
	assert.Equal(t, "a", events[2].Text)
}

func TestThinkingPauses(t *testing.T) {
	cfg := quietConfig()
	cfg.Thinking = true
	cfg.MidPauseChance = 0
	cfg.SentencePauseSeconds = 1
	cfg.ParagraphPauseSeconds = 5
	inj := &mockInjector{}
	log := &eventLog{}
	e, _ := newTestEngine(inj, cfg, log)

	res, ok := e.Run(context.Background(), "Hi.\n\nOk.")
	require.True(t, ok)
	assert.Equal(t, 3, res.Pauses)

	var labels []string
	var sequence []string
	for _, ev := range log.Events() {
		sequence = append(sequence, ev.Text)
		if ev.Kind == model.EventPause {
			labels = append(labels, ev.Text)
		}
	}
	assert.Equal(t, []string{PauseSentence, PauseParagraph, PauseSentence}, labels)
	assert.Equal(t, []string{"H", "i", PauseSentence, ".", "\n", PauseParagraph, "\n", "O", "k", PauseSentence, "."}, sequence)

	pauses := log.ofKind(model.EventPause)
	assert.Equal(t, time.Second, pauses[0].Delay)
	assert.Equal(t, 5*time.Second, pauses[1].Delay)
}

func TestSentencePauseBeforeClosingQuote(t *testing.T) {
	cfg := quietConfig()
	cfg.Thinking = true
	cfg.MidPauseChance = 0
	cfg.SentencePauseSeconds = 1
	cfg.QuoteWeight = 2
	log := &eventLog{}
	e, _ := newTestEngine(&mockInjector{}, cfg, log)

	_, ok := e.Run(context.Background(), `Go "now." Ok.`)
	require.True(t, ok)
	var sequence []string
	for _, ev := range log.Events() {
		sequence = append(sequence, ev.Text)
	}
	assert.Equal(t, []string{"G", "o", " ", "\"", "n", "o", "w", PauseSentence, ".", "\"", " ", "O", "k", PauseSentence, "."}, sequence)
	pauses := log.ofKind(model.EventPause)
	require.Len(t, pauses, 2)
	assert.Equal(t, 2*time.Second, pauses[0].Delay, "quoted sentence keeps its weight")
	assert.Equal(t, time.Second, pauses[1].Delay)
}

func TestSentencePauseUsesStartMultiplier(t *testing.T) {
	cfg := quietConfig()
	cfg.Thinking = true
	cfg.MidPauseChance = 0
	cfg.SentencePauseSeconds = 1
	cfg.QuoteWeight = 2
	log := &eventLog{}
	var e *Engine
	obs := Observers{log, ObserverFuncs{Progress: func(done, _ int) {
		if done == 1 {
			next := e.Config()
			next.QuoteWeight = 10
			e.UpdateConfig(next)
		}
	}}}
	e, _ = newTestEngine(&mockInjector{}, cfg, nil, WithObserver(obs))

	_, ok := e.Run(context.Background(), `"Hi."`)
	require.True(t, ok)
	pauses := log.ofKind(model.EventPause)
	require.Len(t, pauses, 1)
	assert.Equal(t, 2*time.Second, pauses[0].Delay)
}

func TestLiveRateChange(t *testing.T) {
	log := &eventLog{}
	var e *Engine
	obs := Observers{log, ObserverFuncs{Progress: func(done, _ int) {
		if done == 2 {
			next := e.Config()
			next.WPM = 120
			e.UpdateConfig(next)
		}
	}}}
	e, _ = newTestEngine(&mockInjector{}, quietConfig(), nil, WithObserver(obs))

	_, ok := e.Run(context.Background(), "abcd")
	require.True(t, ok)
	types := log.ofKind(model.EventType)
	require.Len(t, types, 4)
	for _, ev := range types[:2] {
		assert.True(t, within(ev.Delay, 160*time.Millisecond, 240*time.Millisecond), "before change: %v", ev.Delay)
	}
	for _, ev := range types[2:] {
		assert.True(t, within(ev.Delay, 80*time.Millisecond, 120*time.Millisecond), "after change: %v", ev.Delay)
	}
}

func TestCountdownBeforeFirstKey(t *testing.T) {
	log := &eventLog{}
	e, _ := newTestEngine(&mockInjector{}, quietConfig(), log, WithCountdown(2500*time.Millisecond))

	res, ok := e.Run(context.Background(), "a")
	require.True(t, ok)
	assert.Zero(t, res.Pauses, "countdown is not a thinking pause")
	events := log.Events()
	require.Len(t, events, 4)
	assert.Equal(t, []time.Duration{time.Second, time.Second, 500 * time.Millisecond},
		[]time.Duration{events[0].Delay, events[1].Delay, events[2].Delay})
	assert.Equal(t, PauseCountdown, events[0].Text)
	assert.Equal(t, 2500*time.Millisecond, events[3].At)
}

func TestSeededRunsAreReproducible(t *testing.T) {
	cfg := model.DefaultTypingConfig()
	run := func() []model.KeystrokeEvent {
		log := &eventLog{}
		e := New(&mockInjector{}, cfg, WithSleeper(&VirtualClock{}), WithSeed(7), WithObserver(log))
		_, ok := e.Run(context.Background(), "The quick brown fox. Jumps over the lazy dog!")
		require.True(t, ok)
		return log.Events()
	}
	assert.Equal(t, run(), run())
}

func TestResultRecord(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := []time.Time{start, start.Add(1500 * time.Millisecond)}
	now := func() time.Time {
		ts := clock[0]
		clock = clock[1:]
		return ts
	}
	e, _ := newTestEngine(&mockInjector{}, quietConfig(), &eventLog{}, WithClock(now))

	res, ok := e.Run(context.Background(), "Therefore go. - item")
	require.True(t, ok)
	rec := res.Record()
	assert.Equal(t, res.ID.String(), rec.RunID)
	assert.Equal(t, int64(1500), rec.DurationMs)
	assert.Equal(t, 60.0, rec.WPM)
	assert.Equal(t, res.Total, rec.CharsTotal)
	assert.Equal(t, 1, rec.TagCounts["context"])
	assert.Empty(t, rec.Error)
}
