package playback

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/cadence/internal/model"
)

// mockInjector records every keystroke. Hooks, when set, run before recording
// and may return an error to fail the call.
type mockInjector struct {
	mu     sync.Mutex
	typed  []string
	keys   []string
	calls  int
	onType func(ctx context.Context, call int, s string) error
	onKey  func(ctx context.Context, call int, name string) error
}

func (m *mockInjector) TypeText(ctx context.Context, s string) error {
	m.mu.Lock()
	m.calls++
	call, hook := m.calls, m.onType
	m.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, call, s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typed = append(m.typed, s)
	return nil
}

func (m *mockInjector) PressKey(ctx context.Context, name string) error {
	m.mu.Lock()
	m.calls++
	call, hook := m.calls, m.onKey
	m.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, call, name); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, name)
	return nil
}

func (m *mockInjector) Typed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.typed, "")
}

func (m *mockInjector) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// eventLog collects observer notifications.
type eventLog struct {
	mu       sync.Mutex
	events   []model.KeystrokeEvent
	progress []int
	finished []Result
}

func (l *eventLog) OnProgress(done, _ int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, done)
}

func (l *eventLog) OnEvent(ev model.KeystrokeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) OnFinish(res Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, res)
}

func (l *eventLog) Events() []model.KeystrokeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.KeystrokeEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *eventLog) Progress() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int, len(l.progress))
	copy(out, l.progress)
	return out
}

func (l *eventLog) ofKind(kind model.EventKind) []model.KeystrokeEvent {
	var out []model.KeystrokeEvent
	for _, ev := range l.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// quietConfig disables thinking pauses at 60 wpm.
func quietConfig() model.TypingConfig {
	cfg := model.DefaultTypingConfig()
	cfg.WPM = 60
	cfg.Thinking = false
	return cfg
}

func within(d, lo, hi time.Duration) bool {
	return d >= lo && d <= hi
}
