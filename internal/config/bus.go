package config

import (
	"sync"

	"github.com/verte-zerg/cadence/internal/model"
)

// Change sources.
const (
	SourceFlag    = "flag"
	SourceFile    = "file"
	SourceControl = "control"
)

// ChangeEvent carries the configuration and text after a change.
type ChangeEvent struct {
	Seq    uint64
	Source string
	Config model.TypingConfig
	Text   string
}

// Bus delivers change events to subscribers synchronously, in subscription
// order. Subscribers must not publish from inside their callback.
type Bus struct {
	mu      sync.RWMutex
	current ChangeEvent
	subs    []subscriber
	nextID  int
}

type subscriber struct {
	id int
	fn func(ChangeEvent)
}

// NewBus returns a bus holding the initial state.
func NewBus(cfg model.TypingConfig, text string) *Bus {
	return &Bus{current: ChangeEvent{Config: cfg, Text: text}}
}

// Current returns the latest state.
func (b *Bus) Current() ChangeEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(ChangeEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// SetConfig publishes a configuration change.
func (b *Bus) SetConfig(source string, cfg model.TypingConfig) {
	b.update(source, func(ev *ChangeEvent) { ev.Config = cfg.Sanitize() })
}

// SetText publishes a text change.
func (b *Bus) SetText(source, text string) {
	b.update(source, func(ev *ChangeEvent) { ev.Text = text })
}

// Set publishes a combined change.
func (b *Bus) Set(source string, cfg model.TypingConfig, text string) {
	b.update(source, func(ev *ChangeEvent) {
		ev.Config = cfg.Sanitize()
		ev.Text = text
	})
}

func (b *Bus) update(source string, mutate func(*ChangeEvent)) {
	b.mu.Lock()
	mutate(&b.current)
	b.current.Seq++
	b.current.Source = source
	ev := b.current
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
