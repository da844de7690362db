package tui

import (
	"sync/atomic"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/playback"
)

// Tracker is a playback observer whose counters the view polls. It keeps
// the final values after the engine resets its own.
type Tracker struct {
	done     atomic.Int64
	total    atomic.Int64
	mistakes atomic.Int64
	pauses   atomic.Int64
	pause    atomic.Pointer[string]
}

var _ playback.Observer = (*Tracker)(nil)

// NewTracker returns a zeroed tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Reset clears the counters before a new run.
func (t *Tracker) Reset(total int) {
	t.done.Store(0)
	t.total.Store(int64(total))
	t.mistakes.Store(0)
	t.pauses.Store(0)
	t.pause.Store(nil)
}

// OnProgress implements playback.Observer.
func (t *Tracker) OnProgress(done, total int) {
	t.done.Store(int64(done))
	t.total.Store(int64(total))
	t.pause.Store(nil)
}

// OnEvent implements playback.Observer. Countdown pauses are not counted.
func (t *Tracker) OnEvent(ev model.KeystrokeEvent) {
	switch ev.Kind {
	case model.EventMistake:
		t.mistakes.Add(1)
	case model.EventPause:
		if ev.Text != playback.PauseCountdown {
			t.pauses.Add(1)
		}
		label := ev.Text
		t.pause.Store(&label)
	}
}

// OnFinish implements playback.Observer and keeps the final position.
func (t *Tracker) OnFinish(res playback.Result) {
	t.done.Store(int64(res.Position))
	t.pause.Store(nil)
}

// Done returns the characters processed so far.
func (t *Tracker) Done() int { return int(t.done.Load()) }

// Total returns the run's character count.
func (t *Tracker) Total() int { return int(t.total.Load()) }

// Mistakes returns the corrected slips so far.
func (t *Tracker) Mistakes() int { return int(t.mistakes.Load()) }

// Pauses returns the thinking pauses taken so far.
func (t *Tracker) Pauses() int { return int(t.pauses.Load()) }

// Pause returns the label of the pause in progress, or "".
func (t *Tracker) Pause() string {
	if p := t.pause.Load(); p != nil {
		return *p
	}
	return ""
}
