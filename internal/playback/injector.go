package playback

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrFailSafe is returned by an Injector when the operator triggers the panic
// gesture. It aborts the current run only.
var ErrFailSafe = errors.New("fail-safe triggered")

// KeyBackspace names the correction key passed to PressKey.
const KeyBackspace = "backspace"

// Injector delivers keystrokes to whatever holds input focus.
type Injector interface {
	TypeText(ctx context.Context, s string) error
	PressKey(ctx context.Context, name string) error
}

// Sleeper waits between keystrokes. Sleeps are not preempted.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// VirtualClock is a Sleeper that advances a counter instead of blocking.
type VirtualClock struct {
	mu      sync.Mutex
	elapsed time.Duration
	sleeps  []time.Duration
}

// Sleep records d.
func (c *VirtualClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	c.elapsed += d
	c.sleeps = append(c.sleeps, d)
}

// Elapsed returns the total slept time.
func (c *VirtualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Sleeps returns a copy of every recorded sleep.
func (c *VirtualClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
