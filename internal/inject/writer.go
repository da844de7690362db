package inject

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/verte-zerg/cadence/internal/playback"
)

// Writer echoes keystrokes to an io.Writer, typically a terminal. Backspace
// is rendered as "\b \b" so the typo disappears on screen.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer injector.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// TypeText implements playback.Injector.
func (w *Writer) TypeText(ctx context.Context, s string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, s); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

// PressKey implements playback.Injector. Backspace erases the previous cell.
func (w *Writer) PressKey(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var out string
	switch strings.ToLower(name) {
	case playback.KeyBackspace:
		out = "\b \b"
	case "enter":
		out = "\n"
	case "tab":
		out = "\t"
	default:
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, out); err != nil {
		return fmt.Errorf("write key %s: %w", name, err)
	}
	return nil
}

// Stroke is one recorded injector call.
type Stroke struct {
	Key   bool
	Value string
}

// Recorder keeps every keystroke in memory. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	strokes []Stroke
}

// TypeText implements playback.Injector.
func (r *Recorder) TypeText(_ context.Context, s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strokes = append(r.strokes, Stroke{Value: s})
	return nil
}

// PressKey implements playback.Injector.
func (r *Recorder) PressKey(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strokes = append(r.strokes, Stroke{Key: true, Value: name})
	return nil
}

// Strokes returns a copy of the recorded calls.
func (r *Recorder) Strokes() []Stroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stroke, len(r.strokes))
	copy(out, r.strokes)
	return out
}

// Text replays the recording as an editor would, applying backspaces.
func (r *Recorder) Text() string {
	var buf []rune
	for _, s := range r.Strokes() {
		if !s.Key {
			buf = append(buf, []rune(s.Value)...)
			continue
		}
		switch strings.ToLower(s.Value) {
		case playback.KeyBackspace:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
		case "enter":
			buf = append(buf, '\n')
		case "tab":
			buf = append(buf, '\t')
		}
	}
	return string(buf)
}
