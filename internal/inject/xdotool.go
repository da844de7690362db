// Package inject provides keystroke injectors for the playback engine.
package inject

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/verte-zerg/cadence/internal/playback"
)

// ErrUnavailable reports a missing xdotool binary.
var ErrUnavailable = errors.New("xdotool not found in PATH")

// commandRunner runs name with args and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// keyNames maps engine key names to X keysyms.
var keyNames = map[string]string{
	playback.KeyBackspace: "BackSpace",
	"enter":               "Return",
	"tab":                 "Tab",
	"escape":              "Escape",
}

// Xdotool types into the focused X11 window. When the fail-safe is enabled,
// every call first checks whether the pointer sits in a screen corner and
// returns playback.ErrFailSafe if it does.
type Xdotool struct {
	bin      string
	run      commandRunner
	failSafe bool

	mu     sync.Mutex
	geomOK bool
	width  int
	height int
}

// XdotoolOption configures an Xdotool injector.
type XdotoolOption func(*Xdotool)

// WithFailSafe toggles the pointer-in-corner abort check.
func WithFailSafe(enabled bool) XdotoolOption {
	return func(x *Xdotool) { x.failSafe = enabled }
}

// WithBinary overrides the xdotool executable.
func WithBinary(path string) XdotoolOption {
	return func(x *Xdotool) { x.bin = path }
}

func withRunner(run commandRunner) XdotoolOption {
	return func(x *Xdotool) { x.run = run }
}

// NewXdotool returns an injector backed by the xdotool binary.
func NewXdotool(opts ...XdotoolOption) *Xdotool {
	x := &Xdotool{bin: "xdotool", run: execRunner, failSafe: true}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Available reports whether the xdotool binary can be found.
func (x *Xdotool) Available() error {
	if _, err := exec.LookPath(x.bin); err != nil {
		return ErrUnavailable
	}
	return nil
}

// command runs an xdotool subcommand. A failure after ctx is done reports
// the context error, since the process was killed by the cancel.
func (x *Xdotool) command(ctx context.Context, args ...string) ([]byte, error) {
	out, err := x.run(ctx, x.bin, args...)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}
	return out, nil
}

// TypeText types s verbatim.
func (x *Xdotool) TypeText(ctx context.Context, s string) error {
	if err := x.checkFailSafe(ctx); err != nil {
		return err
	}
	if _, err := x.command(ctx, "type", "--clearmodifiers", "--delay", "0", "--", s); err != nil {
		return fmt.Errorf("xdotool type: %w", err)
	}
	return nil
}

// PressKey presses a named key such as "backspace".
func (x *Xdotool) PressKey(ctx context.Context, name string) error {
	if err := x.checkFailSafe(ctx); err != nil {
		return err
	}
	keysym, ok := keyNames[strings.ToLower(name)]
	if !ok {
		keysym = name
	}
	if _, err := x.command(ctx, "key", "--clearmodifiers", keysym); err != nil {
		return fmt.Errorf("xdotool key %s: %w", keysym, err)
	}
	return nil
}

func (x *Xdotool) checkFailSafe(ctx context.Context) error {
	if !x.failSafe {
		return nil
	}
	if err := x.loadGeometry(ctx); err != nil {
		return err
	}
	px, py, err := x.pointer(ctx)
	if err != nil {
		return err
	}
	if inCorner(px, py, x.width, x.height) {
		return playback.ErrFailSafe
	}
	return nil
}

// loadGeometry reads the display size once. Failures are not cached.
func (x *Xdotool) loadGeometry(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.geomOK {
		return nil
	}
	w, h, err := x.geometry(ctx)
	if err != nil {
		return err
	}
	x.width, x.height, x.geomOK = w, h, true
	return nil
}

func (x *Xdotool) geometry(ctx context.Context) (int, int, error) {
	out, err := x.command(ctx, "getdisplaygeometry")
	if err != nil {
		return 0, 0, fmt.Errorf("xdotool getdisplaygeometry: %w", err)
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(out)))
	}
	w, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse display width: %w", err)
	}
	h, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse display height: %w", err)
	}
	return w, h, nil
}

func (x *Xdotool) pointer(ctx context.Context) (int, int, error) {
	out, err := x.command(ctx, "getmouselocation", "--shell")
	if err != nil {
		return 0, 0, fmt.Errorf("xdotool getmouselocation: %w", err)
	}
	return parseMouseLocation(out)
}

// parseMouseLocation reads the X and Y lines of `getmouselocation --shell`.
func parseMouseLocation(out []byte) (int, int, error) {
	px, py := -1, -1
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch key {
		case "X":
			px = n
		case "Y":
			py = n
		}
	}
	if px < 0 || py < 0 {
		return 0, 0, fmt.Errorf("unexpected mouse location %q", strings.TrimSpace(string(out)))
	}
	return px, py, nil
}

func inCorner(x, y, w, h int) bool {
	atX := x <= 0 || x >= w-1
	atY := y <= 0 || y >= h-1
	return atX && atY
}
