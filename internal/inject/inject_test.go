package inject

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/playback"
	"github.com/verte-zerg/cadence/internal/timing"
)

// fakeXdotool answers xdotool subcommands and records the calls.
type fakeXdotool struct {
	mu       sync.Mutex
	calls    [][]string
	pointer  string
	geometry string
	fail     error
}

func (f *fakeXdotool) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), args...))
	switch args[0] {
	case "getdisplaygeometry":
		return []byte(f.geometry), nil
	case "getmouselocation":
		return []byte(f.pointer), nil
	default:
		return nil, f.fail
	}
}

func (f *fakeXdotool) actions() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if c[0] == "type" || c[0] == "key" {
			out = append(out, c)
		}
	}
	return out
}

func TestXdotoolTypesAndPresses(t *testing.T) {
	fake := &fakeXdotool{geometry: "1920 1080\n", pointer: "X=500\nY=400\nSCREEN=0\nWINDOW=123\n"}
	x := NewXdotool(withRunner(fake.run))

	require.NoError(t, x.TypeText(context.Background(), "-a"))
	require.NoError(t, x.PressKey(context.Background(), "backspace"))

	assert.Equal(t, [][]string{
		{"type", "--clearmodifiers", "--delay", "0", "--", "-a"},
		{"key", "--clearmodifiers", "BackSpace"},
	}, fake.actions())

	geometryCalls := 0
	for _, c := range fake.calls {
		if c[0] == "getdisplaygeometry" {
			geometryCalls++
		}
	}
	assert.Equal(t, 1, geometryCalls, "display geometry is read once")
}

func TestXdotoolFailSafeCorners(t *testing.T) {
	corners := []string{"X=0\nY=0\n", "X=1919\nY=0\n", "X=0\nY=1079\n", "X=1919\nY=1079\n"}
	for _, ptr := range corners {
		fake := &fakeXdotool{geometry: "1920 1080", pointer: ptr}
		x := NewXdotool(withRunner(fake.run))
		err := x.TypeText(context.Background(), "a")
		assert.ErrorIs(t, err, playback.ErrFailSafe, "pointer %q", ptr)
		assert.Empty(t, fake.actions(), "no keystroke after fail-safe")
	}

	fake := &fakeXdotool{geometry: "1920 1080", pointer: "X=0\nY=500\n"}
	x := NewXdotool(withRunner(fake.run))
	assert.NoError(t, x.TypeText(context.Background(), "a"), "an edge is not a corner")
}

func TestXdotoolFailSafeDisabled(t *testing.T) {
	fake := &fakeXdotool{pointer: "X=0\nY=0\n"}
	x := NewXdotool(withRunner(fake.run), WithFailSafe(false))
	require.NoError(t, x.TypeText(context.Background(), "a"))
	assert.Len(t, fake.calls, 1)
}

func TestXdotoolCommandError(t *testing.T) {
	boom := errors.New("exit status 1")
	fake := &fakeXdotool{geometry: "800 600", pointer: "X=10\nY=10\n", fail: boom}
	x := NewXdotool(withRunner(fake.run))
	err := x.TypeText(context.Background(), "a")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, playback.ErrFailSafe)
}

func TestParseMouseLocation(t *testing.T) {
	x, y, err := parseMouseLocation([]byte("X=12\nY=34\nSCREEN=0\nWINDOW=99\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, x)
	assert.Equal(t, 34, y)

	_, _, err = parseMouseLocation([]byte("garbage"))
	assert.Error(t, err)
}

func TestWriterBackspace(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.TypeText(context.Background(), "ax"))
	require.NoError(t, w.PressKey(context.Background(), playback.KeyBackspace))
	require.NoError(t, w.PressKey(context.Background(), "unknown"))
	assert.Equal(t, "ax\b \b", buf.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.TypeText(ctx, "b"), context.Canceled)
}

func TestRecorderReplaysCorrections(t *testing.T) {
	rec := &Recorder{}
	cfg := model.DefaultTypingConfig()
	cfg.Thinking = false
	e := playback.New(rec, cfg,
		playback.WithSleeper(&playback.VirtualClock{}),
		playback.WithSeed(3),
		playback.WithMistakeModel(timing.MistakeModel{Rate: 0.5}),
	)
	text := "Typing with typos.\nSecond line!"
	res, ok := e.Run(context.Background(), text)
	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Greater(t, res.Mistakes, 0)
	assert.Equal(t, text, rec.Text())

	keys := 0
	for _, s := range rec.Strokes() {
		if s.Key {
			keys++
			assert.Equal(t, playback.KeyBackspace, s.Value)
		}
	}
	assert.Equal(t, res.Mistakes, keys)
}

// killedRunner blocks every keystroke until ctx is done and then fails the
// way a process killed by exec.CommandContext does.
func killedRunner(started chan<- struct{}) commandRunner {
	var once sync.Once
	return func(ctx context.Context, _ string, args ...string) ([]byte, error) {
		if args[0] != "type" && args[0] != "key" {
			return nil, errors.New("unexpected subcommand")
		}
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, errors.New("signal: killed")
	}
}

func TestXdotoolCancelReportsContextError(t *testing.T) {
	started := make(chan struct{})
	x := NewXdotool(withRunner(killedRunner(started)), WithFailSafe(false))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	err := x.TypeText(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestXdotoolCancelDuringPlaybackIsNotAnInjectorError(t *testing.T) {
	started := make(chan struct{})
	x := NewXdotool(withRunner(killedRunner(started)), WithFailSafe(false))
	e := playback.New(x, model.DefaultTypingConfig(), playback.WithSleeper(&playback.VirtualClock{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done, ok := e.Start(ctx, "abc")
	require.True(t, ok)
	<-started
	cancel()
	res := <-done

	assert.Equal(t, model.StatusAborted, res.Status)
	assert.Equal(t, playback.ReasonCanceled, res.Reason)
	assert.NoError(t, res.Err)
}

func TestXdotoolGeometryFailureIsRetried(t *testing.T) {
	fake := &fakeXdotool{geometry: "", pointer: "X=10\nY=10\n"}
	x := NewXdotool(withRunner(fake.run))
	require.Error(t, x.TypeText(context.Background(), "a"))

	fake.mu.Lock()
	fake.geometry = "800 600"
	fake.mu.Unlock()
	require.NoError(t, x.TypeText(context.Background(), "a"))
}
