package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/cadence/internal/config"
	"github.com/verte-zerg/cadence/internal/model"
)

func setupHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := config.DefaultConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestPresetsCmd(t *testing.T) {
	setupHome(t)
	out, err := execute(t, "presets")
	require.NoError(t, err)
	for _, name := range config.PresetNames() {
		require.Contains(t, out, name)
	}
}

func TestPlanCmd(t *testing.T) {
	setupHome(t)
	out, err := execute(t, "plan", "--text", "Plain words only. Therefore we go. No end")
	require.NoError(t, err)
	require.Contains(t, out, "Sentence")
	require.Contains(t, out, "Longest pauses: #2")
	require.Contains(t, out, "Estimated total:")
}

func TestPlanCmdNoText(t *testing.T) {
	setupHome(t)
	_, err := execute(t, "plan")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no text to type")
}

func TestETACmd(t *testing.T) {
	setupHome(t)
	out, err := execute(t, "eta", "--text", "One two three.", "--thinking=false", "--wpm", "60")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "ETA "), out)
	require.Contains(t, out, "characters       14")
	require.Contains(t, out, "sentence pauses  0.00s (0)")
}

func TestETACmdRejectsNegativeFrom(t *testing.T) {
	setupHome(t)
	_, err := execute(t, "eta", "--text", "x", "--from=-1")
	require.Error(t, err)
}

func TestTimelineCmdJSON(t *testing.T) {
	setupHome(t)
	out, err := execute(t, "timeline", "--json", "--text", "Hi there.",
		"--thinking=false", "--mid-pause-chance", "0", "--mistake-rate", "0")
	require.NoError(t, err)

	var typed strings.Builder
	var lastAt int64
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var ev timelineEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		require.Equal(t, string(model.EventType), ev.Kind)
		require.GreaterOrEqual(t, ev.AtMs, lastAt)
		require.Positive(t, ev.DelayMs)
		lastAt = ev.AtMs
		typed.WriteString(ev.Text)
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, "Hi there.", typed.String())
}

func TestTimelineCmdSeedIsReproducible(t *testing.T) {
	setupHome(t)
	args := []string{"timeline", "--text", "The quick brown fox. It jumps.", "--seed", "7", "--mistake-rate", "0.2"}
	first, err := execute(t, args...)
	require.NoError(t, err)
	second, err := execute(t, args...)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRecordCmd(t *testing.T) {
	dir := setupHome(t)
	path := filepath.Join(dir, "run.json")
	_, err := execute(t, "record", path, "--text", "Hello there.", "--wpm", "60")
	require.NoError(t, err)

	rec, rejected, err := config.LoadRecord(path, config.DefaultRecord())
	require.NoError(t, err)
	require.Empty(t, rejected)
	require.Equal(t, "Hello there.", rec.Text)
	require.Equal(t, 60.0, rec.Config.WPM)
}

func TestLoadInputLayering(t *testing.T) {
	dir := setupHome(t)
	writeConfig(t, "[typing]\nwpm = 50\nsentence-pause = 2.5\n")

	path := filepath.Join(dir, "run.json")
	rec := config.DefaultRecord()
	rec.Text = "From the record."
	rec.Config.WPM = 55
	rec.Config.SentencePauseSeconds = 2.5
	require.NoError(t, config.SaveRecord(path, rec))

	cases := []struct {
		name string
		args []string
		want float64
	}{
		{"file", []string{"--text", "x"}, 50},
		{"record", []string{"--record", path}, 55},
		{"preset", []string{"--record", path, "--preset", "deep"}, 35},
		{"flag", []string{"--record", path, "--preset", "deep", "--wpm", "70"}, 70},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "out.json")
			_, err := execute(t, append([]string{"record", dest}, tc.args...)...)
			require.NoError(t, err)
			got, _, err := config.LoadRecord(dest, config.DefaultRecord())
			require.NoError(t, err)
			require.Equal(t, tc.want, got.Config.WPM)
		})
	}

	dest := filepath.Join(dir, "text.json")
	_, err := execute(t, "record", dest, "--record", path)
	require.NoError(t, err)
	got, _, err := config.LoadRecord(dest, config.DefaultRecord())
	require.NoError(t, err)
	require.Equal(t, "From the record.", got.Text)
	require.Equal(t, 2.5, got.Config.SentencePauseSeconds)
}

func TestLoadInputRejectsInvalidValues(t *testing.T) {
	setupHome(t)
	_, err := execute(t, "plan", "--text", "x", "--mid-pause-chance", "1.5")
	require.Error(t, err)
	_, err = execute(t, "plan", "--text", "x", "--preset", "nope")
	require.ErrorIs(t, err, config.ErrUnknownPreset)
}

func TestStatsCmdEmpty(t *testing.T) {
	setupHome(t)
	out, err := execute(t, "stats")
	require.NoError(t, err)
	require.Contains(t, out, "No runs found.")
}

func TestStatsCmdValidation(t *testing.T) {
	setupHome(t)
	_, err := execute(t, "stats", "--status", "paused")
	require.Error(t, err)
	_, err = execute(t, "stats", "--since", "yesterday")
	require.Error(t, err)
	_, err = execute(t, "stats", "--last=-2")
	require.Error(t, err)
}

func TestPlayRejectsUnknownInjector(t *testing.T) {
	setupHome(t)
	_, err := execute(t, "--text", "x", "--injector", "carrier-pigeon", "--no-history")
	require.Error(t, err)
}

func TestTimelineCmdInvalidUTF8(t *testing.T) {
	setupHome(t)
	_, err := execute(t, "timeline", "--text", "ab\xff\xfec.", "--mistake-rate", "0.3")
	require.NoError(t, err)
}
