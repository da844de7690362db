// Package stats contains run metrics and report rendering.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/timing"
)

const sparkChars = " .:-=+*#%@"

// RunMetrics computes the effective WPM (pauses included), the mistake rate
// per typed character and the completed fraction of a run.
func RunMetrics(run model.RunAggregate) (wpm, mistakeRate, completion float64) {
	if run.CharsTotal > 0 {
		completion = float64(run.CharsTyped) / float64(run.CharsTotal)
	}
	if run.CharsTyped > 0 {
		mistakeRate = float64(run.Mistakes) / float64(run.CharsTyped)
	}
	if run.DurationMs <= 0 {
		return 0, mistakeRate, completion
	}
	minutes := float64(run.DurationMs) / 60000.0
	wpm = (float64(run.CharsTyped) / timing.CharsPerWord) / minutes
	return wpm, mistakeRate, completion
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		idx = max(0, min(idx, last))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints totals and a WPM trend over runs.
func RenderSummary(w io.Writer, runs []model.RunAggregate, window int) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	var completed, aborted, typed, mistakes int
	var total time.Duration
	var sumWPM, bestWPM float64
	trend := make([]float64, len(runs))
	for i, r := range runs {
		switch r.Status {
		case model.StatusCompleted:
			completed++
		case model.StatusAborted:
			aborted++
		}
		wpm, _, _ := RunMetrics(r)
		trend[i] = wpm
		sumWPM += wpm
		bestWPM = math.Max(bestWPM, wpm)
		typed += r.CharsTyped
		mistakes += r.Mistakes
		total += time.Duration(r.DurationMs) * time.Millisecond
	}
	rate := 0.0
	if typed > 0 {
		rate = float64(mistakes) / float64(typed)
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d (%d completed, %d aborted)", len(runs), completed, aborted),
		fmt.Sprintf("Chars typed: %d", typed),
		fmt.Sprintf("Typing time: %s", total.Round(time.Second)),
		fmt.Sprintf("Avg effective WPM: %.2f", sumWPM/float64(len(runs))),
		fmt.Sprintf("Best effective WPM: %.2f", bestWPM),
		fmt.Sprintf("Mistake rate: %.2f%%", rate*100),
	}
	if len(runs) > 1 {
		lines = append(lines, fmt.Sprintf("Trend: [%s]", Sparkline(MovingAverage(trend, window))))
	}
	lines = append(lines, "")
	return writeLines(w, lines)
}

// RenderRunTable prints one row per run, oldest first.
func RenderRunTable(w io.Writer, runs []model.RunAggregate) error {
	if len(runs) == 0 {
		return nil
	}
	cols := []column{
		leftCol("Run"), leftCol("Ended"), leftCol("Status"), rightCol("Chars"), rightCol("Mistakes"),
		rightCol("Pauses"), rightCol("WPM"), rightCol("Eff WPM"), rightCol("Duration"),
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		eff, _, _ := RunMetrics(r)
		rows = append(rows, []string{
			shortID(r.RunID),
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			string(r.Status),
			fmt.Sprintf("%d/%d", r.CharsTyped, r.CharsTotal),
			fmt.Sprintf("%d", r.Mistakes),
			fmt.Sprintf("%d", r.Pauses),
			fmt.Sprintf("%.0f", r.WPM),
			fmt.Sprintf("%.1f", eff),
			(time.Duration(r.DurationMs) * time.Millisecond).Round(time.Second).String(),
		})
	}
	lines := append([]string{"Runs"}, renderTable(cols, rows)...)
	return writeLines(w, append(lines, ""))
}

// RenderTagTable prints how many sentences of each tag were typed.
func RenderTagTable(w io.Writer, tags []model.TagAggregate) error {
	if len(tags) == 0 {
		_, err := fmt.Fprintln(w, "No tagged sentences found.")
		return err
	}
	rows := make([][]string, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, []string{t.Tag, fmt.Sprintf("%d", t.Count)})
	}
	lines := append([]string{"Sentence Tags"}, renderTable([]column{leftCol("Tag"), rightCol("Sentences")}, rows)...)
	return writeLines(w, append(lines, ""))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
