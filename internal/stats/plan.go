package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/timing"
)

const previewWidth = 40

// PlanRow describes how one sentence will be paced.
type PlanRow struct {
	Index      int
	Start      int
	End        int
	Tags       model.TagSet
	Multiplier float64
	// Pause is the end-of-sentence pause in seconds, zero when none applies.
	Pause   float64
	Preview string
}

// BuildPlan computes pacing rows for analysed sentences of normalized text.
func BuildPlan(normalized string, sentences []model.Sentence, cfg model.TypingConfig) []PlanRow {
	rows := make([]PlanRow, 0, len(sentences))
	for i, s := range sentences {
		row := PlanRow{
			Index:      i + 1,
			Start:      s.Start,
			End:        s.End,
			Tags:       s.Tags,
			Multiplier: timing.Multiplier(s.Tags, cfg),
			Preview:    preview(s.Text),
		}
		if cfg.Thinking && timing.EndsWithTerminator(s, normalized) {
			row.Pause = timing.SentencePause(s.Tags, cfg)
		}
		rows = append(rows, row)
	}
	return rows
}

// RenderPlan prints the sentence plan table.
func RenderPlan(w io.Writer, rows []PlanRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No sentences found.")
		return err
	}
	cols := []column{rightCol("#"), leftCol("Span"), leftCol("Tags"), rightCol("Mult"), rightCol("Pause"), {title: "Sentence", max: previewWidth}}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		pause := "-"
		if r.Pause > 0 {
			pause = fmt.Sprintf("%.2fs", r.Pause)
		}
		table = append(table, []string{
			fmt.Sprintf("%d", r.Index),
			fmt.Sprintf("%d-%d", r.Start, r.End),
			r.Tags.String(),
			fmt.Sprintf("%.2f", r.Multiplier),
			pause,
			r.Preview,
		})
	}
	return writeLines(w, renderTable(cols, table))
}

func preview(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
