package stats

import (
	"fmt"
	"io"

	"github.com/verte-zerg/cadence/internal/config"
	"github.com/verte-zerg/cadence/internal/model"
)

const descriptionWidth = 40

// RenderPresets prints every preset with its resolved values.
func RenderPresets(w io.Writer, presets []config.Preset) error {
	cols := []column{
		leftCol("Preset"), rightCol("WPM"), rightCol("Mid"), rightCol("Mid Pause"), rightCol("Sentence"),
		rightCol("Paragraph"), rightCol("Quote"), rightCol("Analysis"), rightCol("Context"),
		{title: "Description", max: descriptionWidth},
	}
	rows := make([][]string, 0, len(presets))
	for _, p := range presets {
		cfg := p.Apply(model.DefaultTypingConfig())
		rows = append(rows, []string{
			p.Name,
			fmt.Sprintf("%.0f", cfg.WPM),
			fmt.Sprintf("%.0f%%", cfg.MidPauseChance*100),
			fmt.Sprintf("%.1fs", cfg.MidPauseSeconds),
			fmt.Sprintf("%.1fs", cfg.SentencePauseSeconds),
			fmt.Sprintf("%.0fs", cfg.ParagraphPauseSeconds),
			fmt.Sprintf("%.1f", cfg.QuoteWeight),
			fmt.Sprintf("%.1f", cfg.AnalysisWeight),
			fmt.Sprintf("%.1f", cfg.ContextWeight),
			p.Description,
		})
	}
	return writeLines(w, renderTable(cols, rows))
}
