package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Runs   []model.RunAggregate
	Tags   []model.TagAggregate
	Window int
}

// BuildReport loads runs matching cfg and the tag totals across them.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list runs: %w", err)
	}
	tags, err := st.TagTotals(ctx, runIDs(runs))
	if err != nil {
		return Report{}, fmt.Errorf("failed to load tag totals: %w", err)
	}
	return Report{Runs: runs, Tags: tags, Window: cfg.Window}, nil
}

// Render prints the summary, run table and tag table.
func (r Report) Render(w io.Writer) error {
	if err := RenderSummary(w, r.Runs, r.Window); err != nil {
		return err
	}
	if len(r.Runs) == 0 {
		return nil
	}
	if err := RenderRunTable(w, r.Runs); err != nil {
		return err
	}
	return RenderTagTable(w, r.Tags)
}

func runIDs(runs []model.RunAggregate) []int64 {
	ids := make([]int64, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}
