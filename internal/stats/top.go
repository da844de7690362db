package stats

import "sort"

// LongestPauses returns the n plan rows with the longest sentence pause.
// Rows without a pause are skipped; ties keep source order.
func LongestPauses(rows []PlanRow, n int) []PlanRow {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	items := make([]PlanRow, 0, len(rows))
	for _, r := range rows {
		if r.Pause > 0 {
			items = append(items, r)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Pause > items[j].Pause
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
