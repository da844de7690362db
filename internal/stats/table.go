package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// column describes one table column. Cells wider than max are cut with an
// ellipsis; max 0 keeps them whole.
type column struct {
	title string
	right bool
	max   int
}

func leftCol(title string) column  { return column{title: title} }
func rightCol(title string) column { return column{title: title, right: true} }

// renderTable lays rows out under cols, one string per line, header first.
// Rows shorter than cols get empty cells; extra cells are dropped.
func renderTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	cells := make([][]string, 0, len(rows)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.title
	}
	cells = append(cells, header)
	for _, row := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			if i < len(row) {
				line[i] = clip(row[i], c.max)
			}
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(cols))
	for _, line := range cells {
		for i, cell := range line {
			widths[i] = max(widths[i], displayWidth(cell))
		}
	}

	out := make([]string, 0, len(cells))
	for _, line := range cells {
		var b strings.Builder
		for i, cell := range line {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(pad(cell, widths[i], cols[i].right))
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	return out
}

func pad(value string, width int, right bool) string {
	gap := width - displayWidth(value)
	if gap <= 0 {
		return value
	}
	if right {
		return strings.Repeat(" ", gap) + value
	}
	return value + strings.Repeat(" ", gap)
}

// displayWidth counts terminal cells so CJK and emoji previews stay aligned.
func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}

func clip(value string, width int) string {
	if width <= 0 || displayWidth(value) <= width {
		return value
	}
	return runewidth.Truncate(value, width, ellipsis)
}
