// Package keyboard builds the QWERTY key adjacency table used for typos.
package keyboard

import (
	"math/rand"
	"sort"
	"unicode"
)

var rows = []string{
	"`1234567890-=",
	"qwertyuiop[]\\",
	"asdfghjkl;'",
	"zxcvbnm,./",
}

// Keys near the space bar.
var spaceNeighbors = []rune{'b', 'n', 'v'}

const letters = "abcdefghijklmnopqrstuvwxyz"

var neighbors = buildNeighbors()

func buildNeighbors() map[rune][]rune {
	grid := make([][]rune, len(rows))
	for i, row := range rows {
		grid[i] = []rune(row)
	}

	out := map[rune][]rune{}
	for r, row := range grid {
		for c, ch := range row {
			set := map[rune]struct{}{}
			if c > 0 {
				set[row[c-1]] = struct{}{}
			}
			if c+1 < len(row) {
				set[row[c+1]] = struct{}{}
			}
			for _, adj := range []int{r - 1, r + 1} {
				if adj < 0 || adj >= len(grid) {
					continue
				}
				adjRow := grid[adj]
				for _, col := range []int{c - 1, c, c + 1} {
					if col >= 0 && col < len(adjRow) {
						set[adjRow[col]] = struct{}{}
					}
				}
			}
			keys := sortedRunes(set)
			out[ch] = keys
			if unicode.IsLetter(ch) {
				upper := make([]rune, len(keys))
				for i, k := range keys {
					if unicode.IsLetter(k) {
						k = unicode.ToUpper(k)
					}
					upper[i] = k
				}
				out[unicode.ToUpper(ch)] = upper
			}
		}
	}
	out[' '] = spaceNeighbors
	return out
}

func sortedRunes(set map[rune]struct{}) []rune {
	out := make([]rune, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Neighbors returns a copy of the keys adjacent to r, or nil when r is not on the layout.
func Neighbors(r rune) []rune {
	keys, ok := neighbors[r]
	if !ok {
		return nil
	}
	out := make([]rune, len(keys))
	copy(out, keys)
	return out
}

// Nearby picks a uniformly random neighbour of r. Keys without neighbours
// fall back to a random lowercase letter.
func Nearby(r rune, rnd *rand.Rand) rune {
	if keys := neighbors[r]; len(keys) > 0 {
		return keys[rnd.Intn(len(keys))]
	}
	return RandomLetter(rnd)
}

// RandomLetter returns a uniformly random lowercase ASCII letter.
func RandomLetter(rnd *rand.Rand) rune {
	return rune(letters[rnd.Intn(len(letters))])
}
