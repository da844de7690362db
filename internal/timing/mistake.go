package timing

import (
	"math/rand"
	"unicode"

	"github.com/verte-zerg/cadence/internal/keyboard"
)

const (
	// MistakeRate is the chance of a typo per character during playback.
	MistakeRate = 0.05
	// MistakeCost is the expected time of one typo, in base delays.
	MistakeCost = 1.5

	holdFactor    = 2.0
	recoverFactor = 0.5
)

// Mistake is a wrong key followed by a correction. Hold is the wait before
// the backspace and Recover the wait after it, both in seconds.
type Mistake struct {
	Wrong   rune
	Hold    float64
	Recover float64
}

// MistakeModel decides per character whether a typo happens.
type MistakeModel struct {
	Rate float64
}

// DefaultMistakeModel uses the fixed playback typo rate.
func DefaultMistakeModel() MistakeModel {
	return MistakeModel{Rate: MistakeRate}
}

// Decide draws once from rnd and, on a hit, picks the wrong key for r.
func (m MistakeModel) Decide(r rune, base float64, rnd *rand.Rand) (Mistake, bool) {
	if r == 0 || rnd.Float64() >= m.Rate {
		return Mistake{}, false
	}
	wrong := wrongKey(r, rnd)
	return Mistake{
		Wrong:   wrong,
		Hold:    base * holdFactor,
		Recover: base * recoverFactor,
	}, true
}

func wrongKey(r rune, rnd *rand.Rand) rune {
	if len(keyboard.Neighbors(r)) > 0 {
		return keyboard.Nearby(r, rnd)
	}
	wrong := keyboard.RandomLetter(rnd)
	if unicode.IsUpper(r) {
		wrong = unicode.ToUpper(wrong)
	}
	return wrong
}
