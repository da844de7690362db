// Package sentence splits text into sentence spans and tags their structure.
package sentence

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/cadence/internal/model"
	"github.com/verte-zerg/cadence/internal/timing"
)

// Abbreviations never end a sentence when followed by a period.
var Abbreviations = map[string]struct{}{
	"e.g": {}, "i.e": {}, "mr": {}, "mrs": {}, "dr": {}, "jr": {}, "sr": {},
	"vs": {}, "etc": {}, "prof": {}, "rev": {}, "st": {}, "rd": {}, "ave": {},
}

var (
	// candidatePattern matches the shortest run ending in terminal
	// punctuation (with any closing quotes right after it), a line break, or
	// the end of input.
	candidatePattern = regexp.MustCompile(`(?s).+?(?:[.?!]+["'”’]*|\n|$)`)
	// listMarker matches a leading bullet or numbered item.
	listMarker = regexp.MustCompile(`^([-*•]|\d+\.)\s+`)
	// dialogMarker matches a leading dash or a capitalized speaker tag.
	dialogMarker = regexp.MustCompile(`^(—|-|[A-Z][a-z]+:)`)
	// numberedLine matches a line holding only an item number.
	numberedLine = regexp.MustCompile(`^\s*\d+$`)
)

// guard reports whether the terminator run text[runStart:end] must not end a sentence.
type guard func(text string, runStart, end int) bool

// splitGuards are evaluated in order; any match suppresses the split.
var splitGuards = []guard{
	inlineDotGuard,
	abbreviationGuard,
	numberedMarkerGuard,
}

// Normalize converts CRLF and CR line endings to LF and replaces each run of
// invalid UTF-8 with U+FFFD, so the text matches what is typed.
func Normalize(text string) string {
	text = strings.ToValidUTF8(text, string(utf8.RuneError))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Split segments text into ordered, non-overlapping sentence spans. Offsets
// refer to Normalize(text). Tags are left empty; see Analyze.
func Split(text string) []model.Sentence {
	text = Normalize(text)
	var out []model.Sentence
	pending := -1
	for _, loc := range candidatePattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if pending >= 0 {
			start = pending
		}
		body := strings.TrimSpace(text[start:end])
		if body == "" {
			continue
		}
		if suppressed(text, end) {
			pending = start
			continue
		}
		pending = -1
		out = append(out, model.Sentence{Start: start, End: end, Text: body})
	}
	if pending >= 0 {
		out = append(out, model.Sentence{
			Start: pending,
			End:   len(text),
			Text:  strings.TrimSpace(text[pending:]),
		})
	}
	return merge(out)
}

func suppressed(text string, end int) bool {
	runEnd := end
	for runEnd > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:runEnd])
		if !timing.IsClosingQuote(r) {
			break
		}
		runEnd -= size
	}
	runStart := runEnd
	for runStart > 0 && isTerminator(text[runStart-1]) {
		runStart--
	}
	if runStart == runEnd {
		return false
	}
	for _, g := range splitGuards {
		if g(text, runStart, runEnd) {
			return true
		}
	}
	return false
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// inlineDotGuard keeps "3.14" and "example.com" whole.
func inlineDotGuard(text string, _, end int) bool {
	if end >= len(text) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(text[end:])
	return unicode.IsLetter(next) || unicode.IsDigit(next)
}

func abbreviationGuard(text string, runStart, _ int) bool {
	if text[runStart] != '.' {
		return false
	}
	_, ok := Abbreviations[precedingWord(text, runStart)]
	return ok
}

// numberedMarkerGuard keeps "2." at the start of a line attached to its item.
func numberedMarkerGuard(text string, runStart, end int) bool {
	if end-runStart != 1 || text[runStart] != '.' {
		return false
	}
	lineStart := strings.LastIndexByte(text[:runStart], '\n') + 1
	return numberedLine.MatchString(text[lineStart:runStart])
}

// precedingWord returns the lower-cased word of letters and dots before pos,
// skipping whitespace and stripping trailing dots.
func precedingWord(text string, pos int) string {
	j := pos
	for j > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:j])
		if !unicode.IsSpace(r) {
			break
		}
		j -= size
	}
	i := j
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		i -= size
	}
	return strings.TrimRight(strings.ToLower(text[i:j]), ".")
}

// merge folds bullet and dialog continuations into the preceding sentence.
func merge(sentences []model.Sentence) []model.Sentence {
	if len(sentences) == 0 {
		return nil
	}
	out := make([]model.Sentence, 0, len(sentences))
	for _, s := range sentences {
		if len(out) == 0 {
			out = append(out, s)
			continue
		}
		prev := &out[len(out)-1]
		switch {
		case listMarker.MatchString(s.Text):
			prev.Text = strings.TrimSpace(prev.Text + "\n" + s.Text)
			prev.End = s.End
		case dialogMarker.MatchString(s.Text):
			prev.Text = strings.TrimSpace(prev.Text + " " + s.Text)
			prev.End = s.End
		default:
			out = append(out, s)
		}
	}
	return out
}

// Analyze splits text and classifies every sentence.
func Analyze(text string) []model.Sentence {
	normalized := Normalize(text)
	sentences := Split(normalized)
	for i := range sentences {
		sentences[i].Tags = Classify(sentences[i], normalized)
	}
	return sentences
}
