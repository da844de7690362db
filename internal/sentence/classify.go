package sentence

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/verte-zerg/cadence/internal/model"
)

const (
	quoteGlyphs       = "\"'“”‘’"
	colonWindow       = 20
	longSentenceRunes = 200
)

var (
	dashLead   = regexp.MustCompile(`^[\-—]\s*`)
	speakerTag = regexp.MustCompile(`^[A-Z][a-z]+:\s`)

	analysisMarkers = []string{"note:", "however", "i.e.", "e.g.", "viz", "namely"}
	contextLeadIns  = []string{
		"in conclusion", "overall", "context:", "importantly", "moreover",
		"in summary", "to conclude", "therefore", "consequently",
	}
)

// Classify returns the structural tags of s. The source text is inspected
// before s.Start to detect a quotation still open from earlier sentences.
func Classify(s model.Sentence, source string) model.TagSet {
	text := strings.TrimSpace(s.Text)
	lower := strings.ToLower(text)
	var tags model.TagSet

	if isQuoted(text) || openQuoteBefore(source, s.Start) {
		tags = tags.Add(model.TagQuote)
	}
	if dashLead.MatchString(text) || speakerTag.MatchString(text) || strings.HasPrefix(lower, "said ") {
		tags = tags.Add(model.TagDialog)
	}
	if listMarker.MatchString(text) {
		tags = tags.Add(model.TagList)
	}
	if isAnalysis(text, lower) {
		tags = tags.Add(model.TagAnalysis)
	}
	for _, lead := range contextLeadIns {
		if strings.HasPrefix(lower, lead) {
			tags = tags.Add(model.TagContext)
			break
		}
	}
	if utf8.RuneCountInString(text) > longSentenceRunes {
		tags = tags.Add(model.TagLong)
	}
	return tags
}

func isQuoted(text string) bool {
	if text == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(text)
	last, _ := utf8.DecodeLastRuneInString(text)
	return strings.ContainsRune(quoteGlyphs, first) || strings.ContainsRune(quoteGlyphs, last)
}

func openQuoteBefore(source string, start int) bool {
	if start <= 0 {
		return false
	}
	if start > len(source) {
		start = len(source)
	}
	before := source[:start]
	return strings.Count(before, `"`)%2 == 1 || strings.Count(before, "'")%2 == 1
}

func isAnalysis(text, lower string) bool {
	if strings.Contains(text, "(") {
		return true
	}
	for _, marker := range analysisMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	head := []rune(text)
	if len(head) > colonWindow {
		head = head[:colonWindow]
	}
	return strings.ContainsRune(string(head), ':')
}
