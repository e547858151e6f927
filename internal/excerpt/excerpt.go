// Package excerpt extracts short, query-relevant display snippets from
// chunk text.
package excerpt

import (
	"strings"
	"unicode"
)

const (
	// DefaultMaxLength caps excerpt length in characters.
	DefaultMaxLength = 300

	// windowStep is the stride of the sliding window in characters.
	windowStep = 50

	// sentenceTrimThreshold: only trim to a sentence boundary when it falls
	// past this fraction of the window, so trimming never eats most of it.
	sentenceTrimThreshold = 0.7

	ellipsis = "…"
)

// Builder produces excerpts with a fixed maximum length.
type Builder struct {
	maxLength int
}

// New creates a Builder. maxLength <= 0 selects DefaultMaxLength.
func New(maxLength int) *Builder {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Builder{maxLength: maxLength}
}

// Build returns a display snippet of fullText for query. When the keyword
// signal already produced highlighted spans they are preferred over
// re-deriving a window; otherwise the best window by distinct query-term
// coverage wins, earliest window on ties.
func (b *Builder) Build(fullText, query string, highlights []string) string {
	if joined := b.joinHighlights(highlights); joined != "" {
		return joined
	}
	return b.Window(fullText, query)
}

// joinHighlights merges highlight spans into one snippet, respecting the
// length cap. Empty spans are skipped.
func (b *Builder) joinHighlights(highlights []string) string {
	var parts []string
	length := 0
	for _, h := range highlights {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if length > 0 && length+len(h) > b.maxLength {
			break
		}
		parts = append(parts, h)
		length += len(h)
	}
	return strings.Join(parts, " "+ellipsis+" ")
}

// Window slides a fixed-step window across fullText and returns the window
// containing the most distinct query terms, trimmed to a late sentence
// boundary and marked with ellipses where it cuts mid-document.
func (b *Builder) Window(fullText, query string) string {
	runes := []rune(fullText)
	if len(runes) <= b.maxLength {
		return fullText
	}

	terms := queryTerms(query)

	bestStart := 0
	bestScore := -1
	for start := 0; start < len(runes); start += windowStep {
		end := start + b.maxLength
		if end > len(runes) {
			end = len(runes)
		}
		score := countDistinctTerms(string(runes[start:end]), terms)
		// Strictly greater keeps the earliest window on ties.
		if score > bestScore {
			bestScore = score
			bestStart = start
		}
		if end == len(runes) {
			break
		}
	}

	start := bestStart
	end := start + b.maxLength
	if end > len(runes) {
		end = len(runes)
	}
	window := trimToSentence(string(runes[start:end]))

	if start > 0 {
		window = ellipsis + strings.TrimLeftFunc(window, unicode.IsSpace)
	}
	if end < len(runes) {
		window = strings.TrimRightFunc(window, unicode.IsSpace) + ellipsis
	}
	return window
}

// queryTerms lowercases and splits the query into distinct terms.
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	var terms []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

func countDistinctTerms(window string, terms []string) int {
	lower := strings.ToLower(window)
	n := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			n++
		}
	}
	return n
}

// trimToSentence cuts the window at its last sentence boundary when that
// boundary lies past the trim threshold.
func trimToSentence(window string) string {
	runes := []rune(window)
	cut := -1
	for i, r := range runes {
		if r == '.' || r == '!' || r == '?' {
			cut = i
		}
	}
	if cut >= int(float64(len(runes))*sentenceTrimThreshold) {
		return string(runes[:cut+1])
	}
	return window
}
