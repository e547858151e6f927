// Package chunker splits cleaned document text into bounded retrievable
// units. Splitting is deterministic: the same input always yields the same
// chunk list, so re-ingestion is restartable and idempotent.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultMaxSize is the maximum chunk length in characters.
const DefaultMaxSize = 1000

// DefaultOverlap is the number of trailing characters of a chunk repeated at
// the start of the next one to preserve context across boundaries.
const DefaultOverlap = 0

// Options configures a split.
type Options struct {
	// MaxSize caps the chunk length in characters. Zero or negative means
	// DefaultMaxSize.
	MaxSize int

	// Overlap repeats up to this many trailing characters of the previous
	// chunk at the start of the next, trimmed to a word boundary.
	Overlap int
}

func (o Options) normalized() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.MaxSize {
		o.Overlap = o.MaxSize / 4
	}
	return o
}

// Split chunks text into ordered pieces of at most MaxSize characters.
// Paragraphs are packed greedily; a paragraph that alone exceeds MaxSize is
// split on sentence boundaries with the same greedy packing. Non-empty input
// always yields at least one chunk, and no chunk is empty or whitespace-only.
func Split(text string, opts Options) []string {
	opts = opts.normalized()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []string
	for _, para := range paragraphs(text) {
		if runeLen(para) <= opts.MaxSize {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, splitOversize(para, opts.MaxSize)...)
	}

	chunks := pack(pieces, opts.MaxSize)

	if len(chunks) == 0 {
		// Degenerate inputs (e.g. one unbroken run of text with no usable
		// boundary) still produce a single truncated chunk.
		return []string{truncateRunes(strings.TrimSpace(text), opts.MaxSize)}
	}

	if opts.Overlap > 0 {
		chunks = applyOverlap(chunks, opts)
	}

	return chunks
}

// paragraphs splits on blank lines and drops whitespace-only segments.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitOversize breaks a paragraph that exceeds max into sentence-sized
// pieces, hard-splitting any single sentence longer than max.
func splitOversize(para string, max int) []string {
	var out []string
	for _, s := range sentences(para) {
		if runeLen(s) <= max {
			out = append(out, s)
			continue
		}
		runes := []rune(s)
		for len(runes) > 0 {
			n := max
			if n > len(runes) {
				n = len(runes)
			}
			piece := strings.TrimSpace(string(runes[:n]))
			if piece != "" {
				out = append(out, piece)
			}
			runes = runes[n:]
		}
	}
	return out
}

// sentences splits on terminal punctuation followed by whitespace, keeping
// the punctuation with the preceding sentence.
func sentences(text string) []string {
	var out []string
	var sb strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		sb.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			s := strings.TrimSpace(sb.String())
			if s != "" {
				out = append(out, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// pack greedily joins pieces into chunks without exceeding max characters.
// Pieces are joined with a blank line to keep paragraph structure readable.
const pieceSeparator = "\n\n"

func pack(pieces []string, max int) []string {
	var chunks []string
	var sb strings.Builder
	length := 0

	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			chunks = append(chunks, s)
		}
		sb.Reset()
		length = 0
	}

	for _, piece := range pieces {
		pieceLen := runeLen(piece)
		sepLen := 0
		if length > 0 {
			sepLen = runeLen(pieceSeparator)
		}
		if length > 0 && length+sepLen+pieceLen > max {
			flush()
		}
		if sb.Len() > 0 {
			sb.WriteString(pieceSeparator)
			length += runeLen(pieceSeparator)
		}
		sb.WriteString(piece)
		length += pieceLen
	}
	flush()

	return chunks
}

// applyOverlap prefixes each chunk after the first with the tail of its
// predecessor, trimmed forward to a word boundary. The overlapped prefix is
// context only; ordinal order and source reconstruction ignore it.
func applyOverlap(chunks []string, opts Options) []string {
	out := make([]string, len(chunks))
	out[0] = chunks[0]

	for i := 1; i < len(chunks); i++ {
		tail := tailRunes(chunks[i-1], opts.Overlap)
		if idx := strings.IndexFunc(tail, unicode.IsSpace); idx >= 0 {
			tail = strings.TrimSpace(tail[idx:])
		}
		if tail == "" || runeLen(tail)+runeLen(pieceSeparator)+runeLen(chunks[i]) > opts.MaxSize {
			out[i] = chunks[i]
			continue
		}
		out[i] = tail + pieceSeparator + chunks[i]
	}
	return out
}

func runeLen(s string) int { return len([]rune(s)) }

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
