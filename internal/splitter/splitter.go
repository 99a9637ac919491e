// Package splitter cuts extracted document text into retrieval-sized
// spans with character offsets. Cuts prefer paragraph, line, sentence
// and word boundaries, in that order.
package splitter

import (
	"strings"
	"unicode"

	"github.com/GallTech/rag-lab/internal/domain"
)

// Splitter produces overlapping character windows of roughly
// chunkSize bytes.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// New creates a splitter. Non-positive arguments fall back to the
// pipeline's historical defaults (2048 size, 512 overlap).
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 2048
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: []string{"\n\n", "\n", ". ", " "},
	}
}

// Split returns ordered spans covering text. Offsets index into the
// original string; whitespace-only spans are dropped.
func (s *Splitter) Split(text string) []domain.Span {
	var spans []domain.Span
	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		last := end >= len(text)
		if last {
			end = len(text)
		} else {
			end = s.cut(text, start, end)
		}
		if span, ok := makeSpan(text, start, end); ok {
			spans = append(spans, span)
		}
		if last {
			break
		}
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// cut picks the latest preferred boundary inside the window, keeping
// at least half a chunk so overlap cannot stall progress.
func (s *Splitter) cut(text string, start, end int) int {
	window := text[start:end]
	min := s.chunkSize / 2
	for _, sep := range s.separators {
		if i := strings.LastIndex(window, sep); i >= min {
			return start + i + len(sep)
		}
	}
	return end
}

func makeSpan(text string, start, end int) (domain.Span, bool) {
	raw := text[start:end]
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Span{}, false
	}
	lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
	from := start + lead
	to := from + len(trimmed)
	return domain.Span{
		Text:   trimmed,
		Start:  from,
		End:    to,
		Tokens: approxTokens(trimmed),
	}, true
}

// approxTokens estimates tokens at four characters apiece, enough for
// batch sizing decisions downstream.
func approxTokens(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
