package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the default chunk budget in bytes.
	DefaultChunkSize = 1000

	// MinOverlap and MaxOverlap clamp the derived overlap.
	MinOverlap = 10
	MaxOverlap = 200
)

// ErrInvalidSize is returned when the chunk size budget is not positive.
var ErrInvalidSize = errors.New("chunk size must be positive")

// Span is one bounded slice of the input text. Start and End are byte
// offsets into the original string, so adjacent spans expose their shared
// overlap region directly.
type Span struct {
	Start int
	End   int
	Text  string
}

// Chunker splits text into overlapping, size-bounded segments using a
// prioritized separator cascade: paragraph break, line break, sentence
// terminator, space, and finally an unconditional character cut. Splitting
// is deterministic: the same (text, size, overlap) always produces
// byte-identical boundaries.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithOverlap overrides the derived overlap, in bytes.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a Chunker with the given size budget. Unless overridden, the
// overlap is derived as clamp(size/5, MinOverlap, MaxOverlap). An overlap
// that meets or exceeds the size is reduced to size/4 so splitting always
// makes progress.
func New(size int, opts ...Option) (*Chunker, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &Chunker{
		size:    size,
		overlap: DerivedOverlap(size),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c, nil
}

// DerivedOverlap returns the default overlap for a size budget.
func DerivedOverlap(size int) int {
	o := size / 5
	if o < MinOverlap {
		return MinOverlap
	}
	if o > MaxOverlap {
		return MaxOverlap
	}
	return o
}

// Size returns the chunk size budget.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the effective overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split splits text into spans of at most Size bytes, never cutting inside
// a multi-byte character. Interior span boundaries share Overlap bytes,
// shrunk when a rune boundary demands it; the overlap into the final span
// is reduced when needed so the tail still fits the budget. Empty text
// yields no spans; text within the budget yields a single span.
func (c *Chunker) Split(text string) []Span {
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []Span{{Start: 0, End: len(text), Text: text}}
	}

	var spans []Span
	start := 0
	for {
		if len(text)-start <= c.size {
			spans = append(spans, newSpan(text, start, len(text)))
			return spans
		}

		cut := c.cutPoint(text, start, start+c.size)
		spans = append(spans, newSpan(text, start, cut))

		next := cut - c.overlap
		// Once the remaining tail fits the budget on its own, cap the
		// overlap so the backward step cannot force one more split.
		if len(text)-cut <= c.size {
			if floor := len(text) - c.size; next < floor {
				next = floor
			}
		}
		// The step back can land inside a multi-byte character; shrink
		// the overlap until the next span starts on a rune boundary.
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
}

// cutPoint finds the end of the chunk starting at start, bounded by limit.
// It prefers the coarsest separator that still leaves room for the next
// chunk to make progress past the overlap, and falls back to a hard
// character cut at the limit.
func (c *Chunker) cutPoint(text string, start, limit int) int {
	min := start + c.overlap + 1

	if cut := lastSeparatorCut(text, start, limit, min, "\n\n"); cut > 0 {
		return cut
	}
	if cut := lastSeparatorCut(text, start, limit, min, "\n"); cut > 0 {
		return cut
	}
	if cut := lastSentenceCut(text, start, limit, min); cut > 0 {
		return cut
	}
	if cut := lastSeparatorCut(text, start, limit, min, " "); cut > 0 {
		return cut
	}
	// Hard cut, backed up so a multi-byte character is never split.
	cut := limit
	for cut > min && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// lastSeparatorCut returns the cut position just after the last occurrence
// of sep within [start, limit) that is at or past min, or 0 if none usable.
func lastSeparatorCut(text string, start, limit, min int, sep string) int {
	window := text[start:limit]
	idx := strings.LastIndex(window, sep)
	if idx < 0 {
		return 0
	}
	// Earlier occurrences only move the cut backward, so one check suffices.
	if cut := start + idx + len(sep); cut >= min {
		return cut
	}
	return 0
}

// lastSentenceCut returns the cut position just after the last sentence
// terminator ('.', '!' or '?' followed by whitespace) in the window, or 0.
func lastSentenceCut(text string, start, limit, min int) int {
	for i := limit - 2; i >= start; i-- {
		if !isTerminator(text[i]) {
			continue
		}
		if !isWhitespace(text[i+1]) {
			continue
		}
		cut := i + 2
		if cut >= min {
			return cut
		}
		return 0
	}
	return 0
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}

func newSpan(text string, start, end int) Span {
	return Span{Start: start, End: end, Text: text[start:end]}
}
