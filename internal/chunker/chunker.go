// Package chunker splits documents into bounded, overlapping chunks.
//
// Break points are searched from the coarsest boundary class down: transcript
// cue ends, paragraphs, lines, sentence ends, words, then raw characters.
// Lengths are counted in characters (runes).
package chunker

import (
	"fmt"
	"slices"
	"unicode"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/document"
)

// DefaultMaxSize is the default chunk size in characters.
const DefaultMaxSize = 1000

// DefaultOverlap is the default overlap between consecutive chunks in characters.
const DefaultOverlap = 100

// Chunker is deterministic and safe for concurrent use.
type Chunker struct {
	maxSize int
	overlap int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxSize sets the maximum chunk size.
func WithMaxSize(size int) Option {
	return func(c *Chunker) { c.maxSize = size }
}

// WithOverlap sets the minimum overlap between consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) { c.overlap = overlap }
}

// New creates a Chunker. Requires 0 <= overlap < maxSize.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{maxSize: DefaultMaxSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxSize <= 0 {
		return nil, domain.NewValidationError("max_size", "must be positive")
	}
	if c.overlap < 0 || c.overlap >= c.maxSize {
		return nil, domain.NewValidationError("overlap", fmt.Sprintf("must be in [0, %d)", c.maxSize))
	}
	return c, nil
}

// MaxSize returns the configured chunk size.
func (c *Chunker) MaxSize() int { return c.maxSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits every document. Sequence numbers restart at 0 per document,
// and chunks are returned in document order, then sequence order.
func (c *Chunker) Chunk(docs []document.Document) []document.Chunk {
	var out []document.Chunk
	for _, doc := range docs {
		out = append(out, c.chunkOne(doc)...)
	}
	return out
}

type span struct {
	start, end, overlap int
}

func (c *Chunker) chunkOne(doc document.Document) []document.Chunk {
	runes := []rune(doc.Text())
	spans := c.split(runes, cueBounds(runes, doc.Cues()))

	cut := doc.Slicer()
	chunks := make([]document.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = cut.Cut(s.start, s.end, s.overlap, i)
	}
	return chunks
}

func (c *Chunker) split(r []rune, cues []int) []span {
	n := len(r)
	if n == 0 {
		return nil
	}

	var spans []span
	start, prevEnd := 0, 0
	for {
		ov := 0
		if len(spans) > 0 {
			ov = prevEnd - start
		}
		if n-start <= c.maxSize {
			return append(spans, span{start: start, end: n, overlap: ov})
		}

		end := c.breakPoint(r, start, prevEnd, cues)
		spans = append(spans, span{start: start, end: end, overlap: ov})

		// Aligning back to a word start may grow the overlap, but never past
		// half a chunk, so the next chunk still reaches beyond end.
		next := end - c.overlap
		if c.overlap > 0 {
			next = wordStart(r, next, max(start+1, next-c.overlap, end-c.maxSize/2))
		}
		prevEnd, start = end, next
	}
}

// breakPoint picks the end of the chunk starting at start. The result lies in
// [lo, start+maxSize] where lo keeps the chunk at least half full, longer than
// the overlap and past the previous chunk's end, so every chunk adds text.
func (c *Chunker) breakPoint(r []rune, start, prevEnd int, cues []int) int {
	limit := start + c.maxSize
	lo := max(start+max(c.maxSize/2, c.overlap+1), prevEnd+1)

	if p := lastIn(cues, lo, limit); p > 0 {
		return p
	}
	for _, class := range boundaryClasses {
		for p := limit; p >= lo; p-- {
			if class(r, p) {
				return p
			}
		}
	}
	return limit
}

// boundaryClasses report whether a chunk may end right before index p.
// Ordered from coarsest to finest.
var boundaryClasses = []func(r []rune, p int) bool{
	// paragraph
	func(r []rune, p int) bool { return p >= 2 && r[p-1] == '\n' && r[p-2] == '\n' },
	// line
	func(r []rune, p int) bool { return p >= 1 && r[p-1] == '\n' },
	// sentence: terminator followed by whitespace, the whitespace stays with the sentence
	func(r []rune, p int) bool {
		return p >= 2 && unicode.IsSpace(r[p-1]) && isTerminator(r[p-2])
	},
	// word
	func(r []rune, p int) bool { return p >= 1 && unicode.IsSpace(r[p-1]) },
}

func isTerminator(ch rune) bool {
	return ch == '.' || ch == '!' || ch == '?' || ch == '…'
}

// wordStart moves p back to the nearest word start not below floor.
// Returns p unchanged when there is none.
func wordStart(r []rune, p, floor int) int {
	for q := p; q >= floor && q > 0; q-- {
		if unicode.IsSpace(r[q-1]) && !unicode.IsSpace(r[q]) {
			return q
		}
	}
	return p
}

// cueBounds lists break positions right after each cue and its trailing newline.
func cueBounds(r []rune, cues []document.Cue) []int {
	if len(cues) == 0 {
		return nil
	}
	out := make([]int, 0, len(cues))
	for _, c := range cues {
		p := c.Offset + c.Length
		if p < len(r) && r[p] == '\n' {
			p++
		}
		out = append(out, p)
	}
	return out
}

// lastIn returns the largest value of sorted within [lo, hi], or 0.
func lastIn(sorted []int, lo, hi int) int {
	i, _ := slices.BinarySearch(sorted, hi+1)
	if i == 0 || sorted[i-1] < lo {
		return 0
	}
	return sorted[i-1]
}
