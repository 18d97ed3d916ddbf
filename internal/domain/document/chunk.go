package document

import (
	"fmt"
	"time"
)

// TimeRange is a transcript interval.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// Union returns the smallest range covering both.
func (r TimeRange) Union(o TimeRange) TimeRange {
	return TimeRange{Start: min(r.Start, o.Start), End: max(r.End, o.End)}
}

// String formats the range as hh:mm:ss-hh:mm:ss.
func (r TimeRange) String() string {
	return clock(r.Start) + "-" + clock(r.End)
}

func clock(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// Chunk is a bounded slice of a Document with its provenance.
type Chunk struct {
	text      string
	source    string
	sequence  int
	overlap   int
	page      int
	timeRange TimeRange
	hasTime   bool
}

// ReconstructChunk creates a Chunk from stored payload fields.
func ReconstructChunk(text, source string, sequence, page int, tr *TimeRange) Chunk {
	c := Chunk{text: text, source: source, sequence: sequence, page: page}
	if tr != nil {
		c.timeRange = *tr
		c.hasTime = true
	}
	return c
}

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// Source returns the parent document source identifier.
func (c Chunk) Source() string { return c.source }

// Sequence returns the index within the parent document.
func (c Chunk) Sequence() int { return c.sequence }

// Overlap returns the number of leading characters repeated from the previous chunk.
// Not persisted; zero on reconstructed chunks.
func (c Chunk) Overlap() int { return c.overlap }

// Page returns the 1-based page, 0 when absent.
func (c Chunk) Page() int { return c.page }

// TimeRange returns the covered transcript interval, if any.
func (c Chunk) TimeRange() (TimeRange, bool) { return c.timeRange, c.hasTime }

// Citation renders the locator a grounded answer must quote.
func (c Chunk) Citation() string {
	switch {
	case c.hasTime:
		return fmt.Sprintf("%s, %s", c.source, c.timeRange)
	case c.page > 0:
		return fmt.Sprintf("%s, page %d", c.source, c.page)
	default:
		return c.source
	}
}

// Reconstruct joins chunks of one document, dropping each chunk's leading overlap.
func Reconstruct(chunks []Chunk) string {
	var out []rune
	for _, c := range chunks {
		r := []rune(c.text)
		out = append(out, r[min(c.overlap, len(r)):]...)
	}
	return string(out)
}
