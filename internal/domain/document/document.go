package document

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// TextSource is the source tag for raw text submissions.
const TextSource = "message_content"

// Document is one normalized unit of source text (immutable value object).
type Document struct {
	text   string
	source string
	page   int
	cues   []Cue
}

// Cue is a timestamped transcript entry located inside the document text.
// Offset and Length count characters, not bytes.
type Cue struct {
	Start  time.Duration
	End    time.Duration
	Offset int
	Length int
}

// New validates and creates a Document. Text must contain non-whitespace characters.
func New(text, source string) (Document, error) {
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("document text is empty: %w", domain.ErrUnsupportedInput)
	}
	if !utf8.ValidString(text) {
		return Document{}, fmt.Errorf("document text is not valid UTF-8: %w", domain.ErrUnsupportedInput)
	}
	if source == "" {
		return Document{}, fmt.Errorf("document source is required: %w", domain.ErrUnsupportedInput)
	}
	return Document{text: text, source: source}, nil
}

// WithPage returns a copy tagged with a 1-based page number.
func (d Document) WithPage(page int) Document {
	d.page = page
	return d
}

// WithCues returns a copy carrying transcript cues.
// Cues must be ordered by Offset and lie inside the text.
func (d Document) WithCues(cues []Cue) (Document, error) {
	n := utf8.RuneCountInString(d.text)
	prevEnd := 0
	for i, c := range cues {
		if c.Offset < prevEnd || c.Length < 0 || c.Offset+c.Length > n {
			return Document{}, fmt.Errorf("cue %d out of range: %w", i, domain.ErrUnsupportedInput)
		}
		if c.End < c.Start {
			return Document{}, fmt.Errorf("cue %d ends before it starts: %w", i, domain.ErrUnsupportedInput)
		}
		prevEnd = c.Offset + c.Length
	}
	d.cues = slices.Clone(cues)
	return d, nil
}

// Text returns the document text.
func (d Document) Text() string { return d.text }

// Source returns the source identifier (title, URL, file base name or TextSource).
func (d Document) Source() string { return d.source }

// Page returns the 1-based page number, 0 when the source is not paginated.
func (d Document) Page() int { return d.page }

// Cues returns the transcript cues, nil for non-transcript documents.
func (d Document) Cues() []Cue { return slices.Clone(d.cues) }

// IsTranscript reports whether the document carries cue timing.
func (d Document) IsTranscript() bool { return len(d.cues) > 0 }

// Metadata returns the document metadata as a string|number mapping.
func (d Document) Metadata() map[string]any {
	m := map[string]any{"source": d.source}
	if d.page > 0 {
		m["page"] = d.page
	}
	return m
}

// Slice cuts the character range [start, end) into a Chunk.
// overlap is the number of leading characters shared with the previous chunk.
// For cutting a whole document use Slicer, which decodes the text once.
func (d Document) Slice(start, end, overlap, sequence int) Chunk {
	return d.Slicer().Cut(start, end, overlap, sequence)
}

// Slicer cuts consecutive chunks out of one document.
// Cut calls must come with non-decreasing start and end.
type Slicer struct {
	doc   Document
	runes []rune
	cue   int // first cue that may still intersect a later chunk
}

// Slicer decodes the text once for a run of Cut calls.
func (d Document) Slicer() *Slicer {
	return &Slicer{doc: d, runes: []rune(d.text)}
}

// Cut returns the chunk for characters [start, end).
func (s *Slicer) Cut(start, end, overlap, sequence int) Chunk {
	c := Chunk{
		text:     string(s.runes[start:end]),
		source:   s.doc.source,
		sequence: sequence,
		overlap:  overlap,
		page:     s.doc.page,
	}
	if tr, ok := s.coveredTime(start, end); ok {
		c.timeRange = tr
		c.hasTime = true
	}
	return c
}

// coveredTime unions the ranges of cues intersecting [start, end).
// Cues are ordered and disjoint, so cues ending at or before start are
// skipped for good.
func (s *Slicer) coveredTime(start, end int) (TimeRange, bool) {
	cues := s.doc.cues
	for s.cue < len(cues) && cues[s.cue].Offset+cues[s.cue].Length <= start {
		s.cue++
	}
	var tr TimeRange
	found := false
	for _, c := range cues[s.cue:] {
		if c.Offset >= end {
			break
		}
		if c.Offset+c.Length <= start {
			continue
		}
		span := TimeRange{Start: c.Start, End: c.End}
		if !found {
			tr = span
			found = true
			continue
		}
		tr = tr.Union(span)
	}
	return tr, found
}
