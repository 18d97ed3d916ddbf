package record

import (
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/document"
)

// Record is one embedded chunk owned by a single collection.
type Record struct {
	id     string
	vector []float32
	chunk  document.Chunk
}

// New validates and creates a Record.
func New(id string, vector []float32, chunk document.Chunk) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record id is required")
	}
	if len(vector) == 0 {
		return Record{}, fmt.Errorf("record %s has empty vector: %w", id, domain.ErrVectorDimMismatch)
	}
	return Record{id: id, vector: slices.Clone(vector), chunk: chunk}, nil
}

// ID returns the record identifier.
func (r Record) ID() string { return r.id }

// Vector returns the embedding.
func (r Record) Vector() []float32 { return r.vector }

// Chunk returns the embedded chunk.
func (r Record) Chunk() document.Chunk { return r.chunk }

// Payload returns the storable view of the chunk.
func (r Record) Payload() Payload {
	c := r.chunk
	p := Payload{
		Text:     c.Text(),
		Source:   c.Source(),
		Sequence: c.Sequence(),
		Page:     c.Page(),
	}
	if tr, ok := c.TimeRange(); ok {
		p.HasTime = true
		p.StartMS = tr.Start.Milliseconds()
		p.EndMS = tr.End.Milliseconds()
	}
	return p
}

// Payload is the backend-neutral form of a chunk stored next to its vector.
type Payload struct {
	Text     string
	Source   string
	Sequence int
	Page     int
	HasTime  bool
	StartMS  int64
	EndMS    int64
}

// Chunk hydrates the stored payload.
func (p Payload) Chunk() document.Chunk {
	var tr *document.TimeRange
	if p.HasTime {
		tr = &document.TimeRange{
			Start: time.Duration(p.StartMS) * time.Millisecond,
			End:   time.Duration(p.EndMS) * time.Millisecond,
		}
	}
	return document.ReconstructChunk(p.Text, p.Source, p.Sequence, p.Page, tr)
}

// Dimension returns the shared vector length of records.
func Dimension(records []Record) (int, error) {
	vectors := make([][]float32, len(records))
	for i := range records {
		vectors[i] = records[i].vector
	}
	return domain.Dimension(vectors)
}
