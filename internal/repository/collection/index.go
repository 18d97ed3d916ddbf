package collection

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/kailas-cloud/vecrag/internal/db"
)

// Stored record hash fields.
const (
	fieldContent   = "content"
	fieldSource    = "source"
	fieldSeq       = "seq"
	fieldPage      = "page"
	fieldHasTime   = "has_time"
	fieldStartMS   = "start_ms"
	fieldEndMS     = "end_ms"
	fieldEmbedding = "embedding"

	vectorAlias = "vector"
)

var returnFields = []string{
	fieldContent, fieldSource, fieldSeq, fieldPage, fieldHasTime, fieldStartMS, fieldEndMS,
}

// indexSlug keeps readable names as-is and hashes the rest
// (spaces and non-ASCII letters are not valid index identifiers).
func indexSlug(name string) string {
	if db.IsValidIdentifier(name) {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	return "h:" + hex.EncodeToString(sum[:])[:16]
}

// buildIndex creates the FT index definition over a collection's records.
func (r *Repo) buildIndex(name string, vectorDim int) (*db.IndexDefinition, error) {
	b := db.NewIndex(r.indexName(name)).
		Prefix(r.recordPrefix(name)).
		Tag(fieldSource).
		Numeric(fieldSeq)

	opts := db.VectorOptions{Dim: vectorDim, Distance: db.DistanceCosine}
	switch r.index.Algorithm {
	case AlgorithmHNSW:
		opts.Algorithm, opts.M, opts.EFConstruct = db.VectorHNSW, r.index.M, r.index.EFConstruct
	case AlgorithmFlat:
		opts.Algorithm = db.VectorFlat
	default:
		return nil, fmt.Errorf("unknown index algorithm %q", r.index.Algorithm)
	}
	return b.Vector(fieldEmbedding, vectorAlias, opts).Build()
}
