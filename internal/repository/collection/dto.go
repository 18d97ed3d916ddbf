package collection

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// collectionToHash converts a domain Collection to a map for HSET.
func collectionToHash(col collection.Collection) map[string]string {
	return map[string]string{
		"name":       col.Name(),
		"vector_dim": strconv.Itoa(col.VectorDim()),
		"created_at": strconv.FormatInt(col.CreatedAt(), 10),
	}
}

// collectionFromHash hydrates a domain Collection from an HGETALL result map.
func collectionFromHash(m map[string]string) (collection.Collection, error) {
	name := m["name"]
	if name == "" {
		return collection.Collection{}, fmt.Errorf("missing name")
	}
	dim, err := strconv.Atoi(m["vector_dim"])
	if err != nil || dim <= 0 {
		return collection.Collection{}, fmt.Errorf("invalid vector_dim %q", m["vector_dim"])
	}
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid created_at: %w", err)
	}
	return collection.Reconstruct(name, dim, createdAt), nil
}

// recordToHash converts a record to its stored hash, vector included.
func recordToHash(rec record.Record) map[string]string {
	p := rec.Payload()
	m := map[string]string{
		fieldContent:   p.Text,
		fieldSource:    p.Source,
		fieldSeq:       strconv.Itoa(p.Sequence),
		fieldPage:      strconv.Itoa(p.Page),
		fieldEmbedding: db.EncodeVector(rec.Vector()),
	}
	if p.HasTime {
		m[fieldHasTime] = "1"
		m[fieldStartMS] = strconv.FormatInt(p.StartMS, 10)
		m[fieldEndMS] = strconv.FormatInt(p.EndMS, 10)
	}
	return m
}

// hitFromEntry hydrates a search entry. Malformed numbers read as zero.
func hitFromEntry(e db.SearchEntry) retrieval.Hit {
	f := e.Fields
	p := record.Payload{
		Text:     f[fieldContent],
		Source:   f[fieldSource],
		Sequence: atoi(f[fieldSeq]),
		Page:     atoi(f[fieldPage]),
		HasTime:  f[fieldHasTime] == "1",
	}
	if p.HasTime {
		p.StartMS, _ = strconv.ParseInt(f[fieldStartMS], 10, 64)
		p.EndMS, _ = strconv.ParseInt(f[fieldEndMS], 10, 64)
	}
	return retrieval.Hit{Chunk: p.Chunk(), Score: e.Score}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
