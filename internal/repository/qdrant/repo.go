package qdrant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// Repo implements usecase/collection.Repository on Qdrant.
// Qdrant does not keep creation time, so collections report CreatedAt 0.
type Repo struct {
	collections collectionsAPI
	points      pointsAPI
	health      healthAPI
	prefix      string
}

func newRepo(c collectionsAPI, p pointsAPI, h healthAPI, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Repo{collections: c, points: p, health: h, prefix: prefix}
}

// Ping calls the Qdrant health endpoint.
func (r *Repo) Ping(ctx context.Context) error {
	if r.health == nil {
		return nil
	}
	_, err := r.health.HealthCheck(ctx, &pb.HealthCheckRequest{})
	return mapErr("health check", err)
}

// Create creates a cosine-distance collection sized to the collection's dimension.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	name := r.qname(col.Name())

	exists, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: name})
	if err != nil {
		return mapErr("collection exists", err)
	}
	if exists.GetResult().GetExists() {
		return domain.ErrAlreadyExists
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(col.VectorDim()),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	return mapErr("create collection "+col.Name(), err)
}

// Get reads the collection's vector size.
func (r *Repo) Get(ctx context.Context, name string) (domcol.Collection, error) {
	resp, err := r.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: r.qname(name)})
	if err != nil {
		return domcol.Collection{}, mapErr("get collection "+name, err)
	}
	size := resp.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size == 0 {
		return domcol.Collection{}, fmt.Errorf("collection %s: unnamed dense vector config expected", name)
	}
	return domcol.Reconstruct(name, int(size), 0), nil
}

// List returns every prefixed collection. Vector sizes are fetched per collection.
func (r *Repo) List(ctx context.Context) ([]domcol.Collection, error) {
	resp, err := r.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, mapErr("list collections", err)
	}

	out := make([]domcol.Collection, 0, len(resp.GetCollections()))
	for _, d := range resp.GetCollections() {
		name, ok := strings.CutPrefix(d.GetName(), r.prefix)
		if !ok || domcol.ValidateName(name) != nil {
			continue
		}
		col, err := r.Get(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			continue // deleted meanwhile
		}
		if err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, nil
}

// Delete drops the collection with all its points.
func (r *Repo) Delete(ctx context.Context, name string) error {
	resp, err := r.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: r.qname(name)})
	if err != nil {
		return mapErr("delete collection "+name, err)
	}
	// Qdrant answers false for a missing collection
	if !resp.GetResult() {
		return domain.ErrNotFound
	}
	return nil
}

// Upsert writes all records in a single request and waits for it to apply.
func (r *Repo) Upsert(ctx context.Context, col domcol.Collection, records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(records))
	for i, rec := range records {
		if err := col.Accepts(len(rec.Vector())); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID(), err)
		}
		points[i] = toPoint(rec)
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.qname(col.Name()),
		Wait:           &wait,
		Points:         points,
	})
	return mapErr(fmt.Sprintf("upsert %d points", len(points)), err)
}

// Search returns up to k nearest points by cosine similarity.
func (r *Repo) Search(ctx context.Context, col domcol.Collection, vector []float32, k int) ([]retrieval.Hit, error) {
	if err := col.Accepts(len(vector)); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []retrieval.Hit{}, nil
	}

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.qname(col.Name()),
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, mapErr("search", err)
	}

	hits := make([]retrieval.Hit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		hits = append(hits, retrieval.Hit{
			Chunk: fromPayload(p.GetPayload()).Chunk(),
			Score: float64(p.GetScore()),
		})
	}
	return retrieval.Rank(hits, k), nil
}

func (r *Repo) qname(name string) string {
	return r.prefix + name
}

// mapErr translates gRPC status codes into domain errors.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(status.Convert(err).Message()), "already exists") {
			return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
