package qdrant

import (
	"context"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/kailas-cloud/vecrag/internal/domain/document"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
)

type mockCollections struct {
	createFn func(ctx context.Context, in *pb.CreateCollection) (*pb.CollectionOperationResponse, error)
	getFn    func(ctx context.Context, in *pb.GetCollectionInfoRequest) (*pb.GetCollectionInfoResponse, error)
	listFn   func(ctx context.Context, in *pb.ListCollectionsRequest) (*pb.ListCollectionsResponse, error)
	deleteFn func(ctx context.Context, in *pb.DeleteCollection) (*pb.CollectionOperationResponse, error)
	existsFn func(ctx context.Context, in *pb.CollectionExistsRequest) (*pb.CollectionExistsResponse, error)
}

func (m *mockCollections) Create(ctx context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (m *mockCollections) Get(ctx context.Context, in *pb.GetCollectionInfoRequest, _ ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, in)
	}
	return infoWithSize(3), nil
}

func (m *mockCollections) List(ctx context.Context, in *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx, in)
	}
	return &pb.ListCollectionsResponse{}, nil
}

func (m *mockCollections) Delete(ctx context.Context, in *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, in)
	}
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (m *mockCollections) CollectionExists(ctx context.Context, in *pb.CollectionExistsRequest, _ ...grpc.CallOption) (*pb.CollectionExistsResponse, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, in)
	}
	return &pb.CollectionExistsResponse{Result: &pb.CollectionExists{Exists: false}}, nil
}

type mockPoints struct {
	upsertFn func(ctx context.Context, in *pb.UpsertPoints) (*pb.PointsOperationResponse, error)
	searchFn func(ctx context.Context, in *pb.SearchPoints) (*pb.SearchResponse, error)
}

func (m *mockPoints) Upsert(ctx context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, in)
	}
	return &pb.PointsOperationResponse{}, nil
}

func (m *mockPoints) Search(ctx context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, in)
	}
	return &pb.SearchResponse{}, nil
}

type mockHealth struct {
	err error
}

func (m *mockHealth) HealthCheck(_ context.Context, _ *pb.HealthCheckRequest, _ ...grpc.CallOption) (*pb.HealthCheckReply, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &pb.HealthCheckReply{Title: "qdrant", Version: "1.16.0"}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockCollections, *mockPoints) {
	t.Helper()
	mc, mp := &mockCollections{}, &mockPoints{}
	return newRepo(mc, mp, &mockHealth{}, ""), mc, mp
}

func infoWithSize(size uint64) *pb.GetCollectionInfoResponse {
	return &pb.GetCollectionInfoResponse{Result: &pb.CollectionInfo{
		Config: &pb.CollectionConfig{
			Params: &pb.CollectionParams{
				VectorsConfig: &pb.VectorsConfig{
					Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{Size: size, Distance: pb.Distance_Cosine}},
				},
			},
		},
	}}
}

func testRecord(t *testing.T, id, text string, vec ...float32) record.Record {
	t.Helper()
	doc, err := document.New(text, "zoo.txt")
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	r, err := record.New(id, vec, doc.Slice(0, len([]rune(text)), 0, 0))
	if err != nil {
		t.Fatalf("record.New: %v", err)
	}
	return r
}
