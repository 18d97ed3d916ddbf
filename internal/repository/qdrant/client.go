// Package qdrant stores collections and records in Qdrant over gRPC.
// Each domain collection maps to one Qdrant collection; records are points
// keyed by their UUID with the chunk as payload.
package qdrant

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Config Qdrant connection parameters.
type Config struct {
	Addr   string // host:port of the gRPC API (6334 by default)
	APIKey string
	UseTLS bool
	// Prefix namespaces collection names; List ignores collections without it.
	Prefix string
}

// DefaultPrefix is used when Config.Prefix is empty.
const DefaultPrefix = "vecrag_"

// collectionsAPI is the subset of pb.CollectionsClient the repo needs.
type collectionsAPI interface {
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	CollectionExists(ctx context.Context, in *pb.CollectionExistsRequest, opts ...grpc.CallOption) (*pb.CollectionExistsResponse, error)
}

// pointsAPI is the subset of pb.PointsClient the repo needs.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

type healthAPI interface {
	HealthCheck(ctx context.Context, in *pb.HealthCheckRequest, opts ...grpc.CallOption) (*pb.HealthCheckReply, error)
}

// Dial opens a gRPC connection and returns a repository over it.
// The returned close func releases the connection.
func Dial(cfg Config) (*Repo, func() error, error) {
	if cfg.Addr == "" {
		return nil, nil, errors.New("qdrant addr is required")
	}

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("qdrant connect %s: %w", cfg.Addr, err)
	}

	repo := newRepo(pb.NewCollectionsClient(conn), pb.NewPointsClient(conn), pb.NewQdrantClient(conn), cfg.Prefix)
	return repo, conn.Close, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption,
	) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
