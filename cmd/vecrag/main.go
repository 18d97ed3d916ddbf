package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/chunker"
	"github.com/kailas-cloud/vecrag/internal/config"
	"github.com/kailas-cloud/vecrag/internal/db"
	dbRedis "github.com/kailas-cloud/vecrag/internal/db/redis"
	"github.com/kailas-cloud/vecrag/internal/domain"
	logpkg "github.com/kailas-cloud/vecrag/internal/logger"
	"github.com/kailas-cloud/vecrag/internal/metrics"
	"github.com/kailas-cloud/vecrag/internal/normalizer"
	collectionrepo "github.com/kailas-cloud/vecrag/internal/repository/collection"
	"github.com/kailas-cloud/vecrag/internal/repository/embcache"
	"github.com/kailas-cloud/vecrag/internal/repository/memory"
	qdrantrepo "github.com/kailas-cloud/vecrag/internal/repository/qdrant"
	chiTransport "github.com/kailas-cloud/vecrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/vecrag/internal/transport/openai"
	chatuc "github.com/kailas-cloud/vecrag/internal/usecase/chat"
	collectionuc "github.com/kailas-cloud/vecrag/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/vecrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/vecrag/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/vecrag/internal/usecase/retrieve"
	"github.com/kailas-cloud/vecrag/internal/version"
)

func main() {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecrag API server",
		zap.String("version", version.Short()),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx := context.Background()
	store, err := openVectorStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open vector store", zap.Error(err))
	}
	defer store.close()

	embedder := buildEmbedder(cfg, store.kv, logger)
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:   cfg.Generation.APIKey,
			BaseURL:  cfg.Generation.BaseURL,
			Model:    cfg.Generation.Model,
			Provider: cfg.Generation.Provider,
			Logger:   logger,
		},
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})
	logger.Info("Providers configured",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("embedding_cache", store.kv != nil && cfg.Embedding.Cache.Enabled),
		zap.String("generation_model", cfg.Generation.Model),
	)

	ch, err := chunker.New(chunker.WithMaxSize(cfg.Chunking.MaxSize), chunker.WithOverlap(cfg.Chunking.Overlap))
	if err != nil {
		logger.Fatal("Invalid chunking settings", zap.Error(err))
	}
	norm := normalizer.New(logger,
		normalizer.WithFetchTimeout(time.Duration(cfg.Upload.URLFetchTimeoutSec)*time.Second),
		normalizer.WithMaxPageBytes(cfg.Upload.MaxPageBytes),
		normalizer.WithPrivateNetworks(cfg.Upload.AllowPrivateURLs),
	)

	// Use cases
	manager := collectionuc.NewManager(store.repo, logger)
	ingestSvc := ingestuc.New(norm, ch, embedder, manager, metrics.IngestChunksTotal, logger)
	retrieveSvc := retrieveuc.New(manager, embedder, cfg.Retrieval.MaxK, logger).
		WithDefaultK(cfg.Retrieval.DefaultK)
	synth := chatuc.NewSynthesizer(generator, time.Duration(cfg.Generation.TimeoutSec)*time.Second, logger)
	chatSvc := chatuc.New(retrieveSvc, synth)
	healthSvc := healthuc.New(store.repo, embedder, generator)

	server := chiTransport.NewServer(ingestSvc, chatSvc, manager, healthSvc, chiTransport.Limits{
		MaxPDFBytes:  cfg.Upload.MaxPDFBytes,
		MaxVTTBytes:  cfg.Upload.MaxVTTBytes,
		MaxVTTFiles:  cfg.Upload.MaxVTTFiles,
		MaxJSONBytes: cfg.Upload.MaxJSONBytes,
	}, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(jsonRecoverer(logger))
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.APIKeyAuth(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: server.HandleParamError,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// repository is a collection store that can be pinged.
type repository interface {
	collectionuc.Repository
	Ping(ctx context.Context) error
}

// vectorStore bundles the selected backend.
type vectorStore struct {
	repo repository
	// kv backs the embedding cache; nil for drivers without a key-value side.
	kv    db.KVStore
	close func()
}

// openVectorStore connects the configured driver.
func openVectorStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*vectorStore, error) {
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
			Valkey:   cfg.Driver == config.DriverValkey,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Addrs))

		repo := collectionrepo.New(store, cfg.KeyPrefix).WithIndex(collectionrepo.IndexConfig{
			Algorithm:   cfg.Index.Algorithm,
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
		return &vectorStore{repo: repo, kv: store, close: store.Close}, nil

	case config.DriverQdrant:
		repo, closeConn, err := qdrantrepo.Dial(qdrantrepo.Config{
			Addr:   cfg.Qdrant.Addr,
			APIKey: cfg.Qdrant.APIKey,
			UseTLS: cfg.Qdrant.UseTLS,
			Prefix: cfg.Qdrant.Prefix,
		})
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			// qdrant may still be starting; /health reports it
			logger.Warn("Qdrant not reachable yet", zap.String("addr", cfg.Qdrant.Addr), zap.Error(err))
		} else {
			logger.Info("Connected to qdrant", zap.String("addr", cfg.Qdrant.Addr))
		}
		return &vectorStore{repo: repo, close: func() {
			if err := closeConn(); err != nil {
				logger.Warn("Close qdrant connection", zap.Error(err))
			}
		}}, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory vector store, data is lost on restart")
		return &vectorStore{repo: memory.New(), close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(cfg config.Config, kv db.KVStore, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	ec := cfg.Embedding

	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if kv != nil && ec.Cache.Enabled {
		embedder = embcache.New(base, kv, embcache.Options{
			Prefix: cfg.Database.KeyPrefix + "emb_cache:",
			Model:  fmt.Sprintf("%s/%d", ec.Model, ec.Dimensions),
			TTL:    time.Duration(ec.Cache.TTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (timeouts, sub-batching, logging)
	return embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, embeddinguc.Options{
		MaxBatchSize: ec.BatchSize,
		Timeout:      time.Duration(ec.TimeoutSec) * time.Second,
	}, logger)
}
