package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/pdfqa/internal/ai"
	"github.com/xxxsen/pdfqa/internal/chunker"
	"github.com/xxxsen/pdfqa/internal/config"
	"github.com/xxxsen/pdfqa/internal/db"
	"github.com/xxxsen/pdfqa/internal/embedcache"
	"github.com/xxxsen/pdfqa/internal/filestore"
	"github.com/xxxsen/pdfqa/internal/indexstore"
	"github.com/xxxsen/pdfqa/internal/repo"
	"github.com/xxxsen/pdfqa/internal/service"
	"github.com/xxxsen/pdfqa/internal/tokenizer"
)

type app struct {
	db *sql.DB
	qa *service.QAService
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if !cfg.Database.Configured() {
		return nil, nil
	}
	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return sqlDB, nil
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	sqlDB, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{db: sqlDB}
	qa, err := buildQAService(ctx, cfg, sqlDB)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.qa = qa
	return a, nil
}

func buildQAService(ctx context.Context, cfg *config.Config, sqlDB *sql.DB) (*service.QAService, error) {
	embedder, err := buildEmbedder(cfg, sqlDB)
	if err != nil {
		return nil, err
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		return nil, err
	}
	manager := ai.NewManager(generator, embedder, ai.ManagerConfig{
		Timeout:       cfg.AI.Timeout,
		MaxInputChars: cfg.AI.MaxInputChars,
	})

	tok := tokenizer.New(ctx, cfg.Chunking.Encoding)
	ch, err := chunker.New(tok, chunker.Config{
		ChunkSize: cfg.Chunking.ChunkSize,
		Overlap:   cfg.Chunking.OverlapOrDefault(),
	})
	if err != nil {
		return nil, err
	}

	persister, err := buildPersister(cfg, sqlDB)
	if err != nil {
		return nil, err
	}
	store := indexstore.NewStore(persister, cfg.IndexStore.CacheSize, time.Duration(cfg.IndexStore.CacheTTLMinutes)*time.Minute)

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}
	logutil.GetLogger(ctx).Info("qa service ready",
		zap.String("embedding_model", manager.EmbeddingModelName()),
		zap.String("tokenizer", tok.Name()),
		zap.String("index_store", cfg.IndexStore.Type),
		zap.String("file_store", files.Type()),
	)
	return service.NewQAService(store, files, ch, manager, manager, cfg.Retrieval.TopK), nil
}

func providerName(p config.ProviderConfig) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Provider + "/" + p.Model
}

func providerArgs(p config.ProviderConfig) interface{} {
	if p.Data == nil {
		return map[string]interface{}{}
	}
	return p.Data
}

func buildEmbedder(cfg *config.Config, sqlDB *sql.DB) (ai.IEmbedder, error) {
	entries := make([]ai.EmbedderEntry, 0, len(cfg.AI.Embedders))
	for _, p := range cfg.AI.Embedders {
		provider, err := ai.NewProvider(p.Provider, providerArgs(p))
		if err != nil {
			return nil, fmt.Errorf("init embedder %s: %w", providerName(p), err)
		}
		entries = append(entries, ai.EmbedderEntry{Name: providerName(p), Embedder: ai.NewEmbedder(provider, p.Model)})
	}
	var embedder ai.IEmbedder = ai.NewBatchEmbedder(ai.NewGroupEmbedder(entries), ai.BatchConfig{
		BatchSize:   cfg.Embedding.BatchSize,
		Concurrency: cfg.Embedding.Concurrency,
		MaxRetries:  cfg.Embedding.MaxRetriesOrDefault(),
		BaseBackoff: time.Duration(cfg.Embedding.RetryBaseMs) * time.Millisecond,
	})
	if cfg.Embedding.DBCache && sqlDB != nil {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, repo.NewEmbeddingCacheRepo(sqlDB))
	}
	return embedcache.WrapLruCacheToEmbedder(embedder, cfg.Embedding.CacheSize, time.Duration(cfg.Embedding.CacheTTLMinutes)*time.Minute), nil
}

func buildGenerator(cfg *config.Config) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, len(cfg.AI.Generators))
	for _, p := range cfg.AI.Generators {
		provider, err := ai.NewProvider(p.Provider, providerArgs(p))
		if err != nil {
			return nil, fmt.Errorf("init generator %s: %w", providerName(p), err)
		}
		entries = append(entries, ai.GeneratorEntry{Name: providerName(p), Generator: ai.NewGenerator(provider, p.Model)})
	}
	return ai.NewGroupGenerator(entries), nil
}

func buildPersister(cfg *config.Config, sqlDB *sql.DB) (indexstore.Persister, error) {
	switch cfg.IndexStore.Type {
	case "postgres":
		if sqlDB == nil {
			return nil, fmt.Errorf("postgres index store needs a database")
		}
		return indexstore.NewPostgresPersister(repo.NewChunkVectorRepo(sqlDB)), nil
	default:
		blobs, err := filestore.New(cfg.IndexStore.BlobStore())
		if err != nil {
			return nil, fmt.Errorf("init index store: %w", err)
		}
		return indexstore.NewBlobPersister(blobs), nil
	}
}
