package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/health-journal/internal/bootstrap"
	"github.com/yanqian/health-journal/internal/domain/journal"
	"github.com/yanqian/health-journal/internal/domain/judge"
	"github.com/yanqian/health-journal/internal/domain/merge"
	"github.com/yanqian/health-journal/internal/infra/blobstore"
	"github.com/yanqian/health-journal/internal/infra/config"
	"github.com/yanqian/health-journal/internal/infra/llm/chatgpt"
	"github.com/yanqian/health-journal/internal/infra/logrepo"
)

func provideJournalConfig(cfg *config.Config) journal.Config {
	return journal.Config{
		ExtractModel:      cfg.LLM.Model,
		ExtractPrompt:     cfg.Extraction.Prompt,
		Temperature:       cfg.LLM.Temperature,
		ExtractTimeout:    cfg.Extraction.Timeout,
		TranscribeModel:   cfg.LLM.TranscriptionModel,
		TranscribeLang:    cfg.LLM.TranscriptionLang,
		TranscribeTimeout: cfg.Extraction.TranscribeTimeout,
		MaxAudioBytes:     cfg.Extraction.MaxAudioBytes,
		AudioPrefix:       cfg.Storage.Objects.Prefix,
	}
}

func provideLogRepository(cfg *config.Config, logger *slog.Logger) journal.Repository {
	fallback := logrepo.NewMemoryRepository()
	pg := cfg.Storage.Postgres
	dsn := strings.TrimSpace(pg.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if pg.MaxConns > 0 {
		poolConfig.MaxConns = pg.MaxConns
	}
	if pg.MinConns > 0 {
		poolConfig.MinConns = pg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := logrepo.NewPostgresRepository(pool)
	if pg.AutoMigrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Error("postgres schema migration failed, using memory repository", "error", err)
			pool.Close()
			return fallback
		}
	}
	logger.Info("postgres log repository enabled")
	return repo
}

func provideBlobStore(cfg *config.Config, logger *slog.Logger) journal.BlobStore {
	objects := cfg.Storage.Objects
	if strings.TrimSpace(objects.Endpoint) == "" {
		logger.Info("object storage endpoint not set, keeping audio in memory")
		return blobstore.NewMemoryStorage("")
	}
	store, err := blobstore.NewR2Storage(blobstore.R2Config{
		Endpoint:      objects.Endpoint,
		AccessKey:     objects.AccessKey,
		SecretKey:     objects.SecretKey,
		Bucket:        objects.Bucket,
		Region:        objects.Region,
		PublicBaseURL: objects.PublicBaseURL,
		PresignTTL:    objects.PresignTTL,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize object storage, keeping audio in memory", "error", err)
		return blobstore.NewMemoryStorage("")
	}
	logger.Info("object storage enabled", "bucket", objects.Bucket)
	return store
}

func provideJournalService(
	cfg journal.Config,
	interps bootstrap.Interpreters,
	engine *merge.Engine,
	judgeSvc judge.Service,
	repo journal.Repository,
	blobs journal.BlobStore,
	client *chatgpt.Client,
	logger *slog.Logger,
) journal.Service {
	var chat journal.ChatClient
	if client != nil {
		chat = client
	}
	return journal.NewService(cfg, interps.Active, interps.Rules, engine, judgeSvc, repo, blobs, chat, logger)
}
