package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/stayaudit/internal/adapters/cache"
	"github.com/zatekoja/stayaudit/internal/adapters/database"
	"github.com/zatekoja/stayaudit/internal/adapters/events"
	"github.com/zatekoja/stayaudit/internal/adapters/llm"
	"github.com/zatekoja/stayaudit/internal/adapters/search"
	"github.com/zatekoja/stayaudit/internal/adapters/storage"
	"github.com/zatekoja/stayaudit/internal/application/services"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
	"github.com/zatekoja/stayaudit/internal/domain/repositories"
	"github.com/zatekoja/stayaudit/internal/infrastructure/clients/gemini"
	"github.com/zatekoja/stayaudit/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/stayaudit/internal/infrastructure/clients/qdrant"
	redisclient "github.com/zatekoja/stayaudit/internal/infrastructure/clients/redis"
	"github.com/zatekoja/stayaudit/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/stayaudit/internal/infrastructure/embeddings"
	"github.com/zatekoja/stayaudit/internal/infrastructure/observability"
	"github.com/zatekoja/stayaudit/internal/knowledge"
	"github.com/zatekoja/stayaudit/pkg/config"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
	"github.com/zatekoja/stayaudit/pkg/secrets"
)

const memoryCacheSize = 1024

// app holds the wired pipeline of one CLI invocation
type app struct {
	cfg       *config.Config
	kb        *knowledge.KnowledgeBase
	index     providers.VectorIndex
	retriever *services.ContextRetriever
	prompts   *services.DischargePromptBuilder
	discharge *services.DischargeRecommendationService
	batch     *services.BatchService

	redis   *redisclient.Client
	closers []func() error
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment")
	}
	if _, err := secrets.ApplyVaultSecrets(ctx, secrets.VaultConfigFromEnv()); err != nil {
		return nil, fmt.Errorf("load vault secrets: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel)
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		kb:      knowledge.NewDefault(),
		prompts: services.NewDischargePromptBuilder(),
	}

	var metrics *observability.Metrics
	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry, continuing without telemetry")
		} else {
			a.closers = append(a.closers, func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return shutdown(shutdownCtx)
			})
			if metrics, err = observability.InitMetrics(); err != nil {
				log.Warn().Err(err).Msg("Failed to initialize metrics")
			}
		}
	}

	if cfg.Redis.Enabled {
		rc, err := redisclient.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-process cache and no event publishing")
		} else {
			a.redis = rc
			a.closers = append(a.closers, rc.Close)
		}
	}

	var generator providers.TextGenerator
	var embedder providers.Embedder = embeddings.NewHashingEmbedder(cfg.Index.Dimensions)
	gc, err := gemini.NewClient(ctx, &cfg.Gemini, cfg.Index.Dimensions)
	switch {
	case err == nil:
		generator, embedder = gc, gc
	case apperrors.IsType(err, apperrors.ErrorTypeConfigurationAbsent):
		log.Warn().Msg("GEMINI_API_KEY not set, running in offline mode with the canned reply")
	default:
		log.Error().Err(err).Msg("Failed to initialize Gemini, running in offline mode")
	}

	index, err := a.newIndex(ctx, embedder)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.index = index
	a.retriever = services.NewContextRetriever(index, a.kb)
	a.retriever.SetTopK(cfg.Index.TopK)

	analyzer := llm.NewGeminiAnalyzer(generator, a.replyCache(), llm.AnalyzerConfig{
		Timeout:          cfg.Gemini.Timeout,
		MaxRetries:       cfg.Gemini.MaxRetries,
		BreakerThreshold: cfg.Gemini.BreakerThreshold,
		CacheTTL:         time.Duration(cfg.Gemini.CacheTTLSeconds) * time.Second,
	})

	var publisher providers.RecommendationPublisher
	if a.redis != nil {
		publisher = events.NewRedisPublisher(a.redis, cfg.Redis.Channel)
	}

	a.discharge = services.NewDischargeRecommendationService(a.retriever, a.prompts, analyzer, publisher, metrics)
	a.batch = services.NewBatchService(a.kb, a.discharge, metrics)
	return a, nil
}

func (a *app) newIndex(ctx context.Context, embedder providers.Embedder) (providers.VectorIndex, error) {
	switch a.cfg.Index.Backend {
	case config.IndexBackendTypesense:
		tc, err := typesense.NewClient(&a.cfg.Typesense)
		if err != nil {
			return nil, err
		}
		idx, err := search.NewTypesenseIndex(ctx, tc, a.cfg.Index.Collection)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case config.IndexBackendQdrant:
		qc, err := qdrant.NewClient(&a.cfg.Qdrant)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, qc.Close)
		idx, err := search.NewQdrantIndex(ctx, qc, embedder, a.cfg.Index.Collection)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return search.NewMemoryIndex(embedder), nil
	}
}

func (a *app) replyCache() providers.CacheProvider {
	if a.redis != nil {
		return cache.NewRedisAdapter(a.redis)
	}
	return cache.NewMemoryAdapter(memoryCacheSize, time.Duration(a.cfg.Gemini.CacheTTLSeconds)*time.Second)
}

// prepare populates an empty index; the memory backend starts empty on every run
func (a *app) prepare(ctx context.Context) {
	if _, err := a.retriever.IndexKnowledge(ctx); err != nil {
		log.Warn().Err(err).Msg("Knowledge indexing failed, retrieval will use the default context")
	}
}

// stayRepository opens the CRUD database on demand
func (a *app) stayRepository(ctx context.Context) (repositories.StayRepository, error) {
	pg, err := postgres.NewClient(ctx, &a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pg.Close)
	return database.NewStayAdapter(pg), nil
}

func (a *app) reportArchive() (providers.ReportArchive, error) {
	if !a.cfg.Storage.Enabled() {
		return nil, apperrors.NewConfigurationAbsentError("STORAGE_ENDPOINT is not configured")
	}
	return storage.NewMinioArchive(&a.cfg.Storage)
}

func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("Shutdown completed with errors")
	}
}
