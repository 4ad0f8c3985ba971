package main

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/config"
	dbRedis "github.com/kailas-cloud/taarya/internal/db/redis"
	"github.com/kailas-cloud/taarya/internal/db/sqldb"
	"github.com/kailas-cloud/taarya/internal/domain"
	logpkg "github.com/kailas-cloud/taarya/internal/logger"
	"github.com/kailas-cloud/taarya/internal/metrics"
	catrepo "github.com/kailas-cloud/taarya/internal/repository/catalog"
	"github.com/kailas-cloud/taarya/internal/repository/embcache"
	graphrepo "github.com/kailas-cloud/taarya/internal/repository/graph"
	simrepo "github.com/kailas-cloud/taarya/internal/repository/similarity"
	"github.com/kailas-cloud/taarya/internal/transport/hashembed"
	openaiTransport "github.com/kailas-cloud/taarya/internal/transport/openai"
	cataloguc "github.com/kailas-cloud/taarya/internal/usecase/catalog"
	embeddinguc "github.com/kailas-cloud/taarya/internal/usecase/embedding"
	graphuc "github.com/kailas-cloud/taarya/internal/usecase/graph"
	healthuc "github.com/kailas-cloud/taarya/internal/usecase/health"
	"github.com/kailas-cloud/taarya/internal/usecase/reasoner"
	routeruc "github.com/kailas-cloud/taarya/internal/usecase/router"
	similarityuc "github.com/kailas-cloud/taarya/internal/usecase/similarity"
)

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	catalog    *cataloguc.Service
	similarity *similarityuc.Service
	graph      *graphuc.Service
	router     *routeruc.Service
	asker      *reasoner.Asker
	health     *healthuc.Service

	closers []func()
}

// newApp loads the configuration for env, connects every store and wires the services.
func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	// Register metrics explicitly (no init())
	metrics.Register()

	a := &app{env: env, cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases stores in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	a.health = healthuc.New()

	// Catalog store
	catDriver, err := sqldb.ParseDriver(cfg.Catalog.Driver)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	catDB, err := a.openSQL(ctx, catDriver, cfg.Catalog.DSN)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	a.health.WithProbe(domain.BackendCatalog, healthuc.PingProbe(catDB))
	a.catalog = cataloguc.New(catrepo.New(catDB).WithTable(cfg.Catalog.Table).WithQ3C(cfg.Catalog.Q3C))
	a.logger.Info("Connected to catalog store", zap.String("driver", string(catDriver)))

	// Redis backs the vector index and the embedding cache
	var store *dbRedis.Store
	if cfg.Similarity.Driver == "redis" {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Similarity.Addrs,
			Password: cfg.Similarity.Password,
		})
		if err != nil {
			return fmt.Errorf("similarity: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		readiness := time.Duration(cfg.Similarity.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			return fmt.Errorf("similarity store not ready: %w", err)
		}
		a.health.WithProbe(domain.BackendSimilarity, healthuc.PingProbe(store))
		a.logger.Info("Connected to similarity store", zap.Strings("addrs", cfg.Similarity.Addrs))
	}

	embedder := buildEmbedder(cfg.Embedding, cfg.Similarity.KeyPrefix, store, a.logger)
	a.health.WithProbe("embedding", healthuc.EmbeddingProbe(newEmbeddingHealthChecker(embedder)))
	a.logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	var simRepo similarityuc.Repository
	if store != nil {
		simRepo = simrepo.NewRedis(store).
			WithKeyPrefix(cfg.Similarity.KeyPrefix).
			WithHNSW(simrepo.HNSWConfig{M: cfg.Similarity.HNSWM, EFConstruct: cfg.Similarity.HNSWEFConstruct})
	} else {
		simRepo = simrepo.NewMemory()
	}
	a.similarity = similarityuc.New(simRepo, embedder).WithConfig(domain.SimilarityConfig{
		Collection: cfg.Similarity.Collection,
		Dimension:  cfg.Similarity.Dimension,
		BatchSize:  cfg.Similarity.BatchSize,
	})

	// Graph store
	graphRepo, err := a.openGraph(ctx, catDriver, catDB)
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	a.graph = graphuc.New(graphRepo)

	a.router = routeruc.New(a.catalog, a.similarity, a.graph).
		WithTimeout(time.Duration(cfg.Router.BackendTimeoutMS) * time.Millisecond).
		WithLogger(a.logger)

	a.asker = buildAsker(cfg.Reasoner, a.router, a.logger)
	return nil
}

func (a *app) openSQL(ctx context.Context, driver sqldb.Driver, dsn string) (*sqldb.DB, error) {
	d, err := sqldb.Open(driver, dsn)
	if err != nil {
		return nil, err //nolint:wrapcheck // caller adds the store name
	}
	a.closers = append(a.closers, func() { _ = d.Close() })

	readiness := time.Duration(a.cfg.Catalog.ReadinessTimeout) * time.Second
	if err := d.WaitForReady(ctx, readiness); err != nil {
		return nil, fmt.Errorf("not ready: %w", err)
	}
	return d, nil
}

// openGraph connects the configured graph store. A SQL graph on the catalog's
// own database shares its pool.
func (a *app) openGraph(ctx context.Context, catDriver sqldb.Driver, catDB *sqldb.DB) (graphuc.Repository, error) {
	cfg := a.cfg.Graph
	if cfg.Driver == "neo4j" {
		driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
		if err != nil {
			return nil, fmt.Errorf("create neo4j driver: %w", err)
		}
		a.closers = append(a.closers, func() { _ = driver.Close(context.Background()) })
		if err := driver.VerifyConnectivity(ctx); err != nil {
			return nil, fmt.Errorf("neo4j not ready: %w", err)
		}
		a.health.WithProbe(domain.BackendGraph, healthuc.PingProbe(neo4jPinger{driver: driver}))
		a.logger.Info("Connected to graph store", zap.String("driver", "neo4j"), zap.String("uri", cfg.URI))
		return graphrepo.NewNeo4j(driver, cfg.Database).WithLogger(a.logger), nil
	}

	driver, err := sqldb.ParseDriver(cfg.Driver)
	if err != nil {
		return nil, err //nolint:wrapcheck // caller adds the store name
	}
	graphDB := catDB
	if driver != catDriver || cfg.DSN != a.cfg.Catalog.DSN {
		if graphDB, err = a.openSQL(ctx, driver, cfg.DSN); err != nil {
			return nil, err
		}
	}
	a.health.WithProbe(domain.BackendGraph, healthuc.PingProbe(graphDB))
	a.logger.Info("Connected to graph store", zap.String("driver", string(driver)))
	return graphrepo.NewSQL(graphDB).WithLogger(a.logger), nil
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented.
func buildEmbedder(cfg config.EmbeddingConfig, keyPrefix string, store *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	var (
		base  domain.Embedder
		model = cfg.Model
	)
	switch cfg.Provider {
	case "openai":
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	default:
		base = hashembed.New(cfg.Dimensions)
		model = "hash"
	}

	embedder := base
	if cfg.Cache.Enabled && store != nil {
		embedder = embcache.New(base, store, keyPrefix, model, metrics.EmbeddingCacheTotal, logger).
			WithTTL(time.Duration(cfg.Cache.TTLSec) * time.Second).
			WithDimension(cfg.Dimensions)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, model, cfg.Dimensions, logger).
		WithMaxBatch(cfg.MaxBatch)
}

// buildAsker wires the rule-based fallback and, when enabled, the generative reasoner in front of it.
func buildAsker(cfg config.ReasonerConfig, router reasoner.Router, logger *zap.Logger) *reasoner.Asker {
	tools := reasoner.NewToolbox(router)

	// Pass a nil interface (not a typed nil pointer) when the generative reasoner is off.
	var generative reasoner.Reasoner
	if cfg.Enabled {
		chat := openaiTransport.NewChat(&openaiTransport.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Logger:  logger,
		})
		generative = reasoner.NewGenerative(chat, tools).
			WithMaxIterations(cfg.MaxIterations).
			WithTimeout(time.Duration(cfg.TimeoutSec) * time.Second).
			WithLogger(logger)
	}

	return reasoner.NewAsker(generative, reasoner.NewRuleBased(tools)).WithLogger(logger)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

type neo4jPinger struct {
	driver neo4j.DriverWithContext
}

func (p neo4jPinger) Ping(ctx context.Context) error {
	if err := p.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return nil
}
