package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/ats"
	"github.com/ternarybob/atsforge/internal/common"
	"github.com/ternarybob/atsforge/internal/crawl"
	"github.com/ternarybob/atsforge/internal/discovery"
	"github.com/ternarybob/atsforge/internal/discovery/sources"
	"github.com/ternarybob/atsforge/internal/embeddings"
	"github.com/ternarybob/atsforge/internal/enrich"
	"github.com/ternarybob/atsforge/internal/extract"
	"github.com/ternarybob/atsforge/internal/httpclient"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/llmclient"
	"github.com/ternarybob/atsforge/internal/maintain"
	"github.com/ternarybob/atsforge/internal/normalize"
	"github.com/ternarybob/atsforge/internal/pipeline"
	"github.com/ternarybob/atsforge/internal/ratelimit"
	"github.com/ternarybob/atsforge/internal/render"
	"github.com/ternarybob/atsforge/internal/storage/badger"
	"github.com/ternarybob/atsforge/internal/storage/sqlite"
)

// App holds the process-wide dependencies shared by the admin server and
// the CLI subcommands: configuration, logging, storage, and the
// Discovery/Pipeline orchestrators.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	StorageManager interfaces.StorageManager
	DedupCache     interfaces.DedupCache

	Registry         interfaces.OperationRegistry
	Dedup            interfaces.DedupService
	DiscoveryRunner  *discovery.Orchestrator
	Pipeline         *pipeline.Orchestrator
	DiscoverySources []interfaces.DiscoverySource

	CrawlEngine    *crawl.Engine
	EnrichRunner   *enrich.Runner
	MaintainEngine *maintain.Engine
	RenderPool     *render.Pool
}

// New initializes storage, the Discovery/Pipeline orchestrators, and
// returns an App ready to drive the Discovery -> Crawl -> Enrich ->
// Embed pipeline.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := a.initStorage(); err != nil {
		cancel()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.DefaultMinDelay, cfg.RateLimit.PerHostMinDelay, cfg.RateLimit.BurstSize, logger)
	fetcher := httpclient.New(cfg.Crawler.UserAgent, cfg.Crawler.RequestTimeout, limiter, logger)

	var llmClient interfaces.LLMClient
	if cfg.LLM.APIKey != "" {
		client, err := llmclient.New(cfg.LLM, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("creating LLM client: %w", err)
		}
		llmClient = client
	}

	atsRegistry := ats.NewRegistry()
	careersFinder := ats.NewCareersURLFinder(fetcher, logger)
	detector := ats.NewDetector(atsRegistry, fetcher, logger)

	a.Registry = discovery.NewOperationRegistry()
	a.Dedup = discovery.NewDedup(a.StorageManager)
	a.DiscoveryRunner = discovery.NewOrchestrator(a.StorageManager, a.Dedup, logger, cfg.Discovery.USOnly, careersFinder, detector, fetcher)
	a.DiscoverySources = a.buildDiscoverySources()

	genericExtractor := extract.NewGenericExtractor(llmClient, logger)
	extractorRegistry := crawl.NewExtractorRegistry(genericExtractor,
		extract.NewGreenhouseExtractor(fetcher, logger),
		extract.NewLeverExtractor(fetcher, logger),
		extract.NewAshbyExtractor(fetcher, logger),
		extract.NewWorkableExtractor(fetcher, logger),
	)

	normalizer := normalize.New(cfg.Normalize.FreshnessHalfLife)

	var renderer interfaces.Renderer
	if cfg.Render.Enabled {
		pool := render.NewPool(render.Config{
			PoolSize:        cfg.Render.PoolSize,
			UserAgent:       cfg.Crawler.UserAgent,
			NavigateTimeout: cfg.Render.NavigateTimeout,
		}, logger)
		if err := pool.Start(); err != nil {
			logger.Warn().Err(err).Msg("render pool failed to start, JS-rendering fallback disabled")
		} else {
			a.RenderPool = pool
			renderer = pool
		}
	}

	crawlEngine := crawl.NewEngine(a.StorageManager, atsRegistry, detector, extractorRegistry, fetcher, normalizer, renderer, logger)

	enrichRegistry := enrich.NewRegistry(fetcher, logger)
	enrichRunner := enrich.NewRunner(a.StorageManager.Jobs(), a.StorageManager.Companies(), enrichRegistry, normalizer, cfg.Crawler.MaxBatchSize, cfg.Crawler.EnrichConcurrency, logger)

	maintainEngine := maintain.NewEngine(a.StorageManager, atsRegistry, extractorRegistry, fetcher, normalizer, renderer, logger)

	var embedRunner pipeline.EmbeddingRunner
	if cfg.Embeddings.Provider == "ollama" {
		client := embeddings.NewOllamaClient(cfg.Embeddings.ProviderURL, cfg.Embeddings.Model, cfg.Embeddings.Dimensions)
		embedRunner = embeddings.NewRunner(a.StorageManager.Jobs(), client, cfg.Embeddings.BatchSize, logger)
	}
	a.Pipeline = pipeline.NewOrchestrator(a.StorageManager, a.Registry, a.DiscoveryRunner, crawlEngine, enrichRunner, maintainEngine, embedRunner, logger)
	a.CrawlEngine = crawlEngine
	a.EnrichRunner = enrichRunner
	a.MaintainEngine = maintainEngine

	logger.Info().
		Str("environment", cfg.Environment).
		Str("storage_path", cfg.Storage.SQLite.Path).
		Int("discovery_sources", len(a.DiscoverySources)).
		Msg("application initialized")

	return a, nil
}

func (a *App) initStorage() error {
	a.Config.Storage.SQLite.Environment = a.Config.Environment

	mgr, err := sqlite.NewManager(a.Logger, &a.Config.Storage.SQLite)
	if err != nil {
		return fmt.Errorf("creating sqlite storage manager: %w", err)
	}
	a.StorageManager = mgr

	cache, err := badger.New(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("creating badger dedup cache: %w", err)
	}
	a.DedupCache = cache

	return nil
}

// buildDiscoverySources constructs the configured, optional Discovery
// Sources. A Source whose required configuration is absent (e.g. no
// feed URLs) is simply omitted rather than erroring.
func (a *App) buildDiscoverySources() []interfaces.DiscoverySource {
	var out []interfaces.DiscoverySource

	if len(a.Config.Discovery.GitHubOrgSeeds) > 0 || a.Config.Discovery.GitHubToken != "" {
		out = append(out, sources.NewGitHubOrgs(a.Config.Discovery.GitHubToken, a.Config.Discovery.GitHubOrgSeeds))
	}
	if len(a.Config.Discovery.FundingNewsFeedURLs) > 0 {
		out = append(out, sources.NewFundingNews(a.Config.Discovery.FundingNewsFeedURLs))
	}
	return out
}

// Context returns the application-lifetime context, cancelled by Close.
func (a *App) Context() context.Context {
	return a.ctx
}

// Close releases every resource opened by New, in reverse dependency order.
func (a *App) Close() error {
	a.cancelCtx()

	if a.RenderPool != nil {
		a.RenderPool.Stop()
	}
	if a.DedupCache != nil {
		if err := a.DedupCache.Close(); err != nil {
			return fmt.Errorf("closing dedup cache: %w", err)
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("closing storage: %w", err)
		}
		a.Logger.Info().Msg("storage closed")
	}
	return nil
}
