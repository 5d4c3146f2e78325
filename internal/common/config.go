// -----------------------------------------------------------------------
// Configuration - typed TOML configuration for the discovery/ingestion
// pipeline, loaded once at process start.
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root application configuration, loaded from a TOML file
// and overridden by environment variables where noted per field.
type Config struct {
	Environment string `toml:"environment"` // "development" or "production"

	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
	Crawler    CrawlerConfig    `toml:"crawler"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Discovery  DiscoveryConfig  `toml:"discovery"`
	Normalize  NormalizeConfig  `toml:"normalize"`
	LLM        LLMConfig        `toml:"llm"`
	Embeddings EmbeddingsConfig `toml:"embeddings"`
	Render     RenderConfig     `toml:"render"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
}

// ServerConfig controls the admin HTTP surface.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig groups the relational store and the KV/dedup cache.
type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig configures the relational store holding companies, postings,
// queue entries, and run records.
type SQLiteConfig struct {
	Path            string `toml:"path"`
	Environment     string `toml:"-"` // copied from Config.Environment at load time
	ResetOnStartup  bool   `toml:"reset_on_startup"`
	BusyTimeoutMS   int    `toml:"busy_timeout_ms"`
	EnableWAL       bool   `toml:"enable_wal"`
	VectorExtension string `toml:"vector_extension_path"`
}

// BadgerConfig configures the embedded KV store (interfaces.DedupCache)
// that the App opens at startup; the Deduplication Service and the
// Operation Registry keep their state in memory and do not use it.
type BadgerConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig controls the arbor-backed structured logger.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Output     []string `toml:"output"` // "console", "file"
	TimeFormat string   `toml:"time_format"`
}

// CrawlerConfig tunes the crawl engine and fetcher.
type CrawlerConfig struct {
	UserAgent         string        `toml:"user_agent"`
	RequestTimeout    time.Duration `toml:"request_timeout"`
	MaxRedirects      int           `toml:"max_redirects"`
	MaxBatchSize      int           `toml:"max_batch_size"`
	CrawlConcurrency  int           `toml:"crawl_concurrency"`
	EnrichConcurrency int           `toml:"enrich_concurrency"`
}

// RateLimitConfig tunes the per-host rate limiter.
type RateLimitConfig struct {
	DefaultMinDelay   time.Duration            `toml:"default_min_delay"`
	PerHostMinDelay   map[string]time.Duration `toml:"per_host_min_delay"`
	BurstSize         int                      `toml:"burst_size"`
}

// DiscoveryConfig tunes the Discovery Orchestrator and its sources.
type DiscoveryConfig struct {
	USOnly               bool     `toml:"us_only"`
	AdmissionQueueDepth  int      `toml:"admission_queue_depth"`
	GoogleCSEKey         string   `toml:"google_cse_key"`
	GoogleCSECx          string   `toml:"google_cse_cx"`
	GitHubToken          string   `toml:"github_token"`
	GitHubOrgSeeds       []string `toml:"github_org_seeds"`
	YCDirectoryURL       string   `toml:"yc_directory_url"`
	FundingNewsFeedURLs  []string `toml:"funding_news_feed_urls"`
	JobAggregatorSeeds   []string `toml:"job_aggregator_seeds"`
}

// NormalizeConfig selects which normalization tables are active, so
// role/location/skills mappings can be swapped without a rebuild.
type NormalizeConfig struct {
	RoleTablePath     string `toml:"role_table_path"`     // empty: use built-in table
	LocationTablePath string `toml:"location_table_path"` // empty: use built-in table
	FreshnessHalfLife time.Duration `toml:"freshness_half_life"`
}

// LLMConfig configures the Anthropic-backed extractor/discovery fallback.
type LLMConfig struct {
	Provider    string `toml:"provider"` // "claude"
	APIKey      string `toml:"api_key"`
	Model       string `toml:"model"`
	MaxTokens   int    `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// EmbeddingsConfig configures the batch embedding client used to populate
// Job.Embedding for vector search.
type EmbeddingsConfig struct {
	Provider    string `toml:"provider"`     // "ollama" (only supported provider so far)
	ProviderURL string `toml:"provider_url"` // e.g. "http://localhost:11434" for ollama
	Model       string `toml:"model"`
	Dimensions  int    `toml:"dimensions"`
	BatchSize   int    `toml:"batch_size"`
}

// RenderConfig configures the headless-browser JS-rendering path.
type RenderConfig struct {
	Enabled        bool          `toml:"enabled"`
	PoolSize       int           `toml:"pool_size"`
	NavigateTimeout time.Duration `toml:"navigate_timeout"`
}

// PipelineConfig controls the Pipeline Orchestrator's periodic scheduling.
type PipelineConfig struct {
	FullRunInterval time.Duration `toml:"full_run_interval"`
	MaintainCron    string        `toml:"maintain_cron"`
}

// DefaultConfig returns a Config populated with the same defaults the
// process falls back to when no TOML file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Host: "0.0.0.0", Port: 8089},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/atsforge.db",
				BusyTimeoutMS: 5000,
				EnableWAL:     true,
			},
			Badger: BadgerConfig{Dir: "./data/badger"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"console", "file"},
			TimeFormat: "15:04:05.000",
		},
		Crawler: CrawlerConfig{
			UserAgent:         "atsforge/1.0 (+https://example.invalid/bot)",
			RequestTimeout:    20 * time.Second,
			MaxRedirects:      5,
			MaxBatchSize:      50,
			CrawlConcurrency:  4,
			EnrichConcurrency: 8,
		},
		RateLimit: RateLimitConfig{
			DefaultMinDelay: 1 * time.Second,
			BurstSize:       1,
		},
		Discovery: DiscoveryConfig{
			USOnly:              true,
			AdmissionQueueDepth: 500,
		},
		Normalize: NormalizeConfig{
			FreshnessHalfLife: 14 * 24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:    "claude",
			Model:       "claude-3-5-haiku-latest",
			MaxTokens:   2048,
			Temperature: 0,
		},
		Embeddings: EmbeddingsConfig{
			Provider:    "ollama",
			ProviderURL: "http://localhost:11434",
			Model:       "nomic-embed-text",
			Dimensions:  384,
			BatchSize:   32,
		},
		Render: RenderConfig{
			Enabled:         true,
			PoolSize:        2,
			NavigateTimeout: 15 * time.Second,
		},
		Pipeline: PipelineConfig{
			FullRunInterval: 6 * time.Hour,
			MaintainCron:    "0 */6 * * *",
		},
	}
}

// LoadConfig reads and parses a TOML configuration file, filling any unset
// fields from DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			cfg.Storage.SQLite.Environment = cfg.Environment
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	cfg.Storage.SQLite.Environment = cfg.Environment

	return cfg, nil
}

// applyEnvOverrides lets a handful of operationally-sensitive fields be
// overridden without editing the TOML file on disk.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATSFORGE_ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ATSFORGE_GITHUB_TOKEN"); v != "" {
		cfg.Discovery.GitHubToken = v
	}
	if v := os.Getenv("ATSFORGE_GOOGLE_CSE_KEY"); v != "" {
		cfg.Discovery.GoogleCSEKey = v
	}
	if v := os.Getenv("ATSFORGE_GOOGLE_CSE_CX"); v != "" {
		cfg.Discovery.GoogleCSECx = v
	}
	if v := os.Getenv("ATSFORGE_ENV"); v != "" {
		cfg.Environment = v
	}
}
