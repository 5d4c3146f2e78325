// Package pipeline implements the Pipeline Orchestrator: run_full_pipeline
// (Discovery -> Crawl -> Enrich -> Embed, sequential, under the
// "full_pipeline" operation key) and run_<stage>_standalone entry
// points, plus the periodic scheduler that drives them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// Operation Registry keys, per the keying rules: discovery is a single
// key; crawl/enrich are sharded by ATS family; embeddings is a single
// key; the full pipeline has its own key and does not block per-stage
// keys.
const (
	KeyDiscovery    = "discovery"
	KeyCrawlAll     = "crawl_all"
	KeyEnrichAll    = "enrich_all"
	KeyEmbeddings   = "embeddings"
	KeyMaintenance  = "maintenance"
	KeyFullPipeline = "full_pipeline"
)

// crawlKey and enrichKey compute the per-shard Operation Registry key
// for a standalone crawl/enrich launch: the mixed-ATS key when
// atsFamily is empty, otherwise a key distinct per family so
// concurrent shards of different families may run side by side.
func crawlKey(atsFamily string) string {
	if atsFamily == "" {
		return KeyCrawlAll
	}
	return "crawl_" + atsFamily
}

func enrichKey(atsFamily string) string {
	if atsFamily == "" {
		return KeyEnrichAll
	}
	return "enrich_" + atsFamily
}

// EmbeddingRunner abstracts internal/embeddings.Runner so this package
// doesn't need to import it directly (it already takes only
// interfaces types).
type EmbeddingRunner interface {
	Run(ctx context.Context) (int, error)
}

// DiscoveryRunner abstracts internal/discovery.Orchestrator.RunSources
// for the same reason as EmbeddingRunner.
type DiscoveryRunner interface {
	RunSources(ctx context.Context, sources []interfaces.DiscoverySource) ([]*models.Run, error)
	ProcessQueue(ctx context.Context) (processed, promoted int, err error)
}

// CrawlRunner abstracts internal/crawl.Engine.RunStage.
type CrawlRunner interface {
	RunStage(ctx context.Context, concurrency int, atsFamily string) (crawled, updated int, err error)
}

// EnrichRunner abstracts internal/enrich.Runner.RunStage.
type EnrichRunner interface {
	RunStage(ctx context.Context, atsFamily string) (int, error)
}

// MaintainRunner abstracts internal/maintain.Engine.RunStage.
type MaintainRunner interface {
	RunStage(ctx context.Context) (maintained, delisted, admitted int, err error)
}

// Orchestrator sequences the pipeline's stages under the Operation
// Registry's mutual-exclusion keys, writing a PipelineRun row per
// invocation.
type Orchestrator struct {
	storage    interfaces.StorageManager
	registry   interfaces.OperationRegistry
	discovery  DiscoveryRunner
	crawl      CrawlRunner
	enrich     EnrichRunner
	maintain   MaintainRunner
	embeddings EmbeddingRunner
	logger     arbor.ILogger
}

// NewOrchestrator builds a pipeline Orchestrator. Any runner may be nil
// when that stage isn't configured; the corresponding stage is then
// skipped with a logged note instead of failing the whole pipeline.
func NewOrchestrator(storage interfaces.StorageManager, registry interfaces.OperationRegistry, discoveryRunner DiscoveryRunner, crawlRunner CrawlRunner, enrichRunner EnrichRunner, maintainRunner MaintainRunner, embeddingRunner EmbeddingRunner, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{storage: storage, registry: registry, discovery: discoveryRunner, crawl: crawlRunner, enrich: enrichRunner, maintain: maintainRunner, embeddings: embeddingRunner, logger: logger}
}

// RunFullPipeline runs Discovery -> Crawl -> Enrich -> Embed
// sequentially inside the full_pipeline key, recording one run row. A
// stage whose runner is nil is skipped with a logged note; a stage that
// fails is logged and the later stages still run.
func (o *Orchestrator) RunFullPipeline(ctx context.Context, sources []interfaces.DiscoverySource) (*models.Run, error) {
	if !o.registry.Start(KeyFullPipeline) {
		return nil, fmt.Errorf("full pipeline already running")
	}
	defer o.registry.End(KeyFullPipeline)

	run := &models.Run{
		ID:        uuid.NewString(),
		Kind:      models.RunKindPipeline,
		Source:    "full",
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.storage.Runs().Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("inserting full pipeline run: %w", err)
	}

	o.runStages(ctx, run, sources)
	return run, nil
}

// StartFullPipelineAsync inserts the PipelineRun row synchronously (so
// the caller has an id to return immediately, e.g. from an admin HTTP
// handler) and runs the stages in a background goroutine under
// context.Background, since the run must outlive the triggering
// request.
func (o *Orchestrator) StartFullPipelineAsync(sources []interfaces.DiscoverySource) (*models.Run, error) {
	if !o.registry.Start(KeyFullPipeline) {
		return nil, fmt.Errorf("full pipeline already running")
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		Kind:      models.RunKindPipeline,
		Source:    "full",
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.storage.Runs().Insert(context.Background(), run); err != nil {
		o.registry.End(KeyFullPipeline)
		return nil, fmt.Errorf("inserting full pipeline run: %w", err)
	}

	go func() {
		defer o.registry.End(KeyFullPipeline)
		o.runStages(context.Background(), run, sources)
	}()

	return run, nil
}

func (o *Orchestrator) runStages(ctx context.Context, run *models.Run, sources []interfaces.DiscoverySource) {
	run.AppendLog("info", "discovery stage starting", nil)
	if o.discovery != nil && len(sources) > 0 {
		discRuns, err := o.discovery.RunSources(ctx, sources)
		if err != nil {
			run.AppendLog("error", fmt.Sprintf("discovery stage failed: %v", err), nil)
		}
		for _, dr := range discRuns {
			run.Counters.Discovered += dr.Counters.Discovered
			run.Counters.New += dr.Counters.New
			run.Counters.Duplicates += dr.Counters.Duplicates
			run.Counters.NonUS += dr.Counters.NonUS
		}
	} else {
		run.AppendLog("info", "discovery stage skipped: no sources configured", nil)
	}

	if o.discovery != nil {
		processed, promoted, err := o.discovery.ProcessQueue(ctx)
		if err != nil {
			run.AppendLog("error", fmt.Sprintf("discovery queue processing failed: %v", err), nil)
		}
		run.AppendLog("info", fmt.Sprintf("discovery queue processed %d rows, promoted %d companies", processed, promoted), nil)
	}

	run.AppendLog("info", "crawl stage starting", nil)
	if o.crawl != nil {
		crawled, updated, err := o.crawl.RunStage(ctx, 0, "")
		if err != nil {
			run.AppendLog("error", fmt.Sprintf("crawl stage failed: %v", err), nil)
		}
		run.AppendLog("info", fmt.Sprintf("crawl stage visited %d companies, %d changed", crawled, updated), nil)
	} else {
		run.AppendLog("info", "crawl stage skipped: no crawl engine configured", nil)
	}

	run.AppendLog("info", "enrich stage starting", nil)
	if o.enrich != nil {
		n, err := o.enrich.RunStage(ctx, "")
		if err != nil {
			run.AppendLog("error", fmt.Sprintf("enrich stage failed: %v", err), nil)
		}
		run.AppendLog("info", fmt.Sprintf("enrich stage attempted %d jobs", n), nil)
	} else {
		run.AppendLog("info", "enrich stage skipped: no enrichment engine configured", nil)
	}

	run.AppendLog("info", "embeddings stage starting", nil)
	if o.embeddings != nil {
		total := 0
		for {
			if run.IsCancelled() {
				break
			}
			n, err := o.embeddings.Run(ctx)
			if err != nil {
				run.AppendLog("error", fmt.Sprintf("embeddings stage failed: %v", err), nil)
				break
			}
			total += n
			if n == 0 {
				break
			}
		}
		run.AppendLog("info", fmt.Sprintf("embeddings stage wrote %d vectors", total), nil)
	} else {
		run.AppendLog("info", "embeddings stage skipped: no embedding client configured", nil)
	}

	if run.Status != models.RunStatusCancelled {
		run.Status = models.RunStatusCompleted
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := o.storage.Runs().Update(ctx, run); err != nil {
		o.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record final pipeline run state")
	}
}

// RunDiscoveryStandalone runs only the Discovery stage, under the
// single "discovery" key.
func (o *Orchestrator) RunDiscoveryStandalone(ctx context.Context, sources []interfaces.DiscoverySource) ([]*models.Run, error) {
	if !o.registry.Start(KeyDiscovery) {
		return nil, fmt.Errorf("discovery already running")
	}
	defer o.registry.End(KeyDiscovery)

	if o.discovery == nil {
		return nil, fmt.Errorf("no discovery runner configured")
	}
	runs, err := o.discovery.RunSources(ctx, sources)
	if err != nil {
		return runs, err
	}
	if _, _, err := o.discovery.ProcessQueue(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("discovery queue processing failed")
	}
	return runs, nil
}

// RunCrawlStandalone runs the crawl stage for a single launch,
// synchronously, under crawlKey(atsFamily): "crawl_all" when atsFamily
// is empty, or "crawl_<family>" for a per-family shard, so distinct
// families may run concurrently.
func (o *Orchestrator) RunCrawlStandalone(ctx context.Context, atsFamily string) (*models.Run, error) {
	key := crawlKey(atsFamily)
	if !o.registry.Start(key) {
		return nil, fmt.Errorf("%s already running", key)
	}
	defer o.registry.End(key)

	if o.crawl == nil {
		return nil, fmt.Errorf("no crawl engine configured")
	}

	run := newCrawlRun(atsFamily)
	if err := o.storage.Runs().Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("inserting crawl run: %w", err)
	}
	o.runCrawl(ctx, run, atsFamily)
	return run, nil
}

// StartCrawlAsync acquires crawlKey(atsFamily) and inserts the Run row
// synchronously (so an HTTP handler has an id and a same-request
// "already running" rejection to return), then runs the crawl stage in
// a background goroutine under context.Background, since the run must
// outlive the triggering request.
func (o *Orchestrator) StartCrawlAsync(atsFamily string) (*models.Run, error) {
	key := crawlKey(atsFamily)
	if !o.registry.Start(key) {
		return nil, fmt.Errorf("%s already running", key)
	}

	if o.crawl == nil {
		o.registry.End(key)
		return nil, fmt.Errorf("no crawl engine configured")
	}

	run := newCrawlRun(atsFamily)
	if err := o.storage.Runs().Insert(context.Background(), run); err != nil {
		o.registry.End(key)
		return nil, fmt.Errorf("inserting crawl run: %w", err)
	}

	go func() {
		defer o.registry.End(key)
		o.runCrawl(context.Background(), run, atsFamily)
	}()

	return run, nil
}

func newCrawlRun(atsFamily string) *models.Run {
	source := "crawl"
	if atsFamily != "" {
		source = "crawl:" + atsFamily
	}
	return &models.Run{
		ID:        uuid.NewString(),
		Kind:      models.RunKindPipeline,
		Source:    source,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

func (o *Orchestrator) runCrawl(ctx context.Context, run *models.Run, atsFamily string) {
	crawled, updated, err := o.crawl.RunStage(ctx, 0, atsFamily)
	if err != nil {
		run.AppendLog("error", fmt.Sprintf("crawl stage failed: %v", err), nil)
		run.Status = models.RunStatusFailed
	} else {
		run.Status = models.RunStatusCompleted
	}
	run.AppendLog("info", fmt.Sprintf("crawl stage visited %d companies, %d changed", crawled, updated), nil)
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := o.storage.Runs().Update(ctx, run); err != nil {
		o.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record final crawl run state")
	}
}

// RunEnrichStandalone runs the enrich stage for a single launch,
// synchronously, under enrichKey(atsFamily): "enrich_all" when
// atsFamily is empty, or "enrich_<family>" for a per-family shard.
func (o *Orchestrator) RunEnrichStandalone(ctx context.Context, atsFamily string) (*models.Run, error) {
	key := enrichKey(atsFamily)
	if !o.registry.Start(key) {
		return nil, fmt.Errorf("%s already running", key)
	}
	defer o.registry.End(key)

	if o.enrich == nil {
		return nil, fmt.Errorf("no enrichment engine configured")
	}

	run := newEnrichRun(atsFamily)
	if err := o.storage.Runs().Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("inserting enrich run: %w", err)
	}
	o.runEnrich(ctx, run, atsFamily)
	return run, nil
}

// StartEnrichAsync is the enrich analog of StartCrawlAsync.
func (o *Orchestrator) StartEnrichAsync(atsFamily string) (*models.Run, error) {
	key := enrichKey(atsFamily)
	if !o.registry.Start(key) {
		return nil, fmt.Errorf("%s already running", key)
	}

	if o.enrich == nil {
		o.registry.End(key)
		return nil, fmt.Errorf("no enrichment engine configured")
	}

	run := newEnrichRun(atsFamily)
	if err := o.storage.Runs().Insert(context.Background(), run); err != nil {
		o.registry.End(key)
		return nil, fmt.Errorf("inserting enrich run: %w", err)
	}

	go func() {
		defer o.registry.End(key)
		o.runEnrich(context.Background(), run, atsFamily)
	}()

	return run, nil
}

func newEnrichRun(atsFamily string) *models.Run {
	source := "enrich"
	if atsFamily != "" {
		source = "enrich:" + atsFamily
	}
	return &models.Run{
		ID:        uuid.NewString(),
		Kind:      models.RunKindPipeline,
		Source:    source,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

func (o *Orchestrator) runEnrich(ctx context.Context, run *models.Run, atsFamily string) {
	n, err := o.enrich.RunStage(ctx, atsFamily)
	if err != nil {
		run.AppendLog("error", fmt.Sprintf("enrich stage failed: %v", err), nil)
		run.Status = models.RunStatusFailed
	} else {
		run.Status = models.RunStatusCompleted
	}
	run.AppendLog("info", fmt.Sprintf("enrich stage attempted %d jobs", n), nil)
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := o.storage.Runs().Update(ctx, run); err != nil {
		o.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record final enrich run state")
	}
}

// RunMaintenanceStandalone runs one maintenance pass over every active
// Company under the single "maintenance" key, recording a Run row of
// kind maintenance.
func (o *Orchestrator) RunMaintenanceStandalone(ctx context.Context) (*models.Run, error) {
	if !o.registry.Start(KeyMaintenance) {
		return nil, fmt.Errorf("maintenance already running")
	}
	defer o.registry.End(KeyMaintenance)

	if o.maintain == nil {
		return nil, fmt.Errorf("no maintenance engine configured")
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		Kind:      models.RunKindMaintenance,
		Source:    "scheduler",
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.storage.Runs().Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("inserting maintenance run: %w", err)
	}

	maintained, delisted, admitted, err := o.maintain.RunStage(ctx)
	if err != nil {
		run.AppendLog("error", fmt.Sprintf("maintenance stage failed: %v", err), nil)
	}
	run.AppendLog("info", fmt.Sprintf("maintenance visited %d companies: %d delisted, %d admitted", maintained, delisted, admitted), nil)

	run.Status = models.RunStatusCompleted
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := o.storage.Runs().Update(ctx, run); err != nil {
		o.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record final maintenance run state")
	}

	return run, nil
}

// RunEmbeddingsStandalone drains the embedding backlog under the
// single "embeddings" key.
func (o *Orchestrator) RunEmbeddingsStandalone(ctx context.Context) (int, error) {
	if !o.registry.Start(KeyEmbeddings) {
		return 0, fmt.Errorf("embeddings already running")
	}
	defer o.registry.End(KeyEmbeddings)

	if o.embeddings == nil {
		return 0, fmt.Errorf("no embedding client configured")
	}

	total := 0
	for {
		n, err := o.embeddings.Run(ctx)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
	}
}
