// Package enrich implements the Enrichment Engine: for each Job lacking
// a description it picks the family-specific path (Greenhouse, Lever,
// Ashby, Workable, or the generic fallback) to backfill
// description/posted_at, or delists the Job on a 404.
package enrich

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/common"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// DefaultBatchSize and DefaultConcurrency mirror the Enrichment
// Engine's defaults: fetch up to batch_size jobs missing descriptions,
// dispatch with a bounded semaphore, commit per job.
const (
	DefaultBatchSize   = 500
	DefaultConcurrency = 10
)

// Registry selects an Enricher by ATS family, falling back to the
// generic page-scraping path for every family without a dedicated one.
type Registry struct {
	byFamily map[string]interfaces.Enricher
	generic  interfaces.Enricher
}

// NewRegistry builds the family -> Enricher table. fetcher is shared
// by every concrete Enricher, which route outbound calls through the
// caller's RateLimiter-wrapped Fetcher.
func NewRegistry(fetcher interfaces.Fetcher, logger arbor.ILogger) *Registry {
	generic := NewGenericEnricher(fetcher, logger)
	r := &Registry{byFamily: make(map[string]interfaces.Enricher), generic: generic}
	for _, e := range []interfaces.Enricher{
		NewGreenhouseEnricher(fetcher, logger),
		NewLeverEnricher(fetcher, logger),
		NewAshbyEnricher(fetcher, logger),
		NewWorkableEnricher(fetcher, logger),
	} {
		r.byFamily[e.Family()] = e
	}
	return r
}

func (r *Registry) For(family string) interfaces.Enricher {
	if e, ok := r.byFamily[strings.ToLower(family)]; ok {
		return e
	}
	return r.generic
}

// CompanyLister resolves the ATS family/identifier a Job's Company
// carries, since Enricher.Enrich needs the board identifier alongside
// the posting URL.
type CompanyLister interface {
	Get(ctx context.Context, id string) (*models.Company, error)
}

// Normalizer re-derives a Job's canonical fields after enrichment
// refreshes its description/posted_at (implemented by
// internal/normalize.Normalizer).
type Normalizer interface {
	Apply(j *models.Job, locationRaw, salaryRaw, postedAtRaw string, now time.Time)
}

// Runner drives continuous enrichment batches: fetch up to batchSize
// jobs missing descriptions, dispatch under a bounded semaphore, commit
// per job, loop until the query returns zero rows or ctx is cancelled.
type Runner struct {
	jobs        interfaces.JobStorage
	companies   CompanyLister
	registry    *Registry
	normalizer  Normalizer
	batchSize   int
	concurrency int
	logger      arbor.ILogger
}

// NewRunner builds a Runner. batchSize/concurrency fall back to the
// package defaults when <= 0.
func NewRunner(jobs interfaces.JobStorage, companies CompanyLister, registry *Registry, normalizer Normalizer, batchSize, concurrency int, logger arbor.ILogger) *Runner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{jobs: jobs, companies: companies, registry: registry, normalizer: normalizer, batchSize: batchSize, concurrency: concurrency, logger: logger}
}

// RunBatch processes one batch restricted to atsFamily (empty for
// every family) and returns how many jobs it attempted, so the caller
// can loop until it returns 0.
func (r *Runner) RunBatch(ctx context.Context, atsFamily string) (int, error) {
	jobs, err := r.jobs.ListNeedingEnrichment(ctx, atsFamily, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		j := job
		common.SafeGo(r.logger, "enrich_job", func() {
			defer wg.Done()
			defer func() { <-sem }()
			r.enrichOne(ctx, j)
		})
	}
	wg.Wait()

	return len(jobs), nil
}

func (r *Runner) enrichOne(ctx context.Context, job *models.Job) {
	company, err := r.companies.Get(ctx, job.CompanyID)
	if err != nil || company == nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to load company for enrichment")
		return
	}

	enricher := r.registry.For(company.ATSFamily)
	result, err := enricher.Enrich(ctx, job.SourceURL, company.ATSIdentifier)
	now := time.Now().UTC()

	if err != nil {
		job.EnrichFailedAt = &now
		if updErr := r.jobs.Upsert(ctx, job); updErr != nil {
			r.logger.Warn().Err(updErr).Str("job_id", job.ID).Msg("failed to record enrichment failure")
		}
		return
	}

	if result.NotFound {
		job.Delist(models.DelistReasonRemovedFromATS, now)
		if updErr := r.jobs.Upsert(ctx, job); updErr != nil {
			r.logger.Warn().Err(updErr).Str("job_id", job.ID).Msg("failed to persist delist from enrichment 404")
		}
		return
	}

	if result.Description == "" {
		job.EnrichFailedAt = &now
		if updErr := r.jobs.Upsert(ctx, job); updErr != nil {
			r.logger.Warn().Err(updErr).Str("job_id", job.ID).Msg("failed to record empty-description enrichment")
		}
		return
	}

	job.Description = result.Description
	if result.PostedAt != nil {
		job.PostedAt = result.PostedAt
	}
	job.UpdatedAt = now
	if r.normalizer != nil {
		postedRaw := ""
		if result.PostedAt != nil {
			postedRaw = result.PostedAt.Format(time.RFC3339)
		}
		r.normalizer.Apply(job, "", "", postedRaw, now)
	}

	if err := r.jobs.Upsert(ctx, job); err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to persist enriched job")
	}
}
