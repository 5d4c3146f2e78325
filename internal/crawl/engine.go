// Package crawl implements the Crawl Engine's crawl_company sequence:
// ATS detection, fetch-URL selection, rediscovery on 404, change
// detection via body hash, and handoff to the family Extractor and the
// Normalizer.
package crawl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// Reason codes recorded on a failed/skipped crawl, carried into the run log.
const (
	ReasonNoCareersURL          = "no_careers_url"
	ReasonFetchFailed           = "fetch_failed"
	ReasonFetchFailedAfterRediscovery = "fetch_failed_after_rediscovery"
	ReasonNotFound              = "not_found"
	ReasonException             = "exception"
)

// Result reports the outcome of one crawl_company call.
type Result struct {
	CompanyID string
	Status    string // "unchanged", "updated", "failed"
	Reason    string
	NewJobs   int
}

// Normalizer re-derives a Job's canonical fields from its raw strings
// (implemented by internal/normalize.Normalizer).
type Normalizer interface {
	Apply(j *models.Job, locationRaw, salaryRaw, postedAtRaw string, now time.Time)
}

// Engine drives crawl_company. It is cheap to construct and safe to
// share across a bulk crawl's bounded worker pool, since its only
// mutable collaborator (storage) is itself expected to be
// safe for concurrent per-task use.
type Engine struct {
	storage    interfaces.StorageManager
	registry   interfaces.ATSRegistry
	detector   interfaces.Detector
	extractors *ExtractorRegistry
	fetcher    interfaces.Fetcher
	normalizer Normalizer
	renderer   interfaces.Renderer
	logger     arbor.ILogger
}

// NewEngine builds a Crawl Engine. renderer may be nil, in which case a
// custom company whose static fetch yields zero jobs is left as-is
// rather than retried against a headless browser.
func NewEngine(storage interfaces.StorageManager, registry interfaces.ATSRegistry, detector interfaces.Detector, extractors *ExtractorRegistry, fetcher interfaces.Fetcher, normalizer Normalizer, renderer interfaces.Renderer, logger arbor.ILogger) *Engine {
	return &Engine{storage: storage, registry: registry, detector: detector, extractors: extractors, fetcher: fetcher, normalizer: normalizer, renderer: renderer, logger: logger}
}

// CrawlCompany runs the full crawl_company sequence for one Company.
func (e *Engine) CrawlCompany(ctx context.Context, companyID string) (Result, error) {
	company, err := e.storage.Companies().Get(ctx, companyID)
	if err != nil {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonException}, fmt.Errorf("loading company %s: %w", companyID, err)
	}
	if company == nil || !company.IsActive {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonNoCareersURL}, nil
	}
	if company.CareersURL == "" {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonNoCareersURL}, nil
	}

	if company.ATSFamily == "" {
		e.detectFamily(ctx, company)
	}

	fetchURL := e.fetchURL(company)
	body, status, err := e.fetcher.Fetch(ctx, fetchURL)
	if err != nil {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonFetchFailed}, nil
	}

	if status == 404 && company.ATSIdentifier != "" {
		body, status, err = e.rediscover(ctx, company)
		if err != nil || status != 200 {
			return Result{CompanyID: companyID, Status: "failed", Reason: ReasonFetchFailedAfterRediscovery}, nil
		}
	} else if status == 404 {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonNotFound}, nil
	} else if status != 200 {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonFetchFailed}, nil
	}

	now := time.Now().UTC()
	hash := sha256.Sum256(body)
	hashHex := hex.EncodeToString(hash[:])

	latest, err := e.storage.CrawlSnapshots().Latest(ctx, company.ID)
	if err != nil {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonException}, fmt.Errorf("loading latest snapshot for %s: %w", companyID, err)
	}
	company.LastCrawledAt = &now
	if latest != nil && latest.HTMLHash == hashHex {
		if err := e.storage.Companies().Upsert(ctx, company); err != nil {
			return Result{CompanyID: companyID, Status: "failed", Reason: ReasonException}, fmt.Errorf("bumping last_crawled_at for %s: %w", companyID, err)
		}
		return Result{CompanyID: companyID, Status: "unchanged"}, nil
	}

	snapshot := &models.CrawlSnapshot{
		ID:         uuid.NewString(),
		CompanyID:  company.ID,
		URL:        fetchURL,
		HTMLHash:   hashHex,
		StatusCode: status,
		CrawledAt:  now,
	}
	if err := e.storage.CrawlSnapshots().Insert(ctx, snapshot); err != nil {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonException}, fmt.Errorf("inserting snapshot for %s: %w", companyID, err)
	}
	if err := e.storage.Companies().Upsert(ctx, company); err != nil {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonException}, fmt.Errorf("updating company %s: %w", companyID, err)
	}

	extractor := e.extractors.For(company.ATSFamily)
	extracted, err := extractor.Extract(ctx, body, fetchURL, company.ATSIdentifier)
	if err != nil {
		return Result{CompanyID: companyID, Status: "failed", Reason: ReasonException}, fmt.Errorf("extracting jobs for %s: %w", companyID, err)
	}

	if len(extracted) == 0 && e.renderer != nil && (company.ATSFamily == "" || company.ATSFamily == models.ATSFamilyCustom) {
		if rendered, rerr := e.renderRetry(ctx, extractor, fetchURL, company.ATSIdentifier); rerr == nil {
			extracted = rendered
		} else {
			e.logger.Warn().Err(rerr).Str("company_id", companyID).Msg("render fallback failed")
		}
	}

	newJobs := 0
	for _, xj := range extracted {
		if err := e.upsertJob(ctx, company, xj, now); err != nil {
			e.logger.Warn().Err(err).Str("company_id", companyID).Str("source_url", xj.SourceURL).Msg("failed to upsert extracted job")
			continue
		}
		newJobs++
	}

	return Result{CompanyID: companyID, Status: "updated", NewJobs: newJobs}, nil
}

// upsertJob writes the JobRaw (duplicate (company_id, source_url)
// updates in place) and then the normalized Job.
func (e *Engine) upsertJob(ctx context.Context, company *models.Company, xj interfaces.ExtractedJob, now time.Time) error {
	existingRaw, err := e.storage.JobsRaw().GetByCompanyAndURL(ctx, company.ID, xj.SourceURL)
	if err != nil {
		return fmt.Errorf("loading raw job: %w", err)
	}

	raw := existingRaw
	if raw == nil {
		raw = &models.JobRaw{ID: uuid.NewString(), CompanyID: company.ID, SourceURL: xj.SourceURL}
	}
	raw.TitleRaw = xj.Title
	raw.DescriptionRaw = xj.Description
	raw.LocationRaw = xj.Location
	raw.DepartmentRaw = xj.Department
	raw.EmploymentTypeRaw = xj.EmploymentType
	raw.SalaryRaw = xj.SalaryRaw
	if xj.PostedAt != nil {
		raw.PostedAtRaw = xj.PostedAt.Format(time.RFC3339)
	}
	raw.ExtractedAt = now
	if err := e.storage.JobsRaw().Upsert(ctx, raw); err != nil {
		return fmt.Errorf("upserting raw job: %w", err)
	}

	job, err := e.storage.Jobs().GetByCompanyAndURL(ctx, company.ID, xj.SourceURL)
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}
	if job == nil {
		job = &models.Job{ID: uuid.NewString(), CompanyID: company.ID, RawJobID: raw.ID, SourceURL: xj.SourceURL, CreatedAt: now, IsActive: true}
	}
	job.RawJobID = raw.ID
	job.Title = xj.Title
	job.Description = xj.Description
	job.EmploymentType = xj.EmploymentType
	job.IsActive = true
	job.LastVerifiedAt = &now
	job.UpdatedAt = now
	if xj.PostedAt != nil {
		job.PostedAt = xj.PostedAt
	}

	if e.normalizer != nil {
		postedRaw := raw.PostedAtRaw
		e.normalizer.Apply(job, xj.Location, xj.SalaryRaw, postedRaw, now)
	}

	return e.storage.Jobs().Upsert(ctx, job)
}

// renderRetry re-fetches fetchURL through the headless browser pool and
// re-runs extraction against the rendered HTML. Used only when the
// static fetch of a custom career page yields zero jobs, which usually
// means the listing is populated client-side.
func (e *Engine) renderRetry(ctx context.Context, extractor interfaces.Extractor, fetchURL, atsIdentifier string) ([]interfaces.ExtractedJob, error) {
	html, err := e.renderer.Render(ctx, fetchURL)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", fetchURL, err)
	}
	return extractor.Extract(ctx, []byte(html), fetchURL, atsIdentifier)
}

// detectFamily runs the Detector over the careers page and persists
// any identified family/identifier.
func (e *Engine) detectFamily(ctx context.Context, company *models.Company) {
	body, status, err := e.fetcher.Fetch(ctx, company.CareersURL)
	now := time.Now().UTC()
	company.ATSDetectionAttempts++
	company.ATSDetectionLastAt = &now
	if err != nil || status != 200 {
		return
	}

	result, err := e.detector.Detect(ctx, company.CareersURL, body)
	if err != nil || !result.Matched {
		return
	}
	company.ATSFamily = result.Family
	company.ATSIdentifier = result.Identifier
}

// fetchURL computes the fetch URL: the family's JSON API when it has
// one and a valid identifier, otherwise careers_url.
func (e *Engine) fetchURL(company *models.Company) string {
	if company.ATSFamily == "" || company.ATSIdentifier == "" {
		return company.CareersURL
	}
	entry, ok := e.registry.Lookup(company.ATSFamily)
	if !ok || entry.ListAPITemplate == "" {
		return company.CareersURL
	}
	return strings.ReplaceAll(entry.ListAPITemplate, "{id}", company.ATSIdentifier)
}

// rediscover re-parses the careers page to find a new identifier and,
// if different, updates ats_identifier/careers_url from the family's
// careers_url_template, then retries the fetch exactly once.
func (e *Engine) rediscover(ctx context.Context, company *models.Company) ([]byte, int, error) {
	body, status, err := e.fetcher.Fetch(ctx, company.CareersURL)
	if err != nil || status != 200 {
		return nil, status, err
	}

	result, err := e.detector.Detect(ctx, company.CareersURL, body)
	if err != nil || !result.Matched || result.Identifier == company.ATSIdentifier {
		return nil, 404, nil
	}

	company.ATSFamily = result.Family
	company.ATSIdentifier = result.Identifier
	if entry, ok := e.registry.Lookup(result.Family); ok && entry.CareersURLTemplate != "" {
		company.CareersURL = strings.ReplaceAll(entry.CareersURLTemplate, "{id}", result.Identifier)
	}

	return e.fetcher.Fetch(ctx, e.fetchURL(company))
}
