// Package maintain implements maintain(company): a per-company diff
// between a fresh ATS crawl and the Company's currently-active Jobs,
// delisting postings that vanished and admitting postings that are new
// without re-running the full Crawl Engine change-detection path.
package maintain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// Result reports one maintain(company) outcome.
type Result struct {
	CompanyID string
	Delisted  int
	New       int
	Verified  int
	Unknown   bool // true when the extractor returned zero jobs and the
	// current set is treated as unknown rather than empty
}

// Normalizer re-derives a Job's canonical fields (implemented by
// internal/normalize.Normalizer).
type Normalizer interface {
	Apply(j *models.Job, locationRaw, salaryRaw, postedAtRaw string, now time.Time)
}

// Engine drives maintain(company).
type Engine struct {
	storage    interfaces.StorageManager
	registry   interfaces.ATSRegistry
	extractors Extractors
	fetcher    interfaces.Fetcher
	normalizer Normalizer
	renderer   interfaces.Renderer
	logger     arbor.ILogger
}

// Extractors selects an Extractor by ATS family (internal/crawl's
// ExtractorRegistry satisfies this).
type Extractors interface {
	For(family string) interfaces.Extractor
}

// NewEngine builds a Maintenance Engine. renderer may be nil, in which
// case a custom company's zero-extraction result is simply treated as
// unknown rather than retried against a headless browser.
func NewEngine(storage interfaces.StorageManager, registry interfaces.ATSRegistry, extractors Extractors, fetcher interfaces.Fetcher, normalizer Normalizer, renderer interfaces.Renderer, logger arbor.ILogger) *Engine {
	return &Engine{storage: storage, registry: registry, extractors: extractors, fetcher: fetcher, normalizer: normalizer, renderer: renderer, logger: logger}
}

// MaintainCompany runs the full maintain(company) diff.
func (e *Engine) MaintainCompany(ctx context.Context, companyID string) (Result, error) {
	now := time.Now().UTC()
	result := Result{CompanyID: companyID}

	company, err := e.storage.Companies().Get(ctx, companyID)
	if err != nil {
		return result, fmt.Errorf("loading company %s: %w", companyID, err)
	}
	if company == nil || !company.IsActive || company.CareersURL == "" {
		return result, nil
	}

	fetchURL := e.maintenanceURL(company)
	body, status, err := e.fetcher.Fetch(ctx, fetchURL)
	if err != nil || status != 200 {
		company.LastMaintenanceAt = &now
		if upErr := e.storage.Companies().Upsert(ctx, company); upErr != nil {
			return result, fmt.Errorf("bumping last_maintenance_at for %s: %w", companyID, upErr)
		}
		result.Unknown = true
		return result, nil
	}

	extractor := e.extractors.For(company.ATSFamily)
	extracted, err := extractor.Extract(ctx, body, fetchURL, company.ATSIdentifier)
	if err != nil {
		return result, fmt.Errorf("extracting jobs for %s: %w", companyID, err)
	}

	byCustomKey := company.ATSFamily == "" || company.ATSFamily == models.ATSFamilyCustom
	if len(extracted) == 0 && byCustomKey && e.renderer != nil {
		if html, rerr := e.renderer.Render(ctx, fetchURL); rerr == nil {
			if rendered, rerr := extractor.Extract(ctx, []byte(html), fetchURL, company.ATSIdentifier); rerr == nil {
				extracted = rendered
			}
		} else {
			e.logger.Warn().Err(rerr).Str("company_id", companyID).Msg("render fallback failed during maintenance")
		}
	}

	activeJobs, err := e.storage.Jobs().ListActiveByCompany(ctx, companyID)
	if err != nil {
		return result, fmt.Errorf("loading active jobs for %s: %w", companyID, err)
	}

	if len(extracted) == 0 {
		// The current set is unknown, not empty: an empty extraction is
		// as likely to be a render/parse failure as a company with zero
		// open roles, so no job is delisted on this signal alone.
		company.LastMaintenanceAt = &now
		if err := e.storage.Companies().Upsert(ctx, company); err != nil {
			return result, fmt.Errorf("bumping last_maintenance_at for %s: %w", companyID, err)
		}
		result.Unknown = true
		return result, nil
	}

	currentByKey := make(map[string]interfaces.ExtractedJob, len(extracted))
	for _, xj := range extracted {
		currentByKey[maintenanceKey(byCustomKey, xj.SourceURL, xj.Title)] = xj
	}

	existingByKey := make(map[string]*models.Job, len(activeJobs))
	for _, j := range activeJobs {
		existingByKey[maintenanceKey(byCustomKey, j.SourceURL, j.Title)] = j
	}

	for key, job := range existingByKey {
		if _, ok := currentByKey[key]; ok {
			job.LastVerifiedAt = &now
			job.UpdatedAt = now
			if err := e.storage.Jobs().Upsert(ctx, job); err != nil {
				return result, fmt.Errorf("stamping last_verified_at for job %s: %w", job.ID, err)
			}
			result.Verified++
			continue
		}
		job.Delist(models.DelistReasonRemovedFromATS, now)
		job.UpdatedAt = now
		if err := e.storage.Jobs().Upsert(ctx, job); err != nil {
			return result, fmt.Errorf("delisting job %s: %w", job.ID, err)
		}
		result.Delisted++
	}

	for key, xj := range currentByKey {
		if _, ok := existingByKey[key]; ok {
			continue
		}
		if err := e.admitJob(ctx, company, xj, now); err != nil {
			e.logger.Warn().Err(err).Str("company_id", companyID).Str("source_url", xj.SourceURL).Msg("failed to admit job during maintenance")
			continue
		}
		result.New++
	}

	company.LastMaintenanceAt = &now
	if err := e.storage.Companies().Upsert(ctx, company); err != nil {
		return result, fmt.Errorf("bumping last_maintenance_at for %s: %w", companyID, err)
	}

	return result, nil
}

func (e *Engine) admitJob(ctx context.Context, company *models.Company, xj interfaces.ExtractedJob, now time.Time) error {
	raw := &models.JobRaw{
		ID:                uuid.NewString(),
		CompanyID:         company.ID,
		SourceURL:         xj.SourceURL,
		TitleRaw:          xj.Title,
		DescriptionRaw:    xj.Description,
		LocationRaw:       xj.Location,
		DepartmentRaw:     xj.Department,
		EmploymentTypeRaw: xj.EmploymentType,
		SalaryRaw:         xj.SalaryRaw,
		ExtractedAt:       now,
	}
	if xj.PostedAt != nil {
		raw.PostedAtRaw = xj.PostedAt.Format(time.RFC3339)
	}
	if err := e.storage.JobsRaw().Upsert(ctx, raw); err != nil {
		return fmt.Errorf("inserting raw job: %w", err)
	}

	job := &models.Job{
		ID:             uuid.NewString(),
		CompanyID:      company.ID,
		RawJobID:       raw.ID,
		Title:          xj.Title,
		Description:    xj.Description,
		SourceURL:      xj.SourceURL,
		EmploymentType: xj.EmploymentType,
		PostedAt:       xj.PostedAt,
		IsActive:       true,
		LastVerifiedAt: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if e.normalizer != nil {
		e.normalizer.Apply(job, xj.Location, xj.SalaryRaw, raw.PostedAtRaw, now)
	}
	return e.storage.Jobs().Upsert(ctx, job)
}

// maintenanceURL mirrors the Crawl Engine's JSON-API-first fetch URL
// selection so maintenance diffs against the same source the Crawl
// Engine would use.
func (e *Engine) maintenanceURL(company *models.Company) string {
	if company.ATSFamily == "" || company.ATSIdentifier == "" {
		return company.CareersURL
	}
	entry, ok := e.registry.Lookup(company.ATSFamily)
	if !ok || entry.ListAPITemplate == "" {
		return company.CareersURL
	}
	return strings.ReplaceAll(entry.ListAPITemplate, "{id}", company.ATSIdentifier)
}

// maintenanceKey computes the diff key for one posting: a normalized
// source URL for ATS-backed companies, or a normalized title for
// custom companies whose URLs are unstable across crawls.
func maintenanceKey(byTitle bool, sourceURL, title string) string {
	if byTitle {
		return normalizeTitle(title)
	}
	return normalizeURL(sourceURL)
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	u.RawQuery = ""
	u.Fragment = ""
	normalized := strings.ToLower(u.String())
	return strings.TrimSuffix(normalized, "/")
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
