package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// logEvery is how often (in processed emissions) the Orchestrator
// appends a progress line to the run's log even when nothing else
// material happened.
const logEvery = 50

// commitEvery is how many new inserts accumulate before the run's
// counters are flushed to storage, matching the admission rule's own
// batching note.
const commitEvery = 10

// CareersURLResolver resolves a missing careers URL from a company's
// website (internal/ats.CareersURLFinder satisfies this).
type CareersURLResolver interface {
	Find(ctx context.Context, websiteURL, companyName, companyDomain string) (string, error)
}

// FamilyDetector classifies a careers page into an ATS family
// (internal/ats.Detector satisfies this).
type FamilyDetector interface {
	Detect(ctx context.Context, careersURL string, html []byte) (interfaces.DetectionResult, error)
}

// queuePageSize bounds how many DiscoveryQueue rows ProcessQueue loads
// per page.
const queuePageSize = 100

// Orchestrator runs the configured Discovery Sources against the shared
// Dedup set, applying the admission rule to every emission, and later
// drains the DiscoveryQueue by resolving the careers URL/ATS family the
// admitting Source couldn't supply.
type Orchestrator struct {
	storage  interfaces.StorageManager
	dedup    interfaces.DedupService
	logger   arbor.ILogger
	usOnly   bool
	careers  CareersURLResolver
	detector FamilyDetector
	fetcher  interfaces.Fetcher
}

// NewOrchestrator builds an Orchestrator. usOnly mirrors
// DiscoveryConfig.USOnly. careers/detector/fetcher may be nil, in which
// case ProcessQueue leaves rows missing a careers URL in review rather
// than failing.
func NewOrchestrator(storage interfaces.StorageManager, dedup interfaces.DedupService, logger arbor.ILogger, usOnly bool, careers CareersURLResolver, detector FamilyDetector, fetcher interfaces.Fetcher) *Orchestrator {
	return &Orchestrator{storage: storage, dedup: dedup, logger: logger, usOnly: usOnly, careers: careers, detector: detector, fetcher: fetcher}
}

// ProcessQueue drains pending DiscoveryQueue rows: resolves a missing
// careers URL from the company's website, detects the ATS family from
// the resolved page, and promotes the row to a Company once both are
// known. A row that still lacks a careers URL after resolution is
// marked review rather than retried indefinitely.
func (o *Orchestrator) ProcessQueue(ctx context.Context) (processed, promoted int, err error) {
	rows, err := o.storage.DiscoveryQueue().ListPendingForProcessing(ctx, queuePageSize)
	if err != nil {
		return 0, 0, fmt.Errorf("loading discovery queue: %w", err)
	}

	for _, q := range rows {
		if ctx.Err() != nil {
			return processed, promoted, ctx.Err()
		}
		processed++
		if o.processQueueRow(ctx, q) {
			promoted++
		}
	}

	return processed, promoted, nil
}

func (o *Orchestrator) processQueueRow(ctx context.Context, q *models.DiscoveryQueue) bool {
	now := time.Now().UTC()

	if q.CareersURL == "" && q.WebsiteURL != "" && o.careers != nil {
		found, err := o.careers.Find(ctx, q.WebsiteURL, q.Name, q.Domain)
		if err == nil {
			q.CareersURL = found
		}
	}

	if q.CareersURL == "" {
		q.Status = models.DiscoveryQueueStatusReview
		q.ProcessedAt = &now
		if err := o.storage.DiscoveryQueue().Update(ctx, q); err != nil {
			o.logger.Warn().Err(err).Str("queue_id", q.ID).Msg("failed to mark queue row for review")
		}
		return false
	}

	if q.ATSFamily == "" && o.detector != nil && o.fetcher != nil {
		body, status, ferr := o.fetcher.Fetch(ctx, q.CareersURL)
		if ferr == nil && status == 200 {
			result, derr := o.detector.Detect(ctx, q.CareersURL, body)
			if derr == nil && result.Matched {
				q.ATSFamily = result.Family
				q.ATSIdentifier = result.Identifier
			}
		}
	}

	company := &models.Company{
		ID:              uuid.NewString(),
		Name:            q.Name,
		Domain:          q.Domain,
		CareersURL:      q.CareersURL,
		WebsiteURL:      q.WebsiteURL,
		ATSFamily:       q.ATSFamily,
		ATSIdentifier:   q.ATSIdentifier,
		DiscoverySource: q.Source,
		Country:         q.Country,
		Location:        q.Location,
		Industry:        q.Industry,
		EmployeeCount:   q.EmployeeCount,
		FundingStage:    q.FundingStage,
		CrawlPriority:   30,
		IsActive:        true,
		CreatedAt:       now,
	}
	if err := o.storage.Companies().Upsert(ctx, company); err != nil {
		q.RetryCount++
		q.ErrorMessage = err.Error()
		if q.RetryCount >= models.MaxQueueRetries {
			q.Status = models.DiscoveryQueueStatusFailed
		}
		if upErr := o.storage.DiscoveryQueue().Update(ctx, q); upErr != nil {
			o.logger.Warn().Err(upErr).Str("queue_id", q.ID).Msg("failed to record queue retry")
		}
		return false
	}

	q.Status = models.DiscoveryQueueStatusCompleted
	q.CompanyID = company.ID
	q.ProcessedAt = &now
	if err := o.storage.DiscoveryQueue().Update(ctx, q); err != nil {
		o.logger.Warn().Err(err).Str("queue_id", q.ID).Msg("failed to mark queue row completed")
	}
	return true
}

// RunSources hydrates the Dedup set from storage and runs each Source
// to completion, recording a Run row per source. Sources run
// sequentially within the call, not in parallel.
func (o *Orchestrator) RunSources(ctx context.Context, sources []interfaces.DiscoverySource) ([]*models.Run, error) {
	if err := o.dedup.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrating dedup set: %w", err)
	}
	var runs []*models.Run
	for _, src := range sources {
		run, err := o.runOne(ctx, src)
		if err != nil {
			return runs, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (o *Orchestrator) runOne(ctx context.Context, src interfaces.DiscoverySource) (*models.Run, error) {
	run := &models.Run{
		ID:        uuid.NewString(),
		Kind:      models.RunKindDiscovery,
		Source:    src.Name(),
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.storage.Runs().Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("inserting discovery run for %s: %w", src.Name(), err)
	}

	if err := src.Initialize(ctx); err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
		o.finish(ctx, run)
		return run, fmt.Errorf("initializing source %s: %w", src.Name(), err)
	}

	stream, err := src.Discover(ctx, o.dedup)
	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
		src.Cleanup(ctx)
		o.finish(ctx, run)
		return run, fmt.Errorf("starting source %s: %w", src.Name(), err)
	}

	processed := 0
	newSinceCommit := 0
	for company := range stream {
		if run.IsCancelled() {
			break
		}
		processed++

		newBefore := run.Counters.New
		if err := o.admit(ctx, run, company); err != nil {
			run.Counters.Errors++
			run.AppendLog("error", fmt.Sprintf("admitting %s: %v", company.Domain, err), nil)
		} else if run.Counters.New > newBefore {
			newSinceCommit++
		}

		cur, total := src.Progress()
		run.ProgressCount = cur
		if total >= 0 {
			run.ProgressTotal = &total
		}

		if newSinceCommit >= commitEvery || processed%logEvery == 0 {
			if processed%logEvery == 0 {
				run.AppendLog("info", fmt.Sprintf("processed %d emissions", processed), nil)
			}
			if err := o.storage.Runs().Update(ctx, run); err != nil {
				o.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to flush discovery run progress")
			}
			newSinceCommit = 0
		}
	}

	if err := src.Cleanup(ctx); err != nil {
		o.logger.Warn().Err(err).Str("source", src.Name()).Msg("source cleanup failed")
	}

	if run.Status != models.RunStatusCancelled {
		run.Status = models.RunStatusCompleted
	}
	o.finish(ctx, run)
	return run, nil
}

func (o *Orchestrator) finish(ctx context.Context, run *models.Run) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := o.storage.Runs().Update(ctx, run); err != nil {
		o.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record final discovery run state")
	}
}

// admit applies the admission rule to one emission: known domain ->
// duplicate; US-only with no US evidence -> non_us; complete data ->
// direct Company insert; otherwise -> DiscoveryQueue row.
func (o *Orchestrator) admit(ctx context.Context, run *models.Run, company models.DiscoveredCompany) error {
	run.Counters.Discovered++

	if company.Domain != "" && o.dedup.IsDuplicateDomain(company.Domain) {
		run.Counters.Duplicates++
		return nil
	}
	if company.ATSFamily != "" && company.ATSIdentifier != "" && o.dedup.IsDuplicateATS(company.ATSFamily, company.ATSIdentifier) {
		run.Counters.Duplicates++
		return nil
	}

	if o.usOnly && !hasUSEvidence(company) {
		run.Counters.NonUS++
		return nil
	}

	o.dedup.MarkDomain(company.Domain)
	if company.ATSFamily != "" && company.ATSIdentifier != "" {
		o.dedup.MarkATS(company.ATSFamily, company.ATSIdentifier)
	}

	if company.HasCompleteData() {
		c := &models.Company{
			ID:              uuid.NewString(),
			Name:            company.Name,
			Domain:          company.Domain,
			CareersURL:      company.CareersURL,
			WebsiteURL:      company.WebsiteURL,
			ATSFamily:       company.ATSFamily,
			ATSIdentifier:   company.ATSIdentifier,
			DiscoverySource: company.Source,
			Country:         company.Country,
			Location:        company.Location,
			Industry:        company.Industry,
			EmployeeCount:   company.EmployeeCount,
			FundingStage:    company.FundingStage,
			CrawlPriority:   30,
			IsActive:        true,
			CreatedAt:       time.Now().UTC(),
		}
		if err := o.storage.Companies().Upsert(ctx, c); err != nil {
			if isUniqueViolation(err) {
				run.Counters.Duplicates++
				return nil
			}
			return fmt.Errorf("inserting company %s: %w", company.Domain, err)
		}
		run.Counters.New++
		return nil
	}

	q := &models.DiscoveryQueue{
		ID:            uuid.NewString(),
		Name:          company.Name,
		Domain:        company.Domain,
		CareersURL:    company.CareersURL,
		WebsiteURL:    company.WebsiteURL,
		Source:        company.Source,
		SourceURL:     company.SourceURL,
		Location:      company.Location,
		Country:       company.Country,
		Description:   company.Description,
		Industry:      company.Industry,
		EmployeeCount: company.EmployeeCount,
		FundingStage:  company.FundingStage,
		ATSFamily:     company.ATSFamily,
		ATSIdentifier: company.ATSIdentifier,
		Status:        models.DiscoveryQueueStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.storage.DiscoveryQueue().Insert(ctx, q); err != nil {
		return fmt.Errorf("queuing %s: %w", company.Name, err)
	}
	run.Counters.New++
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique violation")
}

var usStateAbbrev = regexp.MustCompile(`(?i)\b(AL|AK|AZ|AR|CA|CO|CT|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY)\b`)

// hasUSEvidence implements the non_us admission check: no country, no
// recognizable U.S. location, no ATS+careers URL, no trusted-source
// provenance together mean "treat as non-US".
func hasUSEvidence(c models.DiscoveredCompany) bool {
	if strings.EqualFold(c.Country, "US") || strings.EqualFold(c.Country, "USA") || strings.EqualFold(c.Country, "United States") {
		return true
	}
	if usStateAbbrev.MatchString(c.Location) || strings.Contains(strings.ToLower(c.Location), "united states") {
		return true
	}
	if c.ATSFamily != "" && c.CareersURL != "" {
		return true
	}
	if isTrustedSource(c.Source) {
		return true
	}
	return false
}

// isTrustedSource reports whether a Discovery Source's provenance is
// trusted enough, on its own, to waive the U.S.-evidence requirement
// (e.g. a manually-curated seed list vs. an unfiltered RSS scrape).
func isTrustedSource(source string) bool {
	switch source {
	case "manual", "ats_directory", "ats_prober":
		return true
	default:
		return false
	}
}
