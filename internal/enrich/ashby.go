package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

var ashbyUUIDRe = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

type ashbyPostingDetail struct {
	Description string `json:"descriptionHtml"`
	PublishedAt string `json:"publishedAt"`
}

type ashbyListing struct {
	Jobs []struct {
		ID          string `json:"id"`
		Description string `json:"descriptionHtml"`
		PublishedAt string `json:"publishedAt"`
	} `json:"jobs"`
}

// AshbyEnricher extracts the UUID job id from the posting URL and
// calls the posting-API single-job endpoint; on 404 it falls back to
// the listing endpoint and searches by id before giving up.
type AshbyEnricher struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewAshbyEnricher(fetcher interfaces.Fetcher, logger arbor.ILogger) *AshbyEnricher {
	return &AshbyEnricher{fetcher: fetcher, logger: logger}
}

func (e *AshbyEnricher) Family() string { return models.ATSFamilyAshby }

func (e *AshbyEnricher) Enrich(ctx context.Context, sourceURL, slug string) (interfaces.EnrichResult, error) {
	jobID := ashbyUUIDRe.FindString(sourceURL)
	if jobID == "" {
		return interfaces.EnrichResult{}, fmt.Errorf("no job id found in %s", sourceURL)
	}

	singleURL := fmt.Sprintf("https://api.ashbyhq.com/posting-api/job-board/%s/posting/%s", slug, jobID)
	body, status, err := e.fetcher.Fetch(ctx, singleURL)
	if err == nil && status == 200 && body != nil {
		var detail ashbyPostingDetail
		if json.Unmarshal(body, &detail) == nil && detail.Description != "" {
			return interfaces.EnrichResult{Description: stripHTML(detail.Description), PostedAt: parseAshbyTime(detail.PublishedAt)}, nil
		}
	}
	if status != 404 && err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("fetching %s: %w", singleURL, err)
	}

	listURL := fmt.Sprintf("https://api.ashbyhq.com/posting-api/job-board/%s", slug)
	listBody, listStatus, err := e.fetcher.Fetch(ctx, listURL)
	if err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("fetching %s: %w", listURL, err)
	}
	if listStatus == 404 {
		return interfaces.EnrichResult{NotFound: true}, nil
	}
	if listStatus != 200 || listBody == nil {
		return interfaces.EnrichResult{}, fmt.Errorf("ashby board %s returned status %d", slug, listStatus)
	}

	var listing ashbyListing
	if err := json.Unmarshal(listBody, &listing); err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("decoding ashby board %s: %w", slug, err)
	}
	for _, j := range listing.Jobs {
		if j.ID == jobID {
			return interfaces.EnrichResult{Description: stripHTML(j.Description), PostedAt: parseAshbyTime(j.PublishedAt)}, nil
		}
	}
	return interfaces.EnrichResult{NotFound: true}, nil
}

func parseAshbyTime(s string) *time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}
