package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

var ghJIDFromQuery = regexp.MustCompile(`(?i)[?&]gh_jid=(\d+)`)
var ghJIDFromPath = regexp.MustCompile(`(?i)/jobs/(\d+)`)

type greenhouseJobResponse struct {
	Content   string `json:"content"`
	UpdatedAt string `json:"updated_at"`
}

// GreenhouseEnricher calls the boards-api single-job endpoint once the
// numeric job id has been extracted from the posting URL.
type GreenhouseEnricher struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewGreenhouseEnricher(fetcher interfaces.Fetcher, logger arbor.ILogger) *GreenhouseEnricher {
	return &GreenhouseEnricher{fetcher: fetcher, logger: logger}
}

func (e *GreenhouseEnricher) Family() string { return models.ATSFamilyGreenhouse }

// Enrich extracts the numeric job id from gh_jid, then /jobs/<id>, then
// /careers/<id>, and calls boards-api.greenhouse.io/v1/boards/{slug}/jobs/{id}.
func (e *GreenhouseEnricher) Enrich(ctx context.Context, sourceURL, slug string) (interfaces.EnrichResult, error) {
	jobID := firstMatch(ghJIDFromQuery, sourceURL)
	if jobID == "" {
		jobID = firstMatch(ghJIDFromPath, sourceURL)
	}
	if jobID == "" {
		jobID = firstMatch(regexp.MustCompile(`(?i)/careers/(\d+)`), sourceURL)
	}
	if jobID == "" {
		return interfaces.EnrichResult{}, fmt.Errorf("no job id found in %s", sourceURL)
	}

	apiURL := fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs/%s", slug, jobID)
	body, status, err := e.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("fetching %s: %w", apiURL, err)
	}
	if status == 404 {
		return interfaces.EnrichResult{NotFound: true}, nil
	}
	if status != 200 || body == nil {
		return interfaces.EnrichResult{}, fmt.Errorf("greenhouse job %s returned status %d", jobID, status)
	}

	var resp greenhouseJobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("decoding greenhouse job %s: %w", jobID, err)
	}

	description := stripHTML(resp.Content)
	var postedAt *time.Time
	if t, err := time.Parse(time.RFC3339, resp.UpdatedAt); err == nil {
		postedAt = &t
	}

	return interfaces.EnrichResult{Description: description, PostedAt: postedAt}, nil
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// stripHTML collapses an HTML fragment to plain text via goquery,
// used for Greenhouse's "content" field which is raw HTML.
func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
