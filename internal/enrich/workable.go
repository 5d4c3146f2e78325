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

var workableShortCodeRe = regexp.MustCompile(`(?i)/j/([A-Z0-9]+)`)

type workableJobDetail struct {
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// WorkableEnricher extracts the short-code from a /j/<code> URL and
// calls the accounts jobs API.
type WorkableEnricher struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewWorkableEnricher(fetcher interfaces.Fetcher, logger arbor.ILogger) *WorkableEnricher {
	return &WorkableEnricher{fetcher: fetcher, logger: logger}
}

func (e *WorkableEnricher) Family() string { return models.ATSFamilyWorkable }

func (e *WorkableEnricher) Enrich(ctx context.Context, sourceURL, slug string) (interfaces.EnrichResult, error) {
	code := firstMatch(workableShortCodeRe, sourceURL)
	if code == "" {
		return interfaces.EnrichResult{}, fmt.Errorf("no short code found in %s", sourceURL)
	}

	apiURL := fmt.Sprintf("https://apply.workable.com/api/v2/accounts/%s/jobs/%s", slug, code)
	body, status, err := e.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("fetching %s: %w", apiURL, err)
	}
	if status == 404 {
		return interfaces.EnrichResult{NotFound: true}, nil
	}
	if status != 200 || body == nil {
		return interfaces.EnrichResult{}, fmt.Errorf("workable job %s returned status %d", code, status)
	}

	var detail workableJobDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("decoding workable job %s: %w", code, err)
	}

	var postedAt *time.Time
	if t, err := time.Parse(time.RFC3339, detail.CreatedAt); err == nil {
		postedAt = &t
	}
	return interfaces.EnrichResult{Description: stripHTML(detail.Description), PostedAt: postedAt}, nil
}
