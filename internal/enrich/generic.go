package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/interfaces"
)

type genericJSONLD struct {
	Type        string `json:"@type"`
	Description string `json:"description"`
	DatePosted  string `json:"datePosted"`
}

// descriptionSelectors is tried in order once JSON-LD yields nothing.
var descriptionSelectors = []string{".job-description", ".posting-description", ".description", "article"}

// GenericEnricher is the long-tail fallback: fetch the page, try
// JSON-LD description first, then a fixed list of DOM selectors, then
// datePosted from whichever JSON-LD block matched.
type GenericEnricher struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewGenericEnricher(fetcher interfaces.Fetcher, logger arbor.ILogger) *GenericEnricher {
	return &GenericEnricher{fetcher: fetcher, logger: logger}
}

func (e *GenericEnricher) Family() string { return "generic" }

func (e *GenericEnricher) Enrich(ctx context.Context, sourceURL, identifier string) (interfaces.EnrichResult, error) {
	body, status, err := e.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("fetching %s: %w", sourceURL, err)
	}
	if status == 404 {
		return interfaces.EnrichResult{NotFound: true}, nil
	}
	if status != 200 || body == nil {
		return interfaces.EnrichResult{}, fmt.Errorf("%s returned status %d", sourceURL, status)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("parsing %s: %w", sourceURL, err)
	}

	var result interfaces.EnrichResult
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var ld genericJSONLD
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil || ld.Type != "JobPosting" {
			return true
		}
		result.Description = ld.Description
		if t, err := time.Parse(time.RFC3339, ld.DatePosted); err == nil {
			result.PostedAt = &t
		} else if t, err := time.Parse("2006-01-02", ld.DatePosted); err == nil {
			result.PostedAt = &t
		}
		return false
	})

	if result.Description == "" {
		for _, sel := range descriptionSelectors {
			if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
				result.Description = text
				break
			}
		}
	}

	if result.Description == "" {
		return interfaces.EnrichResult{}, fmt.Errorf("no description found for %s", sourceURL)
	}
	return result, nil
}
