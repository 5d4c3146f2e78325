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
	"github.com/ternarybob/atsforge/internal/models"
)

type leverJSONLD struct {
	Type        string `json:"@type"`
	Description string `json:"description"`
	DatePosted  string `json:"datePosted"`
}

// LeverEnricher fetches the posting page directly and prefers the
// embedded JSON-LD description/datePosted, falling back to the
// ".posting-description" DOM node.
type LeverEnricher struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewLeverEnricher(fetcher interfaces.Fetcher, logger arbor.ILogger) *LeverEnricher {
	return &LeverEnricher{fetcher: fetcher, logger: logger}
}

func (e *LeverEnricher) Family() string { return models.ATSFamilyLever }

func (e *LeverEnricher) Enrich(ctx context.Context, sourceURL, identifier string) (interfaces.EnrichResult, error) {
	body, status, err := e.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("fetching %s: %w", sourceURL, err)
	}
	if status == 404 {
		return interfaces.EnrichResult{NotFound: true}, nil
	}
	if status != 200 || body == nil {
		return interfaces.EnrichResult{}, fmt.Errorf("lever posting %s returned status %d", sourceURL, status)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return interfaces.EnrichResult{}, fmt.Errorf("parsing lever posting %s: %w", sourceURL, err)
	}

	var result interfaces.EnrichResult
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var ld leverJSONLD
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
		result.Description = strings.TrimSpace(doc.Find(".posting-description").Text())
	}
	if result.Description == "" {
		return interfaces.EnrichResult{}, fmt.Errorf("no description found for %s", sourceURL)
	}
	return result, nil
}
