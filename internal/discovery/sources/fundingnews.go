package sources

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// fundingKeywords gate an item in before the more expensive regex
// extraction runs over its title/description.
var fundingKeywords = []string{"raises", "raised", "funding", "series a", "series b", "series c", "seed round", "closes round"}

// fundingPatterns extract a company name from common funding-headline
// phrasings. The first capture group of each is the name; the later
// groups only match the amount's unit and wording.
var fundingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^([A-Z][\w.&' -]{1,60}?)\s+raises?\s+\$?[\d.]+\s*(million|billion|m|b|k)\b`),
	regexp.MustCompile(`(?i)^([A-Z][\w.&' -]{1,60}?)\s+closes\s+\$?[\d.]+\s*(million|billion|m|b|k)\s+(round|raise)`),
	regexp.MustCompile(`(?i)^([A-Z][\w.&' -]{1,60}?)\s+lands?\s+\$?[\d.]+\s*(million|billion|m|b|k)\b`),
	regexp.MustCompile(`(?i)^([A-Z][\w.&' -]{1,60}?)\s+secures?\s+\$?[\d.]+\s*(million|billion|m|b|k)\b`),
}

var fundingAmount = regexp.MustCompile(`(?i)\$?([\d.]+)\s*(million|billion|m|b)\b`)

// usLocationHint matches a U.S. state abbreviation or spelled-out
// "United States"/"U.S." in free text, the only signal this source has
// for the admission rule's US-evidence check: funding headlines rarely
// state a country, so a company is only treated as US when the
// article text actually says so.
var usLocationHint = regexp.MustCompile(`\b(AL|AK|AZ|AR|CA|CO|CT|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY|United States)\b|\bU\.S\.`)

// FundingNews discovers candidate employers from a set of RSS/Atom
// feeds, extracting company names from funding-announcement headlines.
// Emissions never have both domain and careers_url, so the Orchestrator
// always parks them in the DiscoveryQueue for later ATS-fallback
// resolution.
type FundingNews struct {
	feedURLs []string
	parser   *gofeed.Parser
	current  int
	total    int
}

// NewFundingNews builds a FundingNews source over feedURLs.
func NewFundingNews(feedURLs []string) *FundingNews {
	return &FundingNews{feedURLs: feedURLs, parser: gofeed.NewParser(), total: len(feedURLs)}
}

var _ interfaces.DiscoverySource = (*FundingNews)(nil)

func (s *FundingNews) Name() string { return "funding_news" }

func (s *FundingNews) Initialize(ctx context.Context) error { return nil }

func (s *FundingNews) Cleanup(ctx context.Context) error { return nil }

func (s *FundingNews) Progress() (int, int) { return s.current, s.total }

func (s *FundingNews) Discover(ctx context.Context, dedup interfaces.DedupService) (<-chan models.DiscoveredCompany, error) {
	out := make(chan models.DiscoveredCompany)

	go func() {
		defer close(out)
		seen := make(map[string]bool)

		for _, feedURL := range s.feedURLs {
			if ctx.Err() != nil {
				return
			}
			s.current++

			feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
			if err != nil || feed == nil {
				continue
			}

			for _, item := range feed.Items {
				text := item.Title
				if item.Description != "" {
					text += " " + item.Description
				}
				if !mentionsFunding(text) {
					continue
				}

				name, stage := extractFunding(item.Title)
				if name == "" {
					continue
				}
				key := strings.ToLower(name)
				if seen[key] {
					continue
				}
				seen[key] = true

				company := models.DiscoveredCompany{
					Name:         name,
					Source:       s.Name(),
					SourceURL:    item.Link,
					Description:  item.Description,
					FundingStage: stage,
				}
				if usLocationHint.MatchString(text) {
					company.Country = "US"
				}

				select {
				case out <- company:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func mentionsFunding(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range fundingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// extractFunding applies the funding-headline regex templates and
// returns the extracted company name plus a coarse funding-stage
// label derived from the dollar amount (rough: <$3M seed, <$20M
// series_a, <$60M series_b, else growth).
func extractFunding(title string) (name, stage string) {
	title = strings.TrimSpace(title)
	for _, pattern := range fundingPatterns {
		m := pattern.FindStringSubmatch(title)
		if len(m) >= 2 {
			name = strings.TrimSpace(m[1])
			break
		}
	}
	if name == "" {
		return "", ""
	}

	if am := fundingAmount.FindStringSubmatch(title); len(am) == 3 {
		amount, err := strconv.ParseFloat(am[1], 64)
		if err == nil {
			unit := strings.ToLower(am[2])
			if unit == "billion" || unit == "b" {
				amount *= 1000
			}
			switch {
			case amount < 3:
				stage = "seed"
			case amount < 20:
				stage = "series_a"
			case amount < 60:
				stage = "series_b"
			default:
				stage = "growth"
			}
		}
	}
	return name, stage
}
