// Package extract provides one Extractor per ATS family, plus a generic
// fallback for the long tail of families without dedicated API support.
package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/atsforge/internal/interfaces"
)

// resolveURL resolves ref against base, returning ref unchanged if either
// fails to parse.
func resolveURL(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// parseFlexibleTime tries the handful of timestamp shapes ATS APIs
// actually send back.
func parseFlexibleTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999Z", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

var salaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$[\d,]+(?:\s*-\s*\$[\d,]+)?(?:\s*(?:per|/)\s*(?:year|yr|hour|hr))?`),
	regexp.MustCompile(`(?i)[\d,]+k\s*-\s*[\d,]+k`),
	regexp.MustCompile(`£[\d,]+(?:\s*-\s*£[\d,]+)?`),
	regexp.MustCompile(`€[\d,]+(?:\s*-\s*€[\d,]+)?`),
}

// cleanText collapses whitespace runs and trims the result, returning ""
// for blank input.
func cleanText(s string) string {
	fields := strings.Fields(s)
	return strings.TrimSpace(strings.Join(fields, " "))
}

// extractSalary scans free text for the first recognizable salary
// substring.
func extractSalary(text string) string {
	for _, re := range salaryPatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// buildLocation joins non-empty city/state/country parts with ", ",
// falling back to fallback when every part is empty.
func buildLocation(city, state, country, fallback string) string {
	var parts []string
	for _, p := range []string{city, state, country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}

// jsonLDPosting mirrors the schema.org JobPosting fields the base
// extractor understands.
type jsonLDPosting struct {
	Type           string          `json:"@type"`
	Title          string          `json:"title"`
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Description    string          `json:"description"`
	DatePosted     string          `json:"datePosted"`
	EmploymentType string          `json:"employmentType"`
	JobLocation    json.RawMessage `json:"jobLocation"`
	BaseSalary     json.RawMessage `json:"baseSalary"`
	Graph          json.RawMessage `json:"@graph"`
	ItemListElem   json.RawMessage `json:"itemListElement"`
	MainEntity     json.RawMessage `json:"mainEntity"`
}

// extractJSONLD scans doc for <script type="application/ld+json"> tags
// and returns every schema.org JobPosting found, including ones nested
// under @graph, itemListElement, or mainEntity.
func extractJSONLD(doc *goquery.Document, baseURL string) []interfaces.ExtractedJob {
	var jobs []interfaces.ExtractedJob

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var data json.RawMessage
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}
		parseJSONLDRecursive(data, baseURL, &jobs)
	})

	return jobs
}

func parseJSONLDRecursive(data json.RawMessage, baseURL string, jobs *[]interfaces.ExtractedJob) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return
	}

	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return
		}
		for _, item := range list {
			parseJSONLDRecursive(item, baseURL, jobs)
		}
		return
	}

	var posting jsonLDPosting
	if err := json.Unmarshal(data, &posting); err != nil {
		return
	}

	if posting.Type == "JobPosting" {
		if job, ok := jobFromJSONLD(posting, baseURL); ok {
			*jobs = append(*jobs, job)
		}
	}

	for _, nested := range [][]byte{posting.Graph, posting.ItemListElem, posting.MainEntity} {
		if len(nested) > 0 {
			parseJSONLDRecursive(nested, baseURL, jobs)
		}
	}
}

func jobFromJSONLD(posting jsonLDPosting, baseURL string) (interfaces.ExtractedJob, bool) {
	title := posting.Title
	if title == "" {
		title = posting.Name
	}
	if title == "" {
		return interfaces.ExtractedJob{}, false
	}

	sourceURL := posting.URL
	if sourceURL == "" {
		sourceURL = baseURL
	}

	var postedAt *time.Time
	if posting.DatePosted != "" {
		if t, err := time.Parse(time.RFC3339, posting.DatePosted); err == nil {
			postedAt = &t
		} else if t, err := time.Parse("2006-01-02", posting.DatePosted); err == nil {
			postedAt = &t
		}
	}

	return interfaces.ExtractedJob{
		Title:          cleanText(title),
		SourceURL:      sourceURL,
		Description:    posting.Description,
		Location:       parseJSONLDLocation(posting.JobLocation),
		EmploymentType: posting.EmploymentType,
		PostedAt:       postedAt,
		SalaryRaw:      parseJSONLDSalary(posting.BaseSalary),
	}, true
}

func parseJSONLDLocation(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "" || trimmed == "null":
		return ""
	case trimmed[0] == '"':
		var s string
		json.Unmarshal(raw, &s)
		return s
	case trimmed[0] == '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return parseJSONLDLocation(list[0])
		}
		return ""
	case trimmed[0] == '{':
		var obj struct {
			Name    string `json:"name"`
			Address json.RawMessage `json:"address"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		addrTrimmed := strings.TrimSpace(string(obj.Address))
		if strings.HasPrefix(addrTrimmed, `"`) {
			var s string
			json.Unmarshal(obj.Address, &s)
			return s
		}
		if strings.HasPrefix(addrTrimmed, "{") {
			var addr struct {
				Locality string `json:"addressLocality"`
				Region   string `json:"addressRegion"`
				Country  string `json:"addressCountry"`
			}
			if err := json.Unmarshal(obj.Address, &addr); err == nil {
				return buildLocation(addr.Locality, addr.Region, addr.Country, obj.Name)
			}
		}
		return obj.Name
	}
	return ""
}

func parseJSONLDSalary(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var salary struct {
		Currency string `json:"currency"`
		Value    struct {
			MinValue float64 `json:"minValue"`
			MaxValue float64 `json:"maxValue"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &salary); err != nil {
		return ""
	}
	currency := salary.Currency
	if currency == "" {
		currency = "USD"
	}
	switch {
	case salary.Value.MinValue > 0 && salary.Value.MaxValue > 0:
		return currency + " " + formatAmount(salary.Value.MinValue) + " - " + formatAmount(salary.Value.MaxValue)
	case salary.Value.MinValue > 0:
		return currency + " " + formatAmount(salary.Value.MinValue) + "+"
	case salary.Value.MaxValue > 0:
		return "Up to " + currency + " " + formatAmount(salary.Value.MaxValue)
	}
	return ""
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}
