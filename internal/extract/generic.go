package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// jobSelectors are tried in order against unknown page structures.
var jobSelectors = []string{
	".job", ".job-listing", ".job-post", ".job-card",
	".career", ".opening", ".position", ".vacancy",
	"[data-job]", "[data-job-id]", "[data-posting]",
	".jobs-list li", ".careers-list li", ".openings-list li",
	".jobs-table tr", "table.jobs tr",
}

var excludeSelectors = []string{
	"nav", "footer", "header", ".nav", ".footer", ".header",
	".sidebar", ".menu", ".cookie", ".banner", ".popup",
}

var jobURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/jobs?/`),
	regexp.MustCompile(`(?i)/careers?/`),
	regexp.MustCompile(`(?i)/positions?/`),
	regexp.MustCompile(`(?i)/openings?/`),
	regexp.MustCompile(`(?i)/opportunities/`),
	regexp.MustCompile(`(?i)/apply/`),
}

var navTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^view\s+(all|more|job)`),
	regexp.MustCompile(`(?i)^see\s+(all|more)`),
	regexp.MustCompile(`(?i)^apply\s+now`),
	regexp.MustCompile(`(?i)^learn\s+more`),
	regexp.MustCompile(`(?i)^read\s+more`),
	regexp.MustCompile(`(?i)^click\s+here`),
	regexp.MustCompile(`(?i)^back\s+to`),
	regexp.MustCompile(`(?i)^(home|about|contact|careers?|jobs?)$`),
}

// GenericExtractor handles the long tail of ATS families without a
// dedicated implementation, plus any custom (non-ATS) careers page.
type GenericExtractor struct {
	llm        interfaces.LLMClient
	llmEnabled bool
	logger     arbor.ILogger
}

// NewGenericExtractor builds a GenericExtractor. llm may be nil, in
// which case the LLM-assisted fallback is skipped.
func NewGenericExtractor(llm interfaces.LLMClient, logger arbor.ILogger) *GenericExtractor {
	return &GenericExtractor{llm: llm, llmEnabled: llm != nil, logger: logger}
}

var _ interfaces.Extractor = (*GenericExtractor)(nil)

func (e *GenericExtractor) Family() string { return models.ATSFamilyCustom }

func (e *GenericExtractor) Extract(ctx context.Context, body []byte, sourceURL string, identifier string) ([]interfaces.ExtractedJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(sourceURL)

	for _, sel := range excludeSelectors {
		doc.Find(sel).Remove()
	}

	if jobs := extractJSONLD(doc, sourceURL); len(jobs) > 0 {
		return jobs, nil
	}

	for _, sel := range jobSelectors {
		var jobs []interfaces.ExtractedJob
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if job, ok := parseGenericElement(s, base, sourceURL); ok {
				jobs = append(jobs, job)
			}
		})
		if len(jobs) > 0 {
			return jobs, nil
		}
	}

	if jobs := extractFromLinks(doc, base, sourceURL); len(jobs) > 0 {
		return jobs, nil
	}

	if e.llmEnabled {
		jobs, err := extractWithLLM(ctx, e.llm, doc, sourceURL)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn().Err(err).Str("url", sourceURL).Msg("LLM extraction fallback failed")
			}
			return nil, nil
		}
		return jobs, nil
	}

	return nil, nil
}

func parseGenericElement(s *goquery.Selection, base *url.URL, fallbackURL string) (interfaces.ExtractedJob, bool) {
	titleSel := s.Find(`h1, h2, h3, h4, .title, [class*='title']`).First()
	if titleSel.Length() == 0 {
		titleSel = s.Find("a").First()
	}
	title := cleanText(titleSel.Text())
	if len(title) < 5 {
		return interfaces.ExtractedJob{}, false
	}

	link := s.Find("a[href]").First()
	href, _ := link.Attr("href")
	jobURL := fallbackURL
	if href != "" {
		jobURL = resolveURL(base, href)
	}

	return interfaces.ExtractedJob{
		Title:      title,
		SourceURL:  jobURL,
		Location:   cleanText(s.Find(`.location, [class*='location'], [data-location]`).First().Text()),
		Department: cleanText(s.Find(`.department, [class*='department'], [class*='team']`).First().Text()),
	}, true
}

func extractFromLinks(doc *goquery.Document, base *url.URL, sourceURL string) []interfaces.ExtractedJob {
	var jobs []interfaces.ExtractedJob
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		isJobURL := false
		for _, re := range jobURLPatterns {
			if re.MatchString(href) {
				isJobURL = true
				break
			}
		}
		if !isJobURL {
			return
		}

		fullURL := resolveURL(base, href)
		if seen[fullURL] {
			return
		}
		seen[fullURL] = true

		title := cleanText(s.Text())
		if len(title) > 5 && !isNavigationText(title) {
			jobs = append(jobs, interfaces.ExtractedJob{Title: title, SourceURL: fullURL})
		}
	})

	return jobs
}

func isNavigationText(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, re := range navTextPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
