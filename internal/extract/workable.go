package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// WorkableListAPITemplate is the public jobs-widget endpoint keyed by
// account slug.
const WorkableListAPITemplate = "https://apply.workable.com/api/v1/widget/accounts/%s"

var workableShortCodeRe = regexp.MustCompile(`/j/([A-Z0-9]+)`)

type workableJobsResponse struct {
	Jobs []workableJob `json:"jobs"`
}

type workableJob struct {
	Title       string `json:"title"`
	Shortcode   string `json:"shortcode"`
	URL         string `json:"url"`
	Department  string `json:"department"`
	Location    struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
	EmploymentType string `json:"employment_type"`
	PublishedOn    string `json:"published_on"`
}

// WorkableExtractor implements interfaces.Extractor for
// apply.workable.com boards.
type WorkableExtractor struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewWorkableExtractor(fetcher interfaces.Fetcher, logger arbor.ILogger) *WorkableExtractor {
	return &WorkableExtractor{fetcher: fetcher, logger: logger}
}

var _ interfaces.Extractor = (*WorkableExtractor)(nil)

func (e *WorkableExtractor) Family() string { return models.ATSFamilyWorkable }

func (e *WorkableExtractor) Extract(ctx context.Context, body []byte, sourceURL string, identifier string) ([]interfaces.ExtractedJob, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		if jobs, ok := e.parseJSON(body); ok {
			return jobs, nil
		}
	}

	if identifier != "" && e.fetcher != nil {
		if jobs, err := e.fetchAPI(ctx, identifier); err == nil && len(jobs) > 0 {
			return jobs, nil
		}
	}

	return e.parseHTML(body, sourceURL)
}

func (e *WorkableExtractor) parseJSON(body []byte) ([]interfaces.ExtractedJob, bool) {
	var resp workableJobsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false
	}
	return e.jobsFromResponse(resp), len(resp.Jobs) > 0
}

func (e *WorkableExtractor) fetchAPI(ctx context.Context, accountSlug string) ([]interfaces.ExtractedJob, error) {
	apiURL := fmt.Sprintf(WorkableListAPITemplate, accountSlug)
	body, status, err := e.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("workable API fetch for %s: %w", accountSlug, err)
	}
	if status != 200 || body == nil {
		if e.logger != nil {
			e.logger.Debug().Str("account", accountSlug).Int("status", status).Msg("workable API extraction failed")
		}
		return nil, nil
	}

	var resp workableJobsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding workable response for %s: %w", accountSlug, err)
	}
	return e.jobsFromResponse(resp), nil
}

func (e *WorkableExtractor) jobsFromResponse(resp workableJobsResponse) []interfaces.ExtractedJob {
	jobs := make([]interfaces.ExtractedJob, 0, len(resp.Jobs))
	for _, jd := range resp.Jobs {
		if jd.Title == "" {
			continue
		}
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:          jd.Title,
			SourceURL:      jd.URL,
			Location:       buildLocation(jd.Location.City, jd.Location.Region, jd.Location.Country, ""),
			Department:     jd.Department,
			EmploymentType: jd.EmploymentType,
			PostedAt:       parseFlexibleTime(jd.PublishedOn),
		})
	}
	return jobs
}

func (e *WorkableExtractor) parseHTML(body []byte, sourceURL string) ([]interfaces.ExtractedJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing workable HTML: %w", err)
	}
	base, _ := url.Parse(sourceURL)

	var jobs []interfaces.ExtractedJob
	doc.Find(`li[data-ui="job"], .job-listing`).Each(func(_ int, s *goquery.Selection) {
		titleSel := s.Find(`h3, .job-title, [data-ui="job-title"]`).First()
		title := cleanText(titleSel.Text())
		if title == "" {
			return
		}
		link := s.Find("a[href]").First()
		href, _ := link.Attr("href")
		jobURL := sourceURL
		if href != "" {
			jobURL = resolveURL(base, href)
		}
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:     title,
			SourceURL: jobURL,
			Location:  cleanText(s.Find(`[data-ui="job-location"], .location`).First().Text()),
		})
	})
	if len(jobs) > 0 {
		return jobs, nil
	}

	jobs = append(jobs, extractJSONLD(doc, sourceURL)...)
	return jobs, nil
}

// workableShortCode extracts the job short-code from a /j/<CODE> posting
// URL.
func workableShortCode(sourceURL string) string {
	if m := workableShortCodeRe.FindStringSubmatch(sourceURL); len(m) > 1 {
		return m[1]
	}
	return ""
}
