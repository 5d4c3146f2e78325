package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// GreenhouseAPITemplate is the public jobs-list endpoint keyed by board
// token.
const GreenhouseAPITemplate = "https://boards-api.greenhouse.io/v1/boards/%s/jobs"

type greenhouseJobsResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	Title        string `json:"title"`
	AbsoluteURL  string `json:"absolute_url"`
	UpdatedAt    string `json:"updated_at"`
	Location     struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
}

// GreenhouseExtractor implements interfaces.Extractor for boards.greenhouse.io.
type GreenhouseExtractor struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

// NewGreenhouseExtractor builds an Extractor that calls the Greenhouse
// public jobs API when an identifier is known, falling back to HTML.
func NewGreenhouseExtractor(fetcher interfaces.Fetcher, logger arbor.ILogger) *GreenhouseExtractor {
	return &GreenhouseExtractor{fetcher: fetcher, logger: logger}
}

var _ interfaces.Extractor = (*GreenhouseExtractor)(nil)

func (e *GreenhouseExtractor) Family() string { return models.ATSFamilyGreenhouse }

func (e *GreenhouseExtractor) Extract(ctx context.Context, body []byte, sourceURL string, identifier string) ([]interfaces.ExtractedJob, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		if jobs, ok := e.parseJSON(body); ok {
			return jobs, nil
		}
	}

	if identifier != "" {
		if jobs, err := e.fetchAPI(ctx, identifier); err == nil && len(jobs) > 0 {
			return jobs, nil
		}
	}

	return e.parseHTML(body, sourceURL)
}

func (e *GreenhouseExtractor) parseJSON(body []byte) ([]interfaces.ExtractedJob, bool) {
	var resp greenhouseJobsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false
	}
	return e.jobsFromResponse(resp), len(resp.Jobs) > 0
}

func (e *GreenhouseExtractor) fetchAPI(ctx context.Context, boardToken string) ([]interfaces.ExtractedJob, error) {
	apiURL := fmt.Sprintf(GreenhouseAPITemplate, boardToken)
	body, status, err := e.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("greenhouse API fetch for %s: %w", boardToken, err)
	}
	if status != 200 || body == nil {
		if e.logger != nil {
			e.logger.Debug().Str("board", boardToken).Int("status", status).Msg("greenhouse API extraction failed")
		}
		return nil, nil
	}

	var resp greenhouseJobsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding greenhouse response for %s: %w", boardToken, err)
	}
	return e.jobsFromResponse(resp), nil
}

func (e *GreenhouseExtractor) jobsFromResponse(resp greenhouseJobsResponse) []interfaces.ExtractedJob {
	jobs := make([]interfaces.ExtractedJob, 0, len(resp.Jobs))
	for _, jd := range resp.Jobs {
		var departments []string
		for _, d := range jd.Departments {
			if d.Name != "" {
				departments = append(departments, d.Name)
			}
		}
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:       jd.Title,
			SourceURL:   jd.AbsoluteURL,
			Location:    jd.Location.Name,
			Department:  strings.Join(departments, ", "),
			PostedAt:    parseFlexibleTime(jd.UpdatedAt),
		})
	}
	return jobs
}

func (e *GreenhouseExtractor) parseHTML(body []byte, sourceURL string) ([]interfaces.ExtractedJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing greenhouse HTML: %w", err)
	}
	base, _ := url.Parse(sourceURL)

	var jobs []interfaces.ExtractedJob

	doc.Find(".opening").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		title := cleanText(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}
		location := cleanText(s.Find(".location").First().Text())
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:     title,
			SourceURL: resolveURL(base, href),
			Location:  location,
		})
	})
	if len(jobs) > 0 {
		return jobs, nil
	}

	doc.Find(".job-card, .job-post, [data-job-id]").Each(func(_ int, s *goquery.Selection) {
		titleSel := s.Find("h2, h3, .job-title, [data-job-title]").First()
		if titleSel.Length() == 0 {
			titleSel = s.Find("a").First()
		}
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
			Title:      title,
			SourceURL:  jobURL,
			Location:   cleanText(s.Find(".location, [data-location]").First().Text()),
			Department: cleanText(s.Find(".department, [data-department]").First().Text()),
		})
	})
	if len(jobs) > 0 {
		return jobs, nil
	}

	seen := map[string]bool{}
	doc.Find(`a[href*="/jobs/"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		title := cleanText(s.Text())
		if len(title) > 3 {
			jobs = append(jobs, interfaces.ExtractedJob{Title: title, SourceURL: resolveURL(base, href)})
		}
	})

	jobs = append(jobs, extractJSONLD(doc, sourceURL)...)
	return jobs, nil
}
