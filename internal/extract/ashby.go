package extract

import (
	"bytes"
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

const ashbyGraphQLURL = "https://jobs.ashbyhq.com/api/non-user-graphql"

var ashbyPostingIDRe = regexp.MustCompile(`/[a-f0-9-]{36}/?$`)

const ashbyJobBoardQuery = `query JobBoardWithSearch($organizationHostedJobsPageName: String!) {
  jobBoard: jobBoardWithSearch(organizationHostedJobsPageName: $organizationHostedJobsPageName) {
    jobPostings {
      id
      title
      locationName
      teamName
      employmentType
      compensationTierSummary
      publishedDate
    }
  }
}`

type ashbyPosting struct {
	ID                      string `json:"id"`
	Title                   string `json:"title"`
	LocationName            string `json:"locationName"`
	TeamName                string `json:"teamName"`
	EmploymentType          string `json:"employmentType"`
	CompensationTierSummary string `json:"compensationTierSummary"`
	PublishedDate           string `json:"publishedDate"`
}

type ashbyGraphQLResponse struct {
	Data struct {
		JobBoard struct {
			JobPostings []ashbyPosting `json:"jobPostings"`
		} `json:"jobBoard"`
	} `json:"data"`
}

type ashbyPostingAPIResponse struct {
	Jobs []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Location json.RawMessage `json:"location"`
		Team     struct {
			Name string `json:"name"`
		} `json:"team"`
		EmploymentType string `json:"employmentType"`
		PublishedAt    string `json:"publishedAt"`
	} `json:"jobs"`
}

// AshbyExtractor implements interfaces.Extractor for jobs.ashbyhq.com.
type AshbyExtractor struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewAshbyExtractor(fetcher interfaces.Fetcher, logger arbor.ILogger) *AshbyExtractor {
	return &AshbyExtractor{fetcher: fetcher, logger: logger}
}

var _ interfaces.Extractor = (*AshbyExtractor)(nil)

func (e *AshbyExtractor) Family() string { return models.ATSFamilyAshby }

func (e *AshbyExtractor) Extract(ctx context.Context, body []byte, sourceURL string, identifier string) ([]interfaces.ExtractedJob, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		if jobs, ok := e.parsePostingAPI(body, identifier); ok {
			return jobs, nil
		}
	}

	if identifier != "" && e.fetcher != nil {
		if jobs, err := e.fetchGraphQL(ctx, identifier); err == nil && len(jobs) > 0 {
			return jobs, nil
		}
	}

	return e.parseHTML(body, sourceURL)
}

func (e *AshbyExtractor) parsePostingAPI(body []byte, orgSlug string) ([]interfaces.ExtractedJob, bool) {
	var resp ashbyPostingAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false
	}
	jobs := make([]interfaces.ExtractedJob, 0, len(resp.Jobs))
	for _, jd := range resp.Jobs {
		if jd.Title == "" {
			continue
		}
		jobURL := fmt.Sprintf("https://jobs.ashbyhq.com/job/%s", jd.ID)
		if orgSlug != "" {
			jobURL = fmt.Sprintf("https://jobs.ashbyhq.com/%s/%s", orgSlug, jd.ID)
		}
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:          jd.Title,
			SourceURL:      jobURL,
			Location:       parseJSONLDLocation(jd.Location),
			Department:     jd.Team.Name,
			EmploymentType: jd.EmploymentType,
			PostedAt:       parseFlexibleTime(jd.PublishedAt),
		})
	}
	return jobs, len(resp.Jobs) > 0
}

func (e *AshbyExtractor) fetchGraphQL(ctx context.Context, orgSlug string) ([]interfaces.ExtractedJob, error) {
	payload, err := json.Marshal(map[string]any{
		"operationName": "JobBoardWithSearch",
		"variables":     map[string]string{"organizationHostedJobsPageName": orgSlug},
		"query":         ashbyJobBoardQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding ashby graphql request: %w", err)
	}

	body, status, err := e.fetcher.Post(ctx, ashbyGraphQLURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ashby graphql fetch for %s: %w", orgSlug, err)
	}
	if status != 200 || body == nil {
		if e.logger != nil {
			e.logger.Debug().Str("org", orgSlug).Int("status", status).Msg("ashby graphql extraction failed")
		}
		return nil, nil
	}

	var resp ashbyGraphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding ashby graphql response for %s: %w", orgSlug, err)
	}

	jobs := make([]interfaces.ExtractedJob, 0, len(resp.Data.JobBoard.JobPostings))
	for _, p := range resp.Data.JobBoard.JobPostings {
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:          p.Title,
			SourceURL:      fmt.Sprintf("https://jobs.ashbyhq.com/%s/%s", orgSlug, p.ID),
			Location:       p.LocationName,
			Department:     p.TeamName,
			EmploymentType: p.EmploymentType,
			SalaryRaw:      p.CompensationTierSummary,
			PostedAt:       parseFlexibleTime(p.PublishedDate),
		})
	}
	return jobs, nil
}

func (e *AshbyExtractor) parseHTML(body []byte, sourceURL string) ([]interfaces.ExtractedJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing ashby HTML: %w", err)
	}
	base, _ := url.Parse(sourceURL)

	if jobs, ok := e.parseNextData(doc, sourceURL); ok {
		return jobs, nil
	}

	var jobs []interfaces.ExtractedJob
	doc.Find(`[class*="JobPosting"], [class*="job-posting"]`).Each(func(_ int, s *goquery.Selection) {
		titleSel := s.Find(`h3, h4, [class*='title']`).First()
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
			Location:   cleanText(s.Find(`[class*='location']`).First().Text()),
			Department: cleanText(s.Find(`[class*='team'], [class*='department']`).First().Text()),
		})
	})
	if len(jobs) > 0 {
		return jobs, nil
	}

	seen := map[string]bool{}
	doc.Find(`a[href*="ashbyhq.com"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || seen[href] || !ashbyPostingIDRe.MatchString(href) {
			return
		}
		seen[href] = true
		title := cleanText(s.Text())
		if len(title) > 3 {
			jobs = append(jobs, interfaces.ExtractedJob{Title: title, SourceURL: href})
		}
	})

	return jobs, nil
}

func (e *AshbyExtractor) parseNextData(doc *goquery.Document, sourceURL string) ([]interfaces.ExtractedJob, bool) {
	script := doc.Find(`script#__NEXT_DATA__`)
	if script.Length() == 0 {
		return nil, false
	}

	var payload struct {
		Props struct {
			PageProps struct {
				JobPostings []ashbyPosting `json:"jobPostings"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
		return nil, false
	}

	base, _ := url.Parse(sourceURL)
	jobs := make([]interfaces.ExtractedJob, 0, len(payload.Props.PageProps.JobPostings))
	for _, p := range payload.Props.PageProps.JobPostings {
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:          p.Title,
			SourceURL:      resolveURL(base, "/"+p.ID),
			Location:       p.LocationName,
			Department:     p.TeamName,
			EmploymentType: p.EmploymentType,
		})
	}
	return jobs, len(jobs) > 0
}
