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

var leverPostingIDRe = regexp.MustCompile(`/[a-f0-9-]{36}/?$`)

type leverPosting struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	HostedURL    string `json:"hostedUrl"`
	ApplyURL     string `json:"applyUrl"`
	DescPlain    string `json:"descriptionPlain"`
	Categories   struct {
		Location   string `json:"location"`
		Department string `json:"department"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
}

// LeverExtractor implements interfaces.Extractor for jobs.lever.co.
type LeverExtractor struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

func NewLeverExtractor(fetcher interfaces.Fetcher, logger arbor.ILogger) *LeverExtractor {
	return &LeverExtractor{fetcher: fetcher, logger: logger}
}

var _ interfaces.Extractor = (*LeverExtractor)(nil)

func (e *LeverExtractor) Family() string { return models.ATSFamilyLever }

func (e *LeverExtractor) Extract(ctx context.Context, body []byte, sourceURL string, identifier string) ([]interfaces.ExtractedJob, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var postings []leverPosting
		if err := json.Unmarshal(body, &postings); err == nil && len(postings) > 0 {
			return e.jobsFromPostings(postings, identifier), nil
		}
	}

	jobs, err := e.parseHTML(body, sourceURL)
	if err != nil {
		return nil, err
	}
	if len(jobs) > 0 {
		return jobs, nil
	}

	if identifier != "" && e.fetcher != nil {
		apiURL := fmt.Sprintf("https://jobs.lever.co/%s?mode=json", identifier)
		apiBody, status, ferr := e.fetcher.Fetch(ctx, apiURL)
		if ferr == nil && status == 200 && apiBody != nil {
			var postings []leverPosting
			if err := json.Unmarshal(apiBody, &postings); err == nil {
				return e.jobsFromPostings(postings, identifier), nil
			}
		}
	}

	return jobs, nil
}

func (e *LeverExtractor) jobsFromPostings(postings []leverPosting, identifier string) []interfaces.ExtractedJob {
	jobs := make([]interfaces.ExtractedJob, 0, len(postings))
	for _, p := range postings {
		if p.Text == "" {
			continue
		}
		jobURL := p.HostedURL
		if jobURL == "" {
			jobURL = p.ApplyURL
		}
		if identifier != "" && p.ID != "" {
			jobURL = fmt.Sprintf("https://jobs.lever.co/%s/%s", identifier, p.ID)
		}
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:          p.Text,
			SourceURL:      jobURL,
			Location:       p.Categories.Location,
			Department:     firstNonEmpty(p.Categories.Department, p.Categories.Team),
			EmploymentType: p.Categories.Commitment,
			Description:    p.DescPlain,
		})
	}
	return jobs
}

func (e *LeverExtractor) parseHTML(body []byte, sourceURL string) ([]interfaces.ExtractedJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing lever HTML: %w", err)
	}
	base, _ := url.Parse(sourceURL)

	var jobs []interfaces.ExtractedJob

	doc.Find(".posting").Each(func(_ int, s *goquery.Selection) {
		titleSel := s.Find(".posting-title h5, .posting-title a, [data-qa='posting-name']").First()
		title := cleanText(titleSel.Text())
		if title == "" {
			return
		}
		link := s.Find("a.posting-title, a[data-qa='posting-name']").First()
		if link.Length() == 0 {
			link = s.Find("a[href]").First()
		}
		href, _ := link.Attr("href")
		jobURL := sourceURL
		if href != "" {
			jobURL = resolveURL(base, href)
		}
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:          title,
			SourceURL:      jobURL,
			Location:       cleanText(s.Find(".posting-categories .location, .location, [data-qa='posting-location']").First().Text()),
			Department:     cleanText(s.Find(".posting-categories .department, .department, [data-qa='posting-department']").First().Text()),
			EmploymentType: cleanText(s.Find(".posting-categories .commitment, .commitment, [data-qa='posting-commitment']").First().Text()),
		})
	})
	if len(jobs) > 0 {
		return jobs, nil
	}

	jobs = append(jobs, extractJSONLD(doc, sourceURL)...)
	if len(jobs) > 0 {
		return jobs, nil
	}

	seen := map[string]bool{}
	doc.Find(`a[href*="/jobs.lever.co/"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || seen[href] || !leverPostingIDRe.MatchString(href) {
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

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
