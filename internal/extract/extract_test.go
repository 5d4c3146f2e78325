package extract

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned responses by exact URL match, for exercising
// the API-call branch of each family Extractor without a network.
type fakeFetcher struct {
	responses map[string]fakeResponse
}

type fakeResponse struct {
	body   []byte
	status int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	if r, ok := f.responses[url]; ok {
		return r.body, r.status, nil
	}
	return nil, 404, nil
}

func (f *fakeFetcher) Head(ctx context.Context, url string) (int, string, error) {
	return 200, url, nil
}

func (f *fakeFetcher) Post(ctx context.Context, url string, contentType string, body io.Reader) ([]byte, int, error) {
	if r, ok := f.responses[url]; ok {
		return r.body, r.status, nil
	}
	return nil, 404, nil
}

func TestGreenhouseExtractor_ParsesJSONResponse(t *testing.T) {
	body := []byte(`{"jobs":[{"title":"Backend Engineer","absolute_url":"https://boards.greenhouse.io/acme/jobs/1","updated_at":"2026-01-05T00:00:00Z","location":{"name":"Remote"},"departments":[{"name":"Engineering"}]}]}`)

	e := NewGreenhouseExtractor(&fakeFetcher{}, nil)
	jobs, err := e.Extract(context.Background(), body, "https://boards.greenhouse.io/acme", "acme")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "Backend Engineer", jobs[0].Title)
	require.Equal(t, "Remote", jobs[0].Location)
	require.Equal(t, "Engineering", jobs[0].Department)
	require.NotNil(t, jobs[0].PostedAt)
}

func TestGreenhouseExtractor_CallsAPIWhenIdentifierKnown(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"https://boards-api.greenhouse.io/v1/boards/acme/jobs": {
			body:   []byte(`{"jobs":[{"title":"Product Manager","absolute_url":"https://boards.greenhouse.io/acme/jobs/2"}]}`),
			status: 200,
		},
	}}

	e := NewGreenhouseExtractor(fetcher, nil)
	jobs, err := e.Extract(context.Background(), []byte("<html>not json</html>"), "https://boards.greenhouse.io/acme", "acme")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "Product Manager", jobs[0].Title)
}

func TestGreenhouseExtractor_ParsesHTMLFallback(t *testing.T) {
	html := []byte(`<html><body><div class="opening"><a href="/acme/jobs/3">Data Analyst</a><span class="location">NYC</span></div></body></html>`)

	e := NewGreenhouseExtractor(&fakeFetcher{}, nil)
	jobs, err := e.Extract(context.Background(), html, "https://boards.greenhouse.io/acme", "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "Data Analyst", jobs[0].Title)
	require.Equal(t, "NYC", jobs[0].Location)
}

func TestLeverExtractor_ParsesJSONArray(t *testing.T) {
	body := []byte(`[{"id":"abc123","text":"Site Reliability Engineer","categories":{"location":"Remote","team":"Infra","commitment":"Full-time"},"descriptionPlain":"Keep things up."}]`)

	e := NewLeverExtractor(&fakeFetcher{}, nil)
	jobs, err := e.Extract(context.Background(), body, "https://jobs.lever.co/acme", "acme")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "Site Reliability Engineer", jobs[0].Title)
	require.Equal(t, "https://jobs.lever.co/acme/abc123", jobs[0].SourceURL)
	require.Equal(t, "Infra", jobs[0].Department)
}

func TestLeverExtractor_ParsesPostingHTML(t *testing.T) {
	html := []byte(`<html><body><div class="posting"><div class="posting-title"><h5>Support Engineer</h5></div><a class="posting-title" href="/acme/xyz"></a><div class="posting-categories"><span class="location">Remote</span><span class="department">Support</span></div></div></body></html>`)

	e := NewLeverExtractor(&fakeFetcher{}, nil)
	jobs, err := e.Extract(context.Background(), html, "https://jobs.lever.co/acme", "acme")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "Support Engineer", jobs[0].Title)
	require.Equal(t, "Remote", jobs[0].Location)
}

func TestAshbyExtractor_ParsesPostingAPIJSON(t *testing.T) {
	body := []byte(`{"jobs":[{"id":"job-1","title":"Growth Lead","location":"Remote","team":{"name":"Growth"},"employmentType":"FullTime","publishedAt":"2026-02-01T00:00:00Z"}]}`)

	e := NewAshbyExtractor(&fakeFetcher{}, nil)
	jobs, err := e.Extract(context.Background(), body, "https://jobs.ashbyhq.com/acme", "acme")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "Growth Lead", jobs[0].Title)
	require.Equal(t, "https://jobs.ashbyhq.com/acme/job-1", jobs[0].SourceURL)
	require.Equal(t, "Growth", jobs[0].Department)
}

func TestWorkableExtractor_ParsesJSONResponse(t *testing.T) {
	body := []byte(`{"jobs":[{"title":"QA Engineer","url":"https://apply.workable.com/acme/j/ABCDEF01/","department":"Quality","location":{"city":"Austin","region":"TX","country":"US"},"employment_type":"full"}]}`)

	e := NewWorkableExtractor(&fakeFetcher{}, nil)
	jobs, err := e.Extract(context.Background(), body, "https://apply.workable.com/acme", "acme")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "QA Engineer", jobs[0].Title)
	require.Equal(t, "Austin, TX, US", jobs[0].Location)
}

func TestWorkableShortCode_ExtractsCode(t *testing.T) {
	require.Equal(t, "ABCDEF01", workableShortCode("https://apply.workable.com/acme/j/ABCDEF01/"))
	require.Equal(t, "", workableShortCode("https://apply.workable.com/acme"))
}

func TestGenericExtractor_ParsesJSONLD(t *testing.T) {
	html := []byte(`<html><head><script type="application/ld+json">{"@type":"JobPosting","title":"Platform Engineer","description":"Build things","datePosted":"2026-03-01","jobLocation":{"address":{"addressLocality":"Boston","addressRegion":"MA","addressCountry":"US"}}}</script></head><body></body></html>`)

	e := NewGenericExtractor(nil, nil)
	jobs, err := e.Extract(context.Background(), html, "https://acme.com/careers", "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "Platform Engineer", jobs[0].Title)
	require.Equal(t, "Boston, MA, US", jobs[0].Location)
}

func TestGenericExtractor_FallsBackToJobLinks(t *testing.T) {
	html := []byte(`<html><body><a href="/careers/senior-engineer">Senior Software Engineer</a><a href="#">View all jobs</a></body></html>`)

	e := NewGenericExtractor(nil, nil)
	jobs, err := e.Extract(context.Background(), html, "https://acme.com/careers", "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "Senior Software Engineer", jobs[0].Title)
}

func TestIsNavigationText_RejectsChrome(t *testing.T) {
	require.True(t, isNavigationText("View all jobs"))
	require.True(t, isNavigationText("Apply Now"))
	require.False(t, isNavigationText("Senior Backend Engineer"))
}
