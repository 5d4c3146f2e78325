package enrich

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

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
	return nil, 404, nil
}

func TestGreenhouseEnricher_ParsesContentAndDelistsOn404(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{
		"https://boards-api.greenhouse.io/v1/boards/acme/jobs/123": {
			body:   []byte(`{"content":"<p>Build things.</p>","updated_at":"2026-01-05T00:00:00Z"}`),
			status: 200,
		},
	}}
	e := NewGreenhouseEnricher(fetcher, nil)

	result, err := e.Enrich(context.Background(), "https://boards.greenhouse.io/acme/jobs/123", "acme")
	require.NoError(t, err)
	require.Equal(t, "Build things.", result.Description)
	require.NotNil(t, result.PostedAt)

	notFound := &fakeFetcher{responses: map[string]fakeResponse{}}
	e2 := NewGreenhouseEnricher(notFound, nil)
	result2, err := e2.Enrich(context.Background(), "https://boards.greenhouse.io/acme/jobs/999", "acme")
	require.NoError(t, err)
	require.True(t, result2.NotFound)
}

func TestRegistry_FallsBackToGeneric(t *testing.T) {
	r := NewRegistry(&fakeFetcher{}, nil)
	require.Equal(t, "generic", r.For("some_unknown_family").Family())
	require.Equal(t, "greenhouse", r.For("greenhouse").Family())
}
