package interfaces

import (
	"context"
	"io"
)

// Fetcher is the shared HTTP contract used by the Crawl Engine,
// Extractors, Enrichment Engine, and Discovery Sources.
// All implementations route outbound calls through a RateLimiter.
type Fetcher interface {
	// Fetch retrieves url and returns its body and status code. It
	// follows redirects and never enforces content-type; callers sniff
	// the first non-whitespace byte to decide JSON vs HTML. A non-2xx
	// status returns a nil body alongside the status code, not an error.
	Fetch(ctx context.Context, url string) (body []byte, statusCode int, err error)

	// Head resolves redirects for url without downloading a body,
	// returning the final status code and the final URL after following
	// redirects.
	Head(ctx context.Context, url string) (statusCode int, finalURL string, err error)

	// Post sends body (with the given content type) to url, returning the
	// response body and status code under the same non-2xx convention as
	// Fetch. Used by extractors that call JSON/GraphQL APIs (e.g. Ashby).
	Post(ctx context.Context, url string, contentType string, body io.Reader) (respBody []byte, statusCode int, err error)
}

// RateLimiter enforces a per-host minimum inter-call delay using
// monotonic timestamps.
type RateLimiter interface {
	// Wait blocks until it is safe to make another call to host, then
	// records the call time for host.
	Wait(ctx context.Context, host string) error
}

// ATSRegistry statically enumerates known ATS families and their
// URL/HTML/embed patterns, API templates, and careers-URL templates.
type ATSRegistry interface {
	Families() []ATSFamilyEntry
	Lookup(family string) (ATSFamilyEntry, bool)
}

// ATSFamilyEntry is one Registry row.
type ATSFamilyEntry struct {
	Family              string
	URLPatterns         []string // regex source, ordered
	HTMLPatterns        []string // substrings/regex, case-insensitive
	EmbedPatterns       []string // regex applied to script/iframe src and inline bodies
	APITemplate         string   // "" if no JSON API is integrated
	ListAPITemplate     string
	CareersURLTemplate  string
	HasAPIClient        bool
}

// Detector runs the five-step detection pipeline over a careers page
// and returns the identified family/identifier, short-circuiting on the
// first positive match.
type Detector interface {
	Detect(ctx context.Context, careersURL string, html []byte) (DetectionResult, error)
}

// DetectionResult is the Detector's outcome for one careers page.
type DetectionResult struct {
	Family             string
	Identifier         string
	IsParentRedirect   bool   // true when the page redirected to another company's ATS
	ParentDomain       string // registrable domain of the redirect target, if IsParentRedirect
	Matched            bool
}
