// Package httpclient provides a rate-limited HTTP client shared by the
// Crawl Engine, Extractors, the Enrichment Engine, and Discovery Sources.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
)

// DefaultUserAgent is used when the caller's config leaves UserAgent empty.
const DefaultUserAgent = "Mozilla/5.0 (compatible; atsforge/1.0; +https://example.invalid/bot)"

// DefaultTimeout is the per-call timeout unless overridden.
const DefaultTimeout = 20 * time.Second

// Fetcher implements interfaces.Fetcher over net/http, passing every call
// through a shared RateLimiter keyed by request host.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	rateLimiter interfaces.RateLimiter
	logger      arbor.ILogger
}

// New builds a Fetcher. rl may be nil, in which case calls are not
// rate-limited (useful for tests).
func New(userAgent string, timeout time.Duration, rl interfaces.RateLimiter, logger arbor.ILogger) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		userAgent:   userAgent,
		rateLimiter: rl,
		logger:      logger,
	}
}

var _ interfaces.Fetcher = (*Fetcher)(nil)

// Fetch retrieves rawURL, following redirects, and returns the body and
// final status code. A non-2xx status returns a nil body and no error;
// only network/transport failures are returned as err.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, int, error) {
	if err := f.waitForHost(ctx, rawURL); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		if f.logger != nil {
			f.logger.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Msg("fetch returned non-2xx")
		}
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024*1024))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading body of %s: %w", rawURL, err)
	}

	return body, resp.StatusCode, nil
}

// Post sends body to rawURL with contentType, returning the response body
// and status code under the same non-2xx convention as Fetch.
func (f *Fetcher) Post(ctx context.Context, rawURL string, contentType string, body io.Reader) ([]byte, int, error) {
	if err := f.waitForHost(ctx, rawURL); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, 0, fmt.Errorf("building POST request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("posting to %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024*1024))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response body of %s: %w", rawURL, err)
	}
	return respBody, resp.StatusCode, nil
}

// Head resolves redirects for rawURL without downloading a body,
// returning the final status code and the URL after following redirects
// (used for careers-URL discovery and the ATS directory/prober sources).
func (f *Fetcher) Head(ctx context.Context, rawURL string) (int, string, error) {
	if err := f.waitForHost(ctx, rawURL); err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("building HEAD request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		// Some servers reject HEAD; fall back to a ranged GET.
		return f.headViaGet(ctx, rawURL)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return resp.StatusCode, finalURL, nil
}

func (f *Fetcher) headViaGet(ctx context.Context, rawURL string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("building fallback GET for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Range", "bytes=0-0")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return resp.StatusCode, finalURL, nil
}

func (f *Fetcher) waitForHost(ctx context.Context, rawURL string) error {
	if f.rateLimiter == nil {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL %s has no host", rawURL)
	}
	return f.rateLimiter.Wait(ctx, host)
}

// IsTimeoutOrTransient reports whether err represents a transient
// network failure (timeout, connection reset) — never a basis for
// marking anything delisted.
func IsTimeoutOrTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET)
}
