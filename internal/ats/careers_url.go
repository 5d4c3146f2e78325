package ats

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/common"
	"github.com/ternarybob/atsforge/internal/interfaces"
)

// candidatePaths is the fixed list probed against a company's domain
// before falling back to homepage anchor scanning (spec's SPEC_FULL.md
// careers-URL discovery helper).
var candidatePaths = []string{
	"/careers", "/jobs", "/careers/", "/jobs/",
	"/join-us", "/join", "/work-with-us",
	"/about/careers", "/company/careers",
}

var careersAnchorRe = regexp.MustCompile(`(?i)<a[^>]+href="([^"]+)"[^>]*>[^<]{0,80}(?:career|job)[^<]{0,80}</a>`)

// CareersURLFinder discovers a company's careers URL by probing a fixed
// path list, then falling back to homepage anchor scanning. Every
// accepted URL is checked against the cross-tenant collision guard.
type CareersURLFinder struct {
	fetcher interfaces.Fetcher
	logger  arbor.ILogger
}

// NewCareersURLFinder builds a finder over fetcher.
func NewCareersURLFinder(fetcher interfaces.Fetcher, logger arbor.ILogger) *CareersURLFinder {
	return &CareersURLFinder{fetcher: fetcher, logger: logger}
}

// Find probes websiteURL's candidate career paths via HEAD (following
// redirects), then scans the homepage for career/job anchors if none of
// the fixed paths resolve. companyName and companyDomain feed the
// collision guard.
func (f *CareersURLFinder) Find(ctx context.Context, websiteURL, companyName, companyDomain string) (string, error) {
	base, err := common.ValidateHTTPURL(websiteURL)
	if err != nil {
		return "", fmt.Errorf("invalid website URL: %w", err)
	}

	for _, path := range candidatePaths {
		candidate := common.JoinURLPath(base.Scheme+"://"+base.Host, path)
		status, finalURL, err := f.fetcher.Head(ctx, candidate)
		if err != nil {
			continue
		}
		if status >= 200 && status < 300 {
			if IsValidCareersURLForDomain(finalURL, companyName, companyDomain) {
				return finalURL, nil
			}
			if f.logger != nil {
				f.logger.Debug().Str("url", finalURL).Str("company", companyName).Msg("careers URL candidate rejected by collision guard")
			}
		}
	}

	body, status, err := f.fetcher.Fetch(ctx, websiteURL)
	if err != nil || status != 200 || body == nil {
		return "", fmt.Errorf("homepage fetch for %s failed (status %d)", websiteURL, status)
	}

	for _, m := range careersAnchorRe.FindAllStringSubmatch(string(body), -1) {
		linkURL, err := base.Parse(m[1])
		if err != nil {
			continue
		}
		if IsValidCareersURLForDomain(linkURL.String(), companyName, companyDomain) {
			return linkURL.String(), nil
		}
	}

	return "", fmt.Errorf("no careers URL found for %s", websiteURL)
}

// IsValidCareersURLForDomain is the cross-tenant collision guard: a
// careers URL discovered via redirect or homepage scan is only accepted
// if it resolves to the same registrable domain as companyDomain, a
// known ATS vendor domain, or literally contains the company name
// (SPEC_FULL.md "Careers-URL discovery helper").
func IsValidCareersURLForDomain(candidateURL, companyName, companyDomain string) bool {
	parsed, err := url.Parse(candidateURL)
	if err != nil {
		return false
	}

	candidateDomain := common.RegistrableDomain(parsed.Host)
	expectedDomain := common.RegistrableDomain(companyDomain)

	if candidateDomain == expectedDomain {
		return true
	}
	if KnownATSDomains[candidateDomain] {
		return true
	}

	normalizedName := strings.ToLower(strings.ReplaceAll(companyName, " ", ""))
	if normalizedName != "" && strings.Contains(strings.ToLower(candidateURL), normalizedName) {
		return true
	}

	return false
}
