package ats

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// InvalidIdentifiers blocklists ats_identifier values that detection must
// never accept, even if a pattern technically matched.
var InvalidIdentifiers = map[string]bool{
	"embed":     true,
	"job_board": true,
	"js":        true,
	"css":       true,
	"api":       true,
	"jobs":      true,
	"undefined": true,
}

var templatePlaceholderRe = regexp.MustCompile(`\$\{[a-zA-Z0-9_]+\}|\{\{[a-zA-Z0-9_.]+\}\}`)
var htmlFragmentRe = regexp.MustCompile(`(?i)<[a-z!/][^>]*>|</?script|</?style`)

// IsValidIdentifier rejects blocklisted literals, template placeholders,
// HTML/JS fragments, and anything over 100 characters.
func IsValidIdentifier(id string) bool {
	if id == "" {
		return false
	}
	if len(id) > 100 {
		return false
	}
	if len(id) < 3 {
		return false
	}
	if InvalidIdentifiers[strings.ToLower(id)] {
		return false
	}
	if templatePlaceholderRe.MatchString(id) {
		return false
	}
	if htmlFragmentRe.MatchString(id) {
		return false
	}
	return true
}

type detector struct {
	registry interfaces.ATSRegistry
	fetcher  interfaces.Fetcher
	logger   arbor.ILogger

	familyOrder []string // registry.Families() order, for deterministic first-match selection
	urlRegex    map[string][]*regexp.Regexp
	htmlRegex   map[string][]string // lowercased substrings
	embedRegex  map[string][]*regexp.Regexp
}

// NewDetector builds a Detector over reg. fetcher is used for step 4
// (following plausible job links) and may be nil, in which case step 4
// is skipped.
func NewDetector(reg interfaces.ATSRegistry, fetcher interfaces.Fetcher, logger arbor.ILogger) interfaces.Detector {
	d := &detector{
		registry:   reg,
		fetcher:    fetcher,
		logger:     logger,
		urlRegex:   make(map[string][]*regexp.Regexp),
		htmlRegex:  make(map[string][]string),
		embedRegex: make(map[string][]*regexp.Regexp),
	}
	for _, fam := range reg.Families() {
		d.familyOrder = append(d.familyOrder, fam.Family)
		for _, p := range fam.URLPatterns {
			if re, err := regexp.Compile("(?i)" + p); err == nil {
				d.urlRegex[fam.Family] = append(d.urlRegex[fam.Family], re)
			}
		}
		for _, p := range fam.HTMLPatterns {
			d.htmlRegex[fam.Family] = append(d.htmlRegex[fam.Family], strings.ToLower(p))
		}
		for _, p := range fam.EmbedPatterns {
			if re, err := regexp.Compile("(?i)" + p); err == nil {
				d.embedRegex[fam.Family] = append(d.embedRegex[fam.Family], re)
			}
		}
	}
	return d
}

// Detect runs the five-step ATS identification pipeline, short-circuiting
// on the first positive match.
func (d *detector) Detect(ctx context.Context, careersURL string, html []byte) (interfaces.DetectionResult, error) {
	// Step 1: URL-shape match.
	if res, ok := d.matchURL(careersURL); ok {
		return d.extractIdentifier(res, careersURL, html)
	}

	htmlLower := strings.ToLower(string(html))

	// Step 2: HTML-body keyword match.
	if res, ok := d.matchHTMLKeywords(htmlLower); ok {
		return d.extractIdentifier(res, careersURL, html)
	}

	// Step 3: embed-script/iframe match.
	if res, ok := d.matchEmbeds(string(html)); ok {
		return d.extractIdentifier(res, careersURL, html)
	}

	// Step 4: follow plausible job-link URLs and recurse.
	if d.fetcher != nil {
		if res, ok := d.followJobLinks(ctx, careersURL, string(html)); ok {
			return res, nil
		}
	}

	return interfaces.DetectionResult{Matched: false}, nil
}

func (d *detector) matchURL(rawURL string) (string, bool) {
	for _, family := range d.familyOrder {
		for _, re := range d.urlRegex[family] {
			if re.MatchString(rawURL) {
				return family, true
			}
		}
	}
	return "", false
}

func (d *detector) matchHTMLKeywords(htmlLower string) (string, bool) {
	for _, family := range d.familyOrder {
		for _, s := range d.htmlRegex[family] {
			if strings.Contains(htmlLower, s) {
				return family, true
			}
		}
	}
	return "", false
}

func (d *detector) matchEmbeds(html string) (string, bool) {
	for _, family := range d.familyOrder {
		for _, re := range d.embedRegex[family] {
			if re.MatchString(html) {
				return family, true
			}
		}
	}
	return "", false
}

// jobLinkRe finds anchors that look like individual job postings rather
// than navigation chrome, used to seed step 4's recursive follow.
var jobLinkRe = regexp.MustCompile(`(?i)href="([^"]*(?:job|career|position|opening)[^"]*)"`)

func (d *detector) followJobLinks(ctx context.Context, baseURL, html string) (interfaces.DetectionResult, bool) {
	matches := jobLinkRe.FindAllStringSubmatch(html, -1)
	base, err := url.Parse(baseURL)
	if err != nil {
		return interfaces.DetectionResult{}, false
	}

	tried := 0
	for _, m := range matches {
		if tried >= 3 {
			break
		}
		linkURL, err := base.Parse(m[1])
		if err != nil {
			continue
		}
		tried++

		status, finalURL, err := d.fetcher.Head(ctx, linkURL.String())
		if err != nil || status >= 400 {
			continue
		}

		if family, ok := d.matchURL(finalURL); ok {
			res, err := d.extractIdentifier(family, finalURL, nil)
			if err == nil && res.Matched {
				return res, true
			}
		}
	}
	return interfaces.DetectionResult{}, false
}

// extractIdentifier performs step 5: structured identifier extraction
// for the identified family, applying data-attributes, inline JS config,
// embed-URL parameters, and direct board-URL mentions in that order.
func (d *detector) extractIdentifier(family, sourceURL string, html []byte) (interfaces.DetectionResult, error) {
	if _, ok := d.registry.Lookup(family); !ok {
		return interfaces.DetectionResult{Matched: false}, nil
	}

	identifier := firstGroupFromPatterns(d.urlRegex[family], sourceURL)
	if identifier == "" && html != nil {
		identifier = extractFromHTML(family, string(html))
	}
	if identifier == "" && html != nil {
		// Direct board-URL mention: the family's own URL shape appearing
		// anywhere in the page body (e.g. a "Powered by X" embed link),
		// not just in the page's own address.
		identifier = firstGroupFromPatterns(d.urlRegex[family], string(html))
	}

	if family == models.ATSFamilyGreenhouse && identifier != "" && !IsValidIdentifier(identifier) {
		identifier = ""
	}

	return interfaces.DetectionResult{
		Family:     family,
		Identifier: identifier,
		Matched:    true,
	}, nil
}

func firstGroupFromPatterns(patterns []*regexp.Regexp, s string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// extractFromHTML applies family-specific extraction patterns in priority
// order: data-attributes first, then inline JS config, then embed-URL
// parameters, then direct board-URL mentions.
func extractFromHTML(family, html string) string {
	for _, re := range dataAttributePatterns(family) {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1]
		}
	}
	for _, re := range inlineConfigPatterns(family) {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1]
		}
	}
	for _, re := range embedURLPatterns(family) {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1]
		}
	}
	for _, re := range boardMentionPatterns(family) {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func dataAttributePatterns(family string) []*regexp.Regexp {
	switch family {
	case models.ATSFamilyGreenhouse:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)data-board-token="([a-z0-9\-]+)"`)}
	case models.ATSFamilyLever:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)data-lever-site="([a-z0-9\-]+)"`)}
	case models.ATSFamilyAshby:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)data-ashby-job-board="([a-z0-9\-]+)"`)}
	default:
		return nil
	}
}

func inlineConfigPatterns(family string) []*regexp.Regexp {
	switch family {
	case models.ATSFamilyGreenhouse:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)boardToken\s*[:=]\s*['"]([a-z0-9\-]+)['"]`)}
	case models.ATSFamilyWorkable:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)accountSubdomain\s*[:=]\s*['"]([a-z0-9\-]+)['"]`)}
	default:
		return nil
	}
}

func embedURLPatterns(family string) []*regexp.Regexp {
	switch family {
	case models.ATSFamilyGreenhouse:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)greenhouse\.io/embed/job_board\?for=([a-z0-9\-]+)`)}
	case models.ATSFamilySmartRecruiters:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)smartrecruiters\.com/([a-zA-Z0-9\-]+)`)}
	default:
		return nil
	}
}

func boardMentionPatterns(family string) []*regexp.Regexp {
	switch family {
	case models.ATSFamilyJobvite:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)jobs\.jobvite\.com/([a-z0-9\-]+)`)}
	case models.ATSFamilyICIMS:
		return []*regexp.Regexp{regexp.MustCompile(`(?i)([a-z0-9\-]+)\.icims\.com`)}
	default:
		return nil
	}
}
