// Package sources holds the pluggable Discovery Source producers the
// Orchestrator drives.
package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// usLocationQueries seeds the GitHub user/org search with a handful of
// U.S. metro and state terms; GitHub's search syntax ORs repeated
// location: qualifiers poorly, so each query is issued separately and
// results are deduplicated by domain.
var usLocationQueries = []string{
	"San Francisco", "New York", "Seattle", "Austin", "Boston",
	"Chicago", "Denver", "Los Angeles", "Atlanta", "USA",
}

// skipOrgPattern filters organizations that are clearly not a
// candidate employer: schools, sports teams, and nonprofits commonly
// self-describe with these tokens in name/bio.
var skipOrgPattern = regexp.MustCompile(`(?i)university|college|\.edu|school district|athletics|foundation|nonprofit|non-profit|\bfc\b|\bunited\b.*\bclub\b`)

// GitHubOrgs discovers candidate employers via the GitHub public search
// API: organizations with a blog URL whose location plausibly matches a
// U.S. location list. It stops at orgs, relying on the Network Crawler
// and ATS Prober sources to turn a blog URL into a careers URL.
type GitHubOrgs struct {
	client     *github.Client
	seedOrgs   []string
	current    int
	total      int
}

// NewGitHubOrgs builds a GitHubOrgs source. token may be empty, in
// which case requests run unauthenticated against GitHub's (much
// lower) anonymous rate limit. seedOrgs supplements the search queries
// with known org logins to check directly, skipping search entirely
// for those.
func NewGitHubOrgs(token string, seedOrgs []string) *GitHubOrgs {
	client := github.NewClient(nil)
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &GitHubOrgs{client: client, seedOrgs: seedOrgs, total: -1}
}

var _ interfaces.DiscoverySource = (*GitHubOrgs)(nil)

func (s *GitHubOrgs) Name() string { return "github_orgs" }

func (s *GitHubOrgs) Initialize(ctx context.Context) error { return nil }

func (s *GitHubOrgs) Cleanup(ctx context.Context) error { return nil }

func (s *GitHubOrgs) Progress() (int, int) { return s.current, s.total }

func (s *GitHubOrgs) Discover(ctx context.Context, dedup interfaces.DedupService) (<-chan models.DiscoveredCompany, error) {
	out := make(chan models.DiscoveredCompany)

	go func() {
		defer close(out)

		seen := make(map[string]bool)

		for _, login := range s.seedOrgs {
			if ctx.Err() != nil {
				return
			}
			org, _, err := s.client.Organizations.Get(ctx, login)
			if err != nil || org == nil {
				continue
			}
			if c, ok := s.toCompany(org.GetLogin(), org.GetBlog(), org.GetLocation(), org.GetName(), org.GetHTMLURL()); ok {
				s.current++
				if s.emit(ctx, out, seen, dedup, c) {
					return
				}
			}
		}

		for _, q := range usLocationQueries {
			if ctx.Err() != nil {
				return
			}
			query := fmt.Sprintf("type:org location:%q", q)
			opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 50}}
			for {
				result, resp, err := s.client.Search.Users(ctx, query, opts)
				if err != nil || result == nil {
					break
				}
				for _, u := range result.Users {
					if c, ok := s.toCompany(u.GetLogin(), u.GetBlog(), u.GetLocation(), u.GetName(), u.GetHTMLURL()); ok {
						s.current++
						if s.emit(ctx, out, seen, dedup, c) {
							return
						}
					}
				}
				if resp == nil || resp.NextPage == 0 {
					break
				}
				opts.Page = resp.NextPage
			}
		}
	}()

	return out, nil
}

func (s *GitHubOrgs) emit(ctx context.Context, out chan<- models.DiscoveredCompany, seen map[string]bool, dedup interfaces.DedupService, c models.DiscoveredCompany) bool {
	if seen[c.Domain] {
		return false
	}
	seen[c.Domain] = true
	if dedup != nil && dedup.IsDuplicateDomain(c.Domain) {
		return false
	}
	select {
	case out <- c:
		return false
	case <-ctx.Done():
		return true
	}
}

// toCompany applies the blog-URL, location, and skip-pattern filters
// and converts a matching org into a DiscoveredCompany.
func (s *GitHubOrgs) toCompany(login, blog, location, name, htmlURL string) (models.DiscoveredCompany, bool) {
	if blog == "" {
		return models.DiscoveredCompany{}, false
	}
	if skipOrgPattern.MatchString(login) || skipOrgPattern.MatchString(name) {
		return models.DiscoveredCompany{}, false
	}
	if !looksUSLocation(location) {
		return models.DiscoveredCompany{}, false
	}

	domain := domainFromURL(blog)
	if domain == "" {
		return models.DiscoveredCompany{}, false
	}
	if name == "" {
		name = login
	}

	return models.DiscoveredCompany{
		Name:       name,
		Domain:     domain,
		WebsiteURL: blog,
		Source:     s.Name(),
		SourceURL:  htmlURL,
		Location:   location,
		Country:    "US",
	}, true
}

func looksUSLocation(location string) bool {
	if location == "" {
		return false
	}
	l := strings.ToLower(location)
	return strings.Contains(l, "usa") || strings.Contains(l, "united states") || usStatePattern.MatchString(location)
}

var usStatePattern = regexp.MustCompile(`(?i)\b(CA|NY|WA|TX|MA|IL|CO|GA|PA|NC|VA|FL|OR|NJ)\b`)

func domainFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimPrefix(raw, "www.")
	if slash := strings.IndexByte(raw, '/'); slash >= 0 {
		raw = raw[:slash]
	}
	return strings.ToLower(raw)
}
