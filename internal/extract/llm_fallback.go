package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/atsforge/internal/interfaces"
)

const llmFallbackSystemPrompt = `You are a job listing extractor. Given simplified text from a careers page, extract all job listings.

For each job, extract:
- title: the job title (required)
- location: location if mentioned, or "Remote" if remote
- department: department/team if mentioned
- employment_type: Full-time, Part-time, Contract, etc. if mentioned
- url_path: the relative URL path to the job posting, e.g. /jobs/123

Only extract actual job postings, not navigation items, headers, or other page elements.
Respond with JSON: {"jobs": [{"title": "...", "location": "...", "department": "...", "employment_type": "...", "url_path": "..."}]}
If no jobs are found, return {"jobs": []}.`

const llmFallbackMaxChars = 30000

type llmJobListing struct {
	Title          string `json:"title"`
	Location       string `json:"location"`
	Department     string `json:"department"`
	EmploymentType string `json:"employment_type"`
	URLPath        string `json:"url_path"`
}

type llmExtractedJobs struct {
	Jobs []llmJobListing `json:"jobs"`
}

var llmCacheMu sync.Mutex
var llmCache = map[string][]interfaces.ExtractedJob{}

// extractWithLLM is the generic extractor's last-resort path: strip the
// page to its content text, cap it, and ask the LLM for a typed job
// list, caching by content hash.
func extractWithLLM(ctx context.Context, llm interfaces.LLMClient, doc *goquery.Document, sourceURL string) ([]interfaces.ExtractedJob, error) {
	simplified := simplifyForLLM(doc)

	sum := sha256.Sum256([]byte(simplified))
	hash := hex.EncodeToString(sum[:])[:16]

	llmCacheMu.Lock()
	if cached, ok := llmCache[hash]; ok {
		llmCacheMu.Unlock()
		return cached, nil
	}
	llmCacheMu.Unlock()

	userPrompt := fmt.Sprintf("Extract job listings from this page content:\n\n%s", simplified)
	raw, err := llm.CompleteJSON(ctx, llmFallbackSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("LLM fallback extraction: %w", err)
	}

	var parsed llmExtractedJobs
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("decoding LLM extraction response: %w", err)
	}

	base, _ := url.Parse(sourceURL)
	jobs := make([]interfaces.ExtractedJob, 0, len(parsed.Jobs))
	for _, jl := range parsed.Jobs {
		if jl.Title == "" {
			continue
		}
		jobURL := sourceURL
		if jl.URLPath != "" {
			jobURL = resolveURL(base, jl.URLPath)
		}
		jobs = append(jobs, interfaces.ExtractedJob{
			Title:          jl.Title,
			SourceURL:      jobURL,
			Location:       jl.Location,
			Department:     jl.Department,
			EmploymentType: jl.EmploymentType,
		})
	}

	llmCacheMu.Lock()
	llmCache[hash] = jobs
	llmCacheMu.Unlock()

	return jobs, nil
}

// simplifyForLLM strips scripts/styles/chrome, reduces what is left to
// its plain text (no tags, classes or href attributes survive), and
// truncates to the LLM's context budget.
func simplifyForLLM(doc *goquery.Document) string {
	doc.Find("script, style, noscript, svg, path, img, video, audio, iframe").Remove()
	doc.Find("nav, header, footer, .nav, .header, .footer, .cookie, .banner, .popup, .modal").Remove()

	text := cleanText(doc.Text())
	if len(text) > llmFallbackMaxChars {
		text = text[:llmFallbackMaxChars] + "\n... [truncated]"
	}
	return text
}
