package interfaces

import (
	"context"
	"time"
)

// ExtractedJob is the shared shape an Extractor produces, independent of
// ATS family.
type ExtractedJob struct {
	Title          string
	SourceURL      string
	Description    string
	Location       string
	Department     string
	EmploymentType string
	PostedAt       *time.Time
	SalaryRaw      string
	Remote         bool
	Requirements   []string
}

// Extractor turns a fetched page or API response into a list of
// ExtractedJob. One Extractor per ATS family; the generic extractor
// backs the long tail of families without a dedicated implementation.
type Extractor interface {
	// Extract sniffs JSON vs HTML, prefers the family's API/DOM shape, and
	// (generic extractor only) falls back to the LLM when nothing else
	// produced jobs.
	Extract(ctx context.Context, body []byte, sourceURL string, identifier string) ([]ExtractedJob, error)
	Family() string
}

// Enricher backfills description/posted-at for a single Job lacking a
// description. A 404 from the ATS is reported via the NotFound flag on
// EnrichResult, never as an error.
type Enricher interface {
	Enrich(ctx context.Context, sourceURL string, identifier string) (EnrichResult, error)
	Family() string
}

// EnrichResult is the outcome of one Enricher.Enrich call.
type EnrichResult struct {
	Description string
	PostedAt    *time.Time
	NotFound    bool // true: ATS returned 404, caller must delist
}

// LLMClient is the consumed contract for the LLM-assisted extractor
// fallback and LLM-assisted discovery sources.
type LLMClient interface {
	// CompleteJSON sends systemPrompt + userPrompt and asks the model to
	// respond with JSON matching the caller's expected shape, returning
	// the raw JSON text.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// EmbeddingClient computes fixed-dimension embeddings for a batch of
// texts on a separate, batch-oriented path from extraction.
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Renderer is the consumed contract for the JS-rendering path used by
// custom (non-ATS) career pages.
type Renderer interface {
	Render(ctx context.Context, url string) (html string, err error)
}
