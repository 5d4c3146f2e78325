package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/interfaces"
)

// DefaultBatchSize caps how many jobs one Runner.Run call embeds, so a
// single pass stays bounded even when the backlog is large.
const DefaultBatchSize = 50

// Runner drives the embedding client over jobs with a null embedding,
// concatenating title + role_family + skills per the canonical text
// shape, and persisting the result via JobStorage.SetEmbedding.
type Runner struct {
	jobs      interfaces.JobStorage
	client    interfaces.EmbeddingClient
	batchSize int
	logger    arbor.ILogger
}

// NewRunner builds a Runner. batchSize <= 0 falls back to DefaultBatchSize.
func NewRunner(jobs interfaces.JobStorage, client interfaces.EmbeddingClient, batchSize int, logger arbor.ILogger) *Runner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Runner{jobs: jobs, client: client, batchSize: batchSize, logger: logger}
}

// Run embeds up to one batch of jobs needing an embedding and reports
// how many were written. Callers loop until it returns 0 to drain the
// full backlog.
func (r *Runner) Run(ctx context.Context) (int, error) {
	jobs, err := r.jobs.ListNeedingEmbedding(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing jobs needing embedding: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(jobs))
	for i, j := range jobs {
		texts[i] = embeddingText(j.Title, j.RoleFamily, j.Skills)
	}

	vectors, err := r.client.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding batch of %d jobs: %w", len(jobs), err)
	}
	if len(vectors) != len(jobs) {
		return 0, fmt.Errorf("embedding client returned %d vectors for %d jobs", len(vectors), len(jobs))
	}

	written := 0
	for i, j := range jobs {
		if err := r.jobs.SetEmbedding(ctx, j.ID, vectors[i]); err != nil {
			r.logger.Warn().Err(err).Str("job_id", j.ID).Msg("failed to store embedding")
			continue
		}
		written++
	}
	return written, nil
}

// embeddingText builds the canonical concatenation embedded jobs are
// keyed on: title, normalized role family, then skills.
func embeddingText(title, roleFamily string, skills []string) string {
	parts := []string{title}
	if roleFamily != "" {
		parts = append(parts, roleFamily)
	}
	if len(skills) > 0 {
		parts = append(parts, strings.Join(skills, " "))
	}
	return strings.Join(parts, " ")
}
