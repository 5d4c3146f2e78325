package enrich

import "context"

// RunStage drains the enrichment backlog restricted to atsFamily
// (empty for every family): batch after batch until a batch returns
// zero jobs or ctx is cancelled.
func (r *Runner) RunStage(ctx context.Context, atsFamily string) (int, error) {
	total := 0
	for {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := r.RunBatch(ctx, atsFamily)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
	}
}
