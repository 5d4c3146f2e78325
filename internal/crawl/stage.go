package crawl

import (
	"context"

	"github.com/ternarybob/atsforge/internal/models"
)

// stagePageSize bounds how many companies RunStage loads per page while
// paging through every active Company.
const stagePageSize = 200

// RunStage crawls every active Company once, in pages, under the bulk
// concurrency limit. atsFamily restricts the page query to companies
// detected as that family ("crawl_<family>" shards); an empty
// atsFamily crawls every active Company regardless of family
// ("crawl_all"). It is the Pipeline Orchestrator's entry point for the
// crawl stage of run_full_pipeline and for run_crawl_standalone.
func (e *Engine) RunStage(ctx context.Context, concurrency int, atsFamily string) (crawled, updated int, err error) {
	offset := 0
	for {
		if ctx.Err() != nil {
			return crawled, updated, ctx.Err()
		}
		var companies []*models.Company
		var err error
		if atsFamily == "" {
			companies, err = e.storage.Companies().ListActive(ctx, stagePageSize, offset)
		} else {
			companies, err = e.storage.Companies().ListByATSFamily(ctx, atsFamily, stagePageSize, offset)
		}
		if err != nil {
			return crawled, updated, err
		}
		if len(companies) == 0 {
			return crawled, updated, nil
		}

		ids := make([]string, len(companies))
		for i, c := range companies {
			ids[i] = c.ID
		}
		results := e.BulkCrawl(ctx, ids, concurrency)
		for _, r := range results {
			crawled++
			if r.Status == "updated" {
				updated++
			}
		}

		if len(companies) < stagePageSize {
			return crawled, updated, nil
		}
		offset += stagePageSize
	}
}
