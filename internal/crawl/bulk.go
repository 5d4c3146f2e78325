package crawl

import (
	"context"
	"sync"

	"github.com/ternarybob/atsforge/internal/common"
)

// DefaultConcurrency is the bulk crawl's bounded semaphore size.
const DefaultConcurrency = 8

// BulkCrawl runs CrawlCompany over companyIDs under a bounded
// semaphore, logging each outcome rather than stopping the whole batch
// on one company's failure.
func (e *Engine) BulkCrawl(ctx context.Context, companyIDs []string, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(companyIDs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, id := range companyIDs {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		i, companyID := i, id
		common.SafeGo(e.logger, "bulk_crawl_company", func() {
			defer wg.Done()
			defer func() { <-sem }()
			result, err := e.CrawlCompany(ctx, companyID)
			if err != nil && e.logger != nil {
				e.logger.Warn().Err(err).Str("company_id", companyID).Msg("crawl_company failed")
			}
			results[i] = result
		})
	}
	wg.Wait()

	return results
}
