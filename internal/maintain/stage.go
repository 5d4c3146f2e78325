package maintain

import "context"

// stagePageSize bounds how many companies RunStage loads per page while
// paging through every active Company.
const stagePageSize = 200

// RunStage maintains every active Company once, in pages. It is the
// Pipeline Orchestrator's entry point for the maintenance stage.
func (e *Engine) RunStage(ctx context.Context) (maintained, delisted, admitted int, err error) {
	offset := 0
	for {
		if ctx.Err() != nil {
			return maintained, delisted, admitted, ctx.Err()
		}
		companies, err := e.storage.Companies().ListActive(ctx, stagePageSize, offset)
		if err != nil {
			return maintained, delisted, admitted, err
		}
		if len(companies) == 0 {
			return maintained, delisted, admitted, nil
		}

		for _, c := range companies {
			result, rerr := e.MaintainCompany(ctx, c.ID)
			if rerr != nil {
				e.logger.Warn().Err(rerr).Str("company_id", c.ID).Msg("maintain_company failed")
				continue
			}
			maintained++
			delisted += result.Delisted
			admitted += result.New
		}

		if len(companies) < stagePageSize {
			return maintained, delisted, admitted, nil
		}
		offset += stagePageSize
	}
}
