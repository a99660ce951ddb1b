package nppes

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type FetchRequest struct {
	Params   SearchParams
	PageSize int
	// MaxRecords <= 0 fetches everything from StartSkip on.
	MaxRecords int
	StartSkip  int
}

// FetchAll pages through a search starting at StartSkip. The first page is a
// probe that also reports the registry total. The remaining pages are fetched
// in waves of at most c.concurrency requests separated by c.waveDelay.
//
// A failed page never aborts the run: it contributes no records and is listed
// in FailedPages. LastSkip only advances over the contiguous prefix of pages
// that succeeded, and no wave is scheduled after one that had a failure.
func (c *Client) FetchAll(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	start := req.StartSkip
	if start < 0 {
		start = 0
	}

	probe, err := c.Search(ctx, req.Params, pageSize, start)
	if err != nil {
		return nil, fmt.Errorf("nppes: probe at skip %d: %w", start, err)
	}

	total := probe.ResultCount
	if seen := start + len(probe.Results); seen > total {
		total = seen
	}
	result := &FetchResult{TotalAvailable: total, LastSkip: start}
	if len(probe.Results) == 0 {
		return result, nil
	}

	target := total
	if req.MaxRecords > 0 && start+req.MaxRecords < target {
		target = start + req.MaxRecords
	}

	take := min(len(probe.Results), target-start)
	result.Providers = append(result.Providers, probe.Results[:take]...)
	confirmed := start + take
	exhausted := len(probe.Results) < pageSize

	next := start + pageSize
	for wave := 0; !exhausted && next < target; wave++ {
		if wave > 0 {
			if err := sleepContext(ctx, c.waveDelay); err != nil {
				result.LastSkip = confirmed
				return result, err
			}
		}

		skips := make([]int, 0, c.concurrency)
		for skip := next; skip < target && len(skips) < c.concurrency; skip += pageSize {
			skips = append(skips, skip)
		}

		failed := false
		for _, page := range c.fetchWave(ctx, req.Params, pageSize, skips) {
			if page.Err != nil {
				failed = true
				result.FailedPages = append(result.FailedPages, page.Skip)
				c.logger.Warn("registry page failed, treating as empty",
					zap.Int("skip", page.Skip),
					zap.Error(page.Err),
				)
				continue
			}
			n := min(len(page.Providers), target-page.Skip)
			result.Providers = append(result.Providers, page.Providers[:n]...)
			if page.Skip == confirmed {
				confirmed = page.Skip + n
			}
			if len(page.Providers) < pageSize {
				exhausted = true
			}
		}

		if ctx.Err() != nil {
			result.LastSkip = confirmed
			return result, ctx.Err()
		}
		if failed {
			break
		}
		next += len(skips) * pageSize
	}

	result.LastSkip = confirmed
	c.logger.Info("registry fetch finished",
		zap.Int("fetched", len(result.Providers)),
		zap.Int("total_available", result.TotalAvailable),
		zap.Int("last_skip", result.LastSkip),
		zap.Ints("failed_pages", result.FailedPages),
	)
	return result, nil
}

// fetchWave runs one request per skip concurrently and returns the pages in
// skip order.
func (c *Client) fetchWave(ctx context.Context, params SearchParams, pageSize int, skips []int) []PageResult {
	pages := make([]PageResult, len(skips))
	var g errgroup.Group
	for i, skip := range skips {
		g.Go(func() error {
			resp, err := c.Search(ctx, params, pageSize, skip)
			if err != nil {
				pages[i] = PageResult{Skip: skip, Err: err}
				return nil
			}
			pages[i] = PageResult{Skip: skip, Providers: resp.Results}
			return nil
		})
	}
	_ = g.Wait()
	return pages
}
