package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/resilience"
	"github.com/sells-group/adintel-cli/pkg/adarchive"
)

// BrandSource pairs a brand name with its ad-archive advertiser id.
type BrandSource struct {
	Brand    string
	SourceID string
}

// BrandCollection is one brand's collection outcome: normalized ads plus
// the terminal fetch summary. Ads may be non-empty even when the result is
// a failure (partial results are always retained).
type BrandCollection struct {
	Ads    []model.NormalizedAdRecord
	Result model.FetchResult
}

// Collector drives pagination over the archive client for one or more
// brands and normalizes every record inline. The rate limiter is shared
// across brand workers so total request pacing honors the source's limits.
type Collector struct {
	client  adarchive.Client
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// NewCollector creates a Collector. requestDelay is the minimum spacing
// between consecutive page requests across all workers; zero disables pacing.
func NewCollector(client adarchive.Client, requestDelay time.Duration, retry resilience.RetryConfig) *Collector {
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	return &Collector{
		client:  client,
		retry:   retry,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Collect fetches ads for a single brand until a stopping condition is hit.
// Conditions are checked after each page in precedence order: enough ads
// collected, page limit reached, cursor exhausted, permanent source error,
// retry budget exhausted. The first two and cursor exhaustion are success;
// the last two fail the brand but keep the pages already collected.
func (c *Collector) Collect(ctx context.Context, brand, sourceID string, maxAds, maxPages int) BrandCollection {
	log := zap.L().With(zap.String("brand", brand), zap.String("source_id", sourceID))
	start := time.Now()

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("adarchive", "fetch_page")

	var ads []model.NormalizedAdRecord
	result := model.FetchResult{Brand: brand}
	cursor := ""
	pages := 0

	for {
		// Pacing applies before every request, including the first of a page
		// sequence, so back-to-back brand loops cannot burst.
		if err := c.limiter.Wait(ctx); err != nil {
			result.Error = eris.Wrap(err, "ingest: rate limit wait").Error()
			break
		}

		page, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*adarchive.FetchPage, error) {
			return c.client.FetchPage(ctx, adarchive.PageRequest{SourceID: sourceID, Cursor: cursor})
		})
		if err != nil {
			if resilience.IsPermanent(err) {
				log.Warn("permanent source error, keeping partial results",
					zap.Int("pages_fetched", pages), zap.Error(err))
			} else {
				log.Warn("retry budget exhausted, keeping partial results",
					zap.Int("pages_fetched", pages), zap.Error(err))
			}
			result.Error = err.Error()
			break
		}

		pages++
		for _, raw := range page.Items {
			ads = append(ads, Normalize(brand, raw))
		}

		if maxAds > 0 && len(ads) >= maxAds {
			result.Success = true
			break
		}
		if maxPages > 0 && pages >= maxPages {
			result.Success = true
			result.LimitBound = true
			break
		}
		if !page.HasMore || page.NextCursor == "" {
			// Natural exhaustion; zero pages of ads is a valid outcome.
			result.Success = true
			break
		}
		cursor = page.NextCursor
	}

	result.PagesFetched = pages
	result.AdsCollected = len(ads)
	result.FetchTime = time.Since(start)

	log.Info("brand collection finished",
		zap.Bool("success", result.Success),
		zap.Int("pages", result.PagesFetched),
		zap.Int("ads", result.AdsCollected),
		zap.Duration("elapsed", result.FetchTime),
	)
	return BrandCollection{Ads: ads, Result: result}
}

// CollectAll runs Collect for each source on a bounded worker pool. Each
// worker owns its own pagination state; one brand's failure never stops the
// others. Results are returned in source order.
func (c *Collector) CollectAll(ctx context.Context, sources []BrandSource, concurrency, maxAds, maxPages int) []BrandCollection {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]BrandCollection, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, src := range sources {
		g.Go(func() error {
			results[i] = c.Collect(gctx, src.Brand, src.SourceID, maxAds, maxPages)
			return nil // per-brand failures are reported in the FetchResult
		})
	}

	_ = g.Wait()
	return results
}
