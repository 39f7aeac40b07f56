package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/ingest"
	"github.com/sells-group/adintel-cli/internal/pipeline"
	"github.com/sells-group/adintel-cli/internal/resilience"
	"github.com/sells-group/adintel-cli/pkg/adarchive"
)

var (
	ingestBrands   []string
	ingestMaxAds   int
	ingestMaxPages int
)

// ingestCmd fetches ad archives for named brands without running the full
// pipeline. Useful for smoke-testing archive access and rate limits.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch ad archives for brands directly",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		archiveClient := adarchive.NewClient(cfg.Archive.Key,
			adarchive.WithBaseURL(cfg.Archive.BaseURL),
			adarchive.WithPageSize(cfg.Archive.PageSize),
		)

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.MaxAttempts = cfg.Ingest.RetryMaxAttempts
		retryCfg.OnRetry = resilience.RetryLogger("adarchive", "fetch_page")
		collector := ingest.NewCollector(archiveClient, cfg.Ingest.RequestDelay(), retryCfg)

		sources := make([]ingest.BrandSource, 0, len(ingestBrands))
		for _, b := range ingestBrands {
			sources = append(sources, ingest.BrandSource{
				Brand:    b,
				SourceID: pipeline.Slugify(b),
			})
		}

		maxAds := ingestMaxAds
		if maxAds == 0 {
			maxAds = cfg.Ingest.MaxAdsPerBrand
		}
		maxPages := ingestMaxPages
		if maxPages == 0 {
			maxPages = cfg.Ingest.MaxPagesPerBrand
		}

		collections := collector.CollectAll(ctx, sources, cfg.Ingest.Concurrency, maxAds, maxPages)

		results := make([]any, 0, len(collections))
		for _, c := range collections {
			if c.Result.Error != "" {
				zap.L().Warn("brand fetch incomplete",
					zap.String("brand", c.Result.Brand),
					zap.Int("ads", c.Result.AdsCollected),
					zap.String("error", c.Result.Error),
				)
			}
			results = append(results, c.Result)
		}

		return printReport(results)
	},
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestBrands, "brand", nil, "brand to fetch (repeatable, required)")
	ingestCmd.Flags().IntVar(&ingestMaxAds, "max-ads", 0, "stop after this many ads per brand (0 = config default)")
	ingestCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 0, "stop after this many pages per brand (0 = config default)")
	_ = ingestCmd.MarkFlagRequired("brand")
	rootCmd.AddCommand(ingestCmd)
}
