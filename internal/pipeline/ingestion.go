package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/ingest"
	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/store"
)

// IngestionStage collects ads for every ranked competitor and writes the
// normalized records to the analytical store. Per-brand fetch failures are
// recorded in the payload and never fail the stage; only a store write
// failure does.
type IngestionStage struct {
	Collector        *ingest.Collector
	Ads              store.Ads
	Concurrency      int
	MaxAdsPerBrand   int
	MaxPagesPerBrand int
}

func (s *IngestionStage) Name() string        { return StageIngestion }
func (s *IngestionStage) DependsOn() []string { return []string{StageRanking} }
func (s *IngestionStage) SchemaVersion() int  { return 1 }

func (s *IngestionStage) Execute(ctx context.Context, rc RunContext, upstream Outputs) ([]byte, error) {
	log := zap.L().With(zap.String("stage", StageIngestion), zap.String("run_id", rc.RunID))

	var ranked []model.ValidatedCompetitor
	if err := upstream.Decode(StageRanking, &ranked); err != nil {
		return nil, err
	}

	sources := make([]ingest.BrandSource, 0, len(ranked))
	for _, c := range ranked {
		sourceID := c.SourceID
		if sourceID == "" {
			sourceID = Slugify(c.CompanyName)
		}
		sources = append(sources, ingest.BrandSource{Brand: c.CompanyName, SourceID: sourceID})
	}

	collections := s.Collector.CollectAll(ctx, sources, s.Concurrency, s.MaxAdsPerBrand, s.MaxPagesPerBrand)

	// A forced or reset re-run replaces the run's rows rather than
	// appending a second generation alongside the first.
	if err := s.Ads.DeleteAds(ctx, rc.RunID); err != nil {
		return nil, eris.Wrap(err, "ingestion: clear previous ads")
	}

	results := make([]model.FetchResult, 0, len(collections))
	totalAds := 0
	failedBrands := 0
	for _, col := range collections {
		// Partial results from failed brands are kept too.
		if err := s.Ads.SaveAds(ctx, rc.RunID, col.Ads); err != nil {
			return nil, eris.Wrapf(err, "ingestion: persist ads for %s", col.Result.Brand)
		}
		if rc.Verbose {
			log.Info("brand collected",
				zap.String("brand", col.Result.Brand),
				zap.Int("ads", len(col.Ads)),
				zap.Int("pages", col.Result.PagesFetched),
				zap.Bool("success", col.Result.Success),
			)
		}
		totalAds += len(col.Ads)
		if !col.Result.Success {
			failedBrands++
		}
		results = append(results, col.Result)
	}

	log.Info("ingestion complete",
		zap.Int("brands", len(results)),
		zap.Int("failed_brands", failedBrands),
		zap.Int("ads", totalAds),
	)
	return json.Marshal(results)
}
