package pipeline

import (
	"github.com/sells-group/adintel-cli/internal/config"
	"github.com/sells-group/adintel-cli/internal/ingest"
	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/store"
	"github.com/sells-group/adintel-cli/pkg/scoring"
)

// Deps carries the shared collaborators stages are built from.
type Deps struct {
	Scorer    scoring.Client
	Ads       store.Ads
	Collector *ingest.Collector
	Seeds     []model.Candidate
}

// DefaultStages assembles the full nine-stage pipeline in declared order.
func DefaultStages(cfg *config.Config, deps Deps) []Stage {
	return []Stage{
		&DiscoveryStage{
			Scorer:        deps.Scorer,
			Model:         cfg.Scoring.DiscoveryModel,
			Seeds:         deps.Seeds,
			MaxCandidates: cfg.Pipeline.MaxCandidates,
		},
		&CurationStage{
			Scorer: deps.Scorer,
			Model:  cfg.Scoring.CurationModel,
			Ads:    deps.Ads,
		},
		&RankingStage{
			MaxCompetitors: cfg.Pipeline.MaxCompetitors,
		},
		&IngestionStage{
			Collector:        deps.Collector,
			Ads:              deps.Ads,
			Concurrency:      cfg.Ingest.Concurrency,
			MaxAdsPerBrand:   cfg.Ingest.MaxAdsPerBrand,
			MaxPagesPerBrand: cfg.Ingest.MaxPagesPerBrand,
		},
		&LabelingStage{
			Scorer: deps.Scorer,
			Model:  cfg.Scoring.LabelingModel,
			Ads:    deps.Ads,
		},
		&EmbeddingsStage{
			Ads:   deps.Ads,
			Model: cfg.Scoring.EmbeddingModel,
		},
		&VisualStage{
			Ads: deps.Ads,
		},
		&StrategicStage{
			Scorer: deps.Scorer,
			Model:  cfg.Scoring.StrategicModel,
			Ads:    deps.Ads,
		},
		&SynthesisStage{
			Scorer: deps.Scorer,
			Model:  cfg.Scoring.SynthesisModel,
		},
	}
}
