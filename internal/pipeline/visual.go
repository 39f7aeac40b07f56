package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/store"
)

// VisualSummary is the visual stage's checkpoint payload.
type VisualSummary struct {
	AdsWithVisuals int            `json:"ads_with_visuals"`
	ByBrand        map[string]int `json:"by_brand"`
}

// VisualStage inventories which stored ads carry visual assets for the
// analytical engine's image scoring pass. Video creatives contribute their
// preview imagery, so every classified ad with a populated image list
// counts.
type VisualStage struct {
	Ads store.Ads
}

func (s *VisualStage) Name() string        { return StageVisual }
func (s *VisualStage) DependsOn() []string { return []string{StageIngestion} }
func (s *VisualStage) SchemaVersion() int  { return 1 }

func (s *VisualStage) Items(payload []byte) int {
	var sum VisualSummary
	if err := json.Unmarshal(payload, &sum); err != nil {
		return 0
	}
	return sum.AdsWithVisuals
}

func (s *VisualStage) Execute(ctx context.Context, rc RunContext, upstream Outputs) ([]byte, error) {
	var fetches []model.FetchResult
	if err := upstream.Decode(StageIngestion, &fetches); err != nil {
		return nil, err
	}

	summary := VisualSummary{ByBrand: make(map[string]int, len(fetches))}
	for _, fetch := range fetches {
		if fetch.AdsCollected == 0 {
			continue
		}
		ads, err := s.Ads.ListAds(ctx, rc.RunID, store.AdFilter{Brand: fetch.Brand, OnlyImages: true})
		if err != nil {
			return nil, eris.Wrapf(err, "visual: list ads for %s", fetch.Brand)
		}
		if len(ads) > 0 {
			summary.ByBrand[fetch.Brand] = len(ads)
			summary.AdsWithVisuals += len(ads)
		}
	}

	zap.L().Info("visual inventory complete",
		zap.String("stage", StageVisual),
		zap.String("run_id", rc.RunID),
		zap.Int("ads_with_visuals", summary.AdsWithVisuals),
	)
	return json.Marshal(summary)
}
