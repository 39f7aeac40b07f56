package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/store"
	"github.com/sells-group/adintel-cli/pkg/scoring"
)

// strategicPrompt summarizes one competitor's creative strategy.
const strategicPrompt = `You are a competitive advertising analyst. From the sample of a competitor's ad creatives below, summarize their apparent strategy: positioning, recurring angles, offer structure, and target audience. Be concrete and cite the creatives.

Respond with 2-4 short paragraphs of plain text.`

// strategicSampleSize caps how many creatives feed one competitor summary.
const strategicSampleSize = 20

// BrandStrategy is one competitor's strategy summary.
type BrandStrategy struct {
	Brand       string `json:"brand"`
	AdsAnalyzed int    `json:"ads_analyzed"`
	Summary     string `json:"summary"`
}

// StrategicStage produces a per-competitor strategy readout from the
// collected creatives.
type StrategicStage struct {
	Scorer scoring.Client
	Model  string
	Ads    store.Ads
}

func (s *StrategicStage) Name() string        { return StageStrategic }
func (s *StrategicStage) DependsOn() []string { return []string{StageRanking, StageIngestion} }
func (s *StrategicStage) SchemaVersion() int  { return 1 }

func (s *StrategicStage) Execute(ctx context.Context, rc RunContext, upstream Outputs) ([]byte, error) {
	log := zap.L().With(zap.String("stage", StageStrategic), zap.String("run_id", rc.RunID))

	var ranked []model.ValidatedCompetitor
	if err := upstream.Decode(StageRanking, &ranked); err != nil {
		return nil, err
	}

	strategies := make([]BrandStrategy, 0, len(ranked))
	var usage scoring.TokenUsage

	for _, competitor := range ranked {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		ads, err := s.Ads.ListAds(ctx, rc.RunID, store.AdFilter{
			Brand: competitor.CompanyName,
			Limit: strategicSampleSize,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "strategic: list ads for %s", competitor.CompanyName)
		}
		if len(ads) == 0 {
			continue
		}

		summary, callUsage, err := s.summarize(ctx, competitor.CompanyName, ads)
		if err != nil {
			log.Warn("strategy summary failed, skipping brand",
				zap.String("brand", competitor.CompanyName), zap.Error(err))
			continue
		}
		usage.Add(callUsage)
		strategies = append(strategies, BrandStrategy{
			Brand:       competitor.CompanyName,
			AdsAnalyzed: len(ads),
			Summary:     summary,
		})
	}
	usage.Log(s.Model, StageStrategic)

	if len(strategies) == 0 {
		return nil, eris.New("strategic: no competitor had analyzable creatives")
	}

	log.Info("strategic analysis complete", zap.Int("brands", len(strategies)))
	return json.Marshal(strategies)
}

func (s *StrategicStage) summarize(ctx context.Context, brand string, ads []model.NormalizedAdRecord) (string, scoring.TokenUsage, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Competitor: %s\n\n", brand)
	for i, ad := range ads {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, ad.MediaType, truncateText(ad.CreativeText, 400))
	}

	resp, err := s.Scorer.Score(ctx, scoring.Request{
		Model:     s.Model,
		MaxTokens: 1024,
		System:    strategicPrompt,
		Prompt:    b.String(),
	})
	if err != nil {
		return "", scoring.TokenUsage{}, err
	}
	return strings.TrimSpace(resp.Text), resp.Usage, nil
}
