package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/store"
	"github.com/sells-group/adintel-cli/pkg/scoring"
)

// labelingPrompt classifies a batch of creatives by angle and hook.
const labelingPrompt = `You are labeling ad creatives. For each ad, identify its marketing angle (e.g. price, social_proof, urgency, feature, lifestyle) and its hook (the attention device in the opening text).

Respond with ONLY valid JSON, no other text:
[{"ad_id": "...", "angle": "...", "hook": "..."}]`

// labelBatchSize caps how many creatives go into one scoring call.
const labelBatchSize = 25

// LabelingSummary is the labeling stage's checkpoint payload.
type LabelingSummary struct {
	AdsLabeled    int `json:"ads_labeled"`
	BrandsLabeled int `json:"brands_labeled"`
	BatchesFailed int `json:"batches_failed"`
}

// LabelingStage annotates stored ads with angle and hook labels.
type LabelingStage struct {
	Scorer scoring.Client
	Model  string
	Ads    store.Ads
}

func (s *LabelingStage) Name() string        { return StageLabeling }
func (s *LabelingStage) DependsOn() []string { return []string{StageIngestion} }
func (s *LabelingStage) SchemaVersion() int  { return 1 }

func (s *LabelingStage) Items(payload []byte) int {
	var sum LabelingSummary
	if err := json.Unmarshal(payload, &sum); err != nil {
		return 0
	}
	return sum.AdsLabeled
}

func (s *LabelingStage) Execute(ctx context.Context, rc RunContext, upstream Outputs) ([]byte, error) {
	log := zap.L().With(zap.String("stage", StageLabeling), zap.String("run_id", rc.RunID))

	var fetches []model.FetchResult
	if err := upstream.Decode(StageIngestion, &fetches); err != nil {
		return nil, err
	}

	summary := LabelingSummary{}
	var usage scoring.TokenUsage

	for _, fetch := range fetches {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if fetch.AdsCollected == 0 {
			continue
		}

		ads, err := s.Ads.ListAds(ctx, rc.RunID, store.AdFilter{Brand: fetch.Brand})
		if err != nil {
			return nil, err
		}

		labeled := 0
		for start := 0; start < len(ads); start += labelBatchSize {
			end := min(start+labelBatchSize, len(ads))
			labels, callUsage, err := s.labelBatch(ctx, ads[start:end])
			if err != nil {
				log.Warn("label batch failed, skipping",
					zap.String("brand", fetch.Brand), zap.Error(err))
				summary.BatchesFailed++
				continue
			}
			usage.Add(callUsage)
			if err := s.Ads.SaveAdLabels(ctx, rc.RunID, labels); err != nil {
				return nil, err
			}
			labeled += len(labels)
		}

		if labeled > 0 {
			summary.AdsLabeled += labeled
			summary.BrandsLabeled++
		}
	}
	usage.Log(s.Model, StageLabeling)

	log.Info("labeling complete",
		zap.Int("ads_labeled", summary.AdsLabeled),
		zap.Int("brands", summary.BrandsLabeled),
		zap.Int("batches_failed", summary.BatchesFailed),
	)
	return json.Marshal(summary)
}

// truncateText caps s at limit bytes without splitting a UTF-8 rune, so
// truncated creative text stays valid in prompt payloads.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (s *LabelingStage) labelBatch(ctx context.Context, ads []model.NormalizedAdRecord) ([]model.AdLabel, scoring.TokenUsage, error) {
	var b strings.Builder
	for _, ad := range ads {
		fmt.Fprintf(&b, "ad_id: %s\ncreative: %s\n\n", ad.AdID, truncateText(ad.CreativeText, 500))
	}

	resp, err := s.Scorer.Score(ctx, scoring.Request{
		Model:     s.Model,
		MaxTokens: 2048,
		System:    labelingPrompt,
		Prompt:    b.String(),
	})
	if err != nil {
		return nil, scoring.TokenUsage{}, err
	}

	var labels []model.AdLabel
	if err := scoring.UnmarshalResponseArray(resp.Text, &labels); err != nil {
		return nil, scoring.TokenUsage{}, err
	}
	return labels, resp.Usage, nil
}
