package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adintel-cli/internal/model"
)

func TestStrategic_SummarizesPerCompetitor(t *testing.T) {
	ads := newFakeAds()
	seedAds(ads, "Globex", 3)

	scorer := &fakeScorer{responses: []string{"Globex leans on price urgency."}}
	s := &StrategicStage{Scorer: scorer, Ads: ads}

	upstream := rankingPayload(t, []model.ValidatedCompetitor{
		vc("Globex", "primary", true, 0.9, 70),
		vc("No Ads Co", "secondary", true, 0.7, 30),
	})

	payload, err := s.Execute(context.Background(), testRC(), upstream)
	require.NoError(t, err)

	var strategies []BrandStrategy
	require.NoError(t, json.Unmarshal(payload, &strategies))
	require.Len(t, strategies, 1, "competitors without creatives are skipped")
	assert.Equal(t, "Globex", strategies[0].Brand)
	assert.Equal(t, 3, strategies[0].AdsAnalyzed)
	assert.Equal(t, "Globex leans on price urgency.", strategies[0].Summary)
}

func TestStrategic_ScorerFailureSkipsBrand(t *testing.T) {
	ads := newFakeAds()
	seedAds(ads, "Globex", 1)
	seedAds(ads, "Initech", 1)

	scorer := &fakeScorer{
		responses: []string{"", "Initech targets enterprise."},
		errs:      []error{errors.New("overloaded"), nil},
	}
	s := &StrategicStage{Scorer: scorer, Ads: ads}

	upstream := rankingPayload(t, []model.ValidatedCompetitor{
		vc("Globex", "primary", true, 0.9, 70),
		vc("Initech", "secondary", true, 0.7, 30),
	})

	payload, err := s.Execute(context.Background(), testRC(), upstream)
	require.NoError(t, err)

	var strategies []BrandStrategy
	require.NoError(t, json.Unmarshal(payload, &strategies))
	require.Len(t, strategies, 1)
	assert.Equal(t, "Initech", strategies[0].Brand)
}

func TestStrategic_NoAnalyzableCreativesFatal(t *testing.T) {
	s := &StrategicStage{Scorer: &fakeScorer{}, Ads: newFakeAds()}

	upstream := rankingPayload(t, []model.ValidatedCompetitor{
		vc("Ghost", "primary", true, 0.9, 70),
	})

	_, err := s.Execute(context.Background(), testRC(), upstream)
	require.Error(t, err)
}

func TestSynthesis_ProducesReport(t *testing.T) {
	scorer := &fakeScorer{responses: []string{"## Competitive picture\nThe market is crowded."}}
	s := &SynthesisStage{Scorer: scorer}

	strategies, err := json.Marshal([]BrandStrategy{
		{Brand: "Globex", AdsAnalyzed: 3, Summary: "Price urgency."},
	})
	require.NoError(t, err)
	fetches, err := json.Marshal([]model.FetchResult{
		{Brand: "Globex", Success: true, AdsCollected: 3},
		{Brand: "Initech", Success: true, AdsCollected: 2},
	})
	require.NoError(t, err)

	upstream := Outputs{StageStrategic: strategies, StageIngestion: fetches}

	payload, err := s.Execute(context.Background(), testRC(), upstream)
	require.NoError(t, err)

	var report SynthesisReport
	require.NoError(t, json.Unmarshal(payload, &report))
	assert.Equal(t, "Acme", report.Brand)
	assert.Equal(t, 1, report.CompetitorCount)
	assert.Equal(t, 5, report.AdsAnalyzed)
	assert.Contains(t, report.Report, "crowded")
	assert.False(t, report.GeneratedAt.IsZero())
	assert.Equal(t, 1, s.Items(payload))
}

func TestSynthesis_ScorerFailureIsFatal(t *testing.T) {
	scorer := &fakeScorer{errs: []error{errors.New("down")}}
	s := &SynthesisStage{Scorer: scorer}

	upstream := Outputs{StageStrategic: []byte(`[]`), StageIngestion: []byte(`[]`)}

	_, err := s.Execute(context.Background(), testRC(), upstream)
	require.Error(t, err)
}

func TestEmbeddings_RecordsCount(t *testing.T) {
	ads := newFakeAds()
	seedAds(ads, "Globex", 4)

	s := &EmbeddingsStage{Ads: ads, Model: "voyage-3"}
	payload, err := s.Execute(context.Background(), testRC(), nil)
	require.NoError(t, err)

	var summary EmbeddingsSummary
	require.NoError(t, json.Unmarshal(payload, &summary))
	assert.Equal(t, 4, summary.AdsSubmitted)
	assert.Equal(t, "voyage-3", summary.Model)
	assert.Equal(t, 4, s.Items(payload))
}

func TestVisual_CountsAdsWithImagery(t *testing.T) {
	ads := newFakeAds()
	seedAds(ads, "Globex", 2)
	ads.ads["run-1"] = append(ads.ads["run-1"], model.NormalizedAdRecord{
		AdID: "Globex-text", Brand: "Globex", MediaType: model.MediaTypeUnknown,
	})

	s := &VisualStage{Ads: ads}
	upstream := ingestionPayload(t, []model.FetchResult{
		{Brand: "Globex", Success: true, AdsCollected: 3},
	})

	payload, err := s.Execute(context.Background(), testRC(), upstream)
	require.NoError(t, err)

	var summary VisualSummary
	require.NoError(t, json.Unmarshal(payload, &summary))
	assert.Equal(t, 2, summary.AdsWithVisuals)
	assert.Equal(t, 2, summary.ByBrand["Globex"])
	assert.Equal(t, 2, s.Items(payload))
}
