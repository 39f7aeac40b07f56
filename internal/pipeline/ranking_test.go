package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adintel-cli/internal/model"
)

func curationPayload(t *testing.T, validated []model.ValidatedCompetitor) Outputs {
	t.Helper()
	payload, err := json.Marshal(validated)
	require.NoError(t, err)
	return Outputs{StageCuration: payload}
}

func vc(name, tier string, isCompetitor bool, confidence, overlap float64) model.ValidatedCompetitor {
	return model.ValidatedCompetitor{
		Candidate:        model.Candidate{CompanyName: name},
		IsCompetitor:     isCompetitor,
		Tier:             tier,
		Confidence:       confidence,
		MarketOverlapPct: overlap,
	}
}

func rankedNames(t *testing.T, payload []byte) []string {
	t.Helper()
	var ranked []model.ValidatedCompetitor
	require.NoError(t, json.Unmarshal(payload, &ranked))
	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.CompanyName
	}
	return names
}

func TestRanking_TierThenConfidence(t *testing.T) {
	upstream := curationPayload(t, []model.ValidatedCompetitor{
		vc("Emerging High", "emerging", true, 0.99, 90),
		vc("Primary Low", "primary", true, 0.5, 10),
		vc("Primary High", "primary", true, 0.9, 10),
		vc("Secondary", "secondary", true, 0.8, 50),
	})

	s := &RankingStage{}
	payload, err := s.Execute(context.Background(), testRC(), upstream)
	require.NoError(t, err)

	assert.Equal(t, []string{"Primary High", "Primary Low", "Secondary", "Emerging High"}, rankedNames(t, payload))
}

func TestRanking_OverlapBreaksConfidenceTies(t *testing.T) {
	upstream := curationPayload(t, []model.ValidatedCompetitor{
		vc("Less Overlap", "primary", true, 0.8, 20),
		vc("More Overlap", "primary", true, 0.8, 60),
	})

	s := &RankingStage{}
	payload, err := s.Execute(context.Background(), testRC(), upstream)
	require.NoError(t, err)

	assert.Equal(t, []string{"More Overlap", "Less Overlap"}, rankedNames(t, payload))
}

func TestRanking_FiltersNonCompetitorsAndCaps(t *testing.T) {
	upstream := curationPayload(t, []model.ValidatedCompetitor{
		vc("Not Really", "primary", false, 0.9, 80),
		vc("A", "primary", true, 0.9, 80),
		vc("B", "primary", true, 0.8, 80),
		vc("C", "secondary", true, 0.9, 80),
	})

	s := &RankingStage{MaxCompetitors: 2}
	payload, err := s.Execute(context.Background(), testRC(), upstream)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, rankedNames(t, payload))
}

func TestRanking_UnknownTierSortsLast(t *testing.T) {
	upstream := curationPayload(t, []model.ValidatedCompetitor{
		vc("Mystery", "wildcard", true, 0.99, 99),
		vc("Known", "emerging", true, 0.1, 1),
	})

	s := &RankingStage{}
	payload, err := s.Execute(context.Background(), testRC(), upstream)
	require.NoError(t, err)

	assert.Equal(t, []string{"Known", "Mystery"}, rankedNames(t, payload))
}

func TestRanking_NoCompetitorsFails(t *testing.T) {
	upstream := curationPayload(t, []model.ValidatedCompetitor{
		vc("Nope", "primary", false, 0.9, 80),
	})

	s := &RankingStage{}
	_, err := s.Execute(context.Background(), testRC(), upstream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no confirmed competitors")
}
