package pipeline

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
)

// tierRank orders competitor tiers for ranking. Unknown tiers sort last.
var tierRank = map[string]int{
	"primary":   0,
	"secondary": 1,
	"emerging":  2,
}

// RankingStage orders validated competitors and caps the list that moves
// on to ingestion. It is pure: no external calls, no store writes.
type RankingStage struct {
	MaxCompetitors int
}

func (s *RankingStage) Name() string        { return StageRanking }
func (s *RankingStage) DependsOn() []string { return []string{StageCuration} }
func (s *RankingStage) SchemaVersion() int  { return 1 }

func (s *RankingStage) Execute(ctx context.Context, rc RunContext, upstream Outputs) ([]byte, error) {
	var validated []model.ValidatedCompetitor
	if err := upstream.Decode(StageCuration, &validated); err != nil {
		return nil, err
	}

	ranked := make([]model.ValidatedCompetitor, 0, len(validated))
	for _, v := range validated {
		if v.IsCompetitor {
			ranked = append(ranked, v)
		}
	}
	if len(ranked) == 0 {
		return nil, eris.New("ranking: no confirmed competitors")
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ri, iOK := tierRank[ranked[i].Tier]
		rj, jOK := tierRank[ranked[j].Tier]
		if !iOK {
			ri = len(tierRank)
		}
		if !jOK {
			rj = len(tierRank)
		}
		if ri != rj {
			return ri < rj
		}
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].MarketOverlapPct > ranked[j].MarketOverlapPct
	})

	if s.MaxCompetitors > 0 && len(ranked) > s.MaxCompetitors {
		ranked = ranked[:s.MaxCompetitors]
	}

	zap.L().Info("ranking complete",
		zap.String("stage", StageRanking),
		zap.String("run_id", rc.RunID),
		zap.Int("competitors", len(ranked)),
	)
	return json.Marshal(ranked)
}
