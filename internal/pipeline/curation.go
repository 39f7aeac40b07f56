package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/store"
	"github.com/sells-group/adintel-cli/pkg/scoring"
)

// curationPrompt validates a single candidate as a real competitor.
const curationPrompt = `You are validating whether a company is a genuine advertising competitor of a target brand. Assess market overlap, audience overlap, and whether they plausibly run paid creative in the same channels.

Respond with ONLY valid JSON, no other text:
{"is_competitor": true, "tier": "primary|secondary|emerging", "confidence": 0.0, "market_overlap_pct": 0.0}

confidence is 0.0-1.0; market_overlap_pct is 0-100.`

// CurationStage reviews discovery candidates and persists the validated
// competitor set to the analytical store.
type CurationStage struct {
	Scorer scoring.Client
	Model  string
	Ads    store.Ads
}

func (s *CurationStage) Name() string        { return StageCuration }
func (s *CurationStage) DependsOn() []string { return []string{StageDiscovery} }
func (s *CurationStage) SchemaVersion() int  { return 1 }

func (s *CurationStage) Execute(ctx context.Context, rc RunContext, upstream Outputs) ([]byte, error) {
	log := zap.L().With(zap.String("stage", StageCuration), zap.String("run_id", rc.RunID))

	var candidates []model.Candidate
	if err := upstream.Decode(StageDiscovery, &candidates); err != nil {
		return nil, err
	}

	validated := make([]model.ValidatedCompetitor, 0, len(candidates))
	var usage scoring.TokenUsage

	for _, c := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		v, callUsage, err := s.validate(ctx, rc, c)
		if err != nil {
			// One bad candidate is not worth failing the run over.
			log.Warn("candidate validation failed, dropping",
				zap.String("candidate", c.CompanyName), zap.Error(err))
			continue
		}
		usage.Add(callUsage)
		if rc.Verbose {
			log.Info("candidate validated",
				zap.String("candidate", c.CompanyName),
				zap.Bool("is_competitor", v.IsCompetitor),
				zap.String("tier", v.Tier),
				zap.Float64("confidence", v.Confidence),
			)
		}
		validated = append(validated, v)
	}
	usage.Log(s.Model, StageCuration)

	if len(validated) == 0 {
		return nil, eris.New("curation: no candidates survived validation")
	}

	// A forced or reset re-run replaces the run's competitor rows rather
	// than appending a second generation alongside the first.
	if err := s.Ads.DeleteCompetitors(ctx, rc.RunID); err != nil {
		return nil, eris.Wrap(err, "curation: clear previous competitors")
	}
	if err := s.Ads.SaveCompetitors(ctx, rc.RunID, validated); err != nil {
		return nil, eris.Wrap(err, "curation: persist competitors")
	}

	log.Info("curation complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("validated", len(validated)),
	)
	return json.Marshal(validated)
}

func (s *CurationStage) validate(ctx context.Context, rc RunContext, c model.Candidate) (model.ValidatedCompetitor, scoring.TokenUsage, error) {
	resp, err := s.Scorer.Score(ctx, scoring.Request{
		Model:     s.Model,
		MaxTokens: 256,
		System:    curationPrompt,
		Prompt: fmt.Sprintf("Target brand: %s\nVertical: %s\nCandidate: %s (source: %s, raw score %.2f)",
			rc.Brand, rc.Vertical, c.CompanyName, c.SourceList, c.RawScore),
	})
	if err != nil {
		return model.ValidatedCompetitor{}, scoring.TokenUsage{}, err
	}

	var parsed struct {
		IsCompetitor     bool    `json:"is_competitor"`
		Tier             string  `json:"tier"`
		Confidence       float64 `json:"confidence"`
		MarketOverlapPct float64 `json:"market_overlap_pct"`
	}
	if err := scoring.UnmarshalResponse(resp.Text, &parsed); err != nil {
		return model.ValidatedCompetitor{}, scoring.TokenUsage{}, err
	}

	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}

	return model.ValidatedCompetitor{
		Candidate:        c,
		IsCompetitor:     parsed.IsCompetitor,
		Tier:             parsed.Tier,
		Confidence:       parsed.Confidence,
		MarketOverlapPct: parsed.MarketOverlapPct,
	}, resp.Usage, nil
}
