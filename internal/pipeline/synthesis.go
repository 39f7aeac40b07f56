package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/pkg/scoring"
)

// synthesisPrompt folds the per-competitor readouts into one briefing.
const synthesisPrompt = `You are writing the final competitive briefing for a brand's marketing team. Combine the per-competitor strategy summaries below into a single coherent briefing: the overall competitive picture, the biggest threats, whitespace the brand can exploit, and three concrete recommendations.

Respond with plain text, using short section headings.`

// SynthesisReport is the synthesis stage's checkpoint payload and the
// pipeline's final deliverable.
type SynthesisReport struct {
	Brand           string    `json:"brand"`
	Vertical        string    `json:"vertical"`
	CompetitorCount int       `json:"competitor_count"`
	AdsAnalyzed     int       `json:"ads_analyzed"`
	Report          string    `json:"report"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// SynthesisStage produces the final briefing from the strategic readouts
// and ingestion statistics.
type SynthesisStage struct {
	Scorer scoring.Client
	Model  string
}

func (s *SynthesisStage) Name() string { return StageSynthesis }
func (s *SynthesisStage) DependsOn() []string {
	return []string{StageStrategic, StageIngestion}
}
func (s *SynthesisStage) SchemaVersion() int { return 1 }

func (s *SynthesisStage) Items(payload []byte) int {
	var report SynthesisReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return 0
	}
	return report.CompetitorCount
}

func (s *SynthesisStage) Execute(ctx context.Context, rc RunContext, upstream Outputs) ([]byte, error) {
	var strategies []BrandStrategy
	if err := upstream.Decode(StageStrategic, &strategies); err != nil {
		return nil, err
	}
	var fetches []model.FetchResult
	if err := upstream.Decode(StageIngestion, &fetches); err != nil {
		return nil, err
	}

	totalAds := 0
	for _, f := range fetches {
		totalAds += f.AdsCollected
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s\nVertical: %s\nCompetitors analyzed: %d\nAds analyzed: %d\n\n",
		rc.Brand, rc.Vertical, len(strategies), totalAds)
	for _, st := range strategies {
		fmt.Fprintf(&b, "## %s (%d ads)\n%s\n\n", st.Brand, st.AdsAnalyzed, st.Summary)
	}

	resp, err := s.Scorer.Score(ctx, scoring.Request{
		Model:     s.Model,
		MaxTokens: 2048,
		System:    synthesisPrompt,
		Prompt:    b.String(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "synthesis: scoring")
	}
	resp.Usage.Log(s.Model, StageSynthesis)

	report := SynthesisReport{
		Brand:           rc.Brand,
		Vertical:        rc.Vertical,
		CompetitorCount: len(strategies),
		AdsAnalyzed:     totalAds,
		Report:          strings.TrimSpace(resp.Text),
		GeneratedAt:     time.Now().UTC(),
	}

	zap.L().Info("synthesis complete",
		zap.String("stage", StageSynthesis),
		zap.String("run_id", rc.RunID),
		zap.Int("report_chars", len(report.Report)),
	)
	return json.Marshal(report)
}
