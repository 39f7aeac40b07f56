package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/pkg/scoring"
)

// discoveryPrompt asks the scoring service for likely competitors.
const discoveryPrompt = `You are mapping the competitive landscape for an advertiser. Given a brand and its vertical, list the companies most likely to compete with it for the same ad audience.

Respond with ONLY valid JSON, no other text:
[{"company_name": "...", "raw_score": 0.0}]

raw_score is your 0.0-1.0 estimate of competitive relevance. List at most %d companies, strongest first.`

// DiscoveryStage produces the initial competitor candidate list from seed
// files and the scoring service.
type DiscoveryStage struct {
	Scorer        scoring.Client
	Model         string
	Seeds         []model.Candidate
	MaxCandidates int
}

func (s *DiscoveryStage) Name() string        { return StageDiscovery }
func (s *DiscoveryStage) DependsOn() []string { return nil }
func (s *DiscoveryStage) SchemaVersion() int  { return 1 }

func (s *DiscoveryStage) Execute(ctx context.Context, rc RunContext, _ Outputs) ([]byte, error) {
	log := zap.L().With(zap.String("stage", StageDiscovery), zap.String("run_id", rc.RunID))

	maxCandidates := s.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 15
	}

	candidates := make([]model.Candidate, 0, maxCandidates)
	seenNames := make(map[string]bool)

	// Seed lists come first: they carry verified source ids.
	for _, seed := range s.Seeds {
		key := strings.ToLower(strings.TrimSpace(seed.CompanyName))
		if key == "" || seenNames[key] {
			continue
		}
		seenNames[key] = true
		if seed.SourceID == "" {
			seed.SourceID = Slugify(seed.CompanyName)
		}
		candidates = append(candidates, seed)
	}

	discovered, err := s.discoverViaScoring(ctx, rc, maxCandidates)
	if err != nil {
		if len(candidates) == 0 {
			return nil, eris.Wrap(err, "discovery: scoring")
		}
		log.Warn("scoring discovery failed, continuing with seeds only", zap.Error(err))
	}
	for _, c := range discovered {
		key := strings.ToLower(strings.TrimSpace(c.CompanyName))
		if key == "" || seenNames[key] {
			continue
		}
		seenNames[key] = true
		candidates = append(candidates, c)
	}

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	if len(candidates) == 0 {
		return nil, eris.New("discovery: no candidates found")
	}

	log.Info("discovery complete", zap.Int("candidates", len(candidates)))
	return json.Marshal(candidates)
}

func (s *DiscoveryStage) discoverViaScoring(ctx context.Context, rc RunContext, limit int) ([]model.Candidate, error) {
	if s.Scorer == nil {
		return nil, nil
	}

	resp, err := s.Scorer.Score(ctx, scoring.Request{
		Model:     s.Model,
		MaxTokens: 1024,
		System:    fmt.Sprintf(discoveryPrompt, limit),
		Prompt:    fmt.Sprintf("Brand: %s\nVertical: %s", rc.Brand, rc.Vertical),
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.Log(s.Model, StageDiscovery)

	var parsed []struct {
		CompanyName string  `json:"company_name"`
		RawScore    float64 `json:"raw_score"`
	}
	if err := scoring.UnmarshalResponseArray(resp.Text, &parsed); err != nil {
		return nil, err
	}

	out := make([]model.Candidate, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, model.Candidate{
			CompanyName: p.CompanyName,
			SourceList:  "llm_discovery",
			RawScore:    p.RawScore,
			SourceID:    Slugify(p.CompanyName),
		})
	}
	return out, nil
}

// Slugify derives an ad-archive source id from a company name when the
// seed list did not provide one.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
