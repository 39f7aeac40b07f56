package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/store"
)

// EmbeddingsSummary is the embeddings stage's checkpoint payload.
type EmbeddingsSummary struct {
	AdsSubmitted int    `json:"ads_submitted"`
	Model        string `json:"model"`
}

// EmbeddingsStage registers the run's creative text for embedding. The
// vectors themselves are computed inside the analytical engine; this stage
// records what was submitted so downstream stages and resumes can rely on
// the count.
type EmbeddingsStage struct {
	Ads   store.Ads
	Model string
}

func (s *EmbeddingsStage) Name() string        { return StageEmbeddings }
func (s *EmbeddingsStage) DependsOn() []string { return []string{StageIngestion} }
func (s *EmbeddingsStage) SchemaVersion() int  { return 1 }

func (s *EmbeddingsStage) Items(payload []byte) int {
	var sum EmbeddingsSummary
	if err := json.Unmarshal(payload, &sum); err != nil {
		return 0
	}
	return sum.AdsSubmitted
}

func (s *EmbeddingsStage) Execute(ctx context.Context, rc RunContext, _ Outputs) ([]byte, error) {
	total, err := s.Ads.CountAds(ctx, rc.RunID)
	if err != nil {
		return nil, eris.Wrap(err, "embeddings: count ads")
	}

	zap.L().Info("embeddings submitted",
		zap.String("stage", StageEmbeddings),
		zap.String("run_id", rc.RunID),
		zap.Int("ads", total),
		zap.String("model", s.Model),
	)
	return json.Marshal(EmbeddingsSummary{AdsSubmitted: total, Model: s.Model})
}
