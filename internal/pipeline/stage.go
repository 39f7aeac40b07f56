package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Stage names, in declared pipeline order.
const (
	StageDiscovery  = "discovery"
	StageCuration   = "curation"
	StageRanking    = "ranking"
	StageIngestion  = "ingestion"
	StageLabeling   = "labeling"
	StageEmbeddings = "embeddings"
	StageVisual     = "visual"
	StageStrategic  = "strategic"
	StageSynthesis  = "synthesis"
)

// Outputs maps stage names to their checkpointed JSON payloads.
type Outputs map[string][]byte

// Decode unmarshals the named stage's payload into v.
func (o Outputs) Decode(stage string, v any) error {
	payload, ok := o[stage]
	if !ok {
		return eris.Errorf("pipeline: missing upstream output %q", stage)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return eris.Wrapf(err, "pipeline: decode upstream output %q", stage)
	}
	return nil
}

// Stage is one checkpointable unit of work. Stages are stateless between
// runs: Execute receives the run context and its declared upstream outputs
// and returns a JSON payload that becomes this stage's checkpoint.
type Stage interface {
	// Name is the stage's unique name within the pipeline.
	Name() string

	// DependsOn lists the upstream stage names whose outputs this stage
	// consumes. Every name must belong to a stage earlier in the sequence.
	DependsOn() []string

	// SchemaVersion is the version of the payload shape this stage emits.
	// Bump it when the shape changes so stale checkpoints force a re-run.
	SchemaVersion() int

	Execute(ctx context.Context, rc RunContext, upstream Outputs) ([]byte, error)
}

// ItemCounter is an optional Stage extension. Stages whose payload is an
// object rather than an array implement it so progress reporting can show
// how many items the stage processed instead of zero.
type ItemCounter interface {
	Items(payload []byte) int
}
