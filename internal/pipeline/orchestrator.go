package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/internal/store"
)

// StageFailureError is the fatal outcome of a run: it names the stage that
// failed so the caller can report it and resume later under the same run id.
type StageFailureError struct {
	Stage string
	Err   error
}

func (e *StageFailureError) Error() string {
	return fmt.Sprintf("pipeline: stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailureError) Unwrap() error {
	return e.Err
}

// Orchestrator runs stages strictly in declared order, consulting the
// checkpoint store before each stage. A stage with a usable checkpoint is
// skipped and its stored output reused, so re-running a run id with no
// forced stages is a no-op.
type Orchestrator struct {
	checkpoints store.Checkpoints
	reporter    Reporter
}

// NewOrchestrator creates an Orchestrator. A nil reporter defaults to the
// zap-backed one.
func NewOrchestrator(checkpoints store.Checkpoints, reporter Reporter) *Orchestrator {
	if reporter == nil {
		reporter = ZapReporter{}
	}
	return &Orchestrator{checkpoints: checkpoints, reporter: reporter}
}

// Run executes stages in order. Stages named in force re-execute even when
// a checkpoint exists; their fresh output supersedes the old one. On stage
// failure the remaining sequence is abandoned, prior checkpoints stay
// intact, and the returned error is a *StageFailureError.
func (o *Orchestrator) Run(ctx context.Context, rc RunContext, stages []Stage, force map[string]bool) (*model.RunReport, error) {
	if err := validateOrder(stages); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("run_id", rc.RunID), zap.String("brand", rc.Brand))
	log.Info("pipeline starting", zap.Int("stages", len(stages)))

	report := &model.RunReport{RunID: rc.RunID, Brand: rc.Brand, Vertical: rc.Vertical}
	outputs := make(Outputs, len(stages))

	for _, st := range stages {
		name := st.Name()

		if !force[name] {
			payload, err := o.checkpoints.LoadCheckpoint(ctx, rc.RunID, name, st.SchemaVersion())
			switch {
			case err == nil:
				outputs[name] = payload
				o.reporter.StageSkipped(name)
				report.Stages = append(report.Stages, model.StageResult{
					Name:   name,
					Status: model.StageStatusSkipped,
					Items:  stageItems(st, payload),
				})
				continue
			case errors.Is(err, store.ErrCheckpointNotFound):
				// Never ran (or version rolled); execute below.
			default:
				var corrupt *store.CorruptionError
				if errors.As(err, &corrupt) {
					log.Warn("checkpoint unreadable, re-running stage",
						zap.String("stage", name), zap.Error(corrupt))
					break
				}
				// A real store failure is not safe to paper over.
				return report, eris.Wrapf(err, "pipeline: load checkpoint for %s", name)
			}
		}

		upstream := make(Outputs, len(st.DependsOn()))
		for _, dep := range st.DependsOn() {
			upstream[dep] = outputs[dep]
		}

		o.reporter.StageStart(name)
		start := time.Now()
		payload, err := st.Execute(ctx, rc, upstream)
		elapsed := time.Since(start)

		if err != nil {
			o.reporter.StageFailed(name, elapsed, err)
			report.Stages = append(report.Stages, model.StageResult{
				Name:     name,
				Status:   model.StageStatusFailed,
				Duration: elapsed.Milliseconds(),
				Error:    err.Error(),
			})
			report.FailedStage = name
			return report, &StageFailureError{Stage: name, Err: err}
		}

		// The checkpoint must land before the next stage becomes eligible,
		// so a crash between stages never loses completed work.
		if err := o.checkpoints.SaveCheckpoint(ctx, rc.RunID, name, st.SchemaVersion(), payload); err != nil {
			o.reporter.StageFailed(name, elapsed, err)
			report.FailedStage = name
			return report, &StageFailureError{Stage: name, Err: err}
		}

		outputs[name] = payload
		items := stageItems(st, payload)
		o.reporter.StageDone(name, elapsed, items)
		report.Stages = append(report.Stages, model.StageResult{
			Name:     name,
			Status:   model.StageStatusComplete,
			Duration: elapsed.Milliseconds(),
			Items:    items,
		})
	}

	log.Info("pipeline complete", zap.Int("stages", len(report.Stages)))
	return report, nil
}

// validateOrder checks that stage names are unique and every declared
// dependency appears earlier in the sequence.
func validateOrder(stages []Stage) error {
	seen := make(map[string]bool, len(stages))
	for _, st := range stages {
		name := st.Name()
		if seen[name] {
			return eris.Errorf("pipeline: duplicate stage %q", name)
		}
		for _, dep := range st.DependsOn() {
			if !seen[dep] {
				return eris.Errorf("pipeline: stage %q depends on %q which does not precede it", name, dep)
			}
		}
		seen[name] = true
	}
	return nil
}

// stageItems asks the stage itself when it implements ItemCounter, else
// falls back to counting the payload's array elements.
func stageItems(st Stage, payload []byte) int {
	if c, ok := st.(ItemCounter); ok {
		return c.Items(payload)
	}
	return countItems(payload)
}

// countItems returns the element count when payload is a JSON array, else 0.
func countItems(payload []byte) int {
	var arr []json.RawMessage
	if err := json.Unmarshal(payload, &arr); err != nil {
		return 0
	}
	return len(arr)
}
