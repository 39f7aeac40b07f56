// Package pipeline sequences the analysis stages of an ad intelligence
// run, checkpointing each stage's output so interrupted runs resume where
// they stopped.
package pipeline

import "github.com/google/uuid"

// RunContext is the immutable run-scoped identity shared by every stage.
// The run id is generated once and stays stable across resumes of the
// same run.
type RunContext struct {
	RunID    string
	Brand    string
	Vertical string
	Verbose  bool
}

// NewRunContext creates a RunContext with a fresh run id.
func NewRunContext(brand, vertical string) RunContext {
	return RunContext{
		RunID:    uuid.New().String(),
		Brand:    brand,
		Vertical: vertical,
	}
}

// WithRunID returns a copy bound to an existing run id, for resuming.
func (rc RunContext) WithRunID(runID string) RunContext {
	rc.RunID = runID
	return rc
}
