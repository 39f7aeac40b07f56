package model

// StageStatus describes how a stage concluded within one orchestrator run.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusSkipped  StageStatus = "skipped"
	StageStatusFailed   StageStatus = "failed"
)

// StageResult records one stage's outcome for the run report.
type StageResult struct {
	Name     string      `json:"name"`
	Status   StageStatus `json:"status"`
	Duration int64       `json:"duration_ms"`
	Items    int         `json:"items,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// RunReport is the orchestrator's terminal summary of one pipeline run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	Brand       string        `json:"brand"`
	Vertical    string        `json:"vertical"`
	Stages      []StageResult `json:"stages"`
	FailedStage string        `json:"failed_stage,omitempty"`
}
