// Package store persists stage checkpoints and the analytical ad tables.
// Two backends are provided: SQLite (default, local) and Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/adintel-cli/internal/model"
)

// ErrCheckpointNotFound is returned by LoadCheckpoint when no usable
// payload exists for (run_id, stage_name). A schema-version mismatch is
// reported the same way so stale-shaped payloads force a re-run.
var ErrCheckpointNotFound = eris.New("store: checkpoint not found")

// CorruptionError reports a checkpoint row that exists but cannot be read
// back as valid JSON. Resume logic treats it as a miss, but it is surfaced
// as its own type so an operator can tell "never ran" from "ran but
// unreadable".
type CorruptionError struct {
	RunID string
	Stage string
	Err   error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("store: corrupt checkpoint %s/%s: %v", e.RunID, e.Stage, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Stages    int       `json:"stages"`
	LastStage string    `json:"last_stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckpointInfo describes one stored checkpoint without its payload.
type CheckpointInfo struct {
	StageName     string    `json:"stage_name"`
	SchemaVersion int       `json:"schema_version"`
	PayloadBytes  int       `json:"payload_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

// AdFilter narrows ListAds.
type AdFilter struct {
	Brand      string
	OnlyImages bool
	Limit      int
}

// Checkpoints is durable stage-output persistence. At most one live payload
// exists per (run_id, stage_name); Save overwrites.
type Checkpoints interface {
	SaveCheckpoint(ctx context.Context, runID, stage string, schemaVersion int, payload []byte) error
	LoadCheckpoint(ctx context.Context, runID, stage string, schemaVersion int) ([]byte, error)
	ClearCheckpoints(ctx context.Context, runID, stage string) error
	ListRuns(ctx context.Context) ([]RunSummary, error)
	ListCheckpoints(ctx context.Context, runID string) ([]CheckpointInfo, error)
}

// Ads is the analytical store: normalized records scoped to a run, plus
// the curated competitor list and label annotations. A run's rows are
// written once per stage execution; re-running a stage clears its rows
// first so the store never holds two generations of the same run.
type Ads interface {
	SaveAds(ctx context.Context, runID string, ads []model.NormalizedAdRecord) error
	DeleteAds(ctx context.Context, runID string) error
	ListAds(ctx context.Context, runID string, filter AdFilter) ([]model.NormalizedAdRecord, error)
	CountAds(ctx context.Context, runID string) (int, error)
	CountAdsWithImages(ctx context.Context, runID string) (int, error)
	SaveAdLabels(ctx context.Context, runID string, labels []model.AdLabel) error
	SaveCompetitors(ctx context.Context, runID string, competitors []model.ValidatedCompetitor) error
	DeleteCompetitors(ctx context.Context, runID string) error
	ListCompetitors(ctx context.Context, runID string) ([]model.ValidatedCompetitor, error)
}

// Store is the full persistence interface.
type Store interface {
	Checkpoints
	Ads

	Migrate(ctx context.Context) error
	Close() error
}
