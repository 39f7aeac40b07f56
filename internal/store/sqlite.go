package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/adintel-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id         TEXT NOT NULL,
	stage_name     TEXT NOT NULL,
	schema_version INTEGER NOT NULL,
	payload        TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, stage_name)
);

CREATE TABLE IF NOT EXISTS ads (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	ad_id      TEXT NOT NULL,
	brand      TEXT NOT NULL,
	media_type TEXT NOT NULL,
	has_images INTEGER NOT NULL DEFAULT 0,
	record     TEXT NOT NULL,
	angle      TEXT,
	hook       TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS competitors (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	company_name TEXT NOT NULL,
	record       TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id);
CREATE INDEX IF NOT EXISTS idx_ads_run ON ads(run_id);
CREATE INDEX IF NOT EXISTS idx_ads_run_brand ON ads(run_id, brand);
CREATE INDEX IF NOT EXISTS idx_competitors_run ON competitors(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Checkpoints ---

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, runID, stage string, schemaVersion int, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (run_id, stage_name, schema_version, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, stage_name) DO UPDATE SET
		   schema_version = excluded.schema_version,
		   payload        = excluded.payload,
		   created_at     = excluded.created_at`,
		runID, stage, schemaVersion, string(payload), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save checkpoint %s/%s", runID, stage)
}

func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, runID, stage string, schemaVersion int) ([]byte, error) {
	var storedVersion int
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT schema_version, payload FROM checkpoints WHERE run_id = ? AND stage_name = ?`,
		runID, stage,
	).Scan(&storedVersion, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load checkpoint %s/%s", runID, stage)
	}

	if storedVersion != schemaVersion {
		zap.L().Warn("checkpoint schema version mismatch, forcing re-run",
			zap.String("run_id", runID),
			zap.String("stage", stage),
			zap.Int("stored_version", storedVersion),
			zap.Int("want_version", schemaVersion),
		)
		return nil, ErrCheckpointNotFound
	}

	if !json.Valid([]byte(payload)) {
		return nil, &CorruptionError{RunID: runID, Stage: stage, Err: eris.New("payload is not valid JSON")}
	}
	return []byte(payload), nil
}

func (s *SQLiteStore) ClearCheckpoints(ctx context.Context, runID, stage string) error {
	var err error
	if stage == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ?`, runID)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ? AND stage_name = ?`, runID, stage)
	}
	return eris.Wrapf(err, "sqlite: clear checkpoints %s", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, COUNT(*), MAX(stage_name), MAX(created_at)
		 FROM checkpoints GROUP BY run_id ORDER BY MAX(created_at) DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Stages, &r.LastStage, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run summary")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) ListCheckpoints(ctx context.Context, runID string) ([]CheckpointInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage_name, schema_version, LENGTH(payload), created_at
		 FROM checkpoints WHERE run_id = ? ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list checkpoints %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []CheckpointInfo
	for rows.Next() {
		var c CheckpointInfo
		if err := rows.Scan(&c.StageName, &c.SchemaVersion, &c.PayloadBytes, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan checkpoint info")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate checkpoints")
}

// --- Ads ---

func (s *SQLiteStore) SaveAds(ctx context.Context, runID string, ads []model.NormalizedAdRecord) error {
	if len(ads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save ads")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ads (id, run_id, ad_id, brand, media_type, has_images, record, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save ads")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, ad := range ads {
		record, err := json.Marshal(ad)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal ad %s", ad.AdID)
		}
		hasImages := 0
		if len(ad.ImageURLs) > 0 {
			hasImages = 1
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID, ad.AdID, ad.Brand, string(ad.MediaType), hasImages, string(record), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert ad %s", ad.AdID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save ads")
}

func (s *SQLiteStore) DeleteAds(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ads WHERE run_id = ?`, runID)
	return eris.Wrapf(err, "sqlite: delete ads %s", runID)
}

func (s *SQLiteStore) ListAds(ctx context.Context, runID string, filter AdFilter) ([]model.NormalizedAdRecord, error) {
	query := `SELECT record FROM ads WHERE run_id = ?`
	args := []any{runID}
	if filter.Brand != "" {
		query += ` AND brand = ?`
		args = append(args, filter.Brand)
	}
	if filter.OnlyImages {
		query += ` AND has_images = 1`
	}
	query += ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list ads %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.NormalizedAdRecord
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ad")
		}
		var ad model.NormalizedAdRecord
		if err := json.Unmarshal([]byte(record), &ad); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal ad")
		}
		out = append(out, ad)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate ads")
}

func (s *SQLiteStore) CountAds(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ads WHERE run_id = ?`, runID).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count ads %s", runID)
}

func (s *SQLiteStore) CountAdsWithImages(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ads WHERE run_id = ? AND has_images = 1`, runID,
	).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count ads with images %s", runID)
}

func (s *SQLiteStore) SaveAdLabels(ctx context.Context, runID string, labels []model.AdLabel) error {
	if len(labels) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save labels")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, l := range labels {
		if _, err := tx.ExecContext(ctx,
			`UPDATE ads SET angle = ?, hook = ? WHERE run_id = ? AND ad_id = ?`,
			l.Angle, l.Hook, runID, l.AdID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: label ad %s", l.AdID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save labels")
}

func (s *SQLiteStore) SaveCompetitors(ctx context.Context, runID string, competitors []model.ValidatedCompetitor) error {
	if len(competitors) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save competitors")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, c := range competitors {
		record, err := json.Marshal(c)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal competitor %s", c.CompanyName)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO competitors (id, run_id, company_name, record, created_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, c.CompanyName, string(record), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert competitor %s", c.CompanyName)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save competitors")
}

func (s *SQLiteStore) DeleteCompetitors(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM competitors WHERE run_id = ?`, runID)
	return eris.Wrapf(err, "sqlite: delete competitors %s", runID)
}

func (s *SQLiteStore) ListCompetitors(ctx context.Context, runID string) ([]model.ValidatedCompetitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM competitors WHERE run_id = ? ORDER BY created_at`, runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list competitors %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ValidatedCompetitor
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan competitor")
		}
		var c model.ValidatedCompetitor
		if err := json.Unmarshal([]byte(record), &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal competitor")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate competitors")
}
