package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id         TEXT NOT NULL,
	stage_name     TEXT NOT NULL,
	schema_version INTEGER NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, stage_name)
);

CREATE TABLE IF NOT EXISTS ads (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	ad_id      TEXT NOT NULL,
	brand      TEXT NOT NULL,
	media_type TEXT NOT NULL,
	has_images BOOLEAN NOT NULL DEFAULT false,
	record     JSONB NOT NULL,
	angle      TEXT,
	hook       TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS competitors (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	company_name TEXT NOT NULL,
	record       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id);
CREATE INDEX IF NOT EXISTS idx_ads_run ON ads(run_id);
CREATE INDEX IF NOT EXISTS idx_ads_run_brand ON ads(run_id, brand);
CREATE INDEX IF NOT EXISTS idx_competitors_run ON competitors(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Checkpoints ---

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, runID, stage string, schemaVersion int, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (run_id, stage_name, schema_version, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, stage_name) DO UPDATE SET
		   schema_version = EXCLUDED.schema_version,
		   payload        = EXCLUDED.payload,
		   created_at     = EXCLUDED.created_at`,
		runID, stage, schemaVersion, string(payload), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save checkpoint %s/%s", runID, stage)
}

func (s *PostgresStore) LoadCheckpoint(ctx context.Context, runID, stage string, schemaVersion int) ([]byte, error) {
	var storedVersion int
	var payload string
	err := s.pool.QueryRow(ctx,
		`SELECT schema_version, payload FROM checkpoints WHERE run_id = $1 AND stage_name = $2`,
		runID, stage,
	).Scan(&storedVersion, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load checkpoint %s/%s", runID, stage)
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

func (s *PostgresStore) ClearCheckpoints(ctx context.Context, runID, stage string) error {
	var err error
	if stage == "" {
		_, err = s.pool.Exec(ctx, `DELETE FROM checkpoints WHERE run_id = $1`, runID)
	} else {
		_, err = s.pool.Exec(ctx, `DELETE FROM checkpoints WHERE run_id = $1 AND stage_name = $2`, runID, stage)
	}
	return eris.Wrapf(err, "postgres: clear checkpoints %s", runID)
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, COUNT(*), MAX(stage_name), MAX(created_at)
		 FROM checkpoints GROUP BY run_id ORDER BY MAX(created_at) DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Stages, &r.LastStage, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run summary")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) ListCheckpoints(ctx context.Context, runID string) ([]CheckpointInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stage_name, schema_version, LENGTH(payload::text), created_at
		 FROM checkpoints WHERE run_id = $1 ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list checkpoints %s", runID)
	}
	defer rows.Close()

	var out []CheckpointInfo
	for rows.Next() {
		var c CheckpointInfo
		if err := rows.Scan(&c.StageName, &c.SchemaVersion, &c.PayloadBytes, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan checkpoint info")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate checkpoints")
}

// --- Ads ---

func (s *PostgresStore) SaveAds(ctx context.Context, runID string, ads []model.NormalizedAdRecord) error {
	if len(ads) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save ads")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for _, ad := range ads {
		record, err := json.Marshal(ad)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal ad %s", ad.AdID)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO ads (id, run_id, ad_id, brand, media_type, has_images, record, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New().String(), runID, ad.AdID, ad.Brand, string(ad.MediaType), len(ad.ImageURLs) > 0, string(record), now,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert ad %s", ad.AdID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save ads")
}

func (s *PostgresStore) DeleteAds(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ads WHERE run_id = $1`, runID)
	return eris.Wrapf(err, "postgres: delete ads %s", runID)
}

func (s *PostgresStore) ListAds(ctx context.Context, runID string, filter AdFilter) ([]model.NormalizedAdRecord, error) {
	query := `SELECT record FROM ads WHERE run_id = $1`
	args := []any{runID}
	if filter.Brand != "" {
		args = append(args, filter.Brand)
		query += ` AND brand = $2`
	}
	if filter.OnlyImages {
		query += ` AND has_images`
	}
	query += ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list ads %s", runID)
	}
	defer rows.Close()

	var out []model.NormalizedAdRecord
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ad")
		}
		var ad model.NormalizedAdRecord
		if err := json.Unmarshal([]byte(record), &ad); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal ad")
		}
		out = append(out, ad)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate ads")
}

func (s *PostgresStore) CountAds(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ads WHERE run_id = $1`, runID).Scan(&n)
	return n, eris.Wrapf(err, "postgres: count ads %s", runID)
}

func (s *PostgresStore) CountAdsWithImages(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ads WHERE run_id = $1 AND has_images`, runID,
	).Scan(&n)
	return n, eris.Wrapf(err, "postgres: count ads with images %s", runID)
}

func (s *PostgresStore) SaveAdLabels(ctx context.Context, runID string, labels []model.AdLabel) error {
	if len(labels) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save labels")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, l := range labels {
		if _, err := tx.Exec(ctx,
			`UPDATE ads SET angle = $1, hook = $2 WHERE run_id = $3 AND ad_id = $4`,
			l.Angle, l.Hook, runID, l.AdID,
		); err != nil {
			return eris.Wrapf(err, "postgres: label ad %s", l.AdID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save labels")
}

func (s *PostgresStore) SaveCompetitors(ctx context.Context, runID string, competitors []model.ValidatedCompetitor) error {
	if len(competitors) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save competitors")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for _, c := range competitors {
		record, err := json.Marshal(c)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal competitor %s", c.CompanyName)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO competitors (id, run_id, company_name, record, created_at) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), runID, c.CompanyName, string(record), now,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert competitor %s", c.CompanyName)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save competitors")
}

func (s *PostgresStore) DeleteCompetitors(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM competitors WHERE run_id = $1`, runID)
	return eris.Wrapf(err, "postgres: delete competitors %s", runID)
}

func (s *PostgresStore) ListCompetitors(ctx context.Context, runID string) ([]model.ValidatedCompetitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM competitors WHERE run_id = $1 ORDER BY created_at`, runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list competitors %s", runID)
	}
	defer rows.Close()

	var out []model.ValidatedCompetitor
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan competitor")
		}
		var c model.ValidatedCompetitor
		if err := json.Unmarshal([]byte(record), &c); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal competitor")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate competitors")
}
