package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adintel-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_SaveCheckpoint_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("run-1", "discovery", 1, `{"v":1}`, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveCheckpoint(context.Background(), "run-1", "discovery", 1, []byte(`{"v":1}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadCheckpoint_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT schema_version, payload FROM checkpoints`).
		WithArgs("run-1", "discovery").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LoadCheckpoint(context.Background(), "run-1", "discovery", 1)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadCheckpoint_VersionMismatch(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"schema_version", "payload"}).AddRow(1, `{"v":1}`)
	mock.ExpectQuery(`SELECT schema_version, payload FROM checkpoints`).
		WithArgs("run-1", "discovery").
		WillReturnRows(rows)

	_, err := s.LoadCheckpoint(context.Background(), "run-1", "discovery", 2)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadCheckpoint_Corrupt(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"schema_version", "payload"}).AddRow(1, `{broken`)
	mock.ExpectQuery(`SELECT schema_version, payload FROM checkpoints`).
		WithArgs("run-1", "discovery").
		WillReturnRows(rows)

	_, err := s.LoadCheckpoint(context.Background(), "run-1", "discovery", 1)
	require.Error(t, err)
	var corrupt *CorruptionError
	assert.True(t, errors.As(err, &corrupt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadCheckpoint_Roundtrip(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"schema_version", "payload"}).AddRow(3, `{"items":[]}`)
	mock.ExpectQuery(`SELECT schema_version, payload FROM checkpoints`).
		WithArgs("run-1", "ingestion").
		WillReturnRows(rows)

	got, err := s.LoadCheckpoint(context.Background(), "run-1", "ingestion", 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClearCheckpoints_WholeRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM checkpoints WHERE run_id = \$1$`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, s.ClearCheckpoints(context.Background(), "run-1", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClearCheckpoints_SingleStage(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM checkpoints WHERE run_id = \$1 AND stage_name = \$2`).
		WithArgs("run-1", "labeling").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.ClearCheckpoints(context.Background(), "run-1", "labeling"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteAds(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM ads WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, s.DeleteAds(context.Background(), "run-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteCompetitors(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM competitors WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, s.DeleteCompetitors(context.Background(), "run-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"run_id", "count", "max_stage", "max_created"}).
		AddRow("run-2", 4, "ingestion", now).
		AddRow("run-1", 9, "synthesis", now.Add(-time.Hour))
	mock.ExpectQuery(`FROM checkpoints GROUP BY run_id`).WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, 9, runs[1].Stages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAds_Transaction(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ads`).
		WithArgs(pgxmock.AnyArg(), "run-1", "ad-1", "Acme", "image", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveAds(context.Background(), "run-1", []model.NormalizedAdRecord{
		{AdID: "ad-1", Brand: "Acme", MediaType: model.MediaTypeImage, ImageURLs: []string{"https://cdn/a.jpg"}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAdLabels_Transaction(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE ads SET angle`).
		WithArgs("urgency", "statistic", "run-1", "ad-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := s.SaveAdLabels(context.Background(), "run-1", []model.AdLabel{
		{AdID: "ad-1", Angle: "urgency", Hook: "statistic"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAds_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.SaveAds(context.Background(), "run-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
