package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/adintel-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteCheckpoint_SaveLoadRoundtrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	payload := []byte(`{"candidates":["acme"]}`)
	require.NoError(t, s.SaveCheckpoint(ctx, "run-1", "discovery", 1, payload))

	got, err := s.LoadCheckpoint(ctx, "run-1", "discovery", 1)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSQLiteCheckpoint_MissingIsNotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.LoadCheckpoint(context.Background(), "run-1", "discovery", 1)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestSQLiteCheckpoint_SaveOverwrites(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCheckpoint(ctx, "run-1", "discovery", 1, []byte(`{"v":1}`)))
	require.NoError(t, s.SaveCheckpoint(ctx, "run-1", "discovery", 1, []byte(`{"v":2}`)))

	got, err := s.LoadCheckpoint(ctx, "run-1", "discovery", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestSQLiteCheckpoint_VersionMismatchIsNotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCheckpoint(ctx, "run-1", "discovery", 1, []byte(`{}`)))

	_, err := s.LoadCheckpoint(ctx, "run-1", "discovery", 2)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestSQLiteCheckpoint_CorruptPayload(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (run_id, stage_name, schema_version, payload) VALUES (?, ?, ?, ?)`,
		"run-1", "discovery", 1, `{truncated`,
	)
	require.NoError(t, err)

	_, err = s.LoadCheckpoint(ctx, "run-1", "discovery", 1)
	require.Error(t, err)

	var corrupt *CorruptionError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, "run-1", corrupt.RunID)
	assert.Equal(t, "discovery", corrupt.Stage)
	assert.False(t, errors.Is(err, ErrCheckpointNotFound))
}

func TestSQLiteCheckpoint_ClearStageAndRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCheckpoint(ctx, "run-1", "discovery", 1, []byte(`{}`)))
	require.NoError(t, s.SaveCheckpoint(ctx, "run-1", "curation", 1, []byte(`{}`)))

	require.NoError(t, s.ClearCheckpoints(ctx, "run-1", "discovery"))
	_, err := s.LoadCheckpoint(ctx, "run-1", "discovery", 1)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
	_, err = s.LoadCheckpoint(ctx, "run-1", "curation", 1)
	assert.NoError(t, err)

	require.NoError(t, s.ClearCheckpoints(ctx, "run-1", ""))
	_, err = s.LoadCheckpoint(ctx, "run-1", "curation", 1)
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestSQLiteCheckpoint_ListRunsAndCheckpoints(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCheckpoint(ctx, "run-1", "discovery", 1, []byte(`{}`)))
	require.NoError(t, s.SaveCheckpoint(ctx, "run-1", "curation", 2, []byte(`{"a":1}`)))
	require.NoError(t, s.SaveCheckpoint(ctx, "run-2", "discovery", 1, []byte(`{}`)))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	infos, err := s.ListCheckpoints(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	byStage := map[string]CheckpointInfo{}
	for _, ci := range infos {
		byStage[ci.StageName] = ci
	}
	assert.Equal(t, 1, byStage["discovery"].SchemaVersion)
	assert.Equal(t, 2, byStage["curation"].SchemaVersion)
	assert.Equal(t, len(`{"a":1}`), byStage["curation"].PayloadBytes)
}

func TestSQLiteAds_SaveListCount(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	ads := []model.NormalizedAdRecord{
		{AdID: "ad-1", Brand: "Acme", MediaType: model.MediaTypeImage, ImageURLs: []string{"https://cdn/a.jpg"}},
		{AdID: "ad-2", Brand: "Acme", MediaType: model.MediaTypeUnknown, ImageURLs: []string{}},
		{AdID: "ad-3", Brand: "Globex", MediaType: model.MediaTypeCarousel, ImageURLs: []string{"https://cdn/b.jpg", "https://cdn/c.jpg"}},
	}
	require.NoError(t, s.SaveAds(ctx, "run-1", ads))

	all, err := s.ListAds(ctx, "run-1", AdFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	acme, err := s.ListAds(ctx, "run-1", AdFilter{Brand: "Acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	withImages, err := s.ListAds(ctx, "run-1", AdFilter{OnlyImages: true})
	require.NoError(t, err)
	assert.Len(t, withImages, 2)

	n, err := s.CountAds(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.CountAdsWithImages(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountAds(ctx, "other-run")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteAds_DeleteScopedToRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAds(ctx, "run-1", []model.NormalizedAdRecord{
		{AdID: "ad-1", Brand: "Acme", MediaType: model.MediaTypeImage},
	}))
	require.NoError(t, s.SaveAds(ctx, "run-2", []model.NormalizedAdRecord{
		{AdID: "ad-1", Brand: "Acme", MediaType: model.MediaTypeImage},
	}))

	require.NoError(t, s.DeleteAds(ctx, "run-1"))

	n, err := s.CountAds(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.CountAds(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteCompetitors_DeleteScopedToRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	comp := []model.ValidatedCompetitor{
		{Candidate: model.Candidate{CompanyName: "Globex"}, IsCompetitor: true, Tier: "primary", Confidence: 0.9},
	}
	require.NoError(t, s.SaveCompetitors(ctx, "run-1", comp))
	require.NoError(t, s.SaveCompetitors(ctx, "run-2", comp))

	require.NoError(t, s.DeleteCompetitors(ctx, "run-1"))

	gone, err := s.ListCompetitors(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := s.ListCompetitors(ctx, "run-2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestSQLiteAds_SaveLabels(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAds(ctx, "run-1", []model.NormalizedAdRecord{
		{AdID: "ad-1", Brand: "Acme", MediaType: model.MediaTypeImage},
	}))
	require.NoError(t, s.SaveAdLabels(ctx, "run-1", []model.AdLabel{
		{AdID: "ad-1", Angle: "social proof", Hook: "question"},
	}))

	var angle, hook string
	err := s.db.QueryRowContext(ctx,
		`SELECT angle, hook FROM ads WHERE run_id = ? AND ad_id = ?`, "run-1", "ad-1",
	).Scan(&angle, &hook)
	require.NoError(t, err)
	assert.Equal(t, "social proof", angle)
	assert.Equal(t, "question", hook)
}

func TestSQLiteCompetitors_SaveList(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	comps := []model.ValidatedCompetitor{
		{Candidate: model.Candidate{CompanyName: "Globex"}, IsCompetitor: true, Tier: "primary", Confidence: 0.9},
		{Candidate: model.Candidate{CompanyName: "Initech"}, IsCompetitor: true, Tier: "secondary", Confidence: 0.6},
	}
	require.NoError(t, s.SaveCompetitors(ctx, "run-1", comps))

	got, err := s.ListCompetitors(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	names := []string{got[0].CompanyName, got[1].CompanyName}
	assert.ElementsMatch(t, []string{"Globex", "Initech"}, names)
}
