package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/secretmask/pkg/batch"
	"github.com/codeready-toolchain/secretmask/pkg/config"
	"github.com/codeready-toolchain/secretmask/pkg/database"
	"github.com/codeready-toolchain/secretmask/pkg/masking"
	"github.com/codeready-toolchain/secretmask/test/util"
)

func newSummary(root string, startedAt time.Time) *batch.Summary {
	return &batch.Summary{
		RunID:      uuid.New().String(),
		Root:       root,
		DumpConfig: true,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Second),
		Reports: []*masking.Report{
			{
				Path:      root + "/a.yaml",
				Completed: true,
				Redacted:  3,
				Resources: []masking.ResourceReport{{Kind: "Secret", Strategy: masking.StrategySecret, Redacted: 3}},
				FieldErrors: []error{
					&masking.DecodeError{Key: "bin", Err: masking.ErrInvalidUTF8},
				},
			},
			{
				Path: root + "/b.yaml",
				Err:  &masking.LoadError{Path: root + "/b.yaml", Err: errors.New("yaml: bad")},
			},
		},
	}
}

func TestRunStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := database.NewRunStore(util.SetupTestDatabase(t))

	startedAt := time.Now().UTC().Truncate(time.Microsecond)
	summary := newSummary("/dumps", startedAt)
	require.NoError(t, store.SaveRun(ctx, summary))

	run, err := store.GetRun(ctx, summary.RunID)
	require.NoError(t, err)

	assert.Equal(t, summary.RunID, run.ID)
	assert.Equal(t, "/dumps", run.Root)
	assert.True(t, run.DumpConfig)
	assert.True(t, startedAt.Equal(run.StartedAt))
	assert.Equal(t, 2, run.Files)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 3, run.Redacted)
	assert.Equal(t, 1, run.FieldErrors)

	require.Len(t, run.Results, 2)
	assert.Equal(t, database.FileResult{
		Path: "/dumps/a.yaml", Kind: "Secret", Strategy: "secret",
		Completed: true, Redacted: 3, FieldErrors: 1,
	}, run.Results[0])
	assert.Equal(t, "/dumps/b.yaml", run.Results[1].Path)
	assert.False(t, run.Results[1].Completed)
	assert.Empty(t, run.Results[1].Strategy)
	assert.Contains(t, run.Results[1].Error, "failed to load /dumps/b.yaml")
}

func TestRunStore_GetRunNotFound(t *testing.T) {
	store := database.NewRunStore(util.SetupTestDatabase(t))

	_, err := store.GetRun(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, database.ErrRunNotFound)
}

func TestRunStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store := database.NewRunStore(util.SetupTestDatabase(t))

	base := time.Now().UTC().Truncate(time.Microsecond)
	older := newSummary("/older", base.Add(-time.Hour))
	newer := newSummary("/newer", base)
	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.RunID, runs[0].ID)
	assert.Equal(t, older.RunID, runs[1].ID)
	assert.Nil(t, runs[0].Results)

	runs, err = store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, newer.RunID, runs[0].ID)
}

func TestRunStore_SaveRunDuplicate(t *testing.T) {
	ctx := context.Background()
	store := database.NewRunStore(util.SetupTestDatabase(t))

	summary := newSummary("/dumps", time.Now().UTC())
	require.NoError(t, store.SaveRun(ctx, summary))
	require.Error(t, store.SaveRun(ctx, summary))

	run, err := store.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Len(t, run.Results, 2, "failed save must roll back")
}

func TestRunStore_DeleteRunsBefore(t *testing.T) {
	ctx := context.Background()
	store := database.NewRunStore(util.SetupTestDatabase(t))

	now := time.Now().UTC().Truncate(time.Microsecond)
	expired := newSummary("/expired", now.AddDate(0, 0, -100))
	kept := newSummary("/kept", now)
	require.NoError(t, store.SaveRun(ctx, expired))
	require.NoError(t, store.SaveRun(ctx, kept))

	deleted, err := store.DeleteRunsBefore(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.GetRun(ctx, expired.RunID)
	assert.ErrorIs(t, err, database.ErrRunNotFound)
	_, err = store.GetRun(ctx, kept.RunID)
	assert.NoError(t, err)
}

func TestRunnerRecordsToStore(t *testing.T) {
	ctx := context.Background()
	store := database.NewRunStore(util.SetupTestDatabase(t))

	root := t.TempDir()
	dispatcher := masking.NewDispatcher(masking.NewRedactor(masking.NewDefaultRegistry()))
	runner := batch.NewRunner(dispatcher, config.DefaultBatchConfig(), batch.WithRecorder(store))

	summary, err := runner.Run(ctx, root)
	require.NoError(t, err)

	run, err := store.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Zero(t, run.Files)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.example")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := database.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "db.example", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "secretmask", cfg.User)
	assert.Equal(t, "secretmask", cfg.Database)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, "postgres://secretmask:pw@db.example:6543/secretmask?sslmode=disable", cfg.URL())

	t.Setenv("DB_CONN_MAX_LIFETIME", "1h")
	cfg, err = database.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)

	t.Setenv("DB_PORT", "not-a-port")
	_, err = database.LoadConfigFromEnv()
	assert.ErrorContains(t, err, "invalid DB_PORT")

	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "soon")
	_, err = database.LoadConfigFromEnv()
	assert.ErrorContains(t, err, "invalid DB_CONN_MAX_IDLE_TIME")
}
