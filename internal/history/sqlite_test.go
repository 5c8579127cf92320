package history

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/emailbuilder/internal/emails/models"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func report(id, trigger string, err error) *models.BuildReport {
	r := models.NewBuildReport(id, trigger)
	r.RecordStageResult(models.StageTemplates, models.StageResultSuccess, nil)
	r.Files[models.StageTemplates] = 3
	if err != nil {
		r.RecordStageResult(models.StageStyles, models.StageResultFailed, nil)
		r.AddError(models.NewFatalStageError(models.StageStyles, err))
	}
	r.End = r.Start.Add(1250 * time.Millisecond)
	r.DeriveOutcome()
	return r
}

func TestRecordAndRecent(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	require.NoError(t, store.Record(ctx, report("a", models.TriggerBuild, nil)))
	require.NoError(t, store.Record(ctx, report("b", models.TriggerWatchStyles, errors.New("syntax"))))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest := runs[0]
	assert.Equal(t, "b", latest.RunID)
	assert.Equal(t, models.TriggerWatchStyles, latest.Trigger)
	assert.Equal(t, "failed", latest.Outcome)
	assert.Equal(t, 1250*time.Millisecond, latest.Duration)
	assert.Equal(t, map[string]string{"templates": "success", "styles": "failed"}, latest.Stages)
	assert.Equal(t, 3, latest.Files)
	require.Len(t, latest.Errors, 1)
	assert.Contains(t, latest.Errors[0], "syntax")

	assert.Equal(t, "a", runs[1].RunID)
	assert.Equal(t, "success", runs[1].Outcome)
	assert.Empty(t, runs[1].Errors)
}

func TestRecentLimit(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, store.Record(ctx, report(id, models.TriggerBuild, nil)))
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "3", runs[0].RunID)
	assert.Equal(t, "2", runs[1].RunID)
}

func TestRecordDuplicateRunID(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	require.NoError(t, store.Record(ctx, report("dup", models.TriggerBuild, nil)))
	assert.Error(t, store.Record(ctx, report("dup", models.TriggerBuild, nil)))
}
