package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxdigest/internal/model"
	"github.com/nhle/inboxdigest/internal/store"
	"github.com/nhle/inboxdigest/internal/testutil"
)

func run(folder string, outcome model.RunOutcome, started time.Time) model.FetchRun {
	return model.FetchRun{
		Folder:     folder,
		Outcome:    outcome,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestRecordRun_AssignsID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	stored, err := s.RecordRun(ctx, model.FetchRun{
		Folder:             "INBOX",
		Outcome:            model.RunOutcomeOK,
		Listed:             15,
		Returned:           10,
		DecodeAnomalies:    1,
		AnnotationFailures: 2,
		StartedAt:          time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		FinishedAt:         time.Date(2026, 3, 1, 9, 0, 4, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, stored.ID, last.ID)
	assert.Equal(t, model.RunOutcomeOK, last.Outcome)
	assert.Equal(t, 15, last.Listed)
	assert.Equal(t, 10, last.Returned)
	assert.Equal(t, 1, last.DecodeAnomalies)
	assert.Equal(t, 2, last.AnnotationFailures)
	assert.Equal(t, 4*time.Second, last.Duration())
}

func TestLastRun_Empty(t *testing.T) {
	s := testutil.NewTestStore(t)

	last, err := s.LastRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestListRuns_NewestFirstAndFilters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := s.RecordRun(ctx, run("INBOX", model.RunOutcomeOK, base))
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, run("INBOX", model.RunOutcomeConnectionError, base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, run("Archive", model.RunOutcomeFolderError, base.Add(2*time.Minute)))
	require.NoError(t, err)

	all, err := s.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Archive", all[0].Folder)
	assert.Equal(t, model.RunOutcomeOK, all[2].Outcome)

	inbox := "INBOX"
	inboxRuns, err := s.ListRuns(ctx, store.RunFilter{Folder: &inbox})
	require.NoError(t, err)
	assert.Len(t, inboxRuns, 2)

	failed := model.RunOutcomeConnectionError
	failedRuns, err := s.ListRuns(ctx, store.RunFilter{Outcome: &failed})
	require.NoError(t, err)
	require.Len(t, failedRuns, 1)
	assert.Equal(t, "INBOX", failedRuns[0].Folder)

	limited, err := s.ListRuns(ctx, store.RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, model.RunOutcomeConnectionError, limited[0].Outcome)
}

func TestPruneRuns(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := s.RecordRun(ctx, run("INBOX", model.RunOutcomeOK, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	removed, err := s.PruneRuns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	runs, err := s.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(4*time.Minute)))
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, run("INBOX", model.RunOutcomeOK, time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
