package repository

import (
	"context"
	"testing"

	"github.com/HieuLsw/NetNewsWire/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T) SyncStatusRepository {
	t.Helper()

	db, err := Open(DatabaseOptions{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = RunMigrations(db, "sqlite")
	require.NoError(t, err)

	return NewSQLSyncStatusRepository(db, nil)
}

func TestSyncStatusRepository_EnqueueAndSelect(t *testing.T) {
	ctx := context.Background()
	repo := newQueue(t)

	articleA := uuid.New()
	articleB := uuid.New()

	err := repo.Enqueue(ctx, []*models.SyncStatus{
		models.NewSyncStatus(articleA, models.StatusKeyRead, true),
		models.NewSyncStatus(articleB, models.StatusKeyStarred, true),
	})
	require.NoError(t, err)

	count, err := repo.SelectPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	batch, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	for _, status := range batch {
		assert.True(t, status.Selected)
	}

	// Selected entries are no longer pending.
	count, err = repo.SelectPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	again, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestSyncStatusRepository_EnqueueUpsertsByArticleAndKey(t *testing.T) {
	ctx := context.Background()
	repo := newQueue(t)

	articleID := uuid.New()

	require.NoError(t, repo.Enqueue(ctx, []*models.SyncStatus{
		models.NewSyncStatus(articleID, models.StatusKeyRead, true),
	}))
	require.NoError(t, repo.Enqueue(ctx, []*models.SyncStatus{
		models.NewSyncStatus(articleID, models.StatusKeyRead, false),
	}))
	require.NoError(t, repo.Enqueue(ctx, []*models.SyncStatus{
		models.NewSyncStatus(articleID, models.StatusKeyStarred, true),
	}))

	batch, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	flags := map[models.StatusKey]bool{}
	for _, status := range batch {
		flags[status.Key] = status.Flag
	}
	assert.False(t, flags[models.StatusKeyRead], "second enqueue overwrites the flag")
	assert.True(t, flags[models.StatusKeyStarred])
}

func TestSyncStatusRepository_ResetMakesBatchSelectableAgain(t *testing.T) {
	ctx := context.Background()
	repo := newQueue(t)

	articleID := uuid.New()
	require.NoError(t, repo.Enqueue(ctx, []*models.SyncStatus{
		models.NewSyncStatus(articleID, models.StatusKeyRead, true),
	}))

	batch, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	// Simulate a failed push: the batch must come back, nothing lost.
	require.NoError(t, repo.ResetSelectedForProcessing(ctx, batch))

	retried, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	require.Len(t, retried, 1)
	assert.Equal(t, articleID, retried[0].ArticleID)
	assert.Equal(t, models.StatusKeyRead, retried[0].Key)
	assert.True(t, retried[0].Flag)
}

func TestSyncStatusRepository_DeleteDeliveredRemovesBatch(t *testing.T) {
	ctx := context.Background()
	repo := newQueue(t)

	require.NoError(t, repo.Enqueue(ctx, []*models.SyncStatus{
		models.NewSyncStatus(uuid.New(), models.StatusKeyRead, true),
		models.NewSyncStatus(uuid.New(), models.StatusKeyRead, true),
	}))

	batch, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NoError(t, repo.DeleteSelectedForProcessing(ctx, batch))

	count, err := repo.SelectPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	empty, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSyncStatusRepository_LateEnqueueStaysPendingDuringInFlightBatch(t *testing.T) {
	ctx := context.Background()
	repo := newQueue(t)

	early := uuid.New()
	require.NoError(t, repo.Enqueue(ctx, []*models.SyncStatus{
		models.NewSyncStatus(early, models.StatusKeyRead, true),
	}))

	batch, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	// A status committed while the first batch is still being pushed.
	// Selection is keyed to the rows it scanned, so this one must stay
	// pending rather than get swept into the selected state unseen.
	late := uuid.New()
	require.NoError(t, repo.Enqueue(ctx, []*models.SyncStatus{
		models.NewSyncStatus(late, models.StatusKeyStarred, true),
	}))

	count, err := repo.SelectPendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.DeleteSelectedForProcessing(ctx, batch))

	next, err := repo.SelectForProcessing(ctx)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, late, next[0].ArticleID)
	assert.Equal(t, models.StatusKeyStarred, next[0].Key)
}
