package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/HieuLsw/NetNewsWire/mocks"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newStatusService(t *testing.T, f *fixture, client service.RemoteZoneClient) *service.StatusSyncService {
	t.Helper()
	return service.NewStatusSyncService(f.queue, f.articleRepo, f.feedRepo, f.zoneStateRepo, client, f.store, nil)
}

func TestStatusSyncService_MarkArticlesWritesLocallyAndQueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	svc := newStatusService(t, f, mocks.NewMockRemoteZoneClient(ctrl))

	feed := f.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")
	article := f.createArticle(t, feed, "item-1", "Hello")

	require.NoError(t, svc.MarkArticles(ctx, []uuid.UUID{article.ID}, models.StatusKeyRead, true))

	stored, err := f.articleRepo.FindByID(ctx, article.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)

	pending, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestStatusSyncService_MarkArticlesRejectsUnknownKey(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	svc := newStatusService(t, f, mocks.NewMockRemoteZoneClient(ctrl))

	err := svc.MarkArticles(context.Background(), []uuid.UUID{uuid.New()}, models.StatusKey("liked"), true)
	assert.Error(t, err)
}

func TestStatusSyncService_PushPendingDeliversAndDrains(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockRemoteZoneClient(ctrl)
	svc := newStatusService(t, f, client)

	feed := f.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")
	article := f.createArticle(t, feed, "item-1", "Hello")
	require.NoError(t, svc.MarkArticles(ctx, []uuid.UUID{article.ID}, models.StatusKeyStarred, true))

	client.EXPECT().
		Push(gomock.Any(), models.ZoneArticles, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.Zone, mutations []models.RecordMutation) ([]models.RemoteRecord, error) {
			require.Len(t, mutations, 1)
			record := mutations[0].Record
			assert.Equal(t, models.RecordTypeArticleStatus, record.Type)
			assert.Equal(t, "feed-ext-1", record.Fields[models.FieldFeedExternalID])
			assert.Equal(t, "item-1", record.Fields[models.FieldUniqueID])
			assert.Equal(t, true, record.Fields["starred"])
			return nil, nil
		})

	require.NoError(t, svc.PushPending(ctx))

	pending, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestStatusSyncService_FailedPushKeepsBatchForRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockRemoteZoneClient(ctrl)
	svc := newStatusService(t, f, client)

	feed := f.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")
	article := f.createArticle(t, feed, "item-1", "Hello")
	require.NoError(t, svc.MarkArticles(ctx, []uuid.UUID{article.ID}, models.StatusKeyRead, true))

	pushErr := errors.New("zone unavailable")
	client.EXPECT().Push(gomock.Any(), models.ZoneArticles, gomock.Any()).Return(nil, pushErr)

	err := svc.PushPending(ctx)
	assert.ErrorIs(t, err, pushErr)

	// Nothing lost: the batch is selectable again on the next cycle.
	client.EXPECT().Push(gomock.Any(), models.ZoneArticles, gomock.Any()).Return(nil, nil)
	require.NoError(t, svc.PushPending(ctx))

	pending, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestStatusSyncService_DefersStatusesForFeedsWithoutIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockRemoteZoneClient(ctrl)
	svc := newStatusService(t, f, client)

	feed := f.createFeed(t, "https://example.com/feed.xml", "")
	article := f.createArticle(t, feed, "item-1", "Hello")
	require.NoError(t, svc.MarkArticles(ctx, []uuid.UUID{article.ID}, models.StatusKeyRead, true))

	// No deliverable mutations: Push must not be called at all.
	require.NoError(t, svc.PushPending(ctx))

	pending, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "status waits until the feed has a remote identity")
}

func TestStatusSyncService_DropsOrphanedStatuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockRemoteZoneClient(ctrl)
	svc := newStatusService(t, f, client)

	feed := f.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")
	article := f.createArticle(t, feed, "item-1", "Hello")
	require.NoError(t, svc.MarkArticles(ctx, []uuid.UUID{article.ID}, models.StatusKeyRead, true))

	// The article disappears before the push runs.
	require.NoError(t, f.articleRepo.Delete(ctx, article.ID))

	require.NoError(t, svc.PushPending(ctx))

	pending, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestStatusSyncService_HighWaterMarkTriggersOpportunisticPush(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockRemoteZoneClient(ctrl)
	svc := newStatusService(t, f, client)

	feed := f.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")

	articleIDs := make([]uuid.UUID, 0, 101)
	for i := 0; i < 101; i++ {
		article := f.createArticle(t, feed, fmt.Sprintf("item-%d", i), "n")
		articleIDs = append(articleIDs, article.ID)
	}

	pushed := make(chan struct{})
	client.EXPECT().
		Push(gomock.Any(), models.ZoneArticles, gomock.Any()).
		DoAndReturn(func(context.Context, models.Zone, []models.RecordMutation) ([]models.RemoteRecord, error) {
			close(pushed)
			return nil, nil
		})

	require.NoError(t, svc.MarkArticles(ctx, articleIDs, models.StatusKeyRead, true))

	select {
	case <-pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("crossing the high-water mark did not trigger a push")
	}
}

func TestStatusSyncService_PullAppliesRecordsAndAdvancesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockRemoteZoneClient(ctrl)
	svc := newStatusService(t, f, client)

	feed := f.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")
	article := f.createArticle(t, feed, "item-1", "Hello")

	client.EXPECT().
		FetchChanges(gomock.Any(), models.ZoneArticles, "").
		Return(&models.ZoneChangeBatch{
			Zone: models.ZoneArticles,
			ChangedRecords: []models.RemoteRecord{{
				ID:   "feed-ext-1/abc",
				Zone: models.ZoneArticles,
				Type: models.RecordTypeArticleStatus,
				Fields: map[string]any{
					models.FieldFeedExternalID: "feed-ext-1",
					models.FieldUniqueID:       "item-1",
					models.FieldRead:           true,
				},
			}},
			ChangeToken: "token-1",
		}, nil)

	require.NoError(t, svc.PullStatuses(ctx))

	stored, err := f.articleRepo.FindByID(ctx, article.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)

	state, err := f.zoneStateRepo.FindByZone(ctx, models.ZoneArticles)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "token-1", state.ChangeToken)
}
