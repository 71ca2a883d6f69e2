package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HieuLsw/NetNewsWire/mocks"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type pipelineFixture struct {
	*fixture
	client   *mocks.MockRemoteZoneClient
	engine   *mocks.MockFeedEngine
	registry *service.ProviderRegistry
	pipeline *service.FeedCreationPipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := newFixture(t)
	ctrl := gomock.NewController(t)

	pf := &pipelineFixture{
		fixture:  f,
		client:   mocks.NewMockRemoteZoneClient(ctrl),
		engine:   mocks.NewMockFeedEngine(ctrl),
		registry: service.NewProviderRegistry(),
	}
	pf.pipeline = service.NewFeedCreationPipeline(
		f.feedRepo, f.folderRepo, pf.registry, pf.engine,
		pf.client, f.store, f.resolver, f.progress, nil)
	return pf
}

// expectRecordPush matches a single-save push to the account zone and
// returns a record with the given externalID.
func (pf *pipelineFixture) expectRecordPush(t *testing.T, recordType models.RecordType, externalID string) *gomock.Call {
	t.Helper()
	return pf.client.EXPECT().
		Push(gomock.Any(), models.ZoneAccount, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.Zone, mutations []models.RecordMutation) ([]models.RemoteRecord, error) {
			require.Len(t, mutations, 1)
			require.Equal(t, recordType, mutations[0].Type)
			return []models.RemoteRecord{{ID: externalID, Zone: models.ZoneAccount, Type: recordType}}, nil
		})
}

func TestFeedCreationPipeline_GenericFeedHappyPath(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	pf.engine.EXPECT().
		Find(gomock.Any(), "https://example.com/feed.xml").
		Return([]models.FeedCandidate{
			{URL: "https://example.com/alternate.xml", Title: "Alternate", Score: 90},
			{URL: "https://example.com/feed.xml", Title: "Example", Score: 10},
		}, nil)
	pf.expectRecordPush(t, models.RecordTypeFeed, "feed-ext-1")
	pf.engine.EXPECT().
		Download(gomock.Any(), "https://example.com/feed.xml").
		Return(&models.ParsedFeed{
			URL:   "https://example.com/feed.xml",
			Title: "Example",
			Items: []models.ParsedItem{{UniqueID: "item-1", Title: "First", URL: "https://example.com/item-1"}},
		}, nil)

	feed, err := pf.pipeline.CreateFeed(ctx, pf.account, "https://example.com/feed.xml", nil)
	require.NoError(t, err)
	require.NotNil(t, feed.ExternalID)

	// The exact URL match wins over the higher-scored alternate.
	assert.Equal(t, "https://example.com/feed.xml", feed.URL)
	assert.Equal(t, "feed-ext-1", *feed.ExternalID)

	articles, err := pf.articleRepo.GetByFeedID(ctx, feed.ID)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
	assert.True(t, pf.progress.IsIdle())
}

func TestFeedCreationPipeline_GenericFeedDefersContentOnDownloadFailure(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	pf.engine.EXPECT().
		Find(gomock.Any(), "https://example.com/feed.xml").
		Return([]models.FeedCandidate{{URL: "https://example.com/feed.xml", Title: "Example", Score: 50}}, nil)
	pf.expectRecordPush(t, models.RecordTypeFeed, "feed-ext-1")
	pf.engine.EXPECT().
		Download(gomock.Any(), "https://example.com/feed.xml").
		Return(nil, errors.New("origin timeout"))

	feed, err := pf.pipeline.CreateFeed(ctx, pf.account, "https://example.com/feed.xml", nil)
	require.NoError(t, err, "a failed first download still counts as subscribed")
	require.NotNil(t, feed)

	stored, err := pf.feedRepo.FindByURL(ctx, pf.account.ID, "https://example.com/feed.xml")
	require.NoError(t, err)
	require.NotNil(t, stored)

	articles, err := pf.articleRepo.GetByFeedID(ctx, feed.ID)
	require.NoError(t, err)
	assert.Empty(t, articles, "content arrives on the next refresh cycle")
	assert.True(t, pf.progress.IsIdle())
}

func TestFeedCreationPipeline_ProviderFirstRefreshFailureFailsOutright(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)
	ctrl := gomock.NewController(t)

	provider := mocks.NewMockContentProvider(ctrl)
	provider.EXPECT().Ability(gomock.Any()).Return(service.AbilityOwner).AnyTimes()
	provider.EXPECT().AssignName(gomock.Any(), "https://owned.example.com/feed").Return("Owned", nil)
	provider.EXPECT().Refresh(gomock.Any(), gomock.Any()).Return(nil, errors.New("provider backend down"))
	pf.registry.Register(provider)

	pf.expectRecordPush(t, models.RecordTypeFeed, "feed-ext-1")

	feed, err := pf.pipeline.CreateFeed(ctx, pf.account, "https://owned.example.com/feed", nil)
	require.Error(t, err)
	assert.Nil(t, feed)

	// Unlike the generic path, no local feed exists after the failure.
	stored, findErr := pf.feedRepo.FindByURL(ctx, pf.account.ID, "https://owned.example.com/feed")
	require.NoError(t, findErr)
	assert.Nil(t, stored)
	assert.True(t, pf.progress.IsIdle(), "abandoned stages are still completed")
}

func TestFeedCreationPipeline_DuplicateURLRejectedBeforeRemoteMutation(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	pf.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")

	pf.engine.EXPECT().
		Find(gomock.Any(), "https://example.com/feed.xml").
		Return([]models.FeedCandidate{{URL: "https://example.com/feed.xml", Title: "Example", Score: 50}}, nil)
	// No Push expectation: a duplicate must not touch the remote store.

	_, err := pf.pipeline.CreateFeed(ctx, pf.account, "https://example.com/feed.xml", nil)
	assert.ErrorIs(t, err, service.ErrAlreadySubscribed)
	assert.True(t, pf.progress.IsIdle())
}

func TestFeedCreationPipeline_RenameFeedPushesBeforePersisting(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	feed := pf.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")

	pf.client.EXPECT().
		Push(gomock.Any(), models.ZoneAccount, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.Zone, mutations []models.RecordMutation) ([]models.RemoteRecord, error) {
			require.Len(t, mutations, 1)
			assert.Equal(t, "feed-ext-1", mutations[0].RecordID)
			assert.Equal(t, "My Name", mutations[0].Record.Fields[models.FieldEditedName])
			return nil, nil
		})

	require.NoError(t, pf.pipeline.RenameFeed(ctx, feed, "My Name"))

	stored, err := pf.feedRepo.FindByID(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Name", stored.EditedName)
}

func TestFeedCreationPipeline_RenameFeedKeepsLocalNameOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	feed := pf.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")

	pf.client.EXPECT().
		Push(gomock.Any(), models.ZoneAccount, gomock.Any()).
		Return(nil, errors.New("zone unavailable"))

	require.Error(t, pf.pipeline.RenameFeed(ctx, feed, "My Name"))

	stored, err := pf.feedRepo.FindByID(ctx, feed.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.EditedName, "local state unchanged when the remote mutation fails")
}

func TestFeedCreationPipeline_RemoveFeedDeletesRemoteThenLocal(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	feed := pf.createFeed(t, "https://example.com/feed.xml", "feed-ext-1")
	article := pf.createArticle(t, feed, "item-1", "Hello")

	pf.client.EXPECT().
		Push(gomock.Any(), models.ZoneAccount, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.Zone, mutations []models.RecordMutation) ([]models.RemoteRecord, error) {
			require.Len(t, mutations, 1)
			assert.Equal(t, models.MutationOpDelete, mutations[0].Op)
			assert.Equal(t, "feed-ext-1", mutations[0].RecordID)
			return nil, nil
		})

	require.NoError(t, pf.pipeline.RemoveFeed(ctx, feed))

	stored, err := pf.feedRepo.FindByID(ctx, feed.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	gone, err := pf.articleRepo.FindByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestFeedCreationPipeline_RemoveFolderMovesFeedsToRootInOneBatch(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	folder := models.NewFolder(pf.account.ID, "News")
	folder.AssignExternalID("folder-ext-1")
	require.NoError(t, pf.folderRepo.Create(ctx, folder))

	feedA := models.NewFeed(pf.account.ID, &folder.ID, "https://a.example.com/feed", "A")
	feedA.AssignExternalID("feed-ext-a")
	require.NoError(t, pf.feedRepo.Create(ctx, feedA))
	feedB := models.NewFeed(pf.account.ID, &folder.ID, "https://b.example.com/feed", "B")
	feedB.AssignExternalID("feed-ext-b")
	require.NoError(t, pf.feedRepo.Create(ctx, feedB))

	pf.client.EXPECT().
		Push(gomock.Any(), models.ZoneAccount, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.Zone, mutations []models.RecordMutation) ([]models.RemoteRecord, error) {
			// Two feed saves without a folder field plus the folder delete,
			// all in one batch.
			require.Len(t, mutations, 3)
			saves, deletes := 0, 0
			for _, m := range mutations {
				switch m.Op {
				case models.MutationOpSave:
					saves++
					assert.NotContains(t, m.Record.Fields, models.FieldFolderExternalID)
				case models.MutationOpDelete:
					deletes++
					assert.Equal(t, "folder-ext-1", m.RecordID)
				}
			}
			assert.Equal(t, 2, saves)
			assert.Equal(t, 1, deletes)
			return nil, nil
		})

	require.NoError(t, pf.pipeline.RemoveFolder(ctx, folder))

	for _, id := range []string{"feed-ext-a", "feed-ext-b"} {
		moved, err := pf.feedRepo.FindByExternalID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, moved)
		assert.Nil(t, moved.FolderID)
	}

	goneFolder, err := pf.folderRepo.FindByID(ctx, folder.ID)
	require.NoError(t, err)
	assert.Nil(t, goneFolder)
}

func TestFeedCreationPipeline_CreateFolderReturnsExisting(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	existing := models.NewFolder(pf.account.ID, "News")
	existing.AssignExternalID("folder-ext-1")
	require.NoError(t, pf.folderRepo.Create(ctx, existing))

	// No Push expectation: the existing folder short-circuits.
	folder, err := pf.pipeline.CreateFolder(ctx, pf.account, "News")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, folder.ID)
}

func TestFeedCreationPipeline_RestoreFolderIsolatesFeedFailures(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	folderPush := pf.expectRecordPush(t, models.RecordTypeFolder, "folder-ext-1")

	goodFeed := models.NewFeed(pf.account.ID, nil, "https://good.example.com/feed", "Good")
	badFeed := models.NewFeed(pf.account.ID, nil, "https://bad.example.com/feed", "Bad")

	gomock.InOrder(
		folderPush,
		pf.expectRecordPush(t, models.RecordTypeFeed, "feed-ext-good"),
		pf.client.EXPECT().
			Push(gomock.Any(), models.ZoneAccount, gomock.Any()).
			Return(nil, errors.New("zone unavailable")),
	)

	folder, err := pf.pipeline.RestoreFolder(ctx, pf.account, "Restored", []*models.Feed{goodFeed, badFeed})
	require.NoError(t, err, "per-feed failures do not fail the folder restore")
	require.NotNil(t, folder)

	restored, err := pf.feedRepo.FindByExternalID(ctx, "feed-ext-good")
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, &folder.ID, restored.FolderID)

	missing, err := pf.feedRepo.FindByURL(ctx, pf.account.ID, "https://bad.example.com/feed")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.True(t, pf.progress.IsIdle())
}

func TestFeedCreationPipeline_ImportNormalizedCountsOutcomes(t *testing.T) {
	ctx := context.Background()
	pf := newPipelineFixture(t)

	pf.createFeed(t, "https://already.example.com/feed", "feed-ext-old")

	doc := service.NormalizedImport{
		Feeds: []service.NormalizedFeed{
			{URL: "https://new.example.com/feed", Name: "New"},
			{URL: "https://already.example.com/feed", Name: "Already"},
			{URL: "https://broken.example.com/feed", Name: "Broken"},
		},
	}

	pf.engine.EXPECT().
		Find(gomock.Any(), "https://new.example.com/feed").
		Return([]models.FeedCandidate{{URL: "https://new.example.com/feed", Title: "New", Score: 50}}, nil)
	pf.engine.EXPECT().
		Find(gomock.Any(), "https://already.example.com/feed").
		Return([]models.FeedCandidate{{URL: "https://already.example.com/feed", Title: "Already", Score: 50}}, nil)
	pf.engine.EXPECT().
		Find(gomock.Any(), "https://broken.example.com/feed").
		Return(nil, errors.New("unreachable host"))

	pf.expectRecordPush(t, models.RecordTypeFeed, "feed-ext-new")
	pf.engine.EXPECT().
		Download(gomock.Any(), "https://new.example.com/feed").
		Return(&models.ParsedFeed{URL: "https://new.example.com/feed", Title: "New"}, nil)

	result, err := pf.pipeline.ImportNormalized(ctx, pf.account, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
}
