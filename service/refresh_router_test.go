package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/HieuLsw/NetNewsWire/mocks"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newRouter(f *fixture, registry *service.ProviderRegistry, engine service.FeedEngine) *service.ContentRefreshRouter {
	return service.NewContentRefreshRouter(registry, engine, f.store, f.progress, nil)
}

func ownerOf(host string) func(*mocks.MockContentProvider) {
	return func(p *mocks.MockContentProvider) {
		p.EXPECT().Ability(gomock.Any()).DoAndReturn(func(url string) service.ProviderAbility {
			if strings.Contains(url, host) {
				return service.AbilityOwner
			}
			return service.AbilityNone
		}).AnyTimes()
	}
}

func TestContentRefreshRouter_MergesProviderAndGenericResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)

	providerFeed := f.createFeed(t, "https://owned.example.com/feed.xml", "ext-a")
	genericFeed := f.createFeed(t, "https://plain.example.com/feed.xml", "ext-b")
	removed := f.createArticle(t, genericFeed, "stale-item", "Old")

	provider := mocks.NewMockContentProvider(ctrl)
	ownerOf("owned.example.com")(provider)
	provider.EXPECT().
		Refresh(gomock.Any(), providerFeed).
		Return([]models.ParsedItem{{UniqueID: "a-1", Title: "From provider", URL: "https://owned.example.com/a-1"}}, nil)

	genericSet := models.NewArticleChangeSet()
	genericSet.AddNew(models.NewArticleFromParsedItem(genericFeed.ID, models.ParsedItem{
		UniqueID: "b-1",
		Title:    "From engine",
		URL:      "https://plain.example.com/b-1",
	}))
	genericSet.AddDeleted(removed)

	engine := mocks.NewMockFeedEngine(ctrl)
	engine.EXPECT().
		Refresh(gomock.Any(), []*models.Feed{genericFeed}).
		Return(genericSet, nil)

	registry := service.NewProviderRegistry()
	registry.Register(provider)
	router := newRouter(f, registry, engine)

	f.progress.Reset(2)
	merged, failures := router.Refresh(ctx, []*models.Feed{providerFeed, genericFeed})

	assert.Empty(t, failures)
	newCount, updatedCount, deletedCount := merged.Counts()
	assert.Equal(t, 2, newCount)
	assert.Equal(t, 0, updatedCount)
	assert.Equal(t, 1, deletedCount)
	assert.True(t, f.progress.IsIdle(), "one tick per feed")
}

func TestContentRefreshRouter_ProviderFailureDoesNotFailBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)

	providerFeed := f.createFeed(t, "https://owned.example.com/feed.xml", "ext-a")
	genericFeed := f.createFeed(t, "https://plain.example.com/feed.xml", "ext-b")

	provider := mocks.NewMockContentProvider(ctrl)
	ownerOf("owned.example.com")(provider)
	provider.EXPECT().
		Refresh(gomock.Any(), providerFeed).
		Return(nil, errors.New("provider backend down"))

	genericSet := models.NewArticleChangeSet()
	genericSet.AddNew(models.NewArticleFromParsedItem(genericFeed.ID, models.ParsedItem{
		UniqueID: "b-1",
		Title:    "Still here",
		URL:      "https://plain.example.com/b-1",
	}))

	engine := mocks.NewMockFeedEngine(ctrl)
	engine.EXPECT().
		Refresh(gomock.Any(), []*models.Feed{genericFeed}).
		Return(genericSet, nil)

	registry := service.NewProviderRegistry()
	registry.Register(provider)
	router := newRouter(f, registry, engine)

	f.progress.Reset(2)
	merged, failures := router.Refresh(ctx, []*models.Feed{providerFeed, genericFeed})

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "owned.example.com")
	newCount, _, _ := merged.Counts()
	assert.Equal(t, 1, newCount, "the healthy feed still lands")
	assert.True(t, f.progress.IsIdle(), "a failed feed still counts as completed work")
}

func TestContentRefreshRouter_EmptyProviderResultDeletesVanishedArticles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)

	providerFeed := f.createFeed(t, "https://owned.example.com/feed.xml", "ext-a")
	vanished := f.createArticle(t, providerFeed, "gone-item", "Removed upstream")

	provider := mocks.NewMockContentProvider(ctrl)
	ownerOf("owned.example.com")(provider)
	provider.EXPECT().
		Refresh(gomock.Any(), providerFeed).
		Return(nil, nil)

	registry := service.NewProviderRegistry()
	registry.Register(provider)
	router := newRouter(f, registry, mocks.NewMockFeedEngine(ctrl))

	f.progress.Reset(1)
	merged, failures := router.Refresh(ctx, []*models.Feed{providerFeed})

	assert.Empty(t, failures)
	newCount, updatedCount, deletedCount := merged.Counts()
	assert.Equal(t, 0, newCount)
	assert.Equal(t, 0, updatedCount)
	assert.Equal(t, 1, deletedCount, "articles absent from a successful refresh are deletions")
	assert.Contains(t, merged.DeletedArticles, vanished.Key())
	assert.True(t, f.progress.IsIdle())
}

func TestContentRefreshRouter_EmptyBatchIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)

	router := newRouter(f, service.NewProviderRegistry(), mocks.NewMockFeedEngine(ctrl))

	merged, failures := router.Refresh(context.Background(), nil)
	assert.True(t, merged.IsEmpty())
	assert.Empty(t, failures)
}

func TestContentRefreshRouter_AllGenericSkipsProviderFanOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ctrl := gomock.NewController(t)

	feedA := f.createFeed(t, "https://one.example.com/feed.xml", "ext-1")
	feedB := f.createFeed(t, "https://two.example.com/feed.xml", "ext-2")

	engine := mocks.NewMockFeedEngine(ctrl)
	engine.EXPECT().
		Refresh(gomock.Any(), []*models.Feed{feedA, feedB}).
		Return(models.NewArticleChangeSet(), nil)

	router := newRouter(f, service.NewProviderRegistry(), engine)

	f.progress.Reset(2)
	merged, failures := router.Refresh(ctx, []*models.Feed{feedA, feedB})
	assert.True(t, merged.IsEmpty())
	assert.Empty(t, failures)
	assert.True(t, f.progress.IsIdle())
}
