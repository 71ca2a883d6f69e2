package domain

import (
	"context"
	"testing"

	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolverFixture(t *testing.T) (*ExternalIDResolver, repository.FeedRepository, repository.FolderRepository, *models.Account) {
	t.Helper()

	db, err := repository.Open(repository.DatabaseOptions{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = repository.RunMigrations(db, "sqlite")
	require.NoError(t, err)

	ctx := context.Background()
	accountRepo := repository.NewSQLAccountRepository(db, nil)
	account := models.NewAccount("test")
	require.NoError(t, accountRepo.Create(ctx, account))

	feedRepo := repository.NewSQLFeedRepository(db, nil)
	folderRepo := repository.NewSQLFolderRepository(db, nil)

	return NewExternalIDResolver(feedRepo, folderRepo, nil), feedRepo, folderRepo, account
}

func TestExternalIDResolver_ResolveFeed(t *testing.T) {
	ctx := context.Background()
	resolver, feedRepo, _, account := newResolverFixture(t)

	feed := models.NewFeed(account.ID, nil, "https://example.com/feed.xml", "Example")
	feed.AssignExternalID("feed-ext-1")
	require.NoError(t, feedRepo.Create(ctx, feed))

	// First lookup misses the cache and falls back to the repository.
	resolved, err := resolver.ResolveFeed(ctx, "feed-ext-1")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, feed.ID, resolved.ID)
	assert.Equal(t, int64(1), resolver.Stats().Misses)

	// Second lookup hits the cache.
	resolved, err = resolver.ResolveFeed(ctx, "feed-ext-1")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, int64(1), resolver.Stats().Hits)
}

func TestExternalIDResolver_UnknownIDsResolveToNil(t *testing.T) {
	ctx := context.Background()
	resolver, _, _, _ := newResolverFixture(t)

	feed, err := resolver.ResolveFeed(ctx, "never-seen")
	require.NoError(t, err)
	assert.Nil(t, feed)

	folder, err := resolver.ResolveFolder(ctx, "never-seen")
	require.NoError(t, err)
	assert.Nil(t, folder)
}

func TestExternalIDResolver_StaleCacheEntryFallsBack(t *testing.T) {
	ctx := context.Background()
	resolver, feedRepo, _, account := newResolverFixture(t)

	feed := models.NewFeed(account.ID, nil, "https://example.com/feed.xml", "Example")
	feed.AssignExternalID("feed-ext-1")
	require.NoError(t, feedRepo.Create(ctx, feed))

	_, err := resolver.ResolveFeed(ctx, "feed-ext-1")
	require.NoError(t, err)

	// Delete underneath the cache; the resolver must notice, not return
	// a phantom feed.
	require.NoError(t, feedRepo.Delete(ctx, feed.ID))

	resolved, err := resolver.ResolveFeed(ctx, "feed-ext-1")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestExternalIDResolver_RegisterAndClear(t *testing.T) {
	ctx := context.Background()
	resolver, _, folderRepo, account := newResolverFixture(t)

	folder := models.NewFolder(account.ID, "Tech")
	folder.AssignExternalID("folder-ext-1")
	require.NoError(t, folderRepo.Create(ctx, folder))
	resolver.RegisterFolder(folder)

	resolved, err := resolver.ResolveFolder(ctx, "folder-ext-1")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, int64(1), resolver.Stats().Hits)

	resolver.Clear()
	assert.Equal(t, 0, resolver.Stats().Known)
}
