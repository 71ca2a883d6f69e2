package service_test

import (
	"context"
	"testing"

	"github.com/HieuLsw/NetNewsWire/domain"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"
	"github.com/HieuLsw/NetNewsWire/service"

	"github.com/stretchr/testify/require"
)

// fixture wires the full local stack on an in-memory database.
type fixture struct {
	accountRepo   repository.AccountRepository
	feedRepo      repository.FeedRepository
	folderRepo    repository.FolderRepository
	articleRepo   repository.ArticleRepository
	queue         repository.SyncStatusRepository
	zoneStateRepo repository.ZoneSyncStateRepository
	resolver      *domain.ExternalIDResolver
	store         *service.LocalAccountStore
	progress      *service.ProgressTracker
	account       *models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := repository.Open(repository.DatabaseOptions{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = repository.RunMigrations(db, "sqlite")
	require.NoError(t, err)

	f := &fixture{
		accountRepo:   repository.NewSQLAccountRepository(db, nil),
		feedRepo:      repository.NewSQLFeedRepository(db, nil),
		folderRepo:    repository.NewSQLFolderRepository(db, nil),
		articleRepo:   repository.NewSQLArticleRepository(db, nil),
		queue:         repository.NewSQLSyncStatusRepository(db, nil),
		zoneStateRepo: repository.NewSQLZoneSyncStateRepository(db, nil),
		progress:      service.NewProgressTracker(),
	}
	f.resolver = domain.NewExternalIDResolver(f.feedRepo, f.folderRepo, nil)
	f.store = service.NewLocalAccountStore(f.accountRepo, f.feedRepo, f.folderRepo, f.articleRepo, f.resolver, nil)

	f.account = models.NewAccount("test")
	require.NoError(t, f.accountRepo.Create(context.Background(), f.account))

	return f
}

// createFeed persists a feed with a remote identity already assigned.
func (f *fixture) createFeed(t *testing.T, url, externalID string) *models.Feed {
	t.Helper()

	feed := models.NewFeed(f.account.ID, nil, url, url)
	if externalID != "" {
		feed.AssignExternalID(externalID)
	}
	require.NoError(t, f.feedRepo.Create(context.Background(), feed))
	return feed
}

// createArticle persists one article for a feed.
func (f *fixture) createArticle(t *testing.T, feed *models.Feed, uniqueID, title string) *models.Article {
	t.Helper()

	article := models.NewArticleFromParsedItem(feed.ID, models.ParsedItem{
		UniqueID: uniqueID,
		Title:    title,
		URL:      feed.URL + "/" + uniqueID,
	})
	require.NoError(t, f.articleRepo.Create(context.Background(), article))
	return article
}
