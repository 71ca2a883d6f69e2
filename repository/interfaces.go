// ABOUTME: Repository layer contracts for the sync core's local storage
// ABOUTME: Defines data access operations for accounts, feeds, folders, articles, statuses and zone state

package repository

import (
	"context"

	"github.com/HieuLsw/NetNewsWire/models"

	"github.com/google/uuid"
)

// AccountRepository persists the local account and its remote identity.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// FindDefault returns the single account this service manages.
	FindDefault(ctx context.Context) (*models.Account, error)
}

// FeedRepository persists feeds belonging to an account.
type FeedRepository interface {
	Create(ctx context.Context, feed *models.Feed) error
	Update(ctx context.Context, feed *models.Feed) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Feed, error)
	FindByURL(ctx context.Context, accountID uuid.UUID, url string) (*models.Feed, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Feed, error)
	GetAllByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Feed, error)
	GetByFolder(ctx context.Context, folderID uuid.UUID) ([]*models.Feed, error)
	DeleteAllByAccount(ctx context.Context, accountID uuid.UUID) error
}

// FolderRepository persists folders belonging to an account.
type FolderRepository interface {
	Create(ctx context.Context, folder *models.Folder) error
	Update(ctx context.Context, folder *models.Folder) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Folder, error)
	FindByName(ctx context.Context, accountID uuid.UUID, name string) (*models.Folder, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Folder, error)
	GetAllByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Folder, error)
	DeleteAllByAccount(ctx context.Context, accountID uuid.UUID) error
}

// ArticleRepository persists articles produced by content refresh cycles.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	Update(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error)
	FindByKey(ctx context.Context, feedID uuid.UUID, uniqueID string) (*models.Article, error)
	GetByFeedID(ctx context.Context, feedID uuid.UUID) ([]*models.Article, error)
	// UpdateStatus flips one status flag on an article without touching its content.
	UpdateStatus(ctx context.Context, articleID uuid.UUID, key models.StatusKey, flag bool) error
	DeleteByFeedID(ctx context.Context, feedID uuid.UUID) error
}

// SyncStatusRepository is the durable queue of pending status mutations
// awaiting delivery to the remote store. Delivery is at-least-once: a
// failed push resets its batch so the next cycle retries it.
type SyncStatusRepository interface {
	// Enqueue upserts pending statuses keyed by (article_id, status_key).
	Enqueue(ctx context.Context, statuses []*models.SyncStatus) error
	// SelectForProcessing marks the current pending batch as selected and returns it.
	SelectForProcessing(ctx context.Context) ([]*models.SyncStatus, error)
	// DeleteSelectedForProcessing removes statuses acknowledged by the remote store.
	DeleteSelectedForProcessing(ctx context.Context, statuses []*models.SyncStatus) error
	// ResetSelectedForProcessing makes statuses eligible for re-selection after a failed push.
	ResetSelectedForProcessing(ctx context.Context, statuses []*models.SyncStatus) error
	SelectPendingCount(ctx context.Context) (int, error)
}

// ZoneSyncStateRepository persists the change token for each remote zone.
type ZoneSyncStateRepository interface {
	// FindByZone returns the sync state for zone, or nil when the zone has
	// never been fetched.
	FindByZone(ctx context.Context, zone models.Zone) (*models.ZoneSyncState, error)
	// Save upserts the sync state for its zone.
	Save(ctx context.Context, state *models.ZoneSyncState) error
	UpdateChangeToken(ctx context.Context, zone models.Zone, token string) error
	// ResetChangeToken clears the cursor so the next fetch replays the
	// zone's full change history.
	ResetChangeToken(ctx context.Context, zone models.Zone) error
}
