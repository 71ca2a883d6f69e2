// ABOUTME: Cached resolution between remote record IDs and local feed/folder UUIDs
// ABOUTME: Zone change batches arrive keyed by external ID; everything local is keyed by UUID

package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"

	"github.com/google/uuid"
)

// ResolutionStats counts cache behavior for one resolver instance.
type ResolutionStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Known  int   `json:"known"`
}

// ExternalIDResolver maps remote record IDs onto local entity UUIDs.
// Lookups hit an in-memory cache first and fall back to the repository;
// entities created locally are registered as their external IDs are
// assigned. Safe for concurrent use.
type ExternalIDResolver struct {
	feedRepo   repository.FeedRepository
	folderRepo repository.FolderRepository
	logger     *slog.Logger

	mu      sync.RWMutex
	feeds   map[string]uuid.UUID
	folders map[string]uuid.UUID
	hits    int64
	misses  int64
}

// NewExternalIDResolver creates a resolver backed by the given repositories.
func NewExternalIDResolver(feedRepo repository.FeedRepository, folderRepo repository.FolderRepository, logger *slog.Logger) *ExternalIDResolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExternalIDResolver{
		feedRepo:   feedRepo,
		folderRepo: folderRepo,
		logger:     logger,
		feeds:      make(map[string]uuid.UUID),
		folders:    make(map[string]uuid.UUID),
	}
}

// ResolveFeed returns the local feed carrying externalID, or nil when no
// such feed exists locally.
func (r *ExternalIDResolver) ResolveFeed(ctx context.Context, externalID string) (*models.Feed, error) {
	if id, ok := r.cachedFeedID(externalID); ok {
		feed, err := r.feedRepo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load cached feed %s: %w", id, err)
		}
		if feed != nil {
			return feed, nil
		}
		// Stale entry: the feed was deleted underneath the cache.
		r.InvalidateFeed(externalID)
	}

	r.countMiss()
	feed, err := r.feedRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve feed by external ID %s: %w", externalID, err)
	}
	if feed == nil {
		return nil, nil
	}

	r.RegisterFeed(feed)
	return feed, nil
}

// ResolveFolder returns the local folder carrying externalID, or nil
// when no such folder exists locally.
func (r *ExternalIDResolver) ResolveFolder(ctx context.Context, externalID string) (*models.Folder, error) {
	if id, ok := r.cachedFolderID(externalID); ok {
		folder, err := r.folderRepo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load cached folder %s: %w", id, err)
		}
		if folder != nil {
			return folder, nil
		}
		r.InvalidateFolder(externalID)
	}

	r.countMiss()
	folder, err := r.folderRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder by external ID %s: %w", externalID, err)
	}
	if folder == nil {
		return nil, nil
	}

	r.RegisterFolder(folder)
	return folder, nil
}

// RegisterFeed records a feed's external ID in the cache. Feeds without
// an external ID yet are ignored.
func (r *ExternalIDResolver) RegisterFeed(feed *models.Feed) {
	if feed == nil || feed.ExternalID == nil {
		return
	}
	r.mu.Lock()
	r.feeds[*feed.ExternalID] = feed.ID
	r.mu.Unlock()
}

// RegisterFolder records a folder's external ID in the cache.
func (r *ExternalIDResolver) RegisterFolder(folder *models.Folder) {
	if folder == nil || folder.ExternalID == nil {
		return
	}
	r.mu.Lock()
	r.folders[*folder.ExternalID] = folder.ID
	r.mu.Unlock()
}

// InvalidateFeed drops one feed entry from the cache.
func (r *ExternalIDResolver) InvalidateFeed(externalID string) {
	r.mu.Lock()
	delete(r.feeds, externalID)
	r.mu.Unlock()
}

// InvalidateFolder drops one folder entry from the cache.
func (r *ExternalIDResolver) InvalidateFolder(externalID string) {
	r.mu.Lock()
	delete(r.folders, externalID)
	r.mu.Unlock()
}

// Clear empties the cache. Called on account teardown, when every
// local mirror of remote state is discarded.
func (r *ExternalIDResolver) Clear() {
	r.mu.Lock()
	r.feeds = make(map[string]uuid.UUID)
	r.folders = make(map[string]uuid.UUID)
	r.mu.Unlock()

	r.logger.Debug("External ID resolver cache cleared")
}

// Stats returns a snapshot of cache behavior.
func (r *ExternalIDResolver) Stats() ResolutionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ResolutionStats{
		Hits:   r.hits,
		Misses: r.misses,
		Known:  len(r.feeds) + len(r.folders),
	}
}

func (r *ExternalIDResolver) cachedFeedID(externalID string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.feeds[externalID]
	if ok {
		r.hits++
	}
	return id, ok
}

func (r *ExternalIDResolver) cachedFolderID(externalID string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.folders[externalID]
	if ok {
		r.hits++
	}
	return id, ok
}

func (r *ExternalIDResolver) countMiss() {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
}
