// ABOUTME: Read/starred status sync: local marking, durable queueing, zone push and pull
// ABOUTME: Delivery is at-least-once; a failed push resets its batch for the next cycle

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HieuLsw/NetNewsWire/driver"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// highWaterMark is the pending-status count past which a push is
// triggered opportunistically, outside the scheduled cycle.
const highWaterMark = 100

// StatusSyncService owns the status half of sync: it marks articles
// locally, queues the mutations durably, and exchanges them with the
// articles zone.
type StatusSyncService struct {
	queue         repository.SyncStatusRepository
	articleRepo   repository.ArticleRepository
	feedRepo      repository.FeedRepository
	zoneStateRepo repository.ZoneSyncStateRepository
	zoneClient    RemoteZoneClient
	store         *LocalAccountStore
	logger        *slog.Logger

	// Coalesces concurrent opportunistic pushes into one flight.
	pushGroup singleflight.Group
}

// NewStatusSyncService creates the service.
func NewStatusSyncService(
	queue repository.SyncStatusRepository,
	articleRepo repository.ArticleRepository,
	feedRepo repository.FeedRepository,
	zoneStateRepo repository.ZoneSyncStateRepository,
	zoneClient RemoteZoneClient,
	store *LocalAccountStore,
	logger *slog.Logger,
) *StatusSyncService {
	if logger == nil {
		logger = slog.Default()
	}

	return &StatusSyncService{
		queue:         queue,
		articleRepo:   articleRepo,
		feedRepo:      feedRepo,
		zoneStateRepo: zoneStateRepo,
		zoneClient:    zoneClient,
		store:         store,
		logger:        logger,
	}
}

// MarkArticles flips one status flag on a set of articles: the local
// flag is written immediately, the mutation is queued for delivery, and
// crossing the high-water mark fires an opportunistic push whose
// outcome never blocks this caller.
func (s *StatusSyncService) MarkArticles(ctx context.Context, articleIDs []uuid.UUID, key models.StatusKey, flag bool) error {
	if !models.ValidStatusKey(key) {
		return fmt.Errorf("unknown status key %q", key)
	}
	if len(articleIDs) == 0 {
		return nil
	}

	statuses := make([]*models.SyncStatus, 0, len(articleIDs))
	for _, articleID := range articleIDs {
		if err := s.articleRepo.UpdateStatus(ctx, articleID, key, flag); err != nil {
			return fmt.Errorf("failed to mark article %s: %w", articleID, err)
		}
		statuses = append(statuses, models.NewSyncStatus(articleID, key, flag))
	}

	if err := s.queue.Enqueue(ctx, statuses); err != nil {
		return fmt.Errorf("failed to queue status mutations: %w", err)
	}

	count, err := s.queue.SelectPendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending statuses: %w", err)
	}

	if count > highWaterMark {
		s.logger.Debug("Pending statuses crossed high-water mark, pushing",
			"pending", count,
			"high_water_mark", highWaterMark)
		go s.opportunisticPush()
	}

	return nil
}

// opportunisticPush runs a fire-and-forget push, coalescing concurrent
// triggers into one flight. Failures only log; the batch stays queued.
func (s *StatusSyncService) opportunisticPush() {
	_, _, _ = s.pushGroup.Do("status-push", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := s.PushPending(ctx); err != nil {
			s.logger.Warn("Opportunistic status push failed", "error", err)
		}
		return nil, nil
	})
}

// PushPending drains the pending batch to the articles zone. On success
// the batch is deleted; on failure it is reset so the next cycle
// retries it, never losing a status.
func (s *StatusSyncService) PushPending(ctx context.Context) error {
	batch, err := s.queue.SelectForProcessing(ctx)
	if err != nil {
		return fmt.Errorf("failed to select pending statuses: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	mutations, deliverable, deferred, orphaned, err := s.buildMutations(ctx, batch)
	if err != nil {
		if resetErr := s.queue.ResetSelectedForProcessing(ctx, batch); resetErr != nil {
			s.logger.Error("Failed to reset status batch after build error", "error", resetErr)
		}
		return err
	}

	// Statuses whose feed has no remote identity yet go back to pending;
	// they become deliverable once the feed's record is created.
	if len(deferred) > 0 {
		if err := s.queue.ResetSelectedForProcessing(ctx, deferred); err != nil {
			return fmt.Errorf("failed to defer statuses: %w", err)
		}
	}

	// Statuses for articles deleted locally have nothing to deliver.
	if len(orphaned) > 0 {
		if err := s.queue.DeleteSelectedForProcessing(ctx, orphaned); err != nil {
			return fmt.Errorf("failed to drop orphaned statuses: %w", err)
		}
	}

	if len(mutations) == 0 {
		return nil
	}

	if _, err := s.zoneClient.Push(ctx, models.ZoneArticles, mutations); err != nil {
		if resetErr := s.queue.ResetSelectedForProcessing(ctx, deliverable); resetErr != nil {
			s.logger.Error("Failed to reset status batch after push failure", "error", resetErr)
		}
		return fmt.Errorf("status push failed: %w", err)
	}

	if err := s.queue.DeleteSelectedForProcessing(ctx, deliverable); err != nil {
		return fmt.Errorf("failed to delete delivered statuses: %w", err)
	}

	s.logger.Info("Pushed status batch", "delivered", len(deliverable), "deferred", len(deferred))
	return nil
}

// PullStatuses fetches the articles zone's change batch and applies the
// status records to local articles, then advances the change token.
// An expired token resets the cursor and replays the zone once.
func (s *StatusSyncService) PullStatuses(ctx context.Context) error {
	token := ""
	if state, err := s.zoneStateRepo.FindByZone(ctx, models.ZoneArticles); err != nil {
		return fmt.Errorf("failed to load articles zone state: %w", err)
	} else if state != nil {
		token = state.ChangeToken
	}

	batch, err := s.fetchWithTokenRecovery(ctx, token)
	if err != nil {
		return err
	}

	for _, record := range batch.ChangedRecords {
		if record.Type != models.RecordTypeArticleStatus {
			continue
		}
		if err := s.store.ApplyStatusRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to apply status record %s: %w", record.ID, err)
		}
	}

	if err := s.zoneStateRepo.UpdateChangeToken(ctx, models.ZoneArticles, batch.ChangeToken); err != nil {
		return fmt.Errorf("failed to advance articles change token: %w", err)
	}

	s.logger.Debug("Pulled article statuses", "records", len(batch.ChangedRecords))
	return nil
}

// PendingCount reports the number of statuses awaiting delivery.
func (s *StatusSyncService) PendingCount(ctx context.Context) (int, error) {
	return s.queue.SelectPendingCount(ctx)
}

func (s *StatusSyncService) fetchWithTokenRecovery(ctx context.Context, token string) (*models.ZoneChangeBatch, error) {
	batch, err := s.zoneClient.FetchChanges(ctx, models.ZoneArticles, token)
	if err == nil {
		return batch, nil
	}

	if errors.Is(err, driver.ErrChangeTokenExpired) && token != "" {
		// An expired cursor replays the zone from the start.
		if resetErr := s.zoneStateRepo.ResetChangeToken(ctx, models.ZoneArticles); resetErr != nil {
			return nil, fmt.Errorf("failed to reset articles change token: %w", resetErr)
		}
		batch, retryErr := s.zoneClient.FetchChanges(ctx, models.ZoneArticles, "")
		if retryErr != nil {
			return nil, fmt.Errorf("articles zone fetch failed after token reset: %w", retryErr)
		}
		return batch, nil
	}

	return nil, fmt.Errorf("articles zone fetch failed: %w", err)
}

// buildMutations translates queued statuses into zone record mutations.
// It also partitions out statuses that cannot ship yet (feed lacks an
// externalID) and statuses whose article no longer exists.
func (s *StatusSyncService) buildMutations(ctx context.Context, batch []*models.SyncStatus) (
	mutations []models.RecordMutation,
	deliverable, deferred, orphaned []*models.SyncStatus,
	err error,
) {
	feeds := make(map[uuid.UUID]*models.Feed)

	for _, status := range batch {
		article, lookupErr := s.articleRepo.FindByID(ctx, status.ArticleID)
		if lookupErr != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to load article %s: %w", status.ArticleID, lookupErr)
		}
		if article == nil {
			orphaned = append(orphaned, status)
			continue
		}

		feed, ok := feeds[article.FeedID]
		if !ok {
			feed, lookupErr = s.feedRepo.FindByID(ctx, article.FeedID)
			if lookupErr != nil {
				return nil, nil, nil, nil, fmt.Errorf("failed to load feed %s: %w", article.FeedID, lookupErr)
			}
			feeds[article.FeedID] = feed
		}
		if feed == nil {
			orphaned = append(orphaned, status)
			continue
		}
		if feed.ExternalID == nil {
			deferred = append(deferred, status)
			continue
		}

		record := &models.RemoteRecord{
			ID:   statusRecordID(*feed.ExternalID, article.UniqueID),
			Zone: models.ZoneArticles,
			Type: models.RecordTypeArticleStatus,
			Fields: map[string]any{
				models.FieldFeedExternalID: *feed.ExternalID,
				models.FieldUniqueID:       article.UniqueID,
				string(status.Key):         status.Flag,
			},
		}
		mutations = append(mutations, models.SaveMutation(record))
		deliverable = append(deliverable, status)
	}

	return mutations, deliverable, deferred, orphaned, nil
}

// statusRecordID derives the stable record name for an article's status
// record: the owning feed's externalID plus a digest of the article's
// uniqueID, which may be arbitrarily long or contain URL characters.
func statusRecordID(feedExternalID, uniqueID string) string {
	digest := sha256.Sum256([]byte(uniqueID))
	return feedExternalID + "/" + hex.EncodeToString(digest[:])
}
