// ABOUTME: Local mutation surface: applies parsed items, merged changesets and zone change batches
// ABOUTME: The only place remote record payloads are translated into local rows and back

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HieuLsw/NetNewsWire/domain"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"

	"github.com/google/uuid"
)

// LocalAccountStore mutates the local mirror of the account. All
// operations are synchronous; the orchestrator sequences its stages
// around them.
type LocalAccountStore struct {
	accountRepo repository.AccountRepository
	feedRepo    repository.FeedRepository
	folderRepo  repository.FolderRepository
	articleRepo repository.ArticleRepository
	resolver    *domain.ExternalIDResolver
	logger      *slog.Logger
}

// NewLocalAccountStore creates the store.
func NewLocalAccountStore(
	accountRepo repository.AccountRepository,
	feedRepo repository.FeedRepository,
	folderRepo repository.FolderRepository,
	articleRepo repository.ArticleRepository,
	resolver *domain.ExternalIDResolver,
	logger *slog.Logger,
) *LocalAccountStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &LocalAccountStore{
		accountRepo: accountRepo,
		feedRepo:    feedRepo,
		folderRepo:  folderRepo,
		articleRepo: articleRepo,
		resolver:    resolver,
		logger:      logger,
	}
}

// BuildChangeSet classifies a full parse of one feed against the local
// store. Items are matched by (feedID, uniqueID); an unchanged content
// hash contributes nothing, so re-applying an identical parse is a
// no-op. Stored articles absent from the parse are classified deleted.
func (s *LocalAccountStore) BuildChangeSet(ctx context.Context, feed *models.Feed, items []models.ParsedItem) (*models.ArticleChangeSet, error) {
	changes := models.NewArticleChangeSet()

	existing, err := s.articleRepo.GetByFeedID(ctx, feed.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles for feed %s: %w", feed.ID, err)
	}

	byUniqueID := make(map[string]*models.Article, len(existing))
	for _, article := range existing {
		byUniqueID[article.UniqueID] = article
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		uniqueID := item.UniqueID
		if uniqueID == "" {
			uniqueID = item.URL
		}
		if uniqueID == "" || seen[uniqueID] {
			continue
		}
		seen[uniqueID] = true

		current, known := byUniqueID[uniqueID]
		if !known {
			changes.AddNew(models.NewArticleFromParsedItem(feed.ID, item))
			continue
		}
		if current.ContentHash != item.ContentHash() {
			current.ApplyParsedItem(item)
			changes.AddUpdated(current)
		}
	}

	for uniqueID, article := range byUniqueID {
		if !seen[uniqueID] {
			changes.AddDeleted(article)
		}
	}

	return changes, nil
}

// ApplyChangeSet persists a merged changeset.
func (s *LocalAccountStore) ApplyChangeSet(ctx context.Context, changes *models.ArticleChangeSet) error {
	if changes == nil || changes.IsEmpty() {
		return nil
	}

	for _, article := range changes.NewArticles {
		if err := s.articleRepo.Create(ctx, article); err != nil {
			return fmt.Errorf("failed to create article %s: %w", article.UniqueID, err)
		}
	}
	for _, article := range changes.UpdatedArticles {
		if err := s.articleRepo.Update(ctx, article); err != nil {
			return fmt.Errorf("failed to update article %s: %w", article.UniqueID, err)
		}
	}
	for _, article := range changes.DeletedArticles {
		if err := s.articleRepo.Delete(ctx, article.ID); err != nil {
			return fmt.Errorf("failed to delete article %s: %w", article.UniqueID, err)
		}
	}

	newCount, updatedCount, deletedCount := changes.Counts()
	s.logger.Info("Applied article changeset",
		"new", newCount,
		"updated", updatedCount,
		"deleted", deletedCount)

	return nil
}

// ApplyParsedItems classifies and immediately persists a parse of one
// feed. Used by the creation pipeline's first-fetch stage; refresh
// cycles classify per source and apply the merged set once instead.
func (s *LocalAccountStore) ApplyParsedItems(ctx context.Context, feed *models.Feed, items []models.ParsedItem) (*models.ArticleChangeSet, error) {
	changes, err := s.BuildChangeSet(ctx, feed, items)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyChangeSet(ctx, changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// ApplyZoneChangeBatch mirrors one account-zone change batch locally:
// feeds and folders are upserted or removed by externalID. Folder
// records are applied before feed records so a new feed can land in a
// folder created by the same batch.
func (s *LocalAccountStore) ApplyZoneChangeBatch(ctx context.Context, account *models.Account, batch *models.ZoneChangeBatch) error {
	if batch == nil || batch.IsEmpty() {
		return nil
	}

	for _, record := range batch.ChangedRecords {
		if record.Type != models.RecordTypeFolder {
			continue
		}
		if err := s.applyFolderRecord(ctx, account, record); err != nil {
			return err
		}
	}

	for _, record := range batch.ChangedRecords {
		if record.Type != models.RecordTypeFeed {
			continue
		}
		if err := s.applyFeedRecord(ctx, account, record); err != nil {
			return err
		}
	}

	for _, deleted := range batch.DeletedRecords {
		if err := s.applyRecordDeletion(ctx, deleted); err != nil {
			return err
		}
	}

	s.logger.Info("Applied zone change batch",
		"zone", batch.Zone,
		"changed", len(batch.ChangedRecords),
		"deleted", len(batch.DeletedRecords))

	return nil
}

// ApplyStatusRecord applies one pulled article-status record to the
// local store. Records for articles not held locally are skipped; the
// status will be seen again on a later pull once the article exists.
func (s *LocalAccountStore) ApplyStatusRecord(ctx context.Context, record models.RemoteRecord) error {
	feedExternalID := record.StringField(models.FieldFeedExternalID)
	uniqueID := record.StringField(models.FieldUniqueID)
	if feedExternalID == "" || uniqueID == "" {
		s.logger.Warn("Skipping malformed status record", "record_id", record.ID)
		return nil
	}

	feed, err := s.resolver.ResolveFeed(ctx, feedExternalID)
	if err != nil {
		return err
	}
	if feed == nil {
		return nil
	}

	article, err := s.articleRepo.FindByKey(ctx, feed.ID, uniqueID)
	if err != nil {
		return fmt.Errorf("failed to look up article %s/%s: %w", feed.ID, uniqueID, err)
	}
	if article == nil {
		return nil
	}

	if _, ok := record.Fields[models.FieldRead]; ok {
		if err := s.articleRepo.UpdateStatus(ctx, article.ID, models.StatusKeyRead, record.BoolField(models.FieldRead)); err != nil {
			return err
		}
	}
	if _, ok := record.Fields[models.FieldStarred]; ok {
		if err := s.articleRepo.UpdateStatus(ctx, article.ID, models.StatusKeyStarred, record.BoolField(models.FieldStarred)); err != nil {
			return err
		}
	}

	return nil
}

// RemoveAllForAccount tears down every feed, folder and article
// belonging to the account. Called only on account invalidation, when
// the remote zone no longer exists.
func (s *LocalAccountStore) RemoveAllForAccount(ctx context.Context, account *models.Account) error {
	if err := s.feedRepo.DeleteAllByAccount(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to remove feeds for account %s: %w", account.ID, err)
	}
	if err := s.folderRepo.DeleteAllByAccount(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to remove folders for account %s: %w", account.ID, err)
	}
	s.resolver.Clear()

	s.logger.Warn("Removed all local state for account", "account_id", account.ID)
	return nil
}

func (s *LocalAccountStore) applyFolderRecord(ctx context.Context, account *models.Account, record models.RemoteRecord) error {
	name := record.StringField(models.FieldName)
	if name == "" {
		s.logger.Warn("Skipping folder record without a name", "record_id", record.ID)
		return nil
	}

	folder, err := s.resolver.ResolveFolder(ctx, record.ID)
	if err != nil {
		return err
	}

	if folder == nil {
		folder = models.NewFolder(account.ID, name)
		folder.AssignExternalID(record.ID)
		if err := s.folderRepo.Create(ctx, folder); err != nil {
			return fmt.Errorf("failed to create folder %q: %w", name, err)
		}
		s.resolver.RegisterFolder(folder)
		return nil
	}

	if folder.Name != name {
		folder.Name = name
		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return fmt.Errorf("failed to rename folder %s: %w", folder.ID, err)
		}
	}
	return nil
}

func (s *LocalAccountStore) applyFeedRecord(ctx context.Context, account *models.Account, record models.RemoteRecord) error {
	url := record.StringField(models.FieldURL)
	if url == "" {
		s.logger.Warn("Skipping feed record without a URL", "record_id", record.ID)
		return nil
	}

	var parent *models.Folder
	if folderExternalID := record.StringField(models.FieldFolderExternalID); folderExternalID != "" {
		folder, err := s.resolver.ResolveFolder(ctx, folderExternalID)
		if err != nil {
			return err
		}
		parent = folder
	}

	feed, err := s.resolver.ResolveFeed(ctx, record.ID)
	if err != nil {
		return err
	}

	if feed == nil {
		feed = models.NewFeed(account.ID, folderUUID(parent), url, record.StringField(models.FieldName))
		feed.HomePageURL = record.StringField(models.FieldHomePageURL)
		feed.EditedName = record.StringField(models.FieldEditedName)
		feed.AssignExternalID(record.ID)
		if err := s.feedRepo.Create(ctx, feed); err != nil {
			return fmt.Errorf("failed to create feed %q: %w", url, err)
		}
		s.resolver.RegisterFeed(feed)
		return nil
	}

	feed.URL = url
	if name := record.StringField(models.FieldName); name != "" {
		feed.Name = name
	}
	feed.EditedName = record.StringField(models.FieldEditedName)
	if home := record.StringField(models.FieldHomePageURL); home != "" {
		feed.HomePageURL = home
	}
	feed.FolderID = folderUUID(parent)

	if err := s.feedRepo.Update(ctx, feed); err != nil {
		return fmt.Errorf("failed to update feed %s: %w", feed.ID, err)
	}
	return nil
}

func folderUUID(folder *models.Folder) *uuid.UUID {
	if folder == nil {
		return nil
	}
	id := folder.ID
	return &id
}

func (s *LocalAccountStore) applyRecordDeletion(ctx context.Context, deleted models.DeletedRecord) error {
	switch deleted.Type {
	case models.RecordTypeFeed:
		feed, err := s.resolver.ResolveFeed(ctx, deleted.ID)
		if err != nil {
			return err
		}
		if feed == nil {
			return nil
		}
		if err := s.articleRepo.DeleteByFeedID(ctx, feed.ID); err != nil {
			return err
		}
		if err := s.feedRepo.Delete(ctx, feed.ID); err != nil {
			return fmt.Errorf("failed to delete feed %s: %w", feed.ID, err)
		}
		s.resolver.InvalidateFeed(deleted.ID)

	case models.RecordTypeFolder:
		folder, err := s.resolver.ResolveFolder(ctx, deleted.ID)
		if err != nil {
			return err
		}
		if folder == nil {
			return nil
		}
		if err := s.folderRepo.Delete(ctx, folder.ID); err != nil {
			return fmt.Errorf("failed to delete folder %s: %w", folder.ID, err)
		}
		s.resolver.InvalidateFolder(deleted.ID)
	}

	return nil
}
