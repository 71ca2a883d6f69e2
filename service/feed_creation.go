// ABOUTME: Staged pipeline for feed and folder mutations against the remote store
// ABOUTME: Local container membership changes only after the remote mutation succeeded

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HieuLsw/NetNewsWire/domain"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"
	"github.com/HieuLsw/NetNewsWire/utils"

	"github.com/google/uuid"
)

// ErrAlreadySubscribed is returned when the account already holds a
// feed with the resolved canonical URL. No remote mutation has happened
// when this error is returned.
var ErrAlreadySubscribed = errors.New("already subscribed to this feed")

// creationStages is the progress budget grown up front per feed
// creation, one unit per pipeline stage.
const creationStages = 5

// FeedCreationPipeline orchestrates remote-record creation plus content
// bootstrap for new feeds, and the rename/move/remove/restore surface
// for feeds and folders.
type FeedCreationPipeline struct {
	feedRepo   repository.FeedRepository
	folderRepo repository.FolderRepository
	registry   *ProviderRegistry
	engine     FeedEngine
	zoneClient RemoteZoneClient
	store      *LocalAccountStore
	resolver   *domain.ExternalIDResolver
	progress   *ProgressTracker
	logger     *slog.Logger
}

// NewFeedCreationPipeline creates the pipeline.
func NewFeedCreationPipeline(
	feedRepo repository.FeedRepository,
	folderRepo repository.FolderRepository,
	registry *ProviderRegistry,
	engine FeedEngine,
	zoneClient RemoteZoneClient,
	store *LocalAccountStore,
	resolver *domain.ExternalIDResolver,
	progress *ProgressTracker,
	logger *slog.Logger,
) *FeedCreationPipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &FeedCreationPipeline{
		feedRepo:   feedRepo,
		folderRepo: folderRepo,
		registry:   registry,
		engine:     engine,
		zoneClient: zoneClient,
		store:      store,
		resolver:   resolver,
		progress:   progress,
		logger:     logger,
	}
}

// CreateFeed subscribes the account to a feed. The provider path and
// the generic path differ deliberately in how a failed first fetch is
// treated: a provider feed must prove fetchability before it is added,
// while a generic feed counts as subscribed once discovered, even if
// its first download fails.
func (p *FeedCreationPipeline) CreateFeed(ctx context.Context, account *models.Account, rawURL string, folder *models.Folder) (*models.Feed, error) {
	canonical, err := utils.NormalizeFeedURL(rawURL)
	if err != nil {
		return nil, err
	}

	ticker := p.growStages(creationStages)
	defer ticker.finish()

	if provider, ok := p.registry.Lookup(canonical); ok {
		return p.createProviderFeed(ctx, account, provider, canonical, folder, ticker)
	}
	return p.createGenericFeed(ctx, account, canonical, folder, ticker)
}

func (p *FeedCreationPipeline) createProviderFeed(ctx context.Context, account *models.Account, provider ContentProvider, canonical string, folder *models.Folder, ticker *stageTicker) (*models.Feed, error) {
	// Stage 1: the provider must name the feed, or the add fails outright.
	name, err := provider.AssignName(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("provider could not name %s: %w", canonical, err)
	}
	ticker.tick()

	// Stage 2: duplicate check before any remote mutation.
	if err := p.rejectDuplicate(ctx, account, canonical); err != nil {
		return nil, err
	}
	ticker.tick()

	// Stage 3: remote record create.
	externalID, err := p.createRemoteFeedRecord(ctx, canonical, name, folder)
	if err != nil {
		return nil, err
	}
	ticker.tick()

	// Stage 4: first provider refresh must succeed before the local feed
	// exists. Failure leaves the remote record created.
	feed := models.NewFeed(account.ID, folderUUID(folder), canonical, name)
	feed.AssignExternalID(externalID)

	items, err := provider.Refresh(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("provider first refresh failed for %s: %w", canonical, err)
	}
	ticker.tick()

	// Stage 5: local feed construct, container add, content apply.
	if err := p.feedRepo.Create(ctx, feed); err != nil {
		return nil, fmt.Errorf("failed to persist feed %s: %w", canonical, err)
	}
	p.resolver.RegisterFeed(feed)

	if _, err := p.store.ApplyParsedItems(ctx, feed, items); err != nil {
		return nil, err
	}
	ticker.tick()

	p.logger.Info("Provider feed created", "url", canonical, "external_id", externalID)
	return feed, nil
}

func (p *FeedCreationPipeline) createGenericFeed(ctx context.Context, account *models.Account, canonical string, folder *models.Folder, ticker *stageTicker) (*models.Feed, error) {
	// Stage 1: discovery resolves the requested URL to the best feed.
	candidate, err := p.discover(ctx, canonical)
	if err != nil {
		return nil, err
	}
	feedURL, err := utils.NormalizeFeedURL(candidate.URL)
	if err != nil {
		return nil, err
	}
	ticker.tick()

	// Stage 2: duplicate check on the resolved canonical URL.
	if err := p.rejectDuplicate(ctx, account, feedURL); err != nil {
		return nil, err
	}
	ticker.tick()

	// Stage 3: remote record create.
	name := candidate.Title
	if name == "" {
		name = feedURL
	}
	externalID, err := p.createRemoteFeedRecord(ctx, feedURL, name, folder)
	if err != nil {
		return nil, err
	}
	ticker.tick()

	// Stage 4: local feed + container add. From here the subscribe has
	// succeeded from the caller's point of view.
	feed := models.NewFeed(account.ID, folderUUID(folder), feedURL, name)
	feed.AssignExternalID(externalID)
	if err := p.feedRepo.Create(ctx, feed); err != nil {
		return nil, fmt.Errorf("failed to persist feed %s: %w", feedURL, err)
	}
	p.resolver.RegisterFeed(feed)
	ticker.tick()

	// Stage 5: first download. Failure defers content to the next
	// refresh cycle; the feed is still returned as subscribed.
	if parsed, err := p.engine.Download(ctx, feedURL); err != nil {
		p.logger.Warn("First download failed, content deferred",
			"url", feedURL,
			"error", err)
	} else {
		if feed.Name == feedURL && parsed.Title != "" {
			feed.Name = parsed.Title
			feed.HomePageURL = parsed.HomePageURL
			if err := p.feedRepo.Update(ctx, feed); err != nil {
				p.logger.Warn("Failed to update feed title after download", "error", err)
			}
		}
		if _, err := p.store.ApplyParsedItems(ctx, feed, parsed.Items); err != nil {
			p.logger.Warn("First content apply failed, content deferred",
				"url", feedURL,
				"error", err)
		}
	}
	ticker.tick()

	p.logger.Info("Generic feed created", "url", feedURL, "external_id", externalID)
	return feed, nil
}

// discover picks the best candidate for a URL: an exact match to the
// requested URL wins, otherwise the highest quality score.
func (p *FeedCreationPipeline) discover(ctx context.Context, requested string) (*models.FeedCandidate, error) {
	candidates, err := p.engine.Find(ctx, requested)
	if err != nil {
		return nil, fmt.Errorf("feed discovery failed for %s: %w", requested, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no feeds found at %s", requested)
	}

	best := &candidates[0]
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.URL == requested {
			return candidate, nil
		}
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	return best, nil
}

func (p *FeedCreationPipeline) rejectDuplicate(ctx context.Context, account *models.Account, canonicalURL string) error {
	existing, err := p.feedRepo.FindByURL(ctx, account.ID, canonicalURL)
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, canonicalURL)
	}
	return nil
}

// createRemoteFeedRecord pushes the feed's record to the account zone
// and returns its externalID.
func (p *FeedCreationPipeline) createRemoteFeedRecord(ctx context.Context, url, name string, folder *models.Folder) (string, error) {
	record := &models.RemoteRecord{
		ID:     uuid.NewString(),
		Zone:   models.ZoneAccount,
		Type:   models.RecordTypeFeed,
		Fields: feedRecordFields(url, name, "", folder),
	}

	saved, err := p.zoneClient.Push(ctx, models.ZoneAccount, []models.RecordMutation{models.SaveMutation(record)})
	if err != nil {
		return "", fmt.Errorf("remote feed create failed for %s: %w", url, err)
	}
	if len(saved) > 0 {
		return saved[0].ID, nil
	}
	return record.ID, nil
}

// RenameFeed sets the user-edited name, remotely then locally.
func (p *FeedCreationPipeline) RenameFeed(ctx context.Context, feed *models.Feed, newName string) error {
	if err := p.pushFeedRecord(ctx, feed, newName, feed.FolderID); err != nil {
		return err
	}

	feed.EditedName = newName
	if err := p.feedRepo.Update(ctx, feed); err != nil {
		return fmt.Errorf("failed to persist feed rename: %w", err)
	}
	return nil
}

// MoveFeed moves a feed into folder (nil moves it to the account root),
// remotely then locally.
func (p *FeedCreationPipeline) MoveFeed(ctx context.Context, feed *models.Feed, folder *models.Folder) error {
	if err := p.pushFeedRecord(ctx, feed, feed.EditedName, folderUUID(folder)); err != nil {
		return err
	}

	feed.FolderID = folderUUID(folder)
	if err := p.feedRepo.Update(ctx, feed); err != nil {
		return fmt.Errorf("failed to persist feed move: %w", err)
	}
	return nil
}

// RemoveFeed deletes the feed remotely, then locally with its articles.
func (p *FeedCreationPipeline) RemoveFeed(ctx context.Context, feed *models.Feed) error {
	if feed.ExternalID != nil {
		mutation := models.DeleteMutation(*feed.ExternalID, models.RecordTypeFeed)
		if _, err := p.zoneClient.Push(ctx, models.ZoneAccount, []models.RecordMutation{mutation}); err != nil {
			return fmt.Errorf("remote feed delete failed: %w", err)
		}
		p.resolver.InvalidateFeed(*feed.ExternalID)
	}

	if err := p.store.articleRepo.DeleteByFeedID(ctx, feed.ID); err != nil {
		return fmt.Errorf("failed to delete feed articles: %w", err)
	}
	if err := p.feedRepo.Delete(ctx, feed.ID); err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	p.logger.Info("Feed removed", "feed_id", feed.ID, "url", feed.URL)
	return nil
}

// RestoreFeed re-creates a previously removed feed: remote record
// first, then the local row.
func (p *FeedCreationPipeline) RestoreFeed(ctx context.Context, account *models.Account, feed *models.Feed) error {
	externalID, err := p.createRemoteFeedRecord(ctx, feed.URL, feed.Name, nil)
	if err != nil {
		return err
	}

	restored := models.NewFeed(account.ID, feed.FolderID, feed.URL, feed.Name)
	restored.EditedName = feed.EditedName
	restored.HomePageURL = feed.HomePageURL
	restored.AssignExternalID(externalID)

	if err := p.feedRepo.Create(ctx, restored); err != nil {
		return fmt.Errorf("failed to persist restored feed: %w", err)
	}
	p.resolver.RegisterFeed(restored)
	return nil
}

// CreateFolder creates a folder, remotely then locally. Creating a
// folder that already exists returns the existing one.
func (p *FeedCreationPipeline) CreateFolder(ctx context.Context, account *models.Account, name string) (*models.Folder, error) {
	existing, err := p.folderRepo.FindByName(ctx, account.ID, name)
	if err != nil {
		return nil, fmt.Errorf("folder lookup failed: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	record := &models.RemoteRecord{
		ID:   uuid.NewString(),
		Zone: models.ZoneAccount,
		Type: models.RecordTypeFolder,
		Fields: map[string]any{
			models.FieldName: name,
		},
	}
	saved, err := p.zoneClient.Push(ctx, models.ZoneAccount, []models.RecordMutation{models.SaveMutation(record)})
	if err != nil {
		return nil, fmt.Errorf("remote folder create failed for %q: %w", name, err)
	}

	externalID := record.ID
	if len(saved) > 0 {
		externalID = saved[0].ID
	}

	folder := models.NewFolder(account.ID, name)
	folder.AssignExternalID(externalID)
	if err := p.folderRepo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to persist folder %q: %w", name, err)
	}
	p.resolver.RegisterFolder(folder)

	p.logger.Info("Folder created", "name", name, "external_id", externalID)
	return folder, nil
}

// RenameFolder renames a folder, remotely then locally.
func (p *FeedCreationPipeline) RenameFolder(ctx context.Context, folder *models.Folder, newName string) error {
	if folder.ExternalID != nil {
		record := &models.RemoteRecord{
			ID:   *folder.ExternalID,
			Zone: models.ZoneAccount,
			Type: models.RecordTypeFolder,
			Fields: map[string]any{
				models.FieldName: newName,
			},
		}
		if _, err := p.zoneClient.Push(ctx, models.ZoneAccount, []models.RecordMutation{models.SaveMutation(record)}); err != nil {
			return fmt.Errorf("remote folder rename failed: %w", err)
		}
	}

	folder.Name = newName
	if err := p.folderRepo.Update(ctx, folder); err != nil {
		return fmt.Errorf("failed to persist folder rename: %w", err)
	}
	return nil
}

// RemoveFolder removes a folder. Its feeds move to the account root,
// remotely in one batch and then locally, before the folder record is
// deleted.
func (p *FeedCreationPipeline) RemoveFolder(ctx context.Context, folder *models.Folder) error {
	feeds, err := p.feedRepo.GetByFolder(ctx, folder.ID)
	if err != nil {
		return fmt.Errorf("failed to load folder feeds: %w", err)
	}

	var mutations []models.RecordMutation
	for _, feed := range feeds {
		if feed.ExternalID == nil {
			continue
		}
		record := &models.RemoteRecord{
			ID:     *feed.ExternalID,
			Zone:   models.ZoneAccount,
			Type:   models.RecordTypeFeed,
			Fields: feedRecordFields(feed.URL, feed.Name, feed.EditedName, nil),
		}
		mutations = append(mutations, models.SaveMutation(record))
	}
	if folder.ExternalID != nil {
		mutations = append(mutations, models.DeleteMutation(*folder.ExternalID, models.RecordTypeFolder))
	}

	if len(mutations) > 0 {
		if _, err := p.zoneClient.Push(ctx, models.ZoneAccount, mutations); err != nil {
			return fmt.Errorf("remote folder remove failed: %w", err)
		}
	}

	for _, feed := range feeds {
		feed.FolderID = nil
		if err := p.feedRepo.Update(ctx, feed); err != nil {
			return fmt.Errorf("failed to move feed %s to root: %w", feed.ID, err)
		}
	}

	if folder.ExternalID != nil {
		p.resolver.InvalidateFolder(*folder.ExternalID)
	}
	if err := p.folderRepo.Delete(ctx, folder.ID); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	p.logger.Info("Folder removed", "folder_id", folder.ID, "feeds_moved", len(feeds))
	return nil
}

// RestoreFolder re-creates a folder and its feeds. Progress grows by
// 1+N units. Per-feed failures are isolated and logged; the folder
// restore itself still succeeds.
func (p *FeedCreationPipeline) RestoreFolder(ctx context.Context, account *models.Account, folderName string, feeds []*models.Feed) (*models.Folder, error) {
	ticker := p.growStages(1 + len(feeds))
	defer ticker.finish()

	folder, err := p.CreateFolder(ctx, account, folderName)
	if err != nil {
		return nil, err
	}
	ticker.tick()

	for _, feed := range feeds {
		restored := *feed
		restored.FolderID = &folder.ID
		if err := p.RestoreFeed(ctx, account, &restored); err != nil {
			p.logger.Warn("Feed restore failed, folder restore continues",
				"url", feed.URL,
				"error", err)
		}
		ticker.tick()
	}

	return folder, nil
}

// NormalizedFeed is one feed in a normalized import, as produced by an
// upstream OPML parser.
type NormalizedFeed struct {
	URL  string
	Name string
}

// NormalizedFolder is one container in a normalized import.
type NormalizedFolder struct {
	Name  string
	Feeds []NormalizedFeed
}

// NormalizedImport is the parsed, flattened form of a subscription
// document. OPML parsing itself happens upstream.
type NormalizedImport struct {
	Feeds   []NormalizedFeed
	Folders []NormalizedFolder
}

// ImportResult summarizes one normalized import run.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ImportNormalized subscribes to every feed in a normalized import.
// Feeds already subscribed are skipped; other per-feed failures are
// isolated and counted.
func (p *FeedCreationPipeline) ImportNormalized(ctx context.Context, account *models.Account, doc NormalizedImport) (*ImportResult, error) {
	result := &ImportResult{}

	importOne := func(url string, folder *models.Folder) {
		if _, err := p.CreateFeed(ctx, account, url, folder); err != nil {
			if errors.Is(err, ErrAlreadySubscribed) {
				result.Skipped++
				return
			}
			p.logger.Warn("Import of feed failed", "url", url, "error", err)
			result.Failed++
			return
		}
		result.Created++
	}

	for _, feed := range doc.Feeds {
		importOne(feed.URL, nil)
	}

	for _, nf := range doc.Folders {
		folder, err := p.CreateFolder(ctx, account, nf.Name)
		if err != nil {
			p.logger.Warn("Import of folder failed", "name", nf.Name, "error", err)
			result.Failed += len(nf.Feeds)
			continue
		}
		for _, feed := range nf.Feeds {
			importOne(feed.URL, folder)
		}
	}

	p.logger.Info("Normalized import finished",
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}

// pushFeedRecord saves the feed's current record state to the account zone.
func (p *FeedCreationPipeline) pushFeedRecord(ctx context.Context, feed *models.Feed, editedName string, folderID *uuid.UUID) error {
	if feed.ExternalID == nil {
		return fmt.Errorf("feed %s has no remote identity yet", feed.ID)
	}

	var folder *models.Folder
	if folderID != nil {
		found, err := p.folderRepo.FindByID(ctx, *folderID)
		if err != nil {
			return fmt.Errorf("failed to load target folder: %w", err)
		}
		folder = found
	}

	record := &models.RemoteRecord{
		ID:     *feed.ExternalID,
		Zone:   models.ZoneAccount,
		Type:   models.RecordTypeFeed,
		Fields: feedRecordFields(feed.URL, feed.Name, editedName, folder),
	}

	if _, err := p.zoneClient.Push(ctx, models.ZoneAccount, []models.RecordMutation{models.SaveMutation(record)}); err != nil {
		return fmt.Errorf("remote feed update failed: %w", err)
	}
	return nil
}

func feedRecordFields(url, name, editedName string, folder *models.Folder) map[string]any {
	fields := map[string]any{
		models.FieldURL:  url,
		models.FieldName: name,
	}
	if editedName != "" {
		fields[models.FieldEditedName] = editedName
	}
	if folder != nil && folder.ExternalID != nil {
		fields[models.FieldFolderExternalID] = *folder.ExternalID
	}
	return fields
}

// stageTicker tracks progress units granted up front for a pipeline
// run, completing whatever remains when the run exits early.
type stageTicker struct {
	progress  *ProgressTracker
	remaining int
}

func (p *FeedCreationPipeline) growStages(n int) *stageTicker {
	p.progress.Grow(n)
	return &stageTicker{progress: p.progress, remaining: n}
}

func (t *stageTicker) tick() {
	if t.remaining > 0 {
		t.progress.CompleteOne()
		t.remaining--
	}
}

// finish completes any units a failed stage left outstanding so the
// tracker always returns to idle.
func (t *stageTicker) finish() {
	for t.remaining > 0 {
		t.progress.CompleteOne()
		t.remaining--
	}
}
