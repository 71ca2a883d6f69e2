// ABOUTME: Top-level sync state machine sequencing zone fetch, status exchange, refresh and apply
// ABOUTME: Owns the reentrancy gate, mode selection, error classification and invalidation teardown

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/HieuLsw/NetNewsWire/driver"
	"github.com/HieuLsw/NetNewsWire/models"
	"github.com/HieuLsw/NetNewsWire/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SyncState names the orchestrator's position in a refresh cycle.
type SyncState int

const (
	StateIdle SyncState = iota
	StateFetchingZoneChanges
	StatePushingStatus
	StatePullingStatus
	StateRefreshingContent
	StateApplyingChangeset
)

func (s SyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingZoneChanges:
		return "fetching_zone_changes"
	case StatePushingStatus:
		return "pushing_status"
	case StatePullingStatus:
		return "pulling_status"
	case StateRefreshingContent:
		return "refreshing_content"
	case StateApplyingChangeset:
		return "applying_changeset"
	default:
		return "unknown"
	}
}

// Stage counts grown up front per mode. Standard mode additionally
// grows by the feed count once it is known.
const (
	initialModeStages  = 4 // fetch, pull, push, bootstrap
	standardModeStages = 5 // fetch, push, pull, refresh, apply
)

// SyncOrchestrator drives refresh cycles for the account: fetching zone
// changes, exchanging statuses, refreshing content and applying the
// merged changeset, in both initial and standard modes.
type SyncOrchestrator struct {
	accountRepo   repository.AccountRepository
	feedRepo      repository.FeedRepository
	zoneStateRepo repository.ZoneSyncStateRepository
	zoneClient    RemoteZoneClient
	statusSync    *StatusSyncService
	router        *ContentRefreshRouter
	store         *LocalAccountStore
	classifier    *AccountErrorClassifier
	progress      *ProgressTracker
	logger        *slog.Logger

	mu        sync.Mutex
	state     SyncState
	suspended bool
}

// NewSyncOrchestrator creates the orchestrator.
func NewSyncOrchestrator(
	accountRepo repository.AccountRepository,
	feedRepo repository.FeedRepository,
	zoneStateRepo repository.ZoneSyncStateRepository,
	zoneClient RemoteZoneClient,
	statusSync *StatusSyncService,
	router *ContentRefreshRouter,
	store *LocalAccountStore,
	progress *ProgressTracker,
	logger *slog.Logger,
) *SyncOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncOrchestrator{
		accountRepo:   accountRepo,
		feedRepo:      feedRepo,
		zoneStateRepo: zoneStateRepo,
		zoneClient:    zoneClient,
		statusSync:    statusSync,
		router:        router,
		store:         store,
		classifier:    NewAccountErrorClassifier(),
		progress:      progress,
		logger:        logger,
	}
}

// State returns the current position in the cycle.
func (o *SyncOrchestrator) State() SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Suspend stops new refresh cycles from starting. An in-flight stage is
// allowed to finish; queued statuses are durable and survive the pause.
func (o *SyncOrchestrator) Suspend() {
	o.mu.Lock()
	o.suspended = true
	o.mu.Unlock()
	o.logger.Info("Sync suspended")
}

// Resume re-enables refresh cycles.
func (o *SyncOrchestrator) Resume() {
	o.mu.Lock()
	o.suspended = false
	o.mu.Unlock()
	o.logger.Info("Sync resumed")
}

// Suspended reports whether new cycles are paused.
func (o *SyncOrchestrator) Suspended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suspended
}

// Refresh runs one full cycle. A call arriving while a cycle is in
// flight, or while suspended, returns nil immediately: concurrent
// requests coalesce rather than queue. Standard mode is also skipped
// silently when the remote store is unreachable.
func (o *SyncOrchestrator) Refresh(ctx context.Context) error {
	if !o.beginCycle() {
		o.logger.Debug("Refresh request coalesced, cycle already in flight or suspended")
		return nil
	}

	account, err := o.accountRepo.FindDefault(ctx)
	if err != nil {
		return o.fail("load account", err, nil)
	}

	mode := account.RefreshMode()
	o.logger.Info("Starting refresh cycle", "mode", mode.String(), "account_id", account.ID)

	if mode == models.RefreshModeInitial {
		return o.runInitial(ctx, account)
	}

	if !o.zoneClient.Reachable(ctx) {
		o.logger.Info("Remote store unreachable, skipping cycle")
		o.finishIdle()
		return nil
	}

	return o.runStandard(ctx, account)
}

// runInitial performs the one-time bootstrap: fetch the account zone,
// pull statuses, push anything queued, then create the account record
// remotely and subscribe to change notifications.
func (o *SyncOrchestrator) runInitial(ctx context.Context, account *models.Account) error {
	o.progress.Reset(initialModeStages)

	o.setState(StateFetchingZoneChanges)
	if err := o.fetchAndApplyAccountZone(ctx, account); err != nil {
		return o.fail("zone change fetch", err, account)
	}
	o.progress.CompleteOne()

	o.setState(StatePullingStatus)
	if err := o.statusSync.PullStatuses(ctx); err != nil {
		return o.fail("status pull", err, account)
	}
	o.progress.CompleteOne()

	o.setState(StatePushingStatus)
	if err := o.statusSync.PushPending(ctx); err != nil {
		return o.fail("status push", err, account)
	}
	o.progress.CompleteOne()

	o.setState(StateApplyingChangeset)
	if err := o.bootstrapRemoteIdentity(ctx, account); err != nil {
		return o.fail("account bootstrap", err, account)
	}
	o.progress.CompleteOne()

	o.completeCycle(ctx, account)
	return nil
}

// runStandard performs the recurring cycle including the per-feed
// content refresh and the single changeset apply.
func (o *SyncOrchestrator) runStandard(ctx context.Context, account *models.Account) error {
	o.progress.Reset(standardModeStages)

	o.setState(StateFetchingZoneChanges)
	if err := o.fetchAndApplyAccountZone(ctx, account); err != nil {
		return o.fail("zone change fetch", err, account)
	}
	o.progress.CompleteOne()

	feeds, err := o.feedRepo.GetAllByAccount(ctx, account.ID)
	if err != nil {
		return o.fail("load feeds", err, account)
	}
	// The feed count is only known now; each feed is one more work unit.
	o.progress.Grow(len(feeds))

	o.setState(StatePushingStatus)
	if err := o.statusSync.PushPending(ctx); err != nil {
		return o.fail("status push", err, account)
	}
	o.progress.CompleteOne()

	o.setState(StatePullingStatus)
	if err := o.statusSync.PullStatuses(ctx); err != nil {
		return o.fail("status pull", err, account)
	}
	o.progress.CompleteOne()

	o.setState(StateRefreshingContent)
	merged, failures := o.router.Refresh(ctx, feeds)
	for _, failure := range failures {
		o.logger.Warn("Feed refresh failure isolated", "error", failure)
	}
	o.progress.CompleteOne()

	o.setState(StateApplyingChangeset)
	if err := o.store.ApplyChangeSet(ctx, merged); err != nil {
		return o.fail("changeset apply", err, account)
	}
	o.progress.CompleteOne()

	o.completeCycle(ctx, account)
	return nil
}

// HandleRemoteNotification reacts to a push notification by fetching
// and applying the changed zones. Zone fetches fan out; the join
// barrier gates completion.
func (o *SyncOrchestrator) HandleRemoteNotification(ctx context.Context, payload models.NotificationPayload) error {
	if len(payload.Zones) == 0 {
		return nil
	}
	if o.Suspended() {
		o.logger.Debug("Notification ignored while suspended")
		return nil
	}

	account, err := o.accountRepo.FindDefault(ctx)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, zone := range payload.Zones {
		switch zone {
		case models.ZoneAccount:
			g.Go(func() error {
				return o.fetchAndApplyAccountZone(gctx, account)
			})
		case models.ZoneArticles:
			g.Go(func() error {
				return o.statusSync.PullStatuses(gctx)
			})
		default:
			o.logger.Warn("Notification for unknown zone ignored", "zone", zone)
		}
	}

	if err := g.Wait(); err != nil {
		return o.classifyNotificationError(ctx, account, err)
	}

	o.logger.Info("Applied remote notification", "zones", len(payload.Zones))
	return nil
}

// fetchAndApplyAccountZone fetches the account zone's incremental
// changes, mirrors them locally and advances the change token. An
// expired token resets the cursor and replays the zone once.
func (o *SyncOrchestrator) fetchAndApplyAccountZone(ctx context.Context, account *models.Account) error {
	token := ""
	if state, err := o.zoneStateRepo.FindByZone(ctx, models.ZoneAccount); err != nil {
		return fmt.Errorf("failed to load account zone state: %w", err)
	} else if state != nil {
		token = state.ChangeToken
	}

	batch, err := o.zoneClient.FetchChanges(ctx, models.ZoneAccount, token)
	if err != nil {
		if errors.Is(err, driver.ErrChangeTokenExpired) && token != "" {
			if resetErr := o.zoneStateRepo.ResetChangeToken(ctx, models.ZoneAccount); resetErr != nil {
				return fmt.Errorf("failed to reset account change token: %w", resetErr)
			}
			batch, err = o.zoneClient.FetchChanges(ctx, models.ZoneAccount, "")
		}
		if err != nil {
			return fmt.Errorf("account zone fetch failed: %w", err)
		}
	}

	if err := o.store.ApplyZoneChangeBatch(ctx, account, batch); err != nil {
		return err
	}

	if err := o.zoneStateRepo.UpdateChangeToken(ctx, models.ZoneAccount, batch.ChangeToken); err != nil {
		return fmt.Errorf("failed to advance account change token: %w", err)
	}

	return nil
}

// bootstrapRemoteIdentity creates the account's own record in the
// account zone, assigns the returned externalID, and subscribes to
// change notifications for both zones. Runs once per account.
func (o *SyncOrchestrator) bootstrapRemoteIdentity(ctx context.Context, account *models.Account) error {
	record := &models.RemoteRecord{
		ID:   uuid.NewString(),
		Zone: models.ZoneAccount,
		Type: models.RecordTypeAccount,
		Fields: map[string]any{
			models.FieldName: account.Name,
		},
	}

	saved, err := o.zoneClient.Push(ctx, models.ZoneAccount, []models.RecordMutation{models.SaveMutation(record)})
	if err != nil {
		return fmt.Errorf("account record create failed: %w", err)
	}

	externalID := record.ID
	if len(saved) > 0 {
		externalID = saved[0].ID
	}
	account.AssignExternalID(externalID)

	for _, zone := range models.AllZones() {
		if err := o.zoneClient.SubscribeToChanges(ctx, zone); err != nil {
			return fmt.Errorf("subscription to zone %s failed: %w", zone, err)
		}
	}
	account.SubscribedToChanges = true

	if err := o.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to persist account identity: %w", err)
	}

	o.logger.Info("Account bootstrapped", "external_id", externalID)
	return nil
}

// beginCycle atomically checks the reentrancy and suspension gates and
// enters the cycle.
func (o *SyncOrchestrator) beginCycle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.suspended || o.state != StateIdle || !o.progress.IsIdle() {
		return false
	}
	o.state = StateFetchingZoneChanges
	return true
}

func (o *SyncOrchestrator) setState(state SyncState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

func (o *SyncOrchestrator) finishIdle() {
	o.progress.Clear()
	o.setState(StateIdle)
}

// completeCycle records the successful sync and returns to idle.
func (o *SyncOrchestrator) completeCycle(ctx context.Context, account *models.Account) {
	account.RecordSyncCompleted(time.Now())
	if err := o.accountRepo.Update(ctx, account); err != nil {
		o.logger.Error("Failed to record sync completion", "error", err)
	}

	o.finishIdle()
	o.logger.Info("Refresh cycle completed", "account_id", account.ID)
}

// fail classifies a stage error, performs invalidation teardown when
// demanded, restores the idle state and returns the classified error.
// No later stage runs after a failure.
func (o *SyncOrchestrator) fail(stage string, err error, account *models.Account) error {
	classified := o.classifier.Wrap(stage, err)

	o.logger.Error("Refresh stage failed",
		"stage", stage,
		"class", classified.Class.String(),
		"error", err)

	if classified.Class == ClassInvalidated && account != nil {
		if tdErr := o.store.RemoveAllForAccount(context.Background(), account); tdErr != nil {
			o.logger.Error("Account teardown failed", "error", tdErr)
		}
	}

	o.finishIdle()
	return classified
}

func (o *SyncOrchestrator) classifyNotificationError(ctx context.Context, account *models.Account, err error) error {
	classified := o.classifier.Wrap("notification handling", err)
	if classified.Class == ClassInvalidated {
		if tdErr := o.store.RemoveAllForAccount(ctx, account); tdErr != nil {
			o.logger.Error("Account teardown failed", "error", tdErr)
		}
	}
	return classified
}
