// ABOUTME: Routes a refresh batch between per-URL content providers and the generic engine
// ABOUTME: Fans out, isolates per-feed failures, merges every changeset into one

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HieuLsw/NetNewsWire/driver"
	"github.com/HieuLsw/NetNewsWire/models"

	"golang.org/x/sync/errgroup"
)

const providerRefreshConcurrency = 5

// ContentRefreshRouter partitions feeds into provider-handled and
// generic-engine-handled subsets, refreshes both, and merges the
// results into a single changeset. A feed's failure never fails the
// batch; failures surface only through the diagnostics slice.
type ContentRefreshRouter struct {
	registry *ProviderRegistry
	engine   FeedEngine
	builder  driver.ChangeSetBuilder
	progress *ProgressTracker
	logger   *slog.Logger
}

// NewContentRefreshRouter creates the router.
func NewContentRefreshRouter(
	registry *ProviderRegistry,
	engine FeedEngine,
	builder driver.ChangeSetBuilder,
	progress *ProgressTracker,
	logger *slog.Logger,
) *ContentRefreshRouter {
	if logger == nil {
		logger = slog.Default()
	}

	return &ContentRefreshRouter{
		registry: registry,
		engine:   engine,
		builder:  builder,
		progress: progress,
		logger:   logger,
	}
}

// Refresh refreshes every feed and returns the merged changeset plus
// per-feed diagnostics. Provider feeds fan out with bounded
// concurrency; the generic subset goes to the engine in one call.
// Merging and progress ticks happen on the calling goroutine after the
// join, so workers never touch shared state.
func (r *ContentRefreshRouter) Refresh(ctx context.Context, feeds []*models.Feed) (*models.ArticleChangeSet, []error) {
	merged := models.NewArticleChangeSet()
	if len(feeds) == 0 {
		return merged, nil
	}

	providerFeeds, providers, genericFeeds := r.partition(feeds)

	r.logger.Info("Refreshing feeds",
		"total", len(feeds),
		"provider", len(providerFeeds),
		"generic", len(genericFeeds))

	providerItems := make([][]models.ParsedItem, len(providerFeeds))
	providerSucceeded := make([]bool, len(providerFeeds))

	var mu sync.Mutex
	var failures []error

	var genericSet *models.ArticleChangeSet
	var genericFailures []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(providerRefreshConcurrency + 1)

	for i, feed := range providerFeeds {
		g.Go(func() error {
			items, err := providers[i].Refresh(gctx, feed)
			if err != nil {
				r.logger.Warn("Provider refresh failed",
					"feed_id", feed.ID,
					"url", feed.URL,
					"error", err)
				mu.Lock()
				failures = append(failures, fmt.Errorf("feed %s: %w", feed.URL, err))
				mu.Unlock()
				return nil // non-fatal
			}
			providerItems[i] = items
			providerSucceeded[i] = true
			return nil
		})
	}

	if len(genericFeeds) > 0 {
		g.Go(func() error {
			genericSet, genericFailures = r.engine.Refresh(gctx, genericFeeds)
			return nil
		})
	}

	// Workers only return nil; Wait is the join barrier.
	_ = g.Wait()

	// A successful provider refresh with no items still goes through
	// changeset construction so vanished articles classify as deleted.
	for i, feed := range providerFeeds {
		if providerSucceeded[i] {
			changes, err := r.builder.BuildChangeSet(ctx, feed, providerItems[i])
			if err != nil {
				r.logger.Warn("Changeset build failed",
					"feed_id", feed.ID,
					"url", feed.URL,
					"error", err)
				failures = append(failures, fmt.Errorf("feed %s: %w", feed.URL, err))
			} else {
				merged.Merge(changes)
			}
		}
		r.progress.CompleteOne()
	}

	merged.Merge(genericSet)
	failures = append(failures, genericFailures...)
	for range genericFeeds {
		r.progress.CompleteOne()
	}

	newCount, updatedCount, deletedCount := merged.Counts()
	r.logger.Info("Refresh batch merged",
		"new", newCount,
		"updated", updatedCount,
		"deleted", deletedCount,
		"failures", len(failures))

	return merged, failures
}

// partition splits feeds by provider claim. The provider resolved for
// each feed is kept index-aligned so the fan-out does not repeat the
// lookup.
func (r *ContentRefreshRouter) partition(feeds []*models.Feed) (providerFeeds []*models.Feed, providers []ContentProvider, genericFeeds []*models.Feed) {
	for _, feed := range feeds {
		if provider, ok := r.registry.Lookup(feed.URL); ok {
			providerFeeds = append(providerFeeds, feed)
			providers = append(providers, provider)
		} else {
			genericFeeds = append(genericFeeds, feed)
		}
	}
	return providerFeeds, providers, genericFeeds
}
