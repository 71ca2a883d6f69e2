// ABOUTME: Service layer contracts for collaborators the orchestrator consumes
// ABOUTME: Remote zone client, pluggable content providers and the generic feed engine

//go:generate mockgen -source=interfaces.go -destination=../mocks/service_mock.go -package=mocks

package service

import (
	"context"

	"github.com/HieuLsw/NetNewsWire/models"
)

// RemoteZoneClient is the per-zone surface of the remote record store.
type RemoteZoneClient interface {
	// FetchChanges returns the records changed in a zone since changeToken.
	// An empty token fetches the zone's full change history.
	FetchChanges(ctx context.Context, zone models.Zone, changeToken string) (*models.ZoneChangeBatch, error)
	// Push delivers record mutations to a zone. Mutations are idempotent
	// per record ID; replaying a batch after a partial failure is safe.
	Push(ctx context.Context, zone models.Zone, mutations []models.RecordMutation) ([]models.RemoteRecord, error)
	SubscribeToChanges(ctx context.Context, zone models.Zone) error
	// Reachable probes the store. A standard refresh cycle is skipped
	// entirely when it reports false.
	Reachable(ctx context.Context) bool
}

// ProviderAbility grades how strongly a content provider claims a URL.
type ProviderAbility int

const (
	// AbilityNone: the provider cannot handle this URL.
	AbilityNone ProviderAbility = iota
	// AbilityAvailable: the provider can handle the URL if nothing
	// claims it more strongly.
	AbilityAvailable
	// AbilityOwner: the URL belongs to this provider; it wins outright.
	AbilityOwner
)

// ContentProvider is a pluggable per-URL handler that produces parsed
// articles without generic feed parsing.
type ContentProvider interface {
	Ability(url string) ProviderAbility
	// AssignName resolves the display name for a URL about to be subscribed.
	AssignName(ctx context.Context, url string) (string, error)
	// Refresh produces the current items for one provider-owned feed.
	Refresh(ctx context.Context, feed *models.Feed) ([]models.ParsedItem, error)
}

// FeedEngine is the generic discovery and refresh engine used for feeds
// no provider claims.
type FeedEngine interface {
	Find(ctx context.Context, url string) ([]models.FeedCandidate, error)
	Download(ctx context.Context, url string) (*models.ParsedFeed, error)
	// Refresh downloads a batch with internal concurrency and per-feed
	// isolation; failures come back as diagnostics, never as an error.
	Refresh(ctx context.Context, feeds []*models.Feed) (*models.ArticleChangeSet, []error)
}
