// ABOUTME: This file defines per-zone synchronization state for incremental change fetches
// ABOUTME: Change tokens are opaque cursors advanced only after a fetched batch is applied

package models

import (
	"time"

	"github.com/google/uuid"
)

// Zone names a remote, independently-synchronized partition of records.
type Zone string

const (
	// ZoneAccount holds feed and folder records plus account metadata.
	ZoneAccount Zone = "account"
	// ZoneArticles holds per-article status records.
	ZoneArticles Zone = "articles"
)

// AllZones lists every zone this core synchronizes, in fetch order.
func AllZones() []Zone {
	return []Zone{ZoneAccount, ZoneArticles}
}

// ValidZone reports whether zone is one this core synchronizes.
func ValidZone(zone Zone) bool {
	return zone == ZoneAccount || zone == ZoneArticles
}

// ZoneSyncState tracks the change token for one zone.
type ZoneSyncState struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Zone        Zone      `json:"zone" db:"zone"`
	ChangeToken string    `json:"change_token" db:"change_token"`
	LastSync    time.Time `json:"last_sync" db:"last_sync"`
}

// NewZoneSyncState creates sync state for a zone with no history yet.
func NewZoneSyncState(zone Zone, changeToken string) *ZoneSyncState {
	return &ZoneSyncState{
		ID:          uuid.New(),
		Zone:        zone,
		ChangeToken: changeToken,
		LastSync:    time.Now(),
	}
}

// UpdateChangeToken advances the cursor and stamps the sync time.
func (s *ZoneSyncState) UpdateChangeToken(token string) {
	s.ChangeToken = token
	s.LastSync = time.Now()
}

// ResetChangeToken clears the cursor so the next fetch starts from the
// beginning of the zone's change history.
func (s *ZoneSyncState) ResetChangeToken() {
	s.ChangeToken = ""
	s.LastSync = time.Now()
}
