// ABOUTME: This file defines the account model whose remote identity gates sync modes
// ABOUTME: An account without an externalID has never completed an initial sync

package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents the feed-reading account reconciled against the
// remote record store. ExternalID is assigned by the first successful
// initial sync; it selects between initial and standard refresh modes.
type Account struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	Name                string     `json:"name" db:"name"`
	ExternalID          *string    `json:"external_id,omitempty" db:"external_id"`
	SubscribedToChanges bool       `json:"subscribed_to_changes" db:"subscribed_to_changes"`
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty" db:"last_sync_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// NewAccount creates a local account with no remote identity yet.
func NewAccount(name string) *Account {
	return &Account{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now(),
	}
}

// HasRemoteIdentity reports whether the account has completed its
// initial sync against the remote store.
func (a *Account) HasRemoteIdentity() bool {
	return a.ExternalID != nil
}

// AssignExternalID records the remote identity. The first assignment
// wins; later calls are ignored.
func (a *Account) AssignExternalID(externalID string) bool {
	if a.ExternalID != nil {
		return false
	}
	a.ExternalID = &externalID
	return true
}

// RecordSyncCompleted stamps the last successful sync time.
func (a *Account) RecordSyncCompleted(at time.Time) {
	a.LastSyncAt = &at
}

// RefreshMode selects how a refresh cycle runs for this account.
func (a *Account) RefreshMode() RefreshMode {
	if a.HasRemoteIdentity() {
		return RefreshModeStandard
	}
	return RefreshModeInitial
}

// RefreshMode distinguishes the one-time bootstrap sync from the
// recurring full refresh cycle.
type RefreshMode int

const (
	// RefreshModeInitial runs once per account, before it has a remote
	// identity: zone fetch, status pull, status push, no content refresh.
	RefreshModeInitial RefreshMode = iota
	// RefreshModeStandard is the recurring cycle including the per-feed
	// content refresh and changeset apply.
	RefreshModeStandard
)

func (m RefreshMode) String() string {
	switch m {
	case RefreshModeInitial:
		return "initial"
	case RefreshModeStandard:
		return "standard"
	default:
		return "unknown"
	}
}
