// ABOUTME: This file defines domain models for feeds and folders owned by an account
// ABOUTME: Feeds acquire a remote externalID exactly once, on first successful remote create

package models

import (
	"time"

	"github.com/google/uuid"
)

// Feed represents a subscribed feed belonging to an account.
// ExternalID is nil until the remote record for the feed has been
// created; it is assigned exactly once and never reassigned.
type Feed struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	AccountID   uuid.UUID  `json:"account_id" db:"account_id"`
	FolderID    *uuid.UUID `json:"folder_id,omitempty" db:"folder_id"`
	ExternalID  *string    `json:"external_id,omitempty" db:"external_id"`
	URL         string     `json:"url" db:"url"`
	HomePageURL string     `json:"home_page_url,omitempty" db:"home_page_url"`
	Name        string     `json:"name" db:"name"`
	EditedName  string     `json:"edited_name,omitempty" db:"edited_name"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Folder represents a container of feeds inside an account.
type Folder struct {
	ID         uuid.UUID `json:"id" db:"id"`
	AccountID  uuid.UUID `json:"account_id" db:"account_id"`
	ExternalID *string   `json:"external_id,omitempty" db:"external_id"`
	Name       string    `json:"name" db:"name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// NewFeed creates a local feed that has not been pushed to the remote store yet.
func NewFeed(accountID uuid.UUID, folderID *uuid.UUID, url, name string) *Feed {
	now := time.Now()

	return &Feed{
		ID:        uuid.New(),
		AccountID: accountID,
		FolderID:  folderID,
		URL:       url,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewFolder creates a local folder that has not been pushed to the remote store yet.
func NewFolder(accountID uuid.UUID, name string) *Folder {
	now := time.Now()

	return &Folder{
		ID:        uuid.New(),
		AccountID: accountID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AssignExternalID records the remote identifier for this feed.
// It is a no-op when an externalID has already been assigned.
func (f *Feed) AssignExternalID(externalID string) bool {
	if f.ExternalID != nil {
		return false
	}
	f.ExternalID = &externalID
	f.UpdatedAt = time.Now()
	return true
}

// AssignExternalID records the remote identifier for this folder.
// It is a no-op when an externalID has already been assigned.
func (fo *Folder) AssignExternalID(externalID string) bool {
	if fo.ExternalID != nil {
		return false
	}
	fo.ExternalID = &externalID
	fo.UpdatedAt = time.Now()
	return true
}

// DisplayName returns the user-edited name when one is set, otherwise
// the name supplied by the feed itself.
func (f *Feed) DisplayName() string {
	if f.EditedName != "" {
		return f.EditedName
	}
	return f.Name
}

// InFolder reports whether the feed currently lives in the given folder.
func (f *Feed) InFolder(folderID uuid.UUID) bool {
	return f.FolderID != nil && *f.FolderID == folderID
}
