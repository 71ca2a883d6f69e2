// ABOUTME: This file defines pending status mutations awaiting delivery to the remote store
// ABOUTME: A sync status is unique per (articleID, key) and survives failed pushes for retry

package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusKey names one togglable article status.
type StatusKey string

const (
	StatusKeyRead    StatusKey = "read"
	StatusKeyStarred StatusKey = "starred"
)

// ValidStatusKey reports whether key is one this core understands.
func ValidStatusKey(key StatusKey) bool {
	return key == StatusKeyRead || key == StatusKeyStarred
}

// SyncStatus represents one pending local status mutation not yet
// acknowledged by the remote store. Uniqueness is (ArticleID, Key);
// enqueueing the same pair again overwrites the flag.
type SyncStatus struct {
	ArticleID uuid.UUID `json:"article_id" db:"article_id"`
	Key       StatusKey `json:"status_key" db:"status_key"`
	Flag      bool      `json:"flag" db:"flag"`
	Selected  bool      `json:"selected" db:"selected"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewSyncStatus creates a pending status mutation.
func NewSyncStatus(articleID uuid.UUID, key StatusKey, flag bool) *SyncStatus {
	return &SyncStatus{
		ArticleID: articleID,
		Key:       key,
		Flag:      flag,
		CreatedAt: time.Now(),
	}
}
