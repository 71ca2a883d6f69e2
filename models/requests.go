// ABOUTME: Request and response types for the admin API handlers
package models

import "time"

// CreateFeedRequest asks the pipeline to subscribe to a URL.
type CreateFeedRequest struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	FolderID string `json:"folder_id,omitempty"`
}

// CreateFolderRequest asks for a new folder in the account.
type CreateFolderRequest struct {
	Name string `json:"name"`
}

// RenameRequest renames a feed or folder.
type RenameRequest struct {
	Name string `json:"name"`
}

// MoveFeedRequest moves a feed between containers. An empty FolderID
// targets the account root.
type MoveFeedRequest struct {
	FolderID string `json:"folder_id,omitempty"`
}

// MarkArticlesRequest flips a status flag on a set of articles.
type MarkArticlesRequest struct {
	ArticleIDs []string `json:"article_ids"`
	Key        string   `json:"status_key"`
	Flag       bool     `json:"flag"`
}

// SyncStatusResponse reports orchestrator state for the admin API.
type SyncStatusResponse struct {
	State           string     `json:"state"`
	Suspended       bool       `json:"suspended"`
	TotalTasks      int        `json:"total_tasks"`
	RemainingTasks  int        `json:"remaining_tasks"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	PendingStatuses int        `json:"pending_statuses"`
}

// AdminAPIResponse is the standard admin API envelope.
type AdminAPIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
