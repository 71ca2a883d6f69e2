// ABOUTME: This file defines the record payloads exchanged with the remote zone store
// ABOUTME: Record IDs double as the externalIDs assigned to local feeds and folders

package models

import "time"

// RecordType names the kind of record stored in a zone.
type RecordType string

const (
	RecordTypeAccount       RecordType = "account"
	RecordTypeFeed          RecordType = "feed"
	RecordTypeFolder        RecordType = "folder"
	RecordTypeArticleStatus RecordType = "article_status"
)

// Well-known record field names.
const (
	FieldURL              = "url"
	FieldName             = "name"
	FieldEditedName       = "edited_name"
	FieldHomePageURL      = "home_page_url"
	FieldFolderExternalID = "folder_external_id"
	FieldFeedExternalID   = "feed_external_id"
	FieldUniqueID         = "unique_id"
	FieldRead             = "read"
	FieldStarred          = "starred"
)

// RemoteRecord is one record held by the remote store. ID is the
// record name inside its zone and becomes the externalID of the local
// entity it mirrors.
type RemoteRecord struct {
	ID         string         `json:"id"`
	Zone       Zone           `json:"zone"`
	Type       RecordType     `json:"type"`
	Fields     map[string]any `json:"fields,omitempty"`
	ModifiedAt time.Time      `json:"modified_at,omitempty"`
}

// StringField returns the named field as a string, or "" when absent
// or of another type.
func (r *RemoteRecord) StringField(name string) string {
	if v, ok := r.Fields[name].(string); ok {
		return v
	}
	return ""
}

// BoolField returns the named field as a bool, false when absent.
func (r *RemoteRecord) BoolField(name string) bool {
	if v, ok := r.Fields[name].(bool); ok {
		return v
	}
	return false
}

// MutationOp distinguishes record saves from record deletes.
type MutationOp string

const (
	MutationOpSave   MutationOp = "save"
	MutationOpDelete MutationOp = "delete"
)

// RecordMutation is one element of a push batch.
type RecordMutation struct {
	Op       MutationOp    `json:"op"`
	Record   *RemoteRecord `json:"record,omitempty"`
	RecordID string        `json:"record_id,omitempty"`
	Type     RecordType    `json:"type"`
}

// SaveMutation builds a save mutation for record.
func SaveMutation(record *RemoteRecord) RecordMutation {
	return RecordMutation{Op: MutationOpSave, Record: record, RecordID: record.ID, Type: record.Type}
}

// DeleteMutation builds a delete mutation for the named record.
func DeleteMutation(recordID string, recordType RecordType) RecordMutation {
	return RecordMutation{Op: MutationOpDelete, RecordID: recordID, Type: recordType}
}

// DeletedRecord identifies a record removed from a zone since the last
// change token.
type DeletedRecord struct {
	ID   string     `json:"id"`
	Type RecordType `json:"type"`
}

// ZoneChangeBatch is the result of one incremental change fetch.
// ChangeToken is the cursor to persist once the batch is applied.
type ZoneChangeBatch struct {
	Zone           Zone            `json:"zone"`
	ChangedRecords []RemoteRecord  `json:"changed_records"`
	DeletedRecords []DeletedRecord `json:"deleted_records"`
	ChangeToken    string          `json:"change_token"`
}

// IsEmpty reports whether the batch carries no record changes.
func (b *ZoneChangeBatch) IsEmpty() bool {
	return len(b.ChangedRecords) == 0 && len(b.DeletedRecords) == 0
}

// NotificationPayload is the push-notification body delivered when a
// zone has new changes to fetch.
type NotificationPayload struct {
	Zones []Zone `json:"zones"`
}
