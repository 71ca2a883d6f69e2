// ABOUTME: Wire payloads exchanged with the remote record store's zone API
// ABOUTME: JSON envelopes only; domain semantics live in the models package

package driver

import "github.com/HieuLsw/NetNewsWire/models"

// changesRequest asks a zone for the records changed since a token.
// An empty token requests the zone's full change history.
type changesRequest struct {
	ChangeToken string `json:"change_token,omitempty"`
}

// changesResponse is one incremental change batch for a zone.
type changesResponse struct {
	ChangedRecords []models.RemoteRecord  `json:"changed_records"`
	DeletedRecords []models.DeletedRecord `json:"deleted_records"`
	ChangeToken    string                 `json:"change_token"`
}

// pushRequest carries a batch of record mutations for one zone.
type pushRequest struct {
	Mutations []models.RecordMutation `json:"mutations"`
}

// pushResponse lists the records the store accepted, with the record
// IDs it assigned to newly created ones.
type pushResponse struct {
	SavedRecords []models.RemoteRecord `json:"saved_records"`
}

// subscribeRequest registers this service for change notifications on a zone.
type subscribeRequest struct {
	Zone models.Zone `json:"zone"`
}

// storeErrorResponse is the error envelope the record store returns on
// non-2xx statuses.
type storeErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Error codes the record store returns in storeErrorResponse.Code.
const (
	errCodeZoneNotFound       = "zone_not_found"
	errCodeZoneDeleted        = "zone_deleted"
	errCodeChangeTokenExpired = "change_token_expired"
	errCodeRecordNotFound     = "record_not_found"
	errCodeConflict           = "conflict"
)
