// Package store implements the local persistence layer of the sync
// engine: one uniform table per entity type, each row holding the full
// domain payload as JSON plus the columns the engine filters on
package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/verdantlabs/verdant/internal/ulid"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable is returned when the local store cannot be queried.
	// Callers treat this as "offline fallback unavailable", not a crash.
	ErrStoreUnavailable = errors.New("local store unavailable")

	// ErrUnknownTable is returned for a table name outside the schema
	ErrUnknownTable = errors.New("unknown table")
)

// SyncStatus represents the reconciliation state of a local record
type SyncStatus string

// Reconciliation states
const (
	// SyncStatusPending means the record has not been confirmed by the remote service
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusSynced means the local and server copies are reconciled
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusFailed means the remote service permanently rejected the record
	SyncStatusFailed SyncStatus = "failed"
)

// Table identifies one entity table in the local store
type Table string

// Entity tables
const (
	TableQuestions           Table = "questions"
	TableCategories          Table = "categories"
	TableAssessments         Table = "assessments"
	TableResponses           Table = "responses"
	TableSubmissions         Table = "submissions"
	TableOrganizations       Table = "organizations"
	TableOrganizationMembers Table = "organization_members"
	TableReports             Table = "reports"
	TableRecommendations     Table = "recommendations"
	TableInvitations         Table = "invitations"
)

// Tables lists every entity table in sweep order
var Tables = []Table{
	TableOrganizations,
	TableOrganizationMembers,
	TableInvitations,
	TableCategories,
	TableQuestions,
	TableAssessments,
	TableResponses,
	TableSubmissions,
	TableReports,
	TableRecommendations,
}

// Valid reports whether t names a known entity table. Table names are
// interpolated into SQL, so every entry point checks this first.
func (t Table) Valid() bool {
	for _, known := range Tables {
		if t == known {
			return true
		}
	}
	return false
}

// Record is the uniform locally-persisted shape. Domain fields live in
// Payload; NaturalKey and ParentID are denormalized out of the payload
// so the sweep and range queries can filter without unmarshaling.
type Record struct {
	ID           string     `json:"id"`
	NaturalKey   string     `json:"natural_key,omitempty"`
	ParentID     string     `json:"parent_id,omitempty"`
	SyncStatus   SyncStatus `json:"sync_status"`
	LocalChanges bool       `json:"local_changes"`
	// IdempotencyKey is minted on the first push attempt of a locally
	// created record and reused on every retry, letting the server
	// deduplicate repeated creations.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	// Deleted marks a tombstone: the record was deleted locally and the
	// remote delete has not been confirmed yet. Tombstones stay pending
	// until the sweep completes the remote half and drops the row.
	Deleted   bool            `json:"deleted,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsTemp reports whether the record still carries a temporary identifier
func (r *Record) IsTemp() bool {
	return ulid.IsTempID(r.ID)
}

// IsPending reports whether the record awaits remote confirmation
func (r *Record) IsPending() bool {
	return r.SyncStatus == SyncStatusPending
}

// Unmarshal decodes the record payload into a domain value
func (r *Record) Unmarshal(v any) error {
	return json.Unmarshal(r.Payload, v)
}
