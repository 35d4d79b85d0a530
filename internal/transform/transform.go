// Package transform maps between the remote-service entity shapes and
// the locally persisted record shape. All functions are pure: they
// inject or strip sync attributes, derive natural keys and parent ids,
// and fill documented defaults for absent optional fields so stored
// payloads never carry missing keys.
package transform

import (
	"encoding/json"
	"fmt"

	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/ulid"
)

// newRecord builds a store record around a marshaled domain value
func newRecord(id, naturalKey, parentID string, v any, status store.SyncStatus, localChanges bool) (*store.Record, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	return &store.Record{
		ID:           id,
		NaturalKey:   naturalKey,
		ParentID:     parentID,
		SyncStatus:   status,
		LocalChanges: localChanges,
		Payload:      payload,
	}, nil
}

// decode unmarshals a record payload into a domain value
func decode(rec *store.Record, v any) error {
	if err := json.Unmarshal(rec.Payload, v); err != nil {
		return fmt.Errorf("unmarshaling %s payload: %w", rec.ID, err)
	}
	return nil
}

// encodeInto replaces a record's payload with the marshaled domain
// value and returns the record
func encodeInto(rec *store.Record, v any) (*store.Record, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	rec.Payload = payload
	return rec, nil
}

// stripTempID blanks an identifier that must not reach the remote
// service as an entity key
func stripTempID(id string) string {
	if ulid.IsTempID(id) {
		return ""
	}
	return id
}
