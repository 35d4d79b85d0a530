package facade

import (
	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/ulid"
)

// tempID assigns a temporary identifier to a locally created entity
// that does not have one yet
func tempID(id string) string {
	if id == "" {
		return ulid.TempID()
	}
	return id
}

// mapRecords transforms a slice of remote entities into store records
func mapRecords[T any](items []T, fn func(T) (*store.Record, error)) ([]*store.Record, error) {
	out := make([]*store.Record, 0, len(items))
	for _, item := range items {
		rec, err := fn(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// mapEntities decodes a slice of store records into domain entities
func mapEntities[T any](recs []*store.Record, fn func(*store.Record) (T, error)) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := fn(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// finishMutation routes a mutation result into the caller's callbacks.
// Confirmed and queued outcomes both run the success path: a queued
// write is applied locally and will complete in the background.
// Rejection, storage failure, and retry exhaustion run the error path.
func finishMutation[T any](res *interceptor.Result, err error, cb Callbacks[T], decode func(*store.Record) (T, error)) {
	if err != nil {
		cb.failure(err)
		return
	}

	v, err := decode(res.Record)
	if err != nil {
		cb.failure(err)
		return
	}
	cb.success(v)
}
