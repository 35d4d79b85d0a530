package facade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/transform"
	"github.com/verdantlabs/verdant/internal/ulid"
)

// ErrNotDraft is returned when submitting an assessment that is not in
// the draft state
var ErrNotDraft = errors.New("assessment is not a draft")

// Assessments manages assessment lifecycles
type Assessments struct {
	d *deps
}

// List returns all assessments, local-first
func (f *Assessments) List(ctx context.Context) *Query[[]*entity.Assessment] {
	return runQuery(ctx, func(ctx context.Context) ([]*entity.Assessment, error) {
		recs, err := f.d.ic.List(ctx, store.TableAssessments, func(ctx context.Context) ([]*store.Record, error) {
			remote, err := f.d.client.ListAssessments(ctx)
			if err != nil {
				return nil, err
			}
			return mapRecords(remote, transform.FromRemoteAssessment)
		})
		if err != nil {
			return nil, err
		}
		return mapEntities(recs, transform.ToAssessment)
	})
}

// Get returns one assessment, local-first
func (f *Assessments) Get(ctx context.Context, id string) *Query[*entity.Assessment] {
	return runQuery(ctx, func(ctx context.Context) (*entity.Assessment, error) {
		rec, err := f.d.ic.Get(ctx, store.TableAssessments, id, func(ctx context.Context) (*store.Record, error) {
			a, err := f.d.client.GetAssessment(ctx, id)
			if err != nil {
				return nil, err
			}
			return transform.FromRemoteAssessment(a)
		})
		if err != nil {
			return nil, err
		}
		return transform.ToAssessment(rec)
	})
}

// Create starts a new assessment draft. At most one draft may exist
// locally at a time: any other local draft is removed first, so two
// rapid creations leave only the most recent one.
func (f *Assessments) Create(ctx context.Context, a *entity.Assessment, cb Callbacks[*entity.Assessment]) {
	a.ID = tempID(a.ID)
	a.Status = entity.AssessmentStatusDraft

	if err := f.dropOtherDrafts(ctx, a.ID); err != nil {
		cb.failure(err)
		return
	}

	optimistic, err := transform.LocalAssessment(a)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.create(ctx, store.TableAssessments, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteAssessment(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.CreateAssessment(ctx, payload, optimistic.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteAssessment(confirmed)
	})
	finishMutation(res, err, cb, transform.ToAssessment)
}

// dropOtherDrafts enforces the single-active-draft rule
func (f *Assessments) dropOtherDrafts(ctx context.Context, keepID string) error {
	recs, err := f.d.store.List(ctx, store.TableAssessments)
	if err != nil {
		return fmt.Errorf("listing local assessments: %w", err)
	}

	for _, rec := range recs {
		if rec.ID == keepID || rec.Deleted {
			continue
		}
		a, err := transform.ToAssessment(rec)
		if err != nil {
			return err
		}
		if !a.IsDraft() {
			continue
		}
		if err := f.d.store.Delete(ctx, store.TableAssessments, rec.ID); err != nil {
			return fmt.Errorf("removing superseded draft: %w", err)
		}
		f.d.logger.Debug("Removed superseded draft assessment", "id", rec.ID)
	}

	return nil
}

// Update saves draft edits
func (f *Assessments) Update(ctx context.Context, a *entity.Assessment, cb Callbacks[*entity.Assessment]) {
	optimistic, err := transform.LocalAssessment(a)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.mutate(ctx, interceptor.OpUpdate, store.TableAssessments, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteAssessment(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.UpdateAssessment(ctx, payload)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteAssessment(confirmed)
	})
	finishMutation(res, err, cb, transform.ToAssessment)
}

// Delete removes an assessment locally and remotely
func (f *Assessments) Delete(ctx context.Context, a *entity.Assessment, cb Callbacks[*entity.Assessment]) {
	target, err := transform.LocalAssessment(a)
	if err != nil {
		cb.failure(err)
		return
	}

	_, err = f.d.mutate(ctx, interceptor.OpDelete, store.TableAssessments, target, func(ctx context.Context) (*store.Record, error) {
		return nil, f.d.client.DeleteAssessment(ctx, a.ID)
	})
	if err != nil {
		cb.failure(err)
		return
	}
	cb.success(a)
}

// Submit snapshots the draft and its answered responses into a
// submission, hands the snapshot to the sync engine, and moves the
// assessment out of the draft state. The snapshot is immutable: later
// edits to the assessment or its responses cannot change what the
// reviewer sees.
func (f *Assessments) Submit(ctx context.Context, assessmentID string, cb Callbacks[*entity.Submission]) {
	rec, err := f.d.store.Get(ctx, store.TableAssessments, assessmentID)
	if err != nil {
		cb.failure(fmt.Errorf("loading assessment: %w", err))
		return
	}
	if rec.Deleted {
		cb.failure(fmt.Errorf("loading assessment: %w", store.ErrNotFound))
		return
	}

	a, err := transform.ToAssessment(rec)
	if err != nil {
		cb.failure(err)
		return
	}
	if !a.IsDraft() {
		cb.failure(fmt.Errorf("%w: %s", ErrNotDraft, a.Status))
		return
	}

	respRecs, err := f.d.store.ListByParent(ctx, store.TableResponses, assessmentID)
	if err != nil {
		cb.failure(fmt.Errorf("loading responses: %w", err))
		return
	}

	responses := make([]entity.Response, 0, len(respRecs))
	for _, rr := range respRecs {
		if rr.Deleted {
			continue
		}
		r, err := transform.ToResponse(rr)
		if err != nil {
			cb.failure(err)
			return
		}
		responses = append(responses, *r)
	}

	now := time.Now()
	a.Status = entity.AssessmentStatusSubmitted
	a.SubmittedAt = &now

	sub := &entity.Submission{
		ID:           ulid.TempID(),
		AssessmentID: a.ID,
		Assessment:   *a,
		Responses:    responses,
		ReviewStatus: entity.ReviewStatusUnderReview,
		SubmittedAt:  now,
	}

	optimistic, err := transform.LocalSubmission(sub)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.create(ctx, store.TableSubmissions, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteSubmission(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.CreateSubmission(ctx, payload, optimistic.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteSubmission(confirmed)
	})
	if err != nil {
		cb.failure(err)
		return
	}

	// The assessment leaves the draft state alongside the snapshot
	f.Update(ctx, a, Callbacks[*entity.Assessment]{
		OnError: func(err error) {
			f.d.logger.Warn("Assessment status update failed after submit", "id", a.ID, "error", err)
		},
	})

	finishMutation(res, nil, cb, transform.ToSubmission)
}

// Responses manages the answers within an assessment
type Responses struct {
	d *deps
}

// ListByAssessment returns the responses of one assessment, local-first
func (f *Responses) ListByAssessment(ctx context.Context, assessmentID string) *Query[[]*entity.Response] {
	return runQuery(ctx, func(ctx context.Context) ([]*entity.Response, error) {
		recs, err := f.d.ic.ListByParent(ctx, store.TableResponses, assessmentID, func(ctx context.Context) ([]*store.Record, error) {
			remote, err := f.d.client.ListResponses(ctx, assessmentID)
			if err != nil {
				return nil, err
			}
			return mapRecords(remote, transform.FromRemoteResponse)
		})
		if err != nil {
			return nil, err
		}
		return mapEntities(recs, transform.ToResponse)
	})
}

// Save creates or updates a response. A response is created the first
// time a question is answered and updated with a bumped version on
// every later change.
func (f *Responses) Save(ctx context.Context, r *entity.Response, cb Callbacks[*entity.Response]) {
	isNew := r.ID == ""
	r.ID = tempID(r.ID)
	if !isNew {
		r.Version++
	}

	optimistic, err := transform.LocalResponse(r)
	if err != nil {
		cb.failure(err)
		return
	}

	if isNew || ulid.IsTempID(r.ID) {
		res, err := f.d.create(ctx, store.TableResponses, optimistic, func(ctx context.Context) (*store.Record, error) {
			payload, err := transform.ToRemoteResponse(optimistic)
			if err != nil {
				return nil, err
			}
			confirmed, err := f.d.client.CreateResponse(ctx, payload, optimistic.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			return transform.FromRemoteResponse(confirmed)
		})
		finishMutation(res, err, cb, transform.ToResponse)
		return
	}

	res, err := f.d.mutate(ctx, interceptor.OpUpdate, store.TableResponses, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteResponse(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.UpdateResponse(ctx, payload)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteResponse(confirmed)
	})
	finishMutation(res, err, cb, transform.ToResponse)
}

// Delete removes a response locally and remotely
func (f *Responses) Delete(ctx context.Context, r *entity.Response, cb Callbacks[*entity.Response]) {
	target, err := transform.LocalResponse(r)
	if err != nil {
		cb.failure(err)
		return
	}

	_, err = f.d.mutate(ctx, interceptor.OpDelete, store.TableResponses, target, func(ctx context.Context) (*store.Record, error) {
		return nil, f.d.client.DeleteResponse(ctx, r.ID)
	})
	if err != nil {
		cb.failure(err)
		return
	}
	cb.success(r)
}
