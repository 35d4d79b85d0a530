package facade

import (
	"context"
	"time"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/transform"
)

// Submissions exposes submitted assessments and their review state.
// Submissions are created through Assessments.Submit.
type Submissions struct {
	d *deps
}

// List returns all submissions, local-first
func (f *Submissions) List(ctx context.Context) *Query[[]*entity.Submission] {
	return runQuery(ctx, func(ctx context.Context) ([]*entity.Submission, error) {
		recs, err := f.d.ic.List(ctx, store.TableSubmissions, func(ctx context.Context) ([]*store.Record, error) {
			remote, err := f.d.client.ListSubmissions(ctx)
			if err != nil {
				return nil, err
			}
			return mapRecords(remote, transform.FromRemoteSubmission)
		})
		if err != nil {
			return nil, err
		}
		return mapEntities(recs, transform.ToSubmission)
	})
}

// Get returns one submission, local-first
func (f *Submissions) Get(ctx context.Context, id string) *Query[*entity.Submission] {
	return runQuery(ctx, func(ctx context.Context) (*entity.Submission, error) {
		rec, err := f.d.ic.Get(ctx, store.TableSubmissions, id, func(ctx context.Context) (*store.Record, error) {
			s, err := f.d.client.GetSubmission(ctx, id)
			if err != nil {
				return nil, err
			}
			return transform.FromRemoteSubmission(s)
		})
		if err != nil {
			return nil, err
		}
		return transform.ToSubmission(rec)
	})
}

// Review records a review decision on a submission. The embedded
// assessment and response snapshot stays untouched.
func (f *Submissions) Review(ctx context.Context, s *entity.Submission, status entity.ReviewStatus, notes string, cb Callbacks[*entity.Submission]) {
	now := time.Now()
	s.ReviewStatus = status
	s.ReviewNotes = notes
	s.ReviewedAt = &now

	optimistic, err := transform.LocalSubmission(s)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.mutate(ctx, interceptor.OpUpdate, store.TableSubmissions, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteSubmission(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.UpdateSubmission(ctx, payload)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteSubmission(confirmed)
	})
	finishMutation(res, err, cb, transform.ToSubmission)
}
