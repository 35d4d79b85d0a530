package facade

import (
	"context"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/transform"
)

// Reports exposes generated sustainability reports
type Reports struct {
	d *deps
}

// List returns all reports, local-first
func (f *Reports) List(ctx context.Context) *Query[[]*entity.Report] {
	return runQuery(ctx, func(ctx context.Context) ([]*entity.Report, error) {
		recs, err := f.d.ic.List(ctx, store.TableReports, func(ctx context.Context) ([]*store.Record, error) {
			remote, err := f.d.client.ListReports(ctx)
			if err != nil {
				return nil, err
			}
			return mapRecords(remote, transform.FromRemoteReport)
		})
		if err != nil {
			return nil, err
		}
		return mapEntities(recs, transform.ToReport)
	})
}

// Get returns one report, local-first
func (f *Reports) Get(ctx context.Context, id string) *Query[*entity.Report] {
	return runQuery(ctx, func(ctx context.Context) (*entity.Report, error) {
		rec, err := f.d.ic.Get(ctx, store.TableReports, id, func(ctx context.Context) (*store.Record, error) {
			r, err := f.d.client.GetReport(ctx, id)
			if err != nil {
				return nil, err
			}
			return transform.FromRemoteReport(r)
		})
		if err != nil {
			return nil, err
		}
		return transform.ToReport(rec)
	})
}

// Create requests a report for a completed assessment
func (f *Reports) Create(ctx context.Context, r *entity.Report, cb Callbacks[*entity.Report]) {
	r.ID = tempID(r.ID)

	optimistic, err := transform.LocalReport(r)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.create(ctx, store.TableReports, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteReport(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.CreateReport(ctx, payload, optimistic.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteReport(confirmed)
	})
	finishMutation(res, err, cb, transform.ToReport)
}

// Recommendations manages the action items attached to a report
type Recommendations struct {
	d *deps
}

// ListByReport returns the recommendations of one report, local-first
func (f *Recommendations) ListByReport(ctx context.Context, reportID string) *Query[[]*entity.Recommendation] {
	return runQuery(ctx, func(ctx context.Context) ([]*entity.Recommendation, error) {
		recs, err := f.d.ic.ListByParent(ctx, store.TableRecommendations, reportID, func(ctx context.Context) ([]*store.Record, error) {
			remote, err := f.d.client.ListRecommendations(ctx, reportID)
			if err != nil {
				return nil, err
			}
			return mapRecords(remote, transform.FromRemoteRecommendation)
		})
		if err != nil {
			return nil, err
		}
		return mapEntities(recs, transform.ToRecommendation)
	})
}

// Create adds a recommendation to a report
func (f *Recommendations) Create(ctx context.Context, r *entity.Recommendation, cb Callbacks[*entity.Recommendation]) {
	r.ID = tempID(r.ID)

	optimistic, err := transform.LocalRecommendation(r)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.create(ctx, store.TableRecommendations, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteRecommendation(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.CreateRecommendation(ctx, payload, optimistic.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteRecommendation(confirmed)
	})
	finishMutation(res, err, cb, transform.ToRecommendation)
}

// UpdateStatus moves a recommendation through its workflow
func (f *Recommendations) UpdateStatus(ctx context.Context, r *entity.Recommendation, status entity.RecommendationStatus, cb Callbacks[*entity.Recommendation]) {
	r.Status = status

	optimistic, err := transform.LocalRecommendation(r)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.mutate(ctx, interceptor.OpUpdate, store.TableRecommendations, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteRecommendation(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.UpdateRecommendation(ctx, payload)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteRecommendation(confirmed)
	})
	finishMutation(res, err, cb, transform.ToRecommendation)
}
