package facade

import (
	"context"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/transform"
)

// Questions reads the question catalog. The catalog is authored
// server-side, so this facade is read-only.
type Questions struct {
	d *deps
}

// List returns the question catalog, local-first
func (f *Questions) List(ctx context.Context) *Query[[]*entity.Question] {
	return runQuery(ctx, f.list)
}

func (f *Questions) list(ctx context.Context) ([]*entity.Question, error) {
	recs, err := f.d.ic.List(ctx, store.TableQuestions, func(ctx context.Context) ([]*store.Record, error) {
		remote, err := f.d.client.ListQuestions(ctx)
		if err != nil {
			return nil, err
		}
		return mapRecords(remote, transform.FromRemoteQuestion)
	})
	if err != nil {
		return nil, err
	}
	return mapEntities(recs, transform.ToQuestion)
}

// Get returns one question, local-first
func (f *Questions) Get(ctx context.Context, id string) *Query[*entity.Question] {
	return runQuery(ctx, func(ctx context.Context) (*entity.Question, error) {
		rec, err := f.d.ic.Get(ctx, store.TableQuestions, id, func(ctx context.Context) (*store.Record, error) {
			q, err := f.d.client.GetQuestion(ctx, id)
			if err != nil {
				return nil, err
			}
			return transform.FromRemoteQuestion(q)
		})
		if err != nil {
			return nil, err
		}
		return transform.ToQuestion(rec)
	})
}

// Categories manages assessment template categories
type Categories struct {
	d *deps
}

// List returns all categories, local-first
func (f *Categories) List(ctx context.Context) *Query[[]*entity.Category] {
	return runQuery(ctx, func(ctx context.Context) ([]*entity.Category, error) {
		recs, err := f.d.ic.List(ctx, store.TableCategories, func(ctx context.Context) ([]*store.Record, error) {
			remote, err := f.d.client.ListCategories(ctx)
			if err != nil {
				return nil, err
			}
			return mapRecords(remote, transform.FromRemoteCategory)
		})
		if err != nil {
			return nil, err
		}
		return mapEntities(recs, transform.ToCategory)
	})
}

// Create creates a category, optimistically local-first
func (f *Categories) Create(ctx context.Context, c *entity.Category, cb Callbacks[*entity.Category]) {
	c.ID = tempID(c.ID)

	optimistic, err := transform.LocalCategory(c)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.create(ctx, store.TableCategories, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteCategory(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.CreateCategory(ctx, payload, optimistic.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteCategory(confirmed)
	})
	finishMutation(res, err, cb, transform.ToCategory)
}

// Update updates a category
func (f *Categories) Update(ctx context.Context, c *entity.Category, cb Callbacks[*entity.Category]) {
	optimistic, err := transform.LocalCategory(c)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.mutate(ctx, interceptor.OpUpdate, store.TableCategories, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteCategory(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.UpdateCategory(ctx, payload)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteCategory(confirmed)
	})
	finishMutation(res, err, cb, transform.ToCategory)
}

// Delete removes a category locally and remotely
func (f *Categories) Delete(ctx context.Context, c *entity.Category, cb Callbacks[*entity.Category]) {
	target, err := transform.LocalCategory(c)
	if err != nil {
		cb.failure(err)
		return
	}

	_, err = f.d.mutate(ctx, interceptor.OpDelete, store.TableCategories, target, func(ctx context.Context) (*store.Record, error) {
		return nil, f.d.client.DeleteCategory(ctx, c.ID)
	})
	if err != nil {
		cb.failure(err)
		return
	}
	cb.success(c)
}
