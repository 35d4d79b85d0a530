package facade

import (
	"context"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/transform"
)

// Organizations manages the caller's organization profile
type Organizations struct {
	d *deps
}

// Get returns one organization, local-first
func (f *Organizations) Get(ctx context.Context, id string) *Query[*entity.Organization] {
	return runQuery(ctx, func(ctx context.Context) (*entity.Organization, error) {
		rec, err := f.d.ic.Get(ctx, store.TableOrganizations, id, func(ctx context.Context) (*store.Record, error) {
			o, err := f.d.client.GetOrganization(ctx, id)
			if err != nil {
				return nil, err
			}
			return transform.FromRemoteOrganization(o)
		})
		if err != nil {
			return nil, err
		}
		return transform.ToOrganization(rec)
	})
}

// Update saves organization profile edits. Organizations are created
// server-side, so there is no Create here.
func (f *Organizations) Update(ctx context.Context, o *entity.Organization, cb Callbacks[*entity.Organization]) {
	optimistic, err := transform.LocalOrganization(o)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.mutate(ctx, interceptor.OpUpdate, store.TableOrganizations, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteOrganization(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.UpdateOrganization(ctx, payload)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteOrganization(confirmed)
	})
	finishMutation(res, err, cb, transform.ToOrganization)
}

// Members manages organization membership and invitations
type Members struct {
	d *deps
}

// List returns the members of an organization, local-first
func (f *Members) List(ctx context.Context, organizationID string) *Query[[]*entity.OrganizationMember] {
	return runQuery(ctx, func(ctx context.Context) ([]*entity.OrganizationMember, error) {
		recs, err := f.d.ic.List(ctx, store.TableOrganizationMembers, func(ctx context.Context) ([]*store.Record, error) {
			remote, err := f.d.client.ListMembers(ctx, organizationID)
			if err != nil {
				return nil, err
			}
			return mapRecords(remote, transform.FromRemoteMember)
		})
		if err != nil {
			return nil, err
		}
		return mapEntities(recs, transform.ToMember)
	})
}

// ListInvitations returns the pending invitations of an organization
func (f *Members) ListInvitations(ctx context.Context, organizationID string) *Query[[]*entity.Invitation] {
	return runQuery(ctx, func(ctx context.Context) ([]*entity.Invitation, error) {
		recs, err := f.d.ic.List(ctx, store.TableInvitations, func(ctx context.Context) ([]*store.Record, error) {
			remote, err := f.d.client.ListInvitations(ctx, organizationID)
			if err != nil {
				return nil, err
			}
			return mapRecords(remote, transform.FromRemoteInvitation)
		})
		if err != nil {
			return nil, err
		}
		return mapEntities(recs, transform.ToInvitation)
	})
}

// Invite records an invitation for an email address. The invitation is
// keyed by organization and lowercased email, so inviting the same
// address twice while offline converges to one record.
func (f *Members) Invite(ctx context.Context, inv *entity.Invitation, cb Callbacks[*entity.Invitation]) {
	inv.ID = tempID(inv.ID)

	optimistic, err := transform.LocalInvitation(inv)
	if err != nil {
		cb.failure(err)
		return
	}

	res, err := f.d.create(ctx, store.TableInvitations, optimistic, func(ctx context.Context) (*store.Record, error) {
		payload, err := transform.ToRemoteInvitation(optimistic)
		if err != nil {
			return nil, err
		}
		confirmed, err := f.d.client.CreateInvitation(ctx, payload, optimistic.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return transform.FromRemoteInvitation(confirmed)
	})
	finishMutation(res, err, cb, transform.ToInvitation)
}

// Remove deletes a member from the organization
func (f *Members) Remove(ctx context.Context, m *entity.OrganizationMember, cb Callbacks[*entity.OrganizationMember]) {
	target, err := transform.LocalMember(m)
	if err != nil {
		cb.failure(err)
		return
	}

	_, err = f.d.mutate(ctx, interceptor.OpDelete, store.TableOrganizationMembers, target, func(ctx context.Context) (*store.Record, error) {
		return nil, f.d.client.DeleteMember(ctx, m.ID)
	})
	if err != nil {
		cb.failure(err)
		return
	}
	cb.success(m)
}

// Revoke withdraws a pending invitation
func (f *Members) Revoke(ctx context.Context, inv *entity.Invitation, cb Callbacks[*entity.Invitation]) {
	target, err := transform.LocalInvitation(inv)
	if err != nil {
		cb.failure(err)
		return
	}

	_, err = f.d.mutate(ctx, interceptor.OpDelete, store.TableInvitations, target, func(ctx context.Context) (*store.Record, error) {
		return nil, f.d.client.DeleteInvitation(ctx, inv.ID)
	})
	if err != nil {
		cb.failure(err)
		return
	}
	cb.success(inv)
}
