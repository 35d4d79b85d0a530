package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/remote"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/transform"
)

// ErrPushUnsupported is returned for tables without a remote push
// operation, e.g. the read-only question catalog
var ErrPushUnsupported = errors.New("no remote push operation for table")

// Pusher pushes one pending record to the remote service and returns
// the confirmed record in the locally persisted shape
type Pusher interface {
	Push(ctx context.Context, table store.Table, rec *store.Record) (*store.Record, error)
}

// RemotePusher implements Pusher over the HTTP client. Temporary
// records become creations carrying the record's idempotency key;
// pending real-id records become updates.
type RemotePusher struct {
	client *remote.Client
}

// NewRemotePusher creates a pusher backed by the remote client
func NewRemotePusher(client *remote.Client) *RemotePusher {
	return &RemotePusher{client: client}
}

// Push implements Pusher. Tombstones become remote deletes and return
// a nil record on success.
func (p *RemotePusher) Push(ctx context.Context, table store.Table, rec *store.Record) (*store.Record, error) {
	if rec.Deleted {
		return nil, p.delete(ctx, table, rec.ID)
	}

	switch table {
	case store.TableCategories:
		return p.pushCategory(ctx, rec)
	case store.TableAssessments:
		return p.pushAssessment(ctx, rec)
	case store.TableResponses:
		return p.pushResponse(ctx, rec)
	case store.TableSubmissions:
		return p.pushSubmission(ctx, rec)
	case store.TableOrganizations:
		return p.pushOrganization(ctx, rec)
	case store.TableOrganizationMembers:
		return p.pushMember(ctx, rec)
	case store.TableInvitations:
		return p.pushInvitation(ctx, rec)
	case store.TableReports:
		return p.pushReport(ctx, rec)
	case store.TableRecommendations:
		return p.pushRecommendation(ctx, rec)
	default:
		return nil, fmt.Errorf("%w: %s", ErrPushUnsupported, table)
	}
}

// delete completes the remote half of a queued delete
func (p *RemotePusher) delete(ctx context.Context, table store.Table, id string) error {
	switch table {
	case store.TableCategories:
		return p.client.DeleteCategory(ctx, id)
	case store.TableAssessments:
		return p.client.DeleteAssessment(ctx, id)
	case store.TableResponses:
		return p.client.DeleteResponse(ctx, id)
	case store.TableOrganizationMembers:
		return p.client.DeleteMember(ctx, id)
	case store.TableInvitations:
		return p.client.DeleteInvitation(ctx, id)
	default:
		return fmt.Errorf("%w: %s has no remote delete", ErrPushUnsupported, table)
	}
}

func (p *RemotePusher) pushCategory(ctx context.Context, rec *store.Record) (*store.Record, error) {
	c, err := transform.ToRemoteCategory(rec)
	if err != nil {
		return nil, err
	}

	var confirmed *entity.Category
	if rec.IsTemp() {
		confirmed, err = p.client.CreateCategory(ctx, c, rec.IdempotencyKey)
	} else {
		confirmed, err = p.client.UpdateCategory(ctx, c)
	}
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteCategory(confirmed)
}

func (p *RemotePusher) pushAssessment(ctx context.Context, rec *store.Record) (*store.Record, error) {
	a, err := transform.ToRemoteAssessment(rec)
	if err != nil {
		return nil, err
	}

	var confirmed *entity.Assessment
	if rec.IsTemp() {
		confirmed, err = p.client.CreateAssessment(ctx, a, rec.IdempotencyKey)
	} else {
		confirmed, err = p.client.UpdateAssessment(ctx, a)
	}
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteAssessment(confirmed)
}

func (p *RemotePusher) pushResponse(ctx context.Context, rec *store.Record) (*store.Record, error) {
	r, err := transform.ToRemoteResponse(rec)
	if err != nil {
		return nil, err
	}

	var confirmed *entity.Response
	if rec.IsTemp() {
		confirmed, err = p.client.CreateResponse(ctx, r, rec.IdempotencyKey)
	} else {
		confirmed, err = p.client.UpdateResponse(ctx, r)
	}
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteResponse(confirmed)
}

func (p *RemotePusher) pushSubmission(ctx context.Context, rec *store.Record) (*store.Record, error) {
	s, err := transform.ToRemoteSubmission(rec)
	if err != nil {
		return nil, err
	}

	var confirmed *entity.Submission
	if rec.IsTemp() {
		confirmed, err = p.client.CreateSubmission(ctx, s, rec.IdempotencyKey)
	} else {
		confirmed, err = p.client.UpdateSubmission(ctx, s)
	}
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteSubmission(confirmed)
}

func (p *RemotePusher) pushOrganization(ctx context.Context, rec *store.Record) (*store.Record, error) {
	o, err := transform.ToRemoteOrganization(rec)
	if err != nil {
		return nil, err
	}

	// Organizations are created server-side; only updates are pushed
	if rec.IsTemp() {
		return nil, fmt.Errorf("%w: organizations are update-only", ErrPushUnsupported)
	}

	confirmed, err := p.client.UpdateOrganization(ctx, o)
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteOrganization(confirmed)
}

func (p *RemotePusher) pushMember(ctx context.Context, rec *store.Record) (*store.Record, error) {
	m, err := transform.ToRemoteMember(rec)
	if err != nil {
		return nil, err
	}

	if !rec.IsTemp() {
		return nil, fmt.Errorf("%w: members are create-only", ErrPushUnsupported)
	}

	confirmed, err := p.client.CreateMember(ctx, m, rec.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteMember(confirmed)
}

func (p *RemotePusher) pushInvitation(ctx context.Context, rec *store.Record) (*store.Record, error) {
	i, err := transform.ToRemoteInvitation(rec)
	if err != nil {
		return nil, err
	}

	if !rec.IsTemp() {
		return nil, fmt.Errorf("%w: invitations are create-only", ErrPushUnsupported)
	}

	confirmed, err := p.client.CreateInvitation(ctx, i, rec.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteInvitation(confirmed)
}

func (p *RemotePusher) pushReport(ctx context.Context, rec *store.Record) (*store.Record, error) {
	r, err := transform.ToRemoteReport(rec)
	if err != nil {
		return nil, err
	}

	if !rec.IsTemp() {
		return nil, fmt.Errorf("%w: reports are create-only", ErrPushUnsupported)
	}

	confirmed, err := p.client.CreateReport(ctx, r, rec.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteReport(confirmed)
}

func (p *RemotePusher) pushRecommendation(ctx context.Context, rec *store.Record) (*store.Record, error) {
	r, err := transform.ToRemoteRecommendation(rec)
	if err != nil {
		return nil, err
	}

	var confirmed *entity.Recommendation
	if rec.IsTemp() {
		confirmed, err = p.client.CreateRecommendation(ctx, r, rec.IdempotencyKey)
	} else {
		confirmed, err = p.client.UpdateRecommendation(ctx, r)
	}
	if err != nil {
		return nil, err
	}
	return transform.FromRemoteRecommendation(confirmed)
}
