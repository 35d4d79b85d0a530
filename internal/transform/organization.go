package transform

import (
	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/store"
)

// FromRemoteOrganization maps a server organization to the locally persisted shape
func FromRemoteOrganization(o *entity.Organization) (*store.Record, error) {
	return newRecord(o.ID, "", "", o, store.SyncStatusSynced, false)
}

// LocalOrganization maps a locally modified organization to a pending
// record awaiting reconciliation
func LocalOrganization(o *entity.Organization) (*store.Record, error) {
	return newRecord(o.ID, "", "", o, store.SyncStatusPending, true)
}

// ToOrganization decodes a stored record into an organization
func ToOrganization(rec *store.Record) (*entity.Organization, error) {
	var o entity.Organization
	if err := decode(rec, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ToRemoteOrganization builds the organization payload sent to the server
func ToRemoteOrganization(rec *store.Record) (*entity.Organization, error) {
	o, err := ToOrganization(rec)
	if err != nil {
		return nil, err
	}
	o.ID = stripTempID(o.ID)
	return o, nil
}

// FromRemoteMember maps a server organization member to the locally persisted shape
func FromRemoteMember(m *entity.OrganizationMember) (*store.Record, error) {
	applyMemberDefaults(m)
	return newRecord(m.ID, m.NaturalKey(), m.OrganizationID, m, store.SyncStatusSynced, false)
}

// LocalMember maps a locally created or modified member to a pending
// record awaiting reconciliation
func LocalMember(m *entity.OrganizationMember) (*store.Record, error) {
	applyMemberDefaults(m)
	return newRecord(m.ID, m.NaturalKey(), m.OrganizationID, m, store.SyncStatusPending, true)
}

// ToMember decodes a stored record into an organization member
func ToMember(rec *store.Record) (*entity.OrganizationMember, error) {
	var m entity.OrganizationMember
	if err := decode(rec, &m); err != nil {
		return nil, err
	}
	applyMemberDefaults(&m)
	return &m, nil
}

// ToRemoteMember builds the member payload sent to the server
func ToRemoteMember(rec *store.Record) (*entity.OrganizationMember, error) {
	m, err := ToMember(rec)
	if err != nil {
		return nil, err
	}
	m.ID = stripTempID(m.ID)
	return m, nil
}

func applyMemberDefaults(m *entity.OrganizationMember) {
	if m.Role == "" {
		m.Role = entity.MemberRoleMember
	}
}

// FromRemoteInvitation maps a server invitation to the locally persisted shape
func FromRemoteInvitation(i *entity.Invitation) (*store.Record, error) {
	applyInvitationDefaults(i)
	return newRecord(i.ID, i.NaturalKey(), i.OrganizationID, i, store.SyncStatusSynced, false)
}

// LocalInvitation maps a locally created invitation to a pending record
// awaiting reconciliation
func LocalInvitation(i *entity.Invitation) (*store.Record, error) {
	applyInvitationDefaults(i)
	return newRecord(i.ID, i.NaturalKey(), i.OrganizationID, i, store.SyncStatusPending, true)
}

// ToInvitation decodes a stored record into an invitation
func ToInvitation(rec *store.Record) (*entity.Invitation, error) {
	var i entity.Invitation
	if err := decode(rec, &i); err != nil {
		return nil, err
	}
	applyInvitationDefaults(&i)
	return &i, nil
}

// ToRemoteInvitation builds the invitation payload sent to the server
func ToRemoteInvitation(rec *store.Record) (*entity.Invitation, error) {
	i, err := ToInvitation(rec)
	if err != nil {
		return nil, err
	}
	i.ID = stripTempID(i.ID)
	return i, nil
}

func applyInvitationDefaults(i *entity.Invitation) {
	if i.Role == "" {
		i.Role = entity.MemberRoleMember
	}
	if i.Status == "" {
		i.Status = entity.InvitationStatusPending
	}
}
