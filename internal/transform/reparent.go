package transform

import (
	"fmt"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/store"
)

// ChildTables lists the tables whose records reference the given table
// through parent_id. Swapping a parent's temporary id must visit every
// one of them.
func ChildTables(parent store.Table) []store.Table {
	switch parent {
	case store.TableAssessments:
		return []store.Table{store.TableResponses, store.TableSubmissions}
	case store.TableReports:
		return []store.Table{store.TableRecommendations}
	case store.TableOrganizations:
		return []store.Table{store.TableOrganizationMembers, store.TableInvitations}
	default:
		return nil
	}
}

// Reparent returns a copy of a child record pointing at a new parent
// id, with the payload's own reference and the derived natural key
// rewritten to match. Sync attributes and the idempotency key are
// preserved; the record stays whatever it was, pending or synced.
func Reparent(table store.Table, rec *store.Record, parentID string) (*store.Record, error) {
	out := *rec
	out.ParentID = parentID

	switch table {
	case store.TableResponses:
		var resp entity.Response
		if err := decode(rec, &resp); err != nil {
			return nil, err
		}
		resp.AssessmentID = parentID
		out.NaturalKey = resp.NaturalKey()
		return encodeInto(&out, &resp)

	case store.TableSubmissions:
		var sub entity.Submission
		if err := decode(rec, &sub); err != nil {
			return nil, err
		}
		sub.AssessmentID = parentID
		sub.Assessment.ID = parentID
		for i := range sub.Responses {
			sub.Responses[i].AssessmentID = parentID
		}
		return encodeInto(&out, &sub)

	case store.TableRecommendations:
		var rc entity.Recommendation
		if err := decode(rec, &rc); err != nil {
			return nil, err
		}
		rc.ReportID = parentID
		return encodeInto(&out, &rc)

	case store.TableOrganizationMembers:
		var m entity.OrganizationMember
		if err := decode(rec, &m); err != nil {
			return nil, err
		}
		m.OrganizationID = parentID
		out.NaturalKey = m.NaturalKey()
		return encodeInto(&out, &m)

	case store.TableInvitations:
		var inv entity.Invitation
		if err := decode(rec, &inv); err != nil {
			return nil, err
		}
		inv.OrganizationID = parentID
		out.NaturalKey = inv.NaturalKey()
		return encodeInto(&out, &inv)

	default:
		return nil, fmt.Errorf("table %s has no parent reference", table)
	}
}
