package transform

import (
	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/store"
)

// FromRemoteReport maps a server report to the locally persisted shape
func FromRemoteReport(r *entity.Report) (*store.Record, error) {
	return newRecord(r.ID, "", r.OrganizationID, r, store.SyncStatusSynced, false)
}

// LocalReport maps a locally created report to a pending record
// awaiting reconciliation
func LocalReport(r *entity.Report) (*store.Record, error) {
	return newRecord(r.ID, "", r.OrganizationID, r, store.SyncStatusPending, true)
}

// ToReport decodes a stored record into a report
func ToReport(rec *store.Record) (*entity.Report, error) {
	var r entity.Report
	if err := decode(rec, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ToRemoteReport builds the report payload sent to the server
func ToRemoteReport(rec *store.Record) (*entity.Report, error) {
	r, err := ToReport(rec)
	if err != nil {
		return nil, err
	}
	r.ID = stripTempID(r.ID)
	return r, nil
}

// FromRemoteRecommendation maps a server recommendation to the locally persisted shape
func FromRemoteRecommendation(r *entity.Recommendation) (*store.Record, error) {
	applyRecommendationDefaults(r)
	return newRecord(r.ID, "", r.ReportID, r, store.SyncStatusSynced, false)
}

// LocalRecommendation maps a locally created or modified recommendation
// to a pending record awaiting reconciliation
func LocalRecommendation(r *entity.Recommendation) (*store.Record, error) {
	applyRecommendationDefaults(r)
	return newRecord(r.ID, "", r.ReportID, r, store.SyncStatusPending, true)
}

// ToRecommendation decodes a stored record into a recommendation
func ToRecommendation(rec *store.Record) (*entity.Recommendation, error) {
	var r entity.Recommendation
	if err := decode(rec, &r); err != nil {
		return nil, err
	}
	applyRecommendationDefaults(&r)
	return &r, nil
}

// ToRemoteRecommendation builds the recommendation payload sent to the server
func ToRemoteRecommendation(rec *store.Record) (*entity.Recommendation, error) {
	r, err := ToRecommendation(rec)
	if err != nil {
		return nil, err
	}
	r.ID = stripTempID(r.ID)
	return r, nil
}

func applyRecommendationDefaults(r *entity.Recommendation) {
	if r.Status == "" {
		r.Status = entity.RecommendationStatusTodo
	}
}
