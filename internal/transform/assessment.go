package transform

import (
	"encoding/json"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/store"
)

// FromRemoteAssessment maps a server assessment to the locally persisted shape
func FromRemoteAssessment(a *entity.Assessment) (*store.Record, error) {
	applyAssessmentDefaults(a)
	return newRecord(a.ID, "", a.OrganizationID, a, store.SyncStatusSynced, false)
}

// LocalAssessment maps a locally created or modified assessment to a
// pending record awaiting reconciliation
func LocalAssessment(a *entity.Assessment) (*store.Record, error) {
	applyAssessmentDefaults(a)
	return newRecord(a.ID, "", a.OrganizationID, a, store.SyncStatusPending, true)
}

// ToAssessment decodes a stored record into an assessment
func ToAssessment(rec *store.Record) (*entity.Assessment, error) {
	var a entity.Assessment
	if err := decode(rec, &a); err != nil {
		return nil, err
	}
	applyAssessmentDefaults(&a)
	return &a, nil
}

// ToRemoteAssessment builds the assessment payload sent to the server,
// stripping the temporary identifier
func ToRemoteAssessment(rec *store.Record) (*entity.Assessment, error) {
	a, err := ToAssessment(rec)
	if err != nil {
		return nil, err
	}
	a.ID = stripTempID(a.ID)
	return a, nil
}

func applyAssessmentDefaults(a *entity.Assessment) {
	if a.Status == "" {
		a.Status = entity.AssessmentStatusDraft
	}
	if a.Language == "" {
		a.Language = "en"
	}
}

// FromRemoteResponse maps a server response to the locally persisted shape
func FromRemoteResponse(r *entity.Response) (*store.Record, error) {
	applyResponseDefaults(r)
	return newRecord(r.ID, r.NaturalKey(), r.AssessmentID, r, store.SyncStatusSynced, false)
}

// LocalResponse maps a locally created or modified response to a
// pending record awaiting reconciliation
func LocalResponse(r *entity.Response) (*store.Record, error) {
	applyResponseDefaults(r)
	return newRecord(r.ID, r.NaturalKey(), r.AssessmentID, r, store.SyncStatusPending, true)
}

// ToResponse decodes a stored record into a response
func ToResponse(rec *store.Record) (*entity.Response, error) {
	var r entity.Response
	if err := decode(rec, &r); err != nil {
		return nil, err
	}
	applyResponseDefaults(&r)
	return &r, nil
}

// ToRemoteResponse builds the response payload sent to the server,
// stripping the temporary identifier
func ToRemoteResponse(rec *store.Record) (*entity.Response, error) {
	r, err := ToResponse(rec)
	if err != nil {
		return nil, err
	}
	r.ID = stripTempID(r.ID)
	return r, nil
}

func applyResponseDefaults(r *entity.Response) {
	if len(r.Answer) == 0 {
		r.Answer = json.RawMessage(`{}`)
	}
	if r.Version == 0 {
		r.Version = 1
	}
}

// FromRemoteSubmission maps a server submission to the locally persisted shape
func FromRemoteSubmission(s *entity.Submission) (*store.Record, error) {
	applySubmissionDefaults(s)
	return newRecord(s.ID, "", s.AssessmentID, s, store.SyncStatusSynced, false)
}

// LocalSubmission maps a locally created submission snapshot to a
// pending record awaiting reconciliation
func LocalSubmission(s *entity.Submission) (*store.Record, error) {
	applySubmissionDefaults(s)
	return newRecord(s.ID, "", s.AssessmentID, s, store.SyncStatusPending, true)
}

// ToSubmission decodes a stored record into a submission
func ToSubmission(rec *store.Record) (*entity.Submission, error) {
	var s entity.Submission
	if err := decode(rec, &s); err != nil {
		return nil, err
	}
	applySubmissionDefaults(&s)
	return &s, nil
}

// ToRemoteSubmission builds the submission payload sent to the server,
// stripping temporary identifiers from the snapshot as well
func ToRemoteSubmission(rec *store.Record) (*entity.Submission, error) {
	s, err := ToSubmission(rec)
	if err != nil {
		return nil, err
	}
	s.ID = stripTempID(s.ID)
	s.AssessmentID = stripTempID(s.AssessmentID)
	for i := range s.Responses {
		s.Responses[i].ID = stripTempID(s.Responses[i].ID)
	}
	return s, nil
}

func applySubmissionDefaults(s *entity.Submission) {
	if s.ReviewStatus == "" {
		s.ReviewStatus = entity.ReviewStatusUnderReview
	}
	if s.Responses == nil {
		s.Responses = []entity.Response{}
	}
}
