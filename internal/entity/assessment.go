package entity

import (
	"encoding/json"
	"time"
)

// AssessmentStatus represents the lifecycle state of an assessment
type AssessmentStatus string

// Assessment lifecycle states
const (
	AssessmentStatusDraft       AssessmentStatus = "draft"
	AssessmentStatusSubmitted   AssessmentStatus = "submitted"
	AssessmentStatusUnderReview AssessmentStatus = "under_review"
	AssessmentStatusCompleted   AssessmentStatus = "completed"
)

// Assessment is a sustainability assessment belonging to one organization.
// Organization name is denormalized so the assessment renders offline
// without a second lookup.
type Assessment struct {
	ID               string           `json:"id"`
	OrganizationID   string           `json:"organization_id"`
	OrganizationName string           `json:"organization_name"`
	TemplateID       string           `json:"template_id"`
	Language         string           `json:"language"`
	Status           AssessmentStatus `json:"status"`
	SubmittedAt      *time.Time       `json:"submitted_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// IsDraft reports whether the assessment is still editable
func (a *Assessment) IsDraft() bool {
	return a.Status == AssessmentStatusDraft
}

// IsTerminal reports whether the assessment lifecycle has ended
func (a *Assessment) IsTerminal() bool {
	return a.Status == AssessmentStatusCompleted
}

// Response is one answer within an assessment, referencing the question
// revision it answered. The answer body is opaque to the sync engine.
type Response struct {
	ID                 string          `json:"id"`
	AssessmentID       string          `json:"assessment_id"`
	QuestionRevisionID string          `json:"question_revision_id"`
	Answer             json.RawMessage `json:"answer"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NaturalKey identifies a response independently of its id namespace
func (r *Response) NaturalKey() string {
	return r.AssessmentID + "/" + r.QuestionRevisionID
}

// ReviewStatus represents the review state of a submission
type ReviewStatus string

// Submission review states
const (
	ReviewStatusUnderReview       ReviewStatus = "under_review"
	ReviewStatusApproved          ReviewStatus = "approved"
	ReviewStatusRejected          ReviewStatus = "rejected"
	ReviewStatusRevisionRequested ReviewStatus = "revision_requested"
)

// Submission is the durable record produced when an assessment is
// submitted. It embeds a snapshot of the assessment and its responses
// so later edits to either cannot alter what was reviewed.
type Submission struct {
	ID           string       `json:"id"`
	AssessmentID string       `json:"assessment_id"`
	Assessment   Assessment   `json:"assessment"`
	Responses    []Response   `json:"responses"`
	ReviewStatus ReviewStatus `json:"review_status"`
	ReviewNotes  string       `json:"review_notes,omitempty"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
