package entity

import (
	"time"
)

// Report summarizes the outcome of a reviewed assessment
type Report struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	AssessmentID   string    `json:"assessment_id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary,omitempty"`
	Score          float64   `json:"score"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RecommendationStatus represents the kanban state of a recommendation
type RecommendationStatus string

// Recommendation kanban states
const (
	RecommendationStatusTodo       RecommendationStatus = "todo"
	RecommendationStatusInProgress RecommendationStatus = "in_progress"
	RecommendationStatusDone       RecommendationStatus = "done"
	RecommendationStatusApproved   RecommendationStatus = "approved"
)

// Recommendation is an improvement action attached to a report
type Recommendation struct {
	ID             string               `json:"id"`
	ReportID       string               `json:"report_id"`
	OrganizationID string               `json:"organization_id"`
	Title          string               `json:"title"`
	Description    string               `json:"description,omitempty"`
	Status         RecommendationStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}
