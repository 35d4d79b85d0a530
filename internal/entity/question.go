// Package entity defines the domain types persisted by the local store
// and exchanged with the remote service
package entity

import (
	"time"
)

// Question represents an assessment question owned by a category
type Question struct {
	ID              string           `json:"id"`
	CategoryName    string           `json:"category_name"`
	Order           int              `json:"order"`
	CurrentRevision QuestionRevision `json:"current_revision"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// QuestionRevision is one immutable version of a question's content.
// Responses reference a revision, not the question, so reviewed
// submissions stay readable after the question text changes.
type QuestionRevision struct {
	ID           string            `json:"id"`
	QuestionID   string            `json:"question_id"`
	Text         map[string]string `json:"text"` // keyed by language code
	Weight       float64           `json:"weight"`
	CategoryName string            `json:"category_name"`
	Version      int               `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TextIn returns the revision text for a language, falling back to
// English when the requested language is absent
func (r *QuestionRevision) TextIn(lang string) string {
	if t, ok := r.Text[lang]; ok {
		return t
	}
	return r.Text["en"]
}

// Category groups questions within an assessment template
type Category struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	Name       string    `json:"name"`
	Weight     float64   `json:"weight"`
	Order      int       `json:"order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NaturalKey identifies a category independently of its id namespace
func (c *Category) NaturalKey() string {
	return c.TemplateID + "/" + c.Name
}
