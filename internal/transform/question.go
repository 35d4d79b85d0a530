package transform

import (
	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/store"
)

// FromRemoteQuestion maps a server question to the locally persisted shape
func FromRemoteQuestion(q *entity.Question) (*store.Record, error) {
	applyQuestionDefaults(q)
	return newRecord(q.ID, "", q.CategoryName, q, store.SyncStatusSynced, false)
}

// ToQuestion decodes a stored record into a question
func ToQuestion(rec *store.Record) (*entity.Question, error) {
	var q entity.Question
	if err := decode(rec, &q); err != nil {
		return nil, err
	}
	applyQuestionDefaults(&q)
	return &q, nil
}

func applyQuestionDefaults(q *entity.Question) {
	if q.CurrentRevision.Text == nil {
		q.CurrentRevision.Text = map[string]string{}
	}
	if q.CurrentRevision.Version == 0 {
		q.CurrentRevision.Version = 1
	}
	if q.CurrentRevision.CategoryName == "" {
		q.CurrentRevision.CategoryName = q.CategoryName
	}
}

// FromRemoteCategory maps a server category to the locally persisted shape
func FromRemoteCategory(c *entity.Category) (*store.Record, error) {
	return newRecord(c.ID, c.NaturalKey(), c.TemplateID, c, store.SyncStatusSynced, false)
}

// LocalCategory maps a locally created or modified category to a
// pending record awaiting reconciliation
func LocalCategory(c *entity.Category) (*store.Record, error) {
	return newRecord(c.ID, c.NaturalKey(), c.TemplateID, c, store.SyncStatusPending, true)
}

// ToCategory decodes a stored record into a category
func ToCategory(rec *store.Record) (*entity.Category, error) {
	var c entity.Category
	if err := decode(rec, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ToRemoteCategory builds the category payload sent to the server,
// stripping the temporary identifier
func ToRemoteCategory(rec *store.Record) (*entity.Category, error) {
	c, err := ToCategory(rec)
	if err != nil {
		return nil, err
	}
	c.ID = stripTempID(c.ID)
	return c, nil
}
