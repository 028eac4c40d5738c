// Package store persists form definitions and their accepted submissions.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formschema/pkg/formdef"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: already exists")
)

// Submission lifecycle states.
const (
	StatusSubmitted  = "submitted"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Submission is one accepted payload for a form.
type Submission struct {
	ID          string         `json:"id"`
	FormID      string         `json:"formId"`
	Data        map[string]any `json:"data"`
	SubmittedAt time.Time      `json:"submittedAt"`
	Status      string         `json:"status"`
}

// Store is the persistence boundary used by the HTTP API. Forms carry their
// CreatedAt/UpdatedAt in Metadata; UpdateForm always moves UpdatedAt forward
// so the form's fingerprint changes with every edit.
type Store interface {
	ListForms(ctx context.Context) ([]formdef.FormDefinition, error)
	GetForm(ctx context.Context, id string) (formdef.FormDefinition, error)
	CreateForm(ctx context.Context, form formdef.FormDefinition) (formdef.FormDefinition, error)
	UpdateForm(ctx context.Context, form formdef.FormDefinition) (formdef.FormDefinition, error)
	DeleteForm(ctx context.Context, id string) error

	SaveSubmission(ctx context.Context, sub Submission) (Submission, error)
	ListSubmissions(ctx context.Context, formID string) ([]Submission, error)
}

// Option tunes either store implementation.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

func defaultOptions() options {
	return options{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator replaces the submission id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func (o options) timestamp() time.Time {
	return o.now().UTC()
}

func stamped(form formdef.FormDefinition, created, updated time.Time) formdef.FormDefinition {
	meta := formdef.Metadata{}
	if form.Metadata != nil {
		meta = *form.Metadata
	}
	meta.CreatedAt = created
	meta.UpdatedAt = updated
	form.Metadata = &meta
	return form
}

func createdAt(form formdef.FormDefinition) time.Time {
	if form.Metadata == nil {
		return time.Time{}
	}
	return form.Metadata.CreatedAt
}

func checkForm(form formdef.FormDefinition) error {
	if form.ID == "" {
		return fmt.Errorf("%w: id is required", formdef.ErrInvalidDefinition)
	}
	return form.Validate()
}

func prepareSubmission(o options, sub Submission) (Submission, error) {
	if sub.FormID == "" {
		return sub, errors.New("store: submission form id is required")
	}
	if sub.ID == "" {
		sub.ID = o.newID()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = o.timestamp()
	}
	if sub.Status == "" {
		sub.Status = StatusSubmitted
	}
	if sub.Data == nil {
		sub.Data = map[string]any{}
	}
	return sub, nil
}
