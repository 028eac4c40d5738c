package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-formschema/pkg/formdef"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	opts        options
	forms       map[string]formdef.FormDefinition
	submissions map[string][]Submission
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &MemoryStore{
		opts:        o,
		forms:       make(map[string]formdef.FormDefinition),
		submissions: make(map[string][]Submission),
	}
}

func (m *MemoryStore) ListForms(ctx context.Context) ([]formdef.FormDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]formdef.FormDefinition, 0, len(m.forms))
	for _, form := range m.forms {
		out = append(out, form)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := createdAt(out[i]), createdAt(out[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) GetForm(ctx context.Context, id string) (formdef.FormDefinition, error) {
	if err := ctx.Err(); err != nil {
		return formdef.FormDefinition{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	form, ok := m.forms[id]
	if !ok {
		return formdef.FormDefinition{}, fmt.Errorf("form %q: %w", id, ErrNotFound)
	}
	return form, nil
}

func (m *MemoryStore) CreateForm(ctx context.Context, form formdef.FormDefinition) (formdef.FormDefinition, error) {
	if err := ctx.Err(); err != nil {
		return formdef.FormDefinition{}, err
	}
	if err := checkForm(form); err != nil {
		return formdef.FormDefinition{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.forms[form.ID]; exists {
		return formdef.FormDefinition{}, fmt.Errorf("form %q: %w", form.ID, ErrConflict)
	}
	now := m.opts.timestamp()
	form = stamped(form, now, now)
	m.forms[form.ID] = form
	return form, nil
}

func (m *MemoryStore) UpdateForm(ctx context.Context, form formdef.FormDefinition) (formdef.FormDefinition, error) {
	if err := ctx.Err(); err != nil {
		return formdef.FormDefinition{}, err
	}
	if err := checkForm(form); err != nil {
		return formdef.FormDefinition{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.forms[form.ID]
	if !exists {
		return formdef.FormDefinition{}, fmt.Errorf("form %q: %w", form.ID, ErrNotFound)
	}
	form = stamped(form, createdAt(current), m.opts.timestamp())
	m.forms[form.ID] = form
	return form, nil
}

func (m *MemoryStore) DeleteForm(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.forms[id]; !exists {
		return fmt.Errorf("form %q: %w", id, ErrNotFound)
	}
	delete(m.forms, id)
	delete(m.submissions, id)
	return nil
}

func (m *MemoryStore) SaveSubmission(ctx context.Context, sub Submission) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	sub, err := prepareSubmission(m.opts, sub)
	if err != nil {
		return Submission{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.forms[sub.FormID]; !exists {
		return Submission{}, fmt.Errorf("form %q: %w", sub.FormID, ErrNotFound)
	}
	m.submissions[sub.FormID] = append(m.submissions[sub.FormID], sub)
	return sub, nil
}

func (m *MemoryStore) ListSubmissions(ctx context.Context, formID string) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.forms[formID]; !exists {
		return nil, fmt.Errorf("form %q: %w", formID, ErrNotFound)
	}
	return append([]Submission{}, m.submissions[formID]...), nil
}
