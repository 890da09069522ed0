package events

import (
	"context"
	"strings"
)

// ScheduleValidator checks a schedule expression.
type ScheduleValidator interface {
	Validate(expr string) error
}

// ValidatingStore rejects unparsable schedules before they reach the backend,
// so that a stored definition always carries a valid expression.
type ValidatingStore struct {
	store     Store
	validator ScheduleValidator
}

// NewValidatingStore wraps store.
func NewValidatingStore(store Store, validator ScheduleValidator) *ValidatingStore {
	return &ValidatingStore{store: store, validator: validator}
}

// ListAll returns every stored definition.
func (s *ValidatingStore) ListAll(ctx context.Context) ([]Definition, error) {
	return s.store.ListAll(ctx)
}

// Insert validates def and stores it.
func (s *ValidatingStore) Insert(ctx context.Context, def Definition) error {
	def, err := s.check(def)
	if err != nil {
		return err
	}
	return s.store.Insert(ctx, def)
}

// Update validates def and replaces the schedule of an existing event.
func (s *ValidatingStore) Update(ctx context.Context, def Definition) error {
	def, err := s.check(def)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, def)
}

// Delete removes an event.
func (s *ValidatingStore) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return s.store.Delete(ctx, name)
}

func (s *ValidatingStore) check(def Definition) (Definition, error) {
	def.Name = strings.TrimSpace(def.Name)
	def.Schedule = strings.TrimSpace(def.Schedule)
	if def.Name == "" {
		return def, ErrEmptyName
	}
	if err := s.validator.Validate(def.Schedule); err != nil {
		return def, err
	}
	return def, nil
}
