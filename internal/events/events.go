// Package events defines periodic event definitions and the store contract
// shared by the chat command path (the only writer) and the reminder loop
// (a reader).
package events

import (
	"context"
	"errors"
	"fmt"
)

// Definition is a named periodic event.
type Definition struct {
	Name     string `json:"event"`
	Schedule string `json:"cron"`
}

var (
	// ErrDuplicateName is returned by Insert when the name is taken.
	ErrDuplicateName = errors.New("event already exists")

	// ErrNotFound is returned by Update and Delete for unknown names.
	ErrNotFound = errors.New("event not found")

	// ErrEmptyName is returned when a definition has no name.
	ErrEmptyName = errors.New("event name is empty")
)

// StoreError wraps a backend failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("event store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err unless it is nil or already one of the package sentinels.
func NewStoreError(op string, err error) error {
	if err == nil || errors.Is(err, ErrDuplicateName) || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Store persists definitions. Implementations serialize their own writes.
type Store interface {
	ListAll(ctx context.Context) ([]Definition, error)
	Insert(ctx context.Context, def Definition) error
	Update(ctx context.Context, def Definition) error
	Delete(ctx context.Context, name string) error
}

// Reader is the read-only view used by the reminder loop.
type Reader interface {
	ListAll(ctx context.Context) ([]Definition, error)
}
