// Package ledger keeps the per-user point counter fed by "+<minutes>" reports.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// User is one ledger row.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// ErrInvalidUser is returned when a report carries no user ID.
var ErrInvalidUser = errors.New("ledger: user id is empty")

// Store persists users.
type Store interface {
	ListUsers(ctx context.Context) ([]User, error)
	// ResetUsers deletes every user.
	ResetUsers(ctx context.Context) error
	// AddPoints creates the user with a zero count if absent, records name as
	// the user's current name, then adds amount.
	AddPoints(ctx context.Context, id, name string, amount int64) (User, error)
}

// PointsForDelay converts a reported delay into points.
func PointsForDelay(minutes, minutesPerPoint int) int64 {
	if minutes <= 0 || minutesPerPoint <= 0 {
		return 0
	}
	return int64(minutes / minutesPerPoint)
}

// Ledger applies the point policy on top of a Store.
type Ledger struct {
	store           Store
	minutesPerPoint int
}

// New returns a Ledger awarding one point per minutesPerPoint minutes of delay.
func New(store Store, minutesPerPoint int) *Ledger {
	return &Ledger{store: store, minutesPerPoint: minutesPerPoint}
}

// ReportDelay credits the user for a delay and returns the points awarded.
func (l *Ledger) ReportDelay(ctx context.Context, id, name string, minutes int) (int64, error) {
	if id == "" {
		return 0, ErrInvalidUser
	}
	points := PointsForDelay(minutes, l.minutesPerPoint)
	if _, err := l.store.AddPoints(ctx, id, name, points); err != nil {
		return 0, fmt.Errorf("add points for %s: %w", id, err)
	}
	return points, nil
}

// Users lists every user.
func (l *Ledger) Users(ctx context.Context) ([]User, error) {
	return l.store.ListUsers(ctx)
}

// Reset removes every user.
func (l *Ledger) Reset(ctx context.Context) error {
	return l.store.ResetUsers(ctx)
}
