// Package domain defines the business logic for the codepad backend.
package domain

import (
	"context"
	"time"
)

// Interval is one continuous editing period for a user. EndedAt is nil
// while the interval is still open.
type Interval struct {
	ID        string
	UserID    string
	Date      string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Open reports whether the interval has not been closed yet.
func (i Interval) Open() bool {
	return i.EndedAt == nil
}

// IntervalStore captures persistence operations for activity intervals.
type IntervalStore interface {
	CreateInterval(ctx context.Context, interval Interval) error
	// CloseLatestOpen sets the end timestamp on the most recently started
	// open interval for the user and day and reports whether a row was
	// closed. No matching open interval is not an error.
	CloseLatestOpen(ctx context.Context, userID, date string, endedAt time.Time) (bool, error)
	IntervalsByUserAndDate(ctx context.Context, userID, date string) ([]Interval, error)
}
