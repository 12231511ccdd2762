package domain

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"example.com/codepad/internal/observability"
)

// Recognised activity actions.
const (
	ActionStart = "start"
	ActionEnd   = "end"
)

// ErrInvalidAction is returned for an action outside {start, end}.
var ErrInvalidAction = errors.New("invalid activity action")

// ActivityEvent describes one recorded start or end action.
type ActivityEvent struct {
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Date       string    `json:"date"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActivityPublisher receives best-effort notifications about recorded
// activity. Implementations must not block request handling on delivery.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, event ActivityEvent)
}

// Tracker records editing intervals and aggregates per-day totals.
type Tracker struct {
	store     IntervalStore
	publisher ActivityPublisher
	now       func() time.Time
}

// NewTracker constructs a Tracker. publisher may be nil when event
// publishing is disabled.
func NewTracker(store IntervalStore, publisher ActivityPublisher) *Tracker {
	return &Tracker{store: store, publisher: publisher, now: time.Now}
}

// Record handles a start or end action for the user. A "start" always opens
// a new interval; repeated starts leave multiple open intervals. An "end"
// closes the most recently started open interval for the user's current IST
// day, and is a silent no-op when none exists.
func (t *Tracker) Record(ctx context.Context, userID, action string) error {
	switch action {
	case ActionStart:
		now := t.now().UTC()
		interval := Interval{
			ID:        uuid.NewString(),
			UserID:    userID,
			Date:      LocalDate(now),
			StartedAt: now,
		}
		if err := t.store.CreateInterval(ctx, interval); err != nil {
			return err
		}
		observability.RecordActivityStart()
		t.publish(ctx, userID, action, interval.Date, now)
	case ActionEnd:
		now := t.now().UTC()
		date := LocalDate(now)
		closed, err := t.store.CloseLatestOpen(ctx, userID, date, now)
		if err != nil {
			return err
		}
		observability.RecordActivityEnd(closed)
		if closed {
			t.publish(ctx, userID, action, date, now)
		}
	default:
		return ErrInvalidAction
	}
	return nil
}

// TotalSecondsToday sums elapsed time across the user's intervals for the
// current IST day. Closed intervals contribute end-start; open intervals
// contribute up to a fresh "now" read, so repeated calls grow while an
// interval stays open.
func (t *Tracker) TotalSecondsToday(ctx context.Context, userID string) (int64, error) {
	today := LocalDate(t.now())
	intervals, err := t.store.IntervalsByUserAndDate(ctx, userID, today)
	if err != nil {
		return 0, err
	}

	now := t.now().UTC()
	var total time.Duration
	for _, interval := range intervals {
		end := now
		if interval.EndedAt != nil {
			end = *interval.EndedAt
		}
		if end.Before(interval.StartedAt) {
			continue
		}
		total += end.Sub(interval.StartedAt)
	}

	seconds := int64(math.Round(total.Seconds()))
	observability.ObserveDailyTotal(seconds)
	return seconds, nil
}

func (t *Tracker) publish(ctx context.Context, userID, action, date string, occurredAt time.Time) {
	if t.publisher == nil {
		return
	}
	t.publisher.PublishActivity(ctx, ActivityEvent{
		UserID:     userID,
		Action:     action,
		Date:       date,
		OccurredAt: occurredAt,
	})
}
