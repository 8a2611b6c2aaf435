package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

// Store is the read side the checker needs from persistence.
type Store interface {
	// SlotsForWeekday returns the windows of one shop weekday ordered by start time.
	SlotsForWeekday(ctx context.Context, weekday int) ([]models.ShopSlot, error)
	// CountActiveBetween counts pending/confirmed orders booked in [start, end).
	CountActiveBetween(ctx context.Context, start, end time.Time) (int, error)
}

type Reason int

const (
	ReasonNone Reason = iota
	ReasonDayClosed
	ReasonOutsideHours
	ReasonSlotFull
)

func (r Reason) String() string {
	switch r {
	case ReasonDayClosed:
		return "day closed"
	case ReasonOutsideHours:
		return "outside business hours"
	case ReasonSlotFull:
		return "slot full"
	default:
		return "accepted"
	}
}

// Message is the user-facing explanation of a rejection.
func (r Reason) Message() string {
	switch r {
	case ReasonDayClosed:
		return "The shop is closed on that day, please pick a business day."
	case ReasonOutsideHours:
		return "That time is outside business hours, please enter another time."
	case ReasonSlotFull:
		return "That time slot is full, please choose another time."
	default:
		return ""
	}
}

// RejectionError carries the reason a candidate time was refused.
type RejectionError struct {
	Reason Reason
}

func (e *RejectionError) Error() string {
	return "capacity rejected: " + e.Reason.String()
}

// ErrBucketBusy means another request holds the bucket lock right now.
var ErrBucketBusy = errors.New("bucket is being booked by another request")

// Bucket is one capacity unit of a shop window.
type Bucket struct {
	Start    time.Time
	End      time.Time
	Capacity int
	Slot     models.ShopSlot
}

// Key identifies the bucket independent of time zone.
func (b Bucket) Key() string {
	return fmt.Sprintf("%d", b.Start.Unix())
}

type Decision struct {
	Accepted bool
	Reason   Reason
	Bucket   Bucket
	Booked   int
}

// Err returns nil for an accepted decision and a *RejectionError otherwise.
func (d Decision) Err() error {
	if d.Accepted {
		return nil
	}
	return &RejectionError{Reason: d.Reason}
}

// Checker decides whether a candidate time still has room.
type Checker struct {
	store    Store
	location *time.Location
}

func NewChecker(store Store, loc *time.Location) *Checker {
	if loc == nil {
		loc = time.UTC
	}
	return &Checker{store: store, location: loc}
}

func (c *Checker) Location() *time.Location {
	return c.location
}

// Check resolves the window and bucket of when and counts what is already booked there.
func (c *Checker) Check(ctx context.Context, when time.Time) (Decision, error) {
	when = when.In(c.location)
	slots, err := c.store.SlotsForWeekday(ctx, models.ShopWeekday(when.Weekday()))
	if err != nil {
		return Decision{}, fmt.Errorf("load shop slots: %w", err)
	}
	return c.checkAgainst(ctx, slots, when)
}

// Resolve finds the bucket of when without counting bookings.
func (c *Checker) Resolve(ctx context.Context, when time.Time) (Decision, error) {
	when = when.In(c.location)
	slots, err := c.store.SlotsForWeekday(ctx, models.ShopWeekday(when.Weekday()))
	if err != nil {
		return Decision{}, fmt.Errorf("load shop slots: %w", err)
	}
	return resolve(slots, when)
}

func (c *Checker) checkAgainst(ctx context.Context, slots []models.ShopSlot, when time.Time) (Decision, error) {
	d, err := resolve(slots, when)
	if err != nil || d.Reason != ReasonNone {
		return d, err
	}

	booked, err := c.store.CountActiveBetween(ctx, d.Bucket.Start.UTC(), d.Bucket.End.UTC())
	if err != nil {
		return Decision{}, fmt.Errorf("count bookings in bucket: %w", err)
	}
	d.Booked = booked
	if booked >= d.Bucket.Capacity {
		d.Reason = ReasonSlotFull
		return d, nil
	}
	d.Accepted = true
	return d, nil
}

// resolve picks the first window containing when and its bucket. It never sets Accepted.
func resolve(slots []models.ShopSlot, when time.Time) (Decision, error) {
	if len(slots) == 0 {
		return Decision{Reason: ReasonDayClosed}, nil
	}

	minute := when.Hour()*60 + when.Minute()
	for _, s := range slots {
		start, err := s.StartMinute()
		if err != nil {
			return Decision{}, err
		}
		end, err := s.EndMinute()
		if err != nil {
			return Decision{}, err
		}
		if minute < start || minute >= end {
			continue
		}
		if s.IntervalMin <= 0 {
			return Decision{}, fmt.Errorf("shop slot %d has non-positive interval %d", s.ID, s.IntervalMin)
		}

		// buckets floor the minute of the hour, independent of where the window starts
		bucketStart := time.Date(when.Year(), when.Month(), when.Day(), when.Hour(), when.Minute()/s.IntervalMin*s.IntervalMin, 0, 0, when.Location())
		return Decision{
			Bucket: Bucket{
				Start:    bucketStart,
				End:      bucketStart.Add(time.Duration(s.IntervalMin) * time.Minute),
				Capacity: s.Capacity,
				Slot:     s,
			},
		}, nil
	}
	return Decision{Reason: ReasonOutsideHours}, nil
}
