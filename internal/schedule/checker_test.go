package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

type memStore struct {
	slots    []models.ShopSlot
	bookings []time.Time
	err      error
}

func (m *memStore) SlotsForWeekday(_ context.Context, weekday int) ([]models.ShopSlot, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.ShopSlot
	for _, s := range m.slots {
		if s.Weekday == weekday {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CountActiveBetween(_ context.Context, start, end time.Time) (int, error) {
	n := 0
	for _, b := range m.bookings {
		if !b.Before(start) && b.Before(end) {
			n++
		}
	}
	return n, nil
}

func mondayOnly(capacity int) *memStore {
	return &memStore{slots: []models.ShopSlot{
		{ID: 1, Weekday: 0, StartTime: "09:00", EndTime: "18:00", IntervalMin: 30, Capacity: capacity},
	}}
}

// 2025-10-20 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, 10, day, hour, minute, 0, 0, time.UTC)
}

func TestCheck_DayClosed(t *testing.T) {
	c := NewChecker(mondayOnly(2), time.UTC)

	for day := 21; day <= 26; day++ {
		for _, h := range []int{0, 9, 12, 17, 23} {
			d, err := c.Check(context.Background(), at(day, h, 15))
			require.NoError(t, err)
			assert.False(t, d.Accepted)
			assert.Equal(t, ReasonDayClosed, d.Reason, "day %d hour %d", day, h)
		}
	}
}

func TestCheck_OutsideHoursIsHalfOpen(t *testing.T) {
	c := NewChecker(mondayOnly(2), time.UTC)
	ctx := context.Background()

	d, err := c.Check(ctx, at(20, 8, 59))
	require.NoError(t, err)
	assert.Equal(t, ReasonOutsideHours, d.Reason)

	d, err = c.Check(ctx, at(20, 9, 0))
	require.NoError(t, err)
	assert.True(t, d.Accepted)

	d, err = c.Check(ctx, at(20, 17, 59))
	require.NoError(t, err)
	assert.True(t, d.Accepted)

	d, err = c.Check(ctx, at(20, 18, 0))
	require.NoError(t, err)
	assert.Equal(t, ReasonOutsideHours, d.Reason)
}

func TestCheck_CapacityBoundary(t *testing.T) {
	store := mondayOnly(2)
	c := NewChecker(store, time.UTC)
	ctx := context.Background()

	store.bookings = []time.Time{at(20, 9, 0)}
	d, err := c.Check(ctx, at(20, 9, 20))
	require.NoError(t, err)
	assert.True(t, d.Accepted, "capacity-1 booked must accept")
	assert.Equal(t, 1, d.Booked)

	store.bookings = append(store.bookings, at(20, 9, 29))
	d, err = c.Check(ctx, at(20, 9, 5))
	require.NoError(t, err)
	assert.False(t, d.Accepted, "capacity reached must reject")
	assert.Equal(t, ReasonSlotFull, d.Reason)

	var rej *RejectionError
	require.True(t, errors.As(d.Err(), &rej))
	assert.Equal(t, ReasonSlotFull, rej.Reason)

	// the next bucket is untouched
	d, err = c.Check(ctx, at(20, 9, 30))
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Equal(t, 0, d.Booked)
}

func TestCheck_BucketAssignmentIsStable(t *testing.T) {
	c := NewChecker(mondayOnly(2), time.UTC)
	ctx := context.Background()

	first, err := c.Check(ctx, at(20, 14, 30))
	require.NoError(t, err)
	for m := 30; m < 60; m++ {
		d, err := c.Check(ctx, at(20, 14, m))
		require.NoError(t, err)
		assert.Equal(t, first.Bucket.Start, d.Bucket.Start)
		assert.Equal(t, first.Bucket.End, d.Bucket.End)
	}
	assert.Equal(t, at(20, 14, 30), first.Bucket.Start)
	assert.Equal(t, at(20, 15, 0), first.Bucket.End)
}

func TestCheck_BucketFloorsMinuteOfHour(t *testing.T) {
	store := &memStore{slots: []models.ShopSlot{
		{ID: 1, Weekday: 0, StartTime: "09:10", EndTime: "12:00", IntervalMin: 45, Capacity: 1},
	}}
	c := NewChecker(store, time.UTC)

	d, err := c.Check(context.Background(), at(20, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, at(20, 10, 0), d.Bucket.Start)
	assert.Equal(t, at(20, 10, 45), d.Bucket.End)

	d, err = c.Check(context.Background(), at(20, 10, 50))
	require.NoError(t, err)
	assert.Equal(t, at(20, 10, 45), d.Bucket.Start)
	assert.Equal(t, at(20, 11, 30), d.Bucket.End)
}

func TestCheck_OffsetWindowCountsOnlyFlooredBucket(t *testing.T) {
	store := &memStore{
		slots: []models.ShopSlot{
			{ID: 1, Weekday: 0, StartTime: "09:15", EndTime: "18:00", IntervalMin: 30, Capacity: 1},
		},
		bookings: []time.Time{at(20, 9, 55)},
	}
	c := NewChecker(store, time.UTC)
	ctx := context.Background()

	d, err := c.Check(ctx, at(20, 10, 5))
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Equal(t, at(20, 10, 0), d.Bucket.Start)
	assert.Equal(t, at(20, 10, 30), d.Bucket.End)
	assert.Equal(t, 0, d.Booked)

	d, err = c.Check(ctx, at(20, 9, 40))
	require.NoError(t, err)
	assert.False(t, d.Accepted)
	assert.Equal(t, ReasonSlotFull, d.Reason)
	assert.Equal(t, at(20, 9, 30), d.Bucket.Start)
}

func TestCheck_SplitShiftFirstMatchWins(t *testing.T) {
	store := &memStore{slots: []models.ShopSlot{
		{ID: 1, Weekday: 0, StartTime: "09:00", EndTime: "12:00", IntervalMin: 30, Capacity: 1},
		{ID: 2, Weekday: 0, StartTime: "13:00", EndTime: "18:00", IntervalMin: 60, Capacity: 3},
	}}
	c := NewChecker(store, time.UTC)
	ctx := context.Background()

	d, err := c.Check(ctx, at(20, 12, 30))
	require.NoError(t, err)
	assert.Equal(t, ReasonOutsideHours, d.Reason)

	d, err = c.Check(ctx, at(20, 13, 45))
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Equal(t, int64(2), d.Bucket.Slot.ID)
	assert.Equal(t, 3, d.Bucket.Capacity)
}

func TestCheck_UsesShopLocation(t *testing.T) {
	taipei := time.FixedZone("CST", 8*3600)
	c := NewChecker(mondayOnly(2), taipei)

	// Monday 09:00 in the shop is Monday 01:00 UTC.
	d, err := c.Check(context.Background(), time.Date(2025, 10, 20, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.True(t, d.Bucket.Start.Equal(time.Date(2025, 10, 20, 9, 0, 0, 0, taipei)))
}

func TestCheck_StoreError(t *testing.T) {
	c := NewChecker(&memStore{err: errors.New("boom")}, time.UTC)
	_, err := c.Check(context.Background(), at(20, 10, 0))
	assert.Error(t, err)
}

func TestResolve_DoesNotCount(t *testing.T) {
	store := mondayOnly(1)
	store.bookings = []time.Time{at(20, 10, 0)}
	c := NewChecker(store, time.UTC)

	d, err := c.Resolve(context.Background(), at(20, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, ReasonNone, d.Reason)
	assert.Equal(t, at(20, 10, 0), d.Bucket.Start)
	assert.Equal(t, 1, d.Bucket.Capacity)
}
