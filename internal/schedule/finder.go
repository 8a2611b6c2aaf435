package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

// Finder enumerates free bucket starts over a horizon.
type Finder struct {
	checker  *Checker
	maxTotal int
}

// NewFinder caps every result at maxTotal instants; zero or less means no overall cap.
func NewFinder(checker *Checker, maxTotal int) *Finder {
	return &Finder{checker: checker, maxTotal: maxTotal}
}

// Find walks horizonDays calendar days starting at start's date and returns accepted
// instants in chronological order, at most maxPerDay per day.
func (f *Finder) Find(ctx context.Context, start time.Time, horizonDays, maxPerDay int) ([]time.Time, error) {
	loc := f.checker.location
	start = start.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	slotsByWeekday := make(map[int][]models.ShopSlot, 7)
	found := []time.Time{}

	for i := 0; i < horizonDays; i++ {
		date := day.AddDate(0, 0, i)
		weekday := models.ShopWeekday(date.Weekday())

		slots, ok := slotsByWeekday[weekday]
		if !ok {
			var err error
			slots, err = f.checker.store.SlotsForWeekday(ctx, weekday)
			if err != nil {
				return nil, fmt.Errorf("load shop slots: %w", err)
			}
			slotsByWeekday[weekday] = slots
		}

		perDay := 0
		for _, s := range slots {
			if perDay >= maxPerDay {
				break
			}
			from, err := s.StartMinute()
			if err != nil {
				return nil, err
			}
			to, err := s.EndMinute()
			if err != nil {
				return nil, err
			}
			if s.IntervalMin <= 0 {
				continue
			}

			for m := from; m < to && perDay < maxPerDay; m += s.IntervalMin {
				instant := time.Date(date.Year(), date.Month(), date.Day(), m/60, m%60, 0, 0, loc)
				if instant.Before(start) {
					continue
				}
				d, err := f.checker.checkAgainst(ctx, slots, instant)
				if err != nil {
					return nil, err
				}
				if !d.Accepted {
					continue
				}
				found = append(found, instant)
				perDay++
				if f.maxTotal > 0 && len(found) >= f.maxTotal {
					return found, nil
				}
			}
		}
	}
	return found, nil
}
