package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ShopSlot is one opening window on a weekday (0=Monday .. 6=Sunday).
// StartTime and EndTime are "HH:MM" wall-clock values in the shop time zone.
type ShopSlot struct {
	bun.BaseModel `bun:"table:shop_slots"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Weekday     int       `bun:"weekday,notnull,unique:uq_shopslot_window" json:"weekday"`
	StartTime   string    `bun:"start_time,notnull,unique:uq_shopslot_window" json:"start_time"`
	EndTime     string    `bun:"end_time,notnull,unique:uq_shopslot_window" json:"end_time"`
	IntervalMin int       `bun:"interval_min,notnull,default:30" json:"interval_min"`
	Capacity    int       `bun:"capacity,notnull,default:2" json:"capacity"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// StartMinute returns the window start as minutes after midnight.
func (s ShopSlot) StartMinute() (int, error) {
	return ParseClock(s.StartTime)
}

// EndMinute returns the window end as minutes after midnight.
func (s ShopSlot) EndMinute() (int, error) {
	return ParseClock(s.EndTime)
}

// ParseClock converts "HH:MM" to minutes after midnight.
func ParseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ShopWeekday maps a Go weekday (Sunday=0) onto the shop numbering (Monday=0).
func ShopWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}
