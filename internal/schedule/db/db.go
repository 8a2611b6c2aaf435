package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

// DB serves shop windows and bucket counts. Bun may be a *bun.DB or a bun.Tx.
type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

// SlotsForWeekday → windows of one weekday ordered by start time
func (d *DB) SlotsForWeekday(ctx context.Context, weekday int) ([]models.ShopSlot, error) {
	var slots []models.ShopSlot
	err := d.Bun.NewSelect().
		Model(&slots).
		Where("weekday = ?", weekday).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ListSlots → all windows, week order
func (d *DB) ListSlots(ctx context.Context) ([]models.ShopSlot, error) {
	var slots []models.ShopSlot
	err := d.Bun.NewSelect().
		Model(&slots).
		OrderExpr("weekday ASC, start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// CountActiveBetween → pending/confirmed orders with booked_at in [start, end)
func (d *DB) CountActiveBetween(ctx context.Context, start, end time.Time) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Where("status IN (?)", bun.In(models.ActiveStatuses)).
		Where("booked_at >= ?", start.UTC()).
		Where("booked_at < ?", end.UTC()).
		Count(ctx)
}
