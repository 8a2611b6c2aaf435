package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

// DefaultServices is the starter catalog.
var DefaultServices = []models.Service{
	{Name: "Oil change", BasePrice: 400, DurationMin: 20, RecommendDays: 90},
	{Name: "Gear oil change", BasePrice: 200, DurationMin: 15, RecommendDays: 180},
	{Name: "General inspection", BasePrice: 0, DurationMin: 30, RecommendDays: 180},
	{Name: "Brake pad replacement", BasePrice: 600, DurationMin: 40, RecommendDays: 365},
}

// DefaultSlots opens Monday to Saturday 09:00-18:00 in 30 minute buckets of two.
func DefaultSlots() []models.ShopSlot {
	slots := make([]models.ShopSlot, 0, 6)
	for wd := 0; wd < 6; wd++ {
		slots = append(slots, models.ShopSlot{
			Weekday:     wd,
			StartTime:   "09:00",
			EndTime:     "18:00",
			IntervalMin: 30,
			Capacity:    2,
		})
	}
	return slots
}

// Seed fills the service catalog and shop hours when they are empty.
func Seed(ctx context.Context, db *bun.DB) (services, slots int, err error) {
	now := time.Now().UTC()

	count, err := db.NewSelect().Model((*models.Service)(nil)).Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count services: %w", err)
	}
	if count == 0 {
		rows := make([]models.Service, len(DefaultServices))
		copy(rows, DefaultServices)
		for i := range rows {
			rows[i].CreatedAt = now
		}
		if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return 0, 0, fmt.Errorf("seed services: %w", err)
		}
		services = len(rows)
	}

	count, err = db.NewSelect().Model((*models.ShopSlot)(nil)).Count(ctx)
	if err != nil {
		return services, 0, fmt.Errorf("count shop slots: %w", err)
	}
	if count == 0 {
		rows := DefaultSlots()
		for i := range rows {
			rows[i].CreatedAt = now
		}
		if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return services, 0, fmt.Errorf("seed shop slots: %w", err)
		}
		slots = len(rows)
	}
	return services, slots, nil
}
