package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

var tableModels = []interface{}{
	(*models.User)(nil),
	(*models.Vehicle)(nil),
	(*models.Service)(nil),
	(*models.ShopSlot)(nil),
	(*models.Order)(nil),
	(*models.OrderItem)(nil),
	(*models.Conversation)(nil),
}

// CreateSchema creates every table and index that does not exist yet.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, m := range tableModels {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		{(*models.Vehicle)(nil), "idx_vehicles_user_id", []string{"user_id"}},
		{(*models.ShopSlot)(nil), "idx_shop_slots_weekday", []string{"weekday"}},
		{(*models.Order)(nil), "idx_orders_user_id", []string{"user_id"}},
		{(*models.Order)(nil), "idx_orders_booked_at", []string{"booked_at"}},
		{(*models.OrderItem)(nil), "idx_order_items_order_id", []string{"order_id"}},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropSchema drops every table in reverse dependency order.
func DropSchema(ctx context.Context, db *bun.DB) error {
	for i := len(tableModels) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tableModels[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tableModels[i], err)
		}
	}
	return nil
}
