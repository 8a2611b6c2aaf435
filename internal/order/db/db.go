package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Jackson16868/mcshop-bot/internal/models"
	"github.com/Jackson16868/mcshop-bot/internal/schedule"
	scheduledb "github.com/Jackson16868/mcshop-bot/internal/schedule/db"
)

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// ---------------- WRITES ----------------

// InsertGuarded → insert an order and its items in one transaction. When bucket is set the
// active count of the bucket is re-read inside the transaction and the insert is refused once full.
func (d *DB) InsertGuarded(ctx context.Context, order *models.Order, items []models.OrderItem, bucket *schedule.Bucket) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if bucket != nil {
			if err := guardBucket(ctx, tx, *bucket); err != nil {
				return err
			}
		}

		if _, err := tx.NewInsert().Model(order).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		order.Items = items
		return nil
	})
}

// CancelOrder → move an active order of the user to canceled. Reports whether a row changed.
func (d *DB) CancelOrder(ctx context.Context, id, userID int64) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.OrderStatusCanceled).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Where("status IN (?)", bun.In(models.ActiveStatuses)).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RescheduleGuarded → move an active order of the user to when, promoting pending to
// confirmed. Returns sql.ErrNoRows when the order is gone, foreign or canceled.
func (d *DB) RescheduleGuarded(ctx context.Context, id, userID int64, when time.Time, bucket schedule.Bucket) (*models.Order, error) {
	var order models.Order
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&order).
			Where("id = ?", id).
			Where("user_id = ?", userID).
			Where("status IN (?)", bun.In(models.ActiveStatuses)).
			Limit(1).
			Scan(ctx)
		if err != nil {
			return err
		}

		if err := guardBucket(ctx, tx, bucket); err != nil {
			return err
		}

		when = when.UTC()
		order.BookedAt = &when
		if order.Status == models.OrderStatusPending {
			order.Status = models.OrderStatusConfirmed
		}
		_, err = tx.NewUpdate().
			Model(&order).
			Column("booked_at", "status").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func guardBucket(ctx context.Context, tx bun.Tx, bucket schedule.Bucket) error {
	booked, err := scheduledb.New(tx).CountActiveBetween(ctx, bucket.Start, bucket.End)
	if err != nil {
		return fmt.Errorf("count bucket: %w", err)
	}
	if booked >= bucket.Capacity {
		return &schedule.RejectionError{Reason: schedule.ReasonSlotFull}
	}
	return nil
}

// ---------------- READS ----------------

func (d *DB) selectOrders(dest any) *bun.SelectQuery {
	return d.Bun.NewSelect().
		Model(dest).
		Relation("Vehicle").
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("Service").OrderExpr("oi.id ASC")
		})
}

// GetOrder → one order with vehicle and items
func (d *DB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := d.selectOrders(&order).
		Where("o.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUser → one order owned by userID
func (d *DB) GetOrderForUser(ctx context.Context, id, userID int64) (*models.Order, error) {
	var order models.Order
	err := d.selectOrders(&order).
		Where("o.id = ?", id).
		Where("o.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListUpcoming → active orders that are unscheduled or not yet due, unscheduled first
func (d *DB) ListUpcoming(ctx context.Context, userID int64, now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := d.selectOrders(&orders).
		Where("o.user_id = ?", userID).
		Where("o.status IN (?)", bun.In(models.ActiveStatuses)).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("o.booked_at IS NULL").WhereOr("o.booked_at >= ?", now.UTC())
		}).
		OrderExpr("o.booked_at ASC NULLS FIRST, o.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListRecent → latest orders of any status
func (d *DB) ListRecent(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := d.selectOrders(&orders).
		Where("o.user_id = ?", userID).
		OrderExpr("o.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListBookedBetween → scheduled orders of every user with booked_at in [start, end]
func (d *DB) ListBookedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := d.selectOrders(&orders).
		Where("o.booked_at IS NOT NULL").
		Where("o.booked_at >= ?", start.UTC()).
		Where("o.booked_at <= ?", end.UTC()).
		OrderExpr("o.booked_at ASC, o.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
