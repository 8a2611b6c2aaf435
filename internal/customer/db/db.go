package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// ---------------- USERS ----------------

// GetOrCreateUser → the user for a chat identity, created on first contact
func (d *DB) GetOrCreateUser(ctx context.Context, externalID string) (*models.User, error) {
	user, err := d.GetUserByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	user = &models.User{ExternalID: externalID, CreatedAt: now, UpdatedAt: now}
	if _, err := d.Bun.NewInsert().Model(user).Exec(ctx); err != nil {
		// lost a first-contact race to a concurrent event
		if existing, getErr := d.GetUserByExternalID(ctx, externalID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("insert user %s: %w", externalID, err)
	}
	return user, nil
}

// GetUserByExternalID → sql.ErrNoRows when unknown
func (d *DB) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser → profile fields only
func (d *DB) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model(user).
		Column("name", "phone", "note", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// DeleteUser → remove a user with everything they own
func (d *DB) DeleteUser(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var user models.User
		if err := tx.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
			return err
		}

		orderIDs := tx.NewSelect().Model((*models.Order)(nil)).Column("id").Where("user_id = ?", id)
		if _, err := tx.NewDelete().Model((*models.OrderItem)(nil)).Where("order_id IN (?)", orderIDs).Exec(ctx); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.Order)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.Vehicle)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete vehicles: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.Conversation)(nil)).Where("external_id = ?", user.ExternalID).Exec(ctx); err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		_, err := tx.NewDelete().Model((*models.User)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

// ---------------- VEHICLES ----------------

// ListVehicles → newest first
func (d *DB) ListVehicles(ctx context.Context, userID int64) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := d.Bun.NewSelect().
		Model(&vehicles).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

// GetVehicleForUser → sql.ErrNoRows unless the vehicle belongs to userID
func (d *DB) GetVehicleForUser(ctx context.Context, id, userID int64) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := d.Bun.NewSelect().
		Model(&vehicle).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindVehicleByPlate → nil, nil when the user has no such plate
func (d *DB) FindVehicleByPlate(ctx context.Context, userID int64, plate string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := d.Bun.NewSelect().
		Model(&vehicle).
		Where("user_id = ?", userID).
		Where("plate = ?", plate).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// CreateVehicle → insert unless (user, plate) exists; returns the stored row and whether it is new
func (d *DB) CreateVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, bool, error) {
	existing, err := d.FindVehicleByPlate(ctx, vehicle.UserID, vehicle.Plate)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := time.Now().UTC()
	vehicle.CreatedAt, vehicle.UpdatedAt = now, now
	if _, err := d.Bun.NewInsert().Model(&vehicle).Exec(ctx); err != nil {
		// the unique (user_id, plate) index caught a concurrent insert
		if existing, findErr := d.FindVehicleByPlate(ctx, vehicle.UserID, vehicle.Plate); findErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("insert vehicle %s: %w", vehicle.Plate, err)
	}
	return &vehicle, true, nil
}
