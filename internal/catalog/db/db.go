package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// ListServices → whole catalog by name
func (d *DB) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := d.Bun.NewSelect().
		Model(&services).
		OrderExpr("name ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (d *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var service models.Service
	err := d.Bun.NewSelect().Model(&service).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &service, nil
}

// FindServiceByName → first service whose name contains text, ignoring case; nil, nil when none
func (d *DB) FindServiceByName(ctx context.Context, text string) (*models.Service, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var service models.Service
	err := d.Bun.NewSelect().
		Model(&service).
		Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(text))+"%").
		OrderExpr("name ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
