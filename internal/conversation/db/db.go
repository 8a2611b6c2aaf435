package db

import (
	"context"
	"database/sql"
	"errors"
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

// Load → the conversation of a chat identity, created idle on first contact
func (d *DB) Load(ctx context.Context, externalID string) (*models.Conversation, error) {
	conv, err := d.get(ctx, externalID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	conv = &models.Conversation{
		ExternalID: externalID,
		State:      "idle",
		Payload:    "{}",
		UpdatedAt:  time.Now().UTC(),
	}
	if _, err := d.Bun.NewInsert().Model(conv).Exec(ctx); err != nil {
		if existing, getErr := d.get(ctx, externalID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return conv, nil
}

func (d *DB) get(ctx context.Context, externalID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := d.Bun.NewSelect().
		Model(&conv).
		Where("external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Save → persist state and payload; last write wins
func (d *DB) Save(ctx context.Context, conv *models.Conversation) error {
	conv.UpdatedAt = time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model(conv).
		Column("state", "payload", "updated_at").
		Where("external_id = ?", conv.ExternalID).
		Exec(ctx)
	return err
}
