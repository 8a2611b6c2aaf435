package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is keyed by the opaque chat identity of the person talking to the bot.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	ExternalID string    `bun:"external_id,unique,notnull" json:"external_id"`
	Name       string    `bun:"name,nullzero" json:"name,omitempty"`
	Phone      string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Note       string    `bun:"note,nullzero" json:"note,omitempty"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
