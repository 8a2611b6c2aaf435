package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Conversation is the per-user dialogue cursor. Payload holds a JSON object.
type Conversation struct {
	bun.BaseModel `bun:"table:conversations"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	ExternalID string    `bun:"external_id,unique,notnull" json:"external_id"`
	State      string    `bun:"state,notnull,default:'idle'" json:"state"`
	Payload    string    `bun:"payload,type:text,notnull,default:'{}'" json:"payload"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
