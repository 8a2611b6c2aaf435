package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Service is a catalog entry. The booking flow only reads it.
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name,unique,notnull" json:"name"`
	BasePrice     int       `bun:"base_price,notnull,default:0" json:"base_price"`
	DurationMin   int       `bun:"duration_min,notnull,default:30" json:"duration_min"`
	RecommendDays int       `bun:"recommend_days,notnull,default:180" json:"recommend_days"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Minutes falls back to 30 when no duration was configured.
func (s Service) Minutes() int {
	if s.DurationMin <= 0 {
		return 30
	}
	return s.DurationMin
}
