package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Vehicle struct {
	bun.BaseModel `bun:"table:vehicles"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID    int64     `bun:"user_id,notnull,unique:uq_vehicle_user_plate" json:"user_id"`
	Plate     string    `bun:"plate,notnull,unique:uq_vehicle_user_plate" json:"plate"`
	Brand     string    `bun:"brand,nullzero" json:"brand,omitempty"`
	Model     string    `bun:"model,nullzero" json:"model,omitempty"`
	Year      int       `bun:"year,nullzero" json:"year,omitempty"`
	Note      string    `bun:"note,nullzero" json:"note,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Label renders "PLATE｜brand model" without trailing blanks.
func (v Vehicle) Label() string {
	desc := v.Brand
	if v.Model != "" {
		if desc != "" {
			desc += " "
		}
		desc += v.Model
	}
	if desc == "" {
		return v.Plate
	}
	return v.Plate + "｜" + desc
}
