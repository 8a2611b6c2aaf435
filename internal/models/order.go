package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// ActiveStatuses are the statuses that hold capacity in a bucket.
var ActiveStatuses = []OrderStatus{OrderStatusPending, OrderStatusConfirmed}

func (s OrderStatus) Active() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID        int64       `bun:"id,pk,autoincrement" json:"id"`
	UserID    int64       `bun:"user_id,notnull" json:"user_id"`
	VehicleID *int64      `bun:"vehicle_id" json:"vehicle_id,omitempty"`
	Status    OrderStatus `bun:"status,notnull,default:'pending'" json:"status"`
	BookedAt  *time.Time  `bun:"booked_at" json:"booked_at,omitempty"`
	Note      string      `bun:"note,nullzero" json:"note,omitempty"`
	CreatedAt time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Vehicle *Vehicle    `bun:"rel:belongs-to,join:vehicle_id=id" json:"vehicle,omitempty"`
	Items   []OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
}

// Plate is the plate of the bound vehicle, or empty.
func (o Order) Plate() string {
	if o.Vehicle == nil {
		return ""
	}
	return o.Vehicle.Plate
}

// OrderItem carries a pricing snapshot; the booking flow always writes zero prices.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID        int64 `bun:"id,pk,autoincrement" json:"id"`
	OrderID   int64 `bun:"order_id,notnull" json:"order_id"`
	ServiceID int64 `bun:"service_id,notnull" json:"service_id"`
	Qty       int   `bun:"qty,notnull,default:1" json:"qty"`
	UnitPrice int   `bun:"unit_price,notnull,default:0" json:"unit_price"`
	Subtotal  int   `bun:"subtotal,notnull,default:0" json:"subtotal"`

	Service *Service `bun:"rel:belongs-to,join:service_id=id" json:"service,omitempty"`
}
