package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/models"
	"github.com/Jackson16868/mcshop-bot/internal/schedule"
)

// ErrNotFound covers orders that are missing, owned by someone else, or no longer movable.
var ErrNotFound = errors.New("order not found")

type DBLayer interface {
	InsertGuarded(ctx context.Context, order *models.Order, items []models.OrderItem, bucket *schedule.Bucket) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderForUser(ctx context.Context, id, userID int64) (*models.Order, error)
	CancelOrder(ctx context.Context, id, userID int64) (bool, error)
	RescheduleGuarded(ctx context.Context, id, userID int64, when time.Time, bucket schedule.Bucket) (*models.Order, error)
	ListUpcoming(ctx context.Context, userID int64, now time.Time, limit int) ([]models.Order, error)
	ListRecent(ctx context.Context, userID int64, limit int) ([]models.Order, error)
	ListBookedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error)
}

type CapacityChecker interface {
	Check(ctx context.Context, when time.Time) (schedule.Decision, error)
}

type BucketLock interface {
	Acquire(ctx context.Context, bucketKey string) (release func(), ok bool, err error)
}

type EventPublisher interface {
	PublishBooking(ctx context.Context, event models.BookingEvent) error
}

type OrderService struct {
	DB      DBLayer
	Checker CapacityChecker
	Lock    BucketLock
	Events  EventPublisher
	Logger  *logger.Logger
	now     func() time.Time
}

// NewOrderService wires the aggregate. lock and events may be nil.
func NewOrderService(db DBLayer, checker CapacityChecker, lock BucketLock, events EventPublisher, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:      db,
		Checker: checker,
		Lock:    lock,
		Events:  events,
		Logger:  log,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for "upcoming" filtering.
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

type CreateRequest struct {
	UserID    int64
	VehicleID *int64
	ServiceID int64
	BookedAt  *time.Time
	Note      string
}

// ---------------- LIFECYCLE ----------------

// CreatePending stores a pending order with one zero-priced item. A set BookedAt must pass
// the capacity check, and the bucket count is re-read in the insert transaction.
func (s *OrderService) CreatePending(ctx context.Context, req CreateRequest) (*models.Order, error) {
	order := &models.Order{
		UserID:    req.UserID,
		VehicleID: req.VehicleID,
		Status:    models.OrderStatusPending,
		Note:      req.Note,
	}
	items := []models.OrderItem{{ServiceID: req.ServiceID, Qty: 1}}

	if req.BookedAt == nil {
		if err := s.DB.InsertGuarded(ctx, order, items, nil); err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
	} else {
		when := req.BookedAt.UTC()
		order.BookedAt = &when

		err := s.withBucket(ctx, when, func(bucket schedule.Bucket) error {
			return s.DB.InsertGuarded(ctx, order, items, &bucket)
		})
		if err != nil {
			return nil, err
		}
	}

	s.Logger.LogBooking("CREATE", order.ID, fmt.Sprintf("user=%d status=%s", order.UserID, order.Status))
	s.publish(ctx, models.BookingCreated, order)
	return order, nil
}

// Cancel marks the user's order canceled. Canceling a canceled order is a successful no-op.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	order, err := s.DB.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	if order.Status == models.OrderStatusCanceled {
		return order, nil
	}

	changed, err := s.DB.CancelOrder(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	order.Status = models.OrderStatusCanceled
	if !changed {
		// a concurrent request got there first
		return order, nil
	}

	s.Logger.LogBooking("CANCEL", order.ID, fmt.Sprintf("user=%d", userID))
	s.publish(ctx, models.BookingCanceled, order)
	return order, nil
}

// Reschedule moves an active order to when after a capacity check. A pending order becomes
// confirmed; a confirmed one stays confirmed.
func (s *OrderService) Reschedule(ctx context.Context, orderID, userID int64, when time.Time) (*models.Order, error) {
	current, err := s.DB.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	if !current.Status.Active() {
		return nil, ErrNotFound
	}

	var updated *models.Order
	err = s.withBucket(ctx, when, func(bucket schedule.Bucket) error {
		var err error
		updated, err = s.DB.RescheduleGuarded(ctx, orderID, userID, when, bucket)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	updated.Vehicle = current.Vehicle
	updated.Items = current.Items

	s.Logger.LogBooking("RESCHEDULE", updated.ID, fmt.Sprintf("user=%d status=%s->%s", userID, current.Status, updated.Status))
	s.publish(ctx, models.BookingRescheduled, updated)
	return updated, nil
}

// withBucket runs write once when is accepted, holding the bucket lock when one is configured.
func (s *OrderService) withBucket(ctx context.Context, when time.Time, write func(schedule.Bucket) error) error {
	decision, err := s.Checker.Check(ctx, when)
	if err != nil {
		return fmt.Errorf("check capacity: %w", err)
	}
	if !decision.Accepted {
		return decision.Err()
	}

	if s.Lock != nil {
		release, ok, err := s.Lock.Acquire(ctx, decision.Bucket.Key())
		if err != nil {
			return err
		}
		if !ok {
			return schedule.ErrBucketBusy
		}
		defer release()
	}
	return write(decision.Bucket)
}

// ---------------- QUERIES ----------------

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.DB.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

// ListUpcoming returns active orders that are unscheduled or still ahead, unscheduled first.
func (s *OrderService) ListUpcoming(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	return s.DB.ListUpcoming(ctx, userID, s.now(), limit)
}

// ListRecent returns the latest orders of any status, newest first.
func (s *OrderService) ListRecent(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	return s.DB.ListRecent(ctx, userID, limit)
}

// CalendarEvent is one block on the admin calendar.
type CalendarEvent struct {
	ID     int64              `json:"id"`
	Title  string             `json:"title"`
	Start  time.Time          `json:"start"`
	End    time.Time          `json:"end"`
	Color  string             `json:"color"`
	Status models.OrderStatus `json:"status"`
}

const (
	calendarBlock       = 60 * time.Minute
	calendarActiveColor = "#2E86C1"
	calendarIdleColor   = "#999999"
)

// CalendarEvents lists scheduled orders of every user with booked_at in [start, end],
// rendered in loc.
func (s *OrderService) CalendarEvents(ctx context.Context, start, end time.Time, loc *time.Location) ([]CalendarEvent, error) {
	orders, err := s.DB.ListBookedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list booked orders: %w", err)
	}

	events := make([]CalendarEvent, 0, len(orders))
	for _, o := range orders {
		if o.BookedAt == nil {
			continue
		}
		title := fmt.Sprintf("#%d %s", o.ID, o.Status)
		if plate := o.Plate(); plate != "" {
			title = fmt.Sprintf("#%d %s %s", o.ID, plate, o.Status)
		}
		color := calendarIdleColor
		if o.Status.Active() {
			color = calendarActiveColor
		}
		begin := o.BookedAt.In(loc)
		events = append(events, CalendarEvent{
			ID:     o.ID,
			Title:  title,
			Start:  begin,
			End:    begin.Add(calendarBlock),
			Color:  color,
			Status: o.Status,
		})
	}
	return events, nil
}

func (s *OrderService) publish(ctx context.Context, kind models.BookingEventType, order *models.Order) {
	if s.Events == nil {
		return
	}
	event := models.BookingEvent{
		EventID:    uuid.NewString(),
		Type:       kind,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		BookedAt:   order.BookedAt,
		Plate:      order.Plate(),
		OccurredAt: s.now().UTC(),
	}
	if err := s.Events.PublishBooking(ctx, event); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("Publish %s event for order %d failed: %v", kind, order.ID, err))
	}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
