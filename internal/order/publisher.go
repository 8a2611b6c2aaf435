package order

import (
	"context"
	"errors"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

// MultiPublisher fans one booking event out to several sinks.
type MultiPublisher []EventPublisher

func (m MultiPublisher) PublishBooking(ctx context.Context, event models.BookingEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishBooking(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
