package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Jackson16868/mcshop-bot/internal/config"
	"github.com/Jackson16868/mcshop-bot/internal/models"
)

// Sender is satisfied by *internal/kafka.Producer.
type Sender interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Publisher streams booking lifecycle events to one topic per event type.
type Publisher struct {
	Sender Sender
	Topics config.TopicConfig
}

func NewPublisher(sender Sender, topics config.TopicConfig) *Publisher {
	return &Publisher{Sender: sender, Topics: topics}
}

// PublishBooking keys the message by order id so one order's events stay ordered.
func (p *Publisher) PublishBooking(ctx context.Context, event models.BookingEvent) error {
	topic, err := p.topicFor(event.Type)
	if err != nil {
		return err
	}
	return p.Sender.Publish(ctx, topic, strconv.FormatInt(event.OrderID, 10), event)
}

func (p *Publisher) topicFor(kind models.BookingEventType) (string, error) {
	switch kind {
	case models.BookingCreated:
		return p.Topics.BookingCreated, nil
	case models.BookingRescheduled:
		return p.Topics.BookingRescheduled, nil
	case models.BookingCanceled:
		return p.Topics.BookingCanceled, nil
	default:
		return "", fmt.Errorf("unknown booking event type %q", kind)
	}
}
