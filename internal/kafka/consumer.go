package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/models"
)

type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer reads all given topics as one consumer group
func NewConsumer(brokers, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start consumes booking events until ctx is canceled.
func (c *Consumer) Start(ctx context.Context, handler func(topic string, event models.BookingEvent)) error {
	c.logger.Info("KAFKA", "Booking event consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			return err
		}

		event, err := DecodeBookingEvent(msg)
		if err != nil {
			c.logger.Warn("KAFKA", err.Error())
			continue
		}
		handler(msg.Topic, event)
	}
}

// DecodeBookingEvent parses a booking lifecycle message.
func DecodeBookingEvent(msg kafka.Message) (models.BookingEvent, error) {
	var event models.BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return models.BookingEvent{}, fmt.Errorf("failed to unmarshal message on %s at offset %d: %w", msg.Topic, msg.Offset, err)
	}
	return event, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
