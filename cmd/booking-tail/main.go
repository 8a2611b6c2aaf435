package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Jackson16868/mcshop-bot/internal/config"
	"github.com/Jackson16868/mcshop-bot/internal/kafka"
	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/models"
)

// booking-tail follows the booking topics and prints one line per lifecycle event.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewWithWriter(os.Stderr, logger.ParseLevel(cfg.Log.Level))

	topics := cfg.Kafka.Topics.All()
	if known, err := kafka.ListTopics(cfg.Kafka.Brokers); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Could not list topics: %v", err))
	} else if missing := missingTopics(known, topics); len(missing) > 0 {
		log.Warn("KAFKA", fmt.Sprintf("Topics not created yet, waiting for the bot to publish: %v", missing))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topics, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("KAFKA", fmt.Sprintf("Tailing %v as group %s", topics, cfg.Kafka.GroupID))
	err := consumer.Start(ctx, func(topic string, event models.BookingEvent) {
		fmt.Println(formatEvent(topic, event))
	})
	if err != nil {
		log.Fatal("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
	}
}

func formatEvent(topic string, e models.BookingEvent) string {
	when := "unscheduled"
	if e.BookedAt != nil {
		when = e.BookedAt.Format("2006-01-02 15:04 MST")
	}
	plate := e.Plate
	if plate == "" {
		plate = "-"
	}
	return fmt.Sprintf("%s %-11s order=%d user=%d plate=%s status=%s at=%s (%s)",
		e.OccurredAt.Format("15:04:05"), e.Type, e.OrderID, e.UserID, plate, e.Status, when, topic)
}

func missingTopics(known, wanted []string) []string {
	have := make(map[string]bool, len(known))
	for _, t := range known {
		have[t] = true
	}
	var missing []string
	for _, t := range wanted {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing
}
