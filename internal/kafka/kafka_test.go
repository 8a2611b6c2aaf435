package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/models"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublish_WritesJSONWithTopicAndKey(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w, Logger: logger.Nop()}

	ev := models.BookingEvent{EventID: "e1", Type: models.BookingCreated, OrderID: 7, Status: models.OrderStatusPending}
	require.NoError(t, p.Publish(context.Background(), "mcshop.booking.created", "7", ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "mcshop.booking.created", w.msgs[0].Topic)
	assert.Equal(t, "7", string(w.msgs[0].Key))

	var got models.BookingEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, int64(7), got.OrderID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublish_WriterError(t *testing.T) {
	p := &Producer{Writer: &recordingWriter{err: errors.New("broker down")}, Logger: logger.Nop()}
	err := p.Publish(context.Background(), "t", "k", map[string]int{"a": 1})
	assert.ErrorContains(t, err, "broker down")
}

func TestPublish_MarshalError(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{Writer: w, Logger: logger.Nop()}
	err := p.Publish(context.Background(), "t", "k", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, w.msgs)
}

func TestDecodeBookingEvent(t *testing.T) {
	when := time.Date(2025, 10, 20, 6, 30, 0, 0, time.UTC)
	raw, err := json.Marshal(models.BookingEvent{OrderID: 3, Type: models.BookingRescheduled, BookedAt: &when})
	require.NoError(t, err)

	ev, err := DecodeBookingEvent(kafka.Message{Topic: "x", Value: raw})
	require.NoError(t, err)
	assert.Equal(t, models.BookingRescheduled, ev.Type)
	require.NotNil(t, ev.BookedAt)
	assert.True(t, when.Equal(*ev.BookedAt))

	_, err = DecodeBookingEvent(kafka.Message{Topic: "x", Value: []byte("{not json")})
	assert.Error(t, err)
}

func TestEnsureTopicsExist_NoBrokers(t *testing.T) {
	assert.Error(t, EnsureTopicsExist(nil, []string{"a"}, logger.Nop()))
	_, err := ListTopics(nil)
	assert.Error(t, err)
}
