package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Jackson16868/mcshop-bot/internal/config"
	"github.com/Jackson16868/mcshop-bot/internal/models"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(topic, key, value)
	return args.Error(0)
}

var testTopics = config.TopicConfig{
	BookingCreated:     "t.created",
	BookingRescheduled: "t.rescheduled",
	BookingCanceled:    "t.canceled",
}

func TestPublishBooking_RoutesByType(t *testing.T) {
	cases := map[models.BookingEventType]string{
		models.BookingCreated:     "t.created",
		models.BookingRescheduled: "t.rescheduled",
		models.BookingCanceled:    "t.canceled",
	}
	for kind, topic := range cases {
		sender := new(MockSender)
		ev := models.BookingEvent{Type: kind, OrderID: 42}
		sender.On("Publish", topic, "42", ev).Return(nil)

		p := NewPublisher(sender, testTopics)
		require.NoError(t, p.PublishBooking(context.Background(), ev))
		sender.AssertExpectations(t)
	}
}

func TestPublishBooking_UnknownType(t *testing.T) {
	sender := new(MockSender)
	p := NewPublisher(sender, testTopics)

	err := p.PublishBooking(context.Background(), models.BookingEvent{Type: "paid"})
	assert.Error(t, err)
	sender.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
