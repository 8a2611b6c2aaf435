package sse

import (
	"context"
	"sync"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

// BookingEventEmitter fans booking events out to live admin calendar streams.
type BookingEventEmitter struct {
	clients     map[chan models.BookingEvent]struct{}
	clientMutex sync.RWMutex
	buffer      int
}

func NewBookingEventEmitter() *BookingEventEmitter {
	return &BookingEventEmitter{
		clients: make(map[chan models.BookingEvent]struct{}),
		buffer:  10,
	}
}

// Subscribe registers a client until ctx is done; the channel is closed on removal.
func (e *BookingEventEmitter) Subscribe(ctx context.Context) <-chan models.BookingEvent {
	clientChan := make(chan models.BookingEvent, e.buffer)

	e.clientMutex.Lock()
	e.clients[clientChan] = struct{}{}
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(clientChan)
	}()

	return clientChan
}

// PublishBooking broadcasts without blocking; a client with a full buffer misses the event.
func (e *BookingEventEmitter) PublishBooking(_ context.Context, event models.BookingEvent) error {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()

	for clientChan := range e.clients {
		select {
		case clientChan <- event:
		default:
		}
	}
	return nil
}

func (e *BookingEventEmitter) remove(clientChan chan models.BookingEvent) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	if _, ok := e.clients[clientChan]; ok {
		delete(e.clients, clientChan)
		close(clientChan)
	}
}

// ClientCount returns the number of connected streams.
func (e *BookingEventEmitter) ClientCount() int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients)
}
