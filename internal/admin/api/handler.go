package admin_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jackson16868/mcshop-bot/internal/auth"
	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/models"
	"github.com/Jackson16868/mcshop-bot/internal/order"
	"github.com/Jackson16868/mcshop-bot/internal/utils"
)

type Calendar interface {
	CalendarEvents(ctx context.Context, start, end time.Time, loc *time.Location) ([]order.CalendarEvent, error)
}

type SlotFinder interface {
	Find(ctx context.Context, start time.Time, horizonDays, maxPerDay int) ([]time.Time, error)
}

type EventStream interface {
	Subscribe(ctx context.Context) <-chan models.BookingEvent
}

type Options struct {
	Location       *time.Location
	HorizonDays    int
	MaxSlotsPerDay int
}

// Handler serves the admin calendar feed, free slots and the live booking stream.
type Handler struct {
	Calendar Calendar
	Finder   SlotFinder
	Stream   EventStream
	Logger   *logger.Logger
	opts     Options
	now      func() time.Time
}

func NewHandler(calendar Calendar, finder SlotFinder, stream EventStream, opts Options, log *logger.Logger) *Handler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 14
	}
	if opts.MaxSlotsPerDay <= 0 {
		opts.MaxSlotsPerDay = 8
	}
	return &Handler{Calendar: calendar, Finder: finder, Stream: stream, Logger: log, opts: opts, now: time.Now}
}

// RegisterRoutes mounts the admin routes behind the admin token check.
func (h *Handler) RegisterRoutes(r chi.Router, secret string) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.AdminMiddleware(secret, h.Logger))
		r.Get("/calendar/events", h.GetCalendarEvents)
		r.Get("/calendar/stream", h.StreamBookings)
		r.Get("/slots", h.GetSlots)
	})
}

const dateLayout = "2006-01-02"

// parseInstant accepts RFC 3339 timestamps or plain dates in the shop time zone.
func (h *Handler) parseInstant(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, h.opts.Location); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateLayout, value, h.opts.Location); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", value)
}

// GetCalendarEvents returns a plain event array, the format calendar widgets consume.
func (h *Handler) GetCalendarEvents(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	start, err := h.parseInstant(r.URL.Query().Get("start"), now.AddDate(0, 0, -7))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := h.parseInstant(r.URL.Query().Get("end"), now.AddDate(0, 0, 30))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}
	if end.Before(start) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid range", errors.New("end is before start"))
		return
	}

	events, err := h.Calendar.CalendarEvents(r.Context(), start, end, h.opts.Location)
	if err != nil {
		h.Logger.Error("HTTP", fmt.Sprintf("Calendar events failed: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load calendar", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, events)
}

type Slot struct {
	Start time.Time `json:"start"`
	Label string    `json:"label"`
}

func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := h.now().In(h.opts.Location)

	start := now
	if from := q.Get("from"); from != "" {
		day, err := time.ParseInLocation(dateLayout, from, h.opts.Location)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid from, expected YYYY-MM-DD", err)
			return
		}
		if day.After(now) {
			start = day
		}
	}

	days, err := positiveParam(q.Get("days"), h.opts.HorizonDays, 60)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid days", err)
		return
	}
	perDay, err := positiveParam(q.Get("per_day"), h.opts.MaxSlotsPerDay, 48)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid per_day", err)
		return
	}

	found, err := h.Finder.Find(r.Context(), start, days, perDay)
	if err != nil {
		h.Logger.Error("HTTP", fmt.Sprintf("Slot search failed: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to find slots", err)
		return
	}

	slots := make([]Slot, len(found))
	for i, t := range found {
		local := t.In(h.opts.Location)
		slots[i] = Slot{Start: local, Label: local.Format("2006-01-02 15:04")}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Free slots", slots))
}

func positiveParam(value string, fallback, max int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > max {
		return 0, fmt.Errorf("must be between 1 and %d", max)
	}
	return n, nil
}

// StreamBookings pushes booking events as server-sent events until the client leaves.
func (h *Handler) StreamBookings(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	events := h.Stream.Subscribe(r.Context())
	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.Logger.Error("HTTP", fmt.Sprintf("Encode booking event: %v", err))
			continue
		}
		fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.EventID, event.Type, data)
		flusher.Flush()
	}
}
