package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jackson16868/mcshop-bot/internal/conversation"
	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/utils"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, in conversation.Inbound) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Event is one inbound chat event: free text or a card action.
type Event struct {
	UserID string       `json:"user_id"`
	Text   string       `json:"text,omitempty"`
	Action *EventAction `json:"action,omitempty"`
}

type EventAction struct {
	Data   string            `json:"data"`
	Params map[string]string `json:"params,omitempty"`
}

type CallbackRequest struct {
	Events []Event `json:"events"`
}

type CallbackResult struct {
	Received int `json:"received"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

type Handler struct {
	Dispatcher Dispatcher
	DB         Pinger
	Logger     *logger.Logger

	// events of one user are handled one at a time
	locks userLocks
}

func NewHandler(dispatcher Dispatcher, db Pinger, log *logger.Logger) *Handler {
	return &Handler{Dispatcher: dispatcher, DB: db, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/callback", h.Callback)
	r.Get("/healthz", h.Health)
}

// Callback answers 200 once the body parses; failed events are counted in the result.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := CallbackResult{Received: len(req.Events)}
	for _, ev := range req.Events {
		in, ok := ev.inbound()
		if !ok {
			result.Skipped++
			continue
		}
		if err := h.dispatch(r.Context(), in); err != nil {
			h.Logger.Error("HTTP", fmt.Sprintf("Event from %s failed: %v", in.UserID, err))
			result.Failed++
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events processed", result))
}

func (h *Handler) dispatch(ctx context.Context, in conversation.Inbound) error {
	unlock := h.locks.acquire(in.UserID)
	defer unlock()
	return h.Dispatcher.Dispatch(ctx, in)
}

type userLock struct {
	sync.Mutex
	refs int
}

// userLocks keeps a mutex per user only while someone holds or waits for it.
type userLocks struct {
	mu    sync.Mutex
	byUID map[string]*userLock
}

func (l *userLocks) acquire(userID string) func() {
	l.mu.Lock()
	if l.byUID == nil {
		l.byUID = make(map[string]*userLock)
	}
	ul, ok := l.byUID[userID]
	if !ok {
		ul = &userLock{}
		l.byUID[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.byUID, userID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byUID)
}

func (ev Event) inbound() (conversation.Inbound, bool) {
	if ev.UserID == "" {
		return conversation.Inbound{}, false
	}
	in := conversation.Inbound{UserID: ev.UserID, Text: ev.Text}
	if ev.Action != nil {
		in.Action = ev.Action.Data
		in.Params = ev.Action.Params
	}
	if in.Text == "" && in.Action == "" {
		return conversation.Inbound{}, false
	}
	return in, true
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			utils.WriteError(w, http.StatusServiceUnavailable, "Database unreachable", err)
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}
