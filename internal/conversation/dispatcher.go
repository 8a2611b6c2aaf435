package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/messaging"
	"github.com/Jackson16868/mcshop-bot/internal/models"
	"github.com/Jackson16868/mcshop-bot/internal/order"
	"github.com/Jackson16868/mcshop-bot/internal/schedule"
)

type Customers interface {
	GetOrCreateUser(ctx context.Context, externalID string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListVehicles(ctx context.Context, userID int64) ([]models.Vehicle, error)
	GetVehicleForUser(ctx context.Context, id, userID int64) (*models.Vehicle, error)
	FindVehicleByPlate(ctx context.Context, userID int64, plate string) (*models.Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, bool, error)
}

type Catalog interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	FindServiceByName(ctx context.Context, text string) (*models.Service, error)
}

type Conversations interface {
	Load(ctx context.Context, externalID string) (*models.Conversation, error)
	Save(ctx context.Context, conv *models.Conversation) error
}

type Orders interface {
	CreatePending(ctx context.Context, req order.CreateRequest) (*models.Order, error)
	Cancel(ctx context.Context, orderID, userID int64) (*models.Order, error)
	Reschedule(ctx context.Context, orderID, userID int64, when time.Time) (*models.Order, error)
	ListUpcoming(ctx context.Context, userID int64, limit int) ([]models.Order, error)
	ListRecent(ctx context.Context, userID int64, limit int) ([]models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
}

type Availability interface {
	Check(ctx context.Context, when time.Time) (schedule.Decision, error)
}

type SlotFinder interface {
	Find(ctx context.Context, start time.Time, horizonDays, maxPerDay int) ([]time.Time, error)
}

// Deps are the collaborators of a Dispatcher.
type Deps struct {
	Customers     Customers
	Catalog       Catalog
	Conversations Conversations
	Orders        Orders
	Checker       Availability
	Finder        SlotFinder
	Gateway       messaging.Gateway
	Logger        *logger.Logger
}

type Options struct {
	Location       *time.Location
	HorizonDays    int
	MaxSlotsPerDay int
	UpcomingLimit  int
	RecentLimit    int
	PageSize       int
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.HorizonDays <= 0 {
		o.HorizonDays = 14
	}
	if o.MaxSlotsPerDay <= 0 {
		o.MaxSlotsPerDay = 8
	}
	if o.UpcomingLimit <= 0 {
		o.UpcomingLimit = 5
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = 5
	}
	if o.PageSize <= 0 {
		o.PageSize = 6
	}
	return o
}

// Inbound is one user event: free text or an action code with optional parameters.
type Inbound struct {
	UserID string
	Text   string
	Action string
	Params map[string]string
}

// ErrTransport wraps a failed reply delivery after state was already committed.
var ErrTransport = errors.New("reply delivery failed")

type handler func(t *turn) (outcome, error)

// Dispatcher runs exactly one state transition per inbound event.
type Dispatcher struct {
	Deps
	opts   Options
	now    func() time.Time
	states map[State]handler
}

func NewDispatcher(deps Deps, opts Options) *Dispatcher {
	d := &Dispatcher{Deps: deps, opts: opts.withDefaults(), now: time.Now}
	d.states = map[State]handler{
		StateIdle:              d.onIdle,
		StateAskName:           d.onAskName,
		StateAskPhone:          d.onAskPhone,
		StateChooseVehicle:     d.onChooseVehicle,
		StateAskPlate:          d.onAskPlate,
		StateVehicleAddPlate:   d.onVehicleAddPlate,
		StateVehicleAddBrand:   d.onVehicleAddBrand,
		StateVehicleAddModel:   d.onVehicleAddModel,
		StateAskService:        d.onAskService,
		StateAskDatetime:       d.onAskDatetime,
		StateConfirm:           d.onConfirm,
		StateChooseOrderAction: d.onChooseOrderAction,
		StateCancelConfirm:     d.onCancelConfirm,
		StateRescheduleAskTime: d.onRescheduleAskTime,
		StateSettingsMenu:      d.onSettingsMenu,
		StateSetName:           d.onSetName,
		StateSetPhone:          d.onSetPhone,
		StateSetPlate:          d.onSetPlate,
	}
	return d
}

// SetClock replaces the time source.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// turn is the context of one transition.
type turn struct {
	ctx   context.Context
	user  *models.User
	state State
	draft Draft
	in    Inbound
	text  string
}

type outcome struct {
	state State
	draft Draft
	reply messaging.Message
}

func (t *turn) stay(reply messaging.Message) outcome {
	return outcome{state: t.state, draft: t.draft, reply: reply}
}

func reset(reply messaging.Message) outcome {
	return outcome{state: StateIdle, reply: reply}
}

// Dispatch handles one inbound event and sends exactly one reply. Persisted writes of the
// transition happen before the conversation is saved, and the save happens before the reply.
// A failed transition sends an apology and leaves the conversation untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, in Inbound) error {
	if strings.TrimSpace(in.UserID) == "" {
		return errors.New("inbound event without user id")
	}

	reply, err := d.transition(ctx, in)
	if err != nil {
		d.Logger.Error("CONVERSATION", fmt.Sprintf("Transition for %s failed: %v", in.UserID, err))
		if sendErr := d.Gateway.Send(ctx, in.UserID, msgApology()); sendErr != nil {
			d.Logger.Error("TRANSPORT", fmt.Sprintf("Apology to %s not delivered: %v", in.UserID, sendErr))
		}
		return err
	}

	if err := d.Gateway.Send(ctx, in.UserID, reply); err != nil {
		d.Logger.Error("TRANSPORT", fmt.Sprintf("Reply to %s not delivered: %v", in.UserID, err))
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

func (d *Dispatcher) transition(ctx context.Context, in Inbound) (reply messaging.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in transition: %v", r)
		}
	}()

	user, err := d.Customers.GetOrCreateUser(ctx, in.UserID)
	if err != nil {
		return messaging.Message{}, fmt.Errorf("load user: %w", err)
	}
	conv, err := d.Conversations.Load(ctx, in.UserID)
	if err != nil {
		return messaging.Message{}, fmt.Errorf("load conversation: %w", err)
	}

	t := &turn{ctx: ctx, user: user, in: in, text: strings.TrimSpace(in.Text)}
	t.state, t.draft = restore(conv)

	out, err := d.route(t)
	if err != nil {
		return messaging.Message{}, err
	}

	previous := conv.State
	conv.State = out.state.String()
	conv.Payload = out.draft.Encode()
	if err := d.Conversations.Save(ctx, conv); err != nil {
		return messaging.Message{}, fmt.Errorf("save conversation: %w", err)
	}
	if previous != conv.State {
		d.Logger.LogConversation(in.UserID, previous, conv.State)
	}
	return out.reply, nil
}

// restore parses the stored row; an unknown state or a draft that does not fit the state
// falls back to idle.
func restore(conv *models.Conversation) (State, Draft) {
	state, ok := ParseState(conv.State)
	if !ok {
		return StateIdle, Draft{}
	}
	draft := DecodeDraft(conv.Payload)
	want := state.draftKind()
	if want != draftNone && draft.kind() != want {
		return StateIdle, Draft{}
	}
	return state, draft
}

// route runs the global filter before the state handler: cancel always wins, then the
// top-level keywords, then whatever the current state expects.
func (d *Dispatcher) route(t *turn) (outcome, error) {
	if t.in.Action != "" {
		return d.onAction(t, parseAction(t.in.Action))
	}

	switch matchCommand(t.text) {
	case cmdCancel:
		return reset(msgFlowCanceled()), nil
	case cmdBook:
		return d.startBooking(t, nil)
	case cmdMyBookings:
		return d.showRecentOrders(t)
	case cmdCancelBooking:
		return d.startOrderPick(t, OrderActionCancel)
	case cmdReschedule:
		return d.startOrderPick(t, OrderActionReschedule)
	case cmdMyVehicles:
		return d.showVehicles(t)
	case cmdAddVehicle:
		return d.startAddVehicle(t)
	case cmdSettings:
		return outcome{state: StateSettingsMenu, reply: msgSettingsMenu()}, nil
	case cmdSetName:
		return outcome{state: StateSetName, reply: msgAskNewName()}, nil
	case cmdSetPhone:
		return outcome{state: StateSetPhone, reply: msgAskNewPhone()}, nil
	case cmdSetPlate:
		return outcome{state: StateSetPlate, reply: msgAskPreferredPlate()}, nil
	}

	h, ok := d.states[t.state]
	if !ok {
		return reset(msgHelp()), nil
	}
	return h(t)
}

func (d *Dispatcher) onIdle(t *turn) (outcome, error) {
	return reset(msgHelp()), nil
}

// onAction handles card buttons. Buttons outside the step they were made for get an
// explicit "expired" reply instead of being applied.
func (d *Dispatcher) onAction(t *turn, a actionCode) (outcome, error) {
	switch a.Name {
	case ActFlowCancel:
		return reset(msgFlowCanceled()), nil
	case ActBook:
		return d.startBooking(t, nil)
	case ActMyOrders, ActBackMyOrders:
		return d.showRecentOrders(t)
	case ActMyVehicles:
		return d.showVehicles(t)
	case ActVehicleAdd:
		return d.startAddVehicle(t)
	case ActVehicleUse:
		return d.useVehicle(t, a)
	case ActVehiclePick:
		if t.state != StateChooseVehicle {
			return t.stay(msgExpired()), nil
		}
		n, err := parseIndex(a.Arg)
		if err != nil {
			return t.stay(msgVehicleChoiceFormat()), nil
		}
		return d.pickVehicleOption(t, n)
	case ActServicePick, ActServicePrev, ActServiceNext, ActServiceNop:
		if t.state != StateAskService {
			return t.stay(msgExpired()), nil
		}
		return d.onServiceAction(t, a)
	case ActSlotPick, ActSlotPrev, ActSlotNext, ActNewBooking:
		if t.state != StateAskDatetime {
			return t.stay(msgExpired()), nil
		}
		return d.onSlotAction(t, a)
	case ActConfirmSubmit:
		if t.state != StateConfirm {
			return t.stay(msgExpired()), nil
		}
		return d.submitBooking(t)
	case ActOrderPick:
		if t.state != StateChooseOrderAction {
			return t.stay(msgExpired()), nil
		}
		n, err := parseIndex(a.Arg)
		if err != nil {
			return t.stay(msgOrderChoiceFormat()), nil
		}
		return d.pickOrder(t, n)
	case ActCancel:
		return d.focusOrder(t, a, OrderActionCancel)
	case ActReschedule:
		return d.focusOrder(t, a, OrderActionReschedule)
	case ActCancelConfirm:
		id, ok := a.id()
		if !ok {
			return t.stay(msgExpired()), nil
		}
		return d.cancelOrder(t, id)
	case ActRescheduleAt:
		id, ok := a.id()
		if !ok {
			return t.stay(msgExpired()), nil
		}
		when, err := d.parsePicked(t.in.Params[PickerParam])
		if err != nil {
			return t.stay(msgDatetimeFormat()), nil
		}
		return d.rescheduleOrder(t, id, when)
	case ActSettingsName:
		return outcome{state: StateSetName, reply: msgAskNewName()}, nil
	case ActSettingsPhone:
		return outcome{state: StateSetPhone, reply: msgAskNewPhone()}, nil
	case ActSettingsPlate:
		return outcome{state: StateSetPlate, reply: msgAskPreferredPlate()}, nil
	default:
		return t.stay(msgExpired()), nil
	}
}

const textLayout = "2006-01-02 15:04"

func (d *Dispatcher) parseText(text string) (time.Time, error) {
	return time.ParseInLocation(textLayout, strings.TrimSpace(text), d.opts.Location)
}

func (d *Dispatcher) parsePicked(value string) (time.Time, error) {
	return time.ParseInLocation(messaging.PickerLayout, strings.TrimSpace(value), d.opts.Location)
}

func (d *Dispatcher) format(t time.Time) string {
	return t.In(d.opts.Location).Format(textLayout)
}
