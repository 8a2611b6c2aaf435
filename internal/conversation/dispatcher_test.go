package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	catalogdb "github.com/Jackson16868/mcshop-bot/internal/catalog/db"
	convdb "github.com/Jackson16868/mcshop-bot/internal/conversation/db"
	customerdb "github.com/Jackson16868/mcshop-bot/internal/customer/db"
	"github.com/Jackson16868/mcshop-bot/internal/database"
	"github.com/Jackson16868/mcshop-bot/internal/logger"
	"github.com/Jackson16868/mcshop-bot/internal/messaging"
	"github.com/Jackson16868/mcshop-bot/internal/models"
	"github.com/Jackson16868/mcshop-bot/internal/order"
	orderdb "github.com/Jackson16868/mcshop-bot/internal/order/db"
	"github.com/Jackson16868/mcshop-bot/internal/schedule"
	scheduledb "github.com/Jackson16868/mcshop-bot/internal/schedule/db"
)

// Sunday; the shop opens Monday 2025-10-20 09:00.
var fixedNow = time.Date(2025, 10, 19, 10, 0, 0, 0, time.UTC)

type recordingGateway struct {
	mu   sync.Mutex
	sent []messaging.Message
	err  error
}

func (g *recordingGateway) Send(_ context.Context, _ string, msg messaging.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	return g.err
}

func (g *recordingGateway) last() messaging.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return messaging.Message{}
	}
	return g.sent[len(g.sent)-1]
}

type harness struct {
	t         *testing.T
	ctx       context.Context
	bun       *bun.DB
	customers *customerdb.DB
	catalog   *catalogdb.DB
	convs     *convdb.DB
	orders    *order.OrderService
	gateway   *recordingGateway
	d         *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	bunDB, err := database.OpenSQLiteMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })
	_, _, err = database.Seed(ctx, bunDB)
	require.NoError(t, err)

	checker := schedule.NewChecker(scheduledb.New(bunDB), time.UTC)
	orders := order.NewOrderService(orderdb.New(bunDB), checker, nil, nil, logger.Nop())
	orders.SetClock(func() time.Time { return fixedNow })

	h := &harness{
		t:         t,
		ctx:       ctx,
		bun:       bunDB,
		customers: customerdb.New(bunDB),
		catalog:   catalogdb.New(bunDB),
		convs:     convdb.New(bunDB),
		orders:    orders,
		gateway:   &recordingGateway{},
	}
	h.d = NewDispatcher(Deps{
		Customers:     h.customers,
		Catalog:       h.catalog,
		Conversations: h.convs,
		Orders:        orders,
		Checker:       checker,
		Finder:        schedule.NewFinder(checker, 24),
		Gateway:       h.gateway,
		Logger:        logger.Nop(),
	}, Options{Location: time.UTC})
	h.d.SetClock(func() time.Time { return fixedNow })
	return h
}

func (h *harness) say(user string, texts ...string) messaging.Message {
	h.t.Helper()
	for _, text := range texts {
		require.NoError(h.t, h.d.Dispatch(h.ctx, Inbound{UserID: user, Text: text}), text)
	}
	return h.gateway.last()
}

func (h *harness) act(user, code string, params map[string]string) messaging.Message {
	h.t.Helper()
	require.NoError(h.t, h.d.Dispatch(h.ctx, Inbound{UserID: user, Action: code, Params: params}), code)
	return h.gateway.last()
}

func (h *harness) state(user string) (State, Draft) {
	h.t.Helper()
	conv, err := h.convs.Load(h.ctx, user)
	require.NoError(h.t, err)
	return restore(conv)
}

func (h *harness) setState(user string, state State, draft Draft) {
	h.t.Helper()
	conv, err := h.convs.Load(h.ctx, user)
	require.NoError(h.t, err)
	conv.State = state.String()
	conv.Payload = draft.Encode()
	require.NoError(h.t, h.convs.Save(h.ctx, conv))
}

func (h *harness) user(external string) *models.User {
	h.t.Helper()
	u, err := h.customers.GetOrCreateUser(h.ctx, external)
	require.NoError(h.t, err)
	return u
}

func (h *harness) service(name string) *models.Service {
	h.t.Helper()
	svc, err := h.catalog.FindServiceByName(h.ctx, name)
	require.NoError(h.t, err)
	require.NotNil(h.t, svc)
	return svc
}

func (h *harness) book(userID int64, when time.Time) *models.Order {
	h.t.Helper()
	o, err := h.orders.CreatePending(h.ctx, order.CreateRequest{
		UserID:    userID,
		ServiceID: h.service("inspection").ID,
		BookedAt:  &when,
	})
	require.NoError(h.t, err)
	return o
}

func (h *harness) recent(userID int64) []models.Order {
	h.t.Helper()
	orders, err := h.orders.ListRecent(h.ctx, userID, 10)
	require.NoError(h.t, err)
	return orders
}

func (h *harness) setMondayCapacity(capacity int) {
	h.t.Helper()
	_, err := h.bun.NewUpdate().
		Model((*models.ShopSlot)(nil)).
		Set("capacity = ?", capacity).
		Where("weekday = 0").
		Exec(h.ctx)
	require.NoError(h.t, err)
}

func TestEveryStateHasAHandler(t *testing.T) {
	d := NewDispatcher(Deps{}, Options{})
	for _, s := range AllStates() {
		_, ok := d.states[s]
		assert.True(t, ok, s.String())
	}
}

func draftFor(s State) Draft {
	switch s.draftKind() {
	case draftBooking:
		return Draft{Booking: &BookingDraft{}}
	case draftOrderPick:
		return Draft{OrderPick: &OrderPickDraft{Action: OrderActionCancel}}
	case draftVehicle:
		return Draft{Vehicle: &VehicleDraft{}}
	default:
		return Draft{}
	}
}

func TestCancelResetsFromEveryState(t *testing.T) {
	h := newHarness(t)
	for _, s := range AllStates() {
		h.setState("U1", s, draftFor(s))
		h.say("U1", "cancel")
		state, draft := h.state("U1")
		assert.Equal(t, StateIdle, state, s.String())
		assert.Equal(t, Draft{}, draft, s.String())

		h.setState("U1", s, draftFor(s))
		h.act("U1", ActFlowCancel, nil)
		state, _ = h.state("U1")
		assert.Equal(t, StateIdle, state, s.String())
	}
}

func TestBookingHappyPath(t *testing.T) {
	h := newHarness(t)

	h.say("U1", "book")
	state, _ := h.state("U1")
	assert.Equal(t, StateAskName, state)

	h.say("U1", "Jane")
	reply := h.say("U1", "12345")
	assert.Equal(t, msgPhoneFormat(), reply)
	state, _ = h.state("U1")
	assert.Equal(t, StateAskPhone, state)

	h.say("U1", "0912345678")
	state, _ = h.state("U1")
	assert.Equal(t, StateAskPlate, state)

	reply = h.say("U1", "abc 1234")
	state, draft := h.state("U1")
	assert.Equal(t, StateAskService, state)
	assert.Equal(t, "ABC1234", draft.Booking.Plate)
	assert.NotZero(t, draft.Booking.VehicleID)
	require.NotNil(t, reply.Card)
	assert.Contains(t, reply.Codes(), ActFlowCancel)

	reply = h.say("U1", "inspection")
	state, draft = h.state("U1")
	assert.Equal(t, StateAskDatetime, state)
	assert.Equal(t, "General inspection", draft.Booking.ServiceName)
	assert.Contains(t, reply.Codes(), "SLOT_PICK:2025-10-20 09:00")

	reply = h.say("U1", "2025-10-20 09:05")
	state, draft = h.state("U1")
	assert.Equal(t, StateConfirm, state)
	assert.Equal(t, "2025-10-20 09:05", draft.Booking.BookedAt)
	assert.Contains(t, reply.String(), "General inspection")

	h.say("U1", "confirm")
	state, draft = h.state("U1")
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, Draft{}, draft)

	u := h.user("U1")
	assert.Equal(t, "Jane", u.Name)
	assert.Equal(t, "0912345678", u.Phone)

	orders := h.recent(u.ID)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusPending, orders[0].Status)
	assert.Equal(t, "plate:ABC1234", orders[0].Note)
	require.NotNil(t, orders[0].BookedAt)
	assert.True(t, orders[0].BookedAt.Equal(time.Date(2025, 10, 20, 9, 5, 0, 0, time.UTC)))
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, 1, orders[0].Items[0].Qty)
	assert.Equal(t, 0, orders[0].Items[0].UnitPrice)
}

func TestBookingFullBucketReprompts(t *testing.T) {
	h := newHarness(t)
	h.setMondayCapacity(1)
	other := h.user("U2")
	h.book(other.ID, time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC))

	h.say("U1", "book", "Jane", "0912345678", "ABC-1234", "inspection")
	reply := h.say("U1", "2025-10-20 09:10")
	state, _ := h.state("U1")
	assert.Equal(t, StateAskDatetime, state)
	assert.Equal(t, schedule.ReasonSlotFull.Message(), reply.Text)

	reply = h.say("U1", "2025-10-19 12:00")
	assert.Equal(t, schedule.ReasonDayClosed.Message(), reply.Text)
	reply = h.say("U1", "2025-10-20 18:00")
	assert.Equal(t, schedule.ReasonOutsideHours.Message(), reply.Text)
	reply = h.say("U1", "tomorrow")
	assert.Equal(t, msgDatetimeFormat(), reply)

	h.say("U1", "2025-10-20 09:30")
	state, _ = h.state("U1")
	assert.Equal(t, StateConfirm, state)
}

func TestConfirmLosesRaceReturnsToTimeSelection(t *testing.T) {
	h := newHarness(t)
	h.setMondayCapacity(1)

	h.say("U1", "book", "Jane", "0912345678", "ABC-1234", "inspection", "2025-10-20 09:00")
	state, _ := h.state("U1")
	require.Equal(t, StateConfirm, state)

	h.book(h.user("U2").ID, time.Date(2025, 10, 20, 9, 15, 0, 0, time.UTC))

	reply := h.act("U1", ActConfirmSubmit, nil)
	state, draft := h.state("U1")
	assert.Equal(t, StateAskDatetime, state)
	assert.Empty(t, draft.Booking.BookedAt)
	assert.True(t, strings.HasPrefix(reply.Text, schedule.ReasonSlotFull.Message()))
	u1 := h.user("U1")
	assert.Empty(t, h.recent(u1.ID))
	assert.Empty(t, u1.Name)
	assert.Empty(t, u1.Phone)
}

func TestPickerAndSuggestionActions(t *testing.T) {
	h := newHarness(t)
	h.say("U1", "book", "Jane", "0912345678", "ABC-1234", "inspection")

	reply := h.act("U1", ActSlotNext, nil)
	_, draft := h.state("U1")
	assert.Equal(t, 1, draft.Booking.SlotPage)
	assert.Contains(t, reply.Codes(), ActSlotPrev)

	var picker *messaging.Picker
	for _, a := range reply.Card.Actions {
		if a.Code == ActNewBooking {
			picker = a.Picker
		}
	}
	require.NotNil(t, picker)
	assert.Equal(t, "2025-10-19T10:00", picker.Min)
	assert.Equal(t, "2025-11-02T10:00", picker.Max)

	h.act("U1", ActNewBooking, map[string]string{PickerParam: "2025-10-21T10:30"})
	state, draft := h.state("U1")
	assert.Equal(t, StateConfirm, state)
	assert.Equal(t, "2025-10-21 10:30", draft.Booking.BookedAt)
}

func TestStaleActionIsRejected(t *testing.T) {
	h := newHarness(t)
	reply := h.act("U1", "SVC_PICK:1", nil)
	assert.Equal(t, msgExpired(), reply)
	state, _ := h.state("U1")
	assert.Equal(t, StateIdle, state)

	reply = h.act("U1", "WHATEVER", nil)
	assert.Equal(t, msgExpired(), reply)
}

func TestServicePagingAndPick(t *testing.T) {
	h := newHarness(t)
	h.say("U1", "book", "Jane", "0912345678", "ABC-1234")

	reply := h.say("U1", "tyres")
	state, _ := h.state("U1")
	assert.Equal(t, StateAskService, state)
	assert.Contains(t, reply.Text, "no service matches")

	svc := h.service("brake")
	h.act("U1", withArg(ActServicePick, svc.ID), nil)
	state, draft := h.state("U1")
	assert.Equal(t, StateAskDatetime, state)
	assert.Equal(t, svc.ID, draft.Booking.ServiceID)
}

func TestChooseVehicleBranches(t *testing.T) {
	h := newHarness(t)
	u := h.user("U1")
	for _, plate := range []string{"AAA-111", "BBB-222"} {
		_, _, err := h.customers.CreateVehicle(h.ctx, models.Vehicle{UserID: u.ID, Plate: plate})
		require.NoError(t, err)
	}

	reply := h.say("U1", "book", "Jane", "0912345678")
	state, draft := h.state("U1")
	assert.Equal(t, StateChooseVehicle, state)
	assert.Len(t, draft.Booking.Options, 2)
	assert.Contains(t, reply.Codes(), "VEHICLE_PICK:2")

	assert.Equal(t, msgIndexOutOfRange(), h.say("U1", "7"))
	assert.Equal(t, msgVehicleChoiceFormat(), h.say("U1", "ZZZ-999"))

	h.say("U1", "bbb-222")
	state, draft = h.state("U1")
	assert.Equal(t, StateAskService, state)
	assert.Equal(t, "BBB-222", draft.Booking.Plate)
	assert.Empty(t, draft.Booking.Options)
}

func TestSingleVehicleIsSelectedAutomatically(t *testing.T) {
	h := newHarness(t)
	u := h.user("U1")
	v, _, err := h.customers.CreateVehicle(h.ctx, models.Vehicle{UserID: u.ID, Plate: "AAA-111"})
	require.NoError(t, err)

	h.say("U1", "book", "Jane", "0912345678")
	state, draft := h.state("U1")
	assert.Equal(t, StateAskService, state)
	assert.Equal(t, v.ID, draft.Booking.VehicleID)
}

func TestAddVehicleResumesBooking(t *testing.T) {
	h := newHarness(t)
	u := h.user("U1")
	for _, plate := range []string{"AAA-111", "BBB-222"} {
		_, _, err := h.customers.CreateVehicle(h.ctx, models.Vehicle{UserID: u.ID, Plate: plate})
		require.NoError(t, err)
	}

	h.say("U1", "book", "Jane", "0912345678", "add")
	state, draft := h.state("U1")
	require.Equal(t, StateVehicleAddPlate, state)
	require.NotNil(t, draft.Vehicle.ResumeBooking)

	h.say("U1", "xyz-999", "Yamaha", "SMAX")
	state, draft = h.state("U1")
	assert.Equal(t, StateAskService, state)
	assert.Equal(t, "Jane", draft.Booking.Name)
	assert.Equal(t, "0912345678", draft.Booking.Phone)
	assert.Equal(t, "XYZ-999", draft.Booking.Plate)

	v, err := h.customers.FindVehicleByPlate(h.ctx, u.ID, "XYZ-999")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, v.ID, draft.Booking.VehicleID)
	assert.Equal(t, "Yamaha", v.Brand)
	assert.Equal(t, "SMAX", v.Model)
}

func TestAddVehicleRejectsDuplicatePlate(t *testing.T) {
	h := newHarness(t)
	u := h.user("U1")
	_, _, err := h.customers.CreateVehicle(h.ctx, models.Vehicle{UserID: u.ID, Plate: "AAA-111"})
	require.NoError(t, err)

	reply := h.say("U1", "add vehicle", "aaa-111")
	assert.Equal(t, msgPlateExists("AAA-111"), reply)
	state, _ := h.state("U1")
	assert.Equal(t, StateIdle, state)

	vehicles, err := h.customers.ListVehicles(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, vehicles, 1)
}

func TestAddVehicleDuplicatePlateEndsResumedBooking(t *testing.T) {
	h := newHarness(t)
	u := h.user("U1")
	for _, plate := range []string{"AAA-111", "BBB-222"} {
		_, _, err := h.customers.CreateVehicle(h.ctx, models.Vehicle{UserID: u.ID, Plate: plate})
		require.NoError(t, err)
	}

	h.say("U1", "book", "Jane", "0912345678", "add")
	reply := h.say("U1", "bbb-222")
	assert.Equal(t, msgPlateExists("BBB-222"), reply)

	state, draft := h.state("U1")
	assert.Equal(t, StateIdle, state)
	assert.Nil(t, draft.Booking)
	assert.Nil(t, draft.Vehicle)

	vehicles, err := h.customers.ListVehicles(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, vehicles, 2)
}

func TestMyVehicles(t *testing.T) {
	h := newHarness(t)
	h.say("U1", "my vehicles")
	state, _ := h.state("U1")
	assert.Equal(t, StateVehicleAddPlate, state)

	h.say("U1", "AAA-111", "Honda", "Cub")
	state, _ = h.state("U1")
	assert.Equal(t, StateIdle, state)

	reply := h.say("U1", "my vehicles")
	assert.Contains(t, reply.String(), "AAA-111｜Honda Cub")

	v, err := h.customers.FindVehicleByPlate(h.ctx, h.user("U1").ID, "AAA-111")
	require.NoError(t, err)
	h.act("U1", withArg(ActVehicleUse, v.ID), nil)
	h.say("U1", "Jane", "0912345678")
	state, draft := h.state("U1")
	assert.Equal(t, StateAskService, state)
	assert.Equal(t, v.ID, draft.Booking.VehicleID)
}

func TestCancelBookingFlow(t *testing.T) {
	h := newHarness(t)
	u := h.user("U1")

	reply := h.say("U1", "cancel booking")
	assert.Equal(t, msgNothingUpcoming(OrderActionCancel), reply)
	state, _ := h.state("U1")
	assert.Equal(t, StateIdle, state)

	first := h.book(u.ID, time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC))
	second := h.book(u.ID, time.Date(2025, 10, 21, 9, 0, 0, 0, time.UTC))

	h.say("U1", "cancel booking")
	state, draft := h.state("U1")
	require.Equal(t, StateChooseOrderAction, state)
	assert.Equal(t, []int64{first.ID, second.ID}, draft.OrderPick.Candidates)

	assert.Equal(t, msgOrderChoiceFormat(), h.say("U1", "first"))
	assert.Equal(t, msgIndexOutOfRange(), h.say("U1", "3"))

	h.say("U1", "2")
	state, draft = h.state("U1")
	assert.Equal(t, StateCancelConfirm, state)
	assert.Equal(t, second.ID, draft.OrderPick.OrderID)

	h.say("U1", "yes")
	state, _ = h.state("U1")
	assert.Equal(t, StateIdle, state)

	got, err := h.orders.GetOrder(h.ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, got.Status)

	h.say("U1", "cancel booking", "1", "no")
	got, err = h.orders.GetOrder(h.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, got.Status)
}

func TestRescheduleFlowPromotesPending(t *testing.T) {
	h := newHarness(t)
	h.setMondayCapacity(1)
	u := h.user("U1")
	o := h.book(u.ID, time.Date(2025, 10, 21, 9, 0, 0, 0, time.UTC))
	h.book(h.user("U2").ID, time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC))

	h.say("U1", "reschedule", "1")
	state, _ := h.state("U1")
	require.Equal(t, StateRescheduleAskTime, state)

	reply := h.say("U1", "2025-10-20 10:00")
	state, _ = h.state("U1")
	assert.Equal(t, StateRescheduleAskTime, state)
	assert.True(t, strings.HasPrefix(reply.Text, schedule.ReasonSlotFull.Message()))

	h.say("U1", "2025-10-22 14:00")
	state, _ = h.state("U1")
	assert.Equal(t, StateIdle, state)

	got, err := h.orders.GetOrder(h.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
	assert.True(t, got.BookedAt.Equal(time.Date(2025, 10, 22, 14, 0, 0, 0, time.UTC)))
}

func TestOrderButtonsCheckOwnership(t *testing.T) {
	h := newHarness(t)
	theirs := h.book(h.user("U2").ID, time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC))

	reply := h.act("U1", withArg(ActCancel, theirs.ID), nil)
	assert.Equal(t, msgOrderNotFound(), reply)

	mine := h.book(h.user("U1").ID, time.Date(2025, 10, 20, 11, 0, 0, 0, time.UTC))
	h.act("U1", withArg(ActReschedule, mine.ID), nil)
	state, draft := h.state("U1")
	assert.Equal(t, StateRescheduleAskTime, state)
	assert.Equal(t, mine.ID, draft.OrderPick.OrderID)

	h.act("U1", withArg(ActRescheduleAt, mine.ID), map[string]string{PickerParam: "2025-10-20T15:00"})
	got, err := h.orders.GetOrder(h.ctx, mine.ID)
	require.NoError(t, err)
	assert.True(t, got.BookedAt.Equal(time.Date(2025, 10, 20, 15, 0, 0, 0, time.UTC)))

	h.act("U1", withArg(ActCancelConfirm, mine.ID), nil)
	got, err = h.orders.GetOrder(h.ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, got.Status)
}

func TestMyBookingsKeepsState(t *testing.T) {
	h := newHarness(t)
	u := h.user("U1")
	assert.Equal(t, msgNoOrders(), h.say("U1", "my bookings"))

	o := h.book(u.ID, time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC))
	h.say("U1", "book", "Jane")
	reply := h.say("U1", "my bookings")
	assert.Contains(t, reply.String(), fmt.Sprintf("#%d｜-｜2025-10-20 09:00｜pending", o.ID))
	assert.Contains(t, reply.Codes(), withArg(ActCancel, o.ID))

	state, draft := h.state("U1")
	assert.Equal(t, StateAskPhone, state)
	assert.Equal(t, "Jane", draft.Booking.Name)
}

func TestSettings(t *testing.T) {
	h := newHarness(t)
	h.say("U1", "settings")
	state, _ := h.state("U1")
	assert.Equal(t, StateSettingsMenu, state)

	h.act("U1", ActSettingsPhone, nil)
	assert.Equal(t, msgPhoneFormat(), h.say("U1", "12ab"))
	h.say("U1", "0987654321")
	assert.Equal(t, "0987654321", h.user("U1").Phone)

	h.say("U1", "settings name", "Jim")
	assert.Equal(t, "Jim", h.user("U1").Name)

	h.say("U1", "settings plate", "abc-123")
	h.say("U1", "settings plate", "ABC-123")
	assert.Equal(t, 1, strings.Count(h.user("U1").Note, "preferred plate:ABC-123"))
}

func TestIdleRepliesWithHelp(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, msgHelp(), h.say("U1", "hello"))
}

func TestCorruptConversationFallsBackToIdle(t *testing.T) {
	h := newHarness(t)
	conv, err := h.convs.Load(h.ctx, "U1")
	require.NoError(t, err)
	conv.State = StateConfirm.String()
	conv.Payload = "[1,2]"
	require.NoError(t, h.convs.Save(h.ctx, conv))

	assert.Equal(t, msgHelp(), h.say("U1", "confirm"))
	state, _ := h.state("U1")
	assert.Equal(t, StateIdle, state)
}

type failingCatalog struct {
	Catalog
}

func (failingCatalog) FindServiceByName(context.Context, string) (*models.Service, error) {
	return nil, errors.New("db down")
}

func TestErrorSendsApologyAndKeepsState(t *testing.T) {
	h := newHarness(t)
	h.say("U1", "book", "Jane", "0912345678", "ABC-1234")
	_, before := h.state("U1")

	h.d.Catalog = failingCatalog{Catalog: h.catalog}
	err := h.d.Dispatch(h.ctx, Inbound{UserID: "U1", Text: "inspection"})
	require.Error(t, err)
	assert.Equal(t, msgApology(), h.gateway.last())

	state, after := h.state("U1")
	assert.Equal(t, StateAskService, state)
	assert.Equal(t, before, after)
}

func TestTransportFailureKeepsCommittedState(t *testing.T) {
	h := newHarness(t)
	h.gateway.err = errors.New("push failed")

	err := h.d.Dispatch(h.ctx, Inbound{UserID: "U1", Text: "book"})
	assert.ErrorIs(t, err, ErrTransport)
	state, _ := h.state("U1")
	assert.Equal(t, StateAskName, state)
}

func TestDispatchRequiresUser(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.d.Dispatch(h.ctx, Inbound{Text: "book"}))
}

func TestScenarioBookingSummary(t *testing.T) {
	h := newHarness(t)
	h.say("U1", "book", "Jane", "0912345678", "ABC-1234", "inspection")

	summary := h.say("U1", "2025-10-20 14:30").String()
	for _, want := range []string{"Jane", "0912345678", "ABC-1234", "General inspection", "2025-10-20 14:30"} {
		assert.Contains(t, summary, want)
	}

	h.say("U1", "confirm")
	orders := h.recent(h.user("U1").ID)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].BookedAt.Equal(time.Date(2025, 10, 20, 14, 30, 0, 0, time.UTC)))
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, h.service("inspection").ID, orders[0].Items[0].ServiceID)
}

func TestScenarioThirdBookingInBucketIsFull(t *testing.T) {
	h := newHarness(t)
	when := time.Date(2025, 10, 20, 9, 5, 0, 0, time.UTC)
	svc := h.service("inspection")

	for i, user := range []string{"U1", "U2", "U3"} {
		_, err := h.orders.CreatePending(h.ctx, order.CreateRequest{
			UserID:    h.user(user).ID,
			ServiceID: svc.ID,
			BookedAt:  &when,
		})
		if i < 2 {
			require.NoError(t, err)
			continue
		}
		var rejected *schedule.RejectionError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, schedule.ReasonSlotFull, rejected.Reason)
	}
}

func TestScenarioCancelSingleOrder(t *testing.T) {
	h := newHarness(t)
	o := h.book(h.user("U1").ID, time.Date(2025, 10, 21, 9, 0, 0, 0, time.UTC))

	reply := h.say("U1", "cancel booking")
	assert.Contains(t, reply.String(), fmt.Sprintf("1. #%d", o.ID))

	h.say("U1", "1", "confirm")
	got, err := h.orders.GetOrder(h.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, got.Status)
	state, draft := h.state("U1")
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, Draft{}, draft)
}

func TestScenarioMalformedTime(t *testing.T) {
	h := newHarness(t)
	h.say("U1", "book", "Jane", "0912345678", "ABC-1234", "inspection")

	assert.Equal(t, msgDatetimeFormat(), h.say("U1", "2025-13-40 99:99"))
	state, _ := h.state("U1")
	assert.Equal(t, StateAskDatetime, state)
	assert.Empty(t, h.recent(h.user("U1").ID))
}
