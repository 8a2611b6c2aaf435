package conversation

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Jackson16868/mcshop-bot/internal/messaging"
	"github.com/Jackson16868/mcshop-bot/internal/models"
	"github.com/Jackson16868/mcshop-bot/internal/order"
	"github.com/Jackson16868/mcshop-bot/internal/schedule"
)

// startBooking opens a fresh booking draft, optionally with a vehicle already chosen.
func (d *Dispatcher) startBooking(t *turn, preset *models.Vehicle) (outcome, error) {
	b := &BookingDraft{}
	if preset != nil {
		b.VehicleID, b.Plate = preset.ID, preset.Plate
	}
	return outcome{state: StateAskName, draft: Draft{Booking: b}, reply: msgAskName()}, nil
}

func (d *Dispatcher) onAskName(t *turn) (outcome, error) {
	if t.text == "" {
		return t.stay(msgAskName()), nil
	}
	b := t.draft.Booking
	b.Name = t.text
	return outcome{state: StateAskPhone, draft: t.draft, reply: msgAskPhone()}, nil
}

// onAskPhone branches on the number of vehicles: none asks for a plate, one is picked
// automatically, several get an indexed picker.
func (d *Dispatcher) onAskPhone(t *turn) (outcome, error) {
	if !validPhone(t.text) {
		return t.stay(msgPhoneFormat()), nil
	}
	b := t.draft.Booking
	b.Phone = t.text

	if b.VehicleID != 0 {
		return d.askService(t, b, fmt.Sprintf("Vehicle selected: %s", b.Plate))
	}

	vehicles, err := d.Customers.ListVehicles(t.ctx, t.user.ID)
	if err != nil {
		return outcome{}, fmt.Errorf("list vehicles: %w", err)
	}

	switch len(vehicles) {
	case 0:
		return outcome{state: StateAskPlate, draft: t.draft, reply: msgAskPlate()}, nil
	case 1:
		v := vehicles[0]
		b.VehicleID, b.Plate = v.ID, v.Plate
		return d.askService(t, b, fmt.Sprintf("Using your vehicle: %s", v.Label()))
	default:
		b.Options = make([]VehicleOption, len(vehicles))
		for i, v := range vehicles {
			b.Options[i] = VehicleOption{Index: i + 1, ID: v.ID, Plate: v.Plate, Brand: v.Brand, Model: v.Model}
		}
		return outcome{state: StateChooseVehicle, draft: t.draft, reply: msgChooseVehicle(b.Options)}, nil
	}
}

// onChooseVehicle takes an index from the stored picker, a plate the user owns, or "add".
func (d *Dispatcher) onChooseVehicle(t *turn) (outcome, error) {
	if addVehicleWords.has(t.text) {
		return d.startAddVehicle(t)
	}
	if n, err := parseIndex(t.text); err == nil {
		return d.pickVehicleOption(t, n)
	}

	if plate, ok := normalizePlate(t.text); ok {
		v, err := d.Customers.FindVehicleByPlate(t.ctx, t.user.ID, plate)
		if err != nil {
			return outcome{}, fmt.Errorf("find vehicle: %w", err)
		}
		if v != nil {
			b := t.draft.Booking
			b.VehicleID, b.Plate = v.ID, v.Plate
			return d.askService(t, b, fmt.Sprintf("Selected: %s", v.Plate))
		}
	}
	return t.stay(msgVehicleChoiceFormat()), nil
}

func (d *Dispatcher) pickVehicleOption(t *turn, n int) (outcome, error) {
	b := t.draft.Booking
	for _, opt := range b.Options {
		if opt.Index == n {
			b.VehicleID, b.Plate = opt.ID, opt.Plate
			return d.askService(t, b, fmt.Sprintf("Selected: %s", opt.Plate))
		}
	}
	return t.stay(msgIndexOutOfRange()), nil
}

// onAskPlate registers the first vehicle of a user, reusing an existing row for the plate.
func (d *Dispatcher) onAskPlate(t *turn) (outcome, error) {
	plate, ok := normalizePlate(t.text)
	if !ok {
		return t.stay(msgPlateFormat()), nil
	}
	v, _, err := d.Customers.CreateVehicle(t.ctx, models.Vehicle{UserID: t.user.ID, Plate: plate})
	if err != nil {
		return outcome{}, fmt.Errorf("create vehicle: %w", err)
	}
	b := t.draft.Booking
	b.VehicleID, b.Plate = v.ID, v.Plate
	return d.askService(t, b, "Vehicle selected ✅")
}

// askService moves the booking to service selection and shows the current catalog page.
func (d *Dispatcher) askService(t *turn, b *BookingDraft, prefix string) (outcome, error) {
	services, err := d.Catalog.ListServices(t.ctx)
	if err != nil {
		return outcome{}, fmt.Errorf("list services: %w", err)
	}
	b.Options = nil
	b.ServicePage = clampPage(b.ServicePage, len(services), d.opts.PageSize)
	return outcome{
		state: StateAskService,
		draft: Draft{Booking: b},
		reply: msgServices(prefix, services, b.ServicePage, d.opts.PageSize),
	}, nil
}

func (d *Dispatcher) onAskService(t *turn) (outcome, error) {
	svc, err := d.Catalog.FindServiceByName(t.ctx, t.text)
	if err != nil {
		return outcome{}, fmt.Errorf("find service: %w", err)
	}
	if svc == nil {
		return d.askService(t, t.draft.Booking, "Sorry, no service matches that name. Please reply with a name from the list.")
	}
	return d.chooseService(t, svc)
}

func (d *Dispatcher) onServiceAction(t *turn, a actionCode) (outcome, error) {
	b := t.draft.Booking
	switch a.Name {
	case ActServicePick:
		id, ok := a.id()
		if !ok {
			return t.stay(msgExpired()), nil
		}
		svc, err := d.Catalog.GetService(t.ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return d.askService(t, b, "That service is no longer offered.")
		}
		if err != nil {
			return outcome{}, fmt.Errorf("get service %d: %w", id, err)
		}
		return d.chooseService(t, svc)
	case ActServicePrev:
		b.ServicePage--
	case ActServiceNext:
		b.ServicePage++
	}
	return d.askService(t, b, "")
}

func (d *Dispatcher) chooseService(t *turn, svc *models.Service) (outcome, error) {
	b := t.draft.Booking
	b.ServiceID, b.ServiceName = svc.ID, svc.Name
	b.SlotPage = 0
	return d.askDatetime(t, b, fmt.Sprintf("Service: %s", svc.Name))
}

// askDatetime shows free bucket suggestions and a picker; typed times are accepted too.
func (d *Dispatcher) askDatetime(t *turn, b *BookingDraft, prefix string) (outcome, error) {
	now := d.now().In(d.opts.Location)
	slots, err := d.Finder.Find(t.ctx, now, d.opts.HorizonDays, d.opts.MaxSlotsPerDay)
	if err != nil {
		return outcome{}, fmt.Errorf("find free slots: %w", err)
	}
	b.SlotPage = clampPage(b.SlotPage, len(slots), d.opts.PageSize)
	return outcome{
		state: StateAskDatetime,
		draft: Draft{Booking: b},
		reply: msgAskDatetime(prefix, slots, b.SlotPage, d.opts.PageSize, d.pickerBounds(now)),
	}, nil
}

func (d *Dispatcher) pickerBounds(now time.Time) messaging.Picker {
	initial := now.Truncate(time.Hour).Add(time.Hour)
	return messaging.Picker{
		Mode:    "datetime",
		Initial: initial.Format(messaging.PickerLayout),
		Min:     now.Format(messaging.PickerLayout),
		Max:     now.AddDate(0, 0, d.opts.HorizonDays).Format(messaging.PickerLayout),
	}
}

func (d *Dispatcher) onAskDatetime(t *turn) (outcome, error) {
	when, err := d.parseText(t.text)
	if err != nil {
		return t.stay(msgDatetimeFormat()), nil
	}
	return d.acceptTime(t, when)
}

func (d *Dispatcher) onSlotAction(t *turn, a actionCode) (outcome, error) {
	b := t.draft.Booking
	switch a.Name {
	case ActSlotPick:
		when, err := d.parseText(a.Arg)
		if err != nil {
			return t.stay(msgExpired()), nil
		}
		return d.acceptTime(t, when)
	case ActNewBooking:
		when, err := d.parsePicked(t.in.Params[PickerParam])
		if err != nil {
			return t.stay(msgDatetimeFormat()), nil
		}
		return d.acceptTime(t, when)
	case ActSlotPrev:
		b.SlotPage--
	case ActSlotNext:
		b.SlotPage++
	}
	return d.askDatetime(t, b, "")
}

// acceptTime routes every candidate time, typed or picked, through the capacity checker.
func (d *Dispatcher) acceptTime(t *turn, when time.Time) (outcome, error) {
	decision, err := d.Checker.Check(t.ctx, when)
	if err != nil {
		return outcome{}, err
	}
	if !decision.Accepted {
		return t.stay(messaging.Text(decision.Reason.Message())), nil
	}
	b := t.draft.Booking
	b.BookedAt = d.format(when)
	return outcome{state: StateConfirm, draft: t.draft, reply: msgConfirmSummary(b)}, nil
}

func (d *Dispatcher) onConfirm(t *turn) (outcome, error) {
	if !confirmWords.has(t.text) {
		return t.stay(msgConfirmHint()), nil
	}
	return d.submitBooking(t)
}

// submitBooking writes back the profile, then creates the pending order with one item.
func (d *Dispatcher) submitBooking(t *turn) (outcome, error) {
	b := t.draft.Booking
	if b.ServiceID == 0 {
		return d.askService(t, b, "Please choose a service first.")
	}
	when, err := d.parseText(b.BookedAt)
	if err != nil {
		return d.askDatetime(t, b, "Please choose a time first.")
	}

	req := order.CreateRequest{
		UserID:    t.user.ID,
		ServiceID: b.ServiceID,
		BookedAt:  &when,
		Note:      "plate:" + b.Plate,
	}
	if b.VehicleID != 0 {
		vehicleID := b.VehicleID
		req.VehicleID = &vehicleID
	}

	created, err := d.Orders.CreatePending(t.ctx, req)
	var rejected *schedule.RejectionError
	switch {
	case errors.As(err, &rejected):
		b.BookedAt = ""
		return d.askDatetime(t, b, rejected.Reason.Message())
	case errors.Is(err, schedule.ErrBucketBusy):
		return t.stay(msgSlotBusy()), nil
	case err != nil:
		return outcome{}, fmt.Errorf("create order: %w", err)
	}

	// the profile only changes once the order exists
	if b.Name != "" {
		t.user.Name = b.Name
	}
	if b.Phone != "" {
		t.user.Phone = b.Phone
	}
	if err := d.Customers.UpdateUser(t.ctx, t.user); err != nil {
		d.Logger.Warn("CONVERSATION", fmt.Sprintf("Order %d created but profile of user %d not updated: %v", created.ID, t.user.ID, err))
	}

	return reset(msgBooked(created.ID, d.format(when))), nil
}

func clampPage(page, total, size int) int {
	if size <= 0 || total <= 0 || page < 0 {
		return 0
	}
	last := (total - 1) / size
	if page > last {
		return last
	}
	return page
}
