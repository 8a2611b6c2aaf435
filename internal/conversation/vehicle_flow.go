package conversation

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Jackson16868/mcshop-bot/internal/models"
)

func (d *Dispatcher) showVehicles(t *turn) (outcome, error) {
	vehicles, err := d.Customers.ListVehicles(t.ctx, t.user.ID)
	if err != nil {
		return outcome{}, fmt.Errorf("list vehicles: %w", err)
	}
	if len(vehicles) == 0 {
		return outcome{state: StateVehicleAddPlate, draft: Draft{Vehicle: &VehicleDraft{}}, reply: msgNoVehicles()}, nil
	}
	return t.stay(msgVehicleList(vehicles)), nil
}

// startAddVehicle begins plate → brand → model. From the booking vehicle picker the
// booking draft is parked and resumes once the vehicle exists.
func (d *Dispatcher) startAddVehicle(t *turn) (outcome, error) {
	v := &VehicleDraft{}
	if t.state == StateChooseVehicle && t.draft.Booking != nil {
		v.ResumeBooking = t.draft.Booking
		v.ResumeBooking.Options = nil
	}
	return outcome{state: StateVehicleAddPlate, draft: Draft{Vehicle: v}, reply: msgAskNewPlate()}, nil
}

func (d *Dispatcher) useVehicle(t *turn, a actionCode) (outcome, error) {
	id, ok := a.id()
	if !ok {
		return t.stay(msgExpired()), nil
	}
	v, err := d.Customers.GetVehicleForUser(t.ctx, id, t.user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return t.stay(msgExpired()), nil
	}
	if err != nil {
		return outcome{}, fmt.Errorf("get vehicle %d: %w", id, err)
	}
	return d.startBooking(t, v)
}

func (d *Dispatcher) onVehicleAddPlate(t *turn) (outcome, error) {
	plate, ok := normalizePlate(t.text)
	if !ok {
		return t.stay(msgPlateFormat()), nil
	}

	existing, err := d.Customers.FindVehicleByPlate(t.ctx, t.user.ID, plate)
	if err != nil {
		return outcome{}, fmt.Errorf("find vehicle: %w", err)
	}
	v := t.draft.Vehicle
	if existing != nil {
		return reset(msgPlateExists(existing.Plate)), nil
	}

	v.Plate = plate
	return outcome{state: StateVehicleAddBrand, draft: t.draft, reply: msgAskBrand()}, nil
}

func (d *Dispatcher) onVehicleAddBrand(t *turn) (outcome, error) {
	if t.text == "" {
		return t.stay(msgAskBrand()), nil
	}
	t.draft.Vehicle.Brand = t.text
	return outcome{state: StateVehicleAddModel, draft: t.draft, reply: msgAskModel()}, nil
}

func (d *Dispatcher) onVehicleAddModel(t *turn) (outcome, error) {
	if t.text == "" {
		return t.stay(msgAskModel()), nil
	}
	v := t.draft.Vehicle
	if v.Plate == "" {
		return outcome{state: StateVehicleAddPlate, draft: t.draft, reply: msgAskNewPlate()}, nil
	}

	created, _, err := d.Customers.CreateVehicle(t.ctx, models.Vehicle{
		UserID: t.user.ID,
		Plate:  v.Plate,
		Brand:  v.Brand,
		Model:  t.text,
	})
	if err != nil {
		return outcome{}, fmt.Errorf("create vehicle: %w", err)
	}

	if b := v.ResumeBooking; b != nil {
		b.VehicleID, b.Plate = created.ID, created.Plate
		return d.askService(t, b, "Vehicle added and selected ✅")
	}
	return reset(msgVehicleAdded(*created)), nil
}
