package conversation

import (
	"bytes"
	"encoding/json"
)

// Draft is the typed payload carried next to the state. At most one variant is set.
type Draft struct {
	Booking   *BookingDraft   `json:"booking,omitempty"`
	OrderPick *OrderPickDraft `json:"order_pick,omitempty"`
	Vehicle   *VehicleDraft   `json:"vehicle,omitempty"`
}

// BookingDraft collects the fields of a new booking.
type BookingDraft struct {
	Name        string          `json:"name,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	VehicleID   int64           `json:"vehicle_id,omitempty"`
	Plate       string          `json:"plate,omitempty"`
	ServiceID   int64           `json:"service_id,omitempty"`
	ServiceName string          `json:"service_name,omitempty"`
	BookedAt    string          `json:"booked_at,omitempty"`
	Options     []VehicleOption `json:"vehicle_options,omitempty"`
	ServicePage int             `json:"service_page,omitempty"`
	SlotPage    int             `json:"slot_page,omitempty"`
}

// VehicleOption is one row of the vehicle picker as it was shown.
type VehicleOption struct {
	Index int    `json:"i"`
	ID    int64  `json:"id"`
	Plate string `json:"plate"`
	Brand string `json:"brand,omitempty"`
	Model string `json:"model,omitempty"`
}

type OrderAction string

const (
	OrderActionCancel     OrderAction = "cancel"
	OrderActionReschedule OrderAction = "reschedule"
)

// OrderPickDraft drives the cancel and reschedule sub-flows.
type OrderPickDraft struct {
	Action     OrderAction `json:"action"`
	Candidates []int64     `json:"orders,omitempty"`
	OrderID    int64       `json:"order_id,omitempty"`
}

// VehicleDraft collects a new vehicle. ResumeBooking is set when the user branched
// off the booking vehicle picker.
type VehicleDraft struct {
	Plate         string        `json:"plate,omitempty"`
	Brand         string        `json:"brand,omitempty"`
	ResumeBooking *BookingDraft `json:"resume_booking,omitempty"`
}

// DecodeDraft parses a stored payload. Anything that is not a JSON object yields an empty draft.
func DecodeDraft(payload string) Draft {
	raw := bytes.TrimSpace([]byte(payload))
	if len(raw) == 0 || raw[0] != '{' {
		return Draft{}
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}
	}
	return d
}

// Encode renders the draft as a JSON object, "{}" when empty.
func (d Draft) Encode() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (d Draft) kind() draftKind {
	switch {
	case d.Booking != nil:
		return draftBooking
	case d.OrderPick != nil:
		return draftOrderPick
	case d.Vehicle != nil:
		return draftVehicle
	default:
		return draftNone
	}
}
