package conversation

// State is the step a user's conversation is waiting on.
type State int

const (
	StateIdle State = iota
	StateAskName
	StateAskPhone
	StateChooseVehicle
	StateAskPlate
	StateVehicleAddPlate
	StateVehicleAddBrand
	StateVehicleAddModel
	StateAskService
	StateAskDatetime
	StateConfirm
	StateChooseOrderAction
	StateCancelConfirm
	StateRescheduleAskTime
	StateSettingsMenu
	StateSetName
	StateSetPhone
	StateSetPlate

	stateCount
)

var stateNames = [stateCount]string{
	StateIdle:              "idle",
	StateAskName:           "ask_name",
	StateAskPhone:          "ask_phone",
	StateChooseVehicle:     "choose_vehicle",
	StateAskPlate:          "ask_plate",
	StateVehicleAddPlate:   "v_add_plate",
	StateVehicleAddBrand:   "v_add_brand",
	StateVehicleAddModel:   "v_add_model",
	StateAskService:        "ask_service",
	StateAskDatetime:       "ask_datetime",
	StateConfirm:           "confirm",
	StateChooseOrderAction: "choose_order_action",
	StateCancelConfirm:     "cancel_confirm",
	StateRescheduleAskTime: "reschedule_ask_time",
	StateSettingsMenu:      "settings_menu",
	StateSetName:           "set_name",
	StateSetPhone:          "set_phone",
	StateSetPlate:          "set_plate",
}

func (s State) String() string {
	if s < 0 || s >= stateCount {
		return "unknown"
	}
	return stateNames[s]
}

// ParseState maps a stored state name back; unknown names report false.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return StateIdle, false
}

// AllStates lists every state in declaration order.
func AllStates() []State {
	states := make([]State, stateCount)
	for i := range states {
		states[i] = State(i)
	}
	return states
}

// draftKind names the draft variant a state works on.
type draftKind int

const (
	draftNone draftKind = iota
	draftBooking
	draftOrderPick
	draftVehicle
)

func (s State) draftKind() draftKind {
	switch s {
	case StateAskName, StateAskPhone, StateChooseVehicle, StateAskPlate,
		StateAskService, StateAskDatetime, StateConfirm:
		return draftBooking
	case StateChooseOrderAction, StateCancelConfirm, StateRescheduleAskTime:
		return draftOrderPick
	case StateVehicleAddPlate, StateVehicleAddBrand, StateVehicleAddModel:
		return draftVehicle
	default:
		return draftNone
	}
}
