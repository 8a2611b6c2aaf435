package conversation

import (
	"regexp"
	"strconv"
	"strings"
)

type command int

const (
	cmdNone command = iota
	cmdCancel
	cmdBook
	cmdMyBookings
	cmdCancelBooking
	cmdReschedule
	cmdMyVehicles
	cmdAddVehicle
	cmdSettings
	cmdSetName
	cmdSetPhone
	cmdSetPlate
)

// Keywords are matched against the whole message, case-insensitively.
var keywords = map[string]command{
	"cancel": cmdCancel,
	"取消":     cmdCancel,

	"book":  cmdBook,
	"預約":    cmdBook,
	"預約維修":  cmdBook,
	"預約保養":  cmdBook,

	"my bookings": cmdMyBookings,
	"我的預約":        cmdMyBookings,
	"查詢預約":        cmdMyBookings,

	"cancel booking": cmdCancelBooking,
	"取消預約":           cmdCancelBooking,
	"我要取消預約":         cmdCancelBooking,

	"reschedule": cmdReschedule,
	"調整時間":       cmdReschedule,
	"更改時間":       cmdReschedule,
	"改時間":        cmdReschedule,
	"變更時間":       cmdReschedule,

	"my vehicles": cmdMyVehicles,
	"我的車輛":        cmdMyVehicles,
	"車輛":          cmdMyVehicles,

	"add vehicle": cmdAddVehicle,
	"新增車輛":        cmdAddVehicle,
	"新增 車輛":       cmdAddVehicle,

	"settings": cmdSettings,
	"設定":       cmdSettings,
	"設定資料":     cmdSettings,

	"settings name":  cmdSetName,
	"設定-姓名":          cmdSetName,
	"settings phone": cmdSetPhone,
	"設定-手機":          cmdSetPhone,
	"settings plate": cmdSetPlate,
	"設定-車牌":          cmdSetPlate,
}

func matchCommand(text string) command {
	return keywords[strings.ToLower(strings.TrimSpace(text))]
}

var (
	confirmWords       = wordSet("confirm", "確認", "送出", "ok")
	cancelConfirmWords = wordSet("confirm", "確認", "ok", "是", "yes")
	addVehicleWords    = wordSet("add", "新增")
)

type words map[string]struct{}

func wordSet(ws ...string) words {
	set := make(words, len(ws))
	for _, w := range ws {
		set[w] = struct{}{}
	}
	return set
}

func (w words) has(text string) bool {
	_, ok := w[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// Action codes carried by card buttons.
const (
	ActFlowCancel     = "FLOW_CANCEL"
	ActBook           = "BOOK"
	ActMyOrders       = "MY_ORDERS"
	ActBackMyOrders   = "BACK_MY_ORDERS"
	ActMyVehicles     = "MY_VEHICLES"
	ActVehicleAdd     = "VEHICLE_ADD"
	ActVehiclePick    = "VEHICLE_PICK"
	ActVehicleUse     = "VEHICLE_USE"
	ActServicePick    = "SVC_PICK"
	ActServicePrev    = "SVC_PREV"
	ActServiceNext    = "SVC_NEXT"
	ActServiceNop     = "SVC_NOP"
	ActSlotPick       = "SLOT_PICK"
	ActSlotPrev       = "SLOT_PREV"
	ActSlotNext       = "SLOT_NEXT"
	ActNewBooking     = "NEWBOOK"
	ActConfirmSubmit  = "CONFIRM_SUBMIT"
	ActOrderPick      = "ORDER_PICK"
	ActCancel         = "CANCEL"
	ActCancelConfirm  = "CANCEL_CONFIRM"
	ActReschedule     = "RESCHEDULE"
	ActRescheduleAt   = "RESCHEDULE_AT"
	ActSettingsName   = "SETTINGS_EDIT_NAME"
	ActSettingsPhone  = "SETTINGS_EDIT_PHONE"
	ActSettingsPlate  = "SETTINGS_EDIT_PLATE"
)

// PickerParam is the action parameter holding a picked date-time.
const PickerParam = "datetime"

// actionCode splits "NAME:arg" or "NAME#arg" at the first separator.
type actionCode struct {
	Name string
	Arg  string
}

func parseAction(code string) actionCode {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, ":#"); i >= 0 {
		return actionCode{Name: code[:i], Arg: code[i+1:]}
	}
	return actionCode{Name: code}
}

func (a actionCode) id() (int64, bool) {
	n, err := strconv.ParseInt(a.Arg, 10, 64)
	return n, err == nil && n > 0
}

func withArg(name string, arg any) string {
	switch v := arg.(type) {
	case int64:
		return name + sep(name) + strconv.FormatInt(v, 10)
	case int:
		return name + sep(name) + strconv.Itoa(v)
	default:
		return name + sep(name) + v.(string)
	}
}

// Order-scoped codes use '#', selections use ':'.
func sep(name string) string {
	switch name {
	case ActCancel, ActCancelConfirm, ActReschedule, ActRescheduleAt:
		return "#"
	default:
		return ":"
	}
}

var plateRE = regexp.MustCompile(`^[A-Z0-9\-]{3,}$`)

// normalizePlate upper-cases and drops whitespace; ok reports a valid plate.
func normalizePlate(text string) (string, bool) {
	plate := strings.ToUpper(strings.Join(strings.Fields(text), ""))
	return plate, plateRE.MatchString(plate)
}

func validPhone(text string) bool {
	if len(text) < 8 {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseIndex(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
