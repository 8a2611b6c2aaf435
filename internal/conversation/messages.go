package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jackson16868/mcshop-bot/internal/messaging"
	"github.com/Jackson16868/mcshop-bot/internal/models"
)

var cancelAction = messaging.Action{Label: "Cancel", Code: ActFlowCancel}

// ---------------- GENERAL ----------------

func msgHelp() messaging.Message {
	return messaging.Message{
		Text: "Hi! I can book your motorcycle service.",
		Card: &messaging.Card{
			Title: "Menu",
			Lines: []messaging.Line{
				{Value: "book: make a booking"},
				{Value: "my bookings: recent bookings"},
				{Value: "cancel booking / reschedule: change an upcoming booking"},
				{Value: "my vehicles / add vehicle"},
				{Value: "settings: name, phone, preferred plate"},
				{Value: "cancel: stop the current step"},
			},
			Actions: []messaging.Action{
				{Label: "Book", Code: ActBook},
				{Label: "My bookings", Code: ActMyOrders},
				{Label: "My vehicles", Code: ActMyVehicles},
			},
		},
	}
}

func msgApology() messaging.Message {
	return messaging.Text("Sorry, something went wrong on our side. Please try again in a moment.")
}

func msgFlowCanceled() messaging.Message {
	return messaging.Text("Canceled. Type \"book\" whenever you want to start again.")
}

func msgExpired() messaging.Message {
	return messaging.Text("That button is no longer valid. Please continue from the latest message.")
}

func msgIndexOutOfRange() messaging.Message {
	return messaging.Text("That number is not in the list, please try again.")
}

func msgDatetimeFormat() messaging.Message {
	return messaging.Text("Please enter the time as YYYY-MM-DD HH:MM, for example 2025-10-20 09:30.")
}

func msgPhoneFormat() messaging.Message {
	return messaging.Text("Please enter a phone number of at least 8 digits.")
}

func msgPlateFormat() messaging.Message {
	return messaging.Text("That plate does not look right. Use letters, digits and '-', for example ABC-1234.")
}

func msgSlotBusy() messaging.Message {
	return messaging.Text("Someone is booking that time right now, please try again or pick another time.")
}

// ---------------- BOOKING ----------------

func msgAskName() messaging.Message {
	return messaging.Message{
		Text: "What name should the booking be under?",
		Card: &messaging.Card{Title: "New booking", Actions: []messaging.Action{cancelAction}},
	}
}

func msgAskPhone() messaging.Message {
	return messaging.Text("Your phone number?")
}

func msgAskPlate() messaging.Message {
	return messaging.Text("Please enter the plate of your motorcycle, for example ABC-1234.")
}

func msgChooseVehicle(options []VehicleOption) messaging.Message {
	card := &messaging.Card{Title: "Which vehicle?"}
	for _, opt := range options {
		label := models.Vehicle{Plate: opt.Plate, Brand: opt.Brand, Model: opt.Model}.Label()
		card.Lines = append(card.Lines, messaging.Line{Label: fmt.Sprintf("%d", opt.Index), Value: label})
		card.Actions = append(card.Actions, messaging.Action{Label: opt.Plate, Code: withArg(ActVehiclePick, opt.Index)})
	}
	card.Actions = append(card.Actions, messaging.Action{Label: "Add vehicle", Code: ActVehicleAdd}, cancelAction)
	return messaging.Message{Text: "Reply with a number, a plate, or \"add\" for a new vehicle.", Card: card}
}

func msgVehicleChoiceFormat() messaging.Message {
	return messaging.Text("Please reply with a number from the list, one of your plates, or \"add\".")
}

func msgServices(prefix string, services []models.Service, page, size int) messaging.Message {
	text := "Which service do you need? Reply with its name or pick one below."
	if prefix != "" {
		text = prefix + "\n" + text
	}
	if len(services) == 0 {
		return messaging.Text(prefix + "\nNo services are available right now, please contact the shop.")
	}

	from := page * size
	to := min(from+size, len(services))
	pages := (len(services) + size - 1) / size

	card := &messaging.Card{Title: "Services"}
	for _, svc := range services[from:to] {
		card.Lines = append(card.Lines, messaging.Line{
			Label: svc.Name,
			Value: fmt.Sprintf("NT$%d, about %d min", svc.BasePrice, svc.Minutes()),
		})
		card.Actions = append(card.Actions, messaging.Action{Label: svc.Name, Code: withArg(ActServicePick, svc.ID)})
	}
	if pages > 1 {
		if page > 0 {
			card.Actions = append(card.Actions, messaging.Action{Label: "Previous", Code: ActServicePrev})
		}
		card.Actions = append(card.Actions, messaging.Action{Label: fmt.Sprintf("%d/%d", page+1, pages), Code: ActServiceNop})
		if page < pages-1 {
			card.Actions = append(card.Actions, messaging.Action{Label: "Next", Code: ActServiceNext})
		}
	}
	card.Actions = append(card.Actions, cancelAction)
	return messaging.Message{Text: text, Card: card}
}

func msgAskDatetime(prefix string, slots []time.Time, page, size int, picker messaging.Picker) messaging.Message {
	text := "When would you like to come in? Pick a time or type YYYY-MM-DD HH:MM."
	if prefix != "" {
		text = prefix + "\n" + text
	}

	card := &messaging.Card{Title: "Available times"}
	if len(slots) == 0 {
		card.Lines = []messaging.Line{{Value: "No free times in the coming days, you can still type a time."}}
	} else {
		from := page * size
		to := min(from+size, len(slots))
		for _, s := range slots[from:to] {
			value := s.Format(textLayout)
			card.Actions = append(card.Actions, messaging.Action{
				Label: s.Format("01/02 (Mon) 15:04"),
				Code:  withArg(ActSlotPick, value),
			})
		}
		if page > 0 {
			card.Actions = append(card.Actions, messaging.Action{Label: "Earlier", Code: ActSlotPrev})
		}
		if to < len(slots) {
			card.Actions = append(card.Actions, messaging.Action{Label: "Later", Code: ActSlotNext})
		}
	}
	card.Actions = append(card.Actions,
		messaging.Action{Label: "Pick a date & time", Code: ActNewBooking, Picker: &picker},
		cancelAction,
	)
	return messaging.Message{Text: text, Card: card}
}

func msgConfirmSummary(b *BookingDraft) messaging.Message {
	return messaging.Message{
		Text: "Please check your booking and reply \"confirm\" to submit.",
		Card: &messaging.Card{
			Title: "Booking summary",
			Lines: []messaging.Line{
				{Label: "Name", Value: b.Name},
				{Label: "Phone", Value: b.Phone},
				{Label: "Plate", Value: b.Plate},
				{Label: "Service", Value: b.ServiceName},
				{Label: "Time", Value: b.BookedAt},
			},
			Actions: []messaging.Action{
				{Label: "Confirm", Code: ActConfirmSubmit},
				cancelAction,
			},
		},
	}
}

func msgConfirmHint() messaging.Message {
	return messaging.Text("Reply \"confirm\" to submit or \"cancel\" to stop.")
}

func msgBooked(orderID int64, when string) messaging.Message {
	return messaging.Message{
		Text: fmt.Sprintf("Booked ✅ #%d at %s. We will confirm it shortly.", orderID, when),
		Card: &messaging.Card{
			Title:   fmt.Sprintf("Booking #%d", orderID),
			Lines:   []messaging.Line{{Label: "Time", Value: when}, {Label: "Status", Value: string(models.OrderStatusPending)}},
			Actions: []messaging.Action{{Label: "My bookings", Code: ActMyOrders}},
		},
	}
}

// ---------------- VEHICLES ----------------

func msgNoVehicles() messaging.Message {
	return messaging.Text("You have no vehicles yet. Please enter the plate of the one to add.")
}

func msgVehicleList(vehicles []models.Vehicle) messaging.Message {
	card := &messaging.Card{Title: "My vehicles"}
	for _, v := range vehicles {
		card.Lines = append(card.Lines, messaging.Line{Value: v.Label()})
		card.Actions = append(card.Actions, messaging.Action{Label: "Book for " + v.Plate, Code: withArg(ActVehicleUse, v.ID)})
	}
	card.Actions = append(card.Actions, messaging.Action{Label: "Add vehicle", Code: ActVehicleAdd})
	return messaging.Message{Card: card}
}

func msgAskNewPlate() messaging.Message {
	return messaging.Message{
		Text: "Plate of the new vehicle?",
		Card: &messaging.Card{Title: "Add vehicle", Actions: []messaging.Action{cancelAction}},
	}
}

func msgPlateExists(plate string) messaging.Message {
	return messaging.Text(fmt.Sprintf("%s already exists in your vehicles.", plate))
}

func msgAskBrand() messaging.Message {
	return messaging.Text("Brand?")
}

func msgAskModel() messaging.Message {
	return messaging.Text("Model?")
}

func msgVehicleAdded(v models.Vehicle) messaging.Message {
	return messaging.Message{
		Text: "Vehicle added ✅ " + v.Label(),
		Card: &messaging.Card{
			Title:   v.Plate,
			Actions: []messaging.Action{{Label: "Book for " + v.Plate, Code: withArg(ActVehicleUse, v.ID)}},
		},
	}
}

// ---------------- ORDERS ----------------

func orderLine(i int, o models.Order, loc *time.Location) string {
	when := "unscheduled"
	if o.BookedAt != nil {
		when = o.BookedAt.In(loc).Format(textLayout)
	}
	plate := o.Plate()
	if plate == "" {
		plate = "-"
	}
	return fmt.Sprintf("%d. #%d｜%s｜%s｜%s", i, o.ID, plate, when, o.Status)
}

func msgNoOrders() messaging.Message {
	return messaging.Text("You have no bookings yet. Type \"book\" to make one.")
}

func msgRecentOrders(orders []models.Order, loc *time.Location) messaging.Message {
	card := &messaging.Card{Title: "My bookings"}
	for i, o := range orders {
		card.Lines = append(card.Lines, messaging.Line{Value: orderLine(i+1, o, loc)})
		if o.Status.Active() {
			card.Actions = append(card.Actions,
				messaging.Action{Label: fmt.Sprintf("Cancel #%d", o.ID), Code: withArg(ActCancel, o.ID)},
				messaging.Action{Label: fmt.Sprintf("Reschedule #%d", o.ID), Code: withArg(ActReschedule, o.ID)},
			)
		}
	}
	return messaging.Message{Card: card}
}

func msgNothingUpcoming(action OrderAction) messaging.Message {
	if action == OrderActionReschedule {
		return messaging.Text("You have no upcoming bookings to reschedule.")
	}
	return messaging.Text("You have no upcoming bookings to cancel.")
}

func msgPickOrder(action OrderAction, orders []models.Order, loc *time.Location) messaging.Message {
	title := "Cancel which booking?"
	if action == OrderActionReschedule {
		title = "Reschedule which booking?"
	}
	card := &messaging.Card{Title: title}
	for i, o := range orders {
		card.Lines = append(card.Lines, messaging.Line{Value: orderLine(i+1, o, loc)})
		card.Actions = append(card.Actions, messaging.Action{Label: fmt.Sprintf("%d", i+1), Code: withArg(ActOrderPick, i+1)})
	}
	card.Actions = append(card.Actions, cancelAction)
	return messaging.Message{Text: "Reply with the number of the booking.", Card: card}
}

func msgOrderChoiceFormat() messaging.Message {
	return messaging.Text("Please reply with the number of a booking from the list.")
}

func msgOrderNotFound() messaging.Message {
	return messaging.Text("That booking was not found or can no longer be changed.")
}

func msgCancelPrompt(orderID int64) messaging.Message {
	return messaging.Message{
		Text: fmt.Sprintf("Cancel booking #%d? Reply \"confirm\" to cancel it.", orderID),
		Card: &messaging.Card{
			Title: fmt.Sprintf("Cancel #%d", orderID),
			Actions: []messaging.Action{
				{Label: "Yes, cancel it", Code: withArg(ActCancelConfirm, orderID)},
				{Label: "Back", Code: ActBackMyOrders},
			},
		},
	}
}

func msgCancelAbandoned() messaging.Message {
	return messaging.Text("OK, the booking was kept.")
}

func msgCanceled(orderID int64) messaging.Message {
	return messaging.Text(fmt.Sprintf("Booking #%d was canceled.", orderID))
}

func msgReschedulePrompt(prefix string, orderID int64, picker messaging.Picker) messaging.Message {
	text := fmt.Sprintf("New time for booking #%d? Type YYYY-MM-DD HH:MM or use the picker.", orderID)
	if prefix != "" {
		text = prefix + "\n" + text
	}
	return messaging.Message{
		Text: text,
		Card: &messaging.Card{
			Title: fmt.Sprintf("Reschedule #%d", orderID),
			Actions: []messaging.Action{
				{Label: "Pick a date & time", Code: withArg(ActRescheduleAt, orderID), Picker: &picker},
				cancelAction,
			},
		},
	}
}

func msgRescheduled(orderID int64, when string) messaging.Message {
	return messaging.Text(fmt.Sprintf("Booking #%d moved to %s ✅", orderID, when))
}

// ---------------- SETTINGS ----------------

func msgSettingsMenu() messaging.Message {
	return messaging.Message{
		Card: &messaging.Card{
			Title: "Settings",
			Actions: []messaging.Action{
				{Label: "Name", Code: ActSettingsName},
				{Label: "Phone", Code: ActSettingsPhone},
				{Label: "Preferred plate", Code: ActSettingsPlate},
				cancelAction,
			},
		},
	}
}

func msgAskNewName() messaging.Message {
	return messaging.Text("Please enter your name.")
}

func msgAskNewPhone() messaging.Message {
	return messaging.Text("Please enter your phone number.")
}

func msgAskPreferredPlate() messaging.Message {
	return messaging.Text("Please enter your preferred plate.")
}

func msgProfileUpdated(field, value string) messaging.Message {
	return messaging.Text(strings.TrimSpace(fmt.Sprintf("%s updated: %s", field, value)))
}
