package conversation

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jackson16868/mcshop-bot/internal/order"
	"github.com/Jackson16868/mcshop-bot/internal/schedule"
)

func (d *Dispatcher) showRecentOrders(t *turn) (outcome, error) {
	orders, err := d.Orders.ListRecent(t.ctx, t.user.ID, d.opts.RecentLimit)
	if err != nil {
		return outcome{}, fmt.Errorf("list recent orders: %w", err)
	}
	if len(orders) == 0 {
		return t.stay(msgNoOrders()), nil
	}
	return t.stay(msgRecentOrders(orders, d.opts.Location)), nil
}

// startOrderPick lists upcoming active orders and stores their ids as the index snapshot.
func (d *Dispatcher) startOrderPick(t *turn, action OrderAction) (outcome, error) {
	orders, err := d.Orders.ListUpcoming(t.ctx, t.user.ID, d.opts.UpcomingLimit)
	if err != nil {
		return outcome{}, fmt.Errorf("list upcoming orders: %w", err)
	}
	if len(orders) == 0 {
		return t.stay(msgNothingUpcoming(action)), nil
	}

	pick := &OrderPickDraft{Action: action, Candidates: make([]int64, len(orders))}
	for i, o := range orders {
		pick.Candidates[i] = o.ID
	}
	return outcome{
		state: StateChooseOrderAction,
		draft: Draft{OrderPick: pick},
		reply: msgPickOrder(action, orders, d.opts.Location),
	}, nil
}

func (d *Dispatcher) onChooseOrderAction(t *turn) (outcome, error) {
	n, err := parseIndex(t.text)
	if err != nil {
		return t.stay(msgOrderChoiceFormat()), nil
	}
	return d.pickOrder(t, n)
}

func (d *Dispatcher) pickOrder(t *turn, n int) (outcome, error) {
	p := t.draft.OrderPick
	if n < 1 || n > len(p.Candidates) {
		return t.stay(msgIndexOutOfRange()), nil
	}
	p.OrderID = p.Candidates[n-1]
	return d.enterOrderAction(t, p)
}

// focusOrder handles the per-order buttons of the order list, which can arrive in any state.
func (d *Dispatcher) focusOrder(t *turn, a actionCode, action OrderAction) (outcome, error) {
	id, ok := a.id()
	if !ok {
		return t.stay(msgExpired()), nil
	}
	o, err := d.Orders.GetOrder(t.ctx, id)
	if errors.Is(err, order.ErrNotFound) {
		return reset(msgOrderNotFound()), nil
	}
	if err != nil {
		return outcome{}, fmt.Errorf("get order %d: %w", id, err)
	}
	if o.UserID != t.user.ID || !o.Status.Active() {
		return reset(msgOrderNotFound()), nil
	}
	return d.enterOrderAction(t, &OrderPickDraft{Action: action, Candidates: []int64{id}, OrderID: id})
}

func (d *Dispatcher) enterOrderAction(t *turn, p *OrderPickDraft) (outcome, error) {
	switch p.Action {
	case OrderActionCancel:
		return outcome{state: StateCancelConfirm, draft: Draft{OrderPick: p}, reply: msgCancelPrompt(p.OrderID)}, nil
	case OrderActionReschedule:
		now := d.now().In(d.opts.Location)
		return outcome{
			state: StateRescheduleAskTime,
			draft: Draft{OrderPick: p},
			reply: msgReschedulePrompt("", p.OrderID, d.pickerBounds(now)),
		}, nil
	default:
		return reset(msgExpired()), nil
	}
}

func (d *Dispatcher) onCancelConfirm(t *turn) (outcome, error) {
	if !cancelConfirmWords.has(t.text) {
		return reset(msgCancelAbandoned()), nil
	}
	return d.cancelOrder(t, t.draft.OrderPick.OrderID)
}

func (d *Dispatcher) cancelOrder(t *turn, id int64) (outcome, error) {
	o, err := d.Orders.Cancel(t.ctx, id, t.user.ID)
	if errors.Is(err, order.ErrNotFound) {
		return reset(msgOrderNotFound()), nil
	}
	if err != nil {
		return outcome{}, fmt.Errorf("cancel order %d: %w", id, err)
	}
	return reset(msgCanceled(o.ID)), nil
}

func (d *Dispatcher) onRescheduleAskTime(t *turn) (outcome, error) {
	when, err := d.parseText(t.text)
	if err != nil {
		return t.stay(msgDatetimeFormat()), nil
	}
	return d.rescheduleOrder(t, t.draft.OrderPick.OrderID, when)
}

// rescheduleOrder keeps the user on the time prompt for the same order when the time is refused.
func (d *Dispatcher) rescheduleOrder(t *turn, id int64, when time.Time) (outcome, error) {
	o, err := d.Orders.Reschedule(t.ctx, id, t.user.ID, when)

	var rejected *schedule.RejectionError
	var refusal string
	switch {
	case errors.Is(err, order.ErrNotFound):
		return reset(msgOrderNotFound()), nil
	case errors.As(err, &rejected):
		refusal = rejected.Reason.Message()
	case errors.Is(err, schedule.ErrBucketBusy):
		refusal = msgSlotBusy().Text
	case err != nil:
		return outcome{}, fmt.Errorf("reschedule order %d: %w", id, err)
	default:
		return reset(msgRescheduled(o.ID, d.format(when))), nil
	}

	p := &OrderPickDraft{Action: OrderActionReschedule, Candidates: []int64{id}, OrderID: id}
	now := d.now().In(d.opts.Location)
	return outcome{
		state: StateRescheduleAskTime,
		draft: Draft{OrderPick: p},
		reply: msgReschedulePrompt(refusal, id, d.pickerBounds(now)),
	}, nil
}
