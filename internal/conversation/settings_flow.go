package conversation

import (
	"fmt"
	"strings"
)

const preferredPlateTag = "preferred plate:"

func (d *Dispatcher) onSettingsMenu(t *turn) (outcome, error) {
	return t.stay(msgSettingsMenu()), nil
}

func (d *Dispatcher) onSetName(t *turn) (outcome, error) {
	if t.text == "" {
		return t.stay(msgAskNewName()), nil
	}
	t.user.Name = t.text
	if err := d.Customers.UpdateUser(t.ctx, t.user); err != nil {
		return outcome{}, fmt.Errorf("update name: %w", err)
	}
	return reset(msgProfileUpdated("Name", t.text)), nil
}

func (d *Dispatcher) onSetPhone(t *turn) (outcome, error) {
	if !validPhone(t.text) {
		return t.stay(msgPhoneFormat()), nil
	}
	t.user.Phone = t.text
	if err := d.Customers.UpdateUser(t.ctx, t.user); err != nil {
		return outcome{}, fmt.Errorf("update phone: %w", err)
	}
	return reset(msgProfileUpdated("Phone", t.text)), nil
}

// onSetPlate records the plate as a tag in the user note, once.
func (d *Dispatcher) onSetPlate(t *turn) (outcome, error) {
	plate, ok := normalizePlate(t.text)
	if !ok {
		return t.stay(msgPlateFormat()), nil
	}
	t.user.Note = addNoteTag(t.user.Note, preferredPlateTag+plate)
	if err := d.Customers.UpdateUser(t.ctx, t.user); err != nil {
		return outcome{}, fmt.Errorf("update preferred plate: %w", err)
	}
	return reset(msgProfileUpdated("Preferred plate", plate)), nil
}

func addNoteTag(note, tag string) string {
	if strings.Contains(note, tag) {
		return note
	}
	return strings.TrimSpace(note + " " + tag)
}
