package messaging

import "strings"

// Message is one outbound reply: plain text, a card, or both.
type Message struct {
	Text string `json:"text,omitempty"`
	Card *Card  `json:"card,omitempty"`
}

// Card is a titled block of label/value lines with selectable actions.
type Card struct {
	Title   string   `json:"title"`
	Lines   []Line   `json:"lines,omitempty"`
	Actions []Action `json:"actions,omitempty"`
}

type Line struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Action round-trips Code back to the bot when selected.
type Action struct {
	Label  string  `json:"label"`
	Code   string  `json:"code"`
	Picker *Picker `json:"picker,omitempty"`
}

// Picker asks the client for a date-time. Values use PickerLayout.
type Picker struct {
	Mode    string `json:"mode"`
	Initial string `json:"initial,omitempty"`
	Min     string `json:"min,omitempty"`
	Max     string `json:"max,omitempty"`
}

const PickerLayout = "2006-01-02T15:04"

func Text(s string) Message {
	return Message{Text: s}
}

// String renders the message as plain text for logs and text-only transports.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(m.Text)
	if m.Card == nil {
		return b.String()
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("[" + m.Card.Title + "]")
	for _, l := range m.Card.Lines {
		b.WriteString("\n")
		if l.Label != "" {
			b.WriteString(l.Label + ": ")
		}
		b.WriteString(l.Value)
	}
	for _, a := range m.Card.Actions {
		b.WriteString("\n(" + a.Label + ")")
	}
	return b.String()
}

// Codes lists the action codes of the card, in order.
func (m Message) Codes() []string {
	if m.Card == nil {
		return nil
	}
	codes := make([]string, len(m.Card.Actions))
	for i, a := range m.Card.Actions {
		codes[i] = a.Code
	}
	return codes
}
