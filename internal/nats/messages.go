package nats

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smazurov/lightnode/internal/device"
	"github.com/smazurov/lightnode/internal/heart"
)

// Subjects.
const (
	SubjectControlDirective = "lightnode.control.directive"
	SubjectEventsPrefix     = "lightnode.events"
	SubjectCursorState      = SubjectEventsPrefix + ".cursor"
	SubjectDeviceState      = SubjectEventsPrefix + ".device"
)

// Control actions.
const (
	ActionOn        = "on"
	ActionOff       = "off"
	ActionLoad      = "load"
	ActionColor     = "color"
	ActionReconnect = "reconnect"
)

// ControlMessage asks the engine to apply a directive.
type ControlMessage struct {
	Action    string `json:"action"`
	Pattern   string `json:"pattern,omitempty"`
	Color     string `json:"color,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Directive maps the message onto an effect loop directive.
func (m ControlMessage) Directive() (heart.Directive, error) {
	action := strings.ToLower(strings.TrimSpace(m.Action))
	switch action {
	case ActionOn, ActionOff, ActionLoad:
		return heart.ParseMode(action, m.Pattern)
	case ActionColor:
		basic, err := device.ParseBasicColor(m.Color)
		if err != nil {
			return heart.Directive{}, err
		}
		return heart.Show(device.Basic(basic)), nil
	case ActionReconnect:
		return heart.Reconnect(), nil
	default:
		return heart.Directive{}, fmt.Errorf("unknown action %q", m.Action)
	}
}

// UnmarshalControl deserializes a ControlMessage from JSON.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// Ack is the reply to a control request.
type Ack struct {
	OK        bool   `json:"ok"`
	Directive string `json:"directive,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Marshal serializes the ack to JSON.
func (a Ack) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

// UnmarshalAck deserializes an Ack from JSON.
func UnmarshalAck(data []byte) (Ack, error) {
	var a Ack
	err := json.Unmarshal(data, &a)
	return a, err
}
