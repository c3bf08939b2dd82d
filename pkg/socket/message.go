package socket

import (
	"encoding/json"
	"fmt"
)

// Reserved events carrying transport connection signals. They have no payload.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

// Message is a single inbound frame.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	CID   string          `json:"cid,omitempty"`
}

// Decode unmarshals the frame payload into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("socket: event %q has no payload", m.Event)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("socket: decode %q: %w", m.Event, err)
	}
	return nil
}

// Handler consumes one inbound message.
type Handler func(Message)

func encode(event, cid string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("socket: marshal %q payload: %w", event, err)
		}
		data = b
	}
	return json.Marshal(Message{Event: event, Data: data, CID: cid})
}

func decode(frame []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return Message{}, fmt.Errorf("socket: malformed frame: %w", err)
	}
	if m.Event == "" {
		return Message{}, fmt.Errorf("socket: frame without event name")
	}
	return m, nil
}
