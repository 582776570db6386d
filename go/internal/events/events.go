package events

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates the envelope of every group-channel message.
type MessageType string

const (
	MessageTypeTimerUpdate MessageType = "TIMER_UPDATE"
	MessageTypeStatus      MessageType = "STATUS"
	MessageTypeSyncOffer   MessageType = "SYNC_OFFER"
	MessageTypeChat        MessageType = "CHAT"
)

// Status is a participant's coarse-grained presence state.
type Status string

const (
	StatusOnline  Status = "ONLINE"
	StatusOffline Status = "OFFLINE"
	StatusWork    Status = "WORK"
	StatusBreak   Status = "BREAK"
)

// CountdownActive reports whether the status has a running phase behind it.
// ONLINE and OFFLINE are terminal: no countdown is in progress.
func (s Status) CountdownActive() bool {
	return s == StatusWork || s == StatusBreak
}

// Envelope is the decoded head of a group-channel message. The raw bytes are
// kept so the type-specific payload can be unmarshaled after discrimination.
type Envelope struct {
	Type MessageType
	Raw  json.RawMessage
}

// ParseEnvelope reads the type tag of a wire message. The payload fields stay
// raw until the consumer asks for the typed form.
func ParseEnvelope(data []byte) (Envelope, error) {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if head.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type tag")
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Envelope{Type: head.Type, Raw: raw}, nil
}

// ParsePayload unmarshals the envelope into its type-specific payload struct.
// Unknown message types yield (nil, nil): consumers must treat kinds they do
// not understand as a no-op, never as a fault.
func ParsePayload(env Envelope) (interface{}, error) {
	switch env.Type {
	case MessageTypeTimerUpdate:
		var p TimerUpdatePayload
		if err := json.Unmarshal(env.Raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MessageTypeStatus:
		var p StatusPayload
		if err := json.Unmarshal(env.Raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MessageTypeSyncOffer:
		var p SyncOfferPayload
		if err := json.Unmarshal(env.Raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case MessageTypeChat:
		var p ChatPayload
		if err := json.Unmarshal(env.Raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, nil
	}
}
