package events

import "time"

// Payload types for the four group-channel message kinds. Field names are
// part of the wire contract shared with every peer in a group.

// TimerUpdatePayload is a full-state replacement of one participant's timer.
// Duration carries the PT-encoded total length of the current phase;
// SecondDuration carries the other phase's configured length so a peer
// adopting this state via sync knows both, not just the active one.
type TimerUpdatePayload struct {
	Type           MessageType `json:"type"`
	UserID         string      `json:"userId"`
	Status         Status      `json:"status"`
	StartTime      string      `json:"startTime"`
	Duration       string      `json:"duration"`
	SecondDuration string      `json:"secondDuration,omitempty"`
}

// StatusPayload updates only a participant's presence, leaving any known
// timer state untouched.
type StatusPayload struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
	Status Status      `json:"status"`
}

// SyncOfferPayload is a broadcast proposal to align the group's timers to the
// sender's remaining time. Duration is the sender's remaining time at send
// time, PT-encoded.
type SyncOfferPayload struct {
	Type       MessageType `json:"type"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	Status     Status      `json:"status"`
	StartTime  string      `json:"startTime"`
	Duration   string      `json:"duration"`
}

// ChatPayload is a plain group chat line. The timer core relays it untouched.
type ChatPayload struct {
	Type       MessageType `json:"type"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	Body       string      `json:"body"`
	SentAt     time.Time   `json:"sentAt"`
}
