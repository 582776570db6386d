package roster

import (
	"time"

	"github.com/mcdev12/studysync/go/internal/events"
)

// Member is one group membership row: identity, display name and presence.
type Member struct {
	ID       int64         `json:"id"`
	Username string        `json:"username"`
	Status   events.Status `json:"status"`
}

// TimerRecord is the persisted last-known timer anchor for a member. It is
// best-effort telemetry: each client's local countdown stays the source of
// truth for that client.
type TimerRecord struct {
	Status    events.Status `json:"status"`
	StartTime time.Time     `json:"startTime"`
	Duration  string        `json:"duration"`
}

// UpdateTimerRequest is the PUT /users/{id}/timer body. Duration is
// PT-encoded; StartTime is an ISO instant.
type UpdateTimerRequest struct {
	Status    events.Status `json:"status"`
	StartTime string        `json:"startTime"`
	Duration  string        `json:"duration"`
}
