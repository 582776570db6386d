package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/studysync/go/internal/duration"
	"github.com/mcdev12/studysync/go/internal/events"
)

// RosterRepository defines what the app layer needs from the repository.
type RosterRepository interface {
	GetGroupRoster(ctx context.Context, groupID int64) ([]Member, error)
	GetMemberTimer(ctx context.Context, userID int64) (TimerRecord, error)
	UpdateMemberTimer(ctx context.Context, userID int64, status events.Status, startTime time.Time, durationEncoded string) error
	UpdateMemberStatus(ctx context.Context, userID int64, status events.Status) error
}

// App handles roster business logic.
type App struct {
	repo RosterRepository
}

// NewApp creates a roster App.
func NewApp(repo RosterRepository) *App {
	return &App{repo: repo}
}

// GetGroupRoster returns a group's members with validation.
func (a *App) GetGroupRoster(ctx context.Context, groupID int64) ([]Member, error) {
	if groupID <= 0 {
		return nil, fmt.Errorf("group id must be positive, got %d", groupID)
	}
	members, err := a.repo.GetGroupRoster(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group roster: %w", err)
	}
	return members, nil
}

// GetMemberTimer returns a member's persisted timer anchor so a reloading
// client can resume its last-known countdown.
func (a *App) GetMemberTimer(ctx context.Context, userID int64) (TimerRecord, error) {
	if userID <= 0 {
		return TimerRecord{}, fmt.Errorf("user id must be positive, got %d", userID)
	}
	rec, err := a.repo.GetMemberTimer(ctx, userID)
	if err != nil {
		return TimerRecord{}, fmt.Errorf("failed to get member timer: %w", err)
	}
	return rec, nil
}

// UpdateMemberTimer validates and stores a member's timer anchor. The
// duration stays in its PT-encoded wire form; a malformed value degrades to
// "PT0M0S" rather than failing, matching the codec's lenient contract.
func (a *App) UpdateMemberTimer(ctx context.Context, userID int64, req UpdateTimerRequest) error {
	if userID <= 0 {
		return fmt.Errorf("user id must be positive, got %d", userID)
	}
	if !validStatus(req.Status) {
		return fmt.Errorf("unknown status %q", req.Status)
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		// Senders may omit the timezone marker; treat the instant as UTC.
		startTime, err = time.Parse(time.RFC3339, req.StartTime+"Z")
		if err != nil {
			return fmt.Errorf("unparseable start time %q", req.StartTime)
		}
	}

	normalized := duration.Encode(duration.Decode(req.Duration))
	return a.repo.UpdateMemberTimer(ctx, userID, req.Status, startTime.UTC(), normalized)
}

// UpdateMemberStatus stores a presence-only change.
func (a *App) UpdateMemberStatus(ctx context.Context, userID int64, status events.Status) error {
	if userID <= 0 {
		return fmt.Errorf("user id must be positive, got %d", userID)
	}
	if !validStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	return a.repo.UpdateMemberStatus(ctx, userID, status)
}

func validStatus(s events.Status) bool {
	switch s {
	case events.StatusOnline, events.StatusOffline, events.StatusWork, events.StatusBreak:
		return true
	default:
		return false
	}
}
