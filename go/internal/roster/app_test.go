package roster

import (
	"context"
	"testing"
	"time"

	"github.com/mcdev12/studysync/go/internal/events"
)

type fakeRepo struct {
	members      []Member
	timerUserID  int64
	timerStatus  events.Status
	timerStart   time.Time
	timerEncoded string
}

func (f *fakeRepo) GetGroupRoster(ctx context.Context, groupID int64) ([]Member, error) {
	return f.members, nil
}

func (f *fakeRepo) GetMemberTimer(ctx context.Context, userID int64) (TimerRecord, error) {
	return TimerRecord{
		Status:    f.timerStatus,
		StartTime: f.timerStart,
		Duration:  f.timerEncoded,
	}, nil
}

func (f *fakeRepo) UpdateMemberTimer(ctx context.Context, userID int64, status events.Status, startTime time.Time, durationEncoded string) error {
	f.timerUserID = userID
	f.timerStatus = status
	f.timerStart = startTime
	f.timerEncoded = durationEncoded
	return nil
}

func (f *fakeRepo) UpdateMemberStatus(ctx context.Context, userID int64, status events.Status) error {
	return nil
}

func TestUpdateMemberTimerNormalizesInput(t *testing.T) {
	repo := &fakeRepo{}
	app := NewApp(repo)

	err := app.UpdateMemberTimer(context.Background(), 7, UpdateTimerRequest{
		Status:    events.StatusWork,
		StartTime: "2025-03-01T12:00:00", // no timezone marker
		Duration:  "PT25M0S",
	})
	if err != nil {
		t.Fatalf("UpdateMemberTimer: %v", err)
	}

	if repo.timerUserID != 7 || repo.timerStatus != events.StatusWork {
		t.Errorf("stored %d/%s", repo.timerUserID, repo.timerStatus)
	}
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if !repo.timerStart.Equal(want) {
		t.Errorf("start = %v, want %v (naive instant as UTC)", repo.timerStart, want)
	}
	if repo.timerEncoded != "PT25M0S" {
		t.Errorf("duration = %s", repo.timerEncoded)
	}
}

func TestGetMemberTimerRoundTrip(t *testing.T) {
	repo := &fakeRepo{}
	app := NewApp(repo)
	ctx := context.Background()

	if err := app.UpdateMemberTimer(ctx, 7, UpdateTimerRequest{
		Status:    events.StatusBreak,
		StartTime: "2025-03-01T12:00:00Z",
		Duration:  "PT5M0S",
	}); err != nil {
		t.Fatalf("UpdateMemberTimer: %v", err)
	}

	rec, err := app.GetMemberTimer(ctx, 7)
	if err != nil {
		t.Fatalf("GetMemberTimer: %v", err)
	}
	if rec.Status != events.StatusBreak || rec.Duration != "PT5M0S" {
		t.Errorf("record = %+v, want BREAK / PT5M0S", rec)
	}

	if _, err := app.GetMemberTimer(ctx, 0); err == nil {
		t.Error("zero user id should be rejected")
	}
}

func TestUpdateMemberTimerGuards(t *testing.T) {
	app := NewApp(&fakeRepo{})
	ctx := context.Background()

	if err := app.UpdateMemberTimer(ctx, 0, UpdateTimerRequest{Status: events.StatusWork, StartTime: "2025-03-01T12:00:00Z"}); err == nil {
		t.Error("zero user id should be rejected")
	}
	if err := app.UpdateMemberTimer(ctx, 7, UpdateTimerRequest{Status: "NAPPING", StartTime: "2025-03-01T12:00:00Z"}); err == nil {
		t.Error("unknown status should be rejected")
	}
	if err := app.UpdateMemberTimer(ctx, 7, UpdateTimerRequest{Status: events.StatusWork, StartTime: "whenever"}); err == nil {
		t.Error("unparseable start time should be rejected")
	}

	// Malformed duration degrades to zero instead of failing.
	repo := &fakeRepo{}
	app = NewApp(repo)
	if err := app.UpdateMemberTimer(ctx, 7, UpdateTimerRequest{
		Status: events.StatusWork, StartTime: "2025-03-01T12:00:00Z", Duration: "garbage",
	}); err != nil {
		t.Fatalf("malformed duration should not fail: %v", err)
	}
	if repo.timerEncoded != "PT0M0S" {
		t.Errorf("duration = %s, want PT0M0S", repo.timerEncoded)
	}
}
