package group

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// MemberView is one participant's renderable row. Remaining is nil when the
// participant has no active phase and should show a placeholder.
type MemberView struct {
	ID        int64
	Username  string
	Status    string
	Remaining *int
}

// GroupTimerView is the derived "what is everyone's timer doing right now"
// projection, recomputed on demand and on the render tick. It is a snapshot,
// never shared mutable state.
type GroupTimerView struct {
	Members []MemberView
}

// View computes the current projection. A running participant's remainder is
// ceil((anchor + duration - now)/1s) clamped at zero; a paused one shows the
// frozen duration; ONLINE/OFFLINE participants never show a countdown, even
// if stale timer state exists for them.
func (a *Aggregator) View() GroupTimerView {
	now := a.clock.Now()

	a.mu.RLock()
	members := make([]MemberView, 0, len(a.participants))
	for _, p := range a.participants {
		members = append(members, MemberView{
			ID:        p.ID,
			Username:  p.Username,
			Status:    string(p.Status),
			Remaining: remainingFor(p, now),
		})
	}
	a.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return GroupTimerView{Members: members}
}

// Remaining returns one participant's displayed remainder, or false when
// they render a placeholder or are unknown.
func (a *Aggregator) Remaining(userID int64) (int, bool) {
	now := a.clock.Now()

	a.mu.RLock()
	p, ok := a.participants[userID]
	var r *int
	if ok {
		r = remainingFor(p, now)
	}
	a.mu.RUnlock()

	if r == nil {
		return 0, false
	}
	return *r, true
}

func remainingFor(p *Participant, now time.Time) *int {
	if !p.Status.CountdownActive() || p.Timer == nil {
		return nil
	}
	if !p.Timer.Running {
		frozen := p.Timer.DurationSeconds
		return &frozen
	}
	deadline := p.Timer.AnchorStart.Add(time.Duration(p.Timer.DurationSeconds) * time.Second)
	left := deadline.Sub(now)
	if left <= 0 {
		zero := 0
		return &zero
	}
	secs := int((left + time.Second - 1) / time.Second)
	return &secs
}

// Run recomputes the projection on the render cadence and hands each frame to
// render until the context is cancelled. The caller tears this down together
// with the transport subscription when the group view leaves the screen.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration, render func(GroupTimerView)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := a.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("group view tick stopped")
			return
		case <-ticker.Chan():
			render(a.View())
		}
	}
}
