package group

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studysync/go/internal/duration"
	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/rs/zerolog/log"
)

// Clock is the aggregator's time source. In production use
// clockwork.NewRealClock(); in tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// TimerInfo is the per-participant derived timer projection. It is replaced
// wholesale on each TIMER_UPDATE, never partially mutated.
type TimerInfo struct {
	// AnchorStart is when the current phase began, as observed by this
	// client.
	AnchorStart time.Time
	// DurationSeconds is the total length of the current phase, or the
	// frozen remainder when the participant stopped mid-phase.
	DurationSeconds int
	// Running mirrors whether the status is a countdown-active one.
	Running bool
}

// Participant is one group member as seen by this client.
type Participant struct {
	ID       int64
	Username string
	Status   events.Status
	Timer    *TimerInfo
}

// RosterMember is a roster-fetch entry.
type RosterMember struct {
	ID       int64
	Username string
	Status   events.Status
}

// Aggregator folds the group's asynchronous status/timer event stream into a
// consistent mapping keyed by participant identity. Each TIMER_UPDATE is a
// full-state replacement per sender, so ordering loss across participants
// self-heals on the next update (last-write-wins). Malformed events are
// dropped per-message and never stop the fold.
type Aggregator struct {
	mu           sync.RWMutex
	clock        Clock
	participants map[int64]*Participant
}

// NewAggregator creates an empty aggregator.
func NewAggregator(clock Clock) *Aggregator {
	return &Aggregator{
		clock:        clock,
		participants: make(map[int64]*Participant),
	}
}

// LoadRoster replaces the whole participant mapping with a fresh roster
// fetch. This is the only path that removes participants.
func (a *Aggregator) LoadRoster(members []RosterMember) {
	next := make(map[int64]*Participant, len(members))
	for _, m := range members {
		next[m.ID] = &Participant{
			ID:       m.ID,
			Username: m.Username,
			Status:   m.Status,
		}
	}

	a.mu.Lock()
	// Carry over timer state already learned from the stream so a roster
	// refresh does not blank running countdowns.
	for id, p := range a.participants {
		if np, ok := next[id]; ok && p.Timer != nil {
			np.Timer = p.Timer
			if p.Status.CountdownActive() {
				np.Status = p.Status
			}
		}
	}
	a.participants = next
	a.mu.Unlock()

	log.Debug().Int("members", len(members)).Msg("roster loaded")
}

// Apply folds one raw wire message into the mapping. Unknown message kinds
// are ignored; malformed payloads are logged and dropped.
func (a *Aggregator) Apply(data []byte) {
	env, err := events.ParseEnvelope(data)
	if err != nil {
		log.Debug().Err(err).Msg("dropping unparseable group message")
		return
	}

	switch env.Type {
	case events.MessageTypeTimerUpdate:
		var p events.TimerUpdatePayload
		if err := json.Unmarshal(env.Raw, &p); err != nil {
			log.Debug().Err(err).Msg("dropping malformed timer update")
			return
		}
		a.applyTimerUpdate(p)

	case events.MessageTypeStatus:
		var p events.StatusPayload
		if err := json.Unmarshal(env.Raw, &p); err != nil {
			log.Debug().Err(err).Msg("dropping malformed status event")
			return
		}
		a.applyStatus(p)

	default:
		// SYNC_OFFER and CHAT do not touch presence; unknown kinds no-op.
	}
}

func (a *Aggregator) applyTimerUpdate(p events.TimerUpdatePayload) {
	id, err := strconv.ParseInt(p.UserID, 10, 64)
	if err != nil {
		log.Debug().Str("user_id", p.UserID).Msg("dropping timer update with non-numeric user id")
		return
	}

	anchor, err := parseInstant(p.StartTime)
	if err != nil {
		log.Debug().Err(err).Str("start_time", p.StartTime).Msg("dropping timer update with bad start time")
		return
	}

	info := &TimerInfo{
		AnchorStart:     anchor,
		DurationSeconds: duration.Decode(p.Duration),
		Running:         p.Status.CountdownActive(),
	}

	a.mu.Lock()
	participant, ok := a.participants[id]
	if !ok {
		// Seen on the stream before the roster named them; keep the entry
		// so last-write-wins holds, the username fills in on refetch.
		participant = &Participant{ID: id}
		a.participants[id] = participant
	}
	// Status and timer replaced together, never left half-updated.
	participant.Status = p.Status
	participant.Timer = info
	a.mu.Unlock()
}

func (a *Aggregator) applyStatus(p events.StatusPayload) {
	id, err := strconv.ParseInt(p.UserID, 10, 64)
	if err != nil {
		log.Debug().Str("user_id", p.UserID).Msg("dropping status event with non-numeric user id")
		return
	}

	a.mu.Lock()
	participant, ok := a.participants[id]
	if !ok {
		participant = &Participant{ID: id}
		a.participants[id] = participant
	}
	// Presence-only change: any known timer state stays untouched.
	participant.Status = p.Status
	a.mu.Unlock()
}

// parseInstant normalizes a wire timestamp to an unambiguous instant.
// Senders may omit the timezone marker; such values are treated as UTC.
func parseInstant(text string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	if !strings.HasSuffix(text, "Z") && !strings.ContainsAny(text, "+") {
		if t, err := time.Parse(time.RFC3339, text+"Z"); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339Nano, text)
}
