package timer

import (
	"sync"
	"time"

	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/rs/zerolog/log"
)

// Phase is one leg of a Pomodoro cycle.
type Phase string

const (
	PhaseWork  Phase = "WORK"
	PhaseBreak Phase = "BREAK"
)

// State is the machine's lifecycle state. RUNNING counts down from an anchor
// timestamp; PAUSED holds a frozen remaining value.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
)

// Clock is the time source for the machine. In production use
// clockwork.NewRealClock(); in tests, a FakeClock.
type Clock interface {
	Now() time.Time
}

// Config holds the user-chosen phase lengths and the flip tunables.
type Config struct {
	SessionMinutes int
	BreakMinutes   int

	// FlipBackdate is subtracted from the re-anchor timestamp when a phase
	// expires and the machine auto-flips. It absorbs the cost of the flip
	// work itself so no time is visibly lost. Tunable, not precision.
	FlipBackdate time.Duration
}

// DefaultConfig returns the stock 25/5 Pomodoro settings.
func DefaultConfig() Config {
	return Config{
		SessionMinutes: 25,
		BreakMinutes:   5,
		FlipBackdate:   time.Second,
	}
}

// Machine owns one participant's local countdown: phase, anchor, duration and
// running state. It is driven only by its clock and the operations below, so
// it stays a pure, testable unit. All guarded operations silently no-op when
// their preconditions fail: these are user-facing controls, not protocol
// boundaries.
type Machine struct {
	mu    sync.Mutex
	clock Clock
	cfg   Config

	phase  Phase
	state  State
	anchor time.Time
	// duration is the total length of the current phase in seconds while
	// RUNNING, and the frozen remaining value while IDLE or PAUSED.
	duration int
	// wasReset suppresses resuming a stale in-flight phase from persisted
	// presence data after a reload.
	wasReset bool

	observer Observer
	notify   NotificationSink
	audio    AudioCue
}

// NewMachine creates a machine in IDLE with the full session loaded.
func NewMachine(clock Clock, cfg Config, opts ...Option) *Machine {
	if cfg.SessionMinutes < 1 || cfg.BreakMinutes < 1 {
		cfg = DefaultConfig()
	}
	if cfg.FlipBackdate < 0 {
		cfg.FlipBackdate = 0
	}
	m := &Machine{
		clock:    clock,
		cfg:      cfg,
		phase:    PhaseWork,
		state:    StateIdle,
		duration: cfg.SessionMinutes * 60,
		notify:   nopNotificationSink{},
		audio:    nopAudioCue{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option configures injected collaborators on a Machine.
type Option func(*Machine)

// WithObserver registers the receiver of the machine's domain events.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

// WithNotificationSink injects the phase-flip notification capability.
func WithNotificationSink(s NotificationSink) Option {
	return func(m *Machine) { m.notify = s }
}

// WithAudioCue injects the phase-flip audio capability.
func WithAudioCue(a AudioCue) Option {
	return func(m *Machine) { m.audio = a }
}

// Start anchors the countdown at now and transitions to RUNNING. It no-ops
// when already running or when nothing remains to count down.
func (m *Machine) Start() bool {
	m.mu.Lock()
	if m.state == StateRunning || m.duration <= 0 {
		m.mu.Unlock()
		return false
	}
	now := m.clock.Now()
	m.anchor = now
	m.state = StateRunning
	m.wasReset = false
	ev := m.updateEventLocked(EventPhaseStarted)
	m.mu.Unlock()

	m.emit(ev)
	return true
}

// Stop freezes the remaining time and transitions to PAUSED. The emitted
// update carries status ONLINE with the frozen remainder so peers see the
// countdown halt.
func (m *Machine) Stop() bool {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return false
	}
	m.duration = m.remainingLocked()
	m.state = StatePaused
	ev := Event{
		Kind:           EventPhaseStopped,
		Status:         events.StatusOnline,
		StartTime:      m.clock.Now(),
		Duration:       m.duration,
		SecondDuration: m.otherPhaseSecondsLocked(),
	}
	m.mu.Unlock()

	m.emit(ev)
	return true
}

// Tick recomputes the remaining time on the 1-second cadence. When it reaches
// zero the phase flips exactly once: work and break swap, the notification
// and audio sinks fire, and the new phase is re-anchored to now minus the
// configured backdate.
func (m *Machine) Tick() {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return
	}
	if m.remainingLocked() > 0 {
		m.mu.Unlock()
		return
	}

	expired := m.phase
	if m.phase == PhaseWork {
		m.phase = PhaseBreak
	} else {
		m.phase = PhaseWork
	}
	next := m.phase
	m.duration = m.phaseSecondsLocked(next)
	m.anchor = m.clock.Now().Add(-m.cfg.FlipBackdate)
	ev := m.updateEventLocked(EventPhaseExpired)
	m.mu.Unlock()

	log.Debug().
		Str("expired_phase", string(expired)).
		Str("next_phase", string(ev.Status)).
		Int("duration_sec", ev.Duration).
		Msg("phase flipped")

	m.notify.Notify(flipTitle(expired), flipBody(next))
	m.audio.Play()
	m.emit(ev)
}

// ApplySettings replaces the configured phase lengths. Permitted only while
// not running and only at a phase start, so an in-flight or half-spent phase
// is never silently rescaled. Forces the phase back to work.
func (m *Machine) ApplySettings(sessionMinutes, breakMinutes int) bool {
	if sessionMinutes < 1 || breakMinutes < 1 {
		return false
	}
	m.mu.Lock()
	if m.state == StateRunning || m.duration != m.phaseSecondsLocked(m.phase) {
		m.mu.Unlock()
		return false
	}
	m.cfg.SessionMinutes = sessionMinutes
	m.cfg.BreakMinutes = breakMinutes
	m.phase = PhaseWork
	m.state = StateIdle
	m.duration = sessionMinutes * 60
	ev := Event{
		Kind:           EventSettingsApplied,
		Status:         events.StatusOnline,
		StartTime:      m.clock.Now(),
		Duration:       m.duration,
		SecondDuration: breakMinutes * 60,
	}
	m.mu.Unlock()

	m.emit(ev)
	return true
}

// Reset forces IDLE with the full session reloaded and marks the machine so
// a later reload does not resume a stale in-flight phase.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.phase = PhaseWork
	m.state = StateIdle
	m.duration = m.cfg.SessionMinutes * 60
	m.wasReset = true
	ev := Event{
		Kind:           EventMachineReset,
		Status:         events.StatusOnline,
		StartTime:      m.clock.Now(),
		Duration:       m.duration,
		SecondDuration: m.cfg.BreakMinutes * 60,
	}
	m.mu.Unlock()

	m.emit(ev)
}

// ApplySync is the sync-accept override entry point. It adopts a peer's
// phase and remaining time wholesale, shaped exactly like a local Start so
// the rest of the system cannot tell a sync-derived start from a local one.
func (m *Machine) ApplySync(status events.Status, startTime time.Time, remainingSec int) bool {
	phase, ok := phaseForStatus(status)
	if !ok || remainingSec < 0 {
		return false
	}
	m.mu.Lock()
	m.phase = phase
	m.anchor = startTime
	m.duration = remainingSec
	m.state = StateRunning
	m.wasReset = false
	ev := m.updateEventLocked(EventPhaseStarted)
	m.mu.Unlock()

	m.emit(ev)
	return true
}

// Remaining returns the seconds left in the current phase, never negative.
func (m *Machine) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked()
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status maps the machine's state onto the wire presence value it should
// broadcast: the phase while running, ONLINE otherwise.
func (m *Machine) Status() events.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateRunning {
		return statusForPhase(m.phase)
	}
	return events.StatusOnline
}

// Settings returns the configured phase lengths in minutes.
func (m *Machine) Settings() (sessionMinutes, breakMinutes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.SessionMinutes, m.cfg.BreakMinutes
}

// WasReset reports whether the machine was explicitly reset since it last
// started, so callers can skip resuming persisted presence data.
func (m *Machine) WasReset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wasReset
}

func (m *Machine) remainingLocked() int {
	if m.state != StateRunning {
		return m.duration
	}
	elapsed := int(m.clock.Now().Sub(m.anchor) / time.Second)
	remaining := m.duration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (m *Machine) phaseSecondsLocked(p Phase) int {
	if p == PhaseBreak {
		return m.cfg.BreakMinutes * 60
	}
	return m.cfg.SessionMinutes * 60
}

func (m *Machine) otherPhaseSecondsLocked() int {
	if m.phase == PhaseWork {
		return m.cfg.BreakMinutes * 60
	}
	return m.cfg.SessionMinutes * 60
}

// updateEventLocked builds the running-phase update emission.
func (m *Machine) updateEventLocked(kind EventKind) Event {
	return Event{
		Kind:           kind,
		Status:         statusForPhase(m.phase),
		StartTime:      m.anchor,
		Duration:       m.duration,
		SecondDuration: m.otherPhaseSecondsLocked(),
	}
}

// emit runs outside the machine lock so observers may call back in.
func (m *Machine) emit(ev Event) {
	if m.observer != nil {
		m.observer.TimerEvent(ev)
	}
}

func statusForPhase(p Phase) events.Status {
	if p == PhaseBreak {
		return events.StatusBreak
	}
	return events.StatusWork
}

func phaseForStatus(s events.Status) (Phase, bool) {
	switch s {
	case events.StatusWork:
		return PhaseWork, true
	case events.StatusBreak:
		return PhaseBreak, true
	default:
		return "", false
	}
}

func flipTitle(expired Phase) string {
	if expired == PhaseWork {
		return "Session complete"
	}
	return "Break over"
}

func flipBody(next Phase) string {
	if next == PhaseBreak {
		return "Time for a break."
	}
	return "Back to work."
}
