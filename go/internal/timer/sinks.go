package timer

import (
	"time"

	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/rs/zerolog/log"
)

// EventKind identifies the machine's domain events.
type EventKind string

const (
	EventPhaseStarted    EventKind = "PhaseStarted"
	EventPhaseStopped    EventKind = "PhaseStopped"
	EventPhaseExpired    EventKind = "PhaseExpired"
	EventSettingsApplied EventKind = "SettingsApplied"
	EventMachineReset    EventKind = "MachineReset"
)

// Event is the machine's emission on every state transition. Duration is the
// active phase's total length (or the frozen remainder on a stop), and
// SecondDuration is the other phase's configured length.
type Event struct {
	Kind           EventKind
	Status         events.Status
	StartTime      time.Time
	Duration       int
	SecondDuration int
}

// Observer receives the machine's domain events. The machine never calls it
// while holding its own lock.
type Observer interface {
	TimerEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// TimerEvent implements Observer.
func (f ObserverFunc) TimerEvent(ev Event) { f(ev) }

// NotificationSink is the injected capability that surfaces a phase flip to
// the participant.
type NotificationSink interface {
	Notify(title, body string)
}

// AudioCue is the injected capability that plays the flip chime.
type AudioCue interface {
	Play()
}

type nopNotificationSink struct{}

func (nopNotificationSink) Notify(title, body string) {}

type nopAudioCue struct{}

func (nopAudioCue) Play() {}

// LogNotificationSink writes notifications to the log. Useful for headless
// clients that have no system notification channel.
type LogNotificationSink struct{}

// Notify implements NotificationSink.
func (LogNotificationSink) Notify(title, body string) {
	log.Info().Str("title", title).Str("body", body).Msg("phase notification")
}
