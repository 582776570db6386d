package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studysync/go/clients/groupapi"
	"github.com/mcdev12/studysync/go/internal/duration"
	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/mcdev12/studysync/go/internal/group"
	"github.com/mcdev12/studysync/go/internal/syncer"
	"github.com/mcdev12/studysync/go/internal/timer"
	"github.com/mcdev12/studysync/go/internal/transport"
	"github.com/rs/zerolog/log"
)

// Config identifies the participant and their group.
type Config struct {
	UserID       int64
	Username     string
	GroupID      int64
	TickInterval time.Duration
	Timer        timer.Config
}

// RosterClient defines what the session needs from the persistence service.
type RosterClient interface {
	FetchRoster(ctx context.Context, groupID int64) ([]groupapi.RosterEntry, error)
	PutTimer(ctx context.Context, userID int64, update groupapi.TimerUpdate) error
}

// Session is one participant's composition of the timer core: the state
// machine, the sync coordinator and the presence aggregator, wired to the
// group's shared channel. All state mutation is serialized onto the Run
// loop: transport deliveries and the 1-second tick land on the same queue,
// so no two updates race each other.
type Session struct {
	cfg    Config
	clock  clockwork.Clock
	broker transport.Broker
	api    RosterClient

	machine *timer.Machine
	coord   *syncer.Coordinator
	agg     *group.Aggregator

	render  func(group.GroupTimerView)
	inbound chan []byte
}

// Option configures optional session collaborators.
type Option func(*sessionOptions)

type sessionOptions struct {
	render func(group.GroupTimerView)
	notify timer.NotificationSink
	audio  timer.AudioCue
}

// WithRenderer registers the per-tick view consumer.
func WithRenderer(render func(group.GroupTimerView)) Option {
	return func(o *sessionOptions) { o.render = render }
}

// WithNotificationSink injects the phase-flip notification capability.
func WithNotificationSink(s timer.NotificationSink) Option {
	return func(o *sessionOptions) { o.notify = s }
}

// WithAudioCue injects the phase-flip audio capability.
func WithAudioCue(a timer.AudioCue) Option {
	return func(o *sessionOptions) { o.audio = a }
}

// New composes a session. The broker must be connected before Run.
func New(cfg Config, clock clockwork.Clock, broker transport.Broker, api RosterClient, opts ...Option) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Timer.SessionMinutes == 0 && cfg.Timer.BreakMinutes == 0 {
		cfg.Timer = timer.DefaultConfig()
	}

	var options sessionOptions
	for _, opt := range opts {
		opt(&options)
	}

	s := &Session{
		cfg:     cfg,
		clock:   clock,
		broker:  broker,
		api:     api,
		agg:     group.NewAggregator(clock),
		render:  options.render,
		inbound: make(chan []byte, 64),
	}

	machineOpts := []timer.Option{timer.WithObserver(timer.ObserverFunc(s.onTimerEvent))}
	if options.notify != nil {
		machineOpts = append(machineOpts, timer.WithNotificationSink(options.notify))
	}
	if options.audio != nil {
		machineOpts = append(machineOpts, timer.WithAudioCue(options.audio))
	}
	s.machine = timer.NewMachine(clock, cfg.Timer, machineOpts...)
	s.coord = syncer.NewCoordinator(clock, s.machine, s, cfg.UserID, cfg.Username)

	return s
}

// Run fetches the roster, subscribes to the group channel and serializes
// event deliveries with the render tick until the context is cancelled. The
// subscription and the tick are torn down together on exit.
func (s *Session) Run(ctx context.Context) error {
	roster, err := s.api.FetchRoster(ctx, s.cfg.GroupID)
	if err != nil {
		return fmt.Errorf("fetch roster: %w", err)
	}
	s.agg.LoadRoster(rosterMembers(roster))

	topic := transport.GroupTopic(s.cfg.GroupID)
	sub, err := s.broker.Subscribe(topic, func(_ string, data []byte) {
		select {
		case s.inbound <- data:
		default:
			// A dropped update self-heals on the next full-state one.
			log.Warn().Msg("session inbound queue full, dropping message")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	defer sub.Unsubscribe()

	s.publishStatus(ctx, events.StatusOnline)
	defer s.publishStatus(context.Background(), events.StatusOffline)

	log.Info().
		Int64("group_id", s.cfg.GroupID).
		Int64("user_id", s.cfg.UserID).
		Int("members", len(roster)).
		Msg("session joined group")

	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Int64("group_id", s.cfg.GroupID).Msg("session leaving group")
			return nil
		case data := <-s.inbound:
			s.dispatch(data)
		case <-ticker.Chan():
			s.machine.Tick()
			if s.render != nil {
				s.render(s.agg.View())
			}
		}
	}
}

// dispatch folds one wire message. The aggregator handles presence and
// timer state; sync offers additionally route to the coordinator. Malformed
// or unknown messages are dropped without stopping the loop.
func (s *Session) dispatch(data []byte) {
	s.agg.Apply(data)

	env, err := events.ParseEnvelope(data)
	if err != nil {
		return
	}
	payload, err := events.ParsePayload(env)
	if err != nil {
		log.Debug().Err(err).Str("type", string(env.Type)).Msg("dropping malformed group message")
		return
	}
	if offer, ok := payload.(events.SyncOfferPayload); ok {
		s.coord.HandleOffer(offer)
	}
}

// onTimerEvent broadcasts every machine transition to the group and
// persists the anchor fire-and-forget. A slow or failed persistence write
// never blocks or rolls back the local transition.
func (s *Session) onTimerEvent(ev timer.Event) {
	payload := events.TimerUpdatePayload{
		Type:           events.MessageTypeTimerUpdate,
		UserID:         strconv.FormatInt(s.cfg.UserID, 10),
		Status:         ev.Status,
		StartTime:      ev.StartTime.UTC().Format(time.RFC3339),
		Duration:       duration.Encode(ev.Duration),
		SecondDuration: duration.Encode(ev.SecondDuration),
	}
	s.publish(context.Background(), payload)

	update := groupapi.TimerUpdate{
		Status:    string(ev.Status),
		StartTime: payload.StartTime,
		Duration:  payload.Duration,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.api.PutTimer(ctx, s.cfg.UserID, update); err != nil {
			log.Error().Err(err).Msg("timer persistence write failed")
		}
	}()
}

// PublishSyncOffer implements syncer.OfferPublisher.
func (s *Session) PublishSyncOffer(ctx context.Context, offer events.SyncOfferPayload) error {
	data, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("marshal sync offer: %w", err)
	}
	return s.broker.Publish(ctx, transport.GroupTopic(s.cfg.GroupID), data)
}

// SendChat relays a chat line over the group channel.
func (s *Session) SendChat(ctx context.Context, body string) error {
	payload := events.ChatPayload{
		Type:       events.MessageTypeChat,
		SenderID:   strconv.FormatInt(s.cfg.UserID, 10),
		SenderName: s.cfg.Username,
		Body:       body,
		SentAt:     s.clock.Now().UTC(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal chat: %w", err)
	}
	return s.broker.Publish(ctx, transport.GroupTopic(s.cfg.GroupID), data)
}

// StartTimer starts the local countdown.
func (s *Session) StartTimer() bool { return s.machine.Start() }

// StopTimer pauses the local countdown with its remainder frozen.
func (s *Session) StopTimer() bool { return s.machine.Stop() }

// ResetTimer forces the machine back to a fresh session.
func (s *Session) ResetTimer() { s.machine.Reset() }

// ApplySettings replaces the configured phase lengths.
func (s *Session) ApplySettings(sessionMinutes, breakMinutes int) bool {
	return s.machine.ApplySettings(sessionMinutes, breakMinutes)
}

// OfferSync broadcasts the local remaining time for peers to adopt.
func (s *Session) OfferSync(ctx context.Context) bool { return s.coord.Offer(ctx) }

// PendingSync returns the buffered offer awaiting a decision.
func (s *Session) PendingSync() (syncer.PendingOffer, bool) { return s.coord.Pending() }

// AcceptSync adopts the pending offer, compensated for transit delay.
func (s *Session) AcceptSync() bool { return s.coord.Accept() }

// DeclineSync discards the pending offer.
func (s *Session) DeclineSync() { s.coord.Decline() }

// View returns the current group projection.
func (s *Session) View() group.GroupTimerView { return s.agg.View() }

// PeerRemaining returns a member's live remaining seconds, when they have
// an active countdown.
func (s *Session) PeerRemaining(userID int64) (int, bool) { return s.agg.Remaining(userID) }

// Remaining returns the local machine's remaining seconds.
func (s *Session) Remaining() int { return s.machine.Remaining() }

func (s *Session) publishStatus(ctx context.Context, status events.Status) {
	s.publish(ctx, events.StatusPayload{
		Type:   events.MessageTypeStatus,
		UserID: strconv.FormatInt(s.cfg.UserID, 10),
		Status: status,
	})
}

func (s *Session) publish(ctx context.Context, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal group message")
		return
	}
	if err := s.broker.Publish(ctx, transport.GroupTopic(s.cfg.GroupID), data); err != nil {
		log.Error().Err(err).Msg("failed to publish group message")
	}
}

func rosterMembers(roster []groupapi.RosterEntry) []group.RosterMember {
	members := make([]group.RosterMember, 0, len(roster))
	for _, entry := range roster {
		members = append(members, group.RosterMember{
			ID:       entry.ID,
			Username: entry.Username,
			Status:   events.Status(entry.Status),
		})
	}
	return members
}
