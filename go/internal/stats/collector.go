package stats

import (
	"context"
	"strconv"
	"time"

	"github.com/mcdev12/studysync/go/internal/duration"
	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/mcdev12/studysync/go/internal/transport"
	"github.com/rs/zerolog/log"
)

// PhaseStore defines what the collector needs from the repository.
type PhaseStore interface {
	InsertPhaseRecord(ctx context.Context, rec Record) error
}

// Collector listens on every group channel and records phase starts as
// telemetry. It is entirely off the timer path: any failure is logged and
// dropped, and the collector keeps consuming for the life of the hub.
type Collector struct {
	store  PhaseStore
	broker transport.Broker
	sub    transport.Subscription
}

// NewCollector creates a collector over an already-connected broker.
func NewCollector(store PhaseStore, broker transport.Broker) *Collector {
	return &Collector{store: store, broker: broker}
}

// Start subscribes and records until the context is cancelled.
func (c *Collector) Start(ctx context.Context) error {
	sub, err := c.broker.Subscribe(transport.AllGroupsTopic, func(topic string, data []byte) {
		c.record(ctx, data)
	})
	if err != nil {
		return err
	}
	c.sub = sub

	log.Info().Msg("phase telemetry collector started")
	<-ctx.Done()
	return c.sub.Unsubscribe()
}

func (c *Collector) record(ctx context.Context, data []byte) {
	env, err := events.ParseEnvelope(data)
	if err != nil {
		return
	}
	payload, err := events.ParsePayload(env)
	if err != nil {
		return
	}
	p, ok := payload.(events.TimerUpdatePayload)
	if !ok {
		return
	}
	// Only phase starts are telemetry; stops and presence carry no phase.
	if !p.Status.CountdownActive() {
		return
	}

	userID, err := strconv.ParseInt(p.UserID, 10, 64)
	if err != nil {
		return
	}
	startedAt, err := time.Parse(time.RFC3339, p.StartTime)
	if err != nil {
		startedAt = time.Now().UTC()
	}

	rec := Record{
		UserID:      userID,
		Phase:       string(p.Status),
		StartedAt:   startedAt.UTC(),
		DurationSec: duration.Decode(p.Duration),
		Metadata:    env.Raw,
	}
	if err := c.store.InsertPhaseRecord(ctx, rec); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("phase telemetry write failed")
	}
}
