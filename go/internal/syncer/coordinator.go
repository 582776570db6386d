package syncer

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/mcdev12/studysync/go/internal/duration"
	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/mcdev12/studysync/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// Clock is the coordinator's time source.
type Clock interface {
	Now() time.Time
}

// Machine defines what the coordinator needs from the timer state machine.
type Machine interface {
	State() timer.State
	Status() events.Status
	Remaining() int
	ApplySync(status events.Status, startTime time.Time, remainingSec int) bool
}

// OfferPublisher broadcasts a sync offer on the group's shared channel.
type OfferPublisher interface {
	PublishSyncOffer(ctx context.Context, offer events.SyncOfferPayload) error
}

// PendingOffer is the single buffered sync request awaiting a human
// accept/decline. ReceivedAt is stamped in the receiver's clock frame on
// arrival; the remaining duration is as of send time.
type PendingOffer struct {
	SenderID    int64
	SenderName  string
	Status      events.Status
	ReceivedAt  time.Time
	DurationSec int
}

// Coordinator implements the offer/accept/decline handshake that lets one
// participant's running timer override another's, compensated for message
// transit delay. At most one offer is pending at a time; a newer offer
// replaces an older unanswered one.
type Coordinator struct {
	mu      sync.Mutex
	clock   Clock
	machine Machine
	pub     OfferPublisher

	selfID   int64
	selfName string
	pending  *PendingOffer
}

// NewCoordinator creates a sync coordinator for one participant.
func NewCoordinator(clock Clock, machine Machine, pub OfferPublisher, selfID int64, selfName string) *Coordinator {
	return &Coordinator{
		clock:    clock,
		machine:  machine,
		pub:      pub,
		selfID:   selfID,
		selfName: selfName,
	}
}

// Offer broadcasts the participant's current remaining time to the group.
// Only a running timer can be offered; otherwise this is a silent no-op.
func (c *Coordinator) Offer(ctx context.Context) bool {
	if c.machine.State() != timer.StateRunning {
		return false
	}
	offer := events.SyncOfferPayload{
		Type:       events.MessageTypeSyncOffer,
		SenderID:   strconv.FormatInt(c.selfID, 10),
		SenderName: c.selfName,
		Status:     c.machine.Status(),
		StartTime:  c.clock.Now().UTC().Format(time.RFC3339),
		Duration:   duration.Encode(c.machine.Remaining()),
	}
	if err := c.pub.PublishSyncOffer(ctx, offer); err != nil {
		log.Error().Err(err).Msg("failed to publish sync offer")
		return false
	}
	log.Info().
		Str("status", string(offer.Status)).
		Str("duration", offer.Duration).
		Msg("sync offer broadcast")
	return true
}

// HandleOffer buffers an incoming offer for the local participant to accept
// or decline. Self-originated offers are ignored; a second offer while one
// is pending replaces it (last-offer-wins).
func (c *Coordinator) HandleOffer(p events.SyncOfferPayload) {
	senderID, err := strconv.ParseInt(p.SenderID, 10, 64)
	if err != nil {
		log.Debug().Str("sender_id", p.SenderID).Msg("dropping sync offer with malformed sender id")
		return
	}
	if senderID == c.selfID {
		return
	}
	if !p.Status.CountdownActive() {
		log.Debug().Str("status", string(p.Status)).Msg("dropping sync offer without a running phase")
		return
	}

	c.mu.Lock()
	replaced := c.pending != nil
	c.pending = &PendingOffer{
		SenderID:    senderID,
		SenderName:  p.SenderName,
		Status:      p.Status,
		ReceivedAt:  c.clock.Now(),
		DurationSec: duration.Decode(p.Duration),
	}
	c.mu.Unlock()

	log.Info().
		Int64("sender_id", senderID).
		Str("sender", p.SenderName).
		Bool("replaced_previous", replaced).
		Msg("sync offer pending")
}

// Pending returns a copy of the buffered offer, if any.
func (c *Coordinator) Pending() (PendingOffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return PendingOffer{}, false
	}
	return *c.pending, true
}

// Accept converts the pending offer into a local timer override. The elapsed
// time since the offer arrived is subtracted from the offered remainder so
// the adopted countdown reflects "remaining as of now", clamped at zero so a
// stale offer never yields a negative duration. The machine's own update
// emission then shows peers the now-synchronized state.
func (c *Coordinator) Accept() bool {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if pending == nil {
		return false
	}

	now := c.clock.Now()
	elapsed := int(now.Sub(pending.ReceivedAt) / time.Second)
	adjusted := pending.DurationSec - elapsed
	if adjusted < 0 {
		adjusted = 0
	}

	log.Info().
		Int64("sender_id", pending.SenderID).
		Int("offered_sec", pending.DurationSec).
		Int("elapsed_sec", elapsed).
		Int("adjusted_sec", adjusted).
		Msg("accepting sync offer")

	return c.machine.ApplySync(pending.Status, now, adjusted)
}

// Decline discards the pending offer. Purely local: nothing is sent.
func (c *Coordinator) Decline() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}
