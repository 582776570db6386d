package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/mcdev12/studysync/go/internal/timer"
)

type capturePublisher struct {
	offers []events.SyncOfferPayload
}

func (p *capturePublisher) PublishSyncOffer(ctx context.Context, offer events.SyncOfferPayload) error {
	p.offers = append(p.offers, offer)
	return nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *timer.Machine, *clockwork.FakeClock, *capturePublisher) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	machine := timer.NewMachine(clock, timer.DefaultConfig())
	pub := &capturePublisher{}
	coord := NewCoordinator(clock, machine, pub, 1, "alice")
	return coord, machine, clock, pub
}

func TestOfferRequiresRunningTimer(t *testing.T) {
	coord, machine, clock, pub := newTestCoordinator(t)

	if coord.Offer(context.Background()) {
		t.Error("Offer() with an idle timer should no-op")
	}
	if len(pub.offers) != 0 {
		t.Fatal("idle offer was published")
	}

	machine.Start()
	clock.Advance(5 * time.Minute)
	if !coord.Offer(context.Background()) {
		t.Fatal("Offer() with a running timer should publish")
	}

	offer := pub.offers[0]
	if offer.Type != events.MessageTypeSyncOffer {
		t.Errorf("type = %s", offer.Type)
	}
	if offer.SenderID != "1" || offer.SenderName != "alice" {
		t.Errorf("sender = %s/%s", offer.SenderID, offer.SenderName)
	}
	if offer.Status != events.StatusWork {
		t.Errorf("status = %s, want WORK", offer.Status)
	}
	if offer.Duration != "PT20M0S" {
		t.Errorf("duration = %s, want PT20M0S", offer.Duration)
	}
}

func TestAcceptCompensatesElapsedTime(t *testing.T) {
	coord, machine, clock, _ := newTestCoordinator(t)

	coord.HandleOffer(events.SyncOfferPayload{
		Type:     events.MessageTypeSyncOffer,
		SenderID: "7", SenderName: "bob",
		Status:   events.StatusWork,
		Duration: "PT10M0S",
	})

	// Accepted 45 seconds after arrival: 600 - 45 = 555.
	clock.Advance(45 * time.Second)
	if !coord.Accept() {
		t.Fatal("Accept() with a pending offer should succeed")
	}
	if got := machine.Remaining(); got != 555 {
		t.Errorf("adjusted remaining = %d, want 555", got)
	}
	if machine.State() != timer.StateRunning {
		t.Errorf("machine state = %s, want RUNNING", machine.State())
	}

	// The offer is consumed.
	if _, ok := coord.Pending(); ok {
		t.Error("pending offer survived Accept")
	}
	if coord.Accept() {
		t.Error("second Accept should no-op")
	}
}

func TestAcceptClampsStaleOfferToZero(t *testing.T) {
	coord, machine, clock, _ := newTestCoordinator(t)

	coord.HandleOffer(events.SyncOfferPayload{
		SenderID: "7", Status: events.StatusBreak, Duration: "PT1M0S",
	})
	clock.Advance(10 * time.Minute)
	if !coord.Accept() {
		t.Fatal("stale offer should still be acceptable")
	}
	if got := machine.Remaining(); got != 0 {
		t.Errorf("stale offer remaining = %d, want 0", got)
	}
}

func TestSelfOffersIgnored(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(t)

	coord.HandleOffer(events.SyncOfferPayload{
		SenderID: "1", Status: events.StatusWork, Duration: "PT5M0S",
	})
	if _, ok := coord.Pending(); ok {
		t.Error("self-originated offer was buffered")
	}

	coord.HandleOffer(events.SyncOfferPayload{
		SenderID: "abc", Status: events.StatusWork, Duration: "PT5M0S",
	})
	if _, ok := coord.Pending(); ok {
		t.Error("offer with malformed sender id was buffered")
	}
}

func TestLastOfferWins(t *testing.T) {
	coord, _, clock, _ := newTestCoordinator(t)

	coord.HandleOffer(events.SyncOfferPayload{
		SenderID: "7", SenderName: "bob", Status: events.StatusWork, Duration: "PT10M0S",
	})
	clock.Advance(3 * time.Second)
	coord.HandleOffer(events.SyncOfferPayload{
		SenderID: "9", SenderName: "carol", Status: events.StatusBreak, Duration: "PT2M30S",
	})

	pending, ok := coord.Pending()
	if !ok {
		t.Fatal("no pending offer")
	}
	if pending.SenderID != 9 || pending.Status != events.StatusBreak || pending.DurationSec != 150 {
		t.Errorf("pending = %+v, want carol's offer", pending)
	}
}

func TestDeclineDiscardsLocally(t *testing.T) {
	coord, machine, _, pub := newTestCoordinator(t)

	coord.HandleOffer(events.SyncOfferPayload{
		SenderID: "7", Status: events.StatusWork, Duration: "PT10M0S",
	})
	coord.Decline()

	if _, ok := coord.Pending(); ok {
		t.Error("declined offer still pending")
	}
	if len(pub.offers) != 0 {
		t.Error("decline sent a message")
	}
	if machine.State() != timer.StateIdle {
		t.Error("decline mutated the machine")
	}
}
