package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studysync/go/clients/groupapi"
	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/mcdev12/studysync/go/internal/transport"
)

// memBroker is an in-process loopback broker: published messages are
// delivered synchronously to every matching subscriber.
type memBroker struct {
	mu   sync.Mutex
	subs map[string][]transport.Handler
	sent []published
}

type published struct {
	topic string
	data  []byte
}

func newMemBroker() *memBroker {
	return &memBroker{subs: make(map[string][]transport.Handler)}
}

func (b *memBroker) Connect(ctx context.Context) error { return nil }
func (b *memBroker) Close() error                      { return nil }

func (b *memBroker) Subscribe(topic string, h transport.Handler) (transport.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
	return memSub{}, nil
}

func (b *memBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	handlers := append([]transport.Handler(nil), b.subs[topic]...)
	b.sent = append(b.sent, published{topic: topic, data: payload})
	b.mu.Unlock()
	for _, h := range handlers {
		h(topic, payload)
	}
	return nil
}

func (b *memBroker) published() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.sent...)
}

type memSub struct{}

func (memSub) Unsubscribe() error { return nil }

type fakeAPI struct {
	mu     sync.Mutex
	roster []groupapi.RosterEntry
	puts   []groupapi.TimerUpdate
}

func (f *fakeAPI) FetchRoster(ctx context.Context, groupID int64) ([]groupapi.RosterEntry, error) {
	return f.roster, nil
}

func (f *fakeAPI) PutTimer(ctx context.Context, userID int64, update groupapi.TimerUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, update)
	return nil
}

func (f *fakeAPI) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func newTestSession(t *testing.T, clock clockwork.Clock) (*Session, *memBroker, *fakeAPI) {
	t.Helper()
	broker := newMemBroker()
	api := &fakeAPI{roster: []groupapi.RosterEntry{
		{ID: 7, Username: "alice", Status: "OFFLINE"},
		{ID: 9, Username: "bob", Status: "ONLINE"},
	}}
	cfg := Config{UserID: 7, Username: "alice", GroupID: 42}
	return New(cfg, clock, broker, api), broker, api
}

func TestStartBroadcastsTimerUpdateAndPersists(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	sess, broker, api := newTestSession(t, clock)

	if !sess.StartTimer() {
		t.Fatal("StartTimer returned false for a fresh machine")
	}

	msgs := broker.published()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "group.42" {
		t.Errorf("published on %q, want group.42", msgs[0].topic)
	}

	var update events.TimerUpdatePayload
	if err := json.Unmarshal(msgs[0].data, &update); err != nil {
		t.Fatalf("unmarshal published update: %v", err)
	}
	if update.Type != events.MessageTypeTimerUpdate {
		t.Errorf("type = %q, want TIMER_UPDATE", update.Type)
	}
	if update.UserID != "7" {
		t.Errorf("userId = %q, want 7", update.UserID)
	}
	if update.Status != events.StatusWork {
		t.Errorf("status = %q, want WORK", update.Status)
	}
	if update.Duration != "PT25M0S" {
		t.Errorf("duration = %q, want PT25M0S", update.Duration)
	}
	if update.SecondDuration != "PT5M0S" {
		t.Errorf("secondDuration = %q, want PT5M0S", update.SecondDuration)
	}

	deadline := time.Now().Add(2 * time.Second)
	for api.putCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if api.putCount() != 1 {
		t.Fatalf("persistence writes = %d, want 1", api.putCount())
	}
}

func TestInboundPeerUpdateReachesView(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	sess, broker, _ := newTestSession(t, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	// Wait for the subscription to land before injecting traffic.
	waitFor(t, func() bool { return len(broker.published()) >= 1 })

	peer := events.TimerUpdatePayload{
		Type:      events.MessageTypeTimerUpdate,
		UserID:    "9",
		Status:    events.StatusWork,
		StartTime: clock.Now().Format(time.RFC3339),
		Duration:  "PT10M0S",
	}
	data, _ := json.Marshal(peer)
	if err := broker.Publish(context.Background(), "group.42", data); err != nil {
		t.Fatalf("publish peer update: %v", err)
	}

	waitFor(t, func() bool {
		_, ok := sess.PeerRemaining(9)
		return ok
	})
	remaining, _ := sess.PeerRemaining(9)
	if remaining != 600 {
		t.Errorf("peer remaining = %d, want 600", remaining)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestRunAnnouncesPresence(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	sess, broker, _ := newTestSession(t, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	waitFor(t, func() bool { return len(broker.published()) >= 1 })
	cancel()
	<-done

	msgs := broker.published()
	if len(msgs) < 2 {
		t.Fatalf("published %d messages, want at least online and offline", len(msgs))
	}

	var first, last events.StatusPayload
	if err := json.Unmarshal(msgs[0].data, &first); err != nil {
		t.Fatalf("unmarshal first message: %v", err)
	}
	if err := json.Unmarshal(msgs[len(msgs)-1].data, &last); err != nil {
		t.Fatalf("unmarshal last message: %v", err)
	}
	if first.Status != events.StatusOnline {
		t.Errorf("first status = %q, want ONLINE", first.Status)
	}
	if last.Status != events.StatusOffline {
		t.Errorf("last status = %q, want OFFLINE", last.Status)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
