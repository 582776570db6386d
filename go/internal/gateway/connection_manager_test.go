package gateway

import (
	"fmt"
	"sync"
	"testing"
)

func newTestConnection(cm *ConnectionManager, id, userID string, groupID int64) *Connection {
	return &Connection{
		ID:      id,
		UserID:  userID,
		GroupID: groupID,
		Send:    make(chan []byte, 256),
		Manager: cm,
	}
}

func TestBroadcastDuringDisconnectDoesNotPanic(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)

	// Clients connect and drop while the manager fans out. A disconnect
	// landing between the target snapshot and the send must never hit a
	// closed channel.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			conn := newTestConnection(cm, fmt.Sprintf("conn-%d", i), "7", 1)
			cm.registerConnection(conn)
			cm.unregisterConnection(conn)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			cm.handleBroadcast(BroadcastMessage{GroupID: 1, Data: []byte(`{"type":"STATUS"}`)})
		}
	}()
	wg.Wait()

	if stats := cm.GetStats(); stats.TotalConnections != 0 {
		t.Errorf("connections after churn = %d, want 0", stats.TotalConnections)
	}
}

func TestBroadcastToGroupReachesAllGroupConnections(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	alice := newTestConnection(cm, "c1", "7", 1)
	bob := newTestConnection(cm, "c2", "9", 1)
	other := newTestConnection(cm, "c3", "11", 2)
	cm.registerConnection(alice)
	cm.registerConnection(bob)
	cm.registerConnection(other)

	cm.handleBroadcast(BroadcastMessage{GroupID: 1, Data: []byte(`{"type":"CHAT"}`)})

	if len(alice.Send) != 1 || len(bob.Send) != 1 {
		t.Errorf("group 1 deliveries = %d/%d, want 1/1", len(alice.Send), len(bob.Send))
	}
	if len(other.Send) != 0 {
		t.Errorf("group 2 connection received %d messages, want 0", len(other.Send))
	}
}
