package transport

import (
	"context"
	"fmt"
	"strings"
)

// Handler consumes one raw message delivered on a subscribed topic. The
// topic is passed through so wildcard subscribers can tell groups apart.
type Handler func(topic string, data []byte)

// Subscription is a live topic subscription.
type Subscription interface {
	Unsubscribe() error
}

// Broker is the shared publish/subscribe channel every group message rides
// on: one connection per client, many topic subscriptions. The transport
// provides no ordering or delivery guarantees across participants; the
// consumers are built to tolerate loss and reordering.
type Broker interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, h Handler) (Subscription, error)
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// GroupTopic returns the shared channel topic for a group.
func GroupTopic(groupID int64) string {
	return fmt.Sprintf("group.%d", groupID)
}

// AllGroupsTopic matches every group's channel; used by server-side
// consumers that fan events out or record telemetry.
const AllGroupsTopic = "group.>"

// GroupIDFromTopic extracts the group id suffix of a group topic.
func GroupIDFromTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, "group.")
	if !ok || id == "" || strings.Contains(id, ".") {
		return "", false
	}
	return id, true
}
