package gateway

import (
	"context"
	"strconv"

	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/mcdev12/studysync/go/internal/transport"
	"github.com/rs/zerolog/log"
)

// EventConsumer subscribes to every group channel on the broker and fans the
// envelopes out to the WebSocket connections of that group.
type EventConsumer struct {
	connectionManager *ConnectionManager
	broker            transport.Broker
	sub               transport.Subscription
}

// NewEventConsumer creates a consumer over an already-connected broker.
func NewEventConsumer(cm *ConnectionManager, broker transport.Broker) *EventConsumer {
	return &EventConsumer{
		connectionManager: cm,
		broker:            broker,
	}
}

// Start subscribes to the all-groups wildcard and relays until the context
// is cancelled. Per-message faults are logged and dropped; the relay loop
// itself never stops on bad input.
func (ec *EventConsumer) Start(ctx context.Context) error {
	messageCh := make(chan brokerMessage, 100)

	sub, err := ec.broker.Subscribe(transport.AllGroupsTopic, func(topic string, data []byte) {
		select {
		case messageCh <- brokerMessage{topic: topic, data: data}:
		default:
			log.Warn().Str("topic", topic).Msg("consumer channel full, dropping message")
		}
	})
	if err != nil {
		return err
	}
	ec.sub = sub

	log.Info().Str("topic", transport.AllGroupsTopic).Msg("gateway event consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway event consumer shutting down")
			return nil
		case msg := <-messageCh:
			ec.processMessage(msg.topic, msg.data)
		}
	}
}

type brokerMessage struct {
	topic string
	data  []byte
}

func (ec *EventConsumer) processMessage(topic string, data []byte) {
	groupIDText, ok := transport.GroupIDFromTopic(topic)
	if !ok {
		log.Debug().Str("topic", topic).Msg("ignoring message on non-group topic")
		return
	}
	groupID, err := strconv.ParseInt(groupIDText, 10, 64)
	if err != nil {
		log.Debug().Str("topic", topic).Msg("ignoring message with non-numeric group id")
		return
	}

	env, err := events.ParseEnvelope(data)
	if err != nil {
		log.Debug().Err(err).Int64("group_id", groupID).Msg("dropping unparseable group message")
		return
	}

	ec.connectionManager.BroadcastToGroup(groupID, data)

	log.Debug().
		Int64("group_id", groupID).
		Str("type", string(env.Type)).
		Msg("envelope relayed to WebSocket clients")
}

// Stop releases the wildcard subscription.
func (ec *EventConsumer) Stop() error {
	if ec.sub != nil {
		return ec.sub.Unsubscribe()
	}
	return nil
}
