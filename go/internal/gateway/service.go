package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/studysync/go/internal/events"
	"github.com/mcdev12/studysync/go/internal/transport"
	"github.com/rs/zerolog/log"
)

// Service bundles the hub's WebSocket fanout: connection manager, broker
// consumer and upgrade handler. Browser clients attach here; native clients
// talk to the broker directly.
type Service struct {
	connectionManager *ConnectionManager
	consumer          *EventConsumer
	handler           *WebSocketHandler
	broker            transport.Broker
}

// NewService wires the gateway over an already-connected broker.
func NewService(config ConnectionConfig, broker transport.Broker) *Service {
	s := &Service{broker: broker}
	s.connectionManager = NewConnectionManager(config, s.relayInbound)
	s.consumer = NewEventConsumer(s.connectionManager, broker)
	s.handler = NewWebSocketHandler(s.connectionManager)
	return s
}

// relayInbound validates a client-sent message and publishes it onto the
// group's shared channel so every peer (and the hub's own consumers) see it.
// Malformed frames are dropped, never fatal.
func (s *Service) relayInbound(groupID int64, userID string, data []byte) {
	env, err := events.ParseEnvelope(data)
	if err != nil {
		log.Debug().
			Err(err).
			Int64("group_id", groupID).
			Str("user_id", userID).
			Msg("dropping malformed client frame")
		return
	}

	topic := transport.GroupTopic(groupID)
	if err := s.broker.Publish(context.Background(), topic, data); err != nil {
		log.Error().
			Err(err).
			Int64("group_id", groupID).
			Str("type", string(env.Type)).
			Msg("failed to relay client frame to broker")
	}
}

// Start runs the connection manager and broker consumer until the context is
// cancelled.
func (s *Service) Start(ctx context.Context) error {
	go s.connectionManager.Start(ctx)
	return s.consumer.Start(ctx)
}

// Stop releases the consumer subscription.
func (s *Service) Stop() error {
	return s.consumer.Stop()
}

// RegisterRoutes registers the gateway's HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}

// GetStats exposes connection statistics.
func (s *Service) GetStats() Stats {
	return s.connectionManager.GetStats()
}
