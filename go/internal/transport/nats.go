package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// subjectPrefix maps the logical "group.{id}" topics onto NATS subjects.
const subjectPrefix = "study.groups"

// NATSConfig holds connection settings for the NATS broker.
type NATSConfig struct {
	URL           string
	AuthToken     string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns the stock broker configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSBroker is the Broker implementation over core NATS. Plain pub/sub is
// deliberate: the group channel is lossy at-most-once by design, and every
// timer update is a full-state replacement that self-heals on the next one.
type NATSBroker struct {
	config NATSConfig
	nc     *nats.Conn
}

// NewNATSBroker creates an unconnected broker.
func NewNATSBroker(config NATSConfig) *NATSBroker {
	if config.URL == "" {
		config.URL = nats.DefaultURL
	}
	return &NATSBroker{config: config}
}

// Connect dials the NATS server with reconnect handling.
func (b *NATSBroker) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.MaxReconnects(b.config.MaxReconnects),
		nats.ReconnectWait(b.config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	if b.config.AuthToken != "" {
		opts = append(opts, nats.Token(b.config.AuthToken))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(b.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	b.nc = nc

	log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS connected")
	return nil
}

// Subscribe registers a handler for a topic. Wildcard topics (group.>) are
// supported for server-side consumers.
func (b *NATSBroker) Subscribe(topic string, h Handler) (Subscription, error) {
	if b.nc == nil {
		return nil, fmt.Errorf("broker not connected")
	}
	sub, err := b.nc.Subscribe(subjectForTopic(topic), func(msg *nats.Msg) {
		h(topicForSubject(msg.Subject), msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log.Debug().Str("topic", topic).Msg("subscribed")
	return sub, nil
}

// Publish sends a payload to a topic. The auth token rides as a header so
// the hub can attribute messages.
func (b *NATSBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.nc == nil {
		return fmt.Errorf("broker not connected")
	}
	msg := nats.NewMsg(subjectForTopic(topic))
	msg.Data = payload
	if b.config.AuthToken != "" {
		msg.Header.Set("Authorization", b.config.AuthToken)
	}
	if err := b.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close drains in-flight messages and releases the connection.
func (b *NATSBroker) Close() error {
	if b.nc == nil {
		return nil
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

func subjectForTopic(topic string) string {
	if rest, ok := strings.CutPrefix(topic, "group."); ok {
		return subjectPrefix + "." + rest
	}
	return topic
}

func topicForSubject(subject string) string {
	if rest, ok := strings.CutPrefix(subject, subjectPrefix+"."); ok {
		return "group." + rest
	}
	return subject
}
