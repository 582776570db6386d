package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/mcdev12/studysync/go/clients/groupapi"
	"github.com/mcdev12/studysync/go/internal/group"
	"github.com/mcdev12/studysync/go/internal/session"
	"github.com/mcdev12/studysync/go/internal/timer"
	"github.com/mcdev12/studysync/go/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	userID := getEnvAsInt64("STUDYSYNC_USER_ID", 1)
	groupID := getEnvAsInt64("STUDYSYNC_GROUP_ID", 1)
	username := getEnv("STUDYSYNC_USERNAME", fmt.Sprintf("user-%d", userID))
	natsURL := getEnv("NATS_URL", "nats://localhost:4222")
	hubURL := getEnv("HUB_URL", "http://localhost:8080")

	broker := transport.NewNATSBroker(transport.NATSConfig{
		URL:           natsURL,
		AuthToken:     os.Getenv("NATS_AUTH_TOKEN"),
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := broker.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer broker.Close()

	api := groupapi.NewClient(hubURL)
	if token := os.Getenv("HUB_AUTH_TOKEN"); token != "" {
		api.SetHeader("Authorization", "Bearer "+token)
	}

	sess := session.New(
		session.Config{
			UserID:   userID,
			Username: username,
			GroupID:  groupID,
		},
		clockwork.NewRealClock(),
		broker,
		api,
		session.WithRenderer(renderView),
		session.WithNotificationSink(timer.LogNotificationSink{}),
	)

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	log.Info().
		Int64("user_id", userID).
		Int64("group_id", groupID).
		Str("hub", hubURL).
		Msg("studysync client started")

	// Kick off a session so a bare demo run shows a live countdown.
	if sess.StartTimer() {
		log.Info().Int("remaining", sess.Remaining()).Msg("timer started")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			log.Fatal().Err(err).Msg("session failed")
		}
	}

	log.Info().Msg("studysync client shutdown complete")
}

func renderView(view group.GroupTimerView) {
	for _, member := range view.Members {
		remaining := "--:--"
		if member.Remaining != nil {
			remaining = fmt.Sprintf("%02d:%02d", *member.Remaining/60, *member.Remaining%60)
		}
		fmt.Printf("%-16s %-8s %s\n", member.Username, member.Status, remaining)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
