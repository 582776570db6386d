package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
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

	config, err := loadConfig(os.Getenv("HUB_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.applyEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	pool, db, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	defer db.Close()

	// Connect to the group message broker
	broker := transport.NewNATSBroker(transport.NATSConfig{
		URL:           config.NATS.URL,
		AuthToken:     config.NATS.AuthToken,
		MaxReconnects: config.NATS.MaxReconnects,
		ReconnectWait: config.reconnectWait(),
	})
	if err := broker.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer broker.Close()

	log.Info().
		Str("nats_url", config.NATS.URL).
		Str("port", config.Server.Port).
		Bool("stats", config.Stats.Enabled).
		Msg("starting studysync hub")

	services := setupServices(config, pool, db, broker)
	server := setupServer(config, services)

	// Start gateway service (event consumer and connection manager)
	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	// Start phase stats recorder
	if services.Stats != nil {
		go func() {
			if err := services.Stats.Start(ctx); err != nil {
				log.Error().Err(err).Msg("stats collector failed")
			}
		}()
	}

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Cancel service context to stop the gateway and collector
	cancel()

	if err := services.Gateway.Stop(); err != nil {
		log.Error().Err(err).Msg("gateway shutdown failed")
	}

	log.Info().Msg("studysync hub shutdown complete")
}
