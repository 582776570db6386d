package main

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/studysync/go/internal/gateway"
	"github.com/mcdev12/studysync/go/internal/roster"
	"github.com/mcdev12/studysync/go/internal/stats"
	"github.com/mcdev12/studysync/go/internal/transport"
)

type Services struct {
	Roster  *roster.Handlers
	Gateway *gateway.Service
	Stats   *stats.Collector
}

func setupServices(config *Config, pool *pgxpool.Pool, db *sql.DB, broker transport.Broker) *Services {
	// Database layer → Repository layer → App layer → Handler layer
	rosterRepo := roster.NewRepository(pool)
	rosterApp := roster.NewApp(rosterRepo)
	rosterHandlers := roster.NewHandlers(rosterApp)

	gatewayService := gateway.NewService(gateway.DefaultConnectionConfig(), broker)

	var collector *stats.Collector
	if config.Stats.Enabled {
		collector = stats.NewCollector(stats.NewRepository(db), broker)
	}

	return &Services{
		Roster:  rosterHandlers,
		Gateway: gatewayService,
		Stats:   collector,
	}
}
