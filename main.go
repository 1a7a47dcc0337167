// main.go
package main

import (
	"context"
	"log"

	"recohub/cmd"
	"recohub/internal/data/repository"
	"recohub/internal/stream"
	"recohub/internal/wire"
	"recohub/pkg/database"
	"recohub/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Repositories: Postgres when configured, in-memory otherwise
	var repos *repository.Repository
	if config.Database.Host != "" {
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connected successfully")
		repos = repository.NewRepository(db, logger)
	} else {
		logger.Warn("No database configured, using in-memory stores")
		repos = repository.NewMemoryRepository()
	}

	// Stream sink: NATS JetStream when configured, in-memory otherwise
	var sink stream.Sink
	if config.Stream.URL != "" {
		natsSink, err := stream.NewNATSSink(config.Stream, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		sink = natsSink
		logger.Info("NATS sink connected", zap.String("url", config.Stream.URL))
	} else {
		logger.Warn("No stream configured, events go to an in-memory sink")
		sink = stream.NewMemorySink()
	}
	defer sink.Close()

	// Event publisher: async delivery with spool fallback
	publisher := stream.NewPublisher(sink, repos.Outbox, config.Stream, logger)
	publisher.Start(context.Background())
	defer publisher.Close()

	// Wire all dependencies
	app := wire.Wiring(repos, publisher, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
