package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	eventAdapter "github.com/payflowhq/payflow/internal/adapter/event"
	gatewayAdapter "github.com/payflowhq/payflow/internal/adapter/gateway"
	"github.com/payflowhq/payflow/internal/config"
	domainEvent "github.com/payflowhq/payflow/internal/domain/event"
	"github.com/payflowhq/payflow/internal/infrastructure/database"
	httpServer "github.com/payflowhq/payflow/internal/infrastructure/http"
	"github.com/payflowhq/payflow/internal/infrastructure/logger"
	"github.com/payflowhq/payflow/internal/infrastructure/messaging"
	"github.com/payflowhq/payflow/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Initialize the event publisher. Without a configured Redis address the
	// service still runs; events only land in the log.
	var publisher domainEvent.Publisher
	if cfg.Redis.Addr != "" {
		redisClient, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Error("Failed to close redis client", zap.Error(err))
			}
		}()
		publisher = eventAdapter.NewRedisPublisher(redisClient, cfg.Redis.PublishTimeout, zapLogger)
	} else {
		zapLogger.Warn("No redis address configured, events will only be logged")
		publisher = eventAdapter.NewLogPublisher(zapLogger)
	}

	// Initialize payment gateway and orchestrator
	gw := gatewayAdapter.NewSimulatedGateway(cfg.Service.Gateway.FailureRate, cfg.Service.Gateway.Seed, zapLogger)
	paymentService := usecase.NewPaymentService(repos.Ledger, publisher, gw, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize and start the HTTP server
	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, paymentService)

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down server...")

	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
