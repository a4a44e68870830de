// cmd/realtime-server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	awsclients "github.com/fanlive/live-platform/pkg/aws"

	"github.com/fanlive/live-platform/internal/config"
	"github.com/fanlive/live-platform/internal/migration"
	"github.com/fanlive/live-platform/internal/realtime"
	"github.com/fanlive/live-platform/internal/repository"
	"github.com/fanlive/live-platform/internal/server"
	"github.com/fanlive/live-platform/internal/service"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "realtime").Logger()

	logger.Info().Msg("🚀 Starting Realtime Service...")

	// Load configuration
	cfg := config.Load()

	// Create AWS session for DynamoDB
	awsConfig := &aws.Config{
		Region: aws.String(cfg.DynamoDB.Region),
	}
	if cfg.DynamoDB.AccessKeyID != "" && cfg.DynamoDB.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			cfg.DynamoDB.AccessKeyID,
			cfg.DynamoDB.SecretAccessKey,
			"",
		)
	}
	if cfg.DynamoDB.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.DynamoDB.Endpoint)
		logger.Info().Str("endpoint", cfg.DynamoDB.Endpoint).Msg("Using DynamoDB endpoint")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to create AWS session")
	}

	// Run migrations to create tables. FORCE_MIGRATE=true drops and
	// recreates them, for local development resets.
	migrator := migration.NewDynamoDBMigrator(dynamodb.New(sess), &cfg.DynamoDB)
	if os.Getenv("FORCE_MIGRATE") == "true" {
		logger.Warn().Msg("⚠️ FORCE_MIGRATE set, recreating DynamoDB tables")
		if err := migrator.ForceCreateTables(); err != nil {
			logger.Fatal().Err(err).Msg("❌ Failed to recreate DynamoDB tables")
		}
	} else if err := migrator.CreateTables(); err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to create DynamoDB tables")
	}

	// Initialize repositories
	dynamoRepo, err := repository.NewDynamoDBRepository(cfg.DynamoDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to initialize DynamoDB repository")
	}

	redisRepo, err := repository.NewRedisRepository(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to initialize Redis repository")
	}

	kinesisClient := awsclients.NewKinesisClient(cfg.AWS.Region, cfg.AWS.KinesisStreamName, logger)
	s3Client := awsclients.NewS3Client(cfg.AWS.Region, cfg.AWS.S3BucketName, logger)

	streamService := service.NewStreamService(cfg, dynamoRepo, redisRepo, kinesisClient, s3Client, logger)

	// Websocket hub and the presence/metrics aggregator on top of it
	hub := server.NewHub(logger)
	manager := realtime.NewManager(hub, dynamoRepo, logger).WithPublisher(kinesisClient)

	// Feed aggregator state back to the discovery side.
	feedback := service.NewAggregatorFeedback(manager, redisRepo, streamService, logger)
	manager.Notify(feedback.Handle)

	wsHandler := server.NewWebSocketHandler(manager, hub, logger)

	router := mux.NewRouter()
	router.Use(server.RequestLogging(logger))
	router.HandleFunc("/ws", wsHandler.HandleWebSocket)
	router.HandleFunc("/health", server.HealthHandler)

	httpServer := &http.Server{
		Addr:    cfg.Server.RealtimePort,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.RealtimePort).Msg("✅ Realtime Service started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("❌ Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	manager.Cleanup(ctx)
	hub.Close()

	logger.Info().Msg("✅ Server exited")
}
