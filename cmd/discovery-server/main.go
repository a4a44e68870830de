// cmd/discovery-server/main.go
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
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	awsclients "github.com/fanlive/live-platform/pkg/aws"

	"github.com/fanlive/live-platform/internal/config"
	"github.com/fanlive/live-platform/internal/discovery"
	"github.com/fanlive/live-platform/internal/migration"
	"github.com/fanlive/live-platform/internal/repository"
	"github.com/fanlive/live-platform/internal/server"
	"github.com/fanlive/live-platform/internal/service"
)

const cleanupInterval = time.Hour

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "discovery").Logger()

	logger.Info().Msg("🚀 Starting Discovery Service...")

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

	// AWS side clients
	kinesisClient := awsclients.NewKinesisClient(cfg.AWS.Region, cfg.AWS.KinesisStreamName, logger)
	s3Client := awsclients.NewS3Client(cfg.AWS.Region, cfg.AWS.S3BucketName, logger)

	// Services and handlers
	streamService := service.NewStreamService(cfg, dynamoRepo, redisRepo, kinesisClient, s3Client, logger)
	broadcastHandler := service.NewBroadcastHandler(cfg, streamService, logger)
	engine := discovery.NewEngine(discovery.DefaultWeights())
	discoveryHandler := service.NewDiscoveryHandler(streamService, engine, redisRepo, logger)

	router := gin.Default()
	router.Use(server.CORSMiddleware())
	router.Use(server.LoggingMiddleware())

	// Broadcast ingest callbacks
	broadcastRoutes := router.Group("/broadcast")
	{
		broadcastRoutes.POST("/auth", broadcastHandler.AuthenticateStream)
		broadcastRoutes.POST("/started", broadcastHandler.StreamStarted)
		broadcastRoutes.POST("/ended", broadcastHandler.StreamEnded)
		broadcastRoutes.POST("/recorded", broadcastHandler.RecordingCompleted)
	}

	// Discovery API
	apiRoutes := router.Group("/api/v1")
	{
		apiRoutes.GET("/health", server.HealthCheck)
		apiRoutes.GET("/streams", discoveryHandler.ListStreams)
		apiRoutes.GET("/streams/trending", discoveryHandler.Trending)
		apiRoutes.GET("/streams/:id", discoveryHandler.GetStream)
		apiRoutes.GET("/streams/:id/messages", discoveryHandler.Messages)
		apiRoutes.GET("/recommendations", discoveryHandler.Recommendations)
		apiRoutes.GET("/stats", discoveryHandler.Stats)
	}

	srv := &http.Server{
		Addr:    cfg.Server.DiscoveryPort,
		Handler: router,
	}

	// Periodically force-end streams abandoned by crashed broadcasters
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				cleaned, err := streamService.CleanupExpiredStreams(ctx)
				cancel()
				if err != nil {
					logger.Error().Err(err).Msg("❌ Stream cleanup failed")
				} else if cleaned > 0 {
					logger.Info().Int("cleaned", cleaned).Msg("🧹 Expired streams ended")
				}
			case <-cleanupDone:
				return
			}
		}
	}()

	go func() {
		logger.Info().Str("addr", cfg.Server.DiscoveryPort).Msg("✅ Discovery Service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("❌ Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("🛑 Shutting down server...")

	close(cleanupDone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("❌ Server forced to shutdown")
	}

	logger.Info().Msg("✅ Server exited")
}
