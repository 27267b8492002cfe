package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/qna-api/internal/application/notification"
	"github.com/qna-api/internal/config"
	"github.com/qna-api/internal/event"
	"github.com/qna-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/qna-api/internal/infrastructure/jwt"
	s3infra "github.com/qna-api/internal/infrastructure/s3"
	"github.com/qna-api/internal/infrastructure/smtp"
	"github.com/qna-api/internal/infrastructure/sns"
	"github.com/qna-api/internal/realtime"
	transporthttp "github.com/qna-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional, graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		logger.Warn("jwt provider not available", "err", err)
	}

	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	mailer := smtp.NewMailer(cfg)

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	questionRepo := dynamo.NewQuestionRepo(dynamoClient, cfg.DynamoTables.Questions)
	answerRepo := dynamo.NewAnswerRepo(dynamoClient, cfg.DynamoTables.Answers)
	notifRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)

	notifSvc := notification.NewService(notifRepo, userRepo)

	// Real-time pipeline: event bus feeds the hub directly, the poller
	// re-delivers anything the direct path missed.
	bus := event.NewBus(256, logger)
	hub := realtime.NewHub(cfg.StreamBuffer, logger)
	poller := realtime.NewPoller(hub, notifSvc, cfg.PollInterval, logger)

	notification.Register(bus, notifSvc, hub, logger)
	notification.RegisterEmail(bus, mailer, userRepo, logger)
	if cfg.SNSTopicARN != "" {
		if pub, err := sns.NewPublisher(cfg); err == nil {
			notification.RegisterMirror(bus, pub, logger)
		} else {
			logger.Warn("sns publisher not available", "err", err)
		}
	}

	bus.Start(context.Background())
	poller.Start()

	deps := &transporthttp.Deps{
		UserRepo:        userRepo,
		QuestionRepo:    questionRepo,
		AnswerRepo:      answerRepo,
		NotificationSvc: notifSvc,
		S3Store:         s3Store,
		JWTProvider:     jwtProvider,
		Bus:             bus,
		Hub:             hub,
		Poller:          poller,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.AppPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// SSE responses stay open indefinitely; WriteTimeout would kill them.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "err", err)
	}
	// Stop intake last-to-first: no new HTTP work, then no re-delivery,
	// then drain the bus.
	poller.Stop()
	bus.Stop()
	logger.Info("server stopped")
}
