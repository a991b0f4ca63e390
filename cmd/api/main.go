package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/teleclinic/consult-api/internal/config"
	"github.com/teleclinic/consult-api/internal/email"
	"github.com/teleclinic/consult-api/internal/handler"
	authHandler "github.com/teleclinic/consult-api/internal/handler/auth"
	dashboardHandler "github.com/teleclinic/consult-api/internal/handler/dashboard"
	doctorHandler "github.com/teleclinic/consult-api/internal/handler/doctor"
	requestHandler "github.com/teleclinic/consult-api/internal/handler/request"
	userHandler "github.com/teleclinic/consult-api/internal/handler/user"
	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/repository/postgres"
	"github.com/teleclinic/consult-api/internal/router"
	directoryService "github.com/teleclinic/consult-api/internal/service/directory"
	lifecycleService "github.com/teleclinic/consult-api/internal/service/lifecycle"
	readviewService "github.com/teleclinic/consult-api/internal/service/readview"
	requestService "github.com/teleclinic/consult-api/internal/service/request"
	"github.com/teleclinic/consult-api/pkg/auth"
	"github.com/teleclinic/consult-api/pkg/logger"
	redisBroker "github.com/teleclinic/consult-api/pkg/messaging/redis"
	"github.com/teleclinic/consult-api/pkg/metrics"
	"github.com/teleclinic/consult-api/pkg/security"
	"github.com/teleclinic/consult-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("teleclinic", "consult")

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	requestRepo := postgres.NewRequestRepository(db)
	userRepo := postgres.NewUserRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Initialize services
	mailer := email.NewSMTPService(cfg.SMTP, appLogger)
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)

	requestSvc := requestService.NewService(requestRepo, outboxRepo, appLogger, appMetrics)
	lifecycleSvc := lifecycleService.NewService(requestRepo, doctorRepo, outboxRepo, mailer, appLogger, appMetrics)
	directorySvc := directoryService.NewService(userRepo, doctorRepo, requestRepo, hasher, appLogger)
	viewSvc := readviewService.NewService(requestRepo, cfg.Cache.TTL())

	// Initialize auth
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry())
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	// Initialize handlers
	requestH := requestHandler.NewHandler(requestSvc, lifecycleSvc, viewSvc, authMiddleware)
	userH := userHandler.NewHandler(directorySvc, authMiddleware)
	doctorH := doctorHandler.NewHandler(directorySvc, authMiddleware)
	dashboardH := dashboardHandler.NewHandler(viewSvc, authMiddleware)
	authH := authHandler.NewHandler(directorySvc, tokens)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.NewRouter(router.Config{
		RateLimit:     rate.Limit(5),
		RateBurst:     10,
		MetricsPrefix: "teleclinic",
	})
	r.RegisterPublic(requestH)
	r.Register(requestH, userH, doctorH, dashboardH, authH, healthH)

	// Initialize Redis message broker
	zl := log.Logger
	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Start outbox processor
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval(),
	}, appLogger, appMetrics)
	go outboxProcessor.Start(workerCtx)

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	// Start server
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	cancelWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
