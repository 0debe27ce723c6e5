package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"rideshare/internal/app"
	"rideshare/internal/config"
	"rideshare/internal/handler"
	"rideshare/internal/logging"
	"rideshare/internal/rabbitmq"
	internalRedis "rideshare/internal/redis"
	"rideshare/internal/repository/postgres"
	"rideshare/internal/service"
	"rideshare/internal/settlement"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	var publisher service.NotificationPublisher = service.NewLogPublisher(logger)
	if cfg.RabbitMQ.Enabled {
		mq, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer mq.Close()
		publisher = mq
		logger.WithField("exchange", cfg.RabbitMQ.Exchange).Info("publishing notifications to RabbitMQ")
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	srv := wireServer(runCtx, db, redisClient, publisher, nrApp, logger, cfg)

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.http.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	stopRun()
	srv.stopSettlement()
	srv.notifications.Wait()

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}
	logger.Info("server exited")
}

type server struct {
	http           *http.Server
	notifications  *service.NotificationService
	stopSettlement func()
}

// wireServer wires all dependencies, starts the settlement workers and
// returns the HTTP server.
func wireServer(
	ctx context.Context,
	db *sql.DB,
	redisClient *redis.Client,
	publisher service.NotificationPublisher,
	nrApp *newrelic.Application,
	logger *logrus.Logger,
	cfg *config.Config,
) *server {
	store := postgres.NewStore(db)
	notificationService := service.NewNotificationService(publisher, logger)
	inventory := service.NewInventoryService(store, logger)
	bookingService := service.NewBookingService(store, inventory, notificationService, logger)
	ratingService := service.NewRatingService(store, notificationService, logger)

	var (
		dispatcher settlement.Dispatcher
		start      func(settlement.Handler)
		stop       func()
	)
	switch cfg.Settlement.Queue {
	case config.SettlementQueueRedis:
		queue := internalRedis.NewSettlementQueue(redisClient, internalRedis.NewLockStore(redisClient), logger)
		var wg sync.WaitGroup
		dispatcher = queue
		start = func(h settlement.Handler) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				queue.Run(ctx, cfg.Settlement.Workers, h)
			}()
		}
		stop = wg.Wait
	default:
		pool := settlement.NewPool(cfg.Settlement.Workers, cfg.Settlement.Buffer, logger)
		dispatcher = pool
		start = func(h settlement.Handler) { pool.Start(ctx, h) }
		stop = pool.Stop
	}

	paymentService := service.NewPaymentService(store, dispatcher, notificationService, cfg.Payment.PlatformFeeRate, logger)
	start(settlement.Instrument(paymentService.SettleTask, cfg.Settlement.Delay, nrApp, logger))
	logger.WithFields(logrus.Fields{
		"queue":   cfg.Settlement.Queue,
		"workers": cfg.Settlement.Workers,
	}).Info("settlement workers started")

	router := app.NewRouter(app.RouterDeps{
		RideHandler:    handler.NewRideHandler(inventory, bookingService),
		BookingHandler: handler.NewBookingHandler(bookingService, inventory),
		PaymentHandler: handler.NewPaymentHandler(paymentService),
		RatingHandler:  handler.NewRatingHandler(ratingService),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		Logger:         logger,
		JWTSecret:      cfg.Auth.JWTSecret,
	})

	return &server{
		http: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		notifications:  notificationService,
		stopSettlement: stop,
	}
}
