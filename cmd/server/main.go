package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"ridehail/internal/app"
	"ridehail/internal/config"
	"ridehail/internal/events"
	"ridehail/internal/handler"
	"ridehail/internal/jobs"
	"ridehail/internal/maps"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	store, closeStore, err := app.NewStore(ctx, cfg, nrApp)
	if err != nil {
		log.Fatalf("failed to initialize %s store: %v", cfg.Storage.Driver, err)
	}
	defer closeStore()
	log.Printf("Using %s booking store", cfg.Storage.Driver)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Connected to Redis")
	}

	var publisher events.Publisher = events.NewLogPublisher()
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalf("failed to connect to amqp: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		log.Printf("Publishing events to exchange %s", cfg.AMQP.Exchange)
	}

	var estimator maps.Estimator = maps.HaversineEstimator{}
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Printf("failed to initialize maps client, using straight-line distances: %v", err)
		} else {
			estimator = maps.FallbackEstimator{Primary: routes}
		}
	}

	// Wire dependencies.
	server, scheduler, err := wireServer(store, redisClient, publisher, estimator, nrApp, cfg)
	if err != nil {
		log.Fatalf("failed to wire server: %v", err)
	}

	scheduler.Start()
	log.Printf("Settlement sweeper scheduled: %s", cfg.Jobs.SettlementSweepSpec)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	// Wait for an in-flight sweep before the store goes away.
	<-scheduler.Stop().Done()

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server together
// with the settlement scheduler.
func wireServer(
	store repository.Store,
	redisClient *redis.Client,
	publisher events.Publisher,
	estimator maps.Estimator,
	nrApp *newrelic.Application,
	cfg *config.Config,
) (*http.Server, *cron.Cron, error) {
	redisStores := app.NewRedisStores(redisClient)

	// Initialize services.
	notificationService := service.NewNotificationService()
	pricingService := service.NewPricingService(store.PriceSchedules(), redisStores.Cache, publisher)
	ledgerService := service.NewLedgerService(store, redisStores.Lock, service.LedgerConfig{
		PlatformFeePercent:  cfg.Ledger.PlatformFeePercent,
		MinWithdrawalAmount: cfg.Ledger.MinWithdrawalAmount,
	})
	paymentService := service.NewPaymentService(store, notificationService)
	bookingService := service.NewBookingService(
		store,
		pricingService,
		ledgerService,
		paymentService,
		redisStores.Locations,
		estimator,
		publisher,
		notificationService,
	)
	matchingService := service.NewMatchingService(store.Bookings(), redisStores.Locations, cfg.Matching.RadiusKm)
	receiptService := service.NewReceiptService(pricingService, notificationService)

	sweeper := jobs.NewSettlementSweeper(store.Bookings(), ledgerService, cfg.Jobs.SettlementGracePeriod)
	scheduler, err := jobs.NewScheduler(cfg.Jobs.SettlementSweepSpec, sweeper)
	if err != nil {
		return nil, nil, err
	}

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		BookingHandler: handler.NewBookingHandler(bookingService, receiptService),
		DriverHandler:  handler.NewDriverHandler(matchingService),
		WalletHandler:  handler.NewWalletHandler(ledgerService),
		PaymentHandler: handler.NewPaymentHandler(paymentService),
		PricingHandler: handler.NewPricingHandler(pricingService),
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		JWTSecret:      cfg.Auth.JWTSecret,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, scheduler, nil
}
