package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/application"
	"github.com/Kilat-Ride/service-ride-booking/internal/config"
	rideEvents "github.com/Kilat-Ride/service-ride-booking/internal/events"
	"github.com/Kilat-Ride/service-ride-booking/internal/handler"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/auth"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/cache"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/database"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/kafka"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/logger"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/middleware"
	"github.com/Kilat-Ride/service-ride-booking/internal/quote"
	"github.com/Kilat-Ride/service-ride-booking/internal/repository"
	"github.com/Kilat-Ride/service-ride-booking/internal/routing"
	"github.com/Kilat-Ride/service-ride-booking/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "service-ride-booking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("operator", cfg.Operator.BaseURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("failed to run auto-migration", zap.Error(err))
	}

	// Session validation cooldown: shared through redis when configured
	var cooldown session.CooldownCache = session.NewMemoryCooldown()
	if cfg.RedisConfig.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, using in-process cooldown", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			cooldown = session.NewRedisCooldown(rdb, serviceName+":")
		}
	}

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Routing engine shared by every device
	routes := routing.NewCalculator(
		routing.NewOSRMEngine(cfg.Routing.BaseURL, &http.Client{Timeout: cfg.Routing.Timeout}, log),
		log,
	)

	registry, err := application.NewRegistry(application.RegistryConfig{
		OperatorBaseURL:    cfg.Operator.BaseURL,
		OperatorClientKey:  cfg.Operator.ClientKey,
		OperatorTimeout:    cfg.Operator.Timeout,
		SafeRoutes:         cfg.Booking.SafeLandingRoutes,
		ExpiryCooldown:     cfg.Booking.ExpiryCooldown,
		RequoteDebounce:    cfg.Booking.RequoteDebounce,
		PersistenceTimeout: cfg.Booking.PersistenceTimeout,
		RideTypePolicy:     quote.ParseRideTypePolicy(cfg.Booking.RideTypePolicy),
	}, application.RegistryDeps{
		Drafts:        repository.NewGormDraftRepository(db),
		Credentials:   repository.NewGormCredentialRepository(db),
		Cooldown:      cooldown,
		Routes:        routes,
		Producer:      kafkaProducer,
		BaseTransport: http.DefaultTransport,
	}, log)
	if err != nil {
		log.Fatal("failed to create workspace registry", zap.Error(err))
	}
	defer registry.Close()

	// Ride status consumer refreshes result panels
	groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
	statusConsumer := rideEvents.NewRideStatusConsumer(cfg.KafkaConfig.Brokers, groupID, registry, log)
	defer func() { _ = statusConsumer.Close() }()

	go func() {
		log.Info("starting ride status consumer")
		if err := statusConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("ride status consumer error", zap.Error(err))
		}
	}()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.Booking.DeviceTokenTTL)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())

	handler.NewHealthHandler(db, serviceName).RegisterRoutes(router)
	handler.NewDeviceHandler(registry, jwtManager, log).RegisterRoutes(&router.RouterGroup)
	handler.NewBookingHandler(registry).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAuthHandler(registry).RegisterRoutes(&router.RouterGroup, jwtManager)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
