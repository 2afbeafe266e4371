package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/cache"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/config"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/database"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/events"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/handlers"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/middleware"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/services"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/jwt"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/mobilemoney"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// publisher is an event publisher that must be flushed on shutdown
type publisher interface {
	services.EventPublisher
	Close() error
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting ferry booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Repositories
	userRepository := database.NewUserRepository(db.Sqlx())
	tripRepository := database.NewTripRepository(db.Sqlx())
	subscriptionRepository := database.NewSubscriptionRepository(db.Sqlx())
	bookingRepository := database.NewBookingRepository(db.Sqlx())
	attemptRepository := database.NewBookingAttemptRepository(db.Sqlx())
	auditRepository := database.NewPaymentAuditRepository(db.Sqlx(), logger)

	// Identity
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RequestTokenExpiry,
	)
	identityProvider := services.NewPasswordIdentityProvider(userRepository, jwtService, cfg.Security.BcryptCost, logger)
	accountResolver := services.NewAccountResolver(identityProvider, logger)

	// Fares, subscriptions, payment
	fareCalculator := services.NewFareCalculator(cfg.Payment.Currency)
	subscriptionLedger := services.NewSubscriptionLedger(subscriptionRepository, fareCalculator)

	gateway := mobilemoney.NewClient(mobilemoney.Config{
		BaseURL:        cfg.Payment.GatewayURL,
		MerchantKey:    cfg.Payment.MerchantKey,
		MerchantSecret: cfg.Payment.MerchantSecret,
		Timeout:        cfg.Payment.Timeout,
	}, logger)
	settlement := services.NewPaymentSettlement(gateway, cfg.Payment.Currency, logger)

	// Idempotency lock: redis when configured, in-process otherwise
	var lock services.IdempotencyLock
	if cfg.Redis.Addr != "" {
		redisLock := cache.NewRedisLock(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisLock.Ping(pingCtx); err != nil {
			cancel()
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		cancel()
		defer redisLock.Close()
		lock = redisLock
		logger.WithField("addr", cfg.Redis.Addr).Info("Using redis idempotency lock")
	} else {
		lock = cache.NewLocalLock()
		logger.Warn("REDIS_ADDR not set, idempotency lock is local to this instance")
	}

	// Booking events
	var eventPublisher publisher
	if len(cfg.Kafka.Brokers) > 0 {
		eventPublisher = events.NewKafkaPublisher(cfg.Kafka, logger)
		logger.WithField("topic", cfg.Kafka.Topic).Info("Publishing booking events to kafka")
	} else {
		eventPublisher = events.NewLogPublisher(logger)
	}
	defer eventPublisher.Close()

	orchestrator := services.NewBookingOrchestratorService(
		tripRepository,
		bookingRepository,
		attemptRepository,
		auditRepository,
		lock,
		eventPublisher,
		accountResolver,
		subscriptionLedger,
		fareCalculator,
		settlement,
		services.BookingOrchestratorConfig{
			LockTTL:       cfg.Booking.LockTTL,
			MaxPassengers: cfg.Booking.MaxPassengers,
		},
		logger,
	)
	wizard := services.NewBookingWizard(accountResolver, subscriptionLedger, fareCalculator, cfg.Booking.MaxPassengers, logger)

	var sweeper *services.AttemptSweeperService
	if cfg.Booking.SweeperEnabled {
		sweeper = services.NewAttemptSweeperService(
			attemptRepository,
			auditRepository,
			cfg.Booking.SweepInterval,
			cfg.Booking.StaleAttemptAfter,
			logger,
		)
		sweeper.Start()
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(accountResolver, identityProvider, logger)
	bookingHandler := handlers.NewBookingHandler(wizard, orchestrator, subscriptionLedger, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Guests book without a token; a token, when sent, must be valid
		booking := v1.Group("/booking")
		booking.Use(middleware.OptionalAuth(jwtService, logger))
		{
			booking.POST("/quote", bookingHandler.Quote)
			booking.POST("/wizard/advance", bookingHandler.Advance)
			booking.POST("/commit", bookingHandler.Commit)
			booking.GET("/attempts/:key", bookingHandler.GetAttempt)
		}

		bookingProtected := v1.Group("/booking")
		bookingProtected.Use(middleware.AuthMiddleware(jwtService, logger))
		{
			bookingProtected.GET("/subscriptions", bookingHandler.ListSubscriptions)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
		// The commit waits on the payment gateway
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Payment.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if sweeper != nil {
		sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
