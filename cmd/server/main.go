package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/tapnet/internal"
	"github.com/dukerupert/tapnet/internal/billing"
	"github.com/dukerupert/tapnet/internal/cookie"
	"github.com/dukerupert/tapnet/internal/email"
	"github.com/dukerupert/tapnet/internal/events"
	"github.com/dukerupert/tapnet/internal/handler"
	"github.com/dukerupert/tapnet/internal/handler/storefront"
	"github.com/dukerupert/tapnet/internal/handler/webhook"
	"github.com/dukerupert/tapnet/internal/jobs"
	"github.com/dukerupert/tapnet/internal/middleware"
	"github.com/dukerupert/tapnet/internal/postgres"
	"github.com/dukerupert/tapnet/internal/router"
	"github.com/dukerupert/tapnet/internal/routes"
	"github.com/dukerupert/tapnet/internal/service"
	"github.com/dukerupert/tapnet/internal/telemetry"
	"github.com/dukerupert/tapnet/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	logger.Info("Database connection established")

	// Repositories
	products := postgres.NewProductRepository(pool)
	coupons := postgres.NewCouponRepository(pool)
	cartStore := postgres.NewCartRepository(pool)
	orders := postgres.NewOrderRepository(pool)

	// Metrics
	telemetry.InitBusinessMetrics("tapnet")
	metrics := middleware.NewMetrics("tapnet", prometheus.DefaultRegisterer)

	// Payment gateway
	gateway, err := newPaymentProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize payment provider: %w", err)
	}
	logger.Info("Payment provider initialized", "provider", gateway.Name())

	// Email
	var sender email.Sender
	if cfg.Email.Host != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger)
	} else {
		logger.Warn("SMTP_HOST not set, order emails will be logged only")
		sender = email.NewNoopSender(logger)
	}
	emailService, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	// Events
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewNATSPublisher(events.NATSConfig{
			URL:    cfg.NATS.URL,
			Prefix: cfg.NATS.SubjectPrefix,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	// Services
	cartService := service.NewCartService(cartStore, products, coupons, logger)
	checkoutService := service.NewCheckoutService(
		cartService,
		coupons,
		orders,
		gateway,
		emailService,
		publisher,
		logger,
		cfg.Currency,
	)

	// ==========================================================================
	// Background jobs
	// ==========================================================================

	cleanupWorker := worker.NewWorker(worker.Config{
		PollInterval: cfg.Cart.CleanupInterval,
	}, logger, jobs.NewCartCleanup(cartService, cartStore, cfg.Cart.IdleTTL, cfg.Cart.Retention, telemetry.Business, logger))

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = cleanupWorker.Start(ctx)
	}()

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	cookies := cookie.NewConfig(cfg.CookieDomain, cfg.Env == "prod")

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env != "prod" {
		securityConfig.HSTSMaxAge = 0 // Disable HSTS off production
	}

	defaultRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer defaultRateLimiter.Stop()
	couponRateLimiter := middleware.NewRateLimiter(middleware.CouponRateLimiterConfig())
	defer couponRateLimiter.Stop()

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		telemetry.SentryMiddleware(),
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithClientIP,
		middleware.WithRequestLogger(logger),
		middleware.AccessLog,
		telemetry.SentryContextMiddleware(middleware.GetRequestID),
		metrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		router.CORS(cfg.AllowedOrigins),
		defaultRateLimiter.Middleware,
		middleware.CSRF(middleware.DefaultCSRFConfig(cookies)),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		ProductHandler:  storefront.NewProductHandler(products),
		CartHandler:     storefront.NewCartHandler(cartService, cookies),
		CheckoutHandler: storefront.NewCheckoutHandler(checkoutService),
		OrderHandler:    storefront.NewOrderHandler(checkoutService),
		BodyLimit:       middleware.MaxBodySize(middleware.APIMaxBodySize),
		CouponLimit:     couponRateLimiter.Middleware,
		Timeout:         middleware.Timeout(middleware.DefaultTimeout),
		GatewayTimeout:  middleware.Timeout(middleware.GatewayTimeout),
	})
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		PaymentsHandler: webhook.NewPaymentsHandler(checkoutService, gateway.Name()),
		BodyLimit:       middleware.MaxBodySize(middleware.WebhookMaxBodySize),
	})

	// Ops routes skip rate limiting and CSRF
	ops := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		middleware.AccessLog,
	)
	mux := http.NewServeMux()
	routes.RegisterOpsRoutes(ops, routes.OpsDeps{
		Health:  healthHandler(pool),
		Metrics: metrics.Handler(),
	})
	mux.Handle("/healthz", ops)
	mux.Handle("/metrics", ops)
	mux.Handle("/", r)
	logger.Debug("Routes registered", "routes", r.Routes(), "ops", ops.Routes())

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	stop()
	<-workerDone

	return nil
}

// newPaymentProvider picks the gateway named by PAYMENT_PROVIDER. Outside
// production a gateway without keys falls back to the mock.
func newPaymentProvider(cfg *internal.Config, logger *slog.Logger) (billing.Provider, error) {
	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.Env != "prod" && cfg.Stripe.SecretKey == "" {
			break
		}
		p, err := billing.NewStripeProvider(billing.StripeConfig{
			APIKey:         cfg.Stripe.SecretKey,
			PublishableKey: cfg.Stripe.PublishableKey,
			WebhookSecret:  cfg.Stripe.WebhookSecret,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "razorpay":
		if cfg.Env != "prod" && cfg.Razorpay.KeyID == "" {
			break
		}
		p, err := billing.NewRazorpayProvider(billing.RazorpayConfig{
			KeyID:         cfg.Razorpay.KeyID,
			KeySecret:     cfg.Razorpay.KeySecret,
			WebhookSecret: cfg.Razorpay.WebhookSecret,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	if cfg.PaymentProvider != "mock" {
		logger.Warn("payment gateway keys not set, using mock provider", "provider", cfg.PaymentProvider)
	}
	return billing.NewMockProvider(), nil
}

func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
