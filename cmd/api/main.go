package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"bazaar-backend/internal/config"
	"bazaar-backend/internal/database"
	"bazaar-backend/internal/fees"
	"bazaar-backend/internal/geo"
	"bazaar-backend/internal/handler"
	"bazaar-backend/internal/notify"
	"bazaar-backend/internal/payment"
	"bazaar-backend/internal/points"
	"bazaar-backend/internal/qrcode"
	"bazaar-backend/internal/repository"
	"bazaar-backend/internal/router"
	"bazaar-backend/internal/service"
	"bazaar-backend/internal/wallet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting bazaar API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	businessRepo := repository.NewBusinessRepository(pool, logger)
	driverRepo := repository.NewDriverRepository(pool, logger)
	subscriptionRepo := repository.NewSubscriptionRepository(pool, logger)
	walletRepo := repository.NewWalletRepository(pool, logger)
	pointsRepo := repository.NewPointsRepository(pool, logger)
	qrRepo := repository.NewQRRepository(pool, logger)

	// Initialize notification transport, falling back to a no-op when the
	// broker is disabled
	var notifier notify.Notifier = notify.Nop{}
	if cfg.AMQP.Enabled {
		amqpNotifier, err := notify.DialAMQP(cfg.AMQP.URL, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to connect to message broker, notifications disabled")
		} else {
			defer amqpNotifier.Close()
			notifier = amqpNotifier
		}
	} else {
		logger.Info().Msg("message broker disabled, notifications are no-ops")
	}

	// Initialize domain components
	feeCfg := fees.DefaultConfig()
	feeCfg.PlatformFeePercent = decimal.NewFromInt(int64(cfg.Fees.PlatformFeePercent))
	feeCfg.CommissionPercent = decimal.NewFromInt(int64(cfg.Fees.CommissionPercent))
	feeCfg.DriverCutPercent = decimal.NewFromInt(int64(cfg.Fees.DriverCutPercent))
	calculator := fees.NewCalculator(feeCfg)

	walletLedger := wallet.NewLedger(walletRepo, logger)
	pointsLedger := points.NewLedger(pointsRepo, logger)
	issuer := qrcode.NewIssuer(qrRepo, logger)
	gateway := payment.NewLogGateway(logger)

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:        orderRepo,
		Products:      productRepo,
		Businesses:    businessRepo,
		Drivers:       driverRepo,
		Subscriptions: subscriptionRepo,
		Calculator:    calculator,
		Estimator:     geo.HaversineEstimator{},
		QR:            issuer,
		Wallet:        walletLedger,
		Points:        pointsLedger,
		Gateway:       gateway,
		Notifier:      notifier,
	}, logger)
	paymentService := service.NewPaymentService(orderRepo, walletLedger, gateway, calculator, logger)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)
	walletHandler := handler.NewWalletHandler(walletLedger, paymentService, logger)
	pointsHandler := handler.NewPointsHandler(pointsLedger, logger)
	qrHandler := handler.NewQRHandler(issuer, logger)

	// Initialize router
	mux := router.New(productHandler, orderHandler, walletHandler, pointsHandler, qrHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
