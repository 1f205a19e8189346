package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-boxoffice/internal/adapter"
	"github.com/feral-file/ff-boxoffice/internal/api/middleware"
	"github.com/feral-file/ff-boxoffice/internal/api/server"
	"github.com/feral-file/ff-boxoffice/internal/authorizer"
	"github.com/feral-file/ff-boxoffice/internal/config"
	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/engine"
	"github.com/feral-file/ff-boxoffice/internal/events"
	"github.com/feral-file/ff-boxoffice/internal/ledger"
	"github.com/feral-file/ff-boxoffice/internal/logger"
	"github.com/feral-file/ff-boxoffice/internal/payments"
	"github.com/feral-file/ff-boxoffice/internal/registry"
	"github.com/feral-file/ff-boxoffice/internal/relayer"
	"github.com/feral-file/ff-boxoffice/internal/store"
	"github.com/feral-file/ff-boxoffice/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "boxoffice-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Box Office API")

	// Connect to database. TranslateError maps unique-key violations to
	// gorm.ErrDuplicatedKey, which the store turns into domain errors.
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Run migrations
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to run migrations", zap.Error(err))
	}

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Seed the sale state on first boot; stored values win afterwards
	if !common.IsHexAddress(cfg.Sale.PaymentAddress) || !common.IsHexAddress(cfg.Sale.SignerAddress) {
		logger.FatalCtx(ctx, "Invalid payment or signer address in sale config")
	}
	if err := dataStore.InitSaleState(ctx, &domain.SaleState{
		PaymentAddress: common.HexToAddress(cfg.Sale.PaymentAddress),
		TrustedSigner:  common.HexToAddress(cfg.Sale.SignerAddress),
		BaseURI:        cfg.Sale.BaseURI,
	}); err != nil {
		logger.FatalCtx(ctx, "Failed to initialize sale state", zap.Error(err))
	}

	// Connect to the chain
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum RPC", zap.Error(err))
	}
	defer ethClient.Close()

	relayerKey, err := crypto.HexToECDSA(cfg.Chain.RelayerKey)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to parse relayer key", zap.Error(err))
	}
	chainID := new(big.Int).SetUint64(cfg.Sale.ChainID)
	clock := adapter.NewClock()
	rel := relayer.New(chainID, relayerKey, ethClient, clock, cfg.Chain.GasLimit, cfg.Chain.ConfirmTimeout, cfg.Chain.ConfirmInterval)

	itemLedger, err := ledger.NewEthereumLedger(common.HexToAddress(cfg.Chain.CollectionAddress), rel)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create item ledger", zap.Error(err))
	}
	settler, err := payments.NewEthereumSettler(ethClient, rel)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create settler", zap.Error(err))
	}

	// Core services
	auth := authorizer.New(common.HexToAddress(cfg.Sale.ContractAddress), chainID)
	reg := registry.New(dataStore)
	eng := engine.New(dataStore, auth, itemLedger, settler)

	// Event delivery
	publisher, err := events.NewPublisher(events.PublisherConfig{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), adapter.NewJSON())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err))
	}
	defer publisher.Close()

	dispatcher := events.NewDispatcher(&events.DispatcherConfig{
		PoolSize:     cfg.Dispatcher.PoolSize,
		BatchSize:    cfg.Dispatcher.BatchSize,
		PollInterval: cfg.Dispatcher.PollInterval,
	}, dataStore, publisher, webhook.NewSender(cfg.Dispatcher.WebhookTimeout), clock)

	errCh := make(chan error, 2)
	go func() {
		if err := dispatcher.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Create and start server
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}, reg, eng, middleware.AuthConfig{
		JWTPublicKey: cfg.Auth.JWTPublicKey,
		APIKeys:      cfg.Auth.APIKeys,
	})

	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "api"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.WarnCtx(shutdownCtx, "Dispatcher forced to stop", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("Box Office API stopped")
}
