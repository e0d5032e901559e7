package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio/migrations"
	"portfolio/src/api"
	"portfolio/src/clients/forex"
	"portfolio/src/clients/marketdata"
	"portfolio/src/config"
	"portfolio/src/repositories"
	"portfolio/src/services"
	"portfolio/src/utils"
	redis_utils "portfolio/src/utils/redis"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("service exited")
	}
}

func run() error {
	// .env is optional, real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./settings")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.Service.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing ledger store: %w", err)
	}
	defer store.Close()

	var redisHandler *redis_utils.RedisHandler
	if cfg.Databases.Redis.Enabled() {
		redisHandler, err = redis_utils.NewRedisHandler(cfg.Databases.Redis)
		if err != nil {
			// Redis only backs caching and rate limiting, both of which
			// degrade to in-process fallbacks.
			logger.WithError(err).Warn("redis unavailable, using in-process fallbacks")
			redisHandler = nil
		} else {
			defer redisHandler.Close()
		}
	}

	seedBalance, err := decimal.NewFromString(cfg.Engine.SeedBalance)
	if err != nil {
		return fmt.Errorf("invalid seed balance %q: %w", cfg.Engine.SeedBalance, err)
	}

	marketData := marketdata.NewMarketDataService(cfg.ExternalClients.MarketData, cfg.ExternalClients.News, redisHandler)
	converter := forex.NewForexService(cfg.ExternalClients.Forex)
	accounting := services.NewAccountingService(store, marketData, converter, cfg.Engine.DefaultCurrency, seedBalance)

	server := &http.Server{
		Addr: ":" + cfg.Service.Port,
		Handler: api.NewRouter(api.Dependencies{
			Logger:     logger,
			Accounting: accounting,
			MarketData: marketData,
			Redis:      redisHandler,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Service.Port).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newStore picks the ledger backend from configuration. Postgres gets its
// schema from goose migrations, sqlite bootstraps its own, memory needs
// none.
func newStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repositories.LedgerStore, error) {
	switch cfg.Databases.SQL.Driver {
	case "postgres":
		if err := migrations.Up(cfg.Databases.SQL.DSN(), logger); err != nil {
			return nil, err
		}
		return repositories.NewPostgresStore(ctx, cfg.Databases.SQL)
	case "sqlite":
		return repositories.NewSQLiteStore(cfg.Databases.SQL.Path)
	case "memory":
		return repositories.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown sql driver %q", cfg.Databases.SQL.Driver)
	}
}
