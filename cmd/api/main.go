package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harborline/pricing-service/api/routes"
	"github.com/harborline/pricing-service/internal/pricing"
	"github.com/harborline/pricing-service/internal/rates"
	"github.com/harborline/pricing-service/pkg/config"
	"github.com/harborline/pricing-service/pkg/db"
	"github.com/harborline/pricing-service/pkg/logger"
	"github.com/harborline/pricing-service/pkg/metrics"
	"github.com/harborline/pricing-service/pkg/migrate"
	"github.com/harborline/pricing-service/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	rateMetrics := metrics.NewRateMetrics(prometheus.DefaultRegisterer)

	provider, err := rates.NewHTTPProvider(rates.HTTPProviderConfig{
		URL:        cfg.Rates.ProviderURL,
		Timeout:    cfg.Rates.FetchTimeout,
		MaxRetries: cfg.Rates.FetchRetries,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rate provider", err)
		os.Exit(1)
	}

	ratesService, err := rates.NewService(rates.NewRepository(dbClient.DB()), provider, cfg.Rates.Base(), logg, rateMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create rates service", err)
		os.Exit(1)
	}
	if err := ratesService.Initialize(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to load initial currency rates", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()), ratesService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:  cfg,
			Logger:  logg,
			DB:      dbClient,
			Redis:   redisClient,
			Pricing: pricingService,
			Rates:   ratesService,
			Metrics: prometheus.DefaultGatherer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
