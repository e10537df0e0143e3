package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/adityakhanna/vastra-backend/api/controllers"
	"github.com/adityakhanna/vastra-backend/api/routes"
	"github.com/adityakhanna/vastra-backend/internal/analytics"
	cartsvc "github.com/adityakhanna/vastra-backend/internal/cart"
	catalogsvc "github.com/adityakhanna/vastra-backend/internal/catalog"
	checkoutsvc "github.com/adityakhanna/vastra-backend/internal/checkout"
	collectionsvc "github.com/adityakhanna/vastra-backend/internal/collections"
	combosvc "github.com/adityakhanna/vastra-backend/internal/combos"
	couponsvc "github.com/adityakhanna/vastra-backend/internal/coupons"
	ordersvc "github.com/adityakhanna/vastra-backend/internal/orders"
	"github.com/adityakhanna/vastra-backend/pkg/bigquery"
	"github.com/adityakhanna/vastra-backend/pkg/config"
	"github.com/adityakhanna/vastra-backend/pkg/db"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
	"github.com/adityakhanna/vastra-backend/pkg/metrics"
	"github.com/adityakhanna/vastra-backend/pkg/migrate"
	"github.com/adityakhanna/vastra-backend/pkg/outbox"
	"github.com/adityakhanna/vastra-backend/pkg/payments"
	"github.com/adityakhanna/vastra-backend/pkg/pricing"
	"github.com/adityakhanna/vastra-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	deriver := pricing.NewDeriver(cfg.Pricing.ShippingBuffer)

	catalogRepo := catalogsvc.NewRepository(dbClient.DB())
	catalogService, err := catalogsvc.NewService(catalogRepo, deriver)
	if err != nil {
		fatal(logg, "failed to create catalog service", err)
	}

	collectionService, err := collectionsvc.NewService(collectionsvc.NewRepository(dbClient.DB()), catalogService)
	if err != nil {
		fatal(logg, "failed to create collections service", err)
	}

	comboService, err := combosvc.NewService(combosvc.NewRepository(dbClient.DB()))
	if err != nil {
		fatal(logg, "failed to create combos service", err)
	}

	couponRepo := couponsvc.NewRepository(dbClient.DB())
	couponService, err := couponsvc.NewService(couponRepo, couponsvc.NewRedisAppliedStore(redisClient, cfg.Coupons.AppliedTTL))
	if err != nil {
		fatal(logg, "failed to create coupons service", err)
	}

	cartRepo := cartsvc.NewRepository(dbClient.DB())
	cartService, err := cartsvc.NewService(cartRepo, dbClient, catalogRepo, deriver, comboService, redisClient, logg)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}

	orderRepo := ordersvc.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	orderService, err := ordersvc.NewService(orderRepo, dbClient, outboxService, logg)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}

	// The gateway is optional in dev; checkout rejects payment operations
	// when it is absent.
	var gatewayClient *payments.Client
	if cfg.Gateway.BaseURL != "" {
		gatewayClient, err = payments.NewClient(cfg.Gateway, logg)
		if err != nil {
			fatal(logg, "failed to create payment gateway client", err)
		}
	} else {
		logg.Warn(context.Background(), "payment gateway not configured")
	}

	calc := checkoutsvc.NewCalculator(cfg.Shipping, cfg.Pricing.GSTPercent)

	var checkoutService checkoutsvc.Service
	if gatewayClient != nil {
		checkoutService, err = checkoutsvc.NewService(
			dbClient, cartService, cartRepo, orderRepo, catalogRepo,
			comboService, couponService, couponRepo, outboxService,
			gatewayClient, calc, logg,
		)
	} else {
		checkoutService, err = checkoutsvc.NewService(
			dbClient, cartService, cartRepo, orderRepo, catalogRepo,
			comboService, couponService, couponRepo, outboxService,
			nil, calc, logg,
		)
	}
	if err != nil {
		fatal(logg, "failed to create checkout service", err)
	}

	pingers := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	// BigQuery backs the admin reports; the storefront runs without it.
	var reports *analytics.Reports
	if cfg.GCP.ProjectID != "" {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			fatal(logg, "failed to create bigquery client", err)
		}
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery client", err)
			}
		}()

		reports, err = analytics.NewReports(bqClient, cfg.BigQuery.Dataset, cfg.BigQuery.OrderEventsTable)
		if err != nil {
			fatal(logg, "failed to create analytics reports", err)
		}
		pingers["bigquery"] = bqClient
	} else {
		logg.Warn(context.Background(), "bigquery not configured, admin reports disabled")
	}

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Redis:       redisClient,
		HTTPMetrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Pingers:     pingers,
		Catalog:     catalogService,
		Collections: collectionService,
		Combos:      comboService,
		Coupons:     couponService,
		Cart:        cartService,
		Checkout:    checkoutService,
		Orders:      orderService,
		Reports:     reports,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
