package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/janiele376/projeto-pet-shop-fullstack/api/routes"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/cart"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/checkout"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/guestcart"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/orders"
	product "github.com/janiele376/projeto-pet-shop-fullstack/internal/products"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/config"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/instance"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/metrics"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/migrate"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/outbox"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/redis"
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
		Instance:    instance.ID("api"),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api stopped with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var (
		httpMetrics *metrics.HTTPMetrics
		cartMetrics *metrics.CartMetrics
	)
	if cfg.Metrics.Enabled {
		httpMetrics = metrics.NewHTTPMetrics(registry)
		cartMetrics = metrics.NewCartMetrics(registry)
	}

	productRepo := product.NewRepository(dbClient.DB())
	products, err := product.NewLookup(productRepo)
	if err != nil {
		return err
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, products)
	if err != nil {
		return err
	}

	guestStore, err := guestcart.NewRedisStore(redisClient, cfg.GuestCart.TTL, cfg.GuestCart.MergeLockTTL)
	if err != nil {
		return err
	}
	guestService, err := guestcart.NewService(guestStore, products)
	if err != nil {
		return err
	}

	merger, err := cart.NewMerger(cartService, guestStore, logg, cartMetrics)
	if err != nil {
		return err
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		cartRepo,
		ordersRepo,
		productRepo,
		outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		checkout.Options{
			DefaultPaymentMethod:   cfg.Checkout.DefaultPaymentMethod,
			DefaultDeliveryAddress: cfg.Checkout.DefaultDeliveryAddress,
			DefaultSellerID:        cfg.Checkout.DefaultSellerID,
			TxOptions:              &sql.TxOptions{Isolation: cfg.Checkout.IsolationLevel()},
		},
		logg,
		cartMetrics,
	)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	servers := []*http.Server{{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			cartService,
			merger,
			checkoutService,
			guestService,
			ordersService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		servers = append(servers, &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
		logg.Info(logg.WithField(logCtx, "metrics_addr", cfg.Metrics.Addr), "starting metrics server")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs error
		for _, srv := range servers {
			errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))
		}
		logg.Info(logCtx, "api server stopped")
		return errs
	})

	return g.Wait()
}
