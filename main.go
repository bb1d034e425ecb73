package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	appcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/catalog"
	appinventory "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/config"
	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/id"
	inventoryworker "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/inventory/worker"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/observability/zaplogger"
	orderworker "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/order/worker"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/outbox"
	paysim "github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/infrastructure/redis"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-fulfillment/internal/presentation/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		LogFile: cfg.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	if err := run(cfg, baseLogger, systemLogger); err != nil {
		systemLogger.Error("service_failed", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, baseLogger, systemLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Service:  cfg.ServiceName,
		Env:      cfg.Env,
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			systemLogger.Warn("tracing_shutdown_error", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	counters, histograms := prometrics.Instruments(prometrics.New("", "", reg))
	tel := infraobs.New(
		oteltrace.New(tp, cfg.ServiceName),
		zaplogger.New(baseLogger),
		counters,
		histograms,
	)

	store, closeStore, err := openStore(ctx, cfg, systemLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	carts, closeCarts, err := openCarts(ctx, cfg, systemLogger)
	if err != nil {
		return err
	}
	defer closeCarts()

	bus := outbox.NewBus(tel)
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, cfg.KafkaTopic, baseLogger)
		// closed after the bus has drained, see the deferred Stop below
		defer func() {
			if err := producer.Close(); err != nil {
				systemLogger.Warn("kafka_producer_close_error", zap.Error(err))
			}
		}()
		kafka.NewRelay(producer, tel).Register(bus)
		systemLogger.Info("kafka_relay_enabled",
			zap.Strings("brokers", brokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}
	bus.Start(ctx)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		bus.Stop(drainCtx)
	}()

	simulator := paysim.NewSimulator(cfg.PaymentSuccessRate, cfg.RefundSuccessRate)
	gateway := apppay.NewInstrumentedGateway(simulator, tel)
	ids := id.NewUUIDGenerator()

	inventoryService := appinventory.NewService(store, bus, tel)
	cartService := appcart.NewService(carts, store, tel)
	orderworker.New(bus, tel.Logger()).Start()
	inventoryworker.New(bus, inventoryService, cfg.LowStockThreshold, tel.Logger()).Start()

	handler := httppresentation.NewHandler(httppresentation.Services{
		Catalog:           appcatalog.NewService(store, tel),
		Inventory:         inventoryService,
		Cart:              cartService,
		CreateOrder:       apporder.NewCreateOrderUseCase(store, cartService, gateway, ids, bus, tel),
		CancelOrder:       apporder.NewCancelOrderUseCase(store, gateway, bus, tel),
		UpdateOrderStatus: apporder.NewUpdateOrderStatusUseCase(store, gateway, bus, tel),
		GetOrder:          apporder.NewGetOrderUseCase(store, tel),
		ListOrders:        apporder.NewListOrdersUseCase(store, tel),
	}, tel, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", zap.Error(err))
		return err
	}
	systemLogger.Info("http_server_stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (application.UnitOfWork, func(), error) {
	seed := seedProducts()
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := postgres.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DBAutoMigrate {
			if err := postgres.AutoMigrate(ctx, db); err != nil {
				return nil, nil, err
			}
		}
		store := postgres.NewStore(db)
		if cfg.SeedCatalog {
			if err := store.Seed(ctx, seed...); err != nil {
				return nil, nil, fmt.Errorf("seed catalog: %w", err)
			}
		}
		log.Info("store_ready", zap.String("backend", config.BackendPostgres))
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn("store_close_error", zap.Error(err))
			}
		}, nil
	default:
		store := memory.NewStore()
		if cfg.SeedCatalog {
			store.Seed(seed...)
		}
		log.Info("store_ready", zap.String("backend", config.BackendMemory))
		return store, func() {}, nil
	}
}

func openCarts(ctx context.Context, cfg *config.Config, log *zap.Logger) (domcart.Repository, func(), error) {
	if cfg.CartBackend != config.BackendRedis {
		return memory.NewCartRepository(), func() {}, nil
	}
	client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("cart_store_ready", zap.String("backend", config.BackendRedis), zap.String("addr", cfg.RedisAddr))
	return redis.NewCartRepository(client, cfg.CartTTL), func() {
		if err := client.Close(); err != nil {
			log.Warn("redis_close_error", zap.Error(err))
		}
	}, nil
}

func seedProducts() []*catalog.Product {
	defs := []struct {
		id, name, price string
		stock           int
	}{
		{"laptop-pro-x", "Laptop Pro X", "1299.99", 50},
		{"smartphone-ultra", "Smartphone Ultra", "899.99", 100},
		{"premium-t-shirt", "Premium T-Shirt", "29.99", 200},
		{"classic-jeans", "Classic Jeans", "59.99", 150},
	}
	out := make([]*catalog.Product, 0, len(defs))
	for _, d := range defs {
		p, err := catalog.NewProduct(d.id, d.name, decimal.RequireFromString(d.price), d.stock)
		if err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}
