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

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	appinventory "github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/config"
	domcart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	dominventory "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/gateway"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/kafkarelay"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/notify"
	infraobs "github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/rediscart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/sqlstore"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-checkout/internal/presentation/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger, err := zaplogger.New(zaplogger.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		Fixed: []observability.Field{
			observability.F("service", cfg.ServiceName),
			observability.F("env", cfg.Env),
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service_exit", observability.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// userDirectory is learned from tokens and read by the notification worker.
type userDirectory interface {
	httppresentation.UserDirectory
	apppayment.Directory
}

// orderStore serves both checkout writes and sales reporting.
type orderStore interface {
	domorder.Repository
	domorder.Reporter
}

type repositories struct {
	inventory dominventory.Repository
	orders    orderStore
	payments  dompayment.Repository
	users     userDirectory
	close     func() error
}

func openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return repositories{
			inventory: memory.NewInventoryRepository(),
			orders:    memory.NewOrderRepository(),
			payments:  memory.NewPaymentRepository(),
			users:     memory.NewDirectory(),
			close:     func() error { return nil },
		}, nil
	}
	store, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:      cfg.StoreDriver,
		DSN:         cfg.DatabaseURL,
		AutoMigrate: true,
	})
	if err != nil {
		return repositories{}, err
	}
	return repositories{
		inventory: store.Inventory(),
		orders:    store.Orders(),
		payments:  store.Payments(),
		users:     store.Users(),
		close:     store.Close,
	}, nil
}

func openCarts(ctx context.Context, cfg config.Config) (domcart.Repository, func() error, error) {
	if cfg.CartDriver != config.CartRedis {
		return memory.NewCartRepository(), func() error { return nil }, nil
	}
	client, err := rediscart.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return rediscart.New(client, cfg.CartTTL), client.Close, nil
}

func paymentGateway(cfg config.Config) (dompayment.Gateway, error) {
	if cfg.GatewaySandboxed() {
		return gateway.NewSandbox(""), nil
	}
	return gateway.New(gateway.Config{
		BaseURL:   cfg.GatewayBaseURL,
		KeyID:     cfg.GatewayKeyID,
		KeySecret: cfg.GatewayKeySecret,
		Timeout:   cfg.GatewayTimeout,
	})
}

func notifier(cfg config.Config, log observability.Logger) (apppayment.Notifier, error) {
	if cfg.SMTPAddr == "" {
		return notify.NewLogNotifier(log), nil
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Addr:     cfg.SMTPAddr,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func run(ctx context.Context, cfg config.Config, logger *zaplogger.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	counters, histograms := prometrics.Standard(prometrics.New(registry, "", ""))
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), logger, infraobs.Instruments{
		Counters:   counters,
		Histograms: histograms,
	})
	log := tel.Logger()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = repos.close() }()

	cartRepo, closeCarts, err := openCarts(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cart store: %w", err)
	}
	defer func() { _ = closeCarts() }()

	gw, err := paymentGateway(cfg)
	if err != nil {
		return fmt.Errorf("payment gateway: %w", err)
	}
	mailer, err := notifier(cfg, log)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	bus := outbox.NewBus(log)
	subscriber := workerpresentation.NewSubscriber(bus, tel)
	ids := id.NewUUIDGenerator()
	directory := repos.users

	ledger := appinventory.NewLedger(repos.inventory, tel)
	catalog := appinventory.NewCatalog(repos.inventory, ledger, ids, bus, tel)
	carts := appcart.NewService(cartRepo, ledger, tel)
	statuses := apporder.NewUpdateStatusUseCase(repos.orders, bus, tel)

	intents := apppayment.NewCreateIntentUseCase(repos.orders, repos.payments, gw, ids, tel,
		apppayment.WithCurrency(cfg.Currency),
		apppayment.WithGatewayTimeout(cfg.GatewayTimeout),
	)

	svc := httppresentation.Services{
		Catalog:   catalog,
		Carts:     carts,
		Create:    apporder.NewCreateOrderUseCase(repos.orders, carts, ledger, ids, bus, tel),
		Cancel:    apporder.NewCancelOrderUseCase(repos.orders, ledger, bus, tel),
		Orders:    apporder.NewQueries(repos.orders, repos.payments, tel),
		Intents:   intents,
		Reconcile: apppayment.NewReconcileUseCase(repos.payments, statuses, bus, tel),
		Remote:    apppayment.NewFetchRemoteUseCase(repos.orders, repos.payments, gw, tel),
		Analytics: apporder.NewAnalytics(repos.orders, tel),
	}

	apppayment.NewNotificationWorker(subscriber, repos.orders, directory, mailer, tel).Start()

	if len(cfg.KafkaBrokers) > 0 {
		relay := kafkarelay.New(kafkarelay.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic), log)
		relay.Attach(subscriber,
			domorder.EventCreated, domorder.EventPaid, domorder.EventCancelled,
			dompayment.EventSucceeded, dompayment.EventFailed,
			dominventory.EventStockAdjusted,
		)
		defer func() { _ = relay.Close() }()
		log.Info("kafka_relay_enabled",
			observability.F("brokers", cfg.KafkaBrokers),
			observability.F("topic", cfg.KafkaTopic),
		)
	}

	bus.Start(ctx)

	handler := httppresentation.NewHandler(svc, httppresentation.Options{
		JWTSecret:     cfg.JWTSecret,
		WebhookSecret: cfg.WebhookSecret,
		Directory:     directory,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, tel)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("store", cfg.StoreDriver),
			observability.F("cart", cfg.CartDriver),
			observability.F("gateway_sandbox", cfg.GatewaySandboxed()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("http_server_shutdown_error", observability.Err(err))
			errs = append(errs, err)
		} else {
			log.Info("http_server_stopped")
		}
		// Handlers finished; drain what they published.
		if err := bus.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
