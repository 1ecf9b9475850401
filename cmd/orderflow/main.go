package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/acmecommerce/orderflow/internal/config"
	invapp "github.com/acmecommerce/orderflow/internal/inventory/application"
	invpg "github.com/acmecommerce/orderflow/internal/inventory/infrastructure/postgres"
	notifapp "github.com/acmecommerce/orderflow/internal/notification/application"
	"github.com/acmecommerce/orderflow/internal/notification/infrastructure/email"
	notifpg "github.com/acmecommerce/orderflow/internal/notification/infrastructure/postgres"
	orderapp "github.com/acmecommerce/orderflow/internal/order/application"
	orderhttp "github.com/acmecommerce/orderflow/internal/order/infrastructure/http"
	orderkafka "github.com/acmecommerce/orderflow/internal/order/infrastructure/kafka"
	orderpg "github.com/acmecommerce/orderflow/internal/order/infrastructure/postgres"
	payapp "github.com/acmecommerce/orderflow/internal/payment/application"
	"github.com/acmecommerce/orderflow/internal/payment/infrastructure/gateway"
	paypg "github.com/acmecommerce/orderflow/internal/payment/infrastructure/postgres"
	shipapp "github.com/acmecommerce/orderflow/internal/shipping/application"
	shipdomain "github.com/acmecommerce/orderflow/internal/shipping/domain"
	"github.com/acmecommerce/orderflow/internal/shipping/infrastructure/carrier"
	"github.com/acmecommerce/orderflow/internal/shipping/infrastructure/geo"
	shippg "github.com/acmecommerce/orderflow/internal/shipping/infrastructure/postgres"
	"github.com/acmecommerce/orderflow/pkg/idempotency"
	"github.com/acmecommerce/orderflow/pkg/logging"
	"github.com/acmecommerce/orderflow/pkg/outbox"
	"github.com/acmecommerce/orderflow/pkg/retry"
	"github.com/acmecommerce/orderflow/pkg/shutdown"
	"github.com/acmecommerce/orderflow/pkg/tracing"
	"github.com/acmecommerce/orderflow/pkg/worker"
)

// declineAboveCents and highRiskAboveCents bound the simulated payment
// provider until a live integration replaces it.
const (
	declineAboveCents  = 1_000_00
	highRiskAboveCents = 5_000_00
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.Application.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Application.Name, cfg.Tracing.Endpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	// Stores.
	orders := orderpg.NewRepository(log, pool)
	outboxStore := orderpg.NewOutboxStore(log, pool)
	products := invpg.NewProductStore(log, pool)
	reservations := invpg.NewReservationStore(log, pool)
	payments := paypg.NewRepository(log, pool)
	credentials := paypg.NewCredentialStore(pool)
	shipments := shippg.NewShipmentStore(log, pool)
	rates := shippg.NewRateStore(pool)
	records := notifpg.NewRecordLog(log, pool)
	users := notifpg.NewUserDirectory(pool)

	for _, ensure := range []func(context.Context) error{
		orders.EnsureSchema, products.EnsureSchema, payments.EnsureSchema,
		shipments.EnsureSchema, records.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			log.Error("schema init failed", "err", err)
			os.Exit(1)
		}
	}
	if err := rates.SeedDefaultRates(ctx); err != nil {
		log.Error("rate seed failed", "err", err)
		os.Exit(1)
	}

	// Outbox relay.
	writer := orderkafka.NewWriter(cfg.Kafka.Brokers)
	defer writer.Close()
	relay := outbox.NewRelay(log, outboxStore,
		outbox.NewDispatcher(log, writer, cfg.Kafka.EventsTopic), cfg.Application.Name+"-relay")

	// Notifications run on the bounded worker pool.
	taskPolicy := retry.Policy{Attempts: cfg.Worker.Attempts, Base: cfg.Worker.Backoff, Max: 5 * time.Second}
	tasks := worker.NewPool(log, cfg.Worker.Workers, cfg.Worker.QueueSize, taskPolicy)
	tasks.Start(ctx)
	defer tasks.Close()

	formatter, err := email.NewFormatter()
	if err != nil {
		log.Error("template init failed", "err", err)
		os.Exit(1)
	}
	notify := notifapp.NewAsync(
		notifapp.NewDispatcher(log, users, formatter, email.NewLogMailer(log), records, cfg.Notifications.AdminEmails),
		tasks)

	// Coordinators.
	inventory := invapp.NewService(log, products, reservations, notify, cfg.Inventory.ReservationWindow)
	claims := idempotency.NewStore(rdb, cfg.Payment.CaptureClaimTTL)
	payment := payapp.NewService(log, payments, gateway.NewSimulator(log, declineAboveCents),
		credentials, gateway.Base64Cipher{}, gateway.NewFraudSimulator(highRiskAboveCents),
		claims, notify, cfg.Payment.AllowedMethods)
	shipping := shipapp.NewEstimator(log, geo.Validator{}, geo.Distancer{}, rates,
		carrier.NewSimulator(log), shipments, notify, shipapp.Config{
			Origin: shipdomain.Address{
				Street:  cfg.Shipping.OriginStreet,
				City:    cfg.Shipping.OriginCity,
				State:   cfg.Shipping.OriginState,
				Zip:     cfg.Shipping.OriginZip,
				Country: cfg.Shipping.OriginCountry,
			},
			DiscountThresholdUnits: cfg.Shipping.DiscountThresholdUnits,
			DiscountPercent:        cfg.Shipping.DiscountPercent,
			DefaultCarrier:         cfg.Shipping.DefaultCarrier,
			LabelBaseURL:           cfg.Shipping.LabelBaseURL,
		})

	compPolicy := retry.Policy{Attempts: cfg.Saga.CompensationAttempts, Base: cfg.Saga.CompensationBackoff, Max: 5 * time.Second}
	saga := orderapp.NewSaga(log, orders, inventory, payment, shipping, notify, cfg.Payment.AllowedMethods, compPolicy)

	handler := orderhttp.NewHandler(log, saga, orders, shipping)
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("orderflow shutdown complete")
}
