package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders-ms/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orders-ms/internal/health"
	"github.com/vladislavdragonenkov/orders-ms/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/catalog"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/orders"
	"github.com/vladislavdragonenkov/orders-ms/internal/service/payment"
	"github.com/vladislavdragonenkov/orders-ms/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders-ms/internal/storage/postgres"
	"github.com/vladislavdragonenkov/orders-ms/internal/version"
)

// Run собирает зависимости и запускает сервис до отмены контекста.
func Run(ctx context.Context, cfg *Config) error {
	logger := log.WithField("component", "app")

	// Хранилище.
	var (
		orderRepo     domain.OrderRepository
		statusLogRepo domain.StatusLogRepository
		store         *postgres.Store
	)
	switch cfg.Storage.Driver {
	case "postgres":
		var err error
		store, err = postgres.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("failed to close postgres store")
			}
		}()
		if cfg.Storage.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			logger.Info("postgres schema is up to date")
		}
		orderRepo = postgres.NewOrderRepository(store)
		statusLogRepo = postgres.NewStatusLogRepository(store)
	default:
		statusLogRepo = memory.NewStatusLogRepository()
		orderRepo = memory.NewOrderRepository(statusLogRepo)
	}

	// Шина: producer, requester и клиенты удалённых сервисов.
	// Без брокеров сервис поднимается с mock-клиентами для локальной
	// разработки; входящие паттерны в этом режиме не обслуживаются.
	var (
		producer   *kafka.Producer
		requester  *kafka.Requester
		productSvc domain.ProductService
		paymentSvc domain.PaymentService
	)
	if len(cfg.Brokers) > 0 {
		var err error
		producer, err = kafka.NewProducer(cfg.Brokers)
		if err != nil {
			return err
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.WithError(err).Warn("failed to close kafka producer")
			}
		}()

		requester, err = kafka.NewRequester(cfg.Brokers, cfg.ReplyTopic, cfg.RequestTimeout)
		if err != nil {
			return err
		}
		defer func() {
			if err := requester.Close(); err != nil {
				logger.WithError(err).Warn("failed to close kafka requester")
			}
		}()

		productSvc = catalog.NewClient(requester)
		paymentSvc = payment.NewClient(requester, cfg.Currency)
		logger.WithField("brokers", cfg.Brokers).Info("kafka transport initialized")
	} else {
		productSvc = catalog.NewMockService()
		paymentSvc = payment.NewMockService()
		logger.Warn("no kafka brokers configured, using mock remote services")
	}

	svc := orders.NewService(orderRepo, statusLogRepo, productSvc, paymentSvc, logger.WithField("layer", "service"))
	handler := orders.NewHandler(svc)

	// Health checks.
	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if store != nil {
		healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(checkCtx)
		}))
	}
	if len(cfg.Brokers) > 0 {
		busClient, err := sarama.NewClient(cfg.Brokers, sarama.NewConfig())
		if err != nil {
			return err
		}
		defer func() {
			if err := busClient.Close(); err != nil {
				logger.WithError(err).Warn("failed to close bus health client")
			}
		}()
		healthHandler.RegisterChecker("bus", healthcheck.NewSimpleChecker("bus", func() error {
			return busClient.RefreshMetadata()
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	// Consumer обслуживает входящие паттерны и события, пока есть брокеры.
	if producer == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	responder := kafka.NewResponder(producer)
	handler.Register(responder)

	consumer, err := kafka.NewConsumerWithDLQ(cfg.Brokers, cfg.GroupID, responder.Topics(), responder.Handle, producer)
	if err != nil {
		return err
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем consumer")
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("consumer stopped with error")
	}
	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
