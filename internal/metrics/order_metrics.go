package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики workflow заказов.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated  prometheus.Counter
	createFailed   *prometheus.CounterVec
	statusChanges  *prometheus.CounterVec
	paidEvents     prometheus.Counter
	paidFailed     prometheus.Counter
	sessionsOpened prometheus.Counter

	// Гистограммы времени выполнения
	operationDuration *prometheus.HistogramVec

	// Gauge для запросов в обработке
	inFlight prometheus.Gauge
}

// NewOrderMetrics создаёт метрики в default-регистраторе.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created successfully",
		}),
		createFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_create_failed_total",
			Help: "Total number of failed order creations by error code",
		}, []string{"code"}),
		statusChanges: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_status_changes_total",
			Help: "Total number of order status changes by target status",
		}, []string{"status"}),
		paidEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_paid_events_total",
			Help: "Total number of processed payment.succeeded events",
		}),
		paidFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_paid_events_failed_total",
			Help: "Total number of payment.succeeded events that failed processing",
		}),
		sessionsOpened: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_payment_sessions_total",
			Help: "Total number of payment sessions created",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "orders_requests_in_flight",
			Help: "Number of order requests currently being handled",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordCreateFailed увеличивает счётчик неудачных созданий по коду ошибки.
func (m *OrderMetrics) RecordCreateFailed(code string) {
	m.createFailed.WithLabelValues(code).Inc()
}

// RecordStatusChange увеличивает счётчик смен статуса.
func (m *OrderMetrics) RecordStatusChange(status string) {
	m.statusChanges.WithLabelValues(status).Inc()
}

// RecordPaidEvent увеличивает счётчик обработанных событий оплаты.
func (m *OrderMetrics) RecordPaidEvent() {
	m.paidEvents.Inc()
}

// RecordPaidEventFailed увеличивает счётчик неудачных событий оплаты.
func (m *OrderMetrics) RecordPaidEventFailed() {
	m.paidFailed.Inc()
}

// RecordPaymentSession увеличивает счётчик созданных сессий оплаты.
func (m *OrderMetrics) RecordPaymentSession() {
	m.sessionsOpened.Inc()
}

// RecordOperationDuration пишет длительность операции в гистограмму.
func (m *OrderMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RequestStarted увеличивает gauge запросов в обработке.
func (m *OrderMetrics) RequestStarted() {
	m.inFlight.Inc()
}

// RequestFinished уменьшает gauge запросов в обработке.
func (m *OrderMetrics) RequestFinished() {
	m.inFlight.Dec()
}
