package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetrics(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newOrderMetricsWithRegisterer should not return nil")
	}

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}

	if metrics.createFailed == nil {
		t.Error("createFailed counter vec should not be nil")
	}

	if metrics.statusChanges == nil {
		t.Error("statusChanges counter vec should not be nil")
	}

	if metrics.paidEvents == nil {
		t.Error("paidEvents counter should not be nil")
	}

	if metrics.paidFailed == nil {
		t.Error("paidFailed counter should not be nil")
	}

	if metrics.sessionsOpened == nil {
		t.Error("sessionsOpened counter should not be nil")
	}

	if metrics.operationDuration == nil {
		t.Error("operationDuration histogram vec should not be nil")
	}

	if metrics.inFlight == nil {
		t.Error("inFlight gauge should not be nil")
	}
}

func TestDoubleRegistrationReusesCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(registry)
	// Повторная регистрация в том же registry не должна паниковать.
	second := newOrderMetricsWithRegisterer(registry)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	var metric dto.Metric
	if err := second.ordersCreated.Write(&metric); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Errorf("expected shared counter value 2, got %v", got)
	}
}

func TestRecordCounters(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOrderCreated()
	metrics.RecordCreateFailed("UNPROCESSABLE_ENTITY")
	metrics.RecordStatusChange("DELIVERED")
	metrics.RecordPaidEvent()
	metrics.RecordPaidEventFailed()
	metrics.RecordPaymentSession()

	var metric dto.Metric
	if err := metrics.ordersCreated.Write(&metric); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("expected ordersCreated 1, got %v", got)
	}

	failed, err := metrics.createFailed.GetMetricWithLabelValues("UNPROCESSABLE_ENTITY")
	if err != nil {
		t.Fatalf("failed to get labeled counter: %v", err)
	}
	if err := failed.Write(&metric); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("expected createFailed 1, got %v", got)
	}
}

func TestRecordOperationDuration(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOperationDuration("create", 25*time.Millisecond)

	observer, err := metrics.operationDuration.GetMetricWithLabelValues("create")
	if err != nil {
		t.Fatalf("failed to get labeled histogram: %v", err)
	}

	var metric dto.Metric
	histogram, ok := observer.(prometheus.Histogram)
	if !ok {
		t.Fatalf("unexpected observer type %T", observer)
	}
	if err := histogram.Write(&metric); err != nil {
		t.Fatalf("failed to read histogram: %v", err)
	}
	if got := metric.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("expected 1 observation, got %d", got)
	}
}

func TestInFlightGauge(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RequestStarted()
	metrics.RequestStarted()
	metrics.RequestFinished()

	var metric dto.Metric
	if err := metrics.inFlight.Write(&metric); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 1 {
		t.Errorf("expected in-flight gauge 1, got %v", got)
	}
}
