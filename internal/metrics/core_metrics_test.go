package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCoreMetrics(t *testing.T) {
	metrics := NewCoreMetrics()

	if metrics == nil {
		t.Fatal("NewCoreMetrics should not return nil")
	}

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}

	if metrics.ordersDeleted == nil {
		t.Error("ordersDeleted counter should not be nil")
	}

	if metrics.itemsAdded == nil {
		t.Error("itemsAdded counter should not be nil")
	}

	if metrics.itemsRemoved == nil {
		t.Error("itemsRemoved counter should not be nil")
	}

	if metrics.paymentsAttached == nil {
		t.Error("paymentsAttached counter should not be nil")
	}

	if metrics.paymentsConfirmed == nil {
		t.Error("paymentsConfirmed counter should not be nil")
	}

	if metrics.statusTransitions == nil {
		t.Error("statusTransitions counter vec should not be nil")
	}

	if metrics.stockRejections == nil {
		t.Error("stockRejections counter should not be nil")
	}

	if metrics.idCollisions == nil {
		t.Error("idCollisions counter vec should not be nil")
	}

	if metrics.opDuration == nil {
		t.Error("opDuration histogram vec should not be nil")
	}

	if metrics.pendingOrders == nil {
		t.Error("pendingOrders gauge should not be nil")
	}
}

func TestRecordOrderCreated(t *testing.T) {
	reg := prometheus.NewRegistry()

	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_orders_created_total",
		Help: "Test counter",
	})
	pendingOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_pending_orders",
		Help: "Test gauge",
	})

	reg.MustRegister(ordersCreated, pendingOrders)

	metrics := &CoreMetrics{
		ordersCreated: ordersCreated,
		pendingOrders: pendingOrders,
	}

	metrics.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}

	gaugeMetric := &dto.Metric{}
	if err := pendingOrders.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected pending orders 1.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRecordStatusTransition(t *testing.T) {
	reg := prometheus.NewRegistry()

	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_status_transitions_total",
		Help: "Test counter vec",
	}, []string{"status"})
	pendingOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_pending_orders_transition",
		Help: "Test gauge",
	})

	reg.MustRegister(statusTransitions, pendingOrders)

	metrics := &CoreMetrics{
		statusTransitions: statusTransitions,
		pendingOrders:     pendingOrders,
	}

	pendingOrders.Set(5)
	metrics.RecordStatusTransition("pending", "shipped")

	metric := &dto.Metric{}
	if err := statusTransitions.WithLabelValues("shipped").Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}

	// Переход из pending уменьшает gauge открытых заказов.
	gaugeMetric := &dto.Metric{}
	if err := pendingOrders.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 4.0 {
		t.Errorf("expected pending orders 4.0, got %f", gaugeMetric.Gauge.GetValue())
	}

	// shipped -> delivered границу pending не пересекает: gauge не трогаем.
	metrics.RecordStatusTransition("shipped", "delivered")

	gaugeMetric = &dto.Metric{}
	if err := pendingOrders.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 4.0 {
		t.Errorf("expected pending orders to stay 4.0 after shipped->delivered, got %f", gaugeMetric.Gauge.GetValue())
	}

	// Возврат в pending увеличивает gauge.
	metrics.RecordStatusTransition("shipped", "pending")

	gaugeMetric = &dto.Metric{}
	if err := pendingOrders.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 5.0 {
		t.Errorf("expected pending orders 5.0 after return to pending, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRecordOrderDeleted(t *testing.T) {
	reg := prometheus.NewRegistry()

	ordersDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_orders_deleted_total",
		Help: "Test counter",
	})
	pendingOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_pending_orders_deleted",
		Help: "Test gauge",
	})

	reg.MustRegister(ordersDeleted, pendingOrders)

	metrics := &CoreMetrics{
		ordersDeleted: ordersDeleted,
		pendingOrders: pendingOrders,
	}

	pendingOrders.Set(3)
	metrics.RecordOrderDeleted(true)
	metrics.RecordOrderDeleted(false)

	metric := &dto.Metric{}
	if err := ordersDeleted.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected 2 orders deleted, got %f", metric.Counter.GetValue())
	}

	// Gauge уменьшается только за удалённый pending-заказ.
	gaugeMetric := &dto.Metric{}
	if err := pendingOrders.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 2.0 {
		t.Errorf("expected pending orders 2.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRecordStockRejection(t *testing.T) {
	reg := prometheus.NewRegistry()

	stockRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_stock_rejections_total",
		Help: "Test counter",
	})

	reg.MustRegister(stockRejections)

	metrics := &CoreMetrics{
		stockRejections: stockRejections,
	}

	metrics.RecordStockRejection()
	metrics.RecordStockRejection()

	metric := &dto.Metric{}
	if err := stockRejections.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordIDCollision(t *testing.T) {
	reg := prometheus.NewRegistry()

	idCollisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_id_collisions_total",
		Help: "Test counter vec",
	}, []string{"kind"})

	reg.MustRegister(idCollisions)

	metrics := &CoreMetrics{
		idCollisions: idCollisions,
	}

	metrics.RecordIDCollision("order")
	metrics.RecordIDCollision("order")
	metrics.RecordIDCollision("transaction")

	orderMetric := &dto.Metric{}
	if err := idCollisions.WithLabelValues("order").Write(orderMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if orderMetric.Counter.GetValue() != 2.0 {
		t.Errorf("expected 2 order collisions, got %f", orderMetric.Counter.GetValue())
	}

	txnMetric := &dto.Metric{}
	if err := idCollisions.WithLabelValues("transaction").Write(txnMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if txnMetric.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 transaction collision, got %f", txnMetric.Counter.GetValue())
	}
}

func TestRecordOperationDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_operation_duration_seconds",
		Help:    "Test histogram vec",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"operation"})

	reg.MustRegister(opDuration)

	metrics := &CoreMetrics{
		opDuration: opDuration,
	}

	metrics.RecordOperationDuration("add_item", 50*time.Millisecond)
	metrics.RecordOperationDuration("add_item", 100*time.Millisecond)
	metrics.RecordOperationDuration("create_order", 25*time.Millisecond)

	addMetric := &dto.Metric{}
	observer := opDuration.WithLabelValues("add_item")
	if err := observer.(prometheus.Histogram).Write(addMetric); err != nil {
		t.Fatalf("failed to write add_item metric: %v", err)
	}

	if addMetric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples for add_item, got %d", addMetric.Histogram.GetSampleCount())
	}

	sum := addMetric.Histogram.GetSampleSum()
	if sum < 0.14 || sum > 0.16 {
		t.Errorf("expected sum around 0.15, got %f", sum)
	}
}

func TestOrderLifecycleCounters(t *testing.T) {
	reg := prometheus.NewRegistry()

	itemsAdded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_items_added_total",
		Help: "Test counter",
	})
	itemsRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_items_removed_total",
		Help: "Test counter",
	})
	paymentsConfirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_payments_confirmed_total",
		Help: "Test counter",
	})

	reg.MustRegister(itemsAdded, itemsRemoved, paymentsConfirmed)

	metrics := &CoreMetrics{
		itemsAdded:        itemsAdded,
		itemsRemoved:      itemsRemoved,
		paymentsConfirmed: paymentsConfirmed,
	}

	metrics.RecordItemAdded()
	metrics.RecordItemAdded()
	metrics.RecordItemRemoved()
	metrics.RecordPaymentConfirmed()

	addedMetric := &dto.Metric{}
	if err := itemsAdded.Write(addedMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if addedMetric.Counter.GetValue() != 2.0 {
		t.Errorf("expected 2 items added, got %f", addedMetric.Counter.GetValue())
	}

	removedMetric := &dto.Metric{}
	if err := itemsRemoved.Write(removedMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if removedMetric.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 item removed, got %f", removedMetric.Counter.GetValue())
	}

	confirmedMetric := &dto.Metric{}
	if err := paymentsConfirmed.Write(confirmedMetric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if confirmedMetric.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 payment confirmed, got %f", confirmedMetric.Counter.GetValue())
	}
}
