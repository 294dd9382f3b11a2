package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics содержит метрики операций над заказами, позициями и платежами.
type CoreMetrics struct {
	// Счётчики операций
	ordersCreated     prometheus.Counter
	ordersDeleted     prometheus.Counter
	itemsAdded        prometheus.Counter
	itemsRemoved      prometheus.Counter
	paymentsAttached  prometheus.Counter
	paymentsConfirmed prometheus.Counter

	// Переходы статусов с лейблом целевого статуса
	statusTransitions *prometheus.CounterVec

	// Отказы по стоку и коллизии случайных ID
	stockRejections prometheus.Counter
	idCollisions    *prometheus.CounterVec

	// Гистограмма времени операций
	opDuration *prometheus.HistogramVec

	// Gauge открытых (pending) заказов
	pendingOrders prometheus.Gauge
}

// NewCoreMetrics создаёт новый экземпляр метрик.
func NewCoreMetrics() *CoreMetrics {
	return newCoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCoreMetricsWithRegisterer(registerer prometheus.Registerer) *CoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CoreMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kuborder_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kuborder_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		itemsAdded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kuborder_items_added_total",
			Help: "Total number of order items added",
		}),
		itemsRemoved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kuborder_items_removed_total",
			Help: "Total number of order items removed",
		}),
		paymentsAttached: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kuborder_payments_attached_total",
			Help: "Total number of payments attached to orders",
		}),
		paymentsConfirmed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kuborder_payments_confirmed_total",
			Help: "Total number of payments confirmed",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kuborder_status_transitions_total",
			Help: "Total number of order status transitions by target status",
		}, []string{"status"}),
		stockRejections: registerCounter(registerer, prometheus.CounterOpts{
			Name: "kuborder_stock_rejections_total",
			Help: "Total number of item additions rejected due to insufficient stock",
		}),
		idCollisions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "kuborder_id_collisions_total",
			Help: "Total number of random identifier collisions by identifier kind",
		}, []string{"kind"}),
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "kuborder_operation_duration_seconds",
			Help:    "Duration of core operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		pendingOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "kuborder_pending_orders",
			Help: "Number of orders currently in pending status",
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
func (m *CoreMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
	m.pendingOrders.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов. Удаление заказа,
// находившегося в pending, уменьшает gauge открытых заказов.
func (m *CoreMetrics) RecordOrderDeleted(wasPending bool) {
	m.ordersDeleted.Inc()
	if wasPending {
		m.pendingOrders.Dec()
	}
}

// RecordItemAdded увеличивает счётчик добавленных позиций.
func (m *CoreMetrics) RecordItemAdded() {
	m.itemsAdded.Inc()
}

// RecordItemRemoved увеличивает счётчик удалённых позиций.
func (m *CoreMetrics) RecordItemRemoved() {
	m.itemsRemoved.Inc()
}

// RecordPaymentAttached увеличивает счётчик прикреплённых платежей.
func (m *CoreMetrics) RecordPaymentAttached() {
	m.paymentsAttached.Inc()
}

// RecordPaymentConfirmed увеличивает счётчик подтверждённых платежей.
func (m *CoreMetrics) RecordPaymentConfirmed() {
	m.paymentsConfirmed.Inc()
}

// RecordStatusTransition увеличивает счётчик переходов в заданный статус.
// Gauge открытых заказов меняется только при пересечении границы pending:
// уход из pending уменьшает его, возврат в pending увеличивает.
func (m *CoreMetrics) RecordStatusTransition(fromStatus, toStatus string) {
	m.statusTransitions.WithLabelValues(toStatus).Inc()
	switch {
	case fromStatus == "pending" && toStatus != "pending":
		m.pendingOrders.Dec()
	case fromStatus != "pending" && toStatus == "pending":
		m.pendingOrders.Inc()
	}
}

// RecordStockRejection увеличивает счётчик отказов по недостатку стока.
func (m *CoreMetrics) RecordStockRejection() {
	m.stockRejections.Inc()
}

// RecordIDCollision увеличивает счётчик коллизий случайных идентификаторов.
func (m *CoreMetrics) RecordIDCollision(kind string) {
	m.idCollisions.WithLabelValues(kind).Inc()
}

// RecordOperationDuration записывает время выполнения операции.
func (m *CoreMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
