package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceMetrics содержит метрики прикладных операций сервиса.
type ServiceMetrics struct {
	// Счётчики операций над клиентами
	customersCreated     prometheus.Counter
	customersPromoted    prometheus.Counter
	customersDeactivated prometheus.Counter
	customersReactivated prometheus.Counter
	purchasesRegistered  prometheus.Counter

	// Счётчики операций над заказами
	ordersCreated    prometheus.Counter
	orderTransitions *prometheus.CounterVec

	// Гистограмма времени выполнения операций
	operationDuration *prometheus.HistogramVec

	// Счётчик событий outbox
	outboxEvents prometheus.Counter

	// Gauge для активных клиентов
	activeCustomers prometheus.Gauge
}

// NewServiceMetrics создаёт новый экземпляр метрик сервиса.
func NewServiceMetrics() *ServiceMetrics {
	return newServiceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newServiceMetricsWithRegisterer(registerer prometheus.Registerer) *ServiceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ServiceMetrics{
		customersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_customers_created_total",
			Help: "Total number of customers registered",
		}),
		customersPromoted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_customers_promoted_total",
			Help: "Total number of customers promoted to VIP",
		}),
		customersDeactivated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_customers_deactivated_total",
			Help: "Total number of customers deactivated",
		}),
		customersReactivated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_customers_reactivated_total",
			Help: "Total number of customers reactivated",
		}),
		purchasesRegistered: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_purchases_registered_total",
			Help: "Total number of purchases registered against customer credit",
		}),
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_orders_created_total",
			Help: "Total number of orders created",
		}),
		orderTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "crm_order_transitions_total",
			Help: "Total number of order state transitions grouped by target state",
		}, []string{"state"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "crm_operation_duration_seconds",
			Help:    "Duration of service operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "crm_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeCustomers: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "crm_active_customers",
			Help: "Number of currently active customers observed by the service",
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

// RecordCustomerCreated увеличивает счётчик зарегистрированных клиентов.
func (m *ServiceMetrics) RecordCustomerCreated() {
	m.customersCreated.Inc()
	m.activeCustomers.Inc()
}

// RecordCustomerPromoted увеличивает счётчик VIP-промоушенов.
func (m *ServiceMetrics) RecordCustomerPromoted() {
	m.customersPromoted.Inc()
}

// RecordCustomerDeactivated увеличивает счётчик деактиваций.
func (m *ServiceMetrics) RecordCustomerDeactivated() {
	m.customersDeactivated.Inc()
	m.activeCustomers.Dec()
}

// RecordCustomerReactivated увеличивает счётчик реактиваций.
func (m *ServiceMetrics) RecordCustomerReactivated() {
	m.customersReactivated.Inc()
	m.activeCustomers.Inc()
}

// RecordPurchaseRegistered увеличивает счётчик покупок.
func (m *ServiceMetrics) RecordPurchaseRegistered() {
	m.purchasesRegistered.Inc()
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *ServiceMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderTransition увеличивает счётчик переходов по целевому состоянию.
func (m *ServiceMetrics) RecordOrderTransition(state string) {
	m.orderTransitions.WithLabelValues(state).Inc()
}

// RecordOperationDuration записывает время выполнения операции.
func (m *ServiceMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *ServiceMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
