package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// Metrics holds Prometheus collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	cycles         prometheus.Counter
	cycleErrors    *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	apiCost        *prometheus.CounterVec
	apiTokens      *prometheus.CounterVec
	apiCalls       *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDurations  *prometheus.HistogramVec
	ordersByStatus *prometheus.GaugeVec
}

// New creates collectors and registers them together with process and Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixxer_order_transitions_total",
				Help: "Total number of committed order status transitions",
			},
			[]string{"from", "to"},
		),
		cycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sixxer_scheduler_cycles_total",
				Help: "Total number of scheduler cycles started",
			},
		),
		cycleErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixxer_scheduler_cycle_errors_total",
				Help: "Total number of scheduler cycles that ended with an error",
			},
			[]string{"kind"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sixxer_scheduler_cycle_duration_seconds",
				Help:    "Duration of scheduler cycles",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		apiCost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixxer_api_cost_usd_total",
				Help: "Total spend on paid API calls in USD",
			},
			[]string{"model", "purpose"},
		),
		apiTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixxer_api_tokens_total",
				Help: "Total number of tokens consumed by paid API calls",
			},
			[]string{"model", "direction"},
		),
		apiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixxer_api_calls_total",
				Help: "Total number of paid API calls",
			},
			[]string{"model", "purpose"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixxer_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sixxer_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ordersByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sixxer_orders",
				Help: "Number of stored orders by status as of the last report",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		m.transitions,
		m.cycles,
		m.cycleErrors,
		m.cycleDuration,
		m.apiCost,
		m.apiTokens,
		m.apiCalls,
		m.httpRequests,
		m.httpDurations,
		m.ordersByStatus,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTransition counts a committed status change.
func (m *Metrics) ObserveTransition(from, to model.OrderStatus) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// CycleStarted counts a scheduler cycle.
func (m *Metrics) CycleStarted() {
	m.cycles.Inc()
}

// CycleFinished records cycle duration and, when kind is not empty, a cycle error.
func (m *Metrics) CycleFinished(duration time.Duration, kind string) {
	m.cycleDuration.Observe(duration.Seconds())
	if kind != "" {
		m.cycleErrors.WithLabelValues(kind).Inc()
	}
}

// ObserveAPICall records one paid call.
func (m *Metrics) ObserveAPICall(modelName, purpose string, inputTokens, outputTokens int, costUSD float64) {
	m.apiCalls.WithLabelValues(modelName, purpose).Inc()
	m.apiCost.WithLabelValues(modelName, purpose).Add(costUSD)
	m.apiTokens.WithLabelValues(modelName, "input").Add(float64(inputTokens))
	m.apiTokens.WithLabelValues(modelName, "output").Add(float64(outputTokens))
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDurations.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetOrderCounts replaces the per-status gauge values.
func (m *Metrics) SetOrderCounts(counts map[model.OrderStatus]int) {
	for _, status := range model.OrderStatuses() {
		m.ordersByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
