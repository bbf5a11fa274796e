package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/embedd-dev/embedd/internal/engine"
)

const namespace = "embedd"

// modelStates are the values of the model_state gauge's state label.
var modelStates = stateLabels()

func stateLabels() []string {
	states := engine.AllStates()
	labels := make([]string, len(states))
	for i, s := range states {
		labels[i] = s.String()
	}
	return labels
}

// Metrics owns an isolated Prometheus registry with the service's
// request and inference metrics.
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	encodeDuration  prometheus.Histogram
	textsEncoded    prometheus.Counter
	encodeFailures  prometheus.Counter
	modelState      *prometheus.GaugeVec
	loadSeconds     prometheus.Gauge
}

// New creates a Metrics instance. Every series carries a constant service
// label. Go runtime and process collectors are registered when
// withDefaultCollectors is set.
func New(serviceName string, withDefaultCollectors bool) *Metrics {
	registry := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, registry)

	m := &Metrics{
		Registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		encodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Duration of engine encode calls in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		textsEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "texts_encoded_total",
			Help:      "Total number of texts successfully encoded.",
		}),
		encodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encode_failures_total",
			Help:      "Total number of failed encode calls.",
		}),
		modelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_state",
			Help:      "1 for the current model lifecycle state, 0 otherwise.",
		}, []string{"state"}),
		loadSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_load_seconds",
			Help:      "Time it took to load the model.",
		}),
	}

	wrapped.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.encodeDuration,
		m.textsEncoded,
		m.encodeFailures,
		m.modelState,
		m.loadSeconds,
	)

	if withDefaultCollectors {
		wrapped.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	for _, s := range modelStates {
		m.modelState.WithLabelValues(s).Set(0)
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveEncode records one engine encode call.
func (m *Metrics) ObserveEncode(texts int, d time.Duration, err error) {
	m.encodeDuration.Observe(d.Seconds())
	if err != nil {
		m.encodeFailures.Inc()
		return
	}
	m.textsEncoded.Add(float64(texts))
}

// SetModelState marks state as the current model state.
func (m *Metrics) SetModelState(state string) {
	for _, s := range modelStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.modelState.WithLabelValues(s).Set(v)
	}
}

// ObserveLoad records how long the model took to load.
func (m *Metrics) ObserveLoad(d time.Duration) {
	m.loadSeconds.Set(d.Seconds())
}
