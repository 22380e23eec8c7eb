package services

import (
	"context"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricApi "go.opentelemetry.io/otel/sdk/metric"
)

// SynthesisObserver receives orchestration measurements.
type SynthesisObserver interface {
	ObserveSynthesis(outcome ErrorKind, duration time.Duration)
	ObserveEvictions(n int)
}

// MetricsService bootstraps an OpenTelemetry pipeline exported in the
// Prometheus text format on its own registry.
type MetricsService struct {
	Meter         metric.Meter
	ApiTimeMetric metric.Float64Histogram
	SynthesisTime metric.Float64Histogram
	EvictedClones metric.Int64Counter
	provider      *metricApi.MeterProvider
	registry      *promclient.Registry
}

func NewMetricsService() (*MetricsService, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	provider := metricApi.NewMeterProvider(metricApi.WithReader(exporter))
	meter := provider.Meter("github.com/qaidjoharj53/Voice-Clone-TTS")

	apiTime, err := meter.Float64Histogram("api_call", metric.WithDescription("api calls"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	synthesisTime, err := meter.Float64Histogram("voice_synthesis", metric.WithDescription("clone and synthesize duration per outcome"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	evicted, err := meter.Int64Counter("voice_clones_evicted", metric.WithDescription("cloned voices deleted from the provider"))
	if err != nil {
		return nil, err
	}

	return &MetricsService{
		Meter:         meter,
		ApiTimeMetric: apiTime,
		SynthesisTime: synthesisTime,
		EvictedClones: evicted,
		provider:      provider,
		registry:      registry,
	}, nil
}

func (m *MetricsService) ObserveAPICall(method string, path string, status int, duration float64) {
	opts := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)
	m.ApiTimeMetric.Record(context.Background(), duration, opts)
}

func (m *MetricsService) ObserveSynthesis(outcome ErrorKind, duration time.Duration) {
	if outcome == "" {
		outcome = "ok"
	}
	m.SynthesisTime.Record(context.Background(), duration.Seconds(), metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func (m *MetricsService) ObserveEvictions(n int) {
	if n > 0 {
		m.EvictedClones.Add(context.Background(), int64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsService) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

var _ SynthesisObserver = (*MetricsService)(nil)
