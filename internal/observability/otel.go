package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"resumegenius/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the tracer and meter providers plus the custom metrics.
// All methods are safe on a nil or disabled Manager.
type Manager struct {
	cfg            config.ObservabilityConfig
	version        string
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	manualReader   *sdkmetric.ManualReader
	metrics        *Metrics
	promServer     *http.Server
	shutdownFuncs  []func(context.Context) error
}

// New builds a Manager from the observability section. A disabled section
// yields a Manager whose instruments are all no-ops.
func New(cfg config.ObservabilityConfig, version string) (*Manager, error) {
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version
	}
	m := &Manager{cfg: cfg, version: version}
	if !cfg.Enabled {
		return m, nil
	}

	res, err := m.resource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	if err := m.initTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := m.initMetrics(res); err != nil {
		_ = m.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return m, nil
}

// Enabled reports whether telemetry is being collected
func (m *Manager) Enabled() bool {
	return m != nil && m.cfg.Enabled
}

func (m *Manager) resource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(m.cfg.ServiceName),
			semconv.ServiceVersion(m.cfg.ServiceVersion),
			attribute.String("service.instance.id", m.instanceID()),
		),
	)
}

func (m *Manager) instanceID() string {
	if m.cfg.ServiceInstance != "" {
		return m.cfg.ServiceInstance
	}
	return m.cfg.ServiceName + "-1"
}

func (m *Manager) initTracing(res *resource.Resource) error {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch {
	case m.cfg.ConsoleOutput:
		var opts []stdouttrace.Option
		if m.cfg.Console.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.cfg.OTLP.Enabled:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(m.cfg.OTLP.Endpoint)}
		if m.cfg.OTLP.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(m.cfg.OTLP.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(m.cfg.OTLP.Headers))
		}
		exporter, err = otlptracehttp.New(context.Background(), opts...)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(m.cfg.SampleRate))),
	}
	// without an exporter spans are still created so trace ids propagate
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) initMetrics(res *resource.Resource) error {
	readers, err := m.metricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	if !m.cfg.Metrics.Enabled {
		return nil
	}
	m.metrics, err = newMetrics(mp.Meter(m.cfg.ServiceName), m.cfg.ServiceName)
	return err
}

func (m *Manager) metricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	interval := m.collectionInterval()

	if m.cfg.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if m.cfg.OTLP.Enabled {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(m.cfg.OTLP.Endpoint)}
		if m.cfg.OTLP.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(m.cfg.OTLP.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(m.cfg.OTLP.Headers))
		}
		exporter, err := otlpmetrichttp.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if m.cfg.Prometheus.Enabled {
		reader, server, err := newPrometheusServer(m.cfg.Prometheus)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
		m.promServer = server
		m.shutdownFuncs = append(m.shutdownFuncs, server.Shutdown)
	}

	if len(readers) == 0 {
		m.manualReader = sdkmetric.NewManualReader()
		readers = append(readers, m.manualReader)
	}
	return readers, nil
}

func (m *Manager) collectionInterval() time.Duration {
	if m.cfg.Metrics.CollectionInterval > 0 {
		return m.cfg.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

// StartPrometheus serves the metrics endpoint in the background
func (m *Manager) StartPrometheus(onError func(error)) {
	if m == nil || m.promServer == nil {
		return
	}
	go func() {
		if err := m.promServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) && onError != nil {
			onError(err)
		}
	}()
}

// PrometheusAddr returns the metrics listen address, or "" when disabled
func (m *Manager) PrometheusAddr() string {
	if m == nil || m.promServer == nil {
		return ""
	}
	return m.promServer.Addr
}

// HTTPMiddleware wraps handlers with otelhttp instrumentation
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.Enabled() {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		m.cfg.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a named tracer, or a no-op one when disabled
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if !m.Enabled() || m.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// Shutdown flushes exporters and stops the metrics server. It runs every
// shutdown hook and returns the joined errors.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var errs []error
	for i := len(m.shutdownFuncs) - 1; i >= 0; i-- {
		if err := m.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.shutdownFuncs = nil
	return stderrors.Join(errs...)
}
