// Package telemetry wires OpenTelemetry metrics to a Prometheus endpoint.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Config holds the metrics settings.
type Config struct {
	// Enabled turns the Prometheus exporter on.
	Enabled bool `yaml:"enabled"`
	// Addr is the listen address of the /metrics endpoint.
	Addr string `yaml:"addr"`
}

// Telemetry holds the meter provider and its Prometheus registry.
type Telemetry struct {
	provider metric.MeterProvider
	sdk      *sdkmetric.MeterProvider
	registry *prometheus.Registry
	addr     string
	logger   *zap.Logger
}

// New creates the meter provider. A disabled Config yields a no-op provider
// and no endpoint.
func New(cfg Config, logger *zap.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Enabled {
		return &Telemetry{provider: noop.NewMeterProvider(), logger: logger}, nil
	}

	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}

	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return &Telemetry{
		provider: provider,
		sdk:      provider,
		registry: registry,
		addr:     cfg.Addr,
		logger:   logger,
	}, nil
}

// MeterProvider returns the provider instruments should be created from.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.provider
}

// Handler serves the Prometheus exposition. It is nil when metrics are disabled.
func (t *Telemetry) Handler() http.Handler {
	if t.registry == nil {
		return nil
	}

	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          zap.NewStdLog(t.logger),
	})
}

// Serve exposes /metrics on the configured address until ctx is done.
// It returns immediately when metrics are disabled.
func (t *Telemetry) Serve(ctx context.Context) error {
	handler := t.Handler()
	if handler == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", t.addr, err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout} //nolint:exhaustruct

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	t.logger.Info("metrics endpoint listening", zap.String("addr", listener.Addr().String()))

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.sdk == nil {
		return nil
	}

	if err := t.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}
