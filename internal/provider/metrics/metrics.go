// Package metrics records protocol events as OpenTelemetry counters and
// exposes them in Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/aussiebroadwan/grantd"

// Metrics implements service.Recorder. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	codesIssued   metric.Int64Counter
	tokensIssued  metric.Int64Counter
	tokensRevoked metric.Int64Counter
	rejected      metric.Int64Counter
}

// New builds a meter provider backed by a private Prometheus registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	m := &Metrics{registry: reg, provider: provider}

	if m.codesIssued, err = meter.Int64Counter(
		"grantd.codes.issued",
		metric.WithDescription("Authorization codes issued"),
		metric.WithUnit("{code}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create codes.issued counter: %w", err)
	}
	if m.tokensIssued, err = meter.Int64Counter(
		"grantd.tokens.issued",
		metric.WithDescription("Tokens issued by grant type"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tokens.issued counter: %w", err)
	}
	if m.tokensRevoked, err = meter.Int64Counter(
		"grantd.tokens.revoked",
		metric.WithDescription("Tokens revoked through the revocation endpoint"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tokens.revoked counter: %w", err)
	}
	if m.rejected, err = meter.Int64Counter(
		"grantd.requests.rejected",
		metric.WithDescription("Protocol requests rejected by endpoint and error code"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create requests.rejected counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) CodeIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.codesIssued.Add(ctx, 1)
}

func (m *Metrics) TokenIssued(ctx context.Context, grant string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("grant", grant)))
}

func (m *Metrics) TokenRevoked(ctx context.Context) {
	if m == nil {
		return
	}
	m.tokensRevoked.Add(ctx, 1)
}

// Rejected counts a request answered with an error code.
func (m *Metrics) Rejected(ctx context.Context, endpoint, code string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("error", code),
	))
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
