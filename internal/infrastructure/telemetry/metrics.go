package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/jhoicas/kardex-api/pkg/config"
)

// ShutdownFunc vacía y detiene el proveedor de métricas.
type ShutdownFunc func(context.Context) error

// InitMetrics registra el MeterProvider global con exportador OTLP/HTTP.
// Sin endpoint configurado los contadores quedan en el proveedor no-op de otel.
func InitMetrics(ctx context.Context, cfg config.TelemetryConfig, service string) (ShutdownFunc, error) {
	if cfg.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("crear exportador OTLP: %w", err)
	}

	mp, err := newMeterProvider(ctx, service, sdkmetric.NewPeriodicReader(exporter))
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

func newMeterProvider(ctx context.Context, service string, reader sdkmetric.Reader) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", service),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("crear recurso otel: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	), nil
}
