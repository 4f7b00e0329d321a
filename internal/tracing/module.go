package tracing

import (
	"context"

	"go.uber.org/fx"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/JamesxFarris/Sixxer/internal/config"
)

// Module installs the tracer provider and flushes it on stop.
var Module = fx.Options(
	fx.Provide(newProvider),
	fx.Invoke(registerLifecycle),
)

func newProvider(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	return Init(ctx, Config{
		ExporterURL: cfg.OTelExporterURL,
		ServiceName: cfg.ServiceName,
		SampleRate:  cfg.TraceSampleRate,
	})
}

func registerLifecycle(lc fx.Lifecycle, tp *sdktrace.TracerProvider) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
}
