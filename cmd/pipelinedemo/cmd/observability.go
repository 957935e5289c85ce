package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keyvi-go/pipeline/internal/config"
	"github.com/keyvi-go/pipeline/providers/observability"
	"github.com/keyvi-go/pipeline/providers/observability/otelobs"
	"github.com/keyvi-go/pipeline/providers/observability/slogobs"
)

// buildProvider constructs the observability.Provider selected by
// cfg.Observability.Provider. The returned shutdown func must be called
// before the process exits; it is a no-op for providers that need no
// flushing.
func buildProvider(ctx context.Context, cfg *config.Config) (observability.Provider, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Observability.Provider {
	case "none", "":
		return nil, noop, nil
	case "slog":
		level := slogobs.ParseLogLevel(cfg.Log.Level)
		if verbose {
			level = slog.LevelDebug
		}
		p := slogobs.New(
			slogobs.WithLevel(level),
			slogobs.WithFormat(slogobs.ParseFormat(cfg.Log.Format)),
		)
		return p, noop, nil
	case "otel":
		p, shutdown, err := otelobs.Init(ctx, otelobs.Config{
			ServiceName:   cfg.Observability.ServiceName,
			Endpoint:      cfg.Observability.OTLPEndpoint,
			SamplingRatio: cfg.Observability.SamplingRatio,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("initializing otel provider: %w", err)
		}
		return p, func(c context.Context) error { return shutdown(c) }, nil
	default:
		return nil, noop, fmt.Errorf("unsupported observability provider: %s", cfg.Observability.Provider)
	}
}
