package credseal

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rbaliyan/credseal"

// telemetry holds the spans and counters recorded around Seal and Open.
type telemetry struct {
	tracer trace.Tracer
	seals  metric.Int64Counter
	opens  metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*telemetry, error) {
	meter := mp.Meter(instrumentationName)

	seals, err := meter.Int64Counter("credseal.seal.calls",
		metric.WithDescription("Number of Seal calls by result."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}
	opens, err := meter.Int64Counter("credseal.open.calls",
		metric.WithDescription("Number of Open calls by result."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &telemetry{
		tracer: tp.Tracer(instrumentationName),
		seals:  seals,
		opens:  opens,
	}, nil
}

// finish ends span and records the call outcome on counter.
func (t *telemetry) finish(ctx context.Context, span trace.Span, counter metric.Int64Counter, err error) {
	kind := errorKind(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
	}
	span.End()
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", kind)))
}
