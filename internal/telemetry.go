package internal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "bytering"

type Telemetry struct {
	kind string
	name string

	l *Logger

	tracer trace.Tracer
	meter  metric.Meter
}

func NewTelemetry(kind, name string) *Telemetry {
	return NewTelemetryWithLogger(kind, name, NewLogger(kind, name))
}

func NewTelemetryWithLogger(kind, name string, l *Logger) *Telemetry {
	return &Telemetry{
		kind: kind,
		name: name,

		l: l,

		tracer: otel.GetTracerProvider().Tracer(instrumentationName),
		meter:  otel.GetMeterProvider().Meter(instrumentationName),
	}
}

func (t *Telemetry) Logger() *Logger {
	return t.l
}

func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.l.Info(msg, args...)
}

func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.l.Warn(msg, args...)
}

func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.l.Error(msg, err, args...)
}

func (t *Telemetry) setDefaultAttributes(span trace.Span) {
	span.SetAttributes(
		attribute.String("bytering.kind", t.kind),
		attribute.String("bytering.name", t.name),
	)
}

func (t *Telemetry) NewTrace(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, spanName, opts...)
	t.setDefaultAttributes(span)
	return ctx, span
}

func (t *Telemetry) getMeterName(name string) string {
	return fmt.Sprintf("%s_%s_%s", t.kind, t.name, name)
}

// NewCounter registers a monotonic counter whose value is read from fn
// at every collection.
func (t *Telemetry) NewCounter(name string, fn func() int64) {
	counterName := t.getMeterName(name)
	_, err := t.meter.Int64ObservableCounter(counterName,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(fn())
			return nil
		}),
	)
	if err != nil {
		t.LogError("failed to create counter", err, "name", counterName)
		return
	}

	t.l.Debug("created counter", "name", counterName)
}

// NewGauge registers a gauge whose value is read from fn at every collection.
func (t *Telemetry) NewGauge(name string, fn func() int64) {
	gaugeName := t.getMeterName(name)
	_, err := t.meter.Int64ObservableGauge(gaugeName,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(fn())
			return nil
		}),
	)
	if err != nil {
		t.LogError("failed to create gauge", err, "name", gaugeName)
		return
	}

	t.l.Debug("created gauge", "name", gaugeName)
}
