// Package questdb records bench results into a QuestDB table over the
// InfluxDB line protocol.
package questdb

import (
	"context"
	"sync/atomic"

	qdb "github.com/questdb/go-questdb-client/v3"
	"github.com/squadracorsepolito/bytering/bench"
	"github.com/squadracorsepolito/bytering/internal"
	"go.opentelemetry.io/otel/attribute"
)

type Sink struct {
	cfg *Config
	tel *internal.Telemetry

	sender qdb.LineSender

	// Telemetry metrics
	insertedRows atomic.Int64
}

func NewSink(ctx context.Context, cfg *Config) (*Sink, error) {
	return NewSinkWithTelemetry(ctx, cfg, internal.NewTelemetry("egress", "questdb"))
}

func NewSinkWithTelemetry(ctx context.Context, cfg *Config, tel *internal.Telemetry) (*Sink, error) {
	sender, err := qdb.NewLineSender(ctx,
		qdb.WithHttp(),
		qdb.WithAddress(cfg.Address),
		qdb.WithRetryTimeout(cfg.RetryTimeout),
	)
	if err != nil {
		return nil, err
	}

	s := &Sink{
		cfg: cfg,
		tel: tel,

		sender: sender,
	}

	s.initMetrics()

	return s, nil
}

func (s *Sink) initMetrics() {
	s.tel.NewCounter("inserted_rows", func() int64 { return s.insertedRows.Load() })
}

// Record inserts one row describing res and flushes it.
func (s *Sink) Record(ctx context.Context, res *bench.Result) error {
	ctx, span := s.tel.NewTrace(ctx, "record bench result")
	defer span.End()

	span.SetAttributes(attribute.String("table", s.cfg.Table))

	err := s.sender.Table(s.cfg.Table).
		Symbol("mode", res.Mode.String()).
		Int64Column("capacity", int64(res.Capacity)).
		Int64Column("bytes", res.Bytes).
		Int64Column("writes", int64(res.Writes)).
		Int64Column("reads", int64(res.Reads)).
		Int64Column("full_polls", int64(res.FullPolls)).
		Int64Column("empty_polls", int64(res.EmptyPolls)).
		Int64Column("duration_ns", res.Duration.Nanoseconds()).
		Float64Column("throughput", res.Throughput()).
		At(ctx, res.StartedAt)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.sender.Flush(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	s.insertedRows.Add(1)

	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	return s.sender.Close(ctx)
}
