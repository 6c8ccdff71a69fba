// Package bench streams a verifiable byte pattern through a ring, with one
// producer goroutine and one consumer goroutine, and reports the throughput.
package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/squadracorsepolito/bytering"
	"github.com/squadracorsepolito/bytering/backlog"
	"github.com/squadracorsepolito/bytering/internal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// ErrCorrupted is returned when the consumer reads a byte that differs
// from the one the producer wrote at the same offset.
var ErrCorrupted = errors.New("bench: corrupted data")

// ctxCheckInterval is the number of loop iterations between context checks.
const ctxCheckInterval = 64

type ctxChecker struct {
	ctx   context.Context
	iters int
}

func (cc *ctxChecker) err() error {
	cc.iters++
	if cc.iters%ctxCheckInterval != 0 {
		return nil
	}
	return cc.ctx.Err()
}

type Result struct {
	Mode     bytering.Mode
	Capacity int

	Bytes  int64
	Writes uint64
	Reads  uint64

	// FullPolls counts the writes refused because the ring was full.
	FullPolls uint64
	// EmptyPolls counts the reads refused because the ring was empty.
	EmptyPolls uint64

	StartedAt time.Time
	Duration  time.Duration
}

// Throughput returns the transferred bytes per second.
func (r *Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Duration.Seconds()
}

type Runner struct {
	cfg *Config
	tel *internal.Telemetry

	stats *internal.Stats

	ring atomic.Pointer[bytering.Ring]

	bytesWritten atomic.Int64
	bytesRead    atomic.Int64
}

func NewRunner(cfg *Config) *Runner {
	return NewRunnerWithTelemetry(cfg, internal.NewTelemetry("bench", "ring"))
}

func NewRunnerWithTelemetry(cfg *Config, tel *internal.Telemetry) *Runner {
	r := &Runner{
		cfg: cfg,
		tel: tel,

		stats: internal.NewStats(tel.Logger(), cfg.StatsInterval),
	}

	r.initMetrics()

	return r
}

func (r *Runner) initMetrics() {
	r.tel.NewCounter("bytes_written", func() int64 { return r.bytesWritten.Load() })
	r.tel.NewCounter("bytes_read", func() int64 { return r.bytesRead.Load() })
	r.tel.NewGauge("resident_bytes", func() int64 {
		ring := r.ring.Load()
		if ring == nil {
			return 0
		}
		return int64(ring.Len())
	})
}

// Run streams the configured number of bytes through a new ring.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, span := r.tel.NewTrace(ctx, "run ring bench")
	defer span.End()

	ring := bytering.New(r.cfg.Capacity)
	defer ring.Free()

	r.ring.Store(ring)
	defer r.ring.Store(nil)

	r.bytesWritten.Store(0)
	r.bytesRead.Store(0)

	span.SetAttributes(
		attribute.Int("capacity", ring.Cap()),
		attribute.Int("chunk_size", r.cfg.ChunkSize),
		attribute.Int64("total_bytes", r.cfg.TotalBytes),
		attribute.String("mode", r.cfg.Mode.String()),
	)

	r.tel.LogInfo("starting bench",
		"capacity", humanize.IBytes(uint64(ring.Cap())),
		"chunk_size", humanize.IBytes(uint64(r.cfg.ChunkSize)),
		"total", humanize.IBytes(uint64(r.cfg.TotalBytes)),
		"mode", r.cfg.Mode,
	)

	statsCtx, cancelStats := context.WithCancel(ctx)
	defer cancelStats()
	go r.stats.RunStats(statsCtx)

	p, c := ring.Split()

	startTime := time.Now()
	res := &Result{
		Mode:     r.cfg.Mode,
		Capacity: ring.Cap(),

		StartedAt: startTime,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.produce(gCtx, p, res)
	})
	g.Go(func() error {
		return r.consume(gCtx, c, res)
	})

	err := g.Wait()

	res.Duration = time.Since(startTime)
	res.Bytes = r.bytesRead.Load()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.tel.LogError("bench failed", err, "transferred", humanize.IBytes(uint64(res.Bytes)))
		return res, err
	}

	r.tel.LogInfo("bench completed",
		"transferred", humanize.IBytes(uint64(res.Bytes)),
		"duration", res.Duration,
		"throughput", humanize.IBytes(uint64(res.Throughput()))+"/s",
		"full_polls", res.FullPolls,
		"empty_polls", res.EmptyPolls,
	)

	return res, nil
}

func (r *Runner) produce(ctx context.Context, p *bytering.Producer, res *Result) error {
	if r.cfg.Mode == bytering.Partial {
		return r.produceWithBacklog(ctx, p, res)
	}

	chunk := make([]byte, r.cfg.ChunkSize)
	cc := &ctxChecker{ctx: ctx}

	for offset := int64(0); offset < r.cfg.TotalBytes; {
		size := int(min(int64(len(chunk)), r.cfg.TotalBytes-offset))
		fillPattern(chunk[:size], offset)

		for p.Write(chunk[:size], bytering.AllOrNothing) == 0 {
			res.FullPolls++

			if err := cc.err(); err != nil {
				return err
			}
			runtime.Gosched()
		}

		if err := cc.err(); err != nil {
			return err
		}

		res.Writes++
		offset += int64(size)

		r.bytesWritten.Add(int64(size))
	}

	return nil
}

func (r *Runner) produceWithBacklog(ctx context.Context, p *bytering.Producer, res *Result) error {
	w := backlog.NewWriter(p)

	chunk := make([]byte, r.cfg.ChunkSize)
	cc := &ctxChecker{ctx: ctx}

	fullPoll := func() {
		res.FullPolls++
		runtime.Gosched()
	}

	offset := int64(0)
	for offset < r.cfg.TotalBytes {
		if err := cc.err(); err != nil {
			return err
		}

		// Drain the backlog before producing more than it can hold.
		if w.Pending()+len(chunk) > r.cfg.BacklogSize {
			n := w.Flush()
			r.recordWrite(res, n)

			if n == 0 {
				fullPoll()
			}
			continue
		}

		size := int(min(int64(len(chunk)), r.cfg.TotalBytes-offset))
		fillPattern(chunk[:size], offset)

		// Write flushes the backlog first, so count everything that left it.
		pendingBefore := w.Pending()
		w.Write(chunk[:size])
		r.recordWrite(res, pendingBefore+size-w.Pending())

		offset += int64(size)
	}

	for w.Pending() > 0 {
		if err := cc.err(); err != nil {
			return err
		}

		n := w.Flush()
		r.recordWrite(res, n)

		if n == 0 {
			fullPoll()
		}
	}

	return nil
}

func (r *Runner) recordWrite(res *Result, n int) {
	if n == 0 {
		return
	}

	res.Writes++
	r.bytesWritten.Add(int64(n))
}

func (r *Runner) consume(ctx context.Context, c *bytering.Consumer, res *Result) error {
	buf := make([]byte, r.cfg.ChunkSize)
	cc := &ctxChecker{ctx: ctx}

	for offset := int64(0); offset < r.cfg.TotalBytes; {
		if err := cc.err(); err != nil {
			return err
		}

		size := int(min(int64(len(buf)), r.cfg.TotalBytes-offset))

		n := c.Read(buf[:size], r.cfg.Mode)
		if n == 0 {
			res.EmptyPolls++
			runtime.Gosched()
			continue
		}

		if err := verifyPattern(buf[:n], offset); err != nil {
			return err
		}

		res.Reads++
		offset += int64(n)

		r.bytesRead.Add(int64(n))
		r.stats.IncrementTransferCount()
		r.stats.IncrementByteCountBy(n)
	}

	return nil
}

// patternByte is the byte expected at offset of the stream. 251 is prime,
// so a byte landing at the wrong ring offset breaks the pattern.
func patternByte(offset int64) byte {
	return byte(offset % 251)
}

func fillPattern(buf []byte, offset int64) {
	for i := range buf {
		buf[i] = patternByte(offset + int64(i))
	}
}

func verifyPattern(buf []byte, offset int64) error {
	for i, b := range buf {
		if want := patternByte(offset + int64(i)); b != want {
			return fmt.Errorf("%w: offset %d: got 0x%02x, want 0x%02x", ErrCorrupted, offset+int64(i), b, want)
		}
	}
	return nil
}
