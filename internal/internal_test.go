package internal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mux sync.Mutex
	buf bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.mux.Lock()
	defer sb.mux.Unlock()
	return sb.buf.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.mux.Lock()
	defer sb.mux.Unlock()
	return sb.buf.String()
}

func Test_Logger(t *testing.T) {
	assert := assert.New(t)

	out := &syncBuffer{}
	l := NewLoggerTo(out, "bench", "ring")

	l.Info("started", "capacity", 16)
	l.Error("failed", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(lines, 2)

	assert.Contains(lines[0], "started")
	assert.Contains(lines[0], "kind=bench")
	assert.Contains(lines[0], "name=ring")
	assert.Contains(lines[0], "capacity=16")

	assert.Contains(lines[1], "failed")
	assert.Contains(lines[1], "boom")
}

func Test_Stats(t *testing.T) {
	assert := assert.New(t)

	out := &syncBuffer{}
	s := NewStats(NewLoggerTo(out, "bench", "ring"), 10*time.Millisecond)

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	done := make(chan struct{})
	go func() {
		s.RunStats(ctx)
		close(done)
	}()

	s.IncrementTransferCount()
	s.IncrementByteCountBy(2048)

	assert.Eventually(func() bool {
		return strings.Contains(out.String(), "2.0 KiB")
	}, time.Second, 5*time.Millisecond, out.String())

	cancelCtx()
	<-done
}

func Test_Telemetry_NoopProviders(t *testing.T) {
	tel := NewTelemetryWithLogger("bench", "test", NewLoggerTo(&syncBuffer{}, "bench", "test"))

	tel.NewCounter("bytes", func() int64 { return 1 })
	tel.NewGauge("resident", func() int64 { return 0 })

	_, span := tel.NewTrace(context.Background(), "test span")
	span.End()
}
