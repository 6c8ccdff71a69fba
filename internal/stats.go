package internal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats logs the number of transfers and bytes moved per interval.
type Stats struct {
	l *Logger

	interval time.Duration

	transferCount atomic.Uint64
	byteCount     atomic.Uint64
}

func NewStats(l *Logger, interval time.Duration) *Stats {
	if interval <= 0 {
		interval = time.Second
	}

	return &Stats{
		l: l,

		interval: interval,
	}
}

func (s *Stats) RunStats(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			transferCount := s.transferCount.Swap(0)
			byteCount := s.byteCount.Swap(0)

			if transferCount == 0 && byteCount == 0 {
				continue
			}

			perSec := float64(byteCount) / s.interval.Seconds()
			s.l.Info("stats",
				"transfers", transferCount,
				"bytes", humanize.IBytes(byteCount),
				"throughput", humanize.IBytes(uint64(perSec))+"/s",
			)
		}
	}
}

func (s *Stats) IncrementTransferCount() {
	s.transferCount.Add(1)
}

func (s *Stats) IncrementByteCountBy(n int) {
	s.byteCount.Add(uint64(n))
}
