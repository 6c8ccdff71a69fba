package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/squadracorsepolito/bytering"
)

var ErrInvalidConfig = errors.New("bench: invalid config")

type Config struct {
	// Capacity is the requested ring size, rounded up to a power of two.
	Capacity uint32
	// ChunkSize is the size of every write and read request.
	ChunkSize int
	// TotalBytes is the number of bytes streamed from producer to consumer.
	TotalBytes int64
	// Mode is the transfer mode used by both sides.
	Mode bytering.Mode
	// BacklogSize bounds the bytes the producer may queue in front of the
	// ring in partial mode.
	BacklogSize int

	StatsInterval time.Duration
}

func NewDefaultConfig() *Config {
	return &Config{
		Capacity:    64 * 1024,
		ChunkSize:   4 * 1024,
		TotalBytes:  256 * 1024 * 1024,
		Mode:        bytering.Partial,
		BacklogSize: 1024 * 1024,

		StatsInterval: time.Second,
	}
}

func (c *Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	case c.TotalBytes < 0:
		return fmt.Errorf("%w: total bytes must not be negative", ErrInvalidConfig)
	case c.Capacity > 1<<31:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, bytering.ErrCapacityTooLarge)
	}

	switch c.Mode {
	case bytering.AllOrNothing:
		// A chunk larger than the ring could never be transferred.
		if capacity := bytering.CapacityFor(c.Capacity); c.ChunkSize > capacity {
			return fmt.Errorf("%w: chunk size %d exceeds ring capacity %d in %s mode",
				ErrInvalidConfig, c.ChunkSize, capacity, c.Mode)
		}
	case bytering.Partial:
		if c.BacklogSize < c.ChunkSize {
			return fmt.Errorf("%w: backlog size %d is smaller than chunk size %d",
				ErrInvalidConfig, c.BacklogSize, c.ChunkSize)
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, c.Mode)
	}

	return nil
}
