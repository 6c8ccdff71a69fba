// Package bytering implements a fixed-capacity circular byte buffer shared by
// exactly one producer and one consumer goroutine.
//
// Coordination relies only on atomic loads and stores of two sequence
// counters: the producer publishes the number of bytes written, the consumer
// publishes the number of bytes read. Neither side ever blocks.
package bytering

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

var (
	// ErrCapacityTooLarge is the panic value of [New] when the requested
	// size cannot be rounded to a power of two that fits in a uint32.
	ErrCapacityTooLarge = errors.New("ring buffer: capacity exceeds 2^31 bytes")

	// ErrAlreadySplit is the panic value of [Ring.Split] when the producer
	// and consumer handles were already handed out.
	ErrAlreadySplit = errors.New("ring buffer: producer and consumer already handed out")
)

// Mode selects how a transfer behaves when the ring cannot satisfy the
// whole request.
type Mode uint8

const (
	// AllOrNothing moves the whole requested length or nothing at all.
	AllOrNothing Mode = iota
	// Partial moves as many bytes as currently possible.
	Partial
)

func (m Mode) String() string {
	switch m {
	case AllOrNothing:
		return "all-or-nothing"
	case Partial:
		return "partial"
	default:
		return "unknown"
	}
}

// Ring is the shared state behind a [Producer] and a [Consumer].
type Ring struct {
	// writeSeq counts the bytes produced so far. Stored by the producer only.
	writeSeq atomic.Uint32

	_ cpu.CacheLinePad

	// readSeq counts the bytes consumed so far. Stored by the consumer only.
	readSeq atomic.Uint32

	_ cpu.CacheLinePad

	capacity uint32
	capMask  uint32

	isSplit atomic.Bool

	storage []byte
}

// New returns a [Ring] whose capacity is size rounded up to the next power
// of two. A size of 0 yields a capacity of 1.
//
// It panics with [ErrCapacityTooLarge] if size is greater than 2^31.
func New(size uint32) *Ring {
	capacity := uint32(CapacityFor(size))

	return &Ring{
		capacity: capacity,
		capMask:  capacity - 1,

		storage: make([]byte, capacity),
	}
}

// Split returns the producer and consumer handles of the ring.
// It can be called only once; further calls panic with [ErrAlreadySplit].
func (r *Ring) Split() (*Producer, *Consumer) {
	if !r.isSplit.CompareAndSwap(false, true) {
		panic(ErrAlreadySplit)
	}

	return &Producer{r: r}, &Consumer{r: r}
}

// Free releases the storage of the ring. The caller must make sure that
// neither the producer nor the consumer is in the middle of a transfer.
// Transfers attempted after Free move no bytes.
func (r *Ring) Free() {
	r.storage = nil
}

// Cap returns the capacity of the ring in bytes.
func (r *Ring) Cap() int {
	return int(r.capacity)
}

// Len returns the number of bytes currently buffered. The value is a
// snapshot and may be stale as soon as it is returned.
func (r *Ring) Len() int {
	return int(r.used())
}

func (r *Ring) used() uint32 {
	// Loading readSeq first keeps the difference from going negative.
	readSeq := r.readSeq.Load()
	writeSeq := r.writeSeq.Load()

	used := writeSeq - readSeq
	if used > r.capacity {
		return r.capacity
	}

	return used
}

// State is a snapshot of the ring counters used for diagnostics.
type State struct {
	Capacity uint32
	ReadSeq  uint32
	WriteSeq uint32
	Used     uint32
}

// State returns a snapshot of the ring counters.
func (r *Ring) State() State {
	readSeq := r.readSeq.Load()
	writeSeq := r.writeSeq.Load()

	return State{
		Capacity: r.capacity,
		ReadSeq:  readSeq,
		WriteSeq: writeSeq,
		Used:     writeSeq - readSeq,
	}
}

func (r *Ring) isFreed() bool {
	return r.storage == nil
}

// copyIn copies n bytes of src into the storage starting at sequence seq.
func (r *Ring) copyIn(seq uint32, src []byte, n uint32) {
	offset := seq & r.capMask
	tailLen := min(n, r.capacity-offset)

	copy(r.storage[offset:offset+tailLen], src[:tailLen])
	copy(r.storage[:n-tailLen], src[tailLen:n])
}

// copyOut copies n bytes of the storage starting at sequence seq into dst.
func (r *Ring) copyOut(seq uint32, dst []byte, n uint32) {
	offset := seq & r.capMask
	tailLen := min(n, r.capacity-offset)

	copy(dst[:tailLen], r.storage[offset:offset+tailLen])
	copy(dst[tailLen:n], r.storage[:n-tailLen])
}

// transferLen returns how many of the requested bytes can be moved when
// only avail bytes are ready.
func transferLen(requested int, avail uint32, mode Mode) uint32 {
	if uint64(requested) <= uint64(avail) {
		return uint32(requested)
	}

	if mode == AllOrNothing {
		return 0
	}

	return avail
}
