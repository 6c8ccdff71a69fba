// Package backlog queues the bytes a ring cannot accept yet, so that a
// producer never has to block or drop data when the consumer falls behind.
package backlog

import (
	"github.com/eapache/queue"
	"github.com/squadracorsepolito/bytering"
)

type chunk struct {
	data []byte
}

// Writer wraps a [bytering.Producer] with an unbounded FIFO of pending chunks.
// Like the producer it wraps, it must be used by a single goroutine.
type Writer struct {
	p *bytering.Producer

	pending      *queue.Queue
	pendingBytes int
}

func NewWriter(p *bytering.Producer) *Writer {
	return &Writer{
		p: p,

		pending: queue.New(),
	}
}

// Write flushes the pending chunks and then writes src into the ring.
// The part of src that does not fit is copied to the backlog.
// It returns the number of bytes of src that reached the ring.
func (w *Writer) Write(src []byte) int {
	w.Flush()

	n := 0
	if w.pending.Length() == 0 {
		n = w.p.Write(src, bytering.Partial)
	}

	if n < len(src) {
		w.push(src[n:])
	}

	return n
}

func (w *Writer) push(data []byte) {
	w.pending.Add(&chunk{data: append([]byte(nil), data...)})
	w.pendingBytes += len(data)
}

// Flush moves as many pending bytes as possible into the ring and
// returns how many were moved.
func (w *Writer) Flush() int {
	flushed := 0

	for w.pending.Length() > 0 {
		head := w.pending.Peek().(*chunk)

		n := w.p.Write(head.data, bytering.Partial)
		flushed += n
		w.pendingBytes -= n

		if n < len(head.data) {
			// The ring is full, keep the rest at the front.
			head.data = head.data[n:]
			break
		}

		w.pending.Remove()
	}

	return flushed
}

// Pending returns the number of bytes waiting in the backlog.
func (w *Writer) Pending() int {
	return w.pendingBytes
}

// PendingChunks returns the number of chunks waiting in the backlog.
func (w *Writer) PendingChunks() int {
	return w.pending.Length()
}
