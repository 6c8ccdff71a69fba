package bytering

// Producer is the writing side of a [Ring].
// It must be used by a single goroutine.
type Producer struct {
	r *Ring

	// writeSeq is the producer's own copy of the published counter.
	writeSeq uint32
}

// Write copies bytes from src into the ring and returns how many were copied.
//
// With [AllOrNothing] it copies either len(src) bytes or none. With [Partial]
// it copies as many bytes as there is free space for. A return value of 0
// means the ring is full and the caller should try again later.
func (p *Producer) Write(src []byte, mode Mode) int {
	r := p.r
	if r.isFreed() {
		return 0
	}

	writeSeq := p.writeSeq

	// The acquire load makes every byte the consumer released visible as free.
	readSeq := r.readSeq.Load()
	emptyLen := r.capacity - (writeSeq - readSeq)

	n := transferLen(len(src), emptyLen, mode)
	if n == 0 {
		return 0
	}

	r.copyIn(writeSeq, src, n)

	// The release store publishes the copied bytes before the new counter.
	p.writeSeq = writeSeq + n
	r.writeSeq.Store(p.writeSeq)

	return int(n)
}

// Space returns the number of bytes that can be written without blocking.
func (p *Producer) Space() int {
	return int(p.r.capacity - (p.writeSeq - p.r.readSeq.Load()))
}

// Cap returns the capacity of the underlying ring.
func (p *Producer) Cap() int {
	return p.r.Cap()
}

// Consumer is the reading side of a [Ring].
// It must be used by a single goroutine.
type Consumer struct {
	r *Ring

	// readSeq is the consumer's own copy of the published counter.
	readSeq uint32
}

// Read copies bytes from the ring into dst and returns how many were copied.
//
// With [AllOrNothing] it copies either len(dst) bytes or none. With [Partial]
// it copies as many bytes as are buffered. A return value of 0 means the ring
// is empty and the caller should try again later.
func (c *Consumer) Read(dst []byte, mode Mode) int {
	r := c.r
	if r.isFreed() {
		return 0
	}

	readSeq := c.readSeq

	// The acquire load makes every byte the producer published visible.
	writeSeq := r.writeSeq.Load()
	validLen := writeSeq - readSeq

	n := transferLen(len(dst), validLen, mode)
	if n == 0 {
		return 0
	}

	r.copyOut(readSeq, dst, n)

	// The release store hands the region back only after the copy is done.
	c.readSeq = readSeq + n
	r.readSeq.Store(c.readSeq)

	return int(n)
}

// Available returns the number of bytes that can be read without blocking.
func (c *Consumer) Available() int {
	return int(c.r.writeSeq.Load() - c.readSeq)
}

// Cap returns the capacity of the underlying ring.
func (c *Consumer) Cap() int {
	return c.r.Cap()
}
