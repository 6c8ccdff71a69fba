package bytering

// maxCapacity is the largest power of two representable as a uint32.
const maxCapacity = 1 << 31

// roundToPowerOf2 returns the smallest power of two greater than or equal
// to value. Zero rounds to 1.
func roundToPowerOf2(value uint32) uint32 {
	if value == 0 {
		return 1
	}

	value--
	value |= value >> 1
	value |= value >> 2
	value |= value >> 4
	value |= value >> 8
	value |= value >> 16
	value++

	return value
}

// CapacityFor returns the capacity [New] allocates for the requested size.
// It panics with [ErrCapacityTooLarge] if size is greater than 2^31.
func CapacityFor(size uint32) int {
	if size > maxCapacity {
		panic(ErrCapacityTooLarge)
	}

	return int(roundToPowerOf2(size))
}
