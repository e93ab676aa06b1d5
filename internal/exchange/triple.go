// Package exchange hands values from one producer goroutine to one
// consumer goroutine without locks.
package exchange

import "sync/atomic"

const (
	indexMask = 0x3
	dirtyBit  = 0x4
)

// TripleBuffer is a wait-free single-producer single-consumer slot. The
// producer always owns one buffer, the consumer another, and the third
// sits in the shared state word together with a flag saying whether it
// holds a value the consumer has not seen yet. Neither side blocks or
// allocates, and a consumer only ever observes a value the producer
// finished writing.
type TripleBuffer[T any] struct {
	bufs     [3]T
	shared   atomic.Uint32 // index of the middle buffer | dirtyBit
	writeIdx int           // producer only
	readIdx  int           // consumer only
}

// NewTripleBuffer returns a buffer whose consumer side starts at initial.
func NewTripleBuffer[T any](initial T) *TripleBuffer[T] {
	tb := &TripleBuffer[T]{writeIdx: 0, readIdx: 2}
	tb.bufs[0], tb.bufs[1], tb.bufs[2] = initial, initial, initial
	tb.shared.Store(1)
	return tb
}

// Publish stores v and makes it the newest value. Only the producer
// goroutine may call it. A value not yet fetched is overwritten.
func (tb *TripleBuffer[T]) Publish(v T) {
	tb.bufs[tb.writeIdx] = v
	prev := tb.shared.Swap(uint32(tb.writeIdx) | dirtyBit)
	tb.writeIdx = int(prev & indexMask)
}

// Fetch copies the newest published value into dst and reports true when
// there was one the consumer had not seen. Otherwise dst is untouched.
// Only the consumer goroutine may call it.
func (tb *TripleBuffer[T]) Fetch(dst *T) bool {
	if tb.shared.Load()&dirtyBit == 0 {
		return false
	}
	prev := tb.shared.Swap(uint32(tb.readIdx))
	tb.readIdx = int(prev & indexMask)
	*dst = tb.bufs[tb.readIdx]
	return true
}

// Pending reports whether a published value is waiting for the consumer.
func (tb *TripleBuffer[T]) Pending() bool {
	return tb.shared.Load()&dirtyBit != 0
}
