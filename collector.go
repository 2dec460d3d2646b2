package testspan

import (
	"sync"
	"sync/atomic"
)

// Collector buffers closed spans reported by a sink, in close order.
// Safe for concurrent use by multiple goroutines.
type Collector struct {
	sink         *Sink
	spans        []ClosedSpan
	droppedCount atomic.Int64
	handler      uint64
	capacity     int
	mu           sync.Mutex
	closed       bool
}

// NewCollector subscribes a collector to sink's span closes. Once capacity
// spans are buffered further closes are dropped and counted; zero or less
// means unbounded.
func NewCollector(sink *Sink, capacity int) *Collector {
	c := &Collector{
		sink:     sink,
		capacity: capacity,
		spans:    make([]ClosedSpan, 0, 8),
	}
	c.handler = sink.OnSpanClose(c.collect)
	return c
}

func (c *Collector) collect(span ClosedSpan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || (c.capacity > 0 && len(c.spans) >= c.capacity) {
		c.droppedCount.Add(1)
		return
	}
	c.spans = append(c.spans, span)
}

// Export returns the buffered spans and clears the buffer.
func (c *Collector) Export() []ClosedSpan {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.spans) == 0 {
		return nil
	}

	result := make([]ClosedSpan, len(c.spans))
	copy(result, c.spans)

	// Shrink only when very oversized.
	if cap(c.spans) > 256 && len(c.spans) < cap(c.spans)/8 {
		c.spans = make([]ClosedSpan, 0, cap(c.spans)/4)
	} else {
		c.spans = c.spans[:0]
	}
	return result
}

// Count returns the number of buffered spans.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spans)
}

// DroppedCount returns how many closes were dropped for lack of capacity or
// after Close.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// Reset clears the buffer and the drop counter.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spans = c.spans[:0]
	c.droppedCount.Store(0)
}

// Close unsubscribes from the sink. Buffered spans stay exportable.
func (c *Collector) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.sink.RemoveHandler(c.handler)
}
