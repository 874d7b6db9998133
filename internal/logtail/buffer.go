package logtail

import "github.com/forgehq/forge/internal/usage"

// Buffer is a fixed-capacity FIFO ring of usage.ApiCall entries for a single
// worker's log. Pushing past capacity evicts the oldest entry and increments
// DroppedCount; TotalAdded counts every push regardless of eviction.
type Buffer struct {
	capacity     int
	entries      []usage.ApiCall
	totalAdded   int
	droppedCount int
}

// NewBuffer creates a Buffer holding at most capacity entries.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{capacity: capacity, entries: make([]usage.ApiCall, 0, capacity)}
}

// Push appends call, evicting the oldest entry if the buffer is full.
func (b *Buffer) Push(call usage.ApiCall) {
	b.totalAdded++
	if len(b.entries) >= b.capacity {
		b.entries = append(b.entries[1:], call)
		b.droppedCount++
		return
	}
	b.entries = append(b.entries, call)
}

// Entries returns the buffer's current contents, oldest first.
func (b *Buffer) Entries() []usage.ApiCall {
	out := make([]usage.ApiCall, len(b.entries))
	copy(out, b.entries)
	return out
}

// TotalAdded is the lifetime count of Push calls, including evicted entries.
func (b *Buffer) TotalAdded() int { return b.totalAdded }

// DroppedCount is the number of entries evicted to stay within capacity.
func (b *Buffer) DroppedCount() int { return b.droppedCount }

// Aggregate merges entries pushed from any number of per-worker tailers
// into one capacity-bounded FIFO, same eviction semantics as Buffer.
type Aggregate struct {
	*Buffer
}

// NewAggregate creates an Aggregate ring of the given capacity.
func NewAggregate(capacity int) *Aggregate {
	return &Aggregate{Buffer: NewBuffer(capacity)}
}
