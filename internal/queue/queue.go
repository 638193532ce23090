// Package queue buffers catalogue rows between database writes.
package queue

import "sync"

// Batch collects items until Take empties it. Add reports when the batch
// has reached its limit so the caller can write it out before it grows
// further. A limit of zero never reports full.
type Batch[T any] struct {
	mu    sync.Mutex
	limit int
	items []T
}

// NewBatch returns an empty batch that fills at limit items.
func NewBatch[T any](limit int) *Batch[T] {
	return &Batch[T]{limit: limit, items: make([]T, 0, max(limit, 0))}
}

// Add appends item and reports whether the batch is now full.
func (b *Batch[T]) Add(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, item)
	return b.limit > 0 && len(b.items) >= b.limit
}

func (b *Batch[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Take returns the collected items and leaves the batch empty. The returned
// slice is never reused by later adds.
func (b *Batch[T]) Take() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = make([]T, 0, max(b.limit, 0))
	return out
}
