package persist

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process Backend used for tests and for
// running without external storage.
type MemoryBackend struct {
	mu       sync.Mutex
	items    map[string]string
	maxBytes int
}

// NewMemoryBackend creates an empty in-memory backend.
// maxBytes <= 0 disables the size budget.
func NewMemoryBackend(maxBytes int) *MemoryBackend {
	return &MemoryBackend{
		items:    make(map[string]string),
		maxBytes: maxBytes,
	}
}

// GetItem retrieves a stored value.
func (b *MemoryBackend) GetItem(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	val, ok := b.items[key]
	return val, ok, nil
}

// SetItem stores a value, enforcing the size budget.
func (b *MemoryBackend) SetItem(_ context.Context, key, value string) error {
	if b.maxBytes > 0 && len(value) > b.maxBytes {
		return ErrQuotaExceeded
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[key] = value
	return nil
}

// RemoveItem deletes a stored value.
func (b *MemoryBackend) RemoveItem(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, key)
	return nil
}
