// Package persist owns the versioned app-storage envelope that keeps
// cart items, the cart-visibility flag and bookmarks across sessions.
package persist

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by a backend when a value exceeds the
// configured storage budget. The adapter reacts by truncating
// bookmarks and retrying once.
var ErrQuotaExceeded = errors.New("persist: quota exceeded")

// Backend is a minimal key/value surface. GetItem reports ok=false
// for missing keys instead of an error.
type Backend interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}
