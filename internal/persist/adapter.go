package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const (
	// StorageKey is the single key holding the persisted slice of state.
	StorageKey = "app-storage"

	// SchemaVersion is the current envelope schema revision.
	SchemaVersion = 3

	// MaxBookmarks is the retention cap applied when a write exceeds
	// the storage budget.
	MaxBookmarks = 50
)

// State is the persisted slice of store state.
type State struct {
	CartItems  []models.CartItem `json:"cartItems"`
	CartInView bool              `json:"cartInView"`
	BookMarks  []models.Bookmark `json:"bookMarks"`
}

// Envelope is the on-disk shape under StorageKey.
type Envelope struct {
	State   State `json:"state"`
	Version int   `json:"version"`
}

// Adapter reads and writes the envelope through a Backend, running
// migrations and validation so downstream code never re-checks the
// bookmark/cart-item schema.
type Adapter struct {
	backend Backend
	logger  *zap.Logger
}

// NewAdapter creates an adapter over the given backend.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{
		backend: backend,
		logger:  util.GetLogger(),
	}
}

// rawEnvelope decodes bookmarks individually so one malformed entry
// can be dropped without losing the rest of the envelope.
type rawEnvelope struct {
	State struct {
		CartItems  []models.CartItem `json:"cartItems"`
		CartInView bool              `json:"cartInView"`
		BookMarks  []json.RawMessage `json:"bookMarks"`
	} `json:"state"`
	Version int `json:"version"`
}

// Load reads, migrates and validates the persisted state. A corrupted
// envelope is deleted and replaced with empty state; that recovery is
// logged, never surfaced.
func (a *Adapter) Load(ctx context.Context) (State, error) {
	raw, ok, err := a.backend.GetItem(ctx, StorageKey)
	if err != nil {
		return State{}, fmt.Errorf("failed to load persisted state: %w", err)
	}
	if !ok {
		return State{}, nil
	}

	var env rawEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		a.logger.Warn("Corrupted storage envelope, resetting",
			zap.String("key", StorageKey),
			zap.Error(err))
		util.StorageRecoveriesTotal.WithLabelValues("corrupt").Inc()
		if err := a.backend.RemoveItem(ctx, StorageKey); err != nil {
			a.logger.Warn("Failed to remove corrupted envelope", zap.Error(err))
		}
		return State{}, nil
	}

	state := State{
		CartItems:  env.State.CartItems,
		CartInView: env.State.CartInView,
	}
	for _, rb := range env.State.BookMarks {
		var b models.Bookmark
		if err := json.Unmarshal(rb, &b); err != nil {
			util.StorageRecoveriesTotal.WithLabelValues("bookmark_dropped").Inc()
			continue
		}
		state.BookMarks = append(state.BookMarks, b)
	}

	state = Migrate(state, env.Version)
	state.BookMarks = validBookmarks(state.BookMarks)
	return state, nil
}

// Save validates and writes the state. On quota exhaustion the
// bookmarks are truncated to the most-recently-created MaxBookmarks
// and the write is retried once.
func (a *Adapter) Save(ctx context.Context, state State) error {
	state.BookMarks = validBookmarks(state.BookMarks)

	buf, err := json.Marshal(Envelope{State: state, Version: SchemaVersion})
	if err != nil {
		return fmt.Errorf("failed to marshal persisted state: %w", err)
	}

	err = a.backend.SetItem(ctx, StorageKey, string(buf))
	if err == ErrQuotaExceeded {
		a.logger.Warn("Storage quota exceeded, truncating bookmarks",
			zap.Int("bookmarks", len(state.BookMarks)))
		util.StorageRecoveriesTotal.WithLabelValues("quota_truncate").Inc()

		state.BookMarks = truncateBookmarks(state.BookMarks, MaxBookmarks)
		buf, err = json.Marshal(Envelope{State: state, Version: SchemaVersion})
		if err != nil {
			return fmt.Errorf("failed to marshal truncated state: %w", err)
		}
		err = a.backend.SetItem(ctx, StorageKey, string(buf))
	}
	if err != nil {
		return fmt.Errorf("failed to save persisted state: %w", err)
	}

	util.StorageWritesTotal.Inc()
	return nil
}

// Reset removes the persisted envelope entirely.
func (a *Adapter) Reset(ctx context.Context) error {
	return a.backend.RemoveItem(ctx, StorageKey)
}

// validBookmark checks the required-field schema: string id,
// bookmarkId, bookmarkCreatedAt and name, plus a positive price.
func validBookmark(b models.Bookmark) bool {
	return b.ID != "" &&
		b.BookmarkID != "" &&
		b.BookmarkCreatedAt != "" &&
		b.Name != "" &&
		b.Price > 0
}

func validBookmarks(in []models.Bookmark) []models.Bookmark {
	out := make([]models.Bookmark, 0, len(in))
	for _, b := range in {
		if validBookmark(b) {
			out = append(out, b)
		}
	}
	return out
}

// truncateBookmarks keeps the n most-recently-created bookmarks.
// Creation timestamps are RFC3339 strings, so lexical order is
// chronological order.
func truncateBookmarks(in []models.Bookmark, n int) []models.Bookmark {
	if len(in) <= n {
		return in
	}
	out := make([]models.Bookmark, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BookmarkCreatedAt > out[j].BookmarkCreatedAt
	})
	return out[:n]
}
