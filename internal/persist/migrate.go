package persist

import (
	"time"

	"storefront-service/internal/models"

	"github.com/google/uuid"
)

// A migration backfills fields introduced in a later schema revision.
// Every step must be idempotent: re-applying it to already-migrated
// state changes nothing.
type migration struct {
	version int
	apply   func(*State)
}

var migrations = []migration{
	{version: 1, apply: backfillCartIdentity},
	{version: 2, apply: backfillBookmarkDefaults},
	{version: 3, apply: stripInvalidBookmarks},
}

// Migrate runs every migration step above the stored version, in order.
func Migrate(state State, fromVersion int) State {
	for _, m := range migrations {
		if fromVersion < m.version {
			m.apply(&state)
		}
	}
	return state
}

// v1: cart lines gained a composite identity (product+color+size).
func backfillCartIdentity(s *State) {
	for i := range s.CartItems {
		if s.CartItems[i].CartID == "" {
			it := s.CartItems[i]
			s.CartItems[i].CartID = models.CartItemID(it.ProductID, it.Color, it.Size)
		}
	}
}

// v2: bookmarks gained their own identity and creation timestamp.
func backfillBookmarkDefaults(s *State) {
	for i := range s.BookMarks {
		if s.BookMarks[i].BookmarkID == "" {
			s.BookMarks[i].BookmarkID = uuid.New().String()
		}
		if s.BookMarks[i].BookmarkCreatedAt == "" {
			s.BookMarks[i].BookmarkCreatedAt = time.Now().UTC().Format(time.RFC3339)
		}
	}
}

// v3: malformed bookmarks are stripped for good.
func stripInvalidBookmarks(s *State) {
	s.BookMarks = validBookmarks(s.BookMarks)
}
