package persist

import (
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateBackfillsCartIdentity(t *testing.T) {
	state := State{
		CartItems: []models.CartItem{
			{ProductID: "p1", Color: "black", Size: "m", Quantity: 1},
			{CartID: "custom-id", ProductID: "p2", Color: "red", Size: "l", Quantity: 1},
		},
	}

	out := Migrate(state, 0)
	assert.Equal(t, "p1-black-m", out.CartItems[0].CartID)
	// An existing identity is never rewritten.
	assert.Equal(t, "custom-id", out.CartItems[1].CartID)
}

func TestMigrateBackfillsBookmarkDefaults(t *testing.T) {
	state := State{
		BookMarks: []models.Bookmark{
			{ID: "p1", Name: "Hoodie", Price: 80},
		},
	}

	out := Migrate(state, 1)
	require.Len(t, out.BookMarks, 1)
	assert.NotEmpty(t, out.BookMarks[0].BookmarkID)
	assert.NotEmpty(t, out.BookMarks[0].BookmarkCreatedAt)
}

func TestMigrateStripsInvalidBookmarks(t *testing.T) {
	state := State{
		BookMarks: []models.Bookmark{
			{ID: "p1", BookmarkID: "bm-1", BookmarkCreatedAt: "2026-01-01T00:00:00Z", Name: "Hoodie", Price: 80},
			{ID: "p2", BookmarkID: "bm-2", BookmarkCreatedAt: "2026-01-01T00:00:00Z", Name: "Freebie", Price: 0},
		},
	}

	out := Migrate(state, 2)
	require.Len(t, out.BookMarks, 1)
	assert.Equal(t, "p1", out.BookMarks[0].ID)
}

func TestMigrateIsIdempotent(t *testing.T) {
	state := State{
		CartItems: []models.CartItem{
			{ProductID: "p1", Color: "black", Size: "m", Quantity: 1},
		},
		BookMarks: []models.Bookmark{
			{ID: "p1", Name: "Hoodie", Price: 80},
		},
	}

	once := Migrate(state, 0)
	twice := Migrate(once, 0)
	assert.Equal(t, once, twice)
}

func TestMigrateSkipsStepsAtCurrentVersion(t *testing.T) {
	state := State{
		BookMarks: []models.Bookmark{
			// Invalid, but the stored version says it already survived v3.
			{ID: "p1", Name: "Hoodie", Price: 0},
		},
	}

	out := Migrate(state, SchemaVersion)
	assert.Equal(t, state, out)
}
