package store

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsFetch(t *testing.T) {
	w := &PageWindow{UserSize: 12, BackendSize: 48}
	assert.True(t, w.NeedsFetch(1), "nothing fetched yet")

	w.Fetched = true
	w.CacheStart = 0
	w.CacheEnd = 47
	w.Total = 100

	assert.False(t, w.NeedsFetch(1))
	assert.False(t, w.NeedsFetch(4), "page 4 ends at index 47, still covered")
	assert.True(t, w.NeedsFetch(5), "page 5 starts at index 48")
}

func TestNeedsFetchClampsToTotal(t *testing.T) {
	w := &PageWindow{
		UserSize:    12,
		BackendSize: 48,
		Fetched:     true,
		CacheStart:  48,
		CacheEnd:    95,
		Total:       90,
	}

	// Page 8 spans indices 84..95, clamped to 84..89: covered.
	assert.False(t, w.NeedsFetch(8))
	// Page 9 starts past the total; nothing left to fetch.
	assert.False(t, w.NeedsFetch(9))
	// Page 2 spans 12..23, before the cache window.
	assert.True(t, w.NeedsFetch(2))
}

// countingLoader backs pagination tests through the products target.
func newPaginationStore(t *testing.T, totalProducts int) (*Store, *int64) {
	t.Helper()
	var calls int64
	products := make([]apiProduct, 0, totalProducts)

	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		writeEnvelope(w, map[string]interface{}{
			"products": products,
			"total":    totalProducts,
		})
	})

	st, _ := newTestStore(t, mux)
	return st, &calls
}

func TestSetPageFetchesOnlyUncoveredBatches(t *testing.T) {
	st, calls := newPaginationStore(t, 200)
	ctx := context.Background()

	require.NoError(t, st.SetPage(ctx, PageProducts, 1))
	assert.EqualValues(t, 1, atomic.LoadInt64(calls))

	// Pages 2..4 sit inside the first backend batch of 48.
	for page := 2; page <= 4; page++ {
		require.NoError(t, st.SetPage(ctx, PageProducts, page))
	}
	assert.EqualValues(t, 1, atomic.LoadInt64(calls))

	window, ok := st.Page(PageProducts)
	require.True(t, ok)
	assert.Equal(t, 4, window.UserPage)
	assert.Equal(t, 1, window.BackendPage)
	assert.Equal(t, 0, window.CacheStart)
	assert.Equal(t, 47, window.CacheEnd)
	assert.Equal(t, 200, window.Total)

	// Page 5 starts at index 48: second backend batch.
	require.NoError(t, st.SetPage(ctx, PageProducts, 5))
	assert.EqualValues(t, 2, atomic.LoadInt64(calls))

	window, _ = st.Page(PageProducts)
	assert.Equal(t, 2, window.BackendPage)
	assert.Equal(t, 48, window.CacheStart)
	assert.Equal(t, 95, window.CacheEnd)
}

func TestSetSizeResetsToFirstPage(t *testing.T) {
	st, calls := newPaginationStore(t, 200)
	ctx := context.Background()

	require.NoError(t, st.SetPage(ctx, PageProducts, 2))
	require.NoError(t, st.SetSize(PageProducts, 24))

	window, ok := st.Page(PageProducts)
	require.True(t, ok)
	assert.Equal(t, 24, window.UserSize)
	assert.Equal(t, 1, window.UserPage)

	// The cache window survives the size change; page 1 at the larger
	// size is still covered by the first batch.
	require.NoError(t, st.SetPage(ctx, PageProducts, 1))
	assert.EqualValues(t, 1, atomic.LoadInt64(calls))

	// Page 3 at size 24 spans 48..71: outside the first batch.
	require.NoError(t, st.SetPage(ctx, PageProducts, 3))
	assert.EqualValues(t, 2, atomic.LoadInt64(calls))
}

func TestSetPageRejectsBadInput(t *testing.T) {
	st, _ := newTestStore(t, nil)
	ctx := context.Background()

	assert.Error(t, st.SetPage(ctx, PageProducts, 0))
	assert.Error(t, st.SetPage(ctx, PageTarget("reviews"), 1))
	assert.Error(t, st.SetSize(PageProducts, 0))
	assert.Error(t, st.SetSize(PageTarget("reviews"), 12))
}

func TestPageUnknownTarget(t *testing.T) {
	st, _ := newTestStore(t, nil)
	_, ok := st.Page(PageTarget("reviews"))
	assert.False(t, ok)
}
