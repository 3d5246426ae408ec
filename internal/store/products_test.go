package store

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// productsBackend serves the catalog list query, tracking request
// counts.
type productsBackend struct {
	products []apiProduct
	calls    int64
}

func (b *productsBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&b.calls, 1)
		writeEnvelope(w, map[string]interface{}{
			"products": b.products,
			"total":    len(b.products),
		})
	})
	return mux
}

func rawProduct(id, name string, price float64, createdAt string) apiProduct {
	return apiProduct{
		ID:        id,
		Name:      name,
		Price:     price,
		Status:    models.ProductStatusActive,
		Category:  "tops",
		CreatedAt: createdAt,
		Variants: []models.Variant{
			{ID: id + "-black", Color: "black", Sizes: []string{"s", "m"}, Stock: 5},
			{ID: id + "-white", Color: "white", Sizes: []string{"m"}, Stock: 3},
		},
	}
}

func TestNormalizeProductDefaults(t *testing.T) {
	raw := apiProduct{
		ID:    "p1",
		Name:  "Mystery Drop",
		Price: 120,
		Variants: []models.Variant{
			{ID: "v1", Color: "black", Stock: 4},
			{ID: "v2", Color: "white", Stock: 6},
		},
		CreatedAt: "2026-05-01",
	}

	p := normalizeProduct(raw)
	assert.Equal(t, models.ProductStatusDraft, p.Status)
	assert.Equal(t, 10, p.TotalNumber, "missing totalNumber sums variant stock")
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), p.CreatedAt)
}

func TestNormalizeProductKeepsDeclaredTotal(t *testing.T) {
	total := 99
	rating := 4.5
	raw := apiProduct{
		ID:          "p1",
		Name:        "Mystery Drop",
		TotalNumber: &total,
		Rating:      &rating,
		CreatedAt:   "2026-05-01T10:30:00Z",
	}

	p := normalizeProduct(raw)
	assert.Equal(t, 99, p.TotalNumber)
	assert.Equal(t, 4.5, p.Rating)
	assert.NotNil(t, p.Variants)
	assert.Empty(t, p.Variants)
	assert.Equal(t, 2026, p.CreatedAt.Year())
}

func TestLoadStoreProductsCachesUntilForced(t *testing.T) {
	backend := &productsBackend{
		products: []apiProduct{rawProduct("p1", "Polo Shirt", 45, "2026-01-01T00:00:00Z")},
	}
	st, _ := newTestStore(t, backend.handler())
	ctx := context.Background()

	require.NoError(t, st.LoadStoreProducts(ctx, false, 1))
	require.NoError(t, st.LoadStoreProducts(ctx, false, 1))
	assert.EqualValues(t, 1, atomic.LoadInt64(&backend.calls))

	require.NoError(t, st.LoadStoreProducts(ctx, true, 1))
	assert.EqualValues(t, 2, atomic.LoadInt64(&backend.calls))

	assert.Len(t, st.Products(), 1)
	assert.Equal(t, 1, st.ProductsTotal())
}

func TestLoadStoreProductsRecordsError(t *testing.T) {
	st, _ := newTestStore(t, nil)
	err := st.LoadStoreProducts(context.Background(), false, 1)
	assert.Error(t, err)
}

func TestApplyFilters(t *testing.T) {
	backend := &productsBackend{
		products: []apiProduct{
			rawProduct("p1", "Polo Shirt", 45, "2026-01-01T00:00:00Z"),
			rawProduct("p2", "Cargo Pants", 80, "2026-02-01T00:00:00Z"),
			rawProduct("p3", "Graphic Tee", 30, "2026-03-01T00:00:00Z"),
		},
	}
	st, _ := newTestStore(t, backend.handler())
	require.NoError(t, st.LoadStoreProducts(context.Background(), false, 1))

	byQuery := st.ApplyFilters(ProductFilter{Query: "shirt"})
	require.Len(t, byQuery, 1)
	assert.Equal(t, "p1", byQuery[0].ID)

	byPriceAsc := st.ApplyFilters(ProductFilter{SortField: "price", Ascending: true})
	require.Len(t, byPriceAsc, 3)
	assert.Equal(t, "p3", byPriceAsc[0].ID)
	assert.Equal(t, "p2", byPriceAsc[2].ID)

	byNewest := st.ApplyFilters(ProductFilter{})
	assert.Equal(t, "p3", byNewest[0].ID, "default sort is newest first")

	byCategory := st.ApplyFilters(ProductFilter{Category: "outerwear"})
	assert.Empty(t, byCategory)
}

func TestNavSearch(t *testing.T) {
	backend := &productsBackend{
		products: []apiProduct{
			rawProduct("p1", "Polo Shirt", 45, "2026-01-01T00:00:00Z"),
			rawProduct("p2", "Cargo Pants", 80, "2026-02-01T00:00:00Z"),
		},
	}
	st, _ := newTestStore(t, backend.handler())
	require.NoError(t, st.LoadStoreProducts(context.Background(), false, 1))

	st.SetNavSearch("shirt")
	results := st.SearchProducts()
	require.Len(t, results, 1)
	assert.Equal(t, "Polo Shirt", results[0].Name)

	st.SetNavSearch("")
	assert.Empty(t, st.SearchProducts())
}

func TestOrderProductResolvesAgainstCatalog(t *testing.T) {
	backend := &productsBackend{
		products: []apiProduct{rawProduct("p1", "Polo Shirt", 45, "2026-01-01T00:00:00Z")},
	}
	st, _ := newTestStore(t, backend.handler())
	require.NoError(t, st.LoadStoreProducts(context.Background(), false, 1))

	view, ok := st.OrderProduct("p1", "p1-black", "m", 3)
	require.True(t, ok)
	assert.Equal(t, "Polo Shirt", view.Product.Name)
	assert.Equal(t, "black", view.Variant.Color)
	assert.InDelta(t, 135, view.LineTotal, 0.001)
}

func TestOrderProductDegradesGracefully(t *testing.T) {
	backend := &productsBackend{
		products: []apiProduct{rawProduct("p1", "Polo Shirt", 45, "2026-01-01T00:00:00Z")},
	}
	st, _ := newTestStore(t, backend.handler())
	require.NoError(t, st.LoadStoreProducts(context.Background(), false, 1))

	_, ok := st.OrderProduct("deleted-product", "v1", "m", 1)
	assert.False(t, ok)

	_, ok = st.OrderProduct("p1", "deleted-variant", "m", 1)
	assert.False(t, ok)

	_, ok = st.OrderProduct("p1", "p1-white", "xl", 1)
	assert.False(t, ok, "size no longer offered by the variant")
}

func TestInvalidateProductsResetsCacheAndWindow(t *testing.T) {
	backend := &productsBackend{
		products: []apiProduct{rawProduct("p1", "Polo Shirt", 45, "2026-01-01T00:00:00Z")},
	}
	st, _ := newTestStore(t, backend.handler())
	ctx := context.Background()

	require.NoError(t, st.LoadStoreProducts(ctx, false, 1))
	require.NoError(t, st.SetPage(ctx, PageProducts, 1))

	st.InvalidateProducts()
	assert.Empty(t, st.Products())

	window, ok := st.Page(PageProducts)
	require.True(t, ok)
	assert.False(t, window.Fetched)

	// The next non-forced load fetches again.
	require.NoError(t, st.LoadStoreProducts(ctx, false, 1))
	assert.Len(t, st.Products(), 1)
}

func TestProductFormFields(t *testing.T) {
	form := ProductForm{
		Name:     "Polo Shirt",
		Price:    45.5,
		Variants: []models.Variant{{ID: "v1", Color: "black"}},
	}

	fields, err := form.fields()
	require.NoError(t, err)
	assert.Equal(t, "45.50", fields["price"])

	var variants []models.Variant
	require.NoError(t, json.Unmarshal([]byte(fields["variants"]), &variants))
	require.Len(t, variants, 1)
	assert.Equal(t, "black", variants[0].Color)
}
