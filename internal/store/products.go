package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/util"
)

type productState struct {
	items         []models.Product
	status        LoadStatus
	total         int
	err           string
	navSearch     string
	searchResults []models.Product
}

// apiProduct is the raw backend record. Optional fields are pointers
// because the backend schema is allowed to omit them.
type apiProduct struct {
	ID          string           `json:"_id"`
	Name        string           `json:"name"`
	Price       float64          `json:"price"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Status      string           `json:"status"`
	TotalNumber *int             `json:"totalNumber"`
	Rating      *float64         `json:"rating"`
	Variants    []models.Variant `json:"variants"`
	SEO         *models.SEO      `json:"seo"`
	CreatedAt   string           `json:"createdAt"`
}

type productsPayload struct {
	Products []apiProduct `json:"products"`
	Total    int          `json:"total"`
}

// Products returns a copy of the cached catalog.
func (s *Store) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Product(nil), s.products.items...)
}

// ProductsTotal returns the backend-reported catalog size.
func (s *Store) ProductsTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products.total
}

// LoadStoreProducts fetches the catalog page. It no-ops when products
// are already loaded, unless force is set.
func (s *Store) LoadStoreProducts(ctx context.Context, force bool, page int) error {
	ctx, span := util.StartSpan(ctx, "Store.LoadStoreProducts")
	defer span.End()

	s.mu.Lock()
	switch s.products.status {
	case StatusLoading:
		s.mu.Unlock()
		return nil
	case StatusSuccess:
		if !force {
			s.mu.Unlock()
			util.StoreCacheHits.WithLabelValues("products").Inc()
			return nil
		}
	}
	s.products.status = StatusLoading
	s.mu.Unlock()

	util.StoreCacheMisses.WithLabelValues("products").Inc()
	if page <= 0 {
		page = 1
	}
	_, err := s.loadProductsPage(ctx, page, s.cfg.BackendPageSize)
	return err
}

// loadProductsPage is the backend fetch shared by LoadStoreProducts
// and the products pagination window.
func (s *Store) loadProductsPage(ctx context.Context, page, size int) (int, error) {
	path := fmt.Sprintf("/products?page=%d&limit=%d", page, size)
	var payload productsPayload
	err := s.api.Get(ctx, path, &payload, apiclient.Options{})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.products.status = StatusError
		s.products.err = err.Error()
		return 0, fmt.Errorf("failed to load products: %w", err)
	}

	items := make([]models.Product, 0, len(payload.Products))
	for _, raw := range payload.Products {
		items = append(items, normalizeProduct(raw))
	}
	s.products.items = items
	s.products.total = payload.Total
	s.products.status = StatusSuccess
	s.products.err = ""
	s.refreshNavSearchLocked()
	return payload.Total, nil
}

// normalizeProduct maps a raw record into the internal shape,
// defaulting the optional fields the backend may omit.
func normalizeProduct(raw apiProduct) models.Product {
	p := models.Product{
		ID:          raw.ID,
		Name:        raw.Name,
		Price:       raw.Price,
		Description: raw.Description,
		Category:    raw.Category,
		Status:      raw.Status,
		Variants:    raw.Variants,
	}
	if p.Status == "" {
		p.Status = models.ProductStatusDraft
	}
	if p.Variants == nil {
		p.Variants = []models.Variant{}
	}
	if raw.Rating != nil {
		p.Rating = *raw.Rating
	}
	if raw.SEO != nil {
		p.SEO = *raw.SEO
	}
	if raw.TotalNumber != nil {
		p.TotalNumber = *raw.TotalNumber
	} else {
		for _, v := range p.Variants {
			p.TotalNumber += v.Stock
		}
	}
	if raw.CreatedAt != "" {
		if t, err := parseBackendTime(raw.CreatedAt); err == nil {
			p.CreatedAt = t
		}
	}
	return p
}

// parseBackendTime accepts the two timestamp shapes the backend emits.
func parseBackendTime(s string) (t time.Time, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// OrderProductView is the display-ready resolution of an order line
// against the current catalog.
type OrderProductView struct {
	Product   models.Product `json:"product"`
	Variant   models.Variant `json:"variant"`
	Size      string         `json:"size"`
	Quantity  int            `json:"quantity"`
	LineTotal float64        `json:"lineTotal"`
}

// OrderProduct resolves an order line's references against the cached
// catalog. A product, variant or size that no longer exists yields
// ok=false rather than an error, so a changed catalog degrades the
// order detail instead of failing it.
func (s *Store) OrderProduct(productID, variantID, size string, qty int) (OrderProductView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.products.items {
		p := s.products.items[i]
		if p.ID != productID {
			continue
		}
		v, ok := p.VariantByID(variantID)
		if !ok {
			return OrderProductView{}, false
		}
		for _, sz := range v.Sizes {
			if sz == size {
				return OrderProductView{
					Product:   p,
					Variant:   v,
					Size:      size,
					Quantity:  qty,
					LineTotal: p.Price * float64(qty),
				}, true
			}
		}
		return OrderProductView{}, false
	}
	return OrderProductView{}, false
}

// ProductFilter is the dashboard's client-side filter/sort input.
type ProductFilter struct {
	Status    string
	Category  string
	Query     string
	SortField string // name, price, createdAt or the synthetic "stock"
	Ascending bool
}

// ApplyFilters filters and sorts the cached catalog.
func (s *Store) ApplyFilters(f ProductFilter) []models.Product {
	products := s.Products()

	out := make([]models.Product, 0, len(products))
	query := strings.ToLower(strings.TrimSpace(f.Query))
	for _, p := range products {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, p)
	}

	less := productLess(f.SortField)
	sort.SliceStable(out, func(i, j int) bool {
		if f.Ascending {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

func productLess(field string) func(a, b models.Product) bool {
	switch field {
	case "price":
		return func(a, b models.Product) bool { return a.Price < b.Price }
	case "stock":
		// "stock" is a synthetic sort key over the aggregate count.
		return func(a, b models.Product) bool { return a.TotalNumber < b.TotalNumber }
	case "name":
		return func(a, b models.Product) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	default:
		return func(a, b models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

// SetNavSearch updates the navigation search query and recomputes the
// matching products.
func (s *Store) SetNavSearch(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products.navSearch = query
	s.refreshNavSearchLocked()
}

// NavSearch returns the current query.
func (s *Store) NavSearch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products.navSearch
}

// SearchProducts returns the products matching the nav search query.
func (s *Store) SearchProducts() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Product(nil), s.products.searchResults...)
}

func (s *Store) refreshNavSearchLocked() {
	query := strings.ToLower(strings.TrimSpace(s.products.navSearch))
	if query == "" {
		s.products.searchResults = nil
		return
	}
	results := make([]models.Product, 0)
	for _, p := range s.products.items {
		if strings.Contains(strings.ToLower(p.Name), query) {
			results = append(results, p)
		}
	}
	s.products.searchResults = results
}

// ProductForm is the multipart create/edit payload. Variants travel as
// a JSON field next to the image parts, mirroring the backend contract.
type ProductForm struct {
	Name        string
	Description string
	Category    string
	Status      string
	Price       float64
	TotalNumber int
	Variants    []models.Variant
	Images      []apiclient.FilePart
}

func (f *ProductForm) fields() (map[string]string, error) {
	variants, err := json.Marshal(f.Variants)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variants: %w", err)
	}
	return map[string]string{
		"name":        f.Name,
		"description": f.Description,
		"category":    f.Category,
		"status":      f.Status,
		"price":       strconv.FormatFloat(f.Price, 'f', 2, 64),
		"totalNumber": strconv.Itoa(f.TotalNumber),
		"variants":    string(variants),
	}, nil
}

// CreateProduct posts a new catalog entry and invalidates the cached
// catalog so the next load reflects it.
func (s *Store) CreateProduct(ctx context.Context, form ProductForm) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Store.CreateProduct")
	defer span.End()

	fields, err := form.fields()
	if err != nil {
		return models.Product{}, err
	}

	var created apiProduct
	err = s.notifier.Promise(ctx, notify.Messages{
		Loading: "Creating product...",
		Success: "Product created",
		Error:   "Could not create product",
	}, func(ctx context.Context) error {
		return s.api.PostForm(ctx, "/products", fields, form.Images, &created, apiAuth())
	})
	if err != nil {
		return models.Product{}, err
	}

	s.InvalidateProducts()
	return normalizeProduct(created), nil
}

// UpdateProduct patches an existing catalog entry.
func (s *Store) UpdateProduct(ctx context.Context, id string, form ProductForm) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Store.UpdateProduct")
	defer span.End()

	fields, err := form.fields()
	if err != nil {
		return models.Product{}, err
	}

	var updated apiProduct
	err = s.notifier.Promise(ctx, notify.Messages{
		Loading: "Saving product...",
		Success: "Product saved",
		Error:   "Could not save product",
	}, func(ctx context.Context) error {
		return s.api.PatchForm(ctx, "/products/"+id, fields, form.Images, &updated, apiAuth())
	})
	if err != nil {
		return models.Product{}, err
	}

	product := normalizeProduct(updated)
	s.mu.Lock()
	for i := range s.products.items {
		if s.products.items[i].ID == id {
			s.products.items[i] = product
			break
		}
	}
	s.refreshNavSearchLocked()
	s.mu.Unlock()
	return product, nil
}

// InvalidateProducts drops the catalog cache and resets the products
// pagination window; the next load fetches fresh.
func (s *Store) InvalidateProducts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products.items = nil
	s.products.total = 0
	s.products.status = StatusIdle
	s.products.searchResults = nil
	s.resetPageWindowLocked(PageProducts)
}
