package store

import (
	"context"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
)

type cartState struct {
	items     []models.CartItem
	bookmarks []models.Bookmark
	inView    bool
}

// CartTotals is the derived subtotal/count pair the checkout flow uses.
type CartTotals struct {
	Subtotal float64 `json:"subtotal"`
	Count    int     `json:"count"`
}

// CartItems returns a copy of the cart lines.
func (s *Store) CartItems() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem(nil), s.cart.items...)
}

// Bookmarks returns a copy of the saved bookmarks.
func (s *Store) Bookmarks() []models.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Bookmark(nil), s.cart.bookmarks...)
}

// CartInView reports whether the cart drawer is open.
func (s *Store) CartInView() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.inView
}

// SetCartInView flips the cart drawer flag; the flag is persisted.
func (s *Store) SetCartInView(ctx context.Context, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.inView = open
	s.persistLocked(ctx)
}

// CartTotals computes the current subtotal and item count.
func (s *Store) CartTotals() CartTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartTotalsLocked()
}

func (s *Store) cartTotalsLocked() CartTotals {
	var t CartTotals
	for _, it := range s.cart.items {
		t.Subtotal += it.Price * float64(it.Quantity)
		t.Count += it.Quantity
	}
	return t
}

// AddToCart merges the product into the cart. A line already holding
// the same (product, color) identity gains quantity instead of a
// duplicate line being appended.
func (s *Store) AddToCart(ctx context.Context, p models.Product) {
	color, size, image := resolveSelection(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeCartLineLocked(models.CartItem{
		CartID:    models.CartItemID(p.ID, color, size),
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     image,
		Color:     color,
		Size:      size,
		Quantity:  1,
	})
	util.CartMutationsTotal.WithLabelValues("add").Inc()
	s.persistLocked(ctx)
}

// mergeCartLineLocked applies the (product, color) merge rule.
func (s *Store) mergeCartLineLocked(line models.CartItem) {
	for i := range s.cart.items {
		if s.cart.items[i].ProductID == line.ProductID && s.cart.items[i].Color == line.Color {
			s.cart.items[i].Quantity += line.Quantity
			return
		}
	}
	s.cart.items = append(s.cart.items, line)
}

// RemoveFromCart drops the line with the given composite identity.
// Unknown identities are ignored.
func (s *Store) RemoveFromCart(ctx context.Context, cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart.items {
		if s.cart.items[i].CartID == cartID {
			s.cart.items = append(s.cart.items[:i], s.cart.items[i+1:]...)
			util.CartMutationsTotal.WithLabelValues("remove").Inc()
			s.persistLocked(ctx)
			return
		}
	}
}

// IncreaseQuantity bumps a line's quantity.
func (s *Store) IncreaseQuantity(ctx context.Context, cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart.items {
		if s.cart.items[i].CartID == cartID {
			s.cart.items[i].Quantity++
			util.CartMutationsTotal.WithLabelValues("increase").Inc()
			s.persistLocked(ctx)
			return
		}
	}
}

// DecreaseQuantity lowers a line's quantity, removing the line when it
// would reach zero. Quantity never goes below one on a kept line.
func (s *Store) DecreaseQuantity(ctx context.Context, cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart.items {
		if s.cart.items[i].CartID != cartID {
			continue
		}
		if s.cart.items[i].Quantity <= 1 {
			s.cart.items = append(s.cart.items[:i], s.cart.items[i+1:]...)
		} else {
			s.cart.items[i].Quantity--
		}
		util.CartMutationsTotal.WithLabelValues("decrease").Inc()
		s.persistLocked(ctx)
		return
	}
}

// UpdateSize changes a line's size, re-deriving its composite identity.
// If the new identity collides with another line the two are merged.
func (s *Store) UpdateSize(ctx context.Context, cartID, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart.items {
		if s.cart.items[i].CartID != cartID {
			continue
		}
		line := s.cart.items[i]
		line.Size = size
		line.CartID = models.CartItemID(line.ProductID, line.Color, size)
		s.cart.items = append(s.cart.items[:i], s.cart.items[i+1:]...)
		s.mergeCartLineLocked(line)
		util.CartMutationsTotal.WithLabelValues("update_size").Inc()
		s.persistLocked(ctx)
		return
	}
}

// UpdateColor updates both the cached catalog product's selection and
// the matching cart line.
func (s *Store) UpdateColor(ctx context.Context, productID, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var image string
	for i := range s.products.items {
		if s.products.items[i].ID == productID {
			s.products.items[i].SelectedColor = color
			if v, ok := s.products.items[i].VariantByColor(color); ok && len(v.Images) > 0 {
				image = v.Images[0].URL
			}
			break
		}
	}

	for i := range s.cart.items {
		if s.cart.items[i].ProductID != productID {
			continue
		}
		line := s.cart.items[i]
		line.Color = color
		line.CartID = models.CartItemID(line.ProductID, color, line.Size)
		if image != "" {
			line.Image = image
		}
		s.cart.items = append(s.cart.items[:i], s.cart.items[i+1:]...)
		s.mergeCartLineLocked(line)
		util.CartMutationsTotal.WithLabelValues("update_color").Inc()
		s.persistLocked(ctx)
		return
	}
	s.persistLocked(ctx)
}

// AddBookmark saves a product. Re-bookmarking an already saved product
// is a no-op.
func (s *Store) AddBookmark(ctx context.Context, p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.cart.bookmarks {
		if b.ID == p.ID {
			return
		}
	}
	_, _, image := resolveSelection(p)
	s.cart.bookmarks = append(s.cart.bookmarks, models.Bookmark{
		ID:                p.ID,
		BookmarkID:        uuid.New().String(),
		BookmarkCreatedAt: time.Now().UTC().Format(time.RFC3339),
		Name:              p.Name,
		Price:             p.Price,
		Image:             image,
	})
	util.CartMutationsTotal.WithLabelValues("bookmark_add").Inc()
	s.persistLocked(ctx)
}

// RemoveBookmark drops a bookmark by its own identity.
func (s *Store) RemoveBookmark(ctx context.Context, bookmarkID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart.bookmarks {
		if s.cart.bookmarks[i].BookmarkID == bookmarkID {
			s.cart.bookmarks = append(s.cart.bookmarks[:i], s.cart.bookmarks[i+1:]...)
			util.CartMutationsTotal.WithLabelValues("bookmark_remove").Inc()
			s.persistLocked(ctx)
			return
		}
	}
}

// ClearBookmarks drops every bookmark.
func (s *Store) ClearBookmarks(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cart.bookmarks) == 0 {
		return
	}
	s.cart.bookmarks = nil
	util.CartMutationsTotal.WithLabelValues("bookmarks_clear").Inc()
	s.persistLocked(ctx)
}

// AddBookmarksToCart bulk-merges the named bookmarks into the cart
// using the same merge rule as AddToCart. The bookmarks stay saved.
func (s *Store) AddBookmarksToCart(ctx context.Context, bookmarkIDs []string) {
	wanted := make(map[string]bool, len(bookmarkIDs))
	for _, id := range bookmarkIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.cart.bookmarks {
		if !wanted[b.BookmarkID] {
			continue
		}
		s.mergeCartLineLocked(s.bookmarkLineLocked(b))
	}
	util.CartMutationsTotal.WithLabelValues("bookmarks_to_cart").Inc()
	s.persistLocked(ctx)
}

// AddAllBookmarksToCart bulk-merges every bookmark into the cart.
func (s *Store) AddAllBookmarksToCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.cart.bookmarks {
		s.mergeCartLineLocked(s.bookmarkLineLocked(b))
	}
	util.CartMutationsTotal.WithLabelValues("bookmarks_to_cart").Inc()
	s.persistLocked(ctx)
}

// bookmarkLineLocked turns a bookmark into a cart line, borrowing the
// cached catalog entry for the default variant selection when present.
func (s *Store) bookmarkLineLocked(b models.Bookmark) models.CartItem {
	var color, size string
	for i := range s.products.items {
		if s.products.items[i].ID == b.ID {
			color, size, _ = resolveSelection(s.products.items[i])
			break
		}
	}
	return models.CartItem{
		CartID:    models.CartItemID(b.ID, color, size),
		ProductID: b.ID,
		Name:      b.Name,
		Price:     b.Price,
		Image:     b.Image,
		Color:     color,
		Size:      size,
		Quantity:  1,
	}
}

// resolveSelection picks the effective color/size/image for a product,
// falling back to the first variant when nothing is selected.
func resolveSelection(p models.Product) (color, size, image string) {
	color = p.SelectedColor
	size = p.SelectedSize
	if color == "" && len(p.Variants) > 0 {
		color = p.Variants[0].Color
	}
	if v, ok := p.VariantByColor(color); ok {
		if size == "" && len(v.Sizes) > 0 {
			size = v.Sizes[0]
		}
		if len(v.Images) > 0 {
			image = v.Images[0].URL
		}
	}
	return color, size, image
}
