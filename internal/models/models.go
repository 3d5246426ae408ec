package models

import (
	"strings"
	"time"
)

// Product statuses
const (
	ProductStatusActive     = "active"
	ProductStatusInactive   = "inactive"
	ProductStatusOutOfStock = "out-of-stock"
	ProductStatusDraft      = "draft"
)

// Payment statuses (server controlled)
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
	PaymentStatusCancelled = "cancelled"
)

// Delivery statuses
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusShipped   = "shipped"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusCancelled = "cancelled"
)

// Fulfillment statuses
const (
	FulfilledStatusUnfulfilled = "unfulfilled"
	FulfilledStatusFulfilled   = "fulfilled"
)

// Image is a single hosted product image.
type Image struct {
	ID  string `json:"_id"`
	URL string `json:"url"`
}

// Variant is a color/size/stock/image grouping within a product.
type Variant struct {
	ID       string   `json:"_id"`
	Color    string   `json:"color"`
	ColorHex string   `json:"colorHex"`
	Images   []Image  `json:"images"`
	Stock    int      `json:"stock"`
	Sizes    []string `json:"sizes"`
}

// SEO is the optional search-metadata block on a product.
type SEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Product is the normalized catalog entry held by the product store.
// TotalNumber is the declared aggregate stock across variants.
type Product struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	TotalNumber int       `json:"totalNumber"`
	Rating      float64   `json:"rating"`
	Variants    []Variant `json:"variants"`
	SEO         SEO       `json:"seo"`
	CreatedAt   time.Time `json:"createdAt"`

	// Storefront selection state, never sent by the backend.
	SelectedColor string `json:"selectedColor,omitempty"`
	SelectedSize  string `json:"selectedSize,omitempty"`
}

// VariantByID returns the variant with the given id.
func (p *Product) VariantByID(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantByColor returns the variant with the given color.
func (p *Product) VariantByColor(color string) (Variant, bool) {
	for _, v := range p.Variants {
		if strings.EqualFold(v.Color, color) {
			return v, true
		}
	}
	return Variant{}, false
}

// CartItem is a product reference plus the chosen variant/size/quantity.
// CartID is the composite identity (product+color+size) used to match
// persisted lines across sessions.
type CartItem struct {
	CartID    string  `json:"cartId"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Color     string  `json:"color"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
}

// CartItemID derives the composite cart line identity.
func CartItemID(productID, color, size string) string {
	return productID + "-" + color + "-" + size
}

// Bookmark is a saved product reference with its own identity,
// independent of cart lines.
type Bookmark struct {
	ID                string  `json:"id"`
	BookmarkID        string  `json:"bookmarkId"`
	BookmarkCreatedAt string  `json:"bookmarkCreatedAt"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Image             string  `json:"image"`
}

// OrderItem is a denormalized order line as returned by the backend.
type OrderItem struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Order is a server-origin record. Payment, delivery and fulfillment
// are three independent status fields; the client only ever requests
// delivery and fulfillment transitions.
type Order struct {
	ID              string      `json:"_id"`
	CustomerName    string      `json:"customerName"`
	Email           string      `json:"email"`
	Address         string      `json:"address"`
	PaymentStatus   string      `json:"paymentStatus"`
	DeliveryStatus  string      `json:"deliveryStatus"`
	FulfilledStatus string      `json:"fulfilledStatus"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// ShortID is the derived display id shown in the dashboard.
func (o *Order) ShortID() string {
	id := o.ID
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return "#" + strings.ToUpper(id)
}

// Category is a hierarchical content category. ParentID is nil for
// top-level categories.
type Category struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parentId"`
}

// ValidDeliveryStatus reports whether s is in the closed delivery set.
func ValidDeliveryStatus(s string) bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusShipped, DeliveryStatusDelivered, DeliveryStatusCancelled:
		return true
	}
	return false
}

// ValidFulfilledStatus reports whether s is in the closed fulfillment set.
func ValidFulfilledStatus(s string) bool {
	return s == FulfilledStatusUnfulfilled || s == FulfilledStatusFulfilled
}
