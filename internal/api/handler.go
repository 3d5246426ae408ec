package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	store *store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(st *store.Store) *Handler {
	return &Handler{
		store: st,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/cart", h.getCart)
		v1.POST("/cart", h.addToCart)
		v1.DELETE("/cart/:cartId", h.removeFromCart)
		v1.POST("/cart/:cartId/increase", h.increaseQuantity)
		v1.POST("/cart/:cartId/decrease", h.decreaseQuantity)
		v1.PATCH("/cart/:cartId/size", h.updateSize)
		v1.PUT("/cart/view", h.setCartInView)

		v1.GET("/bookmarks", h.getBookmarks)
		v1.POST("/bookmarks", h.addBookmark)
		v1.DELETE("/bookmarks/:bookmarkId", h.removeBookmark)
		v1.DELETE("/bookmarks", h.clearBookmarks)
		v1.POST("/bookmarks/to-cart", h.bookmarksToCart)

		v1.GET("/orders", h.getOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id", h.updateOrder)
		v1.POST("/orders/:id/fulfill", h.fulfillOrder)
		v1.DELETE("/orders/:id", h.refundOrder)

		v1.GET("/products", h.getProducts)
		v1.POST("/products", h.createProduct)
		v1.PATCH("/products/:id", h.updateProduct)
		v1.PATCH("/products/:id/color", h.updateColor)
		v1.GET("/search", h.searchProducts)

		v1.GET("/categories", h.getCategories)
		v1.PUT("/categories/:parentId/visible-child", h.setVisibleChild)
		v1.GET("/cloth-types", h.getClothTypes)

		v1.GET("/pages/:target", h.getPage)
		v1.POST("/pages/:target", h.setPage)
		v1.PUT("/pages/:target/size", h.setPageSize)

		v1.GET("/ui", h.getUIState)
		v1.PUT("/ui/nav", h.setNavOpen)
		v1.PUT("/ui/modal", h.openModal)
		v1.DELETE("/ui/modal", h.closeModal)

		v1.POST("/checkout", h.checkout)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"session": h.store.SessionID(),
		"time":    time.Now().Unix(),
	})
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items":  h.store.CartItems(),
		"totals": h.store.CartTotals(),
		"inView": h.store.CartInView(),
	})
}

// addToCart merges a product into the cart
func (h *Handler) addToCart(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if product.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing product id"})
		return
	}

	h.store.AddToCart(c.Request.Context(), product)
	c.JSON(http.StatusOK, gin.H{
		"items":  h.store.CartItems(),
		"totals": h.store.CartTotals(),
	})
}

func (h *Handler) removeFromCart(c *gin.Context) {
	h.store.RemoveFromCart(c.Request.Context(), c.Param("cartId"))
	c.JSON(http.StatusOK, gin.H{"items": h.store.CartItems()})
}

func (h *Handler) increaseQuantity(c *gin.Context) {
	h.store.IncreaseQuantity(c.Request.Context(), c.Param("cartId"))
	c.JSON(http.StatusOK, gin.H{"items": h.store.CartItems()})
}

func (h *Handler) decreaseQuantity(c *gin.Context) {
	h.store.DecreaseQuantity(c.Request.Context(), c.Param("cartId"))
	c.JSON(http.StatusOK, gin.H{"items": h.store.CartItems()})
}

func (h *Handler) updateSize(c *gin.Context) {
	var req struct {
		Size string `json:"size" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	h.store.UpdateSize(c.Request.Context(), c.Param("cartId"), req.Size)
	c.JSON(http.StatusOK, gin.H{"items": h.store.CartItems()})
}

func (h *Handler) setCartInView(c *gin.Context) {
	var req struct {
		Open bool `json:"open"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	h.store.SetCartInView(c.Request.Context(), req.Open)
	c.JSON(http.StatusOK, gin.H{"inView": h.store.CartInView()})
}

func (h *Handler) getBookmarks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bookmarks": h.store.Bookmarks()})
}

func (h *Handler) addBookmark(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if product.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing product id"})
		return
	}

	h.store.AddBookmark(c.Request.Context(), product)
	c.JSON(http.StatusOK, gin.H{"bookmarks": h.store.Bookmarks()})
}

func (h *Handler) removeBookmark(c *gin.Context) {
	h.store.RemoveBookmark(c.Request.Context(), c.Param("bookmarkId"))
	c.JSON(http.StatusOK, gin.H{"bookmarks": h.store.Bookmarks()})
}

func (h *Handler) clearBookmarks(c *gin.Context) {
	h.store.ClearBookmarks(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"bookmarks": h.store.Bookmarks()})
}

// bookmarksToCart moves the named bookmarks (or all of them) into the
// cart
func (h *Handler) bookmarksToCart(c *gin.Context) {
	var req struct {
		BookmarkIDs []string `json:"bookmarkIds"`
		All         bool     `json:"all"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.All {
		h.store.AddAllBookmarksToCart(c.Request.Context())
	} else {
		h.store.AddBookmarksToCart(c.Request.Context(), req.BookmarkIDs)
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  h.store.CartItems(),
		"totals": h.store.CartTotals(),
	})
}

// getOrders loads a fulfillment bucket and returns its filtered view
func (h *Handler) getOrders(c *gin.Context) {
	typ := store.OrderType(c.DefaultQuery("type", string(store.OrderTypeUnfulfilled)))
	force := c.Query("force") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	if err := h.store.LoadOrders(c.Request.Context(), typ, force, limit); err != nil {
		respondError(c, "Failed to load orders", err)
		return
	}

	filter := store.OrderFilter{
		Query:     c.Query("q"),
		Status:    c.Query("status"),
		Ascending: c.Query("dir") == "asc",
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = t
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": h.store.FilteredOrders(typ, filter),
		"errors": h.store.OrderErrors(),
	})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.store.LoadOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Order not found", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) updateOrder(c *gin.Context) {
	var updates store.OrderUpdates
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.store.UpdateOrder(c.Request.Context(), c.Param("id"), updates); err != nil {
		respondError(c, "Failed to update order", err)
		return
	}

	order, _ := h.store.OrderInView()
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) fulfillOrder(c *gin.Context) {
	if err := h.store.FulfillOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to fulfill order", err)
		return
	}

	order, _ := h.store.OrderInView()
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) refundOrder(c *gin.Context) {
	if err := h.store.RefundOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to refund order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}

// getProducts loads the catalog and returns the filtered view
func (h *Handler) getProducts(c *gin.Context) {
	force := c.Query("force") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	if err := h.store.LoadStoreProducts(c.Request.Context(), force, page); err != nil {
		respondError(c, "Failed to load products", err)
		return
	}

	filter := store.ProductFilter{
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Query:     c.Query("q"),
		SortField: c.Query("sort"),
		Ascending: c.Query("dir") == "asc",
	}

	c.JSON(http.StatusOK, gin.H{
		"products": h.store.ApplyFilters(filter),
		"total":    h.store.ProductsTotal(),
	})
}

func (h *Handler) createProduct(c *gin.Context) {
	form, err := bindProductForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid product form",
			"details": err.Error(),
		})
		return
	}

	product, err := h.store.CreateProduct(c.Request.Context(), form)
	if err != nil {
		respondError(c, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func (h *Handler) updateProduct(c *gin.Context) {
	form, err := bindProductForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid product form",
			"details": err.Error(),
		})
		return
	}

	product, err := h.store.UpdateProduct(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		respondError(c, "Failed to update product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *Handler) updateColor(c *gin.Context) {
	var req struct {
		Color string `json:"color" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	h.store.UpdateColor(c.Request.Context(), c.Param("id"), req.Color)
	c.JSON(http.StatusOK, gin.H{"items": h.store.CartItems()})
}

func (h *Handler) searchProducts(c *gin.Context) {
	h.store.SetNavSearch(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"query":    h.store.NavSearch(),
		"products": h.store.SearchProducts(),
	})
}

func (h *Handler) getCategories(c *gin.Context) {
	force := c.Query("force") == "true"
	if err := h.store.LoadCategories(c.Request.Context(), force); err != nil {
		respondError(c, "Failed to load categories", err)
		return
	}

	if parentID := c.Query("parent"); parentID != "" {
		c.JSON(http.StatusOK, gin.H{"categories": h.store.ChildCategories(parentID)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": h.store.Categories()})
}

func (h *Handler) setVisibleChild(c *gin.Context) {
	var req struct {
		ChildID string `json:"childId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	h.store.SetVisibleChild(c.Param("parentId"), req.ChildID)
	childID, _ := h.store.VisibleChild(c.Param("parentId"))
	c.JSON(http.StatusOK, gin.H{"visibleChild": childID})
}

func (h *Handler) getClothTypes(c *gin.Context) {
	if err := h.store.LoadClothTypes(c.Request.Context()); err != nil {
		respondError(c, "Failed to load cloth types", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clothTypes": h.store.ClothTypes()})
}

func (h *Handler) getPage(c *gin.Context) {
	window, ok := h.store.Page(store.PageTarget(c.Param("target")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown pagination target"})
		return
	}
	c.JSON(http.StatusOK, window)
}

func (h *Handler) setPage(c *gin.Context) {
	var req struct {
		Page int `json:"page" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	target := store.PageTarget(c.Param("target"))
	if err := h.store.SetPage(c.Request.Context(), target, req.Page); err != nil {
		respondError(c, "Failed to change page", err)
		return
	}

	window, _ := h.store.Page(target)
	c.JSON(http.StatusOK, window)
}

func (h *Handler) setPageSize(c *gin.Context) {
	var req struct {
		Size int `json:"size" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	target := store.PageTarget(c.Param("target"))
	if err := h.store.SetSize(target, req.Size); err != nil {
		respondError(c, "Failed to change page size", err)
		return
	}

	window, _ := h.store.Page(target)
	c.JSON(http.StatusOK, window)
}

func (h *Handler) getUIState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"navOpen":     h.store.NavOpen(),
		"activeModal": h.store.ActiveModal(),
	})
}

func (h *Handler) setNavOpen(c *gin.Context) {
	var req struct {
		Open bool `json:"open"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	h.store.SetNavOpen(req.Open)
	c.JSON(http.StatusOK, gin.H{"navOpen": h.store.NavOpen()})
}

func (h *Handler) openModal(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	h.store.OpenModal(req.Name)
	c.JSON(http.StatusOK, gin.H{"activeModal": h.store.ActiveModal()})
}

func (h *Handler) closeModal(c *gin.Context) {
	h.store.CloseModal()
	c.JSON(http.StatusOK, gin.H{"activeModal": ""})
}

func (h *Handler) checkout(c *gin.Context) {
	var form store.CheckoutForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.store.Checkout(c.Request.Context(), form); err != nil {
		var vErr *store.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Invalid checkout form",
				"fields": vErr.Fields,
			})
			return
		}
		if errors.Is(err, store.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			return
		}
		respondError(c, "Checkout failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "completed",
		"items":  h.store.CartItems(),
	})
}

// bindProductForm reads the multipart create/edit payload: scalar
// fields plus a JSON-encoded variants field and image file parts.
func bindProductForm(c *gin.Context) (store.ProductForm, error) {
	mpForm, err := c.MultipartForm()
	if err != nil {
		return store.ProductForm{}, err
	}

	price, _ := strconv.ParseFloat(c.PostForm("price"), 64)
	totalNumber, _ := strconv.Atoi(c.PostForm("totalNumber"))

	form := store.ProductForm{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Status:      c.PostForm("status"),
		Price:       price,
		TotalNumber: totalNumber,
	}
	if raw := c.PostForm("variants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.Variants); err != nil {
			return store.ProductForm{}, err
		}
	}

	for _, fh := range mpForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			return store.ProductForm{}, err
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return store.ProductForm{}, err
		}
		form.Images = append(form.Images, apiclient.FilePart{
			Field:    "images",
			Filename: fh.Filename,
			Content:  content,
		})
	}
	return form, nil
}

// respondError maps backend failures onto this service's responses:
// upstream API statuses pass through, everything else is a 502 since
// the failure happened between this service and the commerce backend.
func respondError(c *gin.Context, message string, err error) {
	status := http.StatusBadGateway
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.Status
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
