package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ridloal/punto-venta/internal/cart"
	catalogDomain "github.com/ridloal/punto-venta/internal/catalog/domain"
	catalogRepo "github.com/ridloal/punto-venta/internal/catalog/repository"
	catalogService "github.com/ridloal/punto-venta/internal/catalog/service"
	"github.com/ridloal/punto-venta/internal/platform/auth"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/platform/postgrest"
	"github.com/ridloal/punto-venta/internal/sales/repository"
	"github.com/ridloal/punto-venta/internal/sales/service"
)

type SalesHandler struct {
	carts    *cart.Registry
	products catalogRepo.CatalogStore
	resolver catalogService.Resolver
	checkout service.CheckoutService
	sales    repository.SalesStore
	summary  service.SummaryService
}

func NewSalesHandler(
	carts *cart.Registry,
	products catalogRepo.CatalogStore,
	resolver catalogService.Resolver,
	checkout service.CheckoutService,
	sales repository.SalesStore,
	summary service.SummaryService,
) *SalesHandler {
	return &SalesHandler{
		carts:    carts,
		products: products,
		resolver: resolver,
		checkout: checkout,
		sales:    sales,
		summary:  summary,
	}
}

type addItemRequest struct {
	ProductID int64 `json:"producto_id" binding:"required"`
}

type scanRequest struct {
	Code string `json:"codigo" binding:"required"`
}

type setQuantityRequest struct {
	Quantity *int `json:"cantidad" binding:"required"`
}

func (h *SalesHandler) RegisterRoutes(router *gin.RouterGroup, jwtSecret string) {
	clerk := auth.Middleware(jwtSecret, auth.RoleAdmin, auth.RoleClerk)

	terminal := router.Group("/terminals/:terminal", clerk)
	{
		terminal.GET("/cart", h.GetCart)
		terminal.DELETE("/cart", h.ClearCart)
		terminal.POST("/cart/items", h.AddItem)
		terminal.POST("/cart/scan", h.ScanItem)
		terminal.GET("/search", h.Search)
		terminal.PUT("/cart/items/:productId", h.SetQuantity)
		terminal.DELETE("/cart/items/:productId", h.RemoveItem)
		terminal.POST("/checkout", h.Checkout)
	}
	router.GET("/sales", clerk, h.ListSales)
	router.GET("/summary", clerk, h.Summary)
}

func (h *SalesHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.carts.GetOrCreate(c.Param("terminal")))
}

func (h *SalesHandler) ClearCart(c *gin.Context) {
	h.mutate(c, "ClearCart", func(ct *cart.Cart) { ct.Clear() })
}

// mutate applies fn to the terminal's cart and writes the resulting cart.
// A cart frozen by an in-flight checkout answers 409.
func (h *SalesHandler) mutate(c *gin.Context, op string, fn func(ct *cart.Cart)) {
	snap, err := h.carts.With(c.Param("terminal"), fn)
	if err != nil {
		respondError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SalesHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	p, found, err := h.products.GetProductByID(c.Request.Context(), req.ProductID)
	if err != nil {
		respondError(c, "AddItem", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": catalogRepo.ErrProductNotFound.Error()})
		return
	}
	h.mutate(c, "AddItem", func(ct *cart.Cart) { ct.Add(*p) })
}

// ScanItem resolves a barcode and adds one unit of the product.
func (h *SalesHandler) ScanItem(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	p, found, err := h.resolver.Resolve(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, "ScanItem", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no product with barcode " + req.Code})
		return
	}
	h.mutate(c, "ScanItem", func(ct *cart.Cart) { ct.Add(*p) })
}

type searchResponse struct {
	Products []catalogDomain.Product `json:"productos"`
	Added    *catalogDomain.Product  `json:"agregado,omitempty"`
	Cart     *cart.Snapshot          `json:"carrito,omitempty"`
}

// Search backs the till's search box. Text that looks like a barcode is
// resolved and, when a product matches, added to the cart as a scan would.
// Anything else, or a barcode with no product, is a name/barcode search.
// Blank text yields no results.
func (h *SalesHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	ctx := c.Request.Context()

	if catalogService.LooksLikeBarcode(q) {
		p, found, err := h.resolver.Resolve(ctx, q)
		if err != nil {
			respondError(c, "Search", err)
			return
		}
		if found {
			snap, err := h.carts.With(c.Param("terminal"), func(ct *cart.Cart) { ct.Add(*p) })
			if err != nil {
				respondError(c, "Search", err)
				return
			}
			c.JSON(http.StatusOK, searchResponse{Products: []catalogDomain.Product{*p}, Added: p, Cart: &snap})
			return
		}
	}

	if q == "" {
		c.JSON(http.StatusOK, searchResponse{Products: []catalogDomain.Product{}})
		return
	}
	products, err := h.products.SearchProducts(ctx, q)
	if err != nil {
		respondError(c, "Search", err)
		return
	}
	c.JSON(http.StatusOK, searchResponse{Products: products})
}

func (h *SalesHandler) SetQuantity(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	h.mutate(c, "SetQuantity", func(ct *cart.Cart) { ct.SetQuantity(id, *req.Quantity) })
}

func (h *SalesHandler) RemoveItem(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}
	h.mutate(c, "RemoveItem", func(ct *cart.Cart) { ct.Remove(id) })
}

func (h *SalesHandler) Checkout(c *gin.Context) {
	terminal := c.Param("terminal")
	sale, err := h.checkout.Checkout(c.Request.Context(), terminal)
	if err != nil {
		respondError(c, "Checkout", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"venta": sale, "carrito": h.carts.GetOrCreate(terminal)})
}

func (h *SalesHandler) ListSales(c *gin.Context) {
	sales, err := h.sales.ListSales(c.Request.Context())
	if err != nil {
		respondError(c, "ListSales", err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *SalesHandler) Summary(c *gin.Context) {
	sum, err := h.summary.Summary(c.Request.Context())
	if err != nil {
		respondError(c, "Summary", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func parseProductID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, op string, err error) {
	var se *postgrest.StoreError
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cart.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSaleHeaderFailed), errors.Is(err, service.ErrSaleItemsFailed):
		logger.Error(op+": sale not recorded", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "The sale could not be recorded, please retry"})
	case errors.As(err, &se):
		logger.Error(op+": store error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "The store rejected the request", "code": se.Code})
	default:
		logger.Error(op+": service error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the request"})
	}
}
