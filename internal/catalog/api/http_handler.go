package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/catalog/repository"
	"github.com/ridloal/punto-venta/internal/catalog/service"
	"github.com/ridloal/punto-venta/internal/platform/auth"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/platform/postgrest"
)

const eventBuffer = 16

type ProductHandler struct {
	store       repository.CatalogStore
	maintenance service.Maintenance
	resolver    service.Resolver
	notifier    *service.Notifier
}

func NewProductHandler(store repository.CatalogStore, m service.Maintenance, r service.Resolver, n *service.Notifier) *ProductHandler {
	return &ProductHandler{store: store, maintenance: m, resolver: r, notifier: n}
}

// RegisterRoutes mounts the catalog routes. Reads need any signed-in role,
// writes need admin. An empty secret leaves every route open.
func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup, jwtSecret string) {
	read := auth.Middleware(jwtSecret, auth.RoleAdmin, auth.RoleClerk)
	write := auth.Middleware(jwtSecret, auth.RoleAdmin)

	productRoutes := router.Group("/products")
	{
		productRoutes.GET("", read, h.ListProducts)
		productRoutes.GET("/events", read, h.StreamChanges)
		productRoutes.GET("/barcode/:code", read, h.GetByBarcode)
		productRoutes.GET("/:id", read, h.GetProduct)
		productRoutes.POST("", write, h.CreateProduct)
		productRoutes.PUT("/:id", write, h.UpdateProduct)
		productRoutes.DELETE("/:id", write, h.DeleteProduct)
	}
	router.GET("/catalog", read, h.CatalogView)
}

// ListProducts returns the whole catalog, or the matches for ?q= when given.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var (
		products []domain.Product
		err      error
	)
	if q := c.Query("q"); q != "" {
		products, err = h.store.SearchProducts(c.Request.Context(), q)
	} else {
		products, err = h.store.ListProducts(c.Request.Context())
	}
	if err != nil {
		respondError(c, "ListProducts", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, found, err := h.store.GetProductByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, "GetProduct", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": repository.ErrProductNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	code := c.Param("code")
	p, found, err := h.resolver.Resolve(c.Request.Context(), code)
	if err != nil {
		respondError(c, "GetByBarcode", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no product with barcode " + code})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var form service.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	p, err := h.maintenance.Create(c.Request.Context(), form)
	if err != nil {
		respondError(c, "CreateProduct", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var form service.ProductForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	p, err := h.maintenance.Update(c.Request.Context(), id, form)
	if err != nil {
		respondError(c, "UpdateProduct", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.maintenance.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "DeleteProduct", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CatalogView returns the maintenance view. A q parameter, even an empty
// one, sets the search text first.
func (h *ProductHandler) CatalogView(c *gin.Context) {
	if q, ok := c.GetQuery("q"); ok {
		if err := h.maintenance.SetSearch(c.Request.Context(), q); err != nil {
			respondError(c, "CatalogView", err)
			return
		}
	}
	c.JSON(http.StatusOK, h.maintenance.View())
}

// StreamChanges pushes catalog change events to the client as server-sent
// events until the client goes away.
func (h *ProductHandler) StreamChanges(c *gin.Context) {
	events := make(chan domain.ChangeEvent, eventBuffer)
	cancel := h.notifier.Register(func(ev domain.ChangeEvent) {
		select {
		case events <- ev:
		default:
			logger.Warn("StreamChanges: client too slow, dropping %s event", ev.Type)
		}
	})
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			c.SSEvent("change", ev)
			c.Writer.Flush()
		}
	}
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, op string, err error) {
	var se *postgrest.StoreError
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrDuplicateBarcode):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &se):
		logger.Error(op+": store error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "The product store rejected the request", "code": se.Code})
	default:
		logger.Error(op+": service error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process the catalog request"})
	}
}
