package api

import (
	"net/http"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts returns the catalog, narrowed by ?category= or ?q= when given
func (h *Handler) listProducts(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		products []models.Product
		err      error
	)
	switch {
	case strings.TrimSpace(c.Query("q")) != "":
		products, err = h.catalog.Search(ctx, c.Query("q"))
	case c.Query("category") != "":
		products, err = h.catalog.ListByCategory(ctx, c.Query("category"))
	default:
		products, err = h.catalog.ListProducts(ctx)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) getStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	stock, err := h.catalog.GetStock(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_id": id, "stock": stock})
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	affected, err := h.catalog.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if affected == 0 {
		notFound(c, "Product not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": affected})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	affected, err := h.catalog.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if affected == 0 {
		notFound(c, "Product not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": affected})
}

type setStockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

func (h *Handler) setStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	change, err := h.catalog.SetStock(c.Request.Context(), id, *req.Stock)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, change)
}
