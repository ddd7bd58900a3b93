// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/favorite"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
)

// CatalogHandler handles category, product and accessory endpoints
type CatalogHandler struct {
	catalog   *catalog.Service
	favorites *favorite.Service
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *catalog.Service, favoriteService *favorite.Service) *CatalogHandler {
	return &CatalogHandler{
		catalog:   catalogService,
		favorites: favoriteService,
	}
}

// ListCategories handles GET /categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Categories retrieved successfully", categories)
}

// GetCategory handles GET /categories/:slug
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	detail, err := h.catalog.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Category retrieved successfully", detail)
}

// ListProducts handles GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var req catalog.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Products retrieved successfully", products)
}

// GetProduct handles GET /products/:slug
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Product retrieved successfully", product)
}

// SimilarProducts handles GET /products/:slug/similar
func (h *CatalogHandler) SimilarProducts(c *gin.Context) {
	ctx := c.Request.Context()

	product, err := h.catalog.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "4"))
	products, err := h.catalog.SimilarProducts(ctx, product.ID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Similar products retrieved successfully", products)
}

// ToggleLike handles POST /products/:slug/like
func (h *CatalogHandler) ToggleLike(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	slug := c.Param("slug")

	result, err := h.favorites.ToggleProductLike(c.Request.Context(), userID, slug)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.catalog.InvalidateProduct(c.Request.Context(), slug)

	response.Success(c, http.StatusOK, "Like updated", result)
}

// ListAccessories handles GET /accessories
func (h *CatalogHandler) ListAccessories(c *gin.Context) {
	accessories, err := h.catalog.ListAccessories(c.Request.Context(), c.Query("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Accessories retrieved successfully", accessories)
}
