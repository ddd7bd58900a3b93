// internal/interfaces/http/handlers/favorite.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/domain/favorite"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
)

// FavoriteHandler handles the favorites of the authenticated user
type FavoriteHandler struct {
	favorites *favorite.Service
}

// NewFavoriteHandler creates a new favorites handler
func NewFavoriteHandler(favoriteService *favorite.Service) *FavoriteHandler {
	return &FavoriteHandler{favorites: favoriteService}
}

// List handles GET /favorites
func (h *FavoriteHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	favorites, err := h.favorites.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Favorites retrieved successfully", favorites)
}

// Add handles POST /favorites
func (h *FavoriteHandler) Add(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req favorite.TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	fav, err := h.favorites.Add(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Added to favorites", fav)
}

// Remove handles DELETE /favorites?product_id= or ?accessory_id=
func (h *FavoriteHandler) Remove(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req favorite.TargetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.favorites.Remove(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Removed from favorites", nil)
}
