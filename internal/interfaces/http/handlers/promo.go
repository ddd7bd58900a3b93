// internal/interfaces/http/handlers/promo.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/promo"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
	"github.com/your-org/storefront-api/internal/pkg/money"
)

// PromoHandler handles promo code endpoints
type PromoHandler struct {
	promos *promo.Service
	carts  *cart.Service
}

// NewPromoHandler creates a new promo handler
func NewPromoHandler(promoService *promo.Service, cartService *cart.Service) *PromoHandler {
	return &PromoHandler{promos: promoService, carts: cartService}
}

// RedeemRequest represents a stand-alone redemption against a total
type RedeemRequest struct {
	Total money.Money `json:"total"`
}

// Preview handles POST /promo-codes/preview. The code is evaluated against
// the current cart total; nothing is redeemed.
func (h *PromoHandler) Preview(c *gin.Context) {
	var req promo.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	id := middleware.GetIdentity(c)

	total, err := h.carts.Total(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	preview, err := h.promos.Preview(ctx, id, req.Code, total)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, preview.Message, preview)
}

// GetApplied handles GET /promo-codes/applied
func (h *PromoHandler) GetApplied(c *gin.Context) {
	preview, ok, err := h.promos.AppliedPreview(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Success(c, http.StatusOK, "No promo code applied", nil)
		return
	}
	response.Success(c, http.StatusOK, "Promo code applied", preview)
}

// ForgetApplied handles DELETE /promo-codes/applied
func (h *PromoHandler) ForgetApplied(c *gin.Context) {
	if err := h.promos.ForgetPreview(c.Request.Context(), middleware.GetIdentity(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Promo code removed", nil)
}

// AdminCreate handles POST /admin/promo-codes
func (h *PromoHandler) AdminCreate(c *gin.Context) {
	var req promo.CreatePromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	created, err := h.promos.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Promo code created successfully", created)
}

// AdminRedeem handles POST /admin/promo-codes/:code/redeem
func (h *PromoHandler) AdminRedeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	redemption, err := h.promos.Redeem(c.Request.Context(), c.Param("code"), req.Total)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Promo code redeemed", redemption)
}
