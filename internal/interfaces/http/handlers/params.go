// internal/interfaces/http/handlers/params.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/your-org/storefront-api/internal/domain/promo"
	"github.com/your-org/storefront-api/internal/interfaces/http/response"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
)

// RegisterValidators installs the custom binding tags used by request types
func RegisterValidators() error {
	return response.SetupValidator(map[string]validator.Func{
		"promocode": func(fl validator.FieldLevel) bool {
			return promo.ValidCodeFormat(fl.Field().String())
		},
	})
}

// idParam parses a positive numeric path parameter. On failure the error
// response has already been written.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.Error(c, apperrors.New(apperrors.CodeValidation, "invalid "+name).
			WithDetails(map[string]string{name: c.Param(name)}))
		return 0, false
	}
	return uint(id), true
}
