package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(CodeEmptyCart, "cart is empty")
	derived := sentinel.WithMessage("cart 7 has no lines")
	wrapped := fmt.Errorf("place order: %w", derived)

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, New(CodeNotFound, "x")))
}

func TestWithDetailsCopies(t *testing.T) {
	sentinel := New(CodeInvalidPromoCode, "promo code is not applicable")
	detailed := sentinel.WithDetails(map[string]string{"reason": "expired"})

	assert.Nil(t, sentinel.Details())
	assert.Equal(t, map[string]string{"reason": "expired"}, detailed.Details())
	assert.True(t, errors.Is(detailed, sentinel))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, cause, "failed to load cart")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAsAndCodeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeConflict, "duplicate"))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeConflict, typed.Code())
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestMetadataFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, MetadataFor(CodeNotFound).HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, MetadataFor(CodeIdentityRequired).HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("UNKNOWN")).HTTPStatus)
}
