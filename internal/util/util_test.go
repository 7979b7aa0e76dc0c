package util

import (
	"errors"
	"fmt"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFailureReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{models.ProductNotFound(3), "not_found"},
		{fmt.Errorf("add: %w", models.ErrInvalidQuantity), "invalid_quantity"},
		{models.ErrInvalidInput, "invalid_input"},
		{&models.StockError{ProductID: 1, Requested: 5, Available: 2}, "insufficient_stock"},
		{models.ErrEmptyCart, "empty_cart"},
		{errors.New("connection reset"), "error"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FailureReason(tc.err))
	}
}

func TestGetLoggerWithoutInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
	assert.NotNil(t, GetTracer())
}
