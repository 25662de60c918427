package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/catalog/repository/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLooksLikeBarcode(t *testing.T) {
	cases := map[string]bool{
		"123456":        true,
		"12345":         false,
		"AB1234":        false,
		"  1234567  ":   true,
		"7501010000012": true,
		"123 456":       false,
		"":              false,
		"１２３４５６":        false,
	}
	for in, want := range cases {
		assert.Equal(t, want, LooksLikeBarcode(in), "input %q", in)
	}
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.TODO()
	code := "750101"
	pan := &domain.Product{ID: 7, Name: "Pan", Barcode: &code, SalePrice: decimal.NewFromInt(990)}

	t.Run("Found after trimming", func(t *testing.T) {
		store := new(mocks.MockCatalogStore)
		store.On("GetProductByBarcode", ctx, "750101").Return(pan, true, nil).Once()

		p, found, err := NewResolver(store).Resolve(ctx, "  750101\n")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(7), p.ID)
		store.AssertExpectations(t)
	})

	t.Run("Not found is not an error", func(t *testing.T) {
		store := new(mocks.MockCatalogStore)
		store.On("GetProductByBarcode", ctx, "000000").Return(nil, false, nil).Once()

		p, found, err := NewResolver(store).Resolve(ctx, "000000")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, p)
		store.AssertExpectations(t)
	})

	t.Run("Blank input skips the store", func(t *testing.T) {
		store := new(mocks.MockCatalogStore)

		_, found, err := NewResolver(store).Resolve(ctx, "   ")
		assert.NoError(t, err)
		assert.False(t, found)
		store.AssertNotCalled(t, "GetProductByBarcode", mock.Anything, mock.Anything)
	})

	t.Run("Store failure surfaces", func(t *testing.T) {
		store := new(mocks.MockCatalogStore)
		storeErr := errors.New("connection refused")
		store.On("GetProductByBarcode", ctx, "750101").Return(nil, false, storeErr).Once()

		_, found, err := NewResolver(store).Resolve(ctx, "750101")
		assert.ErrorIs(t, err, storeErr)
		assert.False(t, found)
	})
}
