package repository

import (
	"context"
	"testing"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/platform/database/dbtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPostgresCatalogStore(t *testing.T) {
	db := dbtest.Open(t, "catalog_store_test")
	store := NewPostgresCatalogStore(db)
	ctx := context.Background()

	pan, err := store.CreateProduct(ctx, domain.ProductInput{
		Name:      "Pan",
		Barcode:   strPtr("750101"),
		CostPrice: decimal.NewNullDecimal(decimal.NewFromInt(600)),
		SalePrice: decimal.NewFromInt(990),
	})
	require.NoError(t, err)
	assert.NotZero(t, pan.ID)
	assert.False(t, pan.UpdatedAt.IsZero())

	leche, err := store.CreateProduct(ctx, domain.ProductInput{Name: "Leche", SalePrice: decimal.NewFromInt(1200)})
	require.NoError(t, err)
	assert.Nil(t, leche.Barcode)
	assert.False(t, leche.CostPrice.Valid)

	t.Run("Lookups", func(t *testing.T) {
		got, found, err := store.GetProductByBarcode(ctx, "750101")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, pan.ID, got.ID)
		assert.True(t, decimal.NewFromInt(990).Equal(got.SalePrice))
		assert.True(t, decimal.NewFromInt(600).Equal(got.CostPrice.Decimal))

		_, found, err = store.GetProductByBarcode(ctx, "000000")
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = store.GetProductByID(ctx, leche.ID)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Duplicate barcode", func(t *testing.T) {
		_, err := store.CreateProduct(ctx, domain.ProductInput{Name: "Otro", Barcode: strPtr("750101"), SalePrice: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, ErrDuplicateBarcode)

		_, err = store.UpdateProduct(ctx, leche.ID, domain.ProductInput{Name: "Leche", Barcode: strPtr("750101"), SalePrice: decimal.NewFromInt(1200)})
		assert.ErrorIs(t, err, ErrDuplicateBarcode)
	})

	t.Run("Search ignores case and matches barcode", func(t *testing.T) {
		got, err := store.SearchProducts(ctx, "PA")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Pan", got[0].Name)

		got, err = store.SearchProducts(ctx, "0101")
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = store.SearchProducts(ctx, "zzz")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Update moves the product to the top", func(t *testing.T) {
		updated, err := store.UpdateProduct(ctx, pan.ID, domain.ProductInput{Name: "Pan amasado", Barcode: strPtr("750101"), SalePrice: decimal.NewFromInt(1100)})
		require.NoError(t, err)
		assert.Equal(t, "Pan amasado", updated.Name)
		assert.False(t, updated.CostPrice.Valid)

		list, err := store.ListProducts(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, pan.ID, list[0].ID)

		_, err = store.UpdateProduct(ctx, 999999, domain.ProductInput{Name: "X", SalePrice: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.DeleteProduct(ctx, leche.ID))
		require.NoError(t, store.DeleteProduct(ctx, leche.ID))

		_, found, err := store.GetProductByID(ctx, leche.ID)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
