package mocks

import (
	"context"
	"time"

	"github.com/ridloal/punto-venta/internal/sales/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockSalesStore struct {
	mock.Mock
}

func (m *MockSalesStore) CreateSale(ctx context.Context, total decimal.Decimal, createdAt time.Time) (*domain.Sale, error) {
	args := m.Called(ctx, total, createdAt)
	if res := args.Get(0); res != nil {
		return res.(*domain.Sale), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSalesStore) CreateSaleItems(ctx context.Context, items []domain.SaleItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockSalesStore) DeleteSale(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSalesStore) ListSales(ctx context.Context) ([]domain.SaleWithItems, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]domain.SaleWithItems), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSalesStore) ListSaleTotalsSince(ctx context.Context, since time.Time) ([]domain.SaleTotal, error) {
	args := m.Called(ctx, since)
	if res := args.Get(0); res != nil {
		return res.([]domain.SaleTotal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSalesStore) ListItemsWithProduct(ctx context.Context) ([]domain.SaleItemDetail, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]domain.SaleItemDetail), args.Error(1)
	}
	return nil, args.Error(1)
}
