package repository

import (
	"context"
	"time"

	"github.com/ridloal/punto-venta/internal/sales/domain"
	"github.com/shopspring/decimal"
)

// SalesStore is the gateway to ventas and detalle_ventas. It performs single
// writes only; the two-step sale workflow lives in the service layer.
type SalesStore interface {
	CreateSale(ctx context.Context, total decimal.Decimal, createdAt time.Time) (*domain.Sale, error)
	// CreateSaleItems inserts all items in one statement or request.
	CreateSaleItems(ctx context.Context, items []domain.SaleItem) error
	DeleteSale(ctx context.Context, id int64) error
	// ListSales returns headers newest first, each with its items.
	ListSales(ctx context.Context) ([]domain.SaleWithItems, error)
	ListSaleTotalsSince(ctx context.Context, since time.Time) ([]domain.SaleTotal, error)
	ListItemsWithProduct(ctx context.Context) ([]domain.SaleItemDetail, error)
}
