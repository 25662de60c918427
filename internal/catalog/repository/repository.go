package repository

import (
	"context"
	"errors"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateBarcode = errors.New("barcode is already assigned to another product")
)

// CatalogStore is the gateway to the productos table. Lookups report absence
// through the boolean instead of an error.
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SearchProducts(ctx context.Context, term string) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, bool, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, bool, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// ChangeFeed delivers catalog change notifications until the subscription is
// cancelled or ctx ends.
type ChangeFeed interface {
	Subscribe(ctx context.Context, fn func(domain.ChangeEvent)) (Subscription, error)
}

// Subscription is the handle returned by ChangeFeed.Subscribe. Unsubscribe is
// safe to call more than once and must not be called from inside fn.
type Subscription interface {
	Unsubscribe()
}
