package service

import (
	"context"
	"strings"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/catalog/repository"
	"github.com/ridloal/punto-venta/internal/platform/logger"
)

// LooksLikeBarcode reports whether free text typed into a search box should
// be treated as a scan.
func LooksLikeBarcode(text string) bool {
	return domain.LooksLikeBarcode(text)
}

type Resolver interface {
	Resolve(ctx context.Context, code string) (*domain.Product, bool, error)
}

type resolverImpl struct {
	store repository.CatalogStore
}

func NewResolver(store repository.CatalogStore) Resolver {
	return &resolverImpl{store: store}
}

// Resolve looks the product up by exact barcode. An unknown or blank code is
// reported as not found, not as an error.
func (r *resolverImpl) Resolve(ctx context.Context, code string) (*domain.Product, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false, nil
	}
	p, found, err := r.store.GetProductByBarcode(ctx, code)
	if err != nil {
		logger.Error("Resolve: barcode lookup failed", err, logger.Fields{"barcode": code})
		return nil, false, err
	}
	if !found {
		logger.Info("Resolve: no product for barcode %s", code)
	}
	return p, found, nil
}
