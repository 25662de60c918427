package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

var ErrValidation = errors.New("validation failed")

// ProductForm is the raw create/update payload as the clerk typed it.
// Prices accept both JSON numbers and numeric strings.
type ProductForm struct {
	Name      string           `json:"nombre"`
	Barcode   string           `json:"codigo_barras"`
	CostPrice *decimal.Decimal `json:"precio_costo"`
	SalePrice *decimal.Decimal `json:"precio_venta"`
}

// Validate normalises the form into a store payload. A blank barcode and a
// missing cost price become NULL.
func (f ProductForm) Validate() (domain.ProductInput, error) {
	var in domain.ProductInput

	in.Name = strings.TrimSpace(f.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: nombre is required", ErrValidation)
	}

	if f.SalePrice == nil {
		return in, fmt.Errorf("%w: precio_venta is required", ErrValidation)
	}
	if f.SalePrice.IsNegative() {
		return in, fmt.Errorf("%w: precio_venta must not be negative", ErrValidation)
	}
	in.SalePrice = *f.SalePrice

	if f.CostPrice != nil {
		if f.CostPrice.IsNegative() {
			return in, fmt.Errorf("%w: precio_costo must not be negative", ErrValidation)
		}
		in.CostPrice = decimal.NewNullDecimal(*f.CostPrice)
	}

	if code := strings.TrimSpace(f.Barcode); code != "" {
		in.Barcode = &code
	}
	return in, nil
}
