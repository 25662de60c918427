package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is one row of ventas.
type Sale struct {
	ID        int64           `db:"id" json:"id"`
	Total     decimal.Decimal `db:"total" json:"total"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// SaleItem is one row of detalle_ventas. ProductID is nil once the product
// has been deleted from the catalog.
type SaleItem struct {
	ID        int64           `db:"id" json:"id,omitempty"`
	SaleID    int64           `db:"venta_id" json:"venta_id"`
	ProductID *int64          `db:"producto_id" json:"producto_id"`
	Quantity  int             `db:"cantidad" json:"cantidad"`
	UnitPrice decimal.Decimal `db:"precio_unitario" json:"precio_unitario"`
}

// ItemProduct is the part of the product joined onto a sale item.
type ItemProduct struct {
	Name    string  `json:"nombre"`
	Barcode *string `json:"codigo_barras"`
}

type SaleItemDetail struct {
	SaleItem
	Product *ItemProduct `json:"productos"`
}

type SaleWithItems struct {
	Sale
	Items []SaleItemDetail `json:"detalle_ventas"`
}

// SaleTotal is the header projection used by the daily summary. Total is
// not valid when the stored value is missing.
type SaleTotal struct {
	Total     decimal.NullDecimal `db:"total" json:"total"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
}
