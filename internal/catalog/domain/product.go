package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one row of the productos table.
type Product struct {
	ID        int64               `db:"id" json:"id"`
	Name      string              `db:"nombre" json:"nombre"`
	Barcode   *string             `db:"codigo_barras" json:"codigo_barras"`
	CostPrice decimal.NullDecimal `db:"precio_costo" json:"precio_costo"`
	SalePrice decimal.Decimal     `db:"precio_venta" json:"precio_venta"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// ProductInput is a validated create/update payload. A nil Barcode and an
// invalid CostPrice are stored as NULL.
type ProductInput struct {
	Name      string              `db:"nombre" json:"nombre"`
	Barcode   *string             `db:"codigo_barras" json:"codigo_barras"`
	CostPrice decimal.NullDecimal `db:"precio_costo" json:"precio_costo"`
	SalePrice decimal.Decimal     `db:"precio_venta" json:"precio_venta"`
}

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	// ChangeAny is emitted when the feed only knows that something changed.
	ChangeAny ChangeType = "*"
)

// ChangeEvent notifies that the catalog changed outside the current request.
type ChangeEvent struct {
	Type      ChangeType `json:"type"`
	ProductID int64      `json:"id,omitempty"`
	At        time.Time  `json:"at"`
}
