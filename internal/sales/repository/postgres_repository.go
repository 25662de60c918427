package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/sales/domain"
	"github.com/shopspring/decimal"
)

type postgresSalesStore struct {
	db *sqlx.DB
}

func NewPostgresSalesStore(db *sqlx.DB) SalesStore {
	return &postgresSalesStore{db: db}
}

func (r *postgresSalesStore) CreateSale(ctx context.Context, total decimal.Decimal, createdAt time.Time) (*domain.Sale, error) {
	query := `INSERT INTO ventas (total, created_at) VALUES ($1, $2) RETURNING id, total, created_at`
	var s domain.Sale
	if err := r.db.QueryRowxContext(ctx, query, total, createdAt).StructScan(&s); err != nil {
		logger.Error("CreateSale: insert failed", err, logger.Fields{"total": total.String()})
		return nil, err
	}
	return &s, nil
}

func (r *postgresSalesStore) CreateSaleItems(ctx context.Context, items []domain.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO detalle_ventas (venta_id, producto_id, cantidad, precio_unitario)
              VALUES (:venta_id, :producto_id, :cantidad, :precio_unitario)`
	if _, err := r.db.NamedExecContext(ctx, query, items); err != nil {
		logger.Error("CreateSaleItems: batch insert failed", err, logger.Fields{"venta_id": items[0].SaleID, "count": len(items)})
		return err
	}
	return nil
}

func (r *postgresSalesStore) DeleteSale(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ventas WHERE id = $1`, id); err != nil {
		logger.Error("DeleteSale: delete failed", err, logger.Fields{"venta_id": id})
		return err
	}
	return nil
}

// itemRow is a detalle_ventas row with the LEFT JOINed product columns.
type itemRow struct {
	domain.SaleItem
	Name    sql.NullString `db:"nombre"`
	Barcode *string        `db:"codigo_barras"`
}

func (row itemRow) detail() domain.SaleItemDetail {
	d := domain.SaleItemDetail{SaleItem: row.SaleItem}
	if row.Name.Valid {
		d.Product = &domain.ItemProduct{Name: row.Name.String, Barcode: row.Barcode}
	}
	return d
}

const itemSelect = `SELECT d.id, d.venta_id, d.producto_id, d.cantidad, d.precio_unitario, p.nombre, p.codigo_barras
                    FROM detalle_ventas d
                    LEFT JOIN productos p ON p.id = d.producto_id`

func (r *postgresSalesStore) ListSales(ctx context.Context) ([]domain.SaleWithItems, error) {
	var sales []domain.Sale
	if err := r.db.SelectContext(ctx, &sales, `SELECT id, total, created_at FROM ventas ORDER BY created_at DESC`); err != nil {
		logger.Error("ListSales: header query failed", err)
		return nil, err
	}
	out := make([]domain.SaleWithItems, len(sales))
	if len(sales) == 0 {
		return out, nil
	}

	ids := make([]int64, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}
	query, args, err := sqlx.In(itemSelect+` WHERE d.venta_id IN (?) ORDER BY d.id`, ids)
	if err != nil {
		return nil, err
	}
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		logger.Error("ListSales: item query failed", err)
		return nil, err
	}
	bySale := make(map[int64][]domain.SaleItemDetail)
	for _, row := range rows {
		bySale[row.SaleID] = append(bySale[row.SaleID], row.detail())
	}
	for i, s := range sales {
		items := bySale[s.ID]
		if items == nil {
			items = []domain.SaleItemDetail{}
		}
		out[i] = domain.SaleWithItems{Sale: s, Items: items}
	}
	return out, nil
}

func (r *postgresSalesStore) ListSaleTotalsSince(ctx context.Context, since time.Time) ([]domain.SaleTotal, error) {
	totals := []domain.SaleTotal{}
	query := `SELECT total, created_at FROM ventas WHERE created_at >= $1`
	if err := r.db.SelectContext(ctx, &totals, query, since); err != nil {
		logger.Error("ListSaleTotalsSince: query failed", err)
		return nil, err
	}
	return totals, nil
}

func (r *postgresSalesStore) ListItemsWithProduct(ctx context.Context) ([]domain.SaleItemDetail, error) {
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, itemSelect+` ORDER BY d.id`); err != nil {
		logger.Error("ListItemsWithProduct: query failed", err)
		return nil, err
	}
	out := make([]domain.SaleItemDetail, len(rows))
	for i, row := range rows {
		out[i] = row.detail()
	}
	return out, nil
}
