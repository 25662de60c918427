package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/platform/database"
	"github.com/ridloal/punto-venta/internal/platform/logger"
)

const productColumns = `id, nombre, codigo_barras, precio_costo, precio_venta, updated_at`

type postgresCatalogStore struct {
	db *sqlx.DB
}

func NewPostgresCatalogStore(db *sqlx.DB) CatalogStore {
	return &postgresCatalogStore{db: db}
}

func (r *postgresCatalogStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	query := `SELECT ` + productColumns + ` FROM productos ORDER BY updated_at DESC`
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		logger.Error("ListProducts: query failed", err)
		return nil, err
	}
	return products, nil
}

func (r *postgresCatalogStore) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	products := []domain.Product{}
	query := `SELECT ` + productColumns + ` FROM productos
              WHERE nombre ILIKE $1 OR codigo_barras ILIKE $1
              ORDER BY updated_at DESC`
	if err := r.db.SelectContext(ctx, &products, query, "%"+term+"%"); err != nil {
		logger.Error("SearchProducts: query failed", err, logger.Fields{"term": term})
		return nil, err
	}
	return products, nil
}

func (r *postgresCatalogStore) getBy(ctx context.Context, column string, value interface{}) (*domain.Product, bool, error) {
	var p domain.Product
	query := `SELECT ` + productColumns + ` FROM productos WHERE ` + column + ` = $1`
	err := r.db.GetContext(ctx, &p, query, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		logger.Error("GetProductBy"+column+": query failed", err)
		return nil, false, err
	}
	return &p, true, nil
}

func (r *postgresCatalogStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, bool, error) {
	return r.getBy(ctx, "id", id)
}

func (r *postgresCatalogStore) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, bool, error) {
	return r.getBy(ctx, "codigo_barras", barcode)
}

func (r *postgresCatalogStore) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	query := `INSERT INTO productos (nombre, codigo_barras, precio_costo, precio_venta, updated_at)
              VALUES ($1, $2, $3, $4, now()) RETURNING ` + productColumns
	var p domain.Product
	err := r.db.QueryRowxContext(ctx, query, in.Name, in.Barcode, in.CostPrice, in.SalePrice).StructScan(&p)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateBarcode
		}
		logger.Error("CreateProduct: insert failed", err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresCatalogStore) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	query := `UPDATE productos
              SET nombre = $1, codigo_barras = $2, precio_costo = $3, precio_venta = $4, updated_at = now()
              WHERE id = $5 RETURNING ` + productColumns
	var p domain.Product
	err := r.db.QueryRowxContext(ctx, query, in.Name, in.Barcode, in.CostPrice, in.SalePrice, id).StructScan(&p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateBarcode
		}
		logger.Error("UpdateProduct: update failed", err, logger.Fields{"product_id": id})
		return nil, err
	}
	return &p, nil
}

// DeleteProduct removes the row. Deleting an id that does not exist is not an error.
func (r *postgresCatalogStore) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM productos WHERE id = $1`, id); err != nil {
		logger.Error("DeleteProduct: delete failed", err, logger.Fields{"product_id": id})
		return err
	}
	return nil
}
