package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/platform/postgrest"
)

const productosTable = "productos"

type restCatalogStore struct {
	client *postgrest.Client
	now    func() time.Time
}

// NewRESTCatalogStore returns a CatalogStore backed by a PostgREST endpoint.
func NewRESTCatalogStore(client *postgrest.Client) CatalogStore {
	return &restCatalogStore{client: client, now: time.Now}
}

// productRow is the write payload; updated_at is stamped by the client.
type productRow struct {
	domain.ProductInput
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *restCatalogStore) list(ctx context.Context, q url.Values) ([]domain.Product, error) {
	q.Set("select", "*")
	q.Set("order", "updated_at.desc")
	products := []domain.Product{}
	_, err := r.client.Do(ctx, postgrest.Request{Method: http.MethodGet, Table: productosTable, Query: q}, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *restCatalogStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, url.Values{})
}

func (r *restCatalogStore) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	pattern := postgrest.Quote("*" + term + "*")
	q := url.Values{}
	q.Set("or", fmt.Sprintf("(nombre.ilike.%s,codigo_barras.ilike.%s)", pattern, pattern))
	return r.list(ctx, q)
}

func (r *restCatalogStore) getOne(ctx context.Context, column, value string) (*domain.Product, bool, error) {
	q := url.Values{}
	q.Set(column, postgrest.Eq(value))
	q.Set("limit", "1")
	products, err := r.list(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if len(products) == 0 {
		return nil, false, nil
	}
	return &products[0], true, nil
}

func (r *restCatalogStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, bool, error) {
	return r.getOne(ctx, "id", strconv.FormatInt(id, 10))
}

func (r *restCatalogStore) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, bool, error) {
	return r.getOne(ctx, "codigo_barras", barcode)
}

func (r *restCatalogStore) write(ctx context.Context, method string, q url.Values, in domain.ProductInput) ([]domain.Product, error) {
	var rows []domain.Product
	_, err := r.client.Do(ctx, postgrest.Request{
		Method: method,
		Table:  productosTable,
		Query:  q,
		Body:   productRow{ProductInput: in, UpdatedAt: r.now().UTC()},
		Prefer: []string{"return=representation"},
	}, &rows)
	if err != nil {
		if postgrest.IsCode(err, postgrest.CodeUniqueViolation) {
			return nil, ErrDuplicateBarcode
		}
		return nil, err
	}
	return rows, nil
}

func (r *restCatalogStore) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	rows, err := r.write(ctx, http.MethodPost, nil, in)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("store returned no row for created product")
	}
	return &rows[0], nil
}

func (r *restCatalogStore) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	q := url.Values{}
	q.Set("id", postgrest.Eq(strconv.FormatInt(id, 10)))
	rows, err := r.write(ctx, http.MethodPatch, q, in)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrProductNotFound
	}
	return &rows[0], nil
}

func (r *restCatalogStore) DeleteProduct(ctx context.Context, id int64) error {
	q := url.Values{}
	q.Set("id", postgrest.Eq(strconv.FormatInt(id, 10)))
	_, err := r.client.Do(ctx, postgrest.Request{Method: http.MethodDelete, Table: productosTable, Query: q}, nil)
	return err
}
