package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ridloal/punto-venta/internal/platform/postgrest"
	"github.com/ridloal/punto-venta/internal/sales/domain"
	"github.com/shopspring/decimal"
)

const (
	ventasTable   = "ventas"
	detalleTable  = "detalle_ventas"
	productEmbed  = "productos(nombre,codigo_barras)"
	saleListQuery = "*," + detalleTable + "(*," + productEmbed + ")"
)

type restSalesStore struct {
	client *postgrest.Client
}

// NewRESTSalesStore returns a SalesStore backed by a PostgREST endpoint.
func NewRESTSalesStore(client *postgrest.Client) SalesStore {
	return &restSalesStore{client: client}
}

type saleRow struct {
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

func (r *restSalesStore) CreateSale(ctx context.Context, total decimal.Decimal, createdAt time.Time) (*domain.Sale, error) {
	var rows []domain.Sale
	_, err := r.client.Do(ctx, postgrest.Request{
		Method: http.MethodPost,
		Table:  ventasTable,
		Body:   []saleRow{{Total: total, CreatedAt: createdAt.UTC()}},
		Prefer: []string{"return=representation"},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("store returned %d rows for created sale", len(rows))
	}
	return &rows[0], nil
}

func (r *restSalesStore) CreateSaleItems(ctx context.Context, items []domain.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := r.client.Do(ctx, postgrest.Request{
		Method: http.MethodPost,
		Table:  detalleTable,
		Body:   items,
		Prefer: []string{"return=minimal"},
	}, nil)
	return err
}

func (r *restSalesStore) DeleteSale(ctx context.Context, id int64) error {
	q := url.Values{}
	q.Set("id", postgrest.Eq(strconv.FormatInt(id, 10)))
	_, err := r.client.Do(ctx, postgrest.Request{Method: http.MethodDelete, Table: ventasTable, Query: q}, nil)
	return err
}

func (r *restSalesStore) ListSales(ctx context.Context) ([]domain.SaleWithItems, error) {
	q := url.Values{}
	q.Set("select", saleListQuery)
	q.Set("order", "created_at.desc")
	sales := []domain.SaleWithItems{}
	if _, err := r.client.Do(ctx, postgrest.Request{Method: http.MethodGet, Table: ventasTable, Query: q}, &sales); err != nil {
		return nil, err
	}
	for i := range sales {
		if sales[i].Items == nil {
			sales[i].Items = []domain.SaleItemDetail{}
		}
	}
	return sales, nil
}

func (r *restSalesStore) ListSaleTotalsSince(ctx context.Context, since time.Time) ([]domain.SaleTotal, error) {
	q := url.Values{}
	q.Set("select", "total,created_at")
	q.Set("created_at", "gte."+since.UTC().Format(time.RFC3339))
	totals := []domain.SaleTotal{}
	if _, err := r.client.Do(ctx, postgrest.Request{Method: http.MethodGet, Table: ventasTable, Query: q}, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *restSalesStore) ListItemsWithProduct(ctx context.Context) ([]domain.SaleItemDetail, error) {
	q := url.Values{}
	q.Set("select", "producto_id,cantidad,"+productEmbed)
	items := []domain.SaleItemDetail{}
	if _, err := r.client.Do(ctx, postgrest.Request{Method: http.MethodGet, Table: detalleTable, Query: q}, &items); err != nil {
		return nil, err
	}
	return items, nil
}
