package service

import (
	"context"
	"time"

	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/sales/domain"
	"github.com/ridloal/punto-venta/internal/sales/repository"
	"github.com/shopspring/decimal"
)

// ProductSales is the accumulated quantity sold of one product.
type ProductSales struct {
	ProductID int64   `json:"producto_id"`
	Name      string  `json:"nombre"`
	Barcode   *string `json:"codigo_barras"`
	Quantity  int     `json:"cantidad"`
}

// Summary is the dashboard panel. BestSeller is nil when nothing has been
// sold yet.
type Summary struct {
	TotalToday decimal.Decimal `json:"total_hoy"`
	SalesToday int             `json:"ventas_hoy"`
	BestSeller *ProductSales   `json:"mas_vendido"`
	Ranking    []ProductSales  `json:"ranking"`
}

type SummaryService interface {
	TotalToday(ctx context.Context) (decimal.Decimal, int, error)
	BestSeller(ctx context.Context) (*ProductSales, []ProductSales, error)
	Summary(ctx context.Context) (*Summary, error)
}

type summaryServiceImpl struct {
	store repository.SalesStore
	loc   *time.Location
	now   func() time.Time
}

func NewSummaryService(store repository.SalesStore, loc *time.Location) SummaryService {
	if loc == nil {
		loc = time.Local
	}
	return &summaryServiceImpl{store: store, loc: loc, now: time.Now}
}

// StartOfDay returns local midnight of the day t falls on in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SumTotals adds up the totals, counting a missing total as zero.
func SumTotals(totals []domain.SaleTotal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		if t.Total.Valid {
			sum = sum.Add(t.Total.Decimal)
		}
	}
	return sum
}

// RankProducts accumulates quantity per product in first-seen order. Items
// whose product is gone are skipped. The best seller is the entry with the
// highest quantity; on a tie the one seen first wins, so the result depends
// on the order the store returned the rows in.
func RankProducts(items []domain.SaleItemDetail) (best *ProductSales, ranking []ProductSales) {
	index := map[int64]int{}
	ranking = []ProductSales{}
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		i, ok := index[*it.ProductID]
		if !ok {
			ps := ProductSales{ProductID: *it.ProductID}
			if it.Product != nil {
				ps.Name = it.Product.Name
				ps.Barcode = it.Product.Barcode
			}
			ranking = append(ranking, ps)
			i = len(ranking) - 1
			index[*it.ProductID] = i
		}
		ranking[i].Quantity += it.Quantity
	}

	for i := range ranking {
		if best == nil || ranking[i].Quantity > best.Quantity {
			best = &ranking[i]
		}
	}
	if best != nil {
		b := *best
		best = &b
	}
	return best, ranking
}

func (s *summaryServiceImpl) TotalToday(ctx context.Context) (decimal.Decimal, int, error) {
	since := StartOfDay(s.now(), s.loc)
	totals, err := s.store.ListSaleTotalsSince(ctx, since)
	if err != nil {
		logger.Error("TotalToday: failed to load sales", err, logger.Fields{"since": since.Format(time.RFC3339)})
		return decimal.Zero, 0, err
	}
	return SumTotals(totals), len(totals), nil
}

func (s *summaryServiceImpl) BestSeller(ctx context.Context) (*ProductSales, []ProductSales, error) {
	items, err := s.store.ListItemsWithProduct(ctx)
	if err != nil {
		logger.Error("BestSeller: failed to load sale items", err)
		return nil, nil, err
	}
	best, ranking := RankProducts(items)
	return best, ranking, nil
}

func (s *summaryServiceImpl) Summary(ctx context.Context) (*Summary, error) {
	total, count, err := s.TotalToday(ctx)
	if err != nil {
		return nil, err
	}
	best, ranking, err := s.BestSeller(ctx)
	if err != nil {
		return nil, err
	}
	return &Summary{TotalToday: total, SalesToday: count, BestSeller: best, Ranking: ranking}, nil
}
