package service

import (
	"context"
	"time"

	"github.com/ridloal/punto-venta/internal/cart"
	"github.com/ridloal/punto-venta/internal/platform/eventbus"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/sales/domain"
	"github.com/shopspring/decimal"
)

// SaleRecorded is published after every successful checkout.
type SaleRecorded struct {
	SaleID    int64           `json:"venta_id"`
	Terminal  string          `json:"terminal"`
	Total     decimal.Decimal `json:"total"`
	Items     []cart.LineItem `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
}

type CheckoutService interface {
	Checkout(ctx context.Context, terminal string) (*domain.Sale, error)
}

type checkoutServiceImpl struct {
	carts     *cart.Registry
	submitter Submitter
	publisher eventbus.Publisher
}

func NewCheckoutService(carts *cart.Registry, submitter Submitter, publisher eventbus.Publisher) CheckoutService {
	return &checkoutServiceImpl{carts: carts, submitter: submitter, publisher: publisher}
}

// Checkout submits the terminal's cart. On success the cart is emptied and a
// success notice is raised; on any failure the cart is left as it was. The
// cart cannot be edited until the submission ends.
func (s *checkoutServiceImpl) Checkout(ctx context.Context, terminal string) (*domain.Sale, error) {
	items, err := s.carts.BeginSubmission(terminal)
	if err != nil {
		logger.Warn("Checkout: terminal %s already submitting", terminal)
		return nil, err
	}
	sale, err := s.submit(ctx, terminal, items)
	if err != nil {
		return nil, err
	}
	logger.Info("Checkout: terminal %s recorded sale %d", terminal, sale.ID)

	ev := SaleRecorded{SaleID: sale.ID, Terminal: terminal, Total: sale.Total, Items: items, CreatedAt: sale.CreatedAt}
	if err := s.publisher.Publish(ctx, eventbus.RoutingSaleRecorded, ev); err != nil {
		logger.Error("Checkout: failed to publish sale event", err, logger.Fields{"venta_id": sale.ID})
	}
	return sale, nil
}

// submit records items and always ends the terminal's submission, even if
// the store panics.
func (s *checkoutServiceImpl) submit(ctx context.Context, terminal string, items []cart.LineItem) (*domain.Sale, error) {
	var notice *cart.Notice
	defer func() { s.carts.EndSubmission(terminal, notice) }()

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	out := s.submitter.Submit(ctx, items)
	if !out.Succeeded() {
		return nil, out.Err
	}
	notice = &cart.Notice{SaleID: out.Sale.ID, Total: out.Sale.Total, At: out.Sale.CreatedAt}
	return out.Sale, nil
}
