package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ridloal/punto-venta/internal/cart"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/sales/domain"
	"github.com/ridloal/punto-venta/internal/sales/repository"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSaleHeaderFailed = errors.New("sale could not be created")
	ErrSaleItemsFailed  = errors.New("sale items could not be recorded")
)

// State is a step of the two-write sale submission.
type State string

const (
	StatePending            State = "PENDING"
	StateHeaderCreated      State = "HEADER_CREATED"
	StateLineItemsCreated   State = "LINE_ITEMS_CREATED"
	StateCompensatingDelete State = "COMPENSATING_DELETE"
	StateFailed             State = "FAILED"
)

// Outcome is the result of one submission. Exactly one of Sale and Err is
// set. CompensationErr is set only when the header created for a failed
// submission could not be deleted; it never replaces Err.
type Outcome struct {
	State           State
	Path            []State
	Sale            *domain.Sale
	Err             error
	CompensationErr error
}

func (o Outcome) Succeeded() bool {
	return o.State == StateLineItemsCreated
}

type Submitter interface {
	Submit(ctx context.Context, items []cart.LineItem) Outcome
}

type submitterImpl struct {
	store repository.SalesStore
	now   func() time.Time
}

func NewSubmitter(store repository.SalesStore) Submitter {
	return &submitterImpl{store: store, now: time.Now}
}

// Submit records items as one sale: the header first, then all line items
// in a single batch. When the batch fails the header is deleted again.
// items must be a snapshot; it is not read after the total is computed.
func (s *submitterImpl) Submit(ctx context.Context, items []cart.LineItem) Outcome {
	out := Outcome{State: StatePending, Path: []State{StatePending}}
	move := func(st State) {
		out.State = st
		out.Path = append(out.Path, st)
	}

	if len(items) == 0 {
		move(StateFailed)
		out.Err = ErrEmptyCart
		return out
	}

	total := cart.Total(items)
	sale, err := s.store.CreateSale(ctx, total, s.now().UTC())
	if err != nil {
		logger.Error("Submit: failed to create sale header", err, logger.Fields{"total": total.String()})
		move(StateFailed)
		out.Err = fmt.Errorf("%w: %w", ErrSaleHeaderFailed, err)
		return out
	}
	move(StateHeaderCreated)
	logger.Info("Submit: sale %d created with total %s", sale.ID, total.String())

	rows := make([]domain.SaleItem, len(items))
	for i, li := range items {
		pid := li.ProductID
		rows[i] = domain.SaleItem{
			SaleID:    sale.ID,
			ProductID: &pid,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		}
	}

	if err := s.store.CreateSaleItems(ctx, rows); err != nil {
		logger.Error("Submit: failed to record sale items, deleting header", err, logger.Fields{"venta_id": sale.ID})
		move(StateCompensatingDelete)
		// The header must go even if the caller has given up on the request.
		if delErr := s.store.DeleteSale(context.WithoutCancel(ctx), sale.ID); delErr != nil {
			logger.Error(fmt.Sprintf("CRITICAL: failed to delete sale %d after its items failed", sale.ID), delErr, logger.Fields{"venta_id": sale.ID})
			out.CompensationErr = delErr
		}
		move(StateFailed)
		out.Err = fmt.Errorf("%w: %w", ErrSaleItemsFailed, err)
		return out
	}

	move(StateLineItemsCreated)
	out.Sale = sale
	return out
}
