package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ridloal/punto-venta/internal/cart"
	catalogDomain "github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/platform/eventbus"
	"github.com/ridloal/punto-venta/internal/sales/domain"
	"github.com/ridloal/punto-venta/internal/sales/repository/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []interface{}
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, payload)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

var pan = catalogDomain.Product{ID: 7, Name: "Pan", SalePrice: decimal.NewFromInt(990)}

func TestCheckout_ScanTwiceAndConfirm(t *testing.T) {
	ctx := context.TODO()
	store := new(mocks.MockSalesStore)
	pub := &recordingPublisher{}
	carts := cart.NewRegistry(time.Minute)
	svc := NewCheckoutService(carts, newTestSubmitter(store), pub)

	carts.With("caja-1", func(c *cart.Cart) { c.Add(pan) })
	snap, err := carts.With("caja-1", func(c *cart.Cart) { c.Add(pan) })
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(1980).Equal(snap.Total))

	sale := &domain.Sale{ID: 100, Total: decimal.NewFromInt(1980), CreatedAt: fixedNow}
	store.On("CreateSale", ctx, decimalEq(1980), fixedNow).Return(sale, nil).Once()
	store.On("CreateSaleItems", ctx, mock.MatchedBy(func(items []domain.SaleItem) bool {
		return len(items) == 1 &&
			items[0].SaleID == 100 &&
			*items[0].ProductID == 7 &&
			items[0].Quantity == 2 &&
			items[0].UnitPrice.Equal(decimal.NewFromInt(990))
	})).Return(nil).Once()

	got, err := svc.Checkout(ctx, "caja-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.ID)

	after := carts.GetOrCreate("caja-1")
	assert.Empty(t, after.Items)
	require.NotNil(t, after.Notice)
	assert.Equal(t, int64(100), after.Notice.SaleID)
	assert.False(t, after.Submitting)

	require.Len(t, pub.keys, 1)
	assert.Equal(t, eventbus.RoutingSaleRecorded, pub.keys[0])
	ev := pub.events[0].(SaleRecorded)
	assert.Equal(t, "caja-1", ev.Terminal)
	assert.Len(t, ev.Items, 1)
	store.AssertExpectations(t)
}

func TestCheckout_FailureLeavesCart(t *testing.T) {
	ctx := context.TODO()
	store := new(mocks.MockSalesStore)
	pub := &recordingPublisher{}
	carts := cart.NewRegistry(time.Minute)
	svc := NewCheckoutService(carts, newTestSubmitter(store), pub)

	a := catalogDomain.Product{ID: 1, Name: "A", SalePrice: decimal.NewFromInt(1000)}
	carts.With("caja-1", func(c *cart.Cart) {
		c.Add(a)
		c.SetQuantity(1, 2)
	})

	store.On("CreateSale", ctx, decimalEq(2000), fixedNow).Return(&domain.Sale{ID: 42}, nil).Once()
	store.On("CreateSaleItems", ctx, mock.Anything).Return(errors.New("batch failed")).Once()
	store.On("DeleteSale", mock.Anything, int64(42)).Return(nil).Once()

	_, err := svc.Checkout(ctx, "caja-1")
	assert.ErrorIs(t, err, ErrSaleItemsFailed)

	snap := carts.GetOrCreate("caja-1")
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(2000).Equal(snap.Total))
	assert.Nil(t, snap.Notice)
	assert.False(t, snap.Submitting)
	assert.Empty(t, pub.keys)
	store.AssertExpectations(t)
}

func TestCheckout_EmptyCart(t *testing.T) {
	store := new(mocks.MockSalesStore)
	svc := NewCheckoutService(cart.NewRegistry(time.Minute), newTestSubmitter(store), eventbus.NopPublisher{})

	_, err := svc.Checkout(context.TODO(), "caja-9")
	assert.ErrorIs(t, err, ErrEmptyCart)
	store.AssertNotCalled(t, "CreateSale", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_RejectsConcurrentSubmission(t *testing.T) {
	ctx := context.TODO()
	store := new(mocks.MockSalesStore)
	carts := cart.NewRegistry(time.Minute)
	svc := NewCheckoutService(carts, newTestSubmitter(store), eventbus.NopPublisher{})
	carts.With("caja-1", func(c *cart.Cart) { c.Add(pan) })

	started := make(chan struct{})
	release := make(chan struct{})
	store.On("CreateSale", ctx, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&domain.Sale{ID: 1, Total: decimal.NewFromInt(990)}, nil).Once()
	store.On("CreateSaleItems", ctx, mock.Anything).Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(ctx, "caja-1")
		done <- err
	}()

	<-started
	_, err := svc.Checkout(ctx, "caja-1")
	assert.ErrorIs(t, err, cart.ErrSubmissionInFlight)

	close(release)
	assert.NoError(t, <-done)
	store.AssertExpectations(t)
}

func TestCheckout_PublishFailureDoesNotFailSale(t *testing.T) {
	ctx := context.TODO()
	store := new(mocks.MockSalesStore)
	pub := &recordingPublisher{err: errors.New("broker down")}
	carts := cart.NewRegistry(time.Minute)
	svc := NewCheckoutService(carts, newTestSubmitter(store), pub)
	carts.With("caja-1", func(c *cart.Cart) { c.Add(pan) })

	store.On("CreateSale", ctx, mock.Anything, mock.Anything).Return(&domain.Sale{ID: 5}, nil).Once()
	store.On("CreateSaleItems", ctx, mock.Anything).Return(nil).Once()

	sale, err := svc.Checkout(ctx, "caja-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), sale.ID)
	assert.Len(t, pub.keys, 1)
}

func TestCheckout_CartFrozenDuringSubmission(t *testing.T) {
	ctx := context.TODO()
	store := new(mocks.MockSalesStore)
	carts := cart.NewRegistry(time.Minute)
	svc := NewCheckoutService(carts, newTestSubmitter(store), eventbus.NopPublisher{})
	carts.With("caja-1", func(c *cart.Cart) { c.Add(pan) })

	leche := catalogDomain.Product{ID: 8, Name: "Leche", SalePrice: decimal.NewFromInt(1200)}
	var editErr error
	store.On("CreateSale", ctx, decimalEq(990), mock.Anything).
		Run(func(mock.Arguments) {
			_, editErr = carts.With("caja-1", func(c *cart.Cart) { c.Add(leche) })
		}).
		Return(&domain.Sale{ID: 3, Total: decimal.NewFromInt(990)}, nil).Once()
	store.On("CreateSaleItems", ctx, mock.MatchedBy(func(items []domain.SaleItem) bool {
		return len(items) == 1 && *items[0].ProductID == 7
	})).Return(nil).Once()

	_, err := svc.Checkout(ctx, "caja-1")
	require.NoError(t, err)
	assert.ErrorIs(t, editErr, cart.ErrSubmissionInFlight)

	// The cart accepts edits again once the sale is recorded.
	snap, err := carts.With("caja-1", func(c *cart.Cart) { c.Add(leche) })
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(8), snap.Items[0].ProductID)
	store.AssertExpectations(t)
}

func TestCheckout_PanicReleasesTerminal(t *testing.T) {
	ctx := context.TODO()
	store := new(mocks.MockSalesStore)
	carts := cart.NewRegistry(time.Minute)
	svc := NewCheckoutService(carts, newTestSubmitter(store), eventbus.NopPublisher{})
	carts.With("caja-1", func(c *cart.Cart) { c.Add(pan) })

	store.On("CreateSale", ctx, mock.Anything, mock.Anything).
		Panic("driver bug").Once()

	assert.Panics(t, func() { _, _ = svc.Checkout(ctx, "caja-1") })

	snap := carts.GetOrCreate("caja-1")
	assert.False(t, snap.Submitting)
	assert.Len(t, snap.Items, 1)

	store.On("CreateSale", ctx, mock.Anything, mock.Anything).Return(&domain.Sale{ID: 9}, nil).Once()
	store.On("CreateSaleItems", ctx, mock.Anything).Return(nil).Once()
	_, err := svc.Checkout(ctx, "caja-1")
	assert.NoError(t, err)
}
