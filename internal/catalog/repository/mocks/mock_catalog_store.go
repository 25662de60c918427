package mocks

import (
	"context"
	"sync"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/catalog/repository"
	"github.com/stretchr/testify/mock"
)

type MockCatalogStore struct {
	mock.Mock
}

func (m *MockCatalogStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogStore) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	args := m.Called(ctx, term)
	if res := args.Get(0); res != nil {
		return res.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, bool, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*domain.Product), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MockCatalogStore) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, bool, error) {
	args := m.Called(ctx, barcode)
	if res := args.Get(0); res != nil {
		return res.(*domain.Product), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MockCatalogStore) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, in)
	if res := args.Get(0); res != nil {
		return res.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogStore) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, id, in)
	if res := args.Get(0); res != nil {
		return res.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogStore) DeleteProduct(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// FakeChangeFeed records the subscriber so tests can push events by hand.
type FakeChangeFeed struct {
	mu  sync.Mutex
	fns map[int]func(domain.ChangeEvent)
	seq int
	Err error
}

type fakeSubscription struct {
	feed *FakeChangeFeed
	id   int
}

func (s fakeSubscription) Unsubscribe() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	delete(s.feed.fns, s.id)
}

func (f *FakeChangeFeed) Subscribe(_ context.Context, fn func(domain.ChangeEvent)) (repository.Subscription, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fns == nil {
		f.fns = map[int]func(domain.ChangeEvent){}
	}
	f.seq++
	f.fns[f.seq] = fn
	return fakeSubscription{feed: f, id: f.seq}, nil
}

// Emit delivers ev to every active subscriber.
func (f *FakeChangeFeed) Emit(ev domain.ChangeEvent) {
	f.mu.Lock()
	fns := make([]func(domain.ChangeEvent), 0, len(f.fns))
	for _, fn := range f.fns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers returns the number of active subscriptions.
func (f *FakeChangeFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fns)
}
