package service

import (
	"context"
	"strings"
	"sync"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/catalog/repository"
	"github.com/ridloal/punto-venta/internal/platform/logger"
)

// CatalogView is a snapshot of what the maintenance screen shows.
type CatalogView struct {
	Products  []domain.Product `json:"productos"`
	Search    string           `json:"busqueda"`
	Loading   bool             `json:"cargando"`
	LastError string           `json:"error,omitempty"`
}

type Maintenance interface {
	View() CatalogView
	Refresh(ctx context.Context) error
	SetSearch(ctx context.Context, text string) error
	Create(ctx context.Context, form ProductForm) (*domain.Product, error)
	Update(ctx context.Context, id int64, form ProductForm) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	HandleChange(ev domain.ChangeEvent)
}

type maintenanceImpl struct {
	store repository.CatalogStore

	mu       sync.Mutex
	view     CatalogView
	gen      uint64 // fetches started
	inFlight int
}

// NewMaintenance returns the catalog maintenance workflow. The view is empty
// until the first Refresh.
func NewMaintenance(store repository.CatalogStore) Maintenance {
	return &maintenanceImpl{store: store, view: CatalogView{Products: []domain.Product{}}}
}

func (m *maintenanceImpl) View() CatalogView {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.view
	v.Products = append([]domain.Product(nil), m.view.Products...)
	return v
}

// Refresh re-fetches the list for the current search text. Results of a fetch
// that was overtaken by a newer one are dropped. On failure the previous list
// stays in place and the error is kept on the view.
func (m *maintenanceImpl) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	search := m.view.Search
	m.inFlight++
	m.view.Loading = true
	m.mu.Unlock()

	var products []domain.Product
	var err error
	if search != "" {
		products, err = m.store.SearchProducts(ctx, search)
	} else {
		products, err = m.store.ListProducts(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	m.view.Loading = m.inFlight > 0
	if gen != m.gen {
		return err
	}
	if err != nil {
		logger.Error("Maintenance: catalog fetch failed", err, logger.Fields{"search": search})
		m.view.LastError = err.Error()
		return err
	}
	if products == nil {
		products = []domain.Product{}
	}
	m.view.Products = products
	m.view.LastError = ""
	return nil
}

// SetSearch replaces the view with matches for text, or with the full list
// when text is blank.
func (m *maintenanceImpl) SetSearch(ctx context.Context, text string) error {
	m.mu.Lock()
	m.view.Search = strings.TrimSpace(text)
	m.mu.Unlock()
	return m.Refresh(ctx)
}

func (m *maintenanceImpl) Create(ctx context.Context, form ProductForm) (*domain.Product, error) {
	in, err := form.Validate()
	if err != nil {
		return nil, err
	}
	p, err := m.store.CreateProduct(ctx, in)
	if err != nil {
		logger.Error("Maintenance: create failed", err, logger.Fields{"nombre": in.Name})
		return nil, err
	}
	logger.Info("Maintenance: product %d created", p.ID)
	m.refreshAfterWrite(ctx)
	return p, nil
}

func (m *maintenanceImpl) Update(ctx context.Context, id int64, form ProductForm) (*domain.Product, error) {
	in, err := form.Validate()
	if err != nil {
		return nil, err
	}
	p, err := m.store.UpdateProduct(ctx, id, in)
	if err != nil {
		logger.Error("Maintenance: update failed", err, logger.Fields{"product_id": id})
		return nil, err
	}
	logger.Info("Maintenance: product %d updated", id)
	m.refreshAfterWrite(ctx)
	return p, nil
}

func (m *maintenanceImpl) Delete(ctx context.Context, id int64) error {
	if err := m.store.DeleteProduct(ctx, id); err != nil {
		logger.Error("Maintenance: delete failed", err, logger.Fields{"product_id": id})
		return err
	}
	logger.Info("Maintenance: product %d deleted", id)
	m.refreshAfterWrite(ctx)
	return nil
}

// refreshAfterWrite reloads the view once a write has landed. A failed reload
// does not fail the write; the error is left on the view.
func (m *maintenanceImpl) refreshAfterWrite(ctx context.Context) {
	_ = m.Refresh(ctx)
}

// HandleChange reloads the view for a change made elsewhere.
func (m *maintenanceImpl) HandleChange(ev domain.ChangeEvent) {
	logger.Debug("Maintenance: change %s on product %d, reloading", ev.Type, ev.ProductID)
	_ = m.Refresh(context.Background())
}
