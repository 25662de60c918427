package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound       = errors.New("no cart for terminal")
	ErrSubmissionInFlight = errors.New("a sale is already being submitted from this terminal")
)

// Notice is the transient confirmation shown after a sale is recorded.
type Notice struct {
	SaleID int64           `json:"venta_id"`
	Total  decimal.Decimal `json:"total"`
	At     time.Time       `json:"at"`
}

// Snapshot is a read-only copy of a terminal's cart and submission state.
type Snapshot struct {
	Terminal   string          `json:"terminal"`
	Items      []LineItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Submitting bool            `json:"enviando"`
	Notice     *Notice         `json:"aviso,omitempty"`
}

type terminal struct {
	mu          sync.Mutex
	cart        *Cart
	submitting  bool
	notice      *Notice
	noticeTimer *time.Timer
}

func (t *terminal) snapshot(id string) Snapshot {
	items := t.cart.Items()
	return Snapshot{
		Terminal:   id,
		Items:      items,
		Total:      Total(items),
		Submitting: t.submitting,
		Notice:     t.notice,
	}
}

// Registry keeps one cart per terminal id. All mutations of a terminal's
// cart happen under that terminal's lock.
type Registry struct {
	noticeTTL time.Duration

	mu        sync.Mutex
	terminals map[string]*terminal
}

// NewRegistry returns an empty registry. Success notices are cleared
// noticeTTL after they are raised.
func NewRegistry(noticeTTL time.Duration) *Registry {
	return &Registry{noticeTTL: noticeTTL, terminals: map[string]*terminal{}}
}

func (r *Registry) lookup(id string, create bool) *terminal {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.terminals[id]
	if !ok && create {
		t = &terminal{cart: New()}
		r.terminals[id] = t
	}
	return t
}

// Get returns the snapshot of an existing terminal.
func (r *Registry) Get(id string) (Snapshot, error) {
	t := r.lookup(id, false)
	if t == nil {
		return Snapshot{}, ErrCartNotFound
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot(id), nil
}

// GetOrCreate returns the terminal's snapshot, starting an empty cart the
// first time a terminal is seen.
func (r *Registry) GetOrCreate(id string) Snapshot {
	t := r.lookup(id, true)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot(id)
}

// With runs fn on the terminal's cart under its lock and returns the
// resulting snapshot. The cart is frozen while a submission is in flight:
// fn is not run and ErrSubmissionInFlight is returned with the current
// snapshot.
func (r *Registry) With(id string, fn func(c *Cart)) (Snapshot, error) {
	t := r.lookup(id, true)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitting {
		return t.snapshot(id), ErrSubmissionInFlight
	}
	fn(t.cart)
	return t.snapshot(id), nil
}

// BeginSubmission marks the terminal as submitting and returns a copy of its
// items. It fails with ErrSubmissionInFlight while another submission from
// the same terminal has not finished.
func (r *Registry) BeginSubmission(id string) ([]LineItem, error) {
	t := r.lookup(id, true)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitting {
		return nil, ErrSubmissionInFlight
	}
	t.submitting = true
	return t.cart.Items(), nil
}

// EndSubmission clears the in-flight flag. When notice is non-nil the sale
// was recorded: the cart is emptied and the notice is shown until the TTL
// expires. A nil notice leaves the cart as it was.
func (r *Registry) EndSubmission(id string, notice *Notice) {
	t := r.lookup(id, true)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitting = false
	if notice == nil {
		return
	}
	t.cart.Clear()
	t.notice = notice
	if t.noticeTimer != nil {
		t.noticeTimer.Stop()
	}
	t.noticeTimer = time.AfterFunc(r.noticeTTL, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.notice == notice {
			t.notice = nil
		}
	})
}

// Terminals lists the ids that have a cart.
func (r *Registry) Terminals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.terminals))
	for id := range r.terminals {
		ids = append(ids, id)
	}
	return ids
}
