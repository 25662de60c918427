package service

import (
	"context"
	"sync"

	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/catalog/repository"
	"github.com/ridloal/punto-venta/internal/platform/logger"
)

// Notifier holds a single ChangeFeed subscription and fans every event out
// to the registered listeners.
type Notifier struct {
	feed repository.ChangeFeed

	subMu sync.Mutex
	sub   repository.Subscription

	mu        sync.Mutex
	listeners map[int]func(domain.ChangeEvent)
	seq       int
}

func NewNotifier(feed repository.ChangeFeed) *Notifier {
	return &Notifier{feed: feed, listeners: map[int]func(domain.ChangeEvent){}}
}

// Start subscribes to the feed. Calling Start on a running notifier is a no-op.
func (n *Notifier) Start(ctx context.Context) error {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.sub != nil {
		return nil
	}
	sub, err := n.feed.Subscribe(ctx, n.dispatch)
	if err != nil {
		logger.Error("Notifier: subscribe failed", err)
		return err
	}
	n.sub = sub
	logger.Info("Notifier: subscribed to catalog changes")
	return nil
}

// Stop releases the feed subscription. Listeners stay registered.
func (n *Notifier) Stop() {
	n.subMu.Lock()
	sub := n.sub
	n.sub = nil
	n.subMu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Register adds fn as a listener and returns the func that removes it.
func (n *Notifier) Register(fn func(domain.ChangeEvent)) (cancel func()) {
	n.mu.Lock()
	n.seq++
	id := n.seq
	n.listeners[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

func (n *Notifier) dispatch(ev domain.ChangeEvent) {
	n.mu.Lock()
	fns := make([]func(domain.ChangeEvent), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	logger.Debug("Notifier: %s event for product %d to %d listeners", ev.Type, ev.ProductID, len(fns))
	for _, fn := range fns {
		fn(ev)
	}
}

// Listeners returns the number of registered listeners.
func (n *Notifier) Listeners() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
