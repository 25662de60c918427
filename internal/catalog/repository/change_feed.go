package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/ridloal/punto-venta/internal/catalog/domain"
	"github.com/ridloal/punto-venta/internal/platform/database"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/platform/postgrest"
)

// --- LISTEN/NOTIFY feed ---

type pgChangeFeed struct {
	dsn string
}

// NewPostgresChangeFeed listens on the channel fed by the productos trigger.
func NewPostgresChangeFeed(dsn string) ChangeFeed {
	return &pgChangeFeed{dsn: dsn}
}

type notifyPayload struct {
	Type domain.ChangeType `json:"type"`
	ID   int64             `json:"id"`
}

func (f *pgChangeFeed) Subscribe(ctx context.Context, fn func(domain.ChangeEvent)) (Subscription, error) {
	l := pq.NewListener(f.dsn, 5*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error("ChangeFeed: listener event", err, logger.Fields{"event": int(ev)})
		}
	})
	if err := l.Listen(database.ChangesChannel); err != nil {
		l.Close()
		return nil, err
	}

	sub := &stopSubscription{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer l.Close()
		for {
			select {
			case <-sub.stop:
				return
			case <-ctx.Done():
				return
			case n := <-l.Notify:
				fn(decodeNotification(n))
			case <-time.After(90 * time.Second):
				go l.Ping()
			}
		}
	}()
	return sub, nil
}

// decodeNotification turns a NOTIFY payload into an event. A nil notification
// follows a reconnect, when events may have been missed.
func decodeNotification(n *pq.Notification) domain.ChangeEvent {
	ev := domain.ChangeEvent{Type: domain.ChangeAny, At: time.Now().UTC()}
	if n == nil {
		return ev
	}
	var p notifyPayload
	if err := json.Unmarshal([]byte(n.Extra), &p); err != nil {
		logger.Warn("ChangeFeed: undecodable payload %q", n.Extra)
		return ev
	}
	if p.Type != "" {
		ev.Type = p.Type
	}
	ev.ProductID = p.ID
	return ev
}

type stopSubscription struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func (s *stopSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// --- Polling feed for the REST backend ---

type fingerprint struct {
	count  int64
	newest time.Time
}

type pollingChangeFeed struct {
	client *postgrest.Client
	spec   string
}

// NewPollingChangeFeed detects catalog changes by periodically comparing the
// row count and newest updated_at. spec is a cron schedule such as "@every 5s".
func NewPollingChangeFeed(client *postgrest.Client, spec string) ChangeFeed {
	return &pollingChangeFeed{client: client, spec: spec}
}

func (f *pollingChangeFeed) fetch(ctx context.Context) (fingerprint, error) {
	q := url.Values{}
	q.Set("select", "updated_at")
	q.Set("order", "updated_at.desc")
	q.Set("limit", "1")
	var rows []struct {
		UpdatedAt time.Time `json:"updated_at"`
	}
	h, err := f.client.Do(ctx, postgrest.Request{
		Method: http.MethodGet,
		Table:  productosTable,
		Query:  q,
		Prefer: []string{"count=exact"},
	}, &rows)
	if err != nil {
		return fingerprint{}, err
	}
	fp := fingerprint{count: postgrest.TotalCount(h)}
	if len(rows) > 0 {
		fp.newest = rows[0].UpdatedAt
	}
	return fp, nil
}

// poller holds the last seen fingerprint between cron ticks.
type poller struct {
	feed *pollingChangeFeed
	fn   func(domain.ChangeEvent)

	mu   sync.Mutex
	last fingerprint
	seen bool
}

func (p *poller) check(ctx context.Context) {
	fp, err := p.feed.fetch(ctx)
	if err != nil {
		logger.Error("ChangeFeed: poll failed", err)
		return
	}
	p.mu.Lock()
	changed := p.seen && (fp.count != p.last.count || !fp.newest.Equal(p.last.newest))
	p.last, p.seen = fp, true
	p.mu.Unlock()
	if changed {
		p.fn(domain.ChangeEvent{Type: domain.ChangeAny, At: time.Now().UTC()})
	}
}

func (f *pollingChangeFeed) Subscribe(ctx context.Context, fn func(domain.ChangeEvent)) (Subscription, error) {
	p := &poller{feed: f, fn: fn}
	p.check(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(f.spec, func() { p.check(ctx) }); err != nil {
		return nil, err
	}
	c.Start()

	sub := &stopSubscription{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		select {
		case <-sub.stop:
		case <-ctx.Done():
		}
		<-c.Stop().Done()
	}()
	return sub, nil
}
