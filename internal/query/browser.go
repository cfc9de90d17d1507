package query

import (
	"context"
	"sync"
	"time"

	"github.com/erazemk/shramba/internal/live"
	"github.com/erazemk/shramba/internal/model"
)

// DefaultDebounce is the quiet period after a query edit before the result
// is recomputed.
const DefaultDebounce = 300 * time.Millisecond

// Source supplies live inventory snapshots.
type Source interface {
	Watch(ctx context.Context) *live.Subscription[[]model.InventoryRecord]
}

// Result is one evaluated snapshot.
type Result struct {
	Query   Query                   `json:"query"`
	Records []model.InventoryRecord `json:"records"`
}

// Browser keeps the result of a changing query over changing data. Data
// changes are re-evaluated immediately; query edits are debounced so that
// a burst of edits costs one evaluation.
type Browser struct {
	debounce time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending *Query
	edited  chan struct{}

	out    chan Result
	cancel context.CancelFunc
	done   chan struct{}
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithDebounce sets the quiet period after query edits.
func WithDebounce(d time.Duration) BrowserOption {
	return func(b *Browser) { b.debounce = d }
}

// WithClock sets the time source used for shelf-life sorting.
func WithClock(now func() time.Time) BrowserOption {
	return func(b *Browser) { b.now = now }
}

// NewBrowser starts browsing src with the initial query q. The first
// result is delivered as soon as the first snapshot arrives. The browser
// stops when ctx is cancelled or Close is called.
func NewBrowser(ctx context.Context, src Source, q Query, opts ...BrowserOption) *Browser {
	ctx, cancel := context.WithCancel(ctx)
	b := &Browser{
		debounce: DefaultDebounce,
		now:      time.Now,
		edited:   make(chan struct{}, 1),
		out:      make(chan Result, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run(ctx, src.Watch(ctx), q)
	return b
}

// Results delivers the latest evaluated result. It holds at most one
// undelivered result and is closed when the browser stops.
func (b *Browser) Results() <-chan Result {
	return b.out
}

// SetQuery replaces the current query. It never blocks.
func (b *Browser) SetQuery(q Query) {
	b.mu.Lock()
	b.pending = &q
	b.mu.Unlock()

	select {
	case b.edited <- struct{}{}:
	default:
	}
}

// Close stops the browser and waits for it to exit.
func (b *Browser) Close() {
	b.cancel()
	<-b.done
}

func (b *Browser) takePending() (Query, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return Query{}, false
	}
	q := *b.pending
	b.pending = nil
	return q, true
}

func (b *Browser) run(ctx context.Context, sub *live.Subscription[[]model.InventoryRecord], q Query) {
	defer close(b.done)
	defer close(b.out)
	defer sub.Close()

	var (
		records []model.InventoryRecord
		loaded  bool
	)
	emit := func() {
		if loaded {
			live.Offer(b.out, Result{Query: q, Records: Apply(records, q, b.now())})
		}
	}

	timer := time.NewTimer(b.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case recs, ok := <-sub.C:
			if !ok {
				return
			}
			records, loaded = recs, true
			emit()

		case <-b.edited:
			timer.Reset(b.debounce)

		case <-timer.C:
			if next, ok := b.takePending(); ok {
				q = next
				emit()
			}
		}
	}
}
