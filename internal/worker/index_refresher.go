package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tvoloshin/orderdesk/internal/domain/model"
)

// Store exposes the subset of persistence the refresher reads from.
type Store interface {
	FindAll(ctx context.Context) ([]model.Order, error)
}

// Index exposes the subset of index functionality the refresher drives.
type Index interface {
	Rebuild(orders []model.Order)
}

// IndexRefresher periodically reloads all orders from the store and swaps
// them into the index. The index may briefly lag durable state between
// coordinator writes; the refresher bounds that lag with a full
// reconciliation pass.
type IndexRefresher struct {
	store    Store
	index    Index
	interval time.Duration
	logger   *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewIndexRefresher constructs the refresher.
func NewIndexRefresher(store Store, index Index, interval time.Duration, logger *slog.Logger) *IndexRefresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IndexRefresher{
		store:    store,
		index:    index,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background reconciliation loop.
func (r *IndexRefresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(runCtx)
}

// Stop halts the loop and waits for it to finish.
func (r *IndexRefresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *IndexRefresher) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *IndexRefresher) refresh(ctx context.Context) {
	orders, err := r.store.FindAll(ctx)
	if err != nil {
		r.logger.Error("index refresh failed", slog.String("error", err.Error()))
		return
	}
	r.index.Rebuild(orders)
	r.logger.Debug("index rebuilt", slog.Int("orders", len(orders)))
}
