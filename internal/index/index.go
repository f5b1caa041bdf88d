package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tvoloshin/orderdesk/internal/domain/model"
)

// Source supplies the full set of persisted orders for initialization.
// Satisfied by repository.OrderRepository.
type Source interface {
	FindAll(ctx context.Context) ([]model.Order, error)
}

// Listener receives the snapshot and the stats recomputed from it after each
// index mutation. Listeners run inside the mutation critical section and
// must not call back into mutating index operations.
type Listener func(Snapshot, Stats)

// Subscription is an opaque handle returned by Subscribe.
type Subscription int64

// view is one immutable generation of index contents. A mutation never
// modifies a published view; it builds a fresh map and swaps the pointer.
type view struct {
	orders map[int64]model.Order
	stats  Stats
}

// Snapshot is a consistent point-in-time view of all indexed orders. It
// stays valid after later mutations because the backing map is never
// written again once published.
type Snapshot struct {
	v *view
}

// Len reports the number of indexed orders.
func (s Snapshot) Len() int {
	if s.v == nil {
		return 0
	}
	return len(s.v.orders)
}

// Get returns the order with the given id, if indexed.
func (s Snapshot) Get(id int64) (model.Order, bool) {
	if s.v == nil {
		return model.Order{}, false
	}
	order, ok := s.v.orders[id]
	return order, ok
}

// Orders returns all indexed orders sorted by id.
func (s Snapshot) Orders() []model.Order {
	if s.v == nil {
		return nil
	}
	orders := make([]model.Order, 0, len(s.v.orders))
	for _, o := range s.v.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

// Stats returns the statistics computed from exactly this snapshot.
func (s Snapshot) Stats() Stats {
	if s.v == nil {
		return Stats{}
	}
	return s.v.stats
}

// OrderIndex is the process-wide in-memory mirror of persisted orders. All
// mutations serialize on one mutex, so concurrent callers see a single total
// order of changes and no update is lost. Readers never take that lock: they
// load the current view through an atomic pointer, so Snapshot stays cheap
// even while a mutation is in flight. It is a read-optimized copy of
// confirmed durable state, never the source of truth.
type OrderIndex struct {
	stats *StatsAggregator

	mu          sync.Mutex
	initialized bool
	subs        map[Subscription]Listener
	subOrder    []Subscription
	nextSub     Subscription

	current atomic.Pointer[view]
}

// New constructs an empty index. The index is built exactly once at process
// start and handed to its users explicitly; there is no package-level
// instance.
func New(stats *StatsAggregator) *OrderIndex {
	idx := &OrderIndex{
		stats: stats,
		subs:  make(map[Subscription]Listener),
	}
	idx.current.Store(&view{orders: map[int64]model.Order{}, stats: stats.Recompute(nil)})
	return idx
}

// Initialize populates the index from a full store snapshot. It is
// idempotent under concurrent callers: the flag is checked inside the
// critical section, so exactly one caller loads and publishes, the rest
// return without effect. Repeated calls are no-ops until Reset.
func (x *OrderIndex) Initialize(ctx context.Context, source Source) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.initialized {
		return nil
	}

	orders, err := source.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load orders for index: %w", err)
	}

	x.publishLocked(byID(orders))
	x.initialized = true
	return nil
}

// Reset empties the index and re-arms Initialize. Test isolation only;
// production code never resets a live index.
func (x *OrderIndex) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.initialized = false
	x.current.Store(&view{orders: map[int64]model.Order{}, stats: x.stats.Recompute(nil)})
}

// Upsert inserts the order or overwrites the entry with the same id.
// Exactly one entry per id remains; the latest call wins.
func (x *OrderIndex) Upsert(order model.Order) {
	x.mu.Lock()
	defer x.mu.Unlock()

	next := x.copyLocked(1)
	next[order.ID] = order
	x.publishLocked(next)
}

// Remove deletes the entry for id. Removing an unknown id is a defined
// no-op, not an error, and triggers no notification.
func (x *OrderIndex) Remove(id int64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	cur := x.current.Load().orders
	if _, ok := cur[id]; !ok {
		return
	}
	next := x.copyLocked(0)
	delete(next, id)
	x.publishLocked(next)
}

// Rebuild atomically replaces the whole contents with exactly the given
// orders. Readers observe either the previous generation or the new one,
// never a partially filled map.
func (x *OrderIndex) Rebuild(orders []model.Order) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.publishLocked(byID(orders))
}

// Snapshot returns the current immutable view without taking the mutation lock.
func (x *OrderIndex) Snapshot() Snapshot {
	return Snapshot{v: x.current.Load()}
}

// Stats returns the statistics matching the current snapshot.
func (x *OrderIndex) Stats() Stats {
	return x.current.Load().stats
}

// Subscribe registers a listener invoked after every successful mutation
// with the resulting snapshot and stats, in mutation order.
func (x *OrderIndex) Subscribe(l Listener) Subscription {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.nextSub++
	sub := x.nextSub
	x.subs[sub] = l
	x.subOrder = append(x.subOrder, sub)
	return sub
}

// Unsubscribe deregisters a listener. Unknown handles are ignored.
func (x *OrderIndex) Unsubscribe(sub Subscription) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.subs[sub]; !ok {
		return
	}
	delete(x.subs, sub)
	for i, s := range x.subOrder {
		if s == sub {
			x.subOrder = append(x.subOrder[:i], x.subOrder[i+1:]...)
			break
		}
	}
}

// publishLocked swaps in a new generation, recomputes stats, and notifies
// subscribers. Stats recomputation and delivery happen inside the same
// critical section as the swap, so listeners always receive stats that match
// the snapshot delivered with them, in one total order across all mutations.
func (x *OrderIndex) publishLocked(orders map[int64]model.Order) {
	v := &view{orders: orders, stats: x.stats.Recompute(orders)}
	x.current.Store(v)

	snap := Snapshot{v: v}
	for _, sub := range x.subOrder {
		if l, ok := x.subs[sub]; ok {
			l(snap, v.stats)
		}
	}
}

// copyLocked clones the current generation with headroom for extra entries.
func (x *OrderIndex) copyLocked(extra int) map[int64]model.Order {
	cur := x.current.Load().orders
	next := make(map[int64]model.Order, len(cur)+extra)
	for id, o := range cur {
		next[id] = o
	}
	return next
}

func byID(orders []model.Order) map[int64]model.Order {
	m := make(map[int64]model.Order, len(orders))
	for _, o := range orders {
		m[o.ID] = o
	}
	return m
}
