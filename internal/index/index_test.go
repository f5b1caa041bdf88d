package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tvoloshin/orderdesk/internal/domain/model"
)

type sourceStub struct {
	mu     sync.Mutex
	orders []model.Order
	err    error
	calls  int
}

func (s *sourceStub) FindAll(context.Context) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.orders, nil
}

func newTestIndex() *OrderIndex {
	return New(NewStatsAggregator())
}

func order(id int64, state model.OrderState) model.Order {
	return model.Order{ID: id, State: state, DueDate: time.Now(), CustomerID: 1}
}

func TestInitializePopulatesOnce(t *testing.T) {
	idx := newTestIndex()
	src := &sourceStub{orders: []model.Order{order(1, model.OrderStateNew), order(2, model.OrderStateReady)}}

	require.NoError(t, idx.Initialize(context.Background(), src))
	require.Equal(t, 2, idx.Snapshot().Len())

	// Second call must not reload or change contents.
	src.orders = append(src.orders, order(3, model.OrderStateNew))
	require.NoError(t, idx.Initialize(context.Background(), src))
	assert.Equal(t, 2, idx.Snapshot().Len())
	assert.Equal(t, 1, src.calls)
}

func TestInitializeConcurrentCallersLoadOnce(t *testing.T) {
	idx := newTestIndex()
	src := &sourceStub{orders: []model.Order{order(1, model.OrderStateNew)}}

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			return idx.Initialize(context.Background(), src)
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, src.calls, "exactly one caller populates")
	assert.Equal(t, 1, idx.Snapshot().Len())
}

func TestInitializeErrorLeavesIndexUninitialized(t *testing.T) {
	idx := newTestIndex()
	src := &sourceStub{err: errors.New("connection refused")}

	err := idx.Initialize(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, 0, idx.Snapshot().Len())

	// A later attempt against a healthy source succeeds.
	src.mu.Lock()
	src.err = nil
	src.orders = []model.Order{order(1, model.OrderStateNew)}
	src.mu.Unlock()
	require.NoError(t, idx.Initialize(context.Background(), src))
	assert.Equal(t, 1, idx.Snapshot().Len())
}

func TestResetReArmsInitialize(t *testing.T) {
	idx := newTestIndex()
	src := &sourceStub{orders: []model.Order{order(1, model.OrderStateNew)}}

	require.NoError(t, idx.Initialize(context.Background(), src))
	idx.Reset()
	assert.Equal(t, 0, idx.Snapshot().Len())
	assert.Equal(t, int64(0), idx.Stats().New)

	require.NoError(t, idx.Initialize(context.Background(), src))
	assert.Equal(t, 1, idx.Snapshot().Len())
	assert.Equal(t, 2, src.calls)
}

func TestUpsertLastWriteWinsWithoutDuplicates(t *testing.T) {
	idx := newTestIndex()

	first := order(5, model.OrderStateNew)
	first.Notes = "first"
	second := order(5, model.OrderStateReady)
	second.Notes = "second"

	idx.Upsert(first)
	idx.Upsert(second)

	snap := idx.Snapshot()
	require.Equal(t, 1, snap.Len())
	got, ok := snap.Get(5)
	require.True(t, ok)
	assert.Equal(t, "second", got.Notes)
	assert.Equal(t, model.OrderStateReady, got.State)
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	idx := newTestIndex()
	idx.Upsert(order(1, model.OrderStateNew))

	notified := 0
	idx.Subscribe(func(Snapshot, Stats) { notified++ })

	idx.Remove(999)
	assert.Equal(t, 1, idx.Snapshot().Len())
	assert.Zero(t, notified, "no-op removal must not notify")

	idx.Remove(1)
	assert.Equal(t, 0, idx.Snapshot().Len())
	assert.Equal(t, 1, notified)
}

func TestRebuildReplacesContentsAtomically(t *testing.T) {
	idx := newTestIndex()
	idx.Upsert(order(1, model.OrderStateNew))
	idx.Upsert(order(2, model.OrderStateNew))

	before := idx.Snapshot()

	idx.Rebuild([]model.Order{order(2, model.OrderStateReady), order(3, model.OrderStateNew)})

	after := idx.Snapshot()
	require.Equal(t, 2, after.Len())
	_, ok := after.Get(1)
	assert.False(t, ok, "entry absent from rebuild set must be gone")
	got, ok := after.Get(2)
	require.True(t, ok)
	assert.Equal(t, model.OrderStateReady, got.State)

	// The earlier snapshot is a different, untouched generation.
	assert.Equal(t, 2, before.Len())
	old, ok := before.Get(2)
	require.True(t, ok)
	assert.Equal(t, model.OrderStateNew, old.State)
}

func TestSnapshotIsStableUnderLaterMutations(t *testing.T) {
	idx := newTestIndex()
	idx.Upsert(order(1, model.OrderStateNew))

	snap := idx.Snapshot()
	idx.Upsert(order(2, model.OrderStateNew))
	idx.Remove(1)

	assert.Equal(t, 1, snap.Len())
	_, ok := snap.Get(1)
	assert.True(t, ok)
}

func TestSubscribersReceiveMatchingSnapshotAndStats(t *testing.T) {
	idx := newTestIndex()

	type delivery struct {
		snap  Snapshot
		stats Stats
	}
	var deliveries []delivery
	idx.Subscribe(func(s Snapshot, st Stats) {
		deliveries = append(deliveries, delivery{s, st})
	})

	idx.Upsert(order(1, model.OrderStateNew))
	idx.Upsert(order(2, model.OrderStateReady))
	idx.Remove(1)
	idx.Rebuild([]model.Order{order(3, model.OrderStateDelivered)})

	require.Len(t, deliveries, 4)
	for i, d := range deliveries {
		var want Stats
		for _, o := range d.snap.Orders() {
			switch o.State {
			case model.OrderStateNew:
				want.New++
			case model.OrderStateReady:
				want.Ready++
			case model.OrderStateDelivered:
				want.Delivered++
			case model.OrderStateCancelled:
				want.Cancelled++
			}
		}
		assert.Equal(t, want.New, d.stats.New, "delivery %d", i)
		assert.Equal(t, want.Ready, d.stats.Ready, "delivery %d", i)
		assert.Equal(t, want.Delivered, d.stats.Delivered, "delivery %d", i)
		assert.Equal(t, want.Cancelled, d.stats.Cancelled, "delivery %d", i)
	}
	assert.Equal(t, []int{1, 2, 1, 1}, []int{
		deliveries[0].snap.Len(), deliveries[1].snap.Len(), deliveries[2].snap.Len(), deliveries[3].snap.Len(),
	})
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	idx := newTestIndex()

	calls := 0
	sub := idx.Subscribe(func(Snapshot, Stats) { calls++ })

	idx.Upsert(order(1, model.OrderStateNew))
	idx.Unsubscribe(sub)
	idx.Upsert(order(2, model.OrderStateNew))

	assert.Equal(t, 1, calls)

	// Unsubscribing twice is harmless.
	idx.Unsubscribe(sub)
}

func TestSubscribersNotifiedInRegistrationOrder(t *testing.T) {
	idx := newTestIndex()

	var got []string
	idx.Subscribe(func(Snapshot, Stats) { got = append(got, "a") })
	idx.Subscribe(func(Snapshot, Stats) { got = append(got, "b") })
	idx.Subscribe(func(Snapshot, Stats) { got = append(got, "c") })

	idx.Upsert(order(1, model.OrderStateNew))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestConcurrentDisjointUpsertsConverge(t *testing.T) {
	idx := newTestIndex()

	const n = 128
	var g errgroup.Group
	for i := 1; i <= n; i++ {
		id := int64(i)
		g.Go(func() error {
			o := order(id, model.OrderStateNew)
			o.Notes = fmt.Sprintf("order-%d", id)
			idx.Upsert(o)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	snap := idx.Snapshot()
	require.Equal(t, n, snap.Len())
	for i := 1; i <= n; i++ {
		got, ok := snap.Get(int64(i))
		require.True(t, ok, "order %d missing", i)
		assert.Equal(t, fmt.Sprintf("order-%d", i), got.Notes, "order %d must be intact", i)
	}
	assert.Equal(t, int64(n), idx.Stats().New)
}

func TestConcurrentMixedMutationsKeepStatsConsistent(t *testing.T) {
	idx := newTestIndex()

	var g errgroup.Group
	for i := 1; i <= 64; i++ {
		id := int64(i)
		g.Go(func() error {
			idx.Upsert(order(id, model.OrderStateNew))
			if id%2 == 0 {
				idx.Remove(id)
			}
			if id%16 == 0 {
				idx.Snapshot()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	snap := idx.Snapshot()
	stats := idx.Stats()
	var scanned int64
	for _, o := range snap.Orders() {
		if o.State == model.OrderStateNew {
			scanned++
		}
	}
	assert.Equal(t, scanned, stats.New, "stats must match a snapshot scan")
	assert.Equal(t, 32, snap.Len())
}
