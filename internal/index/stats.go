package index

import (
	"sync/atomic"
	"time"

	"github.com/tvoloshin/orderdesk/internal/domain/model"
)

// Stats is the set of derived counts computed from one index snapshot.
type Stats struct {
	DueToday  int64
	New       int64
	Ready     int64
	Delivered int64
	Cancelled int64
}

// CountByState returns the count for the given lifecycle state.
func (s Stats) CountByState(state model.OrderState) int64 {
	switch state {
	case model.OrderStateNew:
		return s.New
	case model.OrderStateReady:
		return s.Ready
	case model.OrderStateDelivered:
		return s.Delivered
	case model.OrderStateCancelled:
		return s.Cancelled
	}
	return 0
}

// StatsAggregator recomputes dashboard counts from the full snapshot on
// every index mutation. A full scan instead of incremental counters rules
// out drift; order volumes make the scan cheap. Each count is also held in
// an atomic so an observer interested in a single figure reads it directly
// instead of diffing snapshots.
type StatsAggregator struct {
	now func() time.Time

	dueToday  atomic.Int64
	newCount  atomic.Int64
	ready     atomic.Int64
	delivered atomic.Int64
	cancelled atomic.Int64
}

// NewStatsAggregator constructs an aggregator using the wall clock.
func NewStatsAggregator() *StatsAggregator {
	return NewStatsAggregatorWithClock(time.Now)
}

// NewStatsAggregatorWithClock allows tests to pin "today".
func NewStatsAggregatorWithClock(now func() time.Time) *StatsAggregator {
	return &StatsAggregator{now: now}
}

// Recompute scans the given orders, stores the resulting counts, and returns
// them. "Due today" is evaluated against the clock at recomputation time.
func (a *StatsAggregator) Recompute(orders map[int64]model.Order) Stats {
	today := a.now()

	var stats Stats
	for _, o := range orders {
		switch o.State {
		case model.OrderStateNew:
			stats.New++
		case model.OrderStateReady:
			stats.Ready++
		case model.OrderStateDelivered:
			stats.Delivered++
		case model.OrderStateCancelled:
			stats.Cancelled++
		}
		if sameDay(o.DueDate, today) {
			stats.DueToday++
		}
	}

	a.dueToday.Store(stats.DueToday)
	a.newCount.Store(stats.New)
	a.ready.Store(stats.Ready)
	a.delivered.Store(stats.Delivered)
	a.cancelled.Store(stats.Cancelled)

	return stats
}

// DueToday returns the last computed count of orders due today.
func (a *StatsAggregator) DueToday() int64 {
	return a.dueToday.Load()
}

// CountByState returns the last computed count for the given state.
func (a *StatsAggregator) CountByState(state model.OrderState) int64 {
	switch state {
	case model.OrderStateNew:
		return a.newCount.Load()
	case model.OrderStateReady:
		return a.ready.Load()
	case model.OrderStateDelivered:
		return a.delivered.Load()
	case model.OrderStateCancelled:
		return a.cancelled.Load()
	}
	return 0
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
