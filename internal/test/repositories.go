package test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domainErrors "github.com/tvoloshin/orderdesk/internal/domain/errors"
	"github.com/tvoloshin/orderdesk/internal/domain/model"
)

// OrderRepositoryStub keeps orders in memory for tests. It mimics the store
// contract: ids and version bumps are assigned on save, stale versions are
// rejected. Err* fields inject failures per operation; Err short-circuits
// everything.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	Orders map[int64]model.Order
	NextID int64

	Err       error
	SaveErr   error
	FindErr   error
	DeleteErr error

	SaveCalls   int
	DeleteCalls int
}

// NewOrderRepositoryStub constructs the stub with initialized storage.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{Orders: make(map[int64]model.Order), NextID: 1}
}

// Seed stores an order as-is, bypassing id assignment.
func (s *OrderRepositoryStub) Seed(order model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Orders[order.ID] = order
	if order.ID >= s.NextID {
		s.NextID = order.ID + 1
	}
}

func (s *OrderRepositoryStub) Save(ctx context.Context, order *model.Order) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.SaveErr != nil {
		return nil, s.SaveErr
	}

	saved := *order
	if saved.ID == 0 {
		saved.ID = s.NextID
		s.NextID++
		saved.Version = 0
		saved.CreatedAt = time.Now()
		if saved.StateChangedAt.IsZero() {
			saved.StateChangedAt = saved.CreatedAt
		}
	} else {
		current, ok := s.Orders[saved.ID]
		if !ok {
			return nil, fmt.Errorf("%w: order %d", domainErrors.ErrNotFound, saved.ID)
		}
		if current.Version != saved.Version {
			return nil, fmt.Errorf("%w: order %d version %d", domainErrors.ErrOptimisticConflict, saved.ID, saved.Version)
		}
		saved.Version++
	}
	s.Orders[saved.ID] = saved
	result := saved
	return &result, nil
}

func (s *OrderRepositoryStub) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	order, ok := s.Orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", domainErrors.ErrNotFound, id)
	}
	result := order
	return &result, nil
}

func (s *OrderRepositoryStub) ExistsByID(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.Orders[id]
	return ok, nil
}

func (s *OrderRepositoryStub) DeleteByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeleteCalls++
	if s.Err != nil {
		return s.Err
	}
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.Orders, id)
	return nil
}

func (s *OrderRepositoryStub) FindAll(ctx context.Context) ([]model.Order, error) {
	return s.filter(func(model.Order) bool { return true })
}

func (s *OrderRepositoryStub) FindByState(ctx context.Context, state model.OrderState) ([]model.Order, error) {
	return s.filter(func(o model.Order) bool { return o.State == state })
}

func (s *OrderRepositoryStub) FindByDueDate(ctx context.Context, date time.Time) ([]model.Order, error) {
	return s.filter(func(o model.Order) bool { return sameDay(o.DueDate, date) })
}

func (s *OrderRepositoryStub) FindByDueDateBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	return s.filter(func(o model.Order) bool {
		return !o.DueDate.Before(from) && !o.DueDate.After(to)
	})
}

func (s *OrderRepositoryStub) FindByCustomerID(ctx context.Context, customerID int64) ([]model.Order, error) {
	return s.filter(func(o model.Order) bool { return o.CustomerID == customerID })
}

func (s *OrderRepositoryStub) FindByCustomerName(ctx context.Context, name string) ([]model.Order, error) {
	return s.filter(func(o model.Order) bool {
		return strings.Contains(strings.ToLower(o.CustomerName), strings.ToLower(name))
	})
}

func (s *OrderRepositoryStub) Count(ctx context.Context) (int64, error) {
	orders, err := s.FindAll(ctx)
	return int64(len(orders)), err
}

func (s *OrderRepositoryStub) CountByState(ctx context.Context, state model.OrderState) (int64, error) {
	orders, err := s.FindByState(ctx, state)
	return int64(len(orders)), err
}

func (s *OrderRepositoryStub) CountByDueDate(ctx context.Context, date time.Time) (int64, error) {
	orders, err := s.FindByDueDate(ctx, date)
	return int64(len(orders)), err
}

func (s *OrderRepositoryStub) filter(keep func(model.Order) bool) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	var result []model.Order
	for _, o := range s.Orders {
		if keep(o) {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
