package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/tvoloshin/orderdesk/internal/domain/errors"
	"github.com/tvoloshin/orderdesk/internal/domain/model"
	"github.com/tvoloshin/orderdesk/internal/domain/repository"
	"github.com/tvoloshin/orderdesk/internal/index"
)

// OrderUseCase coordinates the order lifecycle: it validates input, mutates
// the aggregate, persists through the repository, and only then mirrors the
// confirmed change into the reactive index. A failed store write leaves the
// index untouched, so the index can lag durable state but never run ahead
// of it. The index lock is never held across store I/O.
type OrderUseCase struct {
	orders repository.OrderRepository
	index  *index.OrderIndex
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, idx *index.OrderIndex) *OrderUseCase {
	return &OrderUseCase{orders: orders, index: idx}
}

// Create persists a brand-new order and publishes it into the index.
func (u *OrderUseCase) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order.ID != 0 {
		return nil, fmt.Errorf("%w: new order must not carry an id", domainErrors.ErrValidation)
	}
	if order.State == "" {
		order.State = model.OrderStateNew
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	order.RecalculateTotal()

	saved, err := u.orders.Save(ctx, order)
	if err != nil {
		return nil, err
	}

	u.index.Upsert(*saved)
	return saved, nil
}

// Update persists content changes to an existing order. Lifecycle state and
// its timestamps are server-owned: the stored order is loaded first and only
// the mutable fields are merged onto it, so an update can never move the
// state machine. The index receives the fresh copy re-read from the store
// rather than the caller's object, since the store applies server-side
// defaults such as the version bump.
func (u *OrderUseCase) Update(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order.ID == 0 {
		return nil, fmt.Errorf("%w: order id is required for update", domainErrors.ErrValidation)
	}

	stored, err := u.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	stored.DueDate = order.DueDate
	stored.CustomerID = order.CustomerID
	stored.CustomerName = order.CustomerName
	stored.Items = order.Items
	stored.Discount = order.Discount
	stored.Paid = order.Paid
	stored.PickupLocation = order.PickupLocation
	stored.Notes = order.Notes
	stored.Version = order.Version

	if err := stored.Validate(); err != nil {
		return nil, err
	}

	stored.RecalculateTotal()
	saved, err := u.orders.Save(ctx, stored)
	if err != nil {
		return nil, err
	}

	if err := u.republish(ctx, saved.ID); err != nil {
		return saved, err
	}
	return saved, nil
}

// MarkReady transitions a NEW order to READY.
func (u *OrderUseCase) MarkReady(ctx context.Context, id int64) (*model.Order, error) {
	return u.transition(ctx, id, (*model.Order).MarkReady)
}

// MarkDelivered transitions a READY order to DELIVERED.
func (u *OrderUseCase) MarkDelivered(ctx context.Context, id int64) (*model.Order, error) {
	return u.transition(ctx, id, (*model.Order).MarkDelivered)
}

// Cancel transitions a NEW or READY order to CANCELLED.
func (u *OrderUseCase) Cancel(ctx context.Context, id int64) (*model.Order, error) {
	return u.transition(ctx, id, (*model.Order).Cancel)
}

func (u *OrderUseCase) transition(ctx context.Context, id int64, apply func(*model.Order) error) (*model.Order, error) {
	order, err := u.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(order); err != nil {
		return nil, err
	}

	saved, err := u.orders.Save(ctx, order)
	if err != nil {
		return nil, err
	}

	if err := u.republish(ctx, saved.ID); err != nil {
		return saved, err
	}
	return saved, nil
}

// Delete removes the order from the store, then from the index.
func (u *OrderUseCase) Delete(ctx context.Context, id int64) error {
	exists, err := u.orders.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: order %d", domainErrors.ErrNotFound, id)
	}

	if err := u.orders.DeleteByID(ctx, id); err != nil {
		return err
	}

	u.index.Remove(id)
	return nil
}

// republish re-reads the persisted order and mirrors it into the index. An
// order deleted between write and re-read drops out of the index instead.
func (u *OrderUseCase) republish(ctx context.Context, id int64) error {
	fresh, err := u.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.index.Remove(id)
			return nil
		}
		return err
	}
	u.index.Upsert(*fresh)
	return nil
}

// Read-only queries pass straight through to the store. The index serves
// push-based observers, not ad hoc lookups.

func (u *OrderUseCase) FindAll(ctx context.Context) ([]model.Order, error) {
	return u.orders.FindAll(ctx)
}

func (u *OrderUseCase) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	return u.orders.FindByID(ctx, id)
}

func (u *OrderUseCase) FindByState(ctx context.Context, state model.OrderState) ([]model.Order, error) {
	return u.orders.FindByState(ctx, state)
}

func (u *OrderUseCase) FindByDueDate(ctx context.Context, date time.Time) ([]model.Order, error) {
	return u.orders.FindByDueDate(ctx, date)
}

func (u *OrderUseCase) FindByDueDateBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	return u.orders.FindByDueDateBetween(ctx, from, to)
}

func (u *OrderUseCase) FindByCustomerID(ctx context.Context, customerID int64) ([]model.Order, error) {
	return u.orders.FindByCustomerID(ctx, customerID)
}

func (u *OrderUseCase) FindByCustomerName(ctx context.Context, name string) ([]model.Order, error) {
	return u.orders.FindByCustomerName(ctx, name)
}

func (u *OrderUseCase) Count(ctx context.Context) (int64, error) {
	return u.orders.Count(ctx)
}

func (u *OrderUseCase) CountByState(ctx context.Context, state model.OrderState) (int64, error) {
	return u.orders.CountByState(ctx, state)
}

func (u *OrderUseCase) CountByDueDate(ctx context.Context, date time.Time) (int64, error) {
	return u.orders.CountByDueDate(ctx, date)
}
