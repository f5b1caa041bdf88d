package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/tvoloshin/orderdesk/internal/domain/errors"
)

// OrderState describes the order lifecycle.
type OrderState string

const (
	OrderStateNew       OrderState = "NEW"
	OrderStateReady     OrderState = "READY"
	OrderStateDelivered OrderState = "DELIVERED"
	OrderStateCancelled OrderState = "CANCELLED"
)

// States returns every lifecycle state in declaration order.
func States() []OrderState {
	return []OrderState{OrderStateNew, OrderStateReady, OrderStateDelivered, OrderStateCancelled}
}

// PickupLocation tells where a finished order is handed over.
type PickupLocation string

const (
	PickupStorefront         PickupLocation = "STOREFRONT"
	PickupProductionFacility PickupLocation = "PRODUCTION_FACILITY"
)

// Order is the aggregate root: entity state plus the operations that guard
// its lifecycle and total-price invariant. ID stays zero until the order is
// first persisted; Version is the optimistic concurrency token bumped by the
// store on every successful write.
type Order struct {
	ID             int64
	DueDate        time.Time
	State          OrderState
	CustomerID     int64
	CustomerName   string
	Items          []OrderItem
	TotalPrice     decimal.Decimal
	Discount       decimal.Decimal
	Paid           bool
	PickupLocation PickupLocation
	Notes          string
	CreatedAt      time.Time
	StateChangedAt time.Time
	Version        int64
}

// MarkReady moves a NEW order to READY.
func (o *Order) MarkReady() error {
	if o.State != OrderStateNew {
		return fmt.Errorf("%w: only NEW orders can be marked READY, order is %s", domainErrors.ErrInvalidStateTransition, o.State)
	}
	o.setState(OrderStateReady)
	return nil
}

// MarkDelivered moves a READY order to DELIVERED.
func (o *Order) MarkDelivered() error {
	if o.State != OrderStateReady {
		return fmt.Errorf("%w: only READY orders can be marked DELIVERED, order is %s", domainErrors.ErrInvalidStateTransition, o.State)
	}
	o.setState(OrderStateDelivered)
	return nil
}

// Cancel moves a NEW or READY order to CANCELLED. Terminal states stay put.
func (o *Order) Cancel() error {
	if o.State != OrderStateNew && o.State != OrderStateReady {
		return fmt.Errorf("%w: cannot cancel a %s order", domainErrors.ErrInvalidStateTransition, o.State)
	}
	o.setState(OrderStateCancelled)
	return nil
}

func (o *Order) setState(state OrderState) {
	o.State = state
	o.StateChangedAt = time.Now()
}

// AddItem appends an item and keeps the total consistent.
func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
	o.RecalculateTotal()
}

// RemoveItem drops the item at the given position; out-of-range indexes are ignored.
func (o *Order) RemoveItem(i int) {
	if i < 0 || i >= len(o.Items) {
		return
	}
	o.Items = append(o.Items[:i], o.Items[i+1:]...)
	o.RecalculateTotal()
}

// SetItems replaces the line items and recomputes the total.
func (o *Order) SetItems(items []OrderItem) {
	o.Items = items
	o.RecalculateTotal()
}

// SetDiscount updates the discount and recomputes the total.
func (o *Order) SetDiscount(discount decimal.Decimal) {
	o.Discount = discount
	o.RecalculateTotal()
}

// RecalculateTotal derives the total price from items and discount, clamped
// at zero. Idempotent; must run whenever items or discount change.
func (o *Order) RecalculateTotal() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	total := subtotal.Sub(o.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.TotalPrice = total
}

// Validate checks the structural invariants a persistable order must satisfy.
func (o *Order) Validate() error {
	if o.CustomerID == 0 {
		return fmt.Errorf("%w: customer is required", domainErrors.ErrValidation)
	}
	if o.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", domainErrors.ErrValidation)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", domainErrors.ErrValidation)
	}
	for i, item := range o.Items {
		if item.ProductID == 0 {
			return fmt.Errorf("%w: item %d has no product", domainErrors.ErrValidation, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", domainErrors.ErrValidation, i)
		}
		if item.PricePerUnit.IsNegative() {
			return fmt.Errorf("%w: item %d price must not be negative", domainErrors.ErrValidation, i)
		}
	}
	if o.Discount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", domainErrors.ErrValidation)
	}
	switch o.State {
	case OrderStateNew, OrderStateReady, OrderStateDelivered, OrderStateCancelled:
	default:
		return fmt.Errorf("%w: unknown state %q", domainErrors.ErrValidation, o.State)
	}
	switch o.PickupLocation {
	case PickupStorefront, PickupProductionFacility:
	default:
		return fmt.Errorf("%w: unknown pickup location %q", domainErrors.ErrValidation, o.PickupLocation)
	}
	return nil
}

// OrderItem is a single line item. PricePerUnit is snapshotted at
// order-creation time and never follows later catalog changes.
type OrderItem struct {
	ProductID     int64
	ProductName   string
	Quantity      int
	PricePerUnit  decimal.Decimal
	Customization string
}

// Subtotal is price-per-unit times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PricePerUnit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
