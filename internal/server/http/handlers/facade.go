package handlers

import (
	"context"
	"time"

	"github.com/tvoloshin/orderdesk/internal/domain/model"
	"github.com/tvoloshin/orderdesk/internal/index"
)

// OrderFacade encapsulates the coordinator operations exposed via HTTP.
type OrderFacade interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	Update(ctx context.Context, order *model.Order) (*model.Order, error)
	MarkReady(ctx context.Context, id int64) (*model.Order, error)
	MarkDelivered(ctx context.Context, id int64) (*model.Order, error)
	Cancel(ctx context.Context, id int64) (*model.Order, error)
	Delete(ctx context.Context, id int64) error
	FindAll(ctx context.Context) ([]model.Order, error)
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	FindByState(ctx context.Context, state model.OrderState) ([]model.Order, error)
	FindByDueDate(ctx context.Context, date time.Time) ([]model.Order, error)
	FindByDueDateBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	FindByCustomerID(ctx context.Context, customerID int64) ([]model.Order, error)
	FindByCustomerName(ctx context.Context, name string) ([]model.Order, error)
	Count(ctx context.Context) (int64, error)
	CountByState(ctx context.Context, state model.OrderState) (int64, error)
	CountByDueDate(ctx context.Context, date time.Time) (int64, error)
}

// OrderFeed exposes the reactive index to push-based dashboard sessions.
type OrderFeed interface {
	Snapshot() index.Snapshot
	Stats() index.Stats
	Subscribe(l index.Listener) index.Subscription
	Unsubscribe(sub index.Subscription)
}
