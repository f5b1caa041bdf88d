package repository

import (
	"context"
	"time"

	"github.com/tvoloshin/orderdesk/internal/domain/model"
)

// OrderRepository describes durable persistence for orders. Save assigns id
// and version on first save; on update it bumps the version and fails with
// ErrOptimisticConflict when the given version is stale.
type OrderRepository interface {
	Save(ctx context.Context, order *model.Order) (*model.Order, error)
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
	FindAll(ctx context.Context) ([]model.Order, error)
	FindByState(ctx context.Context, state model.OrderState) ([]model.Order, error)
	FindByDueDate(ctx context.Context, date time.Time) ([]model.Order, error)
	FindByDueDateBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	FindByCustomerID(ctx context.Context, customerID int64) ([]model.Order, error)
	FindByCustomerName(ctx context.Context, name string) ([]model.Order, error)
	Count(ctx context.Context) (int64, error)
	CountByState(ctx context.Context, state model.OrderState) (int64, error)
	CountByDueDate(ctx context.Context, date time.Time) (int64, error)
}
