package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	domainErrors "github.com/tvoloshin/orderdesk/internal/domain/errors"
	"github.com/tvoloshin/orderdesk/internal/domain/model"
	"github.com/tvoloshin/orderdesk/internal/server/http/dto"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	order, err := h.bindOrder(c)
	if err != nil {
		writeError(c, err)
		return
	}

	saved, err := h.facade.Create(c.Request.Context(), order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*saved))
}

// Update handles PUT /api/orders/:id.
func (h *OrderHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.bindOrder(c)
	if err != nil {
		writeError(c, err)
		return
	}
	order.ID = id

	saved, err := h.facade.Update(c.Request.Context(), order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*saved))
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.facade.FindByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// List handles GET /api/orders with optional filters. The first matching
// filter wins: state, due_date, due_from/due_to, customer_id, customer_name.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.listFiltered(c)
	if err != nil {
		writeError(c, err)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, response)
}

func (h *OrderHandler) listFiltered(c *gin.Context) ([]model.Order, error) {
	ctx := c.Request.Context()

	if state := c.Query("state"); state != "" {
		return h.facade.FindByState(ctx, model.OrderState(state))
	}
	if raw := c.Query("due_date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: due_date: %v", domainErrors.ErrValidation, err)
		}
		return h.facade.FindByDueDate(ctx, date)
	}
	if fromRaw, toRaw := c.Query("due_from"), c.Query("due_to"); fromRaw != "" && toRaw != "" {
		from, err := parseDate(fromRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: due_from: %v", domainErrors.ErrValidation, err)
		}
		to, err := parseDate(toRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: due_to: %v", domainErrors.ErrValidation, err)
		}
		return h.facade.FindByDueDateBetween(ctx, from, to)
	}
	if raw := c.Query("customer_id"); raw != "" {
		customerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: customer_id: %v", domainErrors.ErrValidation, err)
		}
		return h.facade.FindByCustomerID(ctx, customerID)
	}
	if name := c.Query("customer_name"); name != "" {
		return h.facade.FindByCustomerName(ctx, name)
	}
	return h.facade.FindAll(ctx)
}

// MarkReady handles POST /api/orders/:id/ready.
func (h *OrderHandler) MarkReady(c *gin.Context) {
	h.transition(c, h.facade.MarkReady)
}

// MarkDelivered handles POST /api/orders/:id/deliver.
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	h.transition(c, h.facade.MarkDelivered)
}

// Cancel handles POST /api/orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.facade.Cancel)
}

func (h *OrderHandler) transition(c *gin.Context, apply func(ctx context.Context, id int64) (*model.Order, error)) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := apply(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// Delete handles DELETE /api/orders/:id.
func (h *OrderHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.facade.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) bindOrder(c *gin.Context) (*model.Order, error) {
	var req dto.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrValidation, err)
	}
	return fromOrderRequest(req)
}

func fromOrderRequest(req dto.OrderRequest) (*model.Order, error) {
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date: %v", domainErrors.ErrValidation, err)
	}

	discount := decimal.Zero
	if req.Discount != "" {
		if discount, err = decimal.NewFromString(req.Discount); err != nil {
			return nil, fmt.Errorf("%w: discount: %v", domainErrors.ErrValidation, err)
		}
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		price, err := decimal.NewFromString(item.PricePerUnit)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d price: %v", domainErrors.ErrValidation, i, err)
		}
		items = append(items, model.OrderItem{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			PricePerUnit:  price,
			Customization: item.Customization,
		})
	}

	return &model.Order{
		DueDate:        dueDate,
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		Items:          items,
		Discount:       discount,
		Paid:           req.Paid,
		PickupLocation: model.PickupLocation(req.PickupLocation),
		Notes:          req.Notes,
		Version:        req.Version,
	}, nil
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemPayload{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			PricePerUnit:  item.PricePerUnit.StringFixed(2),
			Customization: item.Customization,
		})
	}
	return dto.OrderResponse{
		ID:             order.ID,
		DueDate:        order.DueDate.Format(dateLayout),
		State:          string(order.State),
		CustomerID:     order.CustomerID,
		CustomerName:   order.CustomerName,
		Items:          items,
		TotalPrice:     order.TotalPrice.StringFixed(2),
		Discount:       order.Discount.StringFixed(2),
		Paid:           order.Paid,
		PickupLocation: string(order.PickupLocation),
		Notes:          order.Notes,
		CreatedAt:      order.CreatedAt,
		StateChangedAt: order.StateChangedAt,
		Version:        order.Version,
	}
}
