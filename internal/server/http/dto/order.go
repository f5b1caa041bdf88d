package dto

import "time"

// OrderItemPayload carries one line item in requests and responses. Money
// travels as decimal strings to avoid float rounding on the wire.
type OrderItemPayload struct {
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name,omitempty"`
	Quantity      int    `json:"quantity"`
	PricePerUnit  string `json:"price_per_unit"`
	Customization string `json:"customization,omitempty"`
}

// OrderRequest is the payload for creating or updating an order.
type OrderRequest struct {
	DueDate        string             `json:"due_date" binding:"required"`
	CustomerID     int64              `json:"customer_id" binding:"required"`
	CustomerName   string             `json:"customer_name,omitempty"`
	Items          []OrderItemPayload `json:"items" binding:"required"`
	Discount       string             `json:"discount,omitempty"`
	Paid           bool               `json:"paid"`
	PickupLocation string             `json:"pickup_location" binding:"required"`
	Notes          string             `json:"notes,omitempty"`
	Version        int64              `json:"version"`
}

// OrderResponse is the canonical JSON shape of a persisted order.
type OrderResponse struct {
	ID             int64              `json:"id"`
	DueDate        string             `json:"due_date"`
	State          string             `json:"state"`
	CustomerID     int64              `json:"customer_id"`
	CustomerName   string             `json:"customer_name,omitempty"`
	Items          []OrderItemPayload `json:"items"`
	TotalPrice     string             `json:"total_price"`
	Discount       string             `json:"discount"`
	Paid           bool               `json:"paid"`
	PickupLocation string             `json:"pickup_location"`
	Notes          string             `json:"notes,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	StateChangedAt time.Time          `json:"state_changed_at"`
	Version        int64              `json:"version"`
}
