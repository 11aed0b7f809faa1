package model

import "time"

// OrderStatus is the lifecycle state of a delivery order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusAssigned       OrderStatus = "assigned"
	OrderStatusInTransit      OrderStatus = "in_transit"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusFailed         OrderStatus = "failed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Terminal reports whether the status is an end state. Proof-of-delivery
// evidence is only readable on terminal orders.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusFailed
}

// CompletionEligible reports whether a driver may submit a completion for an
// order in this status.
func (s OrderStatus) CompletionEligible() bool {
	return s == OrderStatusInTransit || s == OrderStatusOutForDelivery
}

type Order struct {
	ID                   string      `json:"id"`
	OrderNumber          string      `json:"order_number"`
	Status               OrderStatus `json:"status"`
	DriverID             *string     `json:"driver_id"`
	CustomerName         string      `json:"customer_name"`
	CustomerPhone        *string     `json:"customer_phone"`
	DeliveryAddress      string      `json:"delivery_address"`
	ShopifyOrderID       *string     `json:"shopify_order_id"`
	ShopifyConnectionID  *string     `json:"shopify_connection_id"`
	ShopifyFulfillmentID *string     `json:"shopify_fulfillment_id"`
	ShopifyFulfilledAt   *time.Time  `json:"shopify_fulfilled_at"`
	// PhotoURL is the legacy evidence field. It may hold a bare URL, a
	// JSON-encoded URL array, or malformed data. See ParseLegacyPhotoField.
	PhotoURL    *string    `json:"photo_url"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderSummary is the finalized order snapshot returned to the submitting
// driver after a completion.
type OrderSummary struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`
	CompletedAt *time.Time  `json:"completed_at"`
}

func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		CompletedAt: o.CompletedAt,
	}
}

// ShopifyConnection is an admin's linked store. Fulfillment is attempted only
// for orders whose connection is active and carries an access token.
type ShopifyConnection struct {
	ID          string    `json:"id"`
	ShopDomain  string    `json:"shop_domain"`
	AccessToken string    `json:"-"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ShopifyConnection) TableName() string { return "shopify_connections" }

// FulfillmentReady reports whether the connection can receive fulfillment
// updates.
func (c *ShopifyConnection) FulfillmentReady() bool {
	return c != nil && c.IsActive && c.AccessToken != ""
}
