package repository

import (
	"time"

	"github.com/swiftroute/delivery-gateway/internal/model"
)

type OrderEntity struct {
	ID                   string     `db:"id"                     gorm:"primaryKey;column:id;type:uuid"`
	OrderNumber          string     `db:"order_number"           gorm:"column:order_number;not null;index"`
	Status               string     `db:"status"                 gorm:"column:status;not null;index"`
	DriverID             *string    `db:"driver_id"              gorm:"column:driver_id;index"`
	CustomerName         string     `db:"customer_name"          gorm:"column:customer_name;not null"`
	CustomerPhone        *string    `db:"customer_phone"         gorm:"column:customer_phone"`
	DeliveryAddress      string     `db:"delivery_address"       gorm:"column:delivery_address;not null"`
	ShopifyOrderID       *string    `db:"shopify_order_id"       gorm:"column:shopify_order_id"`
	ShopifyConnectionID  *string    `db:"shopify_connection_id"  gorm:"column:shopify_connection_id"`
	ShopifyFulfillmentID *string    `db:"shopify_fulfillment_id" gorm:"column:shopify_fulfillment_id"`
	ShopifyFulfilledAt   *time.Time `db:"shopify_fulfilled_at"   gorm:"column:shopify_fulfilled_at"`
	PhotoURL             *string    `db:"photo_url"              gorm:"column:photo_url"` // legacy evidence field
	CompletedAt          *time.Time `db:"completed_at"           gorm:"column:completed_at"`
	CreatedBy            string     `db:"created_by"             gorm:"column:created_by;index"`
	CreatedAt            time.Time  `db:"created_at"             gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `db:"updated_at"             gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderEntity) TableName() string { return "orders" }

func toOrderEntity(m *model.Order) *OrderEntity {
	if m == nil {
		return nil
	}
	return &OrderEntity{
		ID:                   m.ID,
		OrderNumber:          m.OrderNumber,
		Status:               string(m.Status),
		DriverID:             m.DriverID,
		CustomerName:         m.CustomerName,
		CustomerPhone:        m.CustomerPhone,
		DeliveryAddress:      m.DeliveryAddress,
		ShopifyOrderID:       m.ShopifyOrderID,
		ShopifyConnectionID:  m.ShopifyConnectionID,
		ShopifyFulfillmentID: m.ShopifyFulfillmentID,
		ShopifyFulfilledAt:   m.ShopifyFulfilledAt,
		PhotoURL:             m.PhotoURL,
		CompletedAt:          m.CompletedAt,
		CreatedBy:            m.CreatedBy,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func toOrderModel(e *OrderEntity) *model.Order {
	if e == nil {
		return nil
	}
	return &model.Order{
		ID:                   e.ID,
		OrderNumber:          e.OrderNumber,
		Status:               model.OrderStatus(e.Status),
		DriverID:             e.DriverID,
		CustomerName:         e.CustomerName,
		CustomerPhone:        e.CustomerPhone,
		DeliveryAddress:      e.DeliveryAddress,
		ShopifyOrderID:       e.ShopifyOrderID,
		ShopifyConnectionID:  e.ShopifyConnectionID,
		ShopifyFulfillmentID: e.ShopifyFulfillmentID,
		ShopifyFulfilledAt:   e.ShopifyFulfilledAt,
		PhotoURL:             e.PhotoURL,
		CompletedAt:          e.CompletedAt,
		CreatedBy:            e.CreatedBy,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

type ShopifyConnectionEntity struct {
	ID          string    `db:"id"           gorm:"primaryKey;column:id;type:uuid"`
	ShopDomain  string    `db:"shop_domain"  gorm:"column:shop_domain;not null"`
	AccessToken string    `db:"access_token" gorm:"column:access_token;not null"`
	IsActive    bool      `db:"is_active"    gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
}

func (ShopifyConnectionEntity) TableName() string { return "shopify_connections" }

func toConnectionModel(e *ShopifyConnectionEntity) *model.ShopifyConnection {
	if e == nil {
		return nil
	}
	return &model.ShopifyConnection{
		ID:          e.ID,
		ShopDomain:  e.ShopDomain,
		AccessToken: e.AccessToken,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
	}
}
