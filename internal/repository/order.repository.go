package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup. For
	// driver-scoped lookups this doubles as the authorization failure: a
	// driver only sees orders assigned to them.
	ErrOrderNotFound = errors.New("order not found")
)

type OrderRepository struct {
	*pg.DB
}

func NewOrderRepository(db *pg.DB) *OrderRepository {
	return &OrderRepository{db}
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	entity := toOrderEntity(order)
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.Status == "" {
		entity.Status = string(model.OrderStatusPending)
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toOrderModel(entity), nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	var entity OrderEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return toOrderModel(&entity), nil
}

// GetForDriver is the ownership check of the completion path: it matches on
// both order id and driver id, so an order assigned to someone else reads as
// not found.
func (r *OrderRepository) GetForDriver(ctx context.Context, orderID, driverID string) (*model.Order, error) {
	var entity OrderEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND driver_id = ?", orderID, driverID).
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return toOrderModel(&entity), nil
}

// MarkCompleted moves the order to a terminal status, stamps completed_at and,
// when evidence photos were stored, dual-writes the consolidated URL list into
// the legacy photo field for pre-migration readers.
func (r *OrderRepository) MarkCompleted(ctx context.Context, orderID string, status model.OrderStatus, completedAt time.Time, legacyPhotoJSON *string) error {
	updates := map[string]any{
		"status":       string(status),
		"completed_at": completedAt,
		"updated_at":   time.Now().UTC(),
	}
	if legacyPhotoJSON != nil {
		updates["photo_url"] = *legacyPhotoJSON
	}

	res := r.Write(ctx).WithContext(ctx).
		Model(&OrderEntity{}).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SetFulfillment records the external fulfillment identifier after a
// successful fulfillment call.
func (r *OrderRepository) SetFulfillment(ctx context.Context, orderID, fulfillmentID string, fulfilledAt time.Time) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&OrderEntity{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"shopify_fulfillment_id": fulfillmentID,
			"shopify_fulfilled_at":   fulfilledAt,
			"updated_at":             time.Now().UTC(),
		}).Error
}

type ConnectionRepository struct {
	*pg.DB
}

func NewConnectionRepository(db *pg.DB) *ConnectionRepository {
	return &ConnectionRepository{db}
}

func (r *ConnectionRepository) Create(ctx context.Context, conn *model.ShopifyConnection) (*model.ShopifyConnection, error) {
	entity := &ShopifyConnectionEntity{
		ID:          conn.ID,
		ShopDomain:  conn.ShopDomain,
		AccessToken: conn.AccessToken,
		IsActive:    conn.IsActive,
	}
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toConnectionModel(entity), nil
}

func (r *ConnectionRepository) Get(ctx context.Context, id string) (*model.ShopifyConnection, error) {
	var entity ShopifyConnectionEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toConnectionModel(&entity), nil
}
