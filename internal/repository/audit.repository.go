package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/pkg/pg"
	"gorm.io/gorm"
)

// OrderUpdateRepository writes the append-only audit trail.
type OrderUpdateRepository struct {
	*pg.DB
}

func NewOrderUpdateRepository(db *pg.DB) *OrderUpdateRepository {
	return &OrderUpdateRepository{db}
}

func (r *OrderUpdateRepository) Create(ctx context.Context, update *model.OrderUpdate) (*model.OrderUpdate, error) {
	entity := toOrderUpdateEntity(update)
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toOrderUpdateModel(entity), nil
}

// ListByOrderID returns the audit history of one order, oldest first.
func (r *OrderUpdateRepository) ListByOrderID(ctx context.Context, orderID string) ([]*model.OrderUpdate, error) {
	var entities []*OrderUpdateEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	updates := make([]*model.OrderUpdate, len(entities))
	for i, e := range entities {
		updates[i] = toOrderUpdateModel(e)
	}
	return updates, nil
}

type NotificationRepository struct {
	*pg.DB
}

func NewNotificationRepository(db *pg.DB) *NotificationRepository {
	return &NotificationRepository{db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	entity := &NotificationEntity{
		ID:      n.ID,
		UserID:  n.UserID,
		Title:   n.Title,
		Message: n.Message,
		Type:    n.Type,
		Read:    n.Read,
	}
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return &model.Notification{
		ID:        entity.ID,
		UserID:    entity.UserID,
		Title:     entity.Title,
		Message:   entity.Message,
		Type:      entity.Type,
		Read:      entity.Read,
		CreatedAt: entity.CreatedAt,
	}, nil
}

type ProfileRepository struct {
	*pg.DB
}

func NewProfileRepository(db *pg.DB) *ProfileRepository {
	return &ProfileRepository{db}
}

// GetByUserID resolves a user's profile; a missing profile is not an error,
// callers fall back to a generic display name.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	var entity UserProfileEntity
	err := r.Read(ctx).WithContext(ctx).Where("user_id = ?", userID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{
		ID:        entity.ID,
		UserID:    entity.UserID,
		FirstName: entity.FirstName,
		LastName:  entity.LastName,
		Role:      entity.Role,
	}, nil
}
