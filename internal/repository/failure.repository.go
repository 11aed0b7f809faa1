package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/pkg/pg"
	"gorm.io/gorm"
)

// ErrFailureNotFound is returned when an order has no failure report.
var ErrFailureNotFound = errors.New("delivery failure not found")

type FailureRepository struct {
	*pg.DB
}

func NewFailureRepository(db *pg.DB) *FailureRepository {
	return &FailureRepository{db}
}

func (r *FailureRepository) Create(ctx context.Context, failure *model.DeliveryFailure) (*model.DeliveryFailure, error) {
	entity := toFailureEntity(failure)
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.Photos == "" {
		entity.Photos = "[]"
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCompletion
		}
		return nil, err
	}
	return toFailureModel(entity), nil
}

func (r *FailureRepository) GetByOrderID(ctx context.Context, orderID string) (*model.DeliveryFailure, error) {
	var entity FailureEntity
	err := r.Read(ctx).WithContext(ctx).Where("order_id = ?", orderID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFailureNotFound
	}
	if err != nil {
		return nil, err
	}
	return toFailureModel(&entity), nil
}
