package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateCompletion signals that a proof of delivery already exists
	// for the order. The unique index on order_id turns a retried or
	// concurrent duplicate submission into this error instead of a second row.
	ErrDuplicateCompletion = errors.New("proof of delivery already exists for order")

	// ErrPodNotFound is returned when an order has no proof of delivery row.
	ErrPodNotFound = errors.New("proof of delivery not found")
)

type PodRepository struct {
	*pg.DB
}

func NewPodRepository(db *pg.DB) *PodRepository {
	return &PodRepository{db}
}

func (r *PodRepository) Create(ctx context.Context, pod *model.ProofOfDelivery) (*model.ProofOfDelivery, error) {
	entity := toPodEntity(pod)
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.DeliveryTimestamp.IsZero() {
		entity.DeliveryTimestamp = time.Now().UTC()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCompletion
		}
		return nil, err
	}
	return toPodModel(entity), nil
}

func (r *PodRepository) GetByOrderID(ctx context.Context, orderID string) (*model.ProofOfDelivery, error) {
	var entity PodEntity
	err := r.Read(ctx).WithContext(ctx).Where("order_id = ?", orderID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPodNotFound
	}
	if err != nil {
		return nil, err
	}
	return toPodModel(&entity), nil
}

func (r *PodRepository) AddPhoto(ctx context.Context, photo *model.PodPhoto) (*model.PodPhoto, error) {
	entity := toPodPhotoEntity(photo)
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.PhotoType == "" {
		entity.PhotoType = "delivery"
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toPodPhotoModel(entity), nil
}

// ListPhotos returns the photos of one proof of delivery ordered by creation
// time ascending. That ordering is the authoritative display order.
func (r *PodRepository) ListPhotos(ctx context.Context, podID string) ([]*model.PodPhoto, error) {
	var entities []*PodPhotoEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("pod_id = ?", podID).
		Order("created_at ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toPodPhotoModels(entities), nil
}

// isUniqueViolation detects a unique-constraint breach across the drivers the
// repo runs against (postgres in production, sqlite in tests).
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
