package repository

import (
	"time"

	"github.com/swiftroute/delivery-gateway/internal/model"
)

type PodEntity struct {
	ID                 string    `db:"id"                  gorm:"primaryKey;column:id;type:uuid"`
	OrderID            string    `db:"order_id"            gorm:"column:order_id;not null;uniqueIndex"`
	DriverID           string    `db:"driver_id"           gorm:"column:driver_id;not null;index"`
	DeliveryTimestamp  time.Time `db:"delivery_timestamp"  gorm:"column:delivery_timestamp;not null"`
	RecipientName      string    `db:"recipient_name"      gorm:"column:recipient_name;not null"`
	RecipientSignature *string   `db:"recipient_signature" gorm:"column:recipient_signature"`
	DeliveryNotes      *string   `db:"delivery_notes"      gorm:"column:delivery_notes"`
	LocationLatitude   *float64  `db:"location_latitude"   gorm:"column:location_latitude"`
	LocationLongitude  *float64  `db:"location_longitude"  gorm:"column:location_longitude"`
	CreatedAt          time.Time `db:"created_at"          gorm:"column:created_at;autoCreateTime"`
}

func (PodEntity) TableName() string { return "proof_of_delivery" }

type PodPhotoEntity struct {
	ID          string    `db:"id"          gorm:"primaryKey;column:id;type:uuid"`
	PodID       string    `db:"pod_id"      gorm:"column:pod_id;not null;index"`
	Pod         *PodEntity `db:"-"          gorm:"foreignKey:PodID;references:ID;constraint:OnDelete:CASCADE"`
	PhotoURL    string    `db:"photo_url"   gorm:"column:photo_url;not null"`
	PhotoType   string    `db:"photo_type"  gorm:"column:photo_type;not null;default:delivery"`
	Description *string   `db:"description" gorm:"column:description"`
	FileSize    *int64    `db:"file_size"   gorm:"column:file_size"`
	MimeType    *string   `db:"mime_type"   gorm:"column:mime_type"`
	CreatedAt   time.Time `db:"created_at"  gorm:"column:created_at;autoCreateTime"`
}

func (PodPhotoEntity) TableName() string { return "pod_photos" }

func toPodEntity(m *model.ProofOfDelivery) *PodEntity {
	if m == nil {
		return nil
	}
	return &PodEntity{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		DriverID:           m.DriverID,
		DeliveryTimestamp:  m.DeliveryTimestamp,
		RecipientName:      m.RecipientName,
		RecipientSignature: m.RecipientSignature,
		DeliveryNotes:      m.DeliveryNotes,
		LocationLatitude:   m.LocationLatitude,
		LocationLongitude:  m.LocationLongitude,
		CreatedAt:          m.CreatedAt,
	}
}

func toPodModel(e *PodEntity) *model.ProofOfDelivery {
	if e == nil {
		return nil
	}
	return &model.ProofOfDelivery{
		ID:                 e.ID,
		OrderID:            e.OrderID,
		DriverID:           e.DriverID,
		DeliveryTimestamp:  e.DeliveryTimestamp,
		RecipientName:      e.RecipientName,
		RecipientSignature: e.RecipientSignature,
		DeliveryNotes:      e.DeliveryNotes,
		LocationLatitude:   e.LocationLatitude,
		LocationLongitude:  e.LocationLongitude,
		CreatedAt:          e.CreatedAt,
	}
}

func toPodPhotoEntity(m *model.PodPhoto) *PodPhotoEntity {
	if m == nil {
		return nil
	}
	return &PodPhotoEntity{
		ID:          m.ID,
		PodID:       m.PodID,
		PhotoURL:    m.PhotoURL,
		PhotoType:   m.PhotoType,
		Description: m.Description,
		FileSize:    m.FileSize,
		MimeType:    m.MimeType,
		CreatedAt:   m.CreatedAt,
	}
}

func toPodPhotoModel(e *PodPhotoEntity) *model.PodPhoto {
	if e == nil {
		return nil
	}
	return &model.PodPhoto{
		ID:          e.ID,
		PodID:       e.PodID,
		PhotoURL:    e.PhotoURL,
		PhotoType:   e.PhotoType,
		Description: e.Description,
		FileSize:    e.FileSize,
		MimeType:    e.MimeType,
		CreatedAt:   e.CreatedAt,
	}
}

func toPodPhotoModels(entities []*PodPhotoEntity) []*model.PodPhoto {
	if entities == nil {
		return nil
	}
	models := make([]*model.PodPhoto, len(entities))
	for i, e := range entities {
		models[i] = toPodPhotoModel(e)
	}
	return models
}
