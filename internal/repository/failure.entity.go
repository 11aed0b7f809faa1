package repository

import (
	"time"

	"github.com/swiftroute/delivery-gateway/internal/model"
)

type FailureEntity struct {
	ID                  string     `db:"id"                   gorm:"primaryKey;column:id;type:uuid"`
	OrderID             string     `db:"order_id"             gorm:"column:order_id;not null;uniqueIndex"`
	DriverID            string     `db:"driver_id"            gorm:"column:driver_id;not null;index"`
	FailureReason       string     `db:"failure_reason"       gorm:"column:failure_reason;not null"`
	Notes               *string    `db:"notes"                gorm:"column:notes"`
	AttemptedDelivery   bool       `db:"attempted_delivery"   gorm:"column:attempted_delivery;not null;default:false"`
	ContactedCustomer   bool       `db:"contacted_customer"   gorm:"column:contacted_customer;not null;default:false"`
	LeftAtLocation      bool       `db:"left_at_location"     gorm:"column:left_at_location;not null;default:false"`
	RescheduleRequested bool       `db:"reschedule_requested" gorm:"column:reschedule_requested;not null;default:false"`
	RescheduleDate      *time.Time `db:"reschedule_date"      gorm:"column:reschedule_date"`
	Location            *string    `db:"location"             gorm:"column:location"`
	Photos              string     `db:"photos"               gorm:"column:photos;not null;default:[]"` // JSON-encoded URL array
	CreatedAt           time.Time  `db:"created_at"           gorm:"column:created_at;autoCreateTime"`
}

func (FailureEntity) TableName() string { return "delivery_failures" }

func toFailureEntity(m *model.DeliveryFailure) *FailureEntity {
	if m == nil {
		return nil
	}
	return &FailureEntity{
		ID:                  m.ID,
		OrderID:             m.OrderID,
		DriverID:            m.DriverID,
		FailureReason:       m.FailureReason,
		Notes:               m.Notes,
		AttemptedDelivery:   m.AttemptedDelivery,
		ContactedCustomer:   m.ContactedCustomer,
		LeftAtLocation:      m.LeftAtLocation,
		RescheduleRequested: m.RescheduleRequested,
		RescheduleDate:      m.RescheduleDate,
		Location:            m.Location,
		Photos:              m.Photos,
		CreatedAt:           m.CreatedAt,
	}
}

func toFailureModel(e *FailureEntity) *model.DeliveryFailure {
	if e == nil {
		return nil
	}
	return &model.DeliveryFailure{
		ID:                  e.ID,
		OrderID:             e.OrderID,
		DriverID:            e.DriverID,
		FailureReason:       e.FailureReason,
		Notes:               e.Notes,
		AttemptedDelivery:   e.AttemptedDelivery,
		ContactedCustomer:   e.ContactedCustomer,
		LeftAtLocation:      e.LeftAtLocation,
		RescheduleRequested: e.RescheduleRequested,
		RescheduleDate:      e.RescheduleDate,
		Location:            e.Location,
		Photos:              e.Photos,
		CreatedAt:           e.CreatedAt,
	}
}
