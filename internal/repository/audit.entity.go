package repository

import (
	"time"

	"github.com/swiftroute/delivery-gateway/internal/model"
)

type OrderUpdateEntity struct {
	ID        string    `db:"id"         gorm:"primaryKey;column:id;type:uuid"`
	OrderID   string    `db:"order_id"   gorm:"column:order_id;not null;index"`
	DriverID  string    `db:"driver_id"  gorm:"column:driver_id;not null"`
	Status    string    `db:"status"     gorm:"column:status;not null"`
	Notes     string    `db:"notes"      gorm:"column:notes;not null"`
	PhotoURL  *string   `db:"photo_url"  gorm:"column:photo_url"`
	Latitude  *float64  `db:"latitude"   gorm:"column:latitude"`
	Longitude *float64  `db:"longitude"  gorm:"column:longitude"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (OrderUpdateEntity) TableName() string { return "order_updates" }

func toOrderUpdateEntity(m *model.OrderUpdate) *OrderUpdateEntity {
	if m == nil {
		return nil
	}
	return &OrderUpdateEntity{
		ID:        m.ID,
		OrderID:   m.OrderID,
		DriverID:  m.DriverID,
		Status:    m.Status,
		Notes:     m.Notes,
		PhotoURL:  m.PhotoURL,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		CreatedAt: m.CreatedAt,
	}
}

func toOrderUpdateModel(e *OrderUpdateEntity) *model.OrderUpdate {
	if e == nil {
		return nil
	}
	return &model.OrderUpdate{
		ID:        e.ID,
		OrderID:   e.OrderID,
		DriverID:  e.DriverID,
		Status:    e.Status,
		Notes:     e.Notes,
		PhotoURL:  e.PhotoURL,
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		CreatedAt: e.CreatedAt,
	}
}

type NotificationEntity struct {
	ID        string    `db:"id"         gorm:"primaryKey;column:id;type:uuid"`
	UserID    string    `db:"user_id"    gorm:"column:user_id;not null;index"`
	Title     string    `db:"title"      gorm:"column:title;not null"`
	Message   string    `db:"message"    gorm:"column:message;not null"`
	Type      string    `db:"type"       gorm:"column:type;not null"`
	Read      bool      `db:"read"       gorm:"column:read;not null;default:false"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (NotificationEntity) TableName() string { return "notifications" }

type UserProfileEntity struct {
	ID        string  `db:"id"         gorm:"primaryKey;column:id;type:uuid"`
	UserID    string  `db:"user_id"    gorm:"column:user_id;not null;uniqueIndex"`
	FirstName *string `db:"first_name" gorm:"column:first_name"`
	LastName  *string `db:"last_name"  gorm:"column:last_name"`
	Role      string  `db:"role"       gorm:"column:role;not null"`
}

func (UserProfileEntity) TableName() string { return "user_profiles" }
