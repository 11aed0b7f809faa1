package model

import (
	"strings"
	"time"
)

// OrderUpdate is one append-only audit trail entry. Rows are never updated or
// deleted.
type OrderUpdate struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	DriverID  string    `json:"driver_id"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	PhotoURL  *string   `json:"photo_url"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderUpdate) TableName() string { return "order_updates" }

// Notification is a fire-and-forget message addressed to one user. Read state
// is mutated elsewhere.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// UserProfile carries the display identity used in notification texts.
type UserProfile struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      string  `json:"role"`
}

func (UserProfile) TableName() string { return "user_profiles" }

// DisplayName joins the profile's name parts, falling back to "Driver" when
// nothing is set.
func (p *UserProfile) DisplayName() string {
	if p == nil {
		return "Driver"
	}
	first, last := "", ""
	if p.FirstName != nil {
		first = *p.FirstName
	}
	if p.LastName != nil {
		last = *p.LastName
	}
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return "Driver"
	}
	return name
}
