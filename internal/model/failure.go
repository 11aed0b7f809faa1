package model

import (
	"strings"
	"time"
)

// DeliveryFailure is the failed-delivery counterpart of ProofOfDelivery,
// created once per failed completion. Photos is a JSON-encoded array of URLs,
// its own legacy-style encoding distinct from pod_photos rows.
type DeliveryFailure struct {
	ID                  string     `json:"id"`
	OrderID             string     `json:"order_id"`
	DriverID            string     `json:"driver_id"`
	FailureReason       string     `json:"failure_reason"`
	Notes               *string    `json:"notes"`
	AttemptedDelivery   bool       `json:"attempted_delivery"`
	ContactedCustomer   bool       `json:"contacted_customer"`
	LeftAtLocation      bool       `json:"left_at_location"`
	RescheduleRequested bool       `json:"reschedule_requested"`
	RescheduleDate      *time.Time `json:"reschedule_date"`
	Location            *string    `json:"location"`
	Photos              string     `json:"photos"`
	CreatedAt           time.Time  `json:"created_at"`
}

func (DeliveryFailure) TableName() string { return "delivery_failures" }

// FailureData is the evidence assembled on the driver device for a failed
// delivery attempt. Photos are optional on this path.
type FailureData struct {
	FailureReason       string       `json:"failureReason"`
	Notes               string       `json:"notes"`
	AttemptedDelivery   bool         `json:"attemptedDelivery"`
	ContactedCustomer   bool         `json:"contactedCustomer"`
	LeftAtLocation      bool         `json:"leftAtLocation"`
	RescheduleRequested bool         `json:"rescheduleRequested"`
	RescheduleDate      *time.Time   `json:"rescheduleDate"`
	Location            string       `json:"location"`
	Geolocation         *Geolocation `json:"geolocation"`
	Photos              []PhotoInput `json:"photos"`
}

func (d FailureData) Validate() error {
	if strings.TrimSpace(d.FailureReason) == "" {
		return ErrFailureReasonRequired
	}
	return nil
}

// FailOrderRequest is the failure-path submission boundary payload.
type FailOrderRequest struct {
	OrderID     string      `json:"orderId"`
	DriverID    string      `json:"driverId"`
	FailureData FailureData `json:"failureData"`
}

func (r FailOrderRequest) Validate() error {
	if r.OrderID == "" || r.DriverID == "" {
		return ErrMissingIdentifiers
	}
	return r.FailureData.Validate()
}
