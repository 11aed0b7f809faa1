package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrMissingIdentifiers    = errors.New("orderId and driverId are required")
	ErrRecipientRequired     = errors.New("recipient name is required")
	ErrPhotoRequired         = errors.New("at least one photo is required")
	ErrFailureReasonRequired = errors.New("failure reason is required")
)

// ProofOfDelivery is the normalized delivery record, created exactly once per
// successful completion and never updated afterwards.
type ProofOfDelivery struct {
	ID                 string    `json:"id"`
	OrderID            string    `json:"order_id"`
	DriverID           string    `json:"driver_id"`
	DeliveryTimestamp  time.Time `json:"delivery_timestamp"`
	RecipientName      string    `json:"recipient_name"`
	RecipientSignature *string   `json:"recipient_signature"`
	DeliveryNotes      *string   `json:"delivery_notes"`
	LocationLatitude   *float64  `json:"location_latitude"`
	LocationLongitude  *float64  `json:"location_longitude"`
	CreatedAt          time.Time `json:"created_at"`
}

func (ProofOfDelivery) TableName() string { return "proof_of_delivery" }

// PodPhoto is one captured photo attached to a proof of delivery. CreatedAt is
// the display ordering key.
type PodPhoto struct {
	ID          string    `json:"id"`
	PodID       string    `json:"pod_id"`
	PhotoURL    string    `json:"photo_url"`
	PhotoType   string    `json:"photo_type"`
	Description *string   `json:"description"`
	FileSize    *int64    `json:"file_size"`
	MimeType    *string   `json:"mime_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PodPhoto) TableName() string { return "pod_photos" }

// Geolocation is a best-effort capture-side coordinate pair.
type Geolocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PhotoFile carries client-side file metadata for a captured photo.
type PhotoFile struct {
	Size int64  `json:"size"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// PhotoInput is one photo entry of a completion payload. URL may be a remote
// URL or an inline data-encoded image. Entries without a URL are skipped at
// persistence time, never rejected.
type PhotoInput struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	File        PhotoFile `json:"file"`
}

// CompletionData is the evidence assembled on the driver device for a
// successful delivery.
type CompletionData struct {
	CustomerName string       `json:"customerName"`
	Notes        string       `json:"notes"`
	Signature    string       `json:"signature"`
	Location     *Geolocation `json:"location"`
	Photos       []PhotoInput `json:"photos"`
}

// Validate enforces the success-path capture rules: a non-empty recipient name
// and at least one photo.
func (d CompletionData) Validate() error {
	if strings.TrimSpace(d.CustomerName) == "" {
		return ErrRecipientRequired
	}
	if len(d.Photos) == 0 {
		return ErrPhotoRequired
	}
	return nil
}

// CompleteOrderRequest is the completion submission boundary payload.
type CompleteOrderRequest struct {
	OrderID        string         `json:"orderId"`
	DriverID       string         `json:"driverId"`
	CompletionData CompletionData `json:"completionData"`
}

func (r CompleteOrderRequest) Validate() error {
	if r.OrderID == "" || r.DriverID == "" {
		return ErrMissingIdentifiers
	}
	return r.CompletionData.Validate()
}

// PodSummary reports how much of the submitted evidence was durably stored.
// PhotosProcessed < PhotosTotal signals partial photo loss.
type PodSummary struct {
	ID              string `json:"id"`
	PhotosProcessed int    `json:"photos_processed"`
	PhotosTotal     int    `json:"photos_total"`
}

// PhotoFailure records one photo insert that failed while the rest of the
// completion proceeded.
type PhotoFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// FulfillmentOutcome is the in-request result of the best-effort external
// fulfillment call.
type FulfillmentOutcome struct {
	FulfillmentID string `json:"fulfillment_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// CompletionResult surfaces partial failure explicitly: the order reached a
// terminal status, but photo, audit, or fulfillment steps may have degraded.
type CompletionResult struct {
	Success            bool                `json:"success"`
	Message            string              `json:"message"`
	Order              OrderSummary        `json:"order"`
	Pod                PodSummary          `json:"pod"`
	PhotoFailures      []PhotoFailure      `json:"photo_failures,omitempty"`
	FulfillmentUpdated bool                `json:"fulfillment_updated"`
	FulfillmentResult  *FulfillmentOutcome `json:"fulfillment_result,omitempty"`
	Duplicate          bool                `json:"duplicate,omitempty"`
}
