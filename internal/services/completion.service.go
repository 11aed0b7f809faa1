package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gateway "github.com/swiftroute/delivery-gateway/internal/gateways"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/internal/repository"
	"github.com/swiftroute/delivery-gateway/pkg/logger"
	"github.com/swiftroute/delivery-gateway/pkg/prom"
)

type OrderRepository interface {
	Get(ctx context.Context, id string) (*model.Order, error)
	GetForDriver(ctx context.Context, orderID, driverID string) (*model.Order, error)
	MarkCompleted(ctx context.Context, orderID string, status model.OrderStatus, completedAt time.Time, legacyPhotoJSON *string) error
	SetFulfillment(ctx context.Context, orderID, fulfillmentID string, fulfilledAt time.Time) error
}

type PodRepository interface {
	Create(ctx context.Context, pod *model.ProofOfDelivery) (*model.ProofOfDelivery, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.ProofOfDelivery, error)
	AddPhoto(ctx context.Context, photo *model.PodPhoto) (*model.PodPhoto, error)
	ListPhotos(ctx context.Context, podID string) ([]*model.PodPhoto, error)
}

type FailureRepository interface {
	Create(ctx context.Context, failure *model.DeliveryFailure) (*model.DeliveryFailure, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.DeliveryFailure, error)
}

type ConnectionRepository interface {
	Get(ctx context.Context, id string) (*model.ShopifyConnection, error)
}

type OrderUpdateRepository interface {
	Create(ctx context.Context, update *model.OrderUpdate) (*model.OrderUpdate, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) (*model.Notification, error)
}

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.UserProfile, error)
}

type FulfillmentGateway interface {
	CreateFulfillment(ctx context.Context, conn *model.ShopifyConnection, fr gateway.FulfillmentRequest) (*gateway.FulfillmentResponse, error)
}

// RetryPublisher enqueues fulfillment tasks that failed in-request so a
// background consumer can retry them.
type RetryPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// FulfillmentTask is the queued unit of a deferred fulfillment attempt.
type FulfillmentTask struct {
	OrderID        string `json:"order_id"`
	ShopifyOrderID string `json:"shopify_order_id"`
	OrderNumber    string `json:"order_number"`
	ConnectionID   string `json:"connection_id"`
}

type CompletionService struct {
	orderRepo        OrderRepository
	podRepo          PodRepository
	failureRepo      FailureRepository
	connectionRepo   ConnectionRepository
	updateRepo       OrderUpdateRepository
	notificationRepo NotificationRepository
	profileRepo      ProfileRepository
	shopify          FulfillmentGateway
	retryQueue       RetryPublisher
}

func NewCompletionService(
	orderRepo OrderRepository,
	podRepo PodRepository,
	failureRepo FailureRepository,
	connectionRepo ConnectionRepository,
	updateRepo OrderUpdateRepository,
	notificationRepo NotificationRepository,
	profileRepo ProfileRepository,
	shopify FulfillmentGateway,
	retryQueue RetryPublisher,
) *CompletionService {
	return &CompletionService{
		orderRepo:        orderRepo,
		podRepo:          podRepo,
		failureRepo:      failureRepo,
		connectionRepo:   connectionRepo,
		updateRepo:       updateRepo,
		notificationRepo: notificationRepo,
		profileRepo:      profileRepo,
		shopify:          shopify,
		retryQueue:       retryQueue,
	}
}

// CompleteDelivery runs the full completion write sequence: proof-of-delivery
// record, photo rows, order finalization, audit entry, best-effort Shopify
// fulfillment and the two participant notifications. Photo, audit and
// fulfillment failures degrade the result instead of aborting it; only the
// proof-of-delivery insert and the order update are load-bearing.
func (s *CompletionService) CompleteDelivery(ctx context.Context, req model.CompleteOrderRequest) (*model.CompletionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	order, err := s.orderRepo.GetForDriver(ctx, req.OrderID, req.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status.Terminal() {
		return s.existingCompletion(ctx, order)
	}
	if !order.Status.CompletionEligible() {
		return nil, ErrOrderNotEligible
	}

	data := req.CompletionData
	now := time.Now().UTC()

	pod := &model.ProofOfDelivery{
		OrderID:           order.ID,
		DriverID:          req.DriverID,
		DeliveryTimestamp: now,
		RecipientName:     strings.TrimSpace(data.CustomerName),
	}
	if data.Signature != "" {
		pod.RecipientSignature = &data.Signature
	}
	if data.Notes != "" {
		pod.DeliveryNotes = &data.Notes
	}
	if data.Location != nil {
		pod.LocationLatitude = &data.Location.Lat
		pod.LocationLongitude = &data.Location.Lng
	}

	created, err := s.podRepo.Create(ctx, pod)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCompletion) {
			return s.existingCompletion(ctx, order)
		}
		return nil, &CriticalPersistenceError{Step: "create_pod", Err: err}
	}

	storedURLs, photoFailures := s.persistPhotos(ctx, created.ID, data.Photos)

	legacyJSON := encodeLegacyPhotoList(storedURLs)
	if err := s.orderRepo.MarkCompleted(ctx, order.ID, model.OrderStatusDelivered, now, legacyJSON); err != nil {
		return nil, &CriticalPersistenceError{Step: "update_order", Err: err}
	}
	order.Status = model.OrderStatusDelivered
	order.CompletedAt = &now

	s.writeAuditEntry(ctx, order, created, data, storedURLs)

	fulfillmentUpdated, outcome := s.attemptFulfillment(ctx, order)

	s.notifyParticipants(ctx, order, req.DriverID, fulfillmentUpdated)

	prom.AddDeliveryCompletionDuration(time.Since(start).Seconds(), "delivered")

	result := &model.CompletionResult{
		Success: true,
		Message: "Delivery completed successfully",
		Order:   order.Summary(),
		Pod: model.PodSummary{
			ID:              created.ID,
			PhotosProcessed: len(storedURLs),
			PhotosTotal:     len(data.Photos),
		},
		PhotoFailures:      photoFailures,
		FulfillmentUpdated: fulfillmentUpdated,
		FulfillmentResult:  outcome,
	}
	if len(photoFailures) > 0 {
		result.Message = "Delivery completed, but some photos could not be saved"
	}
	return result, nil
}

// FailDelivery records a failed delivery attempt. The failure report keeps its
// photo URLs as one JSON-encoded column rather than normalized rows.
func (s *CompletionService) FailDelivery(ctx context.Context, req model.FailOrderRequest) (*model.CompletionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	order, err := s.orderRepo.GetForDriver(ctx, req.OrderID, req.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status.Terminal() {
		return s.existingCompletion(ctx, order)
	}
	if !order.Status.CompletionEligible() {
		return nil, ErrOrderNotEligible
	}

	data := req.FailureData
	now := time.Now().UTC()

	urls := make([]string, 0, len(data.Photos))
	for _, p := range data.Photos {
		if strings.TrimSpace(p.URL) != "" {
			urls = append(urls, p.URL)
		}
	}
	photosJSON := "[]"
	if encoded := encodeLegacyPhotoList(urls); encoded != nil {
		photosJSON = *encoded
	}

	failure := &model.DeliveryFailure{
		OrderID:             order.ID,
		DriverID:            req.DriverID,
		FailureReason:       data.FailureReason,
		AttemptedDelivery:   data.AttemptedDelivery,
		ContactedCustomer:   data.ContactedCustomer,
		LeftAtLocation:      data.LeftAtLocation,
		RescheduleRequested: data.RescheduleRequested,
		RescheduleDate:      data.RescheduleDate,
		Photos:              photosJSON,
	}
	if data.Notes != "" {
		failure.Notes = &data.Notes
	}
	if data.Location != "" {
		failure.Location = &data.Location
	}

	created, err := s.failureRepo.Create(ctx, failure)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCompletion) {
			return s.existingCompletion(ctx, order)
		}
		return nil, &CriticalPersistenceError{Step: "create_failure", Err: err}
	}

	if err := s.orderRepo.MarkCompleted(ctx, order.ID, model.OrderStatusFailed, now, encodeLegacyPhotoList(urls)); err != nil {
		return nil, &CriticalPersistenceError{Step: "update_order", Err: err}
	}
	order.Status = model.OrderStatusFailed
	order.CompletedAt = &now

	s.writeFailureAuditEntry(ctx, order, created, data, urls)
	s.notifyFailure(ctx, order, req.DriverID, data.FailureReason)

	prom.AddDeliveryCompletionDuration(time.Since(start).Seconds(), "failed")

	return &model.CompletionResult{
		Success: true,
		Message: "Delivery failure recorded",
		Order:   order.Summary(),
		Pod: model.PodSummary{
			ID:              created.ID,
			PhotosProcessed: len(urls),
			PhotosTotal:     len(data.Photos),
		},
	}, nil
}

// existingCompletion rebuilds the result of an already-finalized order so
// duplicate submissions get the original outcome instead of an error.
func (s *CompletionService) existingCompletion(ctx context.Context, order *model.Order) (*model.CompletionResult, error) {
	result := &model.CompletionResult{
		Success:   true,
		Message:   "Order already completed",
		Order:     order.Summary(),
		Duplicate: true,
	}
	if order.ShopifyFulfillmentID != nil {
		result.FulfillmentUpdated = true
		result.FulfillmentResult = &model.FulfillmentOutcome{FulfillmentID: *order.ShopifyFulfillmentID}
	}

	pod, err := s.podRepo.GetByOrderID(ctx, order.ID)
	if err == nil {
		photos, perr := s.podRepo.ListPhotos(ctx, pod.ID)
		if perr != nil {
			logger.Warn("failed to list photos for duplicate completion", "order_id", order.ID, "error", perr)
		}
		result.Pod = model.PodSummary{
			ID:              pod.ID,
			PhotosProcessed: len(photos),
			PhotosTotal:     len(photos),
		}
		return result, nil
	}
	if !errors.Is(err, repository.ErrPodNotFound) {
		return nil, err
	}

	failure, err := s.failureRepo.GetByOrderID(ctx, order.ID)
	if err == nil {
		urls := model.ParseFailurePhotos(failure.Photos)
		result.Message = "Delivery failure already recorded"
		result.Pod = model.PodSummary{
			ID:              failure.ID,
			PhotosProcessed: len(urls),
			PhotosTotal:     len(urls),
		}
		return result, nil
	}
	if !errors.Is(err, repository.ErrFailureNotFound) {
		return nil, err
	}

	// Terminal order without a delivery record: finalized by an older system
	// generation. Report the order state alone.
	return result, nil
}

// persistPhotos folds over the submitted photos, skipping entries without a
// URL and continuing past individual insert failures.
func (s *CompletionService) persistPhotos(ctx context.Context, podID string, photos []model.PhotoInput) ([]string, []model.PhotoFailure) {
	var stored []string
	var failures []model.PhotoFailure

	for i, p := range photos {
		if strings.TrimSpace(p.URL) == "" {
			continue
		}

		photo := &model.PodPhoto{
			PodID:    podID,
			PhotoURL: p.URL,
		}
		if p.Type != "" {
			photo.PhotoType = p.Type
		}
		description := p.Description
		if description == "" {
			description = fmt.Sprintf("Delivery photo %d", i+1)
		}
		photo.Description = &description
		if p.File.Size > 0 {
			photo.FileSize = &p.File.Size
		}
		mimeType := p.File.Type
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		photo.MimeType = &mimeType

		if _, err := s.podRepo.AddPhoto(ctx, photo); err != nil {
			logger.Warn("photo insert failed, continuing", "pod_id", podID, "index", i, "error", err)
			prom.IncPhotoPersistFailure("insert_error")
			failures = append(failures, model.PhotoFailure{Index: i, Reason: err.Error()})
			continue
		}
		stored = append(stored, p.URL)
	}

	return stored, failures
}

func (s *CompletionService) writeAuditEntry(ctx context.Context, order *model.Order, pod *model.ProofOfDelivery, data model.CompletionData, storedURLs []string) {
	note := fmt.Sprintf("PROOF OF DELIVERY COMPLETED\nDelivered to: %s\nPhotos captured: %d\nPOD ID: %s",
		pod.RecipientName, len(storedURLs), pod.ID)
	if data.Notes != "" {
		note += "\nNotes: " + data.Notes
	}

	update := &model.OrderUpdate{
		OrderID:  order.ID,
		DriverID: pod.DriverID,
		Status:   string(model.OrderStatusDelivered),
		Notes:    note,
	}
	update.PhotoURL = encodeLegacyPhotoList(storedURLs)
	if data.Location != nil {
		update.Latitude = &data.Location.Lat
		update.Longitude = &data.Location.Lng
	}

	if _, err := s.updateRepo.Create(ctx, update); err != nil {
		logger.Warn("audit entry write failed, continuing", "order_id", order.ID, "error", err)
	}
}

func (s *CompletionService) writeFailureAuditEntry(ctx context.Context, order *model.Order, failure *model.DeliveryFailure, data model.FailureData, urls []string) {
	note := fmt.Sprintf("DELIVERY FAILED\nReason: %s\nPhotos captured: %d\nReport ID: %s",
		data.FailureReason, len(urls), failure.ID)
	if data.Notes != "" {
		note += "\nNotes: " + data.Notes
	}

	update := &model.OrderUpdate{
		OrderID:  order.ID,
		DriverID: failure.DriverID,
		Status:   string(model.OrderStatusFailed),
		Notes:    note,
	}
	update.PhotoURL = encodeLegacyPhotoList(urls)
	if data.Geolocation != nil {
		update.Latitude = &data.Geolocation.Lat
		update.Longitude = &data.Geolocation.Lng
	}

	if _, err := s.updateRepo.Create(ctx, update); err != nil {
		logger.Warn("audit entry write failed, continuing", "order_id", order.ID, "error", err)
	}
}

// attemptFulfillment pushes the delivery to Shopify when the order is linked
// to a store. Failures never propagate; unreachable-store errors are handed to
// the retry queue instead.
func (s *CompletionService) attemptFulfillment(ctx context.Context, order *model.Order) (bool, *model.FulfillmentOutcome) {
	if order.ShopifyOrderID == nil || *order.ShopifyOrderID == "" ||
		order.ShopifyConnectionID == nil || *order.ShopifyConnectionID == "" {
		return false, nil
	}

	conn, err := s.connectionRepo.Get(ctx, *order.ShopifyConnectionID)
	if err != nil {
		logger.Warn("shopify connection lookup failed", "order_id", order.ID, "error", err)
		return false, &model.FulfillmentOutcome{Error: err.Error()}
	}
	if !conn.FulfillmentReady() {
		logger.Info("shopify connection not fulfillment-ready, skipping", "order_id", order.ID)
		return false, nil
	}

	resp, err := s.shopify.CreateFulfillment(ctx, conn, gateway.FulfillmentRequest{
		OrderID:        order.ID,
		ShopifyOrderID: *order.ShopifyOrderID,
		OrderNumber:    order.OrderNumber,
	})
	if err != nil {
		logger.Warn("shopify fulfillment failed", "order_id", order.ID, "error", err)
		s.enqueueFulfillmentRetry(ctx, order)
		return false, &model.FulfillmentOutcome{Error: err.Error()}
	}

	now := time.Now().UTC()
	if err := s.orderRepo.SetFulfillment(ctx, order.ID, resp.FulfillmentID, now); err != nil {
		logger.Warn("failed to record fulfillment id", "order_id", order.ID, "error", err)
	} else {
		order.ShopifyFulfillmentID = &resp.FulfillmentID
		order.ShopifyFulfilledAt = &now
	}

	return true, &model.FulfillmentOutcome{FulfillmentID: resp.FulfillmentID}
}

func (s *CompletionService) enqueueFulfillmentRetry(ctx context.Context, order *model.Order) {
	if s.retryQueue == nil {
		return
	}
	task := FulfillmentTask{
		OrderID:        order.ID,
		ShopifyOrderID: *order.ShopifyOrderID,
		OrderNumber:    order.OrderNumber,
		ConnectionID:   *order.ShopifyConnectionID,
	}
	if _, err := s.retryQueue.PublishJSON(ctx, task, map[string]string{"type": "fulfillment_retry"}); err != nil {
		logger.Error("failed to enqueue fulfillment retry", "order_id", order.ID, "error", err)
		return
	}
	prom.IncFulfillmentRetry("enqueued")
}

// notifyParticipants writes the driver and the order creator their completion
// notifications concurrently. The request waits for both, but either may fail
// without affecting the other or the response.
func (s *CompletionService) notifyParticipants(ctx context.Context, order *model.Order, driverID string, fulfillmentUpdated bool) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.notificationRepo.Create(ctx, &model.Notification{
			UserID:  driverID,
			Title:   "Delivery Completed",
			Message: fmt.Sprintf("You have successfully completed delivery for order %s", order.OrderNumber),
			Type:    "success",
		})
		if err != nil {
			logger.Warn("driver notification failed", "order_id", order.ID, "error", err)
		}
	}()

	if order.CreatedBy != "" && order.CreatedBy != driverID {
		wg.Add(1)
		go func() {
			defer wg.Done()
			profile, err := s.profileRepo.GetByUserID(ctx, driverID)
			if err != nil {
				logger.Warn("driver profile lookup failed", "driver_id", driverID, "error", err)
			}

			msg := fmt.Sprintf("Order %s has been successfully delivered by %s", order.OrderNumber, profile.DisplayName())
			if fulfillmentUpdated {
				msg += " and Shopify has been updated"
			}

			_, err = s.notificationRepo.Create(ctx, &model.Notification{
				UserID:  order.CreatedBy,
				Title:   "Order Delivered",
				Message: msg,
				Type:    "success",
			})
			if err != nil {
				logger.Warn("creator notification failed", "order_id", order.ID, "error", err)
			}
		}()
	}

	wg.Wait()
}

func (s *CompletionService) notifyFailure(ctx context.Context, order *model.Order, driverID, reason string) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.notificationRepo.Create(ctx, &model.Notification{
			UserID:  driverID,
			Title:   "Delivery Failure Recorded",
			Message: fmt.Sprintf("Your failure report for order %s has been recorded", order.OrderNumber),
			Type:    "warning",
		})
		if err != nil {
			logger.Warn("driver notification failed", "order_id", order.ID, "error", err)
		}
	}()

	if order.CreatedBy != "" && order.CreatedBy != driverID {
		wg.Add(1)
		go func() {
			defer wg.Done()
			profile, err := s.profileRepo.GetByUserID(ctx, driverID)
			if err != nil {
				logger.Warn("driver profile lookup failed", "driver_id", driverID, "error", err)
			}

			_, err = s.notificationRepo.Create(ctx, &model.Notification{
				UserID:  order.CreatedBy,
				Title:   "Delivery Failed",
				Message: fmt.Sprintf("Order %s could not be delivered by %s: %s", order.OrderNumber, profile.DisplayName(), reason),
				Type:    "warning",
			})
			if err != nil {
				logger.Warn("creator notification failed", "order_id", order.ID, "error", err)
			}
		}()
	}

	wg.Wait()
}

// encodeLegacyPhotoList renders the dual-write value for orders.photo_url:
// nil when nothing was stored, otherwise a JSON array of the stored URLs.
func encodeLegacyPhotoList(urls []string) *string {
	if len(urls) == 0 {
		return nil
	}
	encoded, err := json.Marshal(urls)
	if err != nil {
		return nil
	}
	s := string(encoded)
	return &s
}
