package fulfiller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gateway "github.com/swiftroute/delivery-gateway/internal/gateways"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/internal/queue"
	"github.com/swiftroute/delivery-gateway/internal/services"
	"github.com/swiftroute/delivery-gateway/pkg/logger"
	"github.com/swiftroute/delivery-gateway/pkg/prom"
)

type OrderRepository interface {
	Get(ctx context.Context, id string) (*model.Order, error)
	SetFulfillment(ctx context.Context, orderID, fulfillmentID string, fulfilledAt time.Time) error
}

type ConnectionRepository interface {
	Get(ctx context.Context, id string) (*model.ShopifyConnection, error)
}

type FulfillmentGateway interface {
	CreateFulfillment(ctx context.Context, conn *model.ShopifyConnection, fr gateway.FulfillmentRequest) (*gateway.FulfillmentResponse, error)
}

// FulfillmentTaskProcessor drains the retry stream: every task is a Shopify
// fulfillment that failed during the completion request.
type FulfillmentTaskProcessor struct {
	orderRepo      OrderRepository
	connectionRepo ConnectionRepository
	shopify        FulfillmentGateway
	idempotency    *IdempotencyService
}

func NewFulfillmentTaskProcessor(orderRepo OrderRepository, connectionRepo ConnectionRepository, shopify FulfillmentGateway, idempotency *IdempotencyService) *FulfillmentTaskProcessor {
	return &FulfillmentTaskProcessor{
		orderRepo:      orderRepo,
		connectionRepo: connectionRepo,
		shopify:        shopify,
		idempotency:    idempotency,
	}
}

func (p *FulfillmentTaskProcessor) GetType() string {
	return "fulfillment_retry"
}

// Process retries one deferred fulfillment with idempotency guarantees.
// Returning nil acks the task; returning an error leaves it pending for the
// next attempt.
func (p *FulfillmentTaskProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var task services.FulfillmentTask
	if err := json.Unmarshal(queueMessage.Data, &task); err != nil {
		logger.Error("failed to unmarshal fulfillment task", "error", err)
		return err // malformed task goes to the DLQ
	}

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, task.OrderID)
	if err != nil {
		if errors.Is(err, ErrAlreadyFulfilled) {
			logger.Info("order already fulfilled, skipping", "order_id", task.OrderID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("giving up on fulfillment", "order_id", task.OrderID)
			prom.IncFulfillmentRetry("exhausted")
			return nil // ACK so the task moves to the DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("fulfillment lock held by another consumer")
		}
		logger.Error("failed to acquire fulfillment lock", "order_id", task.OrderID, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("retrying shopify fulfillment",
		"order_id", task.OrderID,
		"shopify_order_id", task.ShopifyOrderID,
		"retry_count", procCtx.RetryCount)

	// The write path may have fulfilled the order through another route since
	// the task was queued.
	order, err := p.orderRepo.Get(ctx, task.OrderID)
	if err != nil {
		logger.Error("order lookup failed", "order_id", task.OrderID, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("failed to mark failure", "order_id", task.OrderID, "error", markErr)
		}
		return err
	}
	if order.ShopifyFulfillmentID != nil && *order.ShopifyFulfillmentID != "" {
		logger.Info("order fulfilled since task was queued", "order_id", task.OrderID)
		return p.idempotency.MarkSuccess(ctx, procCtx)
	}

	conn, err := p.connectionRepo.Get(ctx, task.ConnectionID)
	if err != nil {
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("failed to mark failure", "order_id", task.OrderID, "error", markErr)
		}
		return err
	}
	if !conn.FulfillmentReady() {
		// Store disconnected or token revoked while the task sat in the
		// stream. Nothing left to retry.
		logger.Info("connection no longer fulfillment-ready, dropping task", "order_id", task.OrderID)
		return p.idempotency.MarkSuccess(ctx, procCtx)
	}

	resp, err := p.shopify.CreateFulfillment(ctx, conn, gateway.FulfillmentRequest{
		OrderID:        task.OrderID,
		ShopifyOrderID: task.ShopifyOrderID,
		OrderNumber:    task.OrderNumber,
	})
	if err != nil {
		var extErr *gateway.ExternalServiceError
		if errors.As(err, &extErr) && extErr.StatusCode >= 400 && extErr.StatusCode < 500 && extErr.StatusCode != 429 {
			// Shopify rejected the request outright, retrying the same
			// payload cannot succeed.
			logger.Error("shopify rejected fulfillment, giving up", "order_id", task.OrderID, "status", extErr.StatusCode)
			prom.IncFulfillmentRetry("rejected")
			return p.idempotency.MarkSuccess(ctx, procCtx)
		}

		logger.Error("fulfillment retry failed", "order_id", task.OrderID, "error", err)
		prom.IncFulfillmentRetry("failed")
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("failed to mark failure", "order_id", task.OrderID, "error", markErr)
		}
		return err
	}

	now := time.Now().UTC()
	if err := p.orderRepo.SetFulfillment(ctx, task.OrderID, resp.FulfillmentID, now); err != nil {
		logger.Error("failed to record fulfillment id", "order_id", task.OrderID, "error", err)
		// Shopify accepted it, recording failures must not trigger another call
	}

	prom.IncFulfillmentRetry("succeeded")
	logger.Info("deferred fulfillment succeeded",
		"order_id", task.OrderID,
		"fulfillment_id", resp.FulfillmentID,
		"retry_count", procCtx.RetryCount)

	return p.idempotency.MarkSuccess(ctx, procCtx)
}
