package fulfiller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gateway "github.com/swiftroute/delivery-gateway/internal/gateways"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/internal/queue"
	"github.com/swiftroute/delivery-gateway/internal/services"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) SetFulfillment(ctx context.Context, orderID, fulfillmentID string, fulfilledAt time.Time) error {
	args := m.Called(ctx, orderID, fulfillmentID, fulfilledAt)
	return args.Error(0)
}

type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Get(ctx context.Context, id string) (*model.ShopifyConnection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShopifyConnection), args.Error(1)
}

type MockFulfillmentGateway struct {
	mock.Mock
}

func (m *MockFulfillmentGateway) CreateFulfillment(ctx context.Context, conn *model.ShopifyConnection, fr gateway.FulfillmentRequest) (*gateway.FulfillmentResponse, error) {
	args := m.Called(ctx, conn, fr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.FulfillmentResponse), args.Error(1)
}

func newTestProcessor() (*FulfillmentTaskProcessor, *MockOrderRepository, *MockConnectionRepository, *MockFulfillmentGateway, *IdempotencyService) {
	orderRepo := new(MockOrderRepository)
	connRepo := new(MockConnectionRepository)
	shopify := new(MockFulfillmentGateway)
	idempotency := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
	processor := NewFulfillmentTaskProcessor(orderRepo, connRepo, shopify, idempotency)
	return processor, orderRepo, connRepo, shopify, idempotency
}

func taskMessage(t *testing.T, task services.FulfillmentTask) *queue.Message {
	t.Helper()
	data, err := json.Marshal(task)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data}
}

func pendingOrder() *model.Order {
	return &model.Order{
		ID:          "order-1",
		OrderNumber: "1001",
		Status:      model.OrderStatusDelivered,
	}
}

func activeConnection() *model.ShopifyConnection {
	return &model.ShopifyConnection{
		ID:          "conn-1",
		ShopDomain:  "test-shop.myshopify.com",
		AccessToken: "shpat_token",
		IsActive:    true,
	}
}

func TestFulfillmentTaskProcessor_Success(t *testing.T) {
	processor, orderRepo, connRepo, shopify, idempotency := newTestProcessor()

	task := services.FulfillmentTask{
		OrderID:        "order-1",
		ShopifyOrderID: "5001",
		OrderNumber:    "1001",
		ConnectionID:   "conn-1",
	}

	orderRepo.On("Get", mock.Anything, "order-1").Return(pendingOrder(), nil)
	connRepo.On("Get", mock.Anything, "conn-1").Return(activeConnection(), nil)
	shopify.On("CreateFulfillment", mock.Anything, mock.Anything, gateway.FulfillmentRequest{
		OrderID:        "order-1",
		ShopifyOrderID: "5001",
		OrderNumber:    "1001",
	}).Return(&gateway.FulfillmentResponse{FulfillmentID: "9001"}, nil)
	orderRepo.On("SetFulfillment", mock.Anything, "order-1", "9001", mock.Anything).Return(nil)

	err := processor.Process(context.Background(), taskMessage(t, task))
	require.NoError(t, err)

	fulfilled, err := idempotency.IsFulfilled(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, fulfilled)

	orderRepo.AssertExpectations(t)
	shopify.AssertExpectations(t)
}

func TestFulfillmentTaskProcessor_MalformedTask(t *testing.T) {
	processor, _, _, _, _ := newTestProcessor()

	msg := &queue.Message{ID: "1-0", Data: []byte("not json")}
	err := processor.Process(context.Background(), msg)
	assert.Error(t, err)
}

func TestFulfillmentTaskProcessor_AlreadyFulfilledMarker(t *testing.T) {
	processor, orderRepo, _, shopify, idempotency := newTestProcessor()

	ctx := context.Background()
	procCtx, err := idempotency.AcquireProcessingLock(ctx, "order-1")
	require.NoError(t, err)
	require.NoError(t, idempotency.MarkSuccess(ctx, procCtx))

	task := services.FulfillmentTask{OrderID: "order-1", ShopifyOrderID: "5001", OrderNumber: "1001", ConnectionID: "conn-1"}
	err = processor.Process(ctx, taskMessage(t, task))
	require.NoError(t, err)

	orderRepo.AssertNotCalled(t, "Get")
	shopify.AssertNotCalled(t, "CreateFulfillment")
}

func TestFulfillmentTaskProcessor_FulfilledSinceQueued(t *testing.T) {
	processor, orderRepo, _, shopify, _ := newTestProcessor()

	order := pendingOrder()
	fulfillmentID := "8001"
	order.ShopifyFulfillmentID = &fulfillmentID
	orderRepo.On("Get", mock.Anything, "order-1").Return(order, nil)

	task := services.FulfillmentTask{OrderID: "order-1", ShopifyOrderID: "5001", OrderNumber: "1001", ConnectionID: "conn-1"}
	err := processor.Process(context.Background(), taskMessage(t, task))
	require.NoError(t, err)

	shopify.AssertNotCalled(t, "CreateFulfillment")
}

func TestFulfillmentTaskProcessor_ConnectionNotReady(t *testing.T) {
	processor, orderRepo, connRepo, shopify, idempotency := newTestProcessor()

	conn := activeConnection()
	conn.IsActive = false

	orderRepo.On("Get", mock.Anything, "order-1").Return(pendingOrder(), nil)
	connRepo.On("Get", mock.Anything, "conn-1").Return(conn, nil)

	task := services.FulfillmentTask{OrderID: "order-1", ShopifyOrderID: "5001", OrderNumber: "1001", ConnectionID: "conn-1"}
	err := processor.Process(context.Background(), taskMessage(t, task))
	require.NoError(t, err)

	// Task is dropped for good, not retried
	fulfilled, _ := idempotency.IsFulfilled(context.Background(), "order-1")
	assert.True(t, fulfilled)
	shopify.AssertNotCalled(t, "CreateFulfillment")
}

func TestFulfillmentTaskProcessor_TransientFailureLeavesRetry(t *testing.T) {
	processor, orderRepo, connRepo, shopify, idempotency := newTestProcessor()

	orderRepo.On("Get", mock.Anything, "order-1").Return(pendingOrder(), nil)
	connRepo.On("Get", mock.Anything, "conn-1").Return(activeConnection(), nil)
	shopify.On("CreateFulfillment", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &gateway.ExternalServiceError{StatusCode: 503, Body: "upstream unavailable"})

	task := services.FulfillmentTask{OrderID: "order-1", ShopifyOrderID: "5001", OrderNumber: "1001", ConnectionID: "conn-1"}
	err := processor.Process(context.Background(), taskMessage(t, task))
	require.Error(t, err)

	count, err := idempotency.GetRetryCount(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	fulfilled, _ := idempotency.IsFulfilled(context.Background(), "order-1")
	assert.False(t, fulfilled)
}

func TestFulfillmentTaskProcessor_PermanentRejectionGivesUp(t *testing.T) {
	processor, orderRepo, connRepo, shopify, idempotency := newTestProcessor()

	orderRepo.On("Get", mock.Anything, "order-1").Return(pendingOrder(), nil)
	connRepo.On("Get", mock.Anything, "conn-1").Return(activeConnection(), nil)
	shopify.On("CreateFulfillment", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &gateway.ExternalServiceError{StatusCode: 422, Body: "already fulfilled"})

	task := services.FulfillmentTask{OrderID: "order-1", ShopifyOrderID: "5001", OrderNumber: "1001", ConnectionID: "conn-1"}
	err := processor.Process(context.Background(), taskMessage(t, task))
	require.NoError(t, err)

	// 4xx means retrying cannot help, so the order is marked done
	fulfilled, _ := idempotency.IsFulfilled(context.Background(), "order-1")
	assert.True(t, fulfilled)

	orderRepo.AssertNotCalled(t, "SetFulfillment")
}

func TestFulfillmentTaskProcessor_RateLimitedIsRetried(t *testing.T) {
	processor, orderRepo, connRepo, shopify, idempotency := newTestProcessor()

	orderRepo.On("Get", mock.Anything, "order-1").Return(pendingOrder(), nil)
	connRepo.On("Get", mock.Anything, "conn-1").Return(activeConnection(), nil)
	shopify.On("CreateFulfillment", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &gateway.ExternalServiceError{StatusCode: 429, Body: "throttled"})

	task := services.FulfillmentTask{OrderID: "order-1", ShopifyOrderID: "5001", OrderNumber: "1001", ConnectionID: "conn-1"}
	err := processor.Process(context.Background(), taskMessage(t, task))
	require.Error(t, err)

	fulfilled, _ := idempotency.IsFulfilled(context.Background(), "order-1")
	assert.False(t, fulfilled)
}

func TestFulfillmentTaskProcessor_MaxRetriesAcks(t *testing.T) {
	processor, _, _, shopify, idempotency := newTestProcessor()

	ctx := context.Background()
	for i := 0; i < DefaultIdempotencyConfig().MaxRetries; i++ {
		procCtx, err := idempotency.AcquireProcessingLock(ctx, "order-1")
		require.NoError(t, err)
		require.NoError(t, idempotency.MarkFailure(ctx, procCtx, assert.AnError))
	}

	task := services.FulfillmentTask{OrderID: "order-1", ShopifyOrderID: "5001", OrderNumber: "1001", ConnectionID: "conn-1"}
	err := processor.Process(ctx, taskMessage(t, task))
	require.NoError(t, err)

	shopify.AssertNotCalled(t, "CreateFulfillment")
}
