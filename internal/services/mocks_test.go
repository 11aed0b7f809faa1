package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	gateway "github.com/swiftroute/delivery-gateway/internal/gateways"
	"github.com/swiftroute/delivery-gateway/internal/model"
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

func (m *MockOrderRepository) GetForDriver(ctx context.Context, orderID, driverID string) (*model.Order, error) {
	args := m.Called(ctx, orderID, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkCompleted(ctx context.Context, orderID string, status model.OrderStatus, completedAt time.Time, legacyPhotoJSON *string) error {
	args := m.Called(ctx, orderID, status, completedAt, legacyPhotoJSON)
	return args.Error(0)
}

func (m *MockOrderRepository) SetFulfillment(ctx context.Context, orderID, fulfillmentID string, fulfilledAt time.Time) error {
	args := m.Called(ctx, orderID, fulfillmentID, fulfilledAt)
	return args.Error(0)
}

type MockPodRepository struct {
	mock.Mock
}

func (m *MockPodRepository) Create(ctx context.Context, pod *model.ProofOfDelivery) (*model.ProofOfDelivery, error) {
	args := m.Called(ctx, pod)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProofOfDelivery), args.Error(1)
}

func (m *MockPodRepository) GetByOrderID(ctx context.Context, orderID string) (*model.ProofOfDelivery, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProofOfDelivery), args.Error(1)
}

func (m *MockPodRepository) AddPhoto(ctx context.Context, photo *model.PodPhoto) (*model.PodPhoto, error) {
	args := m.Called(ctx, photo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PodPhoto), args.Error(1)
}

func (m *MockPodRepository) ListPhotos(ctx context.Context, podID string) ([]*model.PodPhoto, error) {
	args := m.Called(ctx, podID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PodPhoto), args.Error(1)
}

type MockFailureRepository struct {
	mock.Mock
}

func (m *MockFailureRepository) Create(ctx context.Context, failure *model.DeliveryFailure) (*model.DeliveryFailure, error) {
	args := m.Called(ctx, failure)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryFailure), args.Error(1)
}

func (m *MockFailureRepository) GetByOrderID(ctx context.Context, orderID string) (*model.DeliveryFailure, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryFailure), args.Error(1)
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

type MockOrderUpdateRepository struct {
	mock.Mock
}

func (m *MockOrderUpdateRepository) Create(ctx context.Context, update *model.OrderUpdate) (*model.OrderUpdate, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderUpdate), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
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

type MockRetryPublisher struct {
	mock.Mock
}

func (m *MockRetryPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}
