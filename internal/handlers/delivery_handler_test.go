package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/internal/services"
	xhttp "github.com/swiftroute/delivery-gateway/pkg/http"
	"github.com/valyala/fasthttp"
)

type MockCompletionService struct {
	mock.Mock
}

func (m *MockCompletionService) CompleteDelivery(ctx context.Context, req model.CompleteOrderRequest) (*model.CompletionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompletionResult), args.Error(1)
}

func (m *MockCompletionService) FailDelivery(ctx context.Context, req model.FailOrderRequest) (*model.CompletionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompletionResult), args.Error(1)
}

type MockEvidenceService struct {
	mock.Mock
}

func (m *MockEvidenceService) GetDeliveryEvidence(ctx context.Context, orderID string) (*model.DeliveryEvidence, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryEvidence), args.Error(1)
}

func (m *MockEvidenceService) InspectLegacyPhotoField(ctx context.Context, orderID string) (*services.LegacyFieldReport, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LegacyFieldReport), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestDeliveryHandler_CompleteOrder(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		completionSvc := new(MockCompletionService)
		evidenceSvc := new(MockEvidenceService)
		handler := NewDeliveryHandler(completionSvc, evidenceSvc)

		req := model.CompleteOrderRequest{
			OrderID:  "order-1",
			DriverID: "driver-1",
			CompletionData: model.CompletionData{
				CustomerName: "Alice",
				Photos:       []model.PhotoInput{{ID: "p1", URL: "https://cdn/1.jpg"}},
			},
		}
		bodyBytes, _ := json.Marshal(req)

		completionSvc.On("CompleteDelivery", mock.Anything, mock.MatchedBy(func(r model.CompleteOrderRequest) bool {
			return r.OrderID == "order-1" && r.DriverID == "driver-1"
		})).Return(&model.CompletionResult{
			Success: true,
			Message: "Delivery completed successfully",
			Order:   model.OrderSummary{ID: "order-1", OrderNumber: "1001", Status: model.OrderStatusDelivered},
			Pod:     model.PodSummary{ID: "pod-1", PhotosProcessed: 1, PhotosTotal: 1},
		}, nil)

		ctx := setupTestContext("POST", "/api/v1/orders/complete", bodyBytes)
		handler.CompleteOrder(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response model.CompletionResult
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.True(t, response.Success)
		assert.Equal(t, "pod-1", response.Pod.ID)
		assert.Equal(t, 1, response.Pod.PhotosProcessed)

		completionSvc.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewDeliveryHandler(new(MockCompletionService), new(MockEvidenceService))

		ctx := setupTestContext("POST", "/api/v1/orders/complete", []byte("not json"))
		handler.CompleteOrder(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		completionSvc := new(MockCompletionService)
		handler := NewDeliveryHandler(completionSvc, new(MockEvidenceService))

		completionSvc.On("CompleteDelivery", mock.Anything, mock.Anything).
			Return(nil, model.ErrRecipientRequired)

		ctx := setupTestContext("POST", "/api/v1/orders/complete", []byte(`{"orderId":"o","driverId":"d","completionData":{}}`))
		handler.CompleteOrder(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "recipient name is required")
	})

	t.Run("unknown order maps to 404", func(t *testing.T) {
		completionSvc := new(MockCompletionService)
		handler := NewDeliveryHandler(completionSvc, new(MockEvidenceService))

		completionSvc.On("CompleteDelivery", mock.Anything, mock.Anything).
			Return(nil, services.ErrOrderNotFound)

		ctx := setupTestContext("POST", "/api/v1/orders/complete", []byte(`{"orderId":"o","driverId":"d"}`))
		handler.CompleteOrder(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("ineligible order maps to 409", func(t *testing.T) {
		completionSvc := new(MockCompletionService)
		handler := NewDeliveryHandler(completionSvc, new(MockEvidenceService))

		completionSvc.On("CompleteDelivery", mock.Anything, mock.Anything).
			Return(nil, services.ErrOrderNotEligible)

		ctx := setupTestContext("POST", "/api/v1/orders/complete", []byte(`{"orderId":"o","driverId":"d"}`))
		handler.CompleteOrder(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})

	t.Run("persistence failure maps to 500", func(t *testing.T) {
		completionSvc := new(MockCompletionService)
		handler := NewDeliveryHandler(completionSvc, new(MockEvidenceService))

		completionSvc.On("CompleteDelivery", mock.Anything, mock.Anything).
			Return(nil, &services.CriticalPersistenceError{Step: "create_pod", Err: assert.AnError})

		ctx := setupTestContext("POST", "/api/v1/orders/complete", []byte(`{"orderId":"o","driverId":"d"}`))
		handler.CompleteOrder(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "create_pod")
	})
}

func TestDeliveryHandler_FailOrder(t *testing.T) {
	completionSvc := new(MockCompletionService)
	handler := NewDeliveryHandler(completionSvc, new(MockEvidenceService))

	req := model.FailOrderRequest{
		OrderID:  "order-1",
		DriverID: "driver-1",
		FailureData: model.FailureData{
			FailureReason: "customer_unavailable",
		},
	}
	bodyBytes, _ := json.Marshal(req)

	completionSvc.On("FailDelivery", mock.Anything, mock.MatchedBy(func(r model.FailOrderRequest) bool {
		return r.FailureData.FailureReason == "customer_unavailable"
	})).Return(&model.CompletionResult{
		Success: true,
		Message: "Delivery failure recorded",
		Order:   model.OrderSummary{ID: "order-1", Status: model.OrderStatusFailed},
	}, nil)

	ctx := setupTestContext("POST", "/api/v1/orders/fail", bodyBytes)
	handler.FailOrder(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())

	var response model.CompletionResult
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, model.OrderStatusFailed, response.Order.Status)
}

func TestDeliveryHandler_GetEvidence(t *testing.T) {
	t.Run("returns merged evidence", func(t *testing.T) {
		evidenceSvc := new(MockEvidenceService)
		handler := NewDeliveryHandler(new(MockCompletionService), evidenceSvc)

		evidenceSvc.On("GetDeliveryEvidence", mock.Anything, "order-1").
			Return(&model.DeliveryEvidence{
				Order: model.OrderSummary{ID: "order-1", Status: model.OrderStatusDelivered},
				Photos: []model.EvidencePhoto{
					{ID: "photo-1", URL: "https://cdn/1.jpg", Source: model.PhotoSourcePod},
					{ID: "legacy-0", URL: "https://cdn/1.jpg", Source: model.PhotoSourceLegacy},
				},
				LegacyCount: 1,
				HasEvidence: true,
			}, nil)

		ctx := setupTestContext("GET", "/api/v1/orders/order-1/evidence", nil)
		ctx.SetUserValue("id", "order-1")
		handler.GetEvidence(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response model.DeliveryEvidence
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.True(t, response.HasEvidence)
		require.Len(t, response.Photos, 2)
		assert.Equal(t, model.PhotoSourceLegacy, response.Photos[1].Source)
	})

	t.Run("missing id", func(t *testing.T) {
		handler := NewDeliveryHandler(new(MockCompletionService), new(MockEvidenceService))

		ctx := setupTestContext("GET", "/api/v1/orders//evidence", nil)
		handler.GetEvidence(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("unknown order", func(t *testing.T) {
		evidenceSvc := new(MockEvidenceService)
		handler := NewDeliveryHandler(new(MockCompletionService), evidenceSvc)

		evidenceSvc.On("GetDeliveryEvidence", mock.Anything, "missing").
			Return(nil, services.ErrOrderNotFound)

		ctx := setupTestContext("GET", "/api/v1/orders/missing/evidence", nil)
		ctx.SetUserValue("id", "missing")
		handler.GetEvidence(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("order still in flight maps to 409", func(t *testing.T) {
		evidenceSvc := new(MockEvidenceService)
		handler := NewDeliveryHandler(new(MockCompletionService), evidenceSvc)

		evidenceSvc.On("GetDeliveryEvidence", mock.Anything, "order-2").
			Return(nil, services.ErrOrderNotTerminal)

		ctx := setupTestContext("GET", "/api/v1/orders/order-2/evidence", nil)
		ctx.SetUserValue("id", "order-2")
		handler.GetEvidence(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})
}

func TestDeliveryHandler_InspectLegacyField(t *testing.T) {
	evidenceSvc := new(MockEvidenceService)
	handler := NewDeliveryHandler(new(MockCompletionService), evidenceSvc)

	evidenceSvc.On("InspectLegacyPhotoField", mock.Anything, "order-1").
		Return(&services.LegacyFieldReport{
			OrderID: "order-1",
			Kind:    "url_list",
			Raw:     `["https://cdn/1.jpg"]`,
			URLs:    []string{"https://cdn/1.jpg"},
		}, nil)

	ctx := setupTestContext("GET", "/api/v1/orders/order-1/evidence/legacy", nil)
	ctx.SetUserValue("id", "order-1")
	handler.InspectLegacyField(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())

	var report services.LegacyFieldReport
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &report))
	assert.Equal(t, "url_list", report.Kind)
	assert.Equal(t, []string{"https://cdn/1.jpg"}, report.URLs)
}
