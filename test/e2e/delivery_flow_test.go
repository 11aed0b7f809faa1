package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swiftroute/delivery-gateway/internal/fulfiller"
	gateway "github.com/swiftroute/delivery-gateway/internal/gateways"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/internal/queue"
	"github.com/swiftroute/delivery-gateway/internal/repository"
	"github.com/swiftroute/delivery-gateway/internal/services"
	"github.com/swiftroute/delivery-gateway/pkg/pg"
	"github.com/swiftroute/delivery-gateway/pkg/redis"
	"github.com/swiftroute/delivery-gateway/test/helpers"
)

type TestEnvironment struct {
	DB                *pg.DB
	Redis             *miniredis.Miniredis
	RedisAdapter      redis.RedisAdapter
	Queue             *queue.Queue
	OrderRepo         *repository.OrderRepository
	PodRepo           *repository.PodRepository
	FailureRepo       *repository.FailureRepository
	ConnectionRepo    *repository.ConnectionRepository
	CompletionService *services.CompletionService
	EvidenceService   *services.EvidenceService
	ShopifyServer     *httptest.Server
	shopifyCalls      int
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db := helpers.SetupTestDB(t)
	mr, redisAdapter := helpers.SetupTestRedis(t)

	queueConfig := queue.QueueConfig{
		Name:              "test:fulfillment_retries",
		ConsumerGroup:     "test-fulfillers",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}

	q, err := queue.NewQueue(redisAdapter, queueConfig)
	require.NoError(t, err)

	env := &TestEnvironment{
		DB:             db,
		Redis:          mr,
		RedisAdapter:   redisAdapter,
		Queue:          q,
		OrderRepo:      repository.NewOrderRepository(db),
		PodRepo:        repository.NewPodRepository(db),
		FailureRepo:    repository.NewFailureRepository(db),
		ConnectionRepo: repository.NewConnectionRepository(db),
	}

	env.ShopifyServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.shopifyCalls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"fulfillment":{"id":9000000001,"status":"success"}}`))
	}))

	shopifyClient := gateway.NewShopifyClient(gateway.ShopifyConfig{
		APIVersion: "2023-10",
		Timeout:    5 * time.Second,
		Scheme:     "http",
	})

	updateRepo := repository.NewOrderUpdateRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	env.CompletionService = services.NewCompletionService(
		env.OrderRepo,
		env.PodRepo,
		env.FailureRepo,
		env.ConnectionRepo,
		updateRepo,
		notificationRepo,
		profileRepo,
		shopifyClient,
		q,
	)
	env.EvidenceService = services.NewEvidenceService(env.OrderRepo, env.PodRepo, env.FailureRepo)

	return env
}

func (env *TestEnvironment) Cleanup() {
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	time.Sleep(100 * time.Millisecond)
	if env.ShopifyServer != nil {
		env.ShopifyServer.Close()
	}
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func (env *TestEnvironment) shopifyHost() string {
	return strings.TrimPrefix(env.ShopifyServer.URL, "http://")
}

func TestE2E_CompletionWithPartialPhotos(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	order := helpers.CreateTestOrder(t, env.DB, "driver-1", model.OrderStatusOutForDelivery)

	req := model.CompleteOrderRequest{
		OrderID:  order.ID,
		DriverID: "driver-1",
		CompletionData: model.CompletionData{
			CustomerName: "Alice Example",
			Notes:        "left by the door",
			Photos: []model.PhotoInput{
				{ID: "p1", URL: "https://cdn.example.com/photos/1.jpg"},
				{ID: "p2", URL: ""}, // device never uploaded this one
			},
		},
	}

	result, err := env.CompletionService.CompleteDelivery(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, model.OrderStatusDelivered, result.Order.Status)
	assert.Equal(t, 1, result.Pod.PhotosProcessed)
	assert.Equal(t, 2, result.Pod.PhotosTotal)

	// legacy field carries the processed URLs as a JSON array
	stored, err := env.OrderRepo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PhotoURL)
	assert.JSONEq(t, `["https://cdn.example.com/photos/1.jpg"]`, *stored.PhotoURL)
	require.NotNil(t, stored.CompletedAt)

	// evidence read-side shows the pod photo once and the legacy copy once
	evidence, err := env.EvidenceService.GetDeliveryEvidence(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, evidence.HasEvidence)
	require.Len(t, evidence.Photos, 2)
	assert.Equal(t, model.PhotoSourcePod, evidence.Photos[0].Source)
	assert.Equal(t, model.PhotoSourceLegacy, evidence.Photos[1].Source)
	assert.Equal(t, evidence.Photos[0].URL, evidence.Photos[1].URL)
	assert.Equal(t, 1, evidence.LegacyCount)
}

func TestE2E_CompletionIsIdempotent(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	order := helpers.CreateTestOrder(t, env.DB, "driver-1", model.OrderStatusOutForDelivery)

	req := model.CompleteOrderRequest{
		OrderID:  order.ID,
		DriverID: "driver-1",
		CompletionData: model.CompletionData{
			CustomerName: "Alice Example",
			Photos:       []model.PhotoInput{{ID: "p1", URL: "https://cdn.example.com/photos/1.jpg"}},
		},
	}

	first, err := env.CompletionService.CompleteDelivery(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := env.CompletionService.CompleteDelivery(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Pod.ID, second.Pod.ID)

	// still exactly one pod row
	pod, err := env.PodRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Pod.ID, pod.ID)
}

func TestE2E_CompletionTriggersFulfillment(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	conn := helpers.CreateTestConnection(t, env.DB, env.shopifyHost(), "shpat_test", true)

	order := helpers.CreateTestOrder(t, env.DB, "driver-1", model.OrderStatusOutForDelivery)
	shopifyOrderID := "5001"
	err := env.DB.Write(ctx).Model(&repository.OrderEntity{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"shopify_order_id":      shopifyOrderID,
			"shopify_connection_id": conn.ID,
		}).Error
	require.NoError(t, err)

	req := model.CompleteOrderRequest{
		OrderID:  order.ID,
		DriverID: "driver-1",
		CompletionData: model.CompletionData{
			CustomerName: "Alice Example",
			Photos:       []model.PhotoInput{{ID: "p1", URL: "https://cdn.example.com/photos/1.jpg"}},
		},
	}

	result, err := env.CompletionService.CompleteDelivery(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.FulfillmentUpdated)
	require.NotNil(t, result.FulfillmentResult)
	assert.Equal(t, "9000000001", result.FulfillmentResult.FulfillmentID)
	assert.Equal(t, 1, env.shopifyCalls)

	stored, err := env.OrderRepo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ShopifyFulfillmentID)
	assert.Equal(t, "9000000001", *stored.ShopifyFulfillmentID)
}

func TestE2E_FulfillmentFailureEnqueuesRetry(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	// Unreachable store makes the inline attempt fail
	conn := helpers.CreateTestConnection(t, env.DB, "127.0.0.1:1", "shpat_test", true)

	order := helpers.CreateTestOrder(t, env.DB, "driver-1", model.OrderStatusOutForDelivery)
	err := env.DB.Write(ctx).Model(&repository.OrderEntity{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"shopify_order_id":      "5001",
			"shopify_connection_id": conn.ID,
		}).Error
	require.NoError(t, err)

	req := model.CompleteOrderRequest{
		OrderID:  order.ID,
		DriverID: "driver-1",
		CompletionData: model.CompletionData{
			CustomerName: "Alice Example",
			Photos:       []model.PhotoInput{{ID: "p1", URL: "https://cdn.example.com/photos/1.jpg"}},
		},
	}

	result, err := env.CompletionService.CompleteDelivery(ctx, req)
	require.NoError(t, err)

	// delivery still succeeded, fulfillment degraded
	assert.True(t, result.Success)
	assert.False(t, result.FulfillmentUpdated)
	require.NotNil(t, result.FulfillmentResult)
	assert.NotEmpty(t, result.FulfillmentResult.Error)

	stats, err := env.Queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalMessages, int64(1))
}

func TestE2E_RetryTaskConsumedByFulfiller(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	conn := helpers.CreateTestConnection(t, env.DB, env.shopifyHost(), "shpat_test", true)
	order := helpers.CreateTestOrder(t, env.DB, "driver-1", model.OrderStatusDelivered)

	task := services.FulfillmentTask{
		OrderID:        order.ID,
		ShopifyOrderID: "5001",
		OrderNumber:    order.OrderNumber,
		ConnectionID:   conn.ID,
	}
	_, err := env.Queue.PublishJSON(ctx, task, nil)
	require.NoError(t, err)

	shopifyClient := gateway.NewShopifyClient(gateway.ShopifyConfig{
		APIVersion: "2023-10",
		Timeout:    5 * time.Second,
		Scheme:     "http",
	})
	idempotency := fulfiller.NewIdempotencyService(env.RedisAdapter, fulfiller.DefaultIdempotencyConfig())
	processor := fulfiller.NewFulfillmentTaskProcessor(env.OrderRepo, env.ConnectionRepo, shopifyClient, idempotency)

	processed := make(chan error, 1)
	err = env.Queue.Consume(func(ctx context.Context, msg *queue.Message) error {
		err := processor.Process(ctx, msg)
		processed <- err
		return err
	})
	require.NoError(t, err)

	select {
	case procErr := <-processed:
		require.NoError(t, procErr)
	case <-time.After(3 * time.Second):
		t.Fatal("retry task not consumed within timeout")
	}

	stored, err := env.OrderRepo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ShopifyFulfillmentID)
	assert.Equal(t, "9000000001", *stored.ShopifyFulfillmentID)

	fulfilled, err := idempotency.IsFulfilled(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, fulfilled)
}

func TestE2E_FailureFlow(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()
	order := helpers.CreateTestOrder(t, env.DB, "driver-1", model.OrderStatusOutForDelivery)

	req := model.FailOrderRequest{
		OrderID:  order.ID,
		DriverID: "driver-1",
		FailureData: model.FailureData{
			FailureReason: "customer_unavailable",
			Notes:         "no answer at the door",
			Photos:        []model.PhotoInput{{ID: "p1", URL: "https://cdn.example.com/photos/door.jpg"}},
		},
	}

	result, err := env.CompletionService.FailDelivery(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, model.OrderStatusFailed, result.Order.Status)

	evidence, err := env.EvidenceService.GetDeliveryEvidence(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, evidence.Failure)
	assert.Equal(t, "customer_unavailable", evidence.Failure.FailureReason)
	require.Len(t, evidence.Photos, 1)
	assert.Equal(t, model.PhotoSourceFailure, evidence.Photos[0].Source)

	var raw string
	found := false
	rows := []repository.FailureEntity{}
	require.NoError(t, env.DB.Read(ctx).Find(&rows).Error)
	for _, r := range rows {
		if r.OrderID == order.ID {
			raw = r.Photos
			found = true
		}
	}
	require.True(t, found)

	var urls []string
	require.NoError(t, json.Unmarshal([]byte(raw), &urls))
	assert.Equal(t, []string{"https://cdn.example.com/photos/door.jpg"}, urls)
}
