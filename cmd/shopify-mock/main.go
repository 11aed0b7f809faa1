package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FulfillmentRequest mirrors the Shopify Admin API fulfillment payload.
type FulfillmentRequest struct {
	Fulfillment struct {
		TrackingNumber  string        `json:"tracking_number"`
		TrackingCompany string        `json:"tracking_company"`
		NotifyCustomer  bool          `json:"notify_customer"`
		LineItems       []interface{} `json:"line_items"`
	} `json:"fulfillment" binding:"required"`
}

// FulfillmentResponse mirrors the Shopify Admin API fulfillment response.
type FulfillmentResponse struct {
	Fulfillment struct {
		ID              int64     `json:"id"`
		OrderID         string    `json:"order_id"`
		Status          string    `json:"status"`
		TrackingNumber  string    `json:"tracking_number"`
		TrackingCompany string    `json:"tracking_company"`
		CreatedAt       time.Time `json:"created_at"`
	} `json:"fulfillment"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status      string    `json:"status"`
	StoreID     string    `json:"store_id"`
	Timestamp   time.Time `json:"timestamp"`
	SuccessRate float64   `json:"success_rate"`
}

// MockStore simulates a Shopify store's Admin API
type MockStore struct {
	mu          sync.Mutex
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	accessToken string
	nextID      int64
	fulfilled   map[string]int64
	rng         *rand.Rand
}

func NewMockStore(successRate float64, minDelay, maxDelay time.Duration, accessToken string) *MockStore {
	return &MockStore{
		successRate: successRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		accessToken: accessToken,
		nextID:      9000000001,
		fulfilled:   make(map[string]int64),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockStore) randomDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockStore) shouldSucceed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.successRate
}

// fulfill records a fulfillment for an order. Repeated calls for the same
// order return 422 the way Shopify does for already-fulfilled orders.
func (m *MockStore) fulfill(orderID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.fulfilled[orderID]; ok {
		return id, false
	}
	id := m.nextID
	m.nextID++
	m.fulfilled[orderID] = id
	return id, true
}

type Handler struct {
	store *MockStore
}

func NewHandler(store *MockStore) *Handler {
	return &Handler{store: store}
}

// CreateFulfillment handles POST /admin/api/:version/orders/:order_id/fulfillments.json
func (h *Handler) CreateFulfillment(c *gin.Context) {
	token := c.GetHeader("X-Shopify-Access-Token")
	if token != h.store.accessToken {
		c.JSON(http.StatusUnauthorized, gin.H{
			"errors": "[API] Invalid API key or access token",
		})
		return
	}

	orderID := c.Param("order_id")
	if orderID == "" {
		c.JSON(http.StatusNotFound, gin.H{"errors": "Not Found"})
		return
	}

	var req FulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": gin.H{"fulfillment": "Required parameter missing or invalid"},
		})
		return
	}

	log.Info().
		Str("order_id", orderID).
		Str("tracking_number", req.Fulfillment.TrackingNumber).
		Bool("notify_customer", req.Fulfillment.NotifyCustomer).
		Msg("Received fulfillment request")

	// Simulate network delay
	time.Sleep(h.store.randomDelay())

	if !h.store.shouldSucceed() {
		log.Warn().Str("order_id", orderID).Msg("Simulating upstream failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"errors": "Service temporarily unavailable",
		})
		return
	}

	id, created := h.store.fulfill(orderID)
	if !created {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors": gin.H{"base": []string{"Order has already been fulfilled"}},
		})
		return
	}

	var resp FulfillmentResponse
	resp.Fulfillment.ID = id
	resp.Fulfillment.OrderID = orderID
	resp.Fulfillment.Status = "success"
	resp.Fulfillment.TrackingNumber = req.Fulfillment.TrackingNumber
	resp.Fulfillment.TrackingCompany = req.Fulfillment.TrackingCompany
	resp.Fulfillment.CreatedAt = time.Now()

	log.Info().
		Str("order_id", orderID).
		Int64("fulfillment_id", id).
		Msg("Fulfillment created")

	c.JSON(http.StatusCreated, resp)
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		StoreID:     "mock-store",
		Timestamp:   time.Now(),
		SuccessRate: h.store.successRate,
	})
}

// UpdateConfig allows changing store behavior at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		SuccessRate *float64 `json:"success_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.SuccessRate != nil {
		if *config.SuccessRate >= 0 && *config.SuccessRate <= 1.0 {
			h.store.mu.Lock()
			h.store.successRate = *config.SuccessRate
			h.store.mu.Unlock()
			log.Info().Float64("rate", *config.SuccessRate).Msg("Updated success rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"success_rate": h.store.successRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	router.POST("/admin/api/:version/orders/:order_id/fulfillments.json", handler.CreateFulfillment)
	router.GET("/health", handler.HealthCheck)
	router.PUT("/config", handler.UpdateConfig)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	successRate := getEnvFloat("SUCCESS_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 50*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 500*time.Millisecond)
	accessToken := getEnv("ACCESS_TOKEN", "shpat_mock_token")

	log.Info().
		Str("port", port).
		Float64("success_rate", successRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Shopify Store")

	store := NewMockStore(successRate, minDelay, maxDelay, accessToken)
	handler := NewHandler(store)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
