package fulfiller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/swiftroute/delivery-gateway/pkg/logger"
	"github.com/swiftroute/delivery-gateway/pkg/redis"
)

var (
	ErrAlreadyFulfilled   = errors.New("order already fulfilled")
	ErrLockAcquireFailed  = errors.New("failed to acquire fulfillment lock")
	ErrMaxRetriesExceeded = errors.New("maximum fulfillment retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	FulfilledTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	FulfilledKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		FulfilledTTL:       24 * time.Hour,
		MaxRetries:         5,
		RetryKeyPrefix:     "fulfillment:retry:",
		LockKeyPrefix:      "fulfillment:lock:",
		FulfilledKeyPrefix: "fulfillment:done:",
	}
}

// IdempotencyService keeps concurrent consumers from double-fulfilling the
// same order and caps how often a failing order is retried.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	OrderID      string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, orderID string) (*ProcessingContext, error) {
	// Long-term done marker first. A crashed consumer must not re-fulfill an
	// order Shopify already accepted.
	fulfilledKey := s.config.FulfilledKeyPrefix + orderID
	exists, err := s.redis.Exist(fulfilledKey)
	if err != nil {
		logger.Warn("failed to check fulfilled marker", "order_id", orderID, "error", err)
		// Continue even if check fails - Shopify rejects true duplicates anyway
	} else if exists > 0 {
		return nil, ErrAlreadyFulfilled
	}

	retryKey := s.config.RetryKeyPrefix + orderID
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	if retryCount >= s.config.MaxRetries {
		logger.Error("max fulfillment retries exceeded", "order_id", orderID, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: order_id=%s, retries=%d", ErrMaxRetriesExceeded, orderID, retryCount)
	}

	lockKey := s.config.LockKeyPrefix + orderID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("failed to acquire fulfillment lock", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		logger.Info("fulfillment lock held by another consumer", "order_id", orderID)
		return nil, ErrLockAcquireFailed
	}

	return &ProcessingContext{
		OrderID:      orderID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	orderID := pc.OrderID

	fulfilledKey := s.config.FulfilledKeyPrefix + orderID
	err := s.redis.Set(fulfilledKey, []byte("1"), s.config.FulfilledTTL)
	if err != nil {
		logger.Error("failed to set fulfilled marker", "order_id", orderID, "error", err)
		return fmt.Errorf("failed to mark as fulfilled: %w", err)
	}

	s.cleanup(ctx, pc)

	logger.Info("order fulfillment marked done", "order_id", orderID, "retry_count", pc.RetryCount)
	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	orderID := pc.OrderID

	retryKey := s.config.RetryKeyPrefix + orderID
	newRetryCount := pc.RetryCount + 1
	retryValue := []byte(fmt.Sprintf("%d", newRetryCount))

	// Counter outlives the lock so it tracks across retries
	err := s.redis.Set(retryKey, retryValue, s.config.FulfilledTTL)
	if err != nil {
		logger.Error("failed to increment retry counter", "order_id", orderID, "error", err)
	}

	lockKey := s.config.LockKeyPrefix + orderID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to remove fulfillment lock", "order_id", orderID, "error", err)
	}

	logger.Warn("fulfillment attempt failed, will retry",
		"order_id", orderID,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + pc.OrderID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to release fulfillment lock", "order_id", pc.OrderID, "error", err)
		return err
	}

	pc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, pc *ProcessingContext) {
	orderID := pc.OrderID

	lockKey := s.config.LockKeyPrefix + orderID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to cleanup fulfillment lock", "order_id", orderID, "error", err)
	}

	retryKey := s.config.RetryKeyPrefix + orderID
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("failed to cleanup retry counter", "order_id", orderID, "error", err)
	}

	pc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, orderID string) (int, error) {
	retryKey := s.config.RetryKeyPrefix + orderID
	retryCountBytes, err := s.redis.Get(retryKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsFulfilled(ctx context.Context, orderID string) (bool, error) {
	fulfilledKey := s.config.FulfilledKeyPrefix + orderID
	exists, err := s.redis.Exist(fulfilledKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
