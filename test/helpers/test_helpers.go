package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/internal/repository"
	"github.com/swiftroute/delivery-gateway/pkg/pg"
	"github.com/swiftroute/delivery-gateway/pkg/redis"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.OrderEntity{},
		&repository.ShopifyConnectionEntity{},
		&repository.PodEntity{},
		&repository.PodPhotoEntity{},
		&repository.FailureEntity{},
		&repository.OrderUpdateEntity{},
		&repository.NotificationEntity{},
		&repository.UserProfileEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestOrder(t *testing.T, db *pg.DB, driverID string, status model.OrderStatus) *repository.OrderEntity {
	ctx := context.Background()
	order := &repository.OrderEntity{
		ID:              uuid.New().String(),
		OrderNumber:     "1001",
		Status:          string(status),
		DriverID:        &driverID,
		CustomerName:    "Alice Example",
		DeliveryAddress: "12 Harbor St",
		CreatedBy:       "admin-1",
		CreatedAt:       time.Now(),
	}
	err := db.Write(ctx).Create(order).Error
	require.NoError(t, err)
	return order
}

func CreateTestConnection(t *testing.T, db *pg.DB, shopDomain, accessToken string, active bool) *repository.ShopifyConnectionEntity {
	ctx := context.Background()
	conn := &repository.ShopifyConnectionEntity{
		ID:          uuid.New().String(),
		ShopDomain:  shopDomain,
		AccessToken: accessToken,
		IsActive:    active,
	}
	err := db.Write(ctx).Create(conn).Error
	require.NoError(t, err)
	return conn
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
