package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swiftroute/delivery-gateway/internal/model"
)

func TestFailureRepository(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewFailureRepository(db)
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		notes := "gate locked"
		created, err := repo.Create(ctx, &model.DeliveryFailure{
			OrderID:       "order-1",
			DriverID:      "driver-1",
			FailureReason: "customer_unavailable",
			Notes:         &notes,
			Photos:        `["https://evidence/1.jpg"]`,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		found, err := repo.GetByOrderID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "customer_unavailable", found.FailureReason)
		assert.Equal(t, `["https://evidence/1.jpg"]`, found.Photos)
	})

	t.Run("empty photos default to an empty json array", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.DeliveryFailure{
			OrderID:       "order-2",
			DriverID:      "driver-1",
			FailureReason: "address_not_found",
		})
		require.NoError(t, err)
		assert.Equal(t, "[]", created.Photos)
	})

	t.Run("second failure report for the same order is rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.DeliveryFailure{
			OrderID:       "order-2",
			DriverID:      "driver-1",
			FailureReason: "address_not_found",
		})
		assert.ErrorIs(t, err, ErrDuplicateCompletion)
	})

	t.Run("missing report reads not found", func(t *testing.T) {
		_, err := repo.GetByOrderID(ctx, "order-9")
		assert.ErrorIs(t, err, ErrFailureNotFound)
	})
}
