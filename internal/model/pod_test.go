package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionData_Validate(t *testing.T) {
	photo := PhotoInput{ID: "p1", URL: "data:image/jpeg;base64,abc", Type: "delivery"}

	t.Run("valid payload", func(t *testing.T) {
		d := CompletionData{CustomerName: "Jane", Photos: []PhotoInput{photo}}
		assert.NoError(t, d.Validate())
	})

	t.Run("missing recipient", func(t *testing.T) {
		d := CompletionData{CustomerName: "  ", Photos: []PhotoInput{photo}}
		assert.ErrorIs(t, d.Validate(), ErrRecipientRequired)
	})

	t.Run("no photos", func(t *testing.T) {
		d := CompletionData{CustomerName: "Jane"}
		assert.ErrorIs(t, d.Validate(), ErrPhotoRequired)
	})

	t.Run("photo with empty url passes validation", func(t *testing.T) {
		// Empty URLs are skipped at persistence time, not rejected up front.
		d := CompletionData{CustomerName: "Jane", Photos: []PhotoInput{{ID: "p1"}}}
		assert.NoError(t, d.Validate())
	})
}

func TestFailureData_Validate(t *testing.T) {
	t.Run("reason required", func(t *testing.T) {
		assert.ErrorIs(t, FailureData{}.Validate(), ErrFailureReasonRequired)
	})

	t.Run("photos optional on failure path", func(t *testing.T) {
		assert.NoError(t, FailureData{FailureReason: "customer absent"}.Validate())
	})
}

func TestCompleteOrderRequest_Validate(t *testing.T) {
	valid := CompleteOrderRequest{
		OrderID:  "o1",
		DriverID: "d1",
		CompletionData: CompletionData{
			CustomerName: "Jane",
			Photos:       []PhotoInput{{ID: "p1", URL: "https://x"}},
		},
	}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.DriverID = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingIdentifiers)
}

func TestOrderStatus(t *testing.T) {
	assert.True(t, OrderStatusInTransit.CompletionEligible())
	assert.True(t, OrderStatusOutForDelivery.CompletionEligible())
	assert.False(t, OrderStatusDelivered.CompletionEligible())
	assert.False(t, OrderStatusPending.CompletionEligible())

	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusFailed.Terminal())
	assert.False(t, OrderStatusInTransit.Terminal())
}

func TestUserProfile_DisplayName(t *testing.T) {
	first, last := "Ada", "Lovelace"
	p := &UserProfile{FirstName: &first, LastName: &last}
	assert.Equal(t, "Ada Lovelace", p.DisplayName())

	assert.Equal(t, "Ada", (&UserProfile{FirstName: &first}).DisplayName())
	assert.Equal(t, "Driver", (&UserProfile{}).DisplayName())
	assert.Equal(t, "Driver", (*UserProfile)(nil).DisplayName())
}
