package payments

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	userID := uuid.New()

	t.Run("creates customer", func(t *testing.T) {
		c, err := NewCustomer(userID, "cus_123")
		require.NoError(t, err)
		assert.Equal(t, userID, c.UserID)
		assert.Equal(t, "cus_123", c.StripeID)
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.False(t, c.CanCharge())
	})

	t.Run("requires user", func(t *testing.T) {
		_, err := NewCustomer(uuid.Nil, "cus_123")
		assert.ErrorContains(t, err, "User ID cannot be empty")
	})

	t.Run("requires stripe id", func(t *testing.T) {
		_, err := NewCustomer(userID, "")
		assert.ErrorContains(t, err, "Stripe customer ID cannot be empty")
	})
}

func TestCustomer_CanCharge(t *testing.T) {
	c, err := NewCustomer(uuid.New(), "cus_1")
	require.NoError(t, err)

	c.UpdateCard(Card{Fingerprint: "fp", Last4: "4242", Kind: "Visa"})
	assert.True(t, c.HasCard())
	assert.True(t, c.CanCharge())

	c.Purge(time.Now())
	assert.False(t, c.CanCharge())
	assert.True(t, c.IsPurged())
	assert.Equal(t, uuid.Nil, c.UserID)
	assert.Empty(t, c.CardLast4)
}

func TestCustomer_PurgeKeepsFirstDate(t *testing.T) {
	c, err := NewCustomer(uuid.New(), "cus_1")
	require.NoError(t, err)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Purge(first)
	c.Purge(first.Add(time.Hour))

	require.NotNil(t, c.DatePurged)
	assert.Equal(t, first, *c.DatePurged)
}

func TestCustomer_HasActiveSubscription(t *testing.T) {
	now := time.Now()
	c, err := NewCustomer(uuid.New(), "cus_1")
	require.NoError(t, err)

	assert.False(t, c.HasActiveSubscription(now))

	sub := NewCurrentSubscription(c.ID)
	sub.Status = SubscriptionStatusActive
	c.Subscription = sub
	assert.True(t, c.HasActiveSubscription(now))

	sub.Status = SubscriptionStatusPastDue
	assert.False(t, c.HasActiveSubscription(now))
}

func TestProcessorError(t *testing.T) {
	cause := errors.New("card_declined")
	err := fmt.Errorf("subscribe: %w", &ProcessorError{Op: "create subscription", Message: "Your card was declined.", Err: cause})

	var perr *ProcessorError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Your card was declined.", perr.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "subscribe: create subscription: Your card was declined.", err.Error())
}
