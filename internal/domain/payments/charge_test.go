package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCharge_ApplyRemote(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("partial refund", func(t *testing.T) {
		c := NewCharge(uuid.New(), "ch_1")
		c.ApplyRemote(&RemoteCharge{
			CardLast4:      "4242",
			CardKind:       "visa",
			Amount:         decimal.NewFromInt(20),
			AmountRefunded: decimal.NewFromInt(5),
			Fee:            decimal.RequireFromString("0.88"),
			Description:    "Pro plan",
			Paid:           true,
			Created:        created,
		})

		assert.Equal(t, "4242", c.CardLast4)
		assert.True(t, c.AmountRefunded.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, "Pro plan", c.Description)
		assert.Equal(t, created, *c.ChargeCreated)
	})

	t.Run("full refund reports whole amount", func(t *testing.T) {
		c := NewCharge(uuid.New(), "ch_2")
		c.ApplyRemote(&RemoteCharge{Amount: decimal.NewFromInt(20), Refunded: true})

		assert.True(t, c.Refunded)
		assert.True(t, c.AmountRefunded.Equal(decimal.NewFromInt(20)))
	})

	t.Run("empty description keeps existing", func(t *testing.T) {
		c := NewCharge(uuid.New(), "ch_3")
		c.Description = "kept"
		c.ApplyRemote(&RemoteCharge{Amount: decimal.NewFromInt(1)})

		assert.Equal(t, "kept", c.Description)
	})
}
