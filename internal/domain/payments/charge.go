package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Charge is a payment attempt against the customer's card
type Charge struct {
	shared.BaseEntity
	CustomerID     uuid.UUID
	InvoiceID      *uuid.UUID
	StripeID       string
	CardLast4      string
	CardKind       string
	Amount         decimal.Decimal
	AmountRefunded decimal.Decimal
	Fee            decimal.Decimal
	Description    string
	Paid           bool
	Disputed       bool
	Refunded       bool
	ReceiptSent    bool
	ChargeCreated  *time.Time
}

// NewCharge creates a local charge row for the processor charge stripeID
func NewCharge(customerID uuid.UUID, stripeID string) *Charge {
	return &Charge{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		StripeID:   stripeID,
	}
}

// ApplyRemote copies the processor's charge state onto c.
// A fully refunded charge reports its whole amount as refunded.
func (c *Charge) ApplyRemote(r *RemoteCharge) {
	c.CardLast4 = r.CardLast4
	c.CardKind = r.CardKind
	c.Amount = r.Amount
	c.Paid = r.Paid
	c.Refunded = r.Refunded
	c.Fee = r.Fee
	c.Disputed = r.Disputed
	if !r.Created.IsZero() {
		created := r.Created
		c.ChargeCreated = &created
	}
	if r.Description != "" {
		c.Description = r.Description
	}
	if r.AmountRefunded.IsPositive() {
		c.AmountRefunded = r.AmountRefunded
	}
	if r.Refunded {
		c.AmountRefunded = r.Amount
	}
	c.Touch()
}
