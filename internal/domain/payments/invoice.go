package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice is a processor invoice synced locally
type Invoice struct {
	shared.BaseEntity
	CustomerID     uuid.UUID
	StripeID       string
	Attempted      bool
	Attempts       int64
	Closed         bool
	Paid           bool
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	Date           time.Time
	ChargeStripeID string
	Items          []InvoiceItem
	Charges        []Charge
}

// InvoiceItem is one line of an invoice
type InvoiceItem struct {
	shared.BaseEntity
	InvoiceID   uuid.UUID
	StripeID    string
	Amount      decimal.Decimal
	Currency    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Proration   bool
	LineType    string
	Description string
	Plan        string
	Quantity    *int64
}

// NewInvoice creates a local invoice row for the processor invoice stripeID
func NewInvoice(customerID uuid.UUID, stripeID string) *Invoice {
	return &Invoice{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		StripeID:   stripeID,
	}
}

// NeedsRetry reports whether payment should be attempted again
func (i *Invoice) NeedsRetry() bool {
	return !i.Paid && !i.Closed
}

// ApplyRemote copies the processor's invoice state onto i and merges its
// lines into Items by processor id. planKey resolves a remote plan id to a
// catalog key; unknown plans are stored as empty.
func (i *Invoice) ApplyRemote(r *RemoteInvoice, planKey func(stripePlanID string) string) {
	i.Attempted = r.Attempted
	i.Attempts = r.AttemptCount
	i.Closed = r.Closed
	i.Paid = r.Paid
	i.PeriodStart = r.PeriodStart
	i.PeriodEnd = r.PeriodEnd
	i.Subtotal = r.Subtotal
	i.Total = r.Total
	i.Date = r.Date
	i.ChargeStripeID = r.ChargeID

	existing := make(map[string]int, len(i.Items))
	for idx, item := range i.Items {
		existing[item.StripeID] = idx
	}

	for _, line := range r.Lines {
		plan := ""
		if line.PlanID != "" && planKey != nil {
			plan = planKey(line.PlanID)
		}

		idx, ok := existing[line.ID]
		if !ok {
			i.Items = append(i.Items, InvoiceItem{
				BaseEntity: shared.NewBaseEntity(),
				InvoiceID:  i.ID,
				StripeID:   line.ID,
			})
			idx = len(i.Items) - 1
			existing[line.ID] = idx
		}

		item := &i.Items[idx]
		item.Amount = line.Amount
		item.Currency = line.Currency
		item.PeriodStart = line.PeriodStart
		item.PeriodEnd = line.PeriodEnd
		item.Proration = line.Proration
		item.LineType = line.Type
		item.Description = line.Description
		item.Plan = plan
		item.Quantity = line.Quantity
		item.Touch()
	}
	i.Touch()
}
