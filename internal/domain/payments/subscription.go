package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus mirrors the processor's subscription status values
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// IsCurrent reports whether the status grants access
func (s SubscriptionStatus) IsCurrent() bool {
	return s == SubscriptionStatusTrialing || s == SubscriptionStatusActive
}

// CurrentSubscription is the customer's single live subscription
type CurrentSubscription struct {
	shared.BaseEntity
	CustomerID         uuid.UUID
	StripeID           string
	Plan               string // plan catalog key
	Quantity           int64
	Start              time.Time
	Status             SubscriptionStatus
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	EndedAt            *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	Amount             decimal.Decimal
}

// NewCurrentSubscription creates an empty subscription row for customerID
func NewCurrentSubscription(customerID uuid.UUID) *CurrentSubscription {
	return &CurrentSubscription{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		Quantity:   1,
	}
}

// IsPeriodCurrent reports whether the paid period has not yet ended
func (s *CurrentSubscription) IsPeriodCurrent(now time.Time) bool {
	return s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
}

// IsValid reports whether the subscription currently grants access.
// A subscription cancelled at period end stays valid until the period ends.
func (s *CurrentSubscription) IsValid(now time.Time) bool {
	if !s.Status.IsCurrent() {
		return false
	}
	if s.CancelAtPeriodEnd && !s.IsPeriodCurrent(now) {
		return false
	}
	return true
}

// ApplyRemote copies the processor's subscription state onto s.
// plan is the catalog key resolved from the remote plan id.
func (s *CurrentSubscription) ApplyRemote(r *RemoteSubscription, plan string) {
	s.StripeID = r.ID
	s.Plan = plan
	s.Quantity = r.Quantity
	s.Start = r.Start
	s.Status = r.Status
	s.CancelAtPeriodEnd = r.CancelAtPeriodEnd
	s.CanceledAt = r.CanceledAt
	s.CurrentPeriodStart = r.CurrentPeriodStart
	s.CurrentPeriodEnd = r.CurrentPeriodEnd
	s.EndedAt = r.EndedAt
	s.TrialStart = r.TrialStart
	s.TrialEnd = r.TrialEnd
	s.Amount = r.Amount
	s.Touch()
}

// MarkCanceled applies the result of a cancellation. When the processor
// does not report a cancellation time, now is used.
func (s *CurrentSubscription) MarkCanceled(r *RemoteSubscription, now time.Time) {
	s.Status = r.Status
	s.CancelAtPeriodEnd = r.CancelAtPeriodEnd
	if r.CurrentPeriodEnd != nil {
		s.CurrentPeriodEnd = r.CurrentPeriodEnd
	}
	if r.CanceledAt != nil {
		s.CanceledAt = r.CanceledAt
	} else {
		t := now.UTC()
		s.CanceledAt = &t
	}
	s.Touch()
}
