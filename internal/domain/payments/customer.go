package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/shared"
)

// Card is the card-on-file summary reported by the processor
type Card struct {
	Fingerprint string
	Last4       string
	Kind        string
}

// Customer links an application user to a processor customer
type Customer struct {
	shared.BaseEntity
	UserID          uuid.UUID // uuid.Nil once purged
	StripeID        string
	CardFingerprint string
	CardLast4       string
	CardKind        string
	DatePurged      *time.Time

	// Subscription is populated by repositories that load it alongside the customer
	Subscription *CurrentSubscription
}

// NewCustomer creates a customer for userID backed by processor customer stripeID
func NewCustomer(userID uuid.UUID, stripeID string) (*Customer, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if stripeID == "" {
		return nil, shared.NewDomainError("INVALID_STRIPE_ID", "Stripe customer ID cannot be empty")
	}
	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		StripeID:   stripeID,
	}, nil
}

// HasCard reports whether a card fingerprint is on file
func (c *Customer) HasCard() bool {
	return c.CardFingerprint != ""
}

// IsPurged reports whether the customer was deleted at the processor
func (c *Customer) IsPurged() bool {
	return c.DatePurged != nil
}

// CanCharge reports whether the customer has a usable card
func (c *Customer) CanCharge() bool {
	return c.HasCard() && !c.IsPurged()
}

// HasActiveSubscription reports whether the loaded subscription is valid now
func (c *Customer) HasActiveSubscription(now time.Time) bool {
	return c.Subscription != nil && c.Subscription.IsValid(now)
}

// UpdateCard records the processor's view of the default card
func (c *Customer) UpdateCard(card Card) {
	c.CardFingerprint = card.Fingerprint
	c.CardLast4 = card.Last4
	c.CardKind = card.Kind
	c.Touch()
}

// Purge detaches the customer from its user and forgets the card.
// Purging twice keeps the original purge date.
func (c *Customer) Purge(now time.Time) {
	if c.DatePurged == nil {
		t := now.UTC()
		c.DatePurged = &t
	}
	c.UserID = uuid.Nil
	c.UpdateCard(Card{})
}
