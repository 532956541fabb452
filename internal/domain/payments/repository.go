package payments

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository persists customers. Finders load the current
// subscription into Customer.Subscription and return shared.ErrNotFound
// when nothing matches.
type CustomerRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Customer, error)
	FindByStripeID(ctx context.Context, stripeID string) (*Customer, error)
	Save(ctx context.Context, customer *Customer) error
}

// SubscriptionRepository persists current subscriptions
type SubscriptionRepository interface {
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*CurrentSubscription, error)
	Save(ctx context.Context, sub *CurrentSubscription) error
	DeleteByCustomerID(ctx context.Context, customerID uuid.UUID) error
}

// ChargeRepository persists charges
type ChargeRepository interface {
	FindByStripeID(ctx context.Context, stripeID string) (*Charge, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Charge, error)
	Save(ctx context.Context, charge *Charge) error
}

// InvoiceRepository persists invoices together with their items.
// FindByCustomerID also loads the charges attached to each invoice.
type InvoiceRepository interface {
	FindByStripeID(ctx context.Context, stripeID string) (*Invoice, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Invoice, error)
	FindUnpaidByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
}

// EventRepository persists webhook events and processing failures
type EventRepository interface {
	ExistsByStripeID(ctx context.Context, stripeID string) (bool, error)
	// Create inserts a new event and returns ErrEventAlreadyReceived when
	// an event with the same processor id exists.
	Create(ctx context.Context, event *Event) error
	Save(ctx context.Context, event *Event) error
	// FindByCustomerID returns events with their processing exceptions
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]Event, error)
	SaveException(ctx context.Context, exc *EventProcessingException) error
}
