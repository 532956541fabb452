package payments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Gateway errors that callers branch on
var (
	ErrNothingToInvoice   = shared.NewDomainError("NOTHING_TO_INVOICE", "Nothing to invoice for customer")
	ErrInvoiceAlreadyPaid = shared.NewDomainError("INVOICE_ALREADY_PAID", "Invoice is already paid")
)

// Gateway is the payment processor as seen by the application layer
type Gateway interface {
	CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error)
	CreateCardToken(ctx context.Context, card CardDetails) (string, error)
	// UpdateCard makes token the customer's default source and returns the
	// card the processor now reports.
	UpdateCard(ctx context.Context, customerStripeID, token string) (Card, error)

	Subscribe(ctx context.Context, req SubscribeRequest) (*RemoteSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionStripeID string, atPeriodEnd bool) (*RemoteSubscription, error)
	// CurrentSubscription returns nil without error when the customer has none
	CurrentSubscription(ctx context.Context, customerStripeID string) (*RemoteSubscription, error)

	// SendInvoice invoices pending items and pays the invoice when money is due.
	// ErrNothingToInvoice is returned when there is nothing pending.
	SendInvoice(ctx context.Context, customerStripeID string) error
	ListInvoices(ctx context.Context, customerStripeID string) ([]*RemoteInvoice, error)
	GetInvoice(ctx context.Context, invoiceStripeID string) (*RemoteInvoice, error)
	// PayInvoice returns ErrInvoiceAlreadyPaid when there is nothing to collect
	PayInvoice(ctx context.Context, invoiceStripeID string) error

	GetCharge(ctx context.Context, chargeStripeID string) (*RemoteCharge, error)

	// RetrieveEvent returns the processor's own copy of an event as JSON
	RetrieveEvent(ctx context.Context, eventStripeID string) (json.RawMessage, error)
}

// CardDetails is raw card input used to create a card token
type CardDetails struct {
	Number         string
	ExpMonth       string
	ExpYear        string
	CVC            string
	Name           *string
	AddressLine1   *string
	AddressLine2   *string
	AddressCity    *string
	AddressZip     *string
	AddressState   *string
	AddressCountry *string
}

// SubscribeRequest starts or changes the customer's subscription
type SubscribeRequest struct {
	CustomerStripeID string
	// SubscriptionStripeID is set when an existing subscription should be
	// moved to the new plan instead of creating another one.
	SubscriptionStripeID string
	PlanStripeID         string
	Quantity             int64
	TrialPeriodDays      int64
}

// RemoteSubscription is the processor's view of a subscription
type RemoteSubscription struct {
	ID                 string
	CustomerStripeID   string
	PlanStripeID       string
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

// RemoteInvoice is the processor's view of an invoice
type RemoteInvoice struct {
	ID               string
	CustomerStripeID string
	Attempted        bool
	AttemptCount     int64
	Closed           bool
	Paid             bool
	AmountDue        decimal.Decimal
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Subtotal         decimal.Decimal
	Total            decimal.Decimal
	Date             time.Time
	ChargeID         string
	Lines            []RemoteInvoiceLine
}

// RemoteInvoiceLine is one line of a RemoteInvoice
type RemoteInvoiceLine struct {
	ID          string
	Amount      decimal.Decimal
	Currency    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Proration   bool
	Type        string
	Description string
	PlanID      string
	Quantity    *int64
}

// RemoteCharge is the processor's view of a charge
type RemoteCharge struct {
	ID               string
	CustomerStripeID string
	InvoiceStripeID  string
	CardLast4        string
	CardKind         string
	Amount           decimal.Decimal
	AmountRefunded   decimal.Decimal
	Fee              decimal.Decimal
	Description      string
	Paid             bool
	Disputed         bool
	Refunded         bool
	Created          time.Time
}

// ProcessorError is a failure reported by the payment processor.
// Message is safe to show to the account holder.
type ProcessorError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}
