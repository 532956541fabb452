package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerModel is the GORM model for customers
type CustomerModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID          *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	StripeID        string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	CardFingerprint string     `gorm:"type:varchar(200);not null;default:''"`
	CardLast4       string     `gorm:"column:card_last_4;type:varchar(4);not null;default:''"`
	CardKind        string     `gorm:"type:varchar(50);not null;default:''"`
	DatePurged      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Subscription *CurrentSubscriptionModel `gorm:"foreignKey:CustomerID"`
}

// TableName returns the table name for the model
func (CustomerModel) TableName() string {
	return "customers"
}

// CurrentSubscriptionModel is the GORM model for current subscriptions
type CurrentSubscriptionModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID         uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	StripeID           string          `gorm:"type:varchar(255);not null;default:''"`
	Plan               string          `gorm:"type:varchar(100);not null"`
	Quantity           int64           `gorm:"not null"`
	Start              time.Time       `gorm:"not null"`
	Status             string          `gorm:"type:varchar(25);not null"`
	CancelAtPeriodEnd  bool            `gorm:"not null;default:false"`
	CanceledAt         *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	EndedAt            *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	Amount             decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName returns the table name for the model
func (CurrentSubscriptionModel) TableName() string {
	return "current_subscriptions"
}

// ChargeModel is the GORM model for charges
type ChargeModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	InvoiceID      *uuid.UUID      `gorm:"type:uuid;index"`
	StripeID       string          `gorm:"type:varchar(255);uniqueIndex;not null"`
	CardLast4      string          `gorm:"column:card_last_4;type:varchar(4);not null;default:''"`
	CardKind       string          `gorm:"type:varchar(50);not null;default:''"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2)"`
	AmountRefunded decimal.Decimal `gorm:"type:numeric(12,2)"`
	Fee            decimal.Decimal `gorm:"type:numeric(12,2)"`
	Description    string          `gorm:"type:text;not null;default:''"`
	Paid           bool            `gorm:"not null;default:false"`
	Disputed       bool            `gorm:"not null;default:false"`
	Refunded       bool            `gorm:"not null;default:false"`
	ReceiptSent    bool            `gorm:"not null;default:false"`
	ChargeCreated  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for the model
func (ChargeModel) TableName() string {
	return "charges"
}

// InvoiceModel is the GORM model for invoices
type InvoiceModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	StripeID       string          `gorm:"type:varchar(255);uniqueIndex;not null"`
	Attempted      bool            `gorm:"not null;default:false"`
	Attempts       int64           `gorm:"not null;default:0"`
	Closed         bool            `gorm:"not null;default:false"`
	Paid           bool            `gorm:"not null;default:false"`
	PeriodStart    time.Time       `gorm:"not null"`
	PeriodEnd      time.Time       `gorm:"not null"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Date           time.Time       `gorm:"not null"`
	ChargeStripeID string          `gorm:"column:charge;type:varchar(255);not null;default:''"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items   []InvoiceItemModel `gorm:"foreignKey:InvoiceID"`
	Charges []ChargeModel      `gorm:"foreignKey:InvoiceID"`
}

// TableName returns the table name for the model
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceItemModel is the GORM model for invoice lines
type InvoiceItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	StripeID    string          `gorm:"type:varchar(255);uniqueIndex;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency    string          `gorm:"type:varchar(10);not null"`
	PeriodStart time.Time       `gorm:"not null"`
	PeriodEnd   time.Time       `gorm:"not null"`
	Proration   bool            `gorm:"not null;default:false"`
	LineType    string          `gorm:"type:varchar(50);not null"`
	Description string          `gorm:"type:varchar(200);not null;default:''"`
	Plan        string          `gorm:"type:varchar(100);not null;default:''"`
	Quantity    *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for the model
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// EventModel is the GORM model for webhook events
type EventModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StripeID         string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Kind             string     `gorm:"type:varchar(250);not null"`
	Livemode         bool       `gorm:"not null;default:false"`
	CustomerID       *uuid.UUID `gorm:"type:uuid;index"`
	WebhookMessage   []byte     `gorm:"type:jsonb;not null"`
	ValidatedMessage []byte     `gorm:"type:jsonb"`
	Valid            *bool
	Processed        bool `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Exceptions []EventProcessingExceptionModel `gorm:"foreignKey:EventID"`
}

// TableName returns the table name for the model
func (EventModel) TableName() string {
	return "events"
}

// EventProcessingExceptionModel is the GORM model for webhook processing failures
type EventProcessingExceptionModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EventID   *uuid.UUID `gorm:"type:uuid;index"`
	Data      string     `gorm:"type:text;not null"`
	Message   string     `gorm:"type:varchar(500);not null"`
	Traceback string     `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time
}

// TableName returns the table name for the model
func (EventProcessingExceptionModel) TableName() string {
	return "event_processing_exceptions"
}

// Models lists every persisted model, in dependency order
func Models() []any {
	return []any{
		&CustomerModel{},
		&CurrentSubscriptionModel{},
		&InvoiceModel{},
		&InvoiceItemModel{},
		&ChargeModel{},
		&EventModel{},
		&EventProcessingExceptionModel{},
	}
}
