package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/payments"
)

// Money amounts are rendered as fixed two-place decimal strings
const moneyPlaces = 2

// CustomerResponse is the caller's billing profile
type CustomerResponse struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                *uuid.UUID `json:"user"`
	StripeID              string     `json:"stripe_id"`
	CardFingerprint       string     `json:"card_fingerprint"`
	CardLast4             string     `json:"card_last_4"`
	CardKind              string     `json:"card_kind"`
	DatePurged            *time.Time `json:"date_purged"`
	HasActiveSubscription bool       `json:"has_active_subscription"`
	CanCharge             bool       `json:"can_charge"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ToCustomerResponse serializes c; now decides subscription validity
func ToCustomerResponse(c *payments.Customer, now time.Time) CustomerResponse {
	resp := CustomerResponse{
		ID:                    c.ID,
		StripeID:              c.StripeID,
		CardFingerprint:       c.CardFingerprint,
		CardLast4:             c.CardLast4,
		CardKind:              c.CardKind,
		DatePurged:            c.DatePurged,
		HasActiveSubscription: c.HasActiveSubscription(now),
		CanCharge:             c.CanCharge(),
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
	if c.UserID != uuid.Nil {
		userID := c.UserID
		resp.UserID = &userID
	}
	return resp
}

// SubscriptionResponse is the customer's current subscription
type SubscriptionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	CustomerID         uuid.UUID  `json:"customer"`
	StripeID           string     `json:"stripe_id"`
	Plan               string     `json:"plan"`
	Quantity           int64      `json:"quantity"`
	Start              time.Time  `json:"start"`
	Status             string     `json:"status"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CanceledAt         *time.Time `json:"canceled_at"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	EndedAt            *time.Time `json:"ended_at"`
	TrialStart         *time.Time `json:"trial_start"`
	TrialEnd           *time.Time `json:"trial_end"`
	Amount             string     `json:"amount"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ToSubscriptionResponse serializes s. A nil subscription stays nil so it
// renders as JSON null.
func ToSubscriptionResponse(s *payments.CurrentSubscription) *SubscriptionResponse {
	if s == nil {
		return nil
	}
	return &SubscriptionResponse{
		ID:                 s.ID,
		CustomerID:         s.CustomerID,
		StripeID:           s.StripeID,
		Plan:               s.Plan,
		Quantity:           s.Quantity,
		Start:              s.Start,
		Status:             string(s.Status),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CanceledAt:         s.CanceledAt,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		EndedAt:            s.EndedAt,
		TrialStart:         s.TrialStart,
		TrialEnd:           s.TrialEnd,
		Amount:             s.Amount.StringFixed(moneyPlaces),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// ChargeResponse is one payment attempt
type ChargeResponse struct {
	ID             uuid.UUID  `json:"id"`
	CustomerID     uuid.UUID  `json:"customer"`
	InvoiceID      *uuid.UUID `json:"invoice"`
	StripeID       string     `json:"stripe_id"`
	CardLast4      string     `json:"card_last_4"`
	CardKind       string     `json:"card_kind"`
	Amount         string     `json:"amount"`
	AmountRefunded string     `json:"amount_refunded"`
	Fee            string     `json:"fee"`
	Description    string     `json:"description"`
	Paid           bool       `json:"paid"`
	Disputed       bool       `json:"disputed"`
	Refunded       bool       `json:"refunded"`
	ReceiptSent    bool       `json:"receipt_sent"`
	ChargeCreated  *time.Time `json:"charge_created"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ToChargeResponse serializes c
func ToChargeResponse(c *payments.Charge) ChargeResponse {
	return ChargeResponse{
		ID:             c.ID,
		CustomerID:     c.CustomerID,
		InvoiceID:      c.InvoiceID,
		StripeID:       c.StripeID,
		CardLast4:      c.CardLast4,
		CardKind:       c.CardKind,
		Amount:         c.Amount.StringFixed(moneyPlaces),
		AmountRefunded: c.AmountRefunded.StringFixed(moneyPlaces),
		Fee:            c.Fee.StringFixed(moneyPlaces),
		Description:    c.Description,
		Paid:           c.Paid,
		Disputed:       c.Disputed,
		Refunded:       c.Refunded,
		ReceiptSent:    c.ReceiptSent,
		ChargeCreated:  c.ChargeCreated,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// ToChargeResponses serializes a list of charges. The result is never nil.
func ToChargeResponses(charges []payments.Charge) []ChargeResponse {
	out := make([]ChargeResponse, 0, len(charges))
	for i := range charges {
		out = append(out, ToChargeResponse(&charges[i]))
	}
	return out
}

// InvoiceItemResponse is one invoice line
type InvoiceItemResponse struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoice"`
	StripeID    string    `json:"stripe_id"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Proration   bool      `json:"proration"`
	LineType    string    `json:"line_type"`
	Description string    `json:"description"`
	Plan        string    `json:"plan"`
	Quantity    *int64    `json:"quantity"`
}

// InvoiceResponse is an invoice with its lines and charges
type InvoiceResponse struct {
	ID             uuid.UUID             `json:"id"`
	CustomerID     uuid.UUID             `json:"customer"`
	StripeID       string                `json:"stripe_id"`
	Attempted      bool                  `json:"attempted"`
	Attempts       int64                 `json:"attempts"`
	Closed         bool                  `json:"closed"`
	Paid           bool                  `json:"paid"`
	PeriodStart    time.Time             `json:"period_start"`
	PeriodEnd      time.Time             `json:"period_end"`
	Subtotal       string                `json:"subtotal"`
	Total          string                `json:"total"`
	Date           time.Time             `json:"date"`
	ChargeStripeID string                `json:"charge"`
	Items          []InvoiceItemResponse `json:"items"`
	Charges        []ChargeResponse      `json:"charges"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// ToInvoiceResponse serializes inv with nested items and charges
func ToInvoiceResponse(inv *payments.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemResponse{
			ID:          item.ID,
			InvoiceID:   item.InvoiceID,
			StripeID:    item.StripeID,
			Amount:      item.Amount.StringFixed(moneyPlaces),
			Currency:    item.Currency,
			PeriodStart: item.PeriodStart,
			PeriodEnd:   item.PeriodEnd,
			Proration:   item.Proration,
			LineType:    item.LineType,
			Description: item.Description,
			Plan:        item.Plan,
			Quantity:    item.Quantity,
		})
	}
	return InvoiceResponse{
		ID:             inv.ID,
		CustomerID:     inv.CustomerID,
		StripeID:       inv.StripeID,
		Attempted:      inv.Attempted,
		Attempts:       inv.Attempts,
		Closed:         inv.Closed,
		Paid:           inv.Paid,
		PeriodStart:    inv.PeriodStart,
		PeriodEnd:      inv.PeriodEnd,
		Subtotal:       inv.Subtotal.StringFixed(moneyPlaces),
		Total:          inv.Total.StringFixed(moneyPlaces),
		Date:           inv.Date,
		ChargeStripeID: inv.ChargeStripeID,
		Items:          items,
		Charges:        ToChargeResponses(inv.Charges),
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

// ToInvoiceResponses serializes a list of invoices. The result is never nil.
func ToInvoiceResponses(invoices []payments.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, ToInvoiceResponse(&invoices[i]))
	}
	return out
}

// ExceptionResponse is a recorded webhook handling failure
type ExceptionResponse struct {
	ID        uuid.UUID  `json:"id"`
	EventID   *uuid.UUID `json:"event"`
	Data      string     `json:"data"`
	Message   string     `json:"message"`
	Traceback string     `json:"traceback"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToExceptionResponse serializes e
func ToExceptionResponse(e *payments.EventProcessingException) ExceptionResponse {
	return ExceptionResponse{
		ID:        e.ID,
		EventID:   e.EventID,
		Data:      e.Data,
		Message:   e.Message,
		Traceback: e.Traceback,
		CreatedAt: e.CreatedAt,
	}
}

// EventResponse is a received webhook event and what happened to it
type EventResponse struct {
	ID                   uuid.UUID           `json:"id"`
	StripeID             string              `json:"stripe_id"`
	Kind                 string              `json:"kind"`
	Livemode             bool                `json:"livemode"`
	CustomerID           *uuid.UUID          `json:"customer"`
	WebhookMessage       json.RawMessage     `json:"webhook_message"`
	ValidatedMessage     json.RawMessage     `json:"validated_message"`
	Valid                *bool               `json:"valid"`
	Processed            bool                `json:"processed"`
	ProcessingExceptions []ExceptionResponse `json:"event_processing_exceptions"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ToEventResponse serializes e with its processing exceptions
func ToEventResponse(e *payments.Event) EventResponse {
	exceptions := make([]ExceptionResponse, 0, len(e.ProcessingExceptions))
	for i := range e.ProcessingExceptions {
		exceptions = append(exceptions, ToExceptionResponse(&e.ProcessingExceptions[i]))
	}
	return EventResponse{
		ID:                   e.ID,
		StripeID:             e.StripeID,
		Kind:                 e.Kind,
		Livemode:             e.Livemode,
		CustomerID:           e.CustomerID,
		WebhookMessage:       jsonOrNull(e.WebhookMessage),
		ValidatedMessage:     jsonOrNull(e.ValidatedMessage),
		Valid:                e.Valid,
		Processed:            e.Processed,
		ProcessingExceptions: exceptions,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// ToEventResponses serializes a list of events. The result is never nil.
func ToEventResponses(events []payments.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, ToEventResponse(&events[i]))
	}
	return out
}

// jsonOrNull keeps an empty message from producing invalid JSON
func jsonOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// PlanResponse is one configured plan
type PlanResponse struct {
	StripePlanID    string `json:"stripe_plan_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	Currency        string `json:"currency"`
	Interval        string `json:"interval"`
	TrialPeriodDays int64  `json:"trial_period_days,omitempty"`
}

// ToPlanResponses renders the catalog keyed by plan key
func ToPlanResponses(plans []payments.Plan) map[string]PlanResponse {
	out := make(map[string]PlanResponse, len(plans))
	for _, p := range plans {
		out[p.Key] = PlanResponse{
			StripePlanID:    p.StripePlanID,
			Name:            p.Name,
			Description:     p.Description,
			Price:           p.Price.StringFixed(moneyPlaces),
			Currency:        p.Currency,
			Interval:        p.Interval,
			TrialPeriodDays: p.TrialPeriodDays,
		}
	}
	return out
}

// SuccessResponse acknowledges an accepted request
type SuccessResponse struct {
	Success bool `json:"success"`
}
