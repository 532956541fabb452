package payments

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/shared"
)

// Event kinds and prefixes that drive event processing
const (
	KindPrefixInvoice      = "invoice."
	KindPrefixCharge       = "charge."
	KindPrefixSubscription = "customer.subscription."
	KindPrefixPlan         = "plan."
	KindPrefixTransfer     = "transfer."

	KindCustomerCreated = "customer.created"
	KindCustomerUpdated = "customer.updated"
	KindCustomerDeleted = "customer.deleted"
)

// WebhookMessage is the envelope of a processor event as delivered
type WebhookMessage struct {
	ID       string
	Type     string
	Livemode bool
	Raw      json.RawMessage
}

// ParseWebhookMessage performs the presence check on an incoming event:
// id and type must be non-empty strings and livemode must be a boolean.
func ParseWebhookMessage(raw json.RawMessage) (*WebhookMessage, error) {
	var envelope struct {
		ID       *string `json:"id"`
		Type     *string `json:"type"`
		Livemode *bool   `json:"livemode"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, ErrIncompleteWebhook
	}
	if envelope.ID == nil || *envelope.ID == "" ||
		envelope.Type == nil || *envelope.Type == "" ||
		envelope.Livemode == nil {
		return nil, ErrIncompleteWebhook
	}
	return &WebhookMessage{
		ID:       *envelope.ID,
		Type:     *envelope.Type,
		Livemode: *envelope.Livemode,
		Raw:      raw,
	}, nil
}

// Event is a processor event received through the webhook
type Event struct {
	shared.BaseEntity
	StripeID         string
	Kind             string
	Livemode         bool
	CustomerID       *uuid.UUID
	WebhookMessage   json.RawMessage
	ValidatedMessage json.RawMessage
	Valid            *bool
	Processed        bool

	ProcessingExceptions []EventProcessingException
}

// NewEvent records a received webhook message
func NewEvent(msg *WebhookMessage) *Event {
	return &Event{
		BaseEntity:     shared.NewBaseEntity(),
		StripeID:       msg.ID,
		Kind:           msg.Type,
		Livemode:       msg.Livemode,
		WebhookMessage: msg.Raw,
	}
}

// Validate stores the event as re-fetched from the processor and marks the
// event valid when its data matches what the webhook delivered.
func (e *Event) Validate(retrieved json.RawMessage) error {
	received, err := messageData(e.WebhookMessage)
	if err != nil {
		return fmt.Errorf("decode webhook message: %w", err)
	}
	fetched, err := messageData(retrieved)
	if err != nil {
		return fmt.Errorf("decode validated message: %w", err)
	}

	valid := reflect.DeepEqual(received, fetched)
	e.ValidatedMessage = retrieved
	e.Valid = &valid
	e.Touch()
	return nil
}

// IsValid reports whether validation succeeded
func (e *Event) IsValid() bool {
	return e.Valid != nil && *e.Valid
}

// Message returns the trusted message: the validated one when present
func (e *Event) Message() json.RawMessage {
	if len(e.ValidatedMessage) > 0 {
		return e.ValidatedMessage
	}
	return e.WebhookMessage
}

// DataObject returns data.object of the trusted message
func (e *Event) DataObject() (map[string]any, error) {
	var msg struct {
		Data struct {
			Object map[string]any `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(e.Message(), &msg); err != nil {
		return nil, fmt.Errorf("decode event data: %w", err)
	}
	if msg.Data.Object == nil {
		return nil, fmt.Errorf("event %s has no data.object", e.StripeID)
	}
	return msg.Data.Object, nil
}

// ObjectID returns data.object.id
func (e *Event) ObjectID() (string, error) {
	obj, err := e.DataObject()
	if err != nil {
		return "", err
	}
	id, _ := obj["id"].(string)
	if id == "" {
		return "", fmt.Errorf("event %s has no data.object.id", e.StripeID)
	}
	return id, nil
}

// CustomerStripeID returns the processor customer the event refers to, if any.
// Customer lifecycle events carry the customer as the object itself.
func (e *Event) CustomerStripeID() string {
	obj, err := e.DataObject()
	if err != nil {
		return ""
	}
	switch e.Kind {
	case KindCustomerCreated, KindCustomerUpdated, KindCustomerDeleted:
		id, _ := obj["id"].(string)
		return id
	}
	switch v := obj["customer"].(type) {
	case string:
		return v
	case map[string]any:
		id, _ := v["id"].(string)
		return id
	}
	return ""
}

// LinksCustomer reports whether events of this kind are tied to a customer
func (e *Event) LinksCustomer() bool {
	return !strings.HasPrefix(e.Kind, KindPrefixPlan) && !strings.HasPrefix(e.Kind, KindPrefixTransfer)
}

// LinkCustomer associates the event with a local customer
func (e *Event) LinkCustomer(customerID uuid.UUID) {
	e.CustomerID = &customerID
	e.Touch()
}

// MarkProcessed records successful processing
func (e *Event) MarkProcessed() {
	e.Processed = true
	e.Touch()
}

// CanProcess reports whether the event is valid and not yet processed
func (e *Event) CanProcess() bool {
	return e.IsValid() && !e.Processed
}

func messageData(raw json.RawMessage) (any, error) {
	var msg struct {
		Data any `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// EventProcessingException records a failure met while handling a webhook.
// EventID is nil for failures that happened before an event was stored.
type EventProcessingException struct {
	ID        uuid.UUID
	EventID   *uuid.UUID
	Data      string
	Message   string
	Traceback string
	CreatedAt time.Time
}

// MaxExceptionMessageLength is the number of characters kept of an
// exception message.
const MaxExceptionMessageLength = 500

// NewEventProcessingException creates an exception record. The message is
// cut to MaxExceptionMessageLength characters.
func NewEventProcessingException(eventID *uuid.UUID, data, message, traceback string) *EventProcessingException {
	return &EventProcessingException{
		ID:        uuid.New(),
		EventID:   eventID,
		Data:      data,
		Message:   truncateRunes(message, MaxExceptionMessageLength),
		Traceback: traceback,
		CreatedAt: time.Now().UTC(),
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
