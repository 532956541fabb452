package payments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of payments.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateCardToken(ctx context.Context, card payments.CardDetails) (string, error) {
	args := m.Called(ctx, card)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) UpdateCard(ctx context.Context, customerStripeID, token string) (payments.Card, error) {
	args := m.Called(ctx, customerStripeID, token)
	return args.Get(0).(payments.Card), args.Error(1)
}

func (m *MockGateway) Subscribe(ctx context.Context, req payments.SubscribeRequest) (*payments.RemoteSubscription, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.RemoteSubscription), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionStripeID string, atPeriodEnd bool) (*payments.RemoteSubscription, error) {
	args := m.Called(ctx, subscriptionStripeID, atPeriodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.RemoteSubscription), args.Error(1)
}

func (m *MockGateway) CurrentSubscription(ctx context.Context, customerStripeID string) (*payments.RemoteSubscription, error) {
	args := m.Called(ctx, customerStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.RemoteSubscription), args.Error(1)
}

func (m *MockGateway) SendInvoice(ctx context.Context, customerStripeID string) error {
	return m.Called(ctx, customerStripeID).Error(0)
}

func (m *MockGateway) ListInvoices(ctx context.Context, customerStripeID string) ([]*payments.RemoteInvoice, error) {
	args := m.Called(ctx, customerStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payments.RemoteInvoice), args.Error(1)
}

func (m *MockGateway) GetInvoice(ctx context.Context, invoiceStripeID string) (*payments.RemoteInvoice, error) {
	args := m.Called(ctx, invoiceStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.RemoteInvoice), args.Error(1)
}

func (m *MockGateway) PayInvoice(ctx context.Context, invoiceStripeID string) error {
	return m.Called(ctx, invoiceStripeID).Error(0)
}

func (m *MockGateway) GetCharge(ctx context.Context, chargeStripeID string) (*payments.RemoteCharge, error) {
	args := m.Called(ctx, chargeStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.RemoteCharge), args.Error(1)
}

func (m *MockGateway) RetrieveEvent(ctx context.Context, eventStripeID string) (json.RawMessage, error) {
	args := m.Called(ctx, eventStripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// MockCustomerRepository is a mock implementation of payments.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*payments.Customer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByStripeID(ctx context.Context, stripeID string) (*payments.Customer, error) {
	args := m.Called(ctx, stripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *payments.Customer) error {
	return m.Called(ctx, customer).Error(0)
}

// MockSubscriptionRepository is a mock implementation of payments.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*payments.CurrentSubscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CurrentSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, sub *payments.CurrentSubscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockSubscriptionRepository) DeleteByCustomerID(ctx context.Context, customerID uuid.UUID) error {
	return m.Called(ctx, customerID).Error(0)
}

// MockChargeRepository is a mock implementation of payments.ChargeRepository
type MockChargeRepository struct {
	mock.Mock
}

func (m *MockChargeRepository) FindByStripeID(ctx context.Context, stripeID string) (*payments.Charge, error) {
	args := m.Called(ctx, stripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]payments.Charge, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payments.Charge), args.Error(1)
}

func (m *MockChargeRepository) Save(ctx context.Context, charge *payments.Charge) error {
	return m.Called(ctx, charge).Error(0)
}

// MockInvoiceRepository is a mock implementation of payments.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByStripeID(ctx context.Context, stripeID string) (*payments.Invoice, error) {
	args := m.Called(ctx, stripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]payments.Invoice, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payments.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindUnpaidByCustomerID(ctx context.Context, customerID uuid.UUID) ([]payments.Invoice, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payments.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *payments.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

// MockEventRepository is a mock implementation of payments.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) ExistsByStripeID(ctx context.Context, stripeID string) (bool, error) {
	args := m.Called(ctx, stripeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventRepository) Create(ctx context.Context, event *payments.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventRepository) Save(ctx context.Context, event *payments.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]payments.Event, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payments.Event), args.Error(1)
}

func (m *MockEventRepository) SaveException(ctx context.Context, exc *payments.EventProcessingException) error {
	return m.Called(ctx, exc).Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// MockWebhookMetrics records webhook outcomes
type MockWebhookMetrics struct {
	mock.Mock
}

func (m *MockWebhookMetrics) WebhookAccepted(ctx context.Context, kind string)  { m.Called(kind) }
func (m *MockWebhookMetrics) WebhookDuplicate(ctx context.Context, kind string) { m.Called(kind) }
func (m *MockWebhookMetrics) WebhookInvalid(ctx context.Context, kind string)   { m.Called(kind) }
func (m *MockWebhookMetrics) WebhookFailed(ctx context.Context, kind string)    { m.Called(kind) }
func (m *MockWebhookMetrics) WebhookHandled(ctx context.Context, kind string, d time.Duration) {
	m.Called(kind)
}
