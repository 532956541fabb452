package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// testDeps wires every service against mocks
type testDeps struct {
	gateway       *MockGateway
	customers     *MockCustomerRepository
	subscriptions *MockSubscriptionRepository
	charges       *MockChargeRepository
	invoices      *MockInvoiceRepository
	events        *MockEventRepository
	idempotency   *MockIdempotencyStore
	metrics       *MockWebhookMetrics
	catalog       *payments.PlanCatalog

	accounts        *AccountService
	sync            *SyncService
	subscriptionSvc *SubscriptionService
	cards           *CardService
	history         *HistoryService
	processor       *EventProcessor
	webhooks        *WebhookService
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	d := &testDeps{
		gateway:       new(MockGateway),
		customers:     new(MockCustomerRepository),
		subscriptions: new(MockSubscriptionRepository),
		charges:       new(MockChargeRepository),
		invoices:      new(MockInvoiceRepository),
		events:        new(MockEventRepository),
		idempotency:   new(MockIdempotencyStore),
		metrics:       new(MockWebhookMetrics),
		catalog: payments.NewPlanCatalog([]payments.Plan{
			{Key: "monthly", StripePlanID: "price_monthly", Name: "Monthly", Price: decimal.NewFromInt(10), Currency: "usd", Interval: "month"},
			{Key: "yearly", StripePlanID: "price_yearly", Name: "Yearly", Price: decimal.NewFromInt(100), Currency: "usd", Interval: "year", TrialPeriodDays: 14},
		}),
	}
	logger := zap.NewNop()

	d.accounts = NewAccountService(d.customers, d.gateway, logger)
	d.sync = NewSyncService(SyncServiceConfig{
		Customers:     d.customers,
		Subscriptions: d.subscriptions,
		Invoices:      d.invoices,
		Charges:       d.charges,
		Gateway:       d.gateway,
		Catalog:       d.catalog,
		Logger:        logger,
	})
	d.sync.now = func() time.Time { return fixedNow }
	d.subscriptionSvc = NewSubscriptionService(SubscriptionServiceConfig{
		Accounts:      d.accounts,
		Sync:          d.sync,
		Subscriptions: d.subscriptions,
		Gateway:       d.gateway,
		Catalog:       d.catalog,
		Logger:        logger,
	})
	d.subscriptionSvc.now = func() time.Time { return fixedNow }
	d.cards = NewCardService(d.accounts, d.sync, d.customers, d.gateway, logger)
	d.history = NewHistoryService(d.accounts, d.charges, d.invoices, d.events)
	d.processor = NewEventProcessor(d.customers, d.events, d.sync, logger)
	d.webhooks = NewWebhookService(WebhookServiceConfig{
		Events:      d.events,
		Gateway:     d.gateway,
		Processor:   d.processor,
		Idempotency: d.idempotency,
		Metrics:     d.metrics,
		Logger:      logger,
	})
	d.webhooks.now = func() time.Time { return fixedNow }
	return d
}

func (d *testDeps) assertExpectations(t *testing.T) {
	t.Helper()
	d.gateway.AssertExpectations(t)
	d.customers.AssertExpectations(t)
	d.subscriptions.AssertExpectations(t)
	d.charges.AssertExpectations(t)
	d.invoices.AssertExpectations(t)
	d.events.AssertExpectations(t)
	d.idempotency.AssertExpectations(t)
}

func testUser() User {
	return User{ID: uuid.New(), Email: "ada@example.com"}
}

func testCustomer(t *testing.T, user User) *payments.Customer {
	t.Helper()
	c, err := payments.NewCustomer(user.ID, "cus_123")
	require.NoError(t, err)
	return c
}

func activeSubscription(customer *payments.Customer) *payments.CurrentSubscription {
	end := fixedNow.Add(30 * 24 * time.Hour)
	sub := payments.NewCurrentSubscription(customer.ID)
	sub.StripeID = "sub_123"
	sub.Plan = "monthly"
	sub.Status = payments.SubscriptionStatusActive
	sub.CurrentPeriodEnd = &end
	return sub
}

func remoteSubscription(id, price string) *payments.RemoteSubscription {
	start := fixedNow
	end := fixedNow.Add(30 * 24 * time.Hour)
	return &payments.RemoteSubscription{
		ID:                 id,
		CustomerStripeID:   "cus_123",
		PlanStripeID:       price,
		Quantity:           1,
		Start:              start,
		Status:             payments.SubscriptionStatusActive,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		Amount:             decimal.NewFromInt(10),
	}
}
