package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/payments/backend/internal/domain/payments"
	"go.uber.org/zap"
)

// SubscriptionService starts, changes and cancels the caller's subscription
type SubscriptionService struct {
	accounts      *AccountService
	sync          *SyncService
	subscriptions payments.SubscriptionRepository
	gateway       payments.Gateway
	catalog       *payments.PlanCatalog
	now           func() time.Time
	logger        *zap.Logger
}

// SubscriptionServiceConfig contains dependencies for SubscriptionService
type SubscriptionServiceConfig struct {
	Accounts      *AccountService
	Sync          *SyncService
	Subscriptions payments.SubscriptionRepository
	Gateway       payments.Gateway
	Catalog       *payments.PlanCatalog
	Logger        *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(cfg SubscriptionServiceConfig) *SubscriptionService {
	return &SubscriptionService{
		accounts:      cfg.Accounts,
		sync:          cfg.Sync,
		subscriptions: cfg.Subscriptions,
		gateway:       cfg.Gateway,
		catalog:       cfg.Catalog,
		now:           time.Now,
		logger:        cfg.Logger,
	}
}

// Subscribe puts the user on planKey. An existing live subscription is moved
// to the new plan rather than duplicated.
func (s *SubscriptionService) Subscribe(ctx context.Context, user User, planKey string) (*payments.CurrentSubscription, error) {
	plan, ok := s.catalog.Get(planKey)
	if !ok {
		return nil, payments.ErrUnknownPlan
	}

	customer, err := s.accounts.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	if customer.IsPurged() {
		return nil, payments.ErrCustomerPurged
	}

	req := payments.SubscribeRequest{
		CustomerStripeID: customer.StripeID,
		PlanStripeID:     plan.StripePlanID,
		Quantity:         1,
		TrialPeriodDays:  plan.TrialPeriodDays,
	}
	if sub := customer.Subscription; sub != nil && sub.EndedAt == nil && sub.Status != payments.SubscriptionStatusCanceled {
		req.SubscriptionStripeID = sub.StripeID
		req.TrialPeriodDays = 0
	}

	remote, err := s.gateway.Subscribe(ctx, req)
	if err != nil {
		return nil, err
	}

	sub, err := s.sync.ApplySubscription(ctx, customer, remote)
	if err != nil {
		return nil, err
	}

	requestLogger(ctx, s.logger).Info("Customer subscribed",
		zap.String("customer_id", customer.ID.String()),
		zap.String("plan", planKey),
		zap.String("subscription_id", sub.StripeID))
	return sub, nil
}

// Cancel cancels the user's subscription at the end of the paid period. A
// customer without a subscription gets a nil subscription and no error.
func (s *SubscriptionService) Cancel(ctx context.Context, user User) (*payments.CurrentSubscription, error) {
	customer, err := s.accounts.GetOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	sub := customer.Subscription
	if sub == nil || sub.StripeID == "" {
		requestLogger(ctx, s.logger).Info("Nothing to cancel",
			zap.String("customer_id", customer.ID.String()))
		return nil, nil
	}

	remote, err := s.gateway.CancelSubscription(ctx, sub.StripeID, true)
	if err != nil {
		return nil, err
	}

	sub.MarkCanceled(remote, s.now())
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	requestLogger(ctx, s.logger).Info("Subscription cancelled",
		zap.String("customer_id", customer.ID.String()),
		zap.String("subscription_id", sub.StripeID),
		zap.Bool("at_period_end", sub.CancelAtPeriodEnd))
	return sub, nil
}
