package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AccountService resolves the billing customer behind an authenticated user
type AccountService struct {
	customers payments.CustomerRepository
	gateway   payments.Gateway
	logger    *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(customers payments.CustomerRepository, gateway payments.Gateway, logger *zap.Logger) *AccountService {
	return &AccountService{
		customers: customers,
		gateway:   gateway,
		logger:    logger,
	}
}

// GetOrCreateCustomer returns the user's customer, registering one with the
// processor on first use.
func (s *AccountService) GetOrCreateCustomer(ctx context.Context, user User) (*payments.Customer, error) {
	customer, err := s.customers.FindByUserID(ctx, user.ID)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	stripeID, err := s.gateway.CreateCustomer(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	customer, err = payments.NewCustomer(user.ID, stripeID)
	if err != nil {
		return nil, err
	}
	if err := s.customers.Save(ctx, customer); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// a concurrent request registered the user first
			requestLogger(ctx, s.logger).Warn("Customer created concurrently, using existing record",
				zap.String("user_id", user.ID.String()),
				zap.String("orphaned_stripe_id", stripeID))
			return s.customers.FindByUserID(ctx, user.ID)
		}
		return nil, fmt.Errorf("failed to save customer: %w", err)
	}

	requestLogger(ctx, s.logger).Info("Customer created",
		zap.String("user_id", user.ID.String()),
		zap.String("stripe_id", stripeID))
	return customer, nil
}

// CurrentSubscription returns the user's local subscription, or nil when the
// user has no customer or no subscription.
func (s *AccountService) CurrentSubscription(ctx context.Context, user User) (*payments.CurrentSubscription, error) {
	customer, err := s.customers.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return customer.Subscription, nil
}
