package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SyncService copies processor state into local records
type SyncService struct {
	customers     payments.CustomerRepository
	subscriptions payments.SubscriptionRepository
	invoices      payments.InvoiceRepository
	charges       payments.ChargeRepository
	gateway       payments.Gateway
	catalog       *payments.PlanCatalog
	now           func() time.Time
	logger        *zap.Logger
}

// SyncServiceConfig contains dependencies for SyncService
type SyncServiceConfig struct {
	Customers     payments.CustomerRepository
	Subscriptions payments.SubscriptionRepository
	Invoices      payments.InvoiceRepository
	Charges       payments.ChargeRepository
	Gateway       payments.Gateway
	Catalog       *payments.PlanCatalog
	Logger        *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	return &SyncService{
		customers:     cfg.Customers,
		subscriptions: cfg.Subscriptions,
		invoices:      cfg.Invoices,
		charges:       cfg.Charges,
		gateway:       cfg.Gateway,
		catalog:       cfg.Catalog,
		now:           time.Now,
		logger:        cfg.Logger,
	}
}

// SyncCurrentSubscription mirrors the processor's current subscription for
// customer. The local row is removed when the processor reports none.
func (s *SyncService) SyncCurrentSubscription(ctx context.Context, customer *payments.Customer) (*payments.CurrentSubscription, error) {
	remote, err := s.gateway.CurrentSubscription(ctx, customer.StripeID)
	if err != nil {
		return nil, err
	}

	if remote == nil {
		if err := s.subscriptions.DeleteByCustomerID(ctx, customer.ID); err != nil {
			return nil, fmt.Errorf("failed to delete subscription: %w", err)
		}
		customer.Subscription = nil
		return nil, nil
	}

	return s.ApplySubscription(ctx, customer, remote)
}

// ApplySubscription stores remote as customer's current subscription
func (s *SyncService) ApplySubscription(ctx context.Context, customer *payments.Customer, remote *payments.RemoteSubscription) (*payments.CurrentSubscription, error) {
	sub, err := s.currentSubscription(ctx, customer)
	if err != nil {
		return nil, err
	}

	sub.ApplyRemote(remote, s.catalog.KeyForStripeID(remote.PlanStripeID))
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	customer.Subscription = sub
	return sub, nil
}

func (s *SyncService) currentSubscription(ctx context.Context, customer *payments.Customer) (*payments.CurrentSubscription, error) {
	if customer.Subscription != nil {
		return customer.Subscription, nil
	}
	sub, err := s.subscriptions.FindByCustomerID(ctx, customer.ID)
	if err == nil {
		return sub, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return payments.NewCurrentSubscription(customer.ID), nil
	}
	return nil, fmt.Errorf("failed to load subscription: %w", err)
}

// SyncInvoiceByID retrieves an invoice from the processor and stores it
func (s *SyncService) SyncInvoiceByID(ctx context.Context, invoiceStripeID string) (*payments.Invoice, error) {
	remote, err := s.gateway.GetInvoice(ctx, invoiceStripeID)
	if err != nil {
		return nil, err
	}
	return s.SyncInvoice(ctx, remote)
}

// SyncInvoice upserts remote with its lines, then records the charge that
// paid it.
func (s *SyncService) SyncInvoice(ctx context.Context, remote *payments.RemoteInvoice) (*payments.Invoice, error) {
	customer, err := s.customerByStripeID(ctx, remote.CustomerStripeID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.FindByStripeID(ctx, remote.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to load invoice: %w", err)
		}
		invoice = payments.NewInvoice(customer.ID, remote.ID)
	}

	invoice.ApplyRemote(remote, s.catalog.KeyForStripeID)
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	if remote.ChargeID != "" {
		charge, err := s.RecordCharge(ctx, remote.ChargeID)
		if err != nil {
			return nil, err
		}
		invoice.Charges = []payments.Charge{*charge}
	}
	return invoice, nil
}

// SyncInvoices stores every processor invoice of customer
func (s *SyncService) SyncInvoices(ctx context.Context, customer *payments.Customer) error {
	remotes, err := s.gateway.ListInvoices(ctx, customer.StripeID)
	if err != nil {
		return err
	}
	for _, remote := range remotes {
		if _, err := s.SyncInvoice(ctx, remote); err != nil {
			return err
		}
	}
	return nil
}

// RecordCharge retrieves a charge from the processor and stores it, linked
// to its invoice when that invoice is known locally.
func (s *SyncService) RecordCharge(ctx context.Context, chargeStripeID string) (*payments.Charge, error) {
	remote, err := s.gateway.GetCharge(ctx, chargeStripeID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customerByStripeID(ctx, remote.CustomerStripeID)
	if err != nil {
		return nil, err
	}

	charge, err := s.charges.FindByStripeID(ctx, remote.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to load charge: %w", err)
		}
		charge = payments.NewCharge(customer.ID, remote.ID)
	}
	charge.ApplyRemote(remote)

	if remote.InvoiceStripeID != "" {
		invoice, err := s.invoices.FindByStripeID(ctx, remote.InvoiceStripeID)
		switch {
		case err == nil:
			charge.InvoiceID = &invoice.ID
		case !errors.Is(err, shared.ErrNotFound):
			return nil, fmt.Errorf("failed to load invoice: %w", err)
		}
	}

	if err := s.charges.Save(ctx, charge); err != nil {
		return nil, fmt.Errorf("failed to save charge: %w", err)
	}
	return charge, nil
}

// SendInvoice bills pending items now. It reports false when there was
// nothing to bill.
func (s *SyncService) SendInvoice(ctx context.Context, customer *payments.Customer) (bool, error) {
	if err := s.gateway.SendInvoice(ctx, customer.StripeID); err != nil {
		if errors.Is(err, payments.ErrNothingToInvoice) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RetryUnpaidInvoices refreshes invoices, then asks the processor to collect
// each one that is neither paid nor closed.
func (s *SyncService) RetryUnpaidInvoices(ctx context.Context, customer *payments.Customer) error {
	if err := s.SyncInvoices(ctx, customer); err != nil {
		return err
	}

	unpaid, err := s.invoices.FindUnpaidByCustomerID(ctx, customer.ID)
	if err != nil {
		return fmt.Errorf("failed to load unpaid invoices: %w", err)
	}
	for _, invoice := range unpaid {
		if !invoice.NeedsRetry() {
			continue
		}
		if err := s.gateway.PayInvoice(ctx, invoice.StripeID); err != nil {
			if errors.Is(err, payments.ErrInvoiceAlreadyPaid) {
				continue
			}
			return err
		}
		requestLogger(ctx, s.logger).Info("Retried unpaid invoice", zap.String("invoice_id", invoice.StripeID))
	}
	return nil
}

// PurgeCustomer forgets the user and card of a customer deleted at the processor
func (s *SyncService) PurgeCustomer(ctx context.Context, customer *payments.Customer) error {
	customer.Purge(s.now())
	if err := s.customers.Save(ctx, customer); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

func (s *SyncService) customerByStripeID(ctx context.Context, stripeID string) (*payments.Customer, error) {
	customer, err := s.customers.FindByStripeID(ctx, stripeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("customer %q: %w", stripeID, payments.ErrCustomerNotFound)
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return customer, nil
}
