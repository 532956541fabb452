package billing

import (
	"fmt"
	"strings"

	"github.com/payments/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"
)

// NewStripeClient builds a Stripe API client bound to cfg's secret key.
// Retries are disabled unless configured; stripe-go logs through logger.
func NewStripeClient(cfg *config.StripeConfig, logger *zap.Logger) (*client.API, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}
	if cfg.IsTestMode && !strings.HasPrefix(cfg.SecretKey, "sk_test") {
		return nil, fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
	}

	backendConfig := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}

	return client.New(cfg.SecretKey, stripe.NewBackendsWithConfig(backendConfig)), nil
}
