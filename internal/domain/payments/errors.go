package payments

import "github.com/payments/backend/internal/domain/shared"

// Domain errors for the payments context
var (
	ErrCustomerNotFound     = shared.NewDomainError("NOT_FOUND", "Customer not found")
	ErrCustomerPurged       = shared.NewDomainError("INVALID_STATE", "Customer has been purged")
	ErrUnknownPlan          = shared.NewDomainError("INVALID_INPUT", "Unknown plan")
	ErrIncompleteWebhook    = shared.NewDomainError("INVALID_INPUT", "Webhook must contain id, type and livemode.")
	ErrEventAlreadyReceived = shared.NewDomainError("ALREADY_EXISTS", "Duplicate event record")
)
