package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	paymentsapp "github.com/payments/backend/internal/application/payments"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/interfaces/http/dto"
	"github.com/payments/backend/internal/interfaces/http/middleware"
)

// AccountService resolves the caller's billing customer
type AccountService interface {
	GetOrCreateCustomer(ctx context.Context, user paymentsapp.User) (*payments.Customer, error)
	CurrentSubscription(ctx context.Context, user paymentsapp.User) (*payments.CurrentSubscription, error)
}

// SubscriptionService starts and cancels subscriptions
type SubscriptionService interface {
	Subscribe(ctx context.Context, user paymentsapp.User, planKey string) (*payments.CurrentSubscription, error)
	Cancel(ctx context.Context, user paymentsapp.User) (*payments.CurrentSubscription, error)
}

// CardService replaces the card on file
type CardService interface {
	ChangeCard(ctx context.Context, user paymentsapp.User, card payments.CardDetails) (*payments.Customer, error)
}

// HistoryService lists billing records
type HistoryService interface {
	Charges(ctx context.Context, user paymentsapp.User) ([]payments.Charge, error)
	Invoices(ctx context.Context, user paymentsapp.User) ([]payments.Invoice, error)
	Events(ctx context.Context, user paymentsapp.User) ([]payments.Event, error)
}

// WebhookService ingests processor events
type WebhookService interface {
	Receive(ctx context.Context, body []byte, data json.RawMessage) (*paymentsapp.WebhookResult, error)
}

// PaymentsHandlerConfig contains dependencies for PaymentsHandler
type PaymentsHandlerConfig struct {
	Accounts        AccountService
	Subscriptions   SubscriptionService
	Cards           CardService
	History         HistoryService
	Webhooks        WebhookService
	Catalog         *payments.PlanCatalog
	ProcessorErrors ProcessorErrorRecorder
}

// PaymentsHandler serves the payments API
type PaymentsHandler struct {
	BaseHandler
	accounts      AccountService
	subscriptions SubscriptionService
	cards         CardService
	history       HistoryService
	webhooks      WebhookService
	catalog       *payments.PlanCatalog
	now           func() time.Time
}

// NewPaymentsHandler creates a new PaymentsHandler
func NewPaymentsHandler(cfg PaymentsHandlerConfig) *PaymentsHandler {
	return &PaymentsHandler{
		BaseHandler:   BaseHandler{processorErrors: cfg.ProcessorErrors},
		accounts:      cfg.Accounts,
		subscriptions: cfg.Subscriptions,
		cards:         cfg.Cards,
		history:       cfg.History,
		webhooks:      cfg.Webhooks,
		catalog:       cfg.Catalog,
		now:           time.Now,
	}
}

// CurrentUser godoc
//
//	@ID				getPaymentsCurrentUser
//	@Summary		Get the caller's billing customer
//	@Description	Return the customer profile, creating the processor customer on first use
//	@Tags			payments
//	@Produce		json
//	@Success		200	{object}	dto.CustomerResponse
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/current-user/ [get]
func (h *PaymentsHandler) CurrentUser(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	customer, err := h.accounts.GetOrCreateCustomer(c.Request.Context(), user)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCustomerResponse(customer, h.now()))
}

// GetSubscription godoc
//
//	@ID				getPaymentsSubscription
//	@Summary		Get the current subscription
//	@Description	Return the caller's current subscription, or null when there is none
//	@Tags			payments
//	@Produce		json
//	@Success		200	{object}	dto.SubscriptionResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/subscription/ [get]
func (h *PaymentsHandler) GetSubscription(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	sub, err := h.accounts.CurrentSubscription(c.Request.Context(), user)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSubscriptionResponse(sub))
}

// CreateSubscription godoc
//
//	@ID				createPaymentsSubscription
//	@Summary		Subscribe to a plan
//	@Description	Subscribe the caller to a configured plan and return the synced subscription
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SubscribeRequest	true	"Plan key"
//	@Success		201	{object}	dto.SubscriptionResponse
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/subscription/ [post]
func (h *PaymentsHandler) CreateSubscription(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req dto.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if _, ok := h.catalog.Get(req.StripePlan); !ok {
		middleware.FieldError(c, "stripe_plan", fmt.Sprintf("%q is not a valid choice.", req.StripePlan))
		return
	}

	sub, err := h.subscriptions.Subscribe(c.Request.Context(), user, req.StripePlan)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToSubscriptionResponse(sub))
}

// ChangeCard godoc
//
//	@ID				changePaymentsCard
//	@Summary		Change the card on file
//	@Description	Replace the card on file and echo the card data with the number masked
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CardRequest	true	"Card details"
//	@Success		201	{object}	dto.CardResponse
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/change-card/ [post]
func (h *PaymentsHandler) ChangeCard(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req dto.CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	if _, err := h.cards.ChangeCard(c.Request.Context(), user, req.ToCardDetails()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, req.ToCardResponse())
}

// Charges godoc
//
//	@ID				listPaymentsCharges
//	@Summary		List charges
//	@Description	List the caller's charges
//	@Tags			payments
//	@Produce		json
//	@Success		200	{array}		dto.ChargeResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/charges/ [get]
func (h *PaymentsHandler) Charges(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	charges, err := h.history.Charges(c.Request.Context(), user)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToChargeResponses(charges))
}

// Invoices godoc
//
//	@ID				listPaymentsInvoices
//	@Summary		List invoices
//	@Description	List the caller's invoices with their items and charges
//	@Tags			payments
//	@Produce		json
//	@Success		200	{array}		dto.InvoiceResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/invoices/ [get]
func (h *PaymentsHandler) Invoices(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	invoices, err := h.history.Invoices(c.Request.Context(), user)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceResponses(invoices))
}

// Events godoc
//
//	@ID				listPaymentsEvents
//	@Summary		List webhook events
//	@Description	List webhook events linked to the caller with their processing exceptions
//	@Tags			payments
//	@Produce		json
//	@Success		200	{array}		dto.EventResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/events/ [get]
func (h *PaymentsHandler) Events(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	events, err := h.history.Events(c.Request.Context(), user)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToEventResponses(events))
}

// Plans godoc
//
//	@ID				listPaymentsPlans
//	@Summary		List plans
//	@Description	Return the configured plans keyed by plan key
//	@Tags			payments
//	@Produce		json
//	@Success		200	{object}	map[string]dto.PlanResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/plans/ [get]
func (h *PaymentsHandler) Plans(c *gin.Context) {
	h.Success(c, dto.ToPlanResponses(h.catalog.All()))
}

// Webhook godoc
//
//	@ID				receivePaymentsWebhook
//	@Summary		Receive a processor webhook
//	@Description	Store, validate and process a processor event. Redeliveries answer 200 with the recorded duplicate exception instead of the event
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WebhookRequest	true	"Event payload"
//	@Success		200	{object}	dto.EventResponse	"Event stored"
//	@Success		200	{object}	dto.ExceptionResponse	"Duplicate event"
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		413	{object}	dto.ErrorResponse
//	@Failure		429	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Router			/payments/webhook/ [post]
func (h *PaymentsHandler) Webhook(c *gin.Context) {
	var req dto.WebhookRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		h.ValidationError(c, err)
		return
	}
	if !req.HasData() {
		middleware.FieldError(c, "data", middleware.MsgFieldNull)
		return
	}

	result, err := h.webhooks.Receive(c.Request.Context(), boundBody(c), req.Data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.IsDuplicate() {
		h.Success(c, dto.ToExceptionResponse(result.Exception))
		return
	}
	h.Success(c, dto.ToEventResponse(result.Event))
}

// Cancel godoc
//
//	@ID				cancelPaymentsSubscription
//	@Summary		Cancel the subscription
//	@Description	Cancel the caller's subscription at period end
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CancelRequest	true	"Confirmation"
//	@Success		202	{object}	dto.SuccessResponse
//	@Failure		400	{object}	dto.ErrorResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Failure		500	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/cancel/ [post]
func (h *PaymentsHandler) Cancel(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	if _, err := h.subscriptions.Cancel(c.Request.Context(), user); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, dto.SuccessResponse{Success: true})
}

// boundBody returns the raw body cached by ShouldBindBodyWith
func boundBody(c *gin.Context) []byte {
	if v, ok := c.Get(gin.BodyBytesKey); ok {
		if body, ok := v.([]byte); ok {
			return body
		}
	}
	return nil
}
