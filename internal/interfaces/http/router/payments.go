package router

import (
	"github.com/gin-gonic/gin"
	"github.com/payments/backend/internal/interfaces/http/handler"
)

// NewPaymentsGroup maps the payments API onto h. webhookMiddleware runs only
// in front of the public webhook route.
func NewPaymentsGroup(h *handler.PaymentsHandler, webhookMiddleware ...gin.HandlerFunc) *DomainGroup {
	webhook := append(append([]gin.HandlerFunc{}, webhookMiddleware...), h.Webhook)

	return NewDomainGroup("/payments").
		GET("/current-user/", h.CurrentUser).
		GET("/subscription/", h.GetSubscription).
		POST("/subscription/", h.CreateSubscription).
		POST("/change-card/", h.ChangeCard).
		GET("/charges/", h.Charges).
		GET("/invoices/", h.Invoices).
		GET("/events/", h.Events).
		GET("/plans/", h.Plans).
		POST("/webhook/", webhook...).
		POST("/cancel/", h.Cancel)
}
