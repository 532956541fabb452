package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	paymentsapp "github.com/payments/backend/internal/application/payments"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/domain/shared"
	"github.com/payments/backend/internal/infrastructure/logger"
	"github.com/payments/backend/internal/interfaces/http/dto"
	"github.com/payments/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// ErrUnauthenticated is returned when no user identity reached the handler
var ErrUnauthenticated = shared.NewDomainError("UNAUTHORIZED", "Authentication credentials were not provided.")

// ProcessorErrorRecorder counts processor failures surfaced to clients
type ProcessorErrorRecorder interface {
	ProcessorError(ctx context.Context, route, op, code string)
}

// BaseHandler provides common handler utilities
type BaseHandler struct {
	processorErrors ProcessorErrorRecorder
}

// currentUser builds the caller identity from JWT claims
func currentUser(c *gin.Context) (paymentsapp.User, error) {
	raw := middleware.GetJWTUserID(c)
	if raw == "" {
		return paymentsapp.User{}, ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return paymentsapp.User{}, ErrUnauthenticated
	}
	return paymentsapp.User{ID: id, Email: middleware.GetJWTEmail(c)}, nil
}

// Success sends a 200 response with data as the whole body
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, data)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(message))
}

// ValidationError sends a 400 response describing binding failures
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError maps err to an HTTP response. Processor failures and domain
// rule violations are client errors carrying their message; anything else is
// logged and hidden behind a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var procErr *payments.ProcessorError
	if errors.As(err, &procErr) {
		if h.processorErrors != nil {
			h.processorErrors.ProcessorError(c.Request.Context(), c.FullPath(), procErr.Op, procErr.Code)
		}
		message := procErr.Message
		if message == "" {
			message = dto.MsgUnknownProcessor
		}
		h.Error(c, http.StatusBadRequest, message)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled request error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.MsgUnexpected)
}
