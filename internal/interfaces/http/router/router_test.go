package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/payments/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	calls := 0
	count := func(c *gin.Context) {
		calls++
		c.Next()
	}
	group := NewDomainGroup("/test").
		GET("/ping", count, func(c *gin.Context) { c.String(http.StatusOK, "pong") }).
		POST("/echo", count, func(c *gin.Context) { c.String(http.StatusCreated, "created") })
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/test/echo", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, calls)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewPaymentsGroup_Routes(t *testing.T) {
	engine := gin.New()
	h := handler.NewPaymentsHandler(handler.PaymentsHandlerConfig{})

	webhookGuard := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTeapot)
	}
	NewRouter(engine).Register(NewPaymentsGroup(h, webhookGuard)).Setup()

	registered := map[string]bool{}
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/payments/current-user/",
		"GET /api/v1/payments/subscription/",
		"POST /api/v1/payments/subscription/",
		"POST /api/v1/payments/change-card/",
		"GET /api/v1/payments/charges/",
		"GET /api/v1/payments/invoices/",
		"GET /api/v1/payments/events/",
		"GET /api/v1/payments/plans/",
		"POST /api/v1/payments/webhook/",
		"POST /api/v1/payments/cancel/",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
