package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	paymentsapp "github.com/payments/backend/internal/application/payments"
	"github.com/payments/backend/internal/domain/payments"
	"github.com/payments/backend/internal/interfaces/http/dto"
	"github.com/payments/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) GetOrCreateCustomer(ctx context.Context, user paymentsapp.User) (*payments.Customer, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Customer), args.Error(1)
}

func (m *mockAccounts) CurrentSubscription(ctx context.Context, user paymentsapp.User) (*payments.CurrentSubscription, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CurrentSubscription), args.Error(1)
}

type mockSubscriptions struct{ mock.Mock }

func (m *mockSubscriptions) Subscribe(ctx context.Context, user paymentsapp.User, planKey string) (*payments.CurrentSubscription, error) {
	args := m.Called(ctx, user, planKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CurrentSubscription), args.Error(1)
}

func (m *mockSubscriptions) Cancel(ctx context.Context, user paymentsapp.User) (*payments.CurrentSubscription, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CurrentSubscription), args.Error(1)
}

type mockCards struct{ mock.Mock }

func (m *mockCards) ChangeCard(ctx context.Context, user paymentsapp.User, card payments.CardDetails) (*payments.Customer, error) {
	args := m.Called(ctx, user, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Customer), args.Error(1)
}

type mockHistory struct{ mock.Mock }

func (m *mockHistory) Charges(ctx context.Context, user paymentsapp.User) ([]payments.Charge, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]payments.Charge), args.Error(1)
}

func (m *mockHistory) Invoices(ctx context.Context, user paymentsapp.User) ([]payments.Invoice, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]payments.Invoice), args.Error(1)
}

func (m *mockHistory) Events(ctx context.Context, user paymentsapp.User) ([]payments.Event, error) {
	args := m.Called(ctx, user)
	return args.Get(0).([]payments.Event), args.Error(1)
}

type mockWebhooks struct{ mock.Mock }

func (m *mockWebhooks) Receive(ctx context.Context, body []byte, data json.RawMessage) (*paymentsapp.WebhookResult, error) {
	args := m.Called(ctx, body, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentsapp.WebhookResult), args.Error(1)
}

type paymentsFixture struct {
	engine        *gin.Engine
	user          paymentsapp.User
	accounts      *mockAccounts
	subscriptions *mockSubscriptions
	cards         *mockCards
	history       *mockHistory
	webhooks      *mockWebhooks
	recorder      *mockRecorder
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()
	f := &paymentsFixture{
		user:          paymentsapp.User{ID: uuid.New(), Email: "ada@example.com"},
		accounts:      new(mockAccounts),
		subscriptions: new(mockSubscriptions),
		cards:         new(mockCards),
		history:       new(mockHistory),
		webhooks:      new(mockWebhooks),
		recorder:      new(mockRecorder),
	}

	h := NewPaymentsHandler(PaymentsHandlerConfig{
		Accounts:      f.accounts,
		Subscriptions: f.subscriptions,
		Cards:         f.cards,
		History:       f.history,
		Webhooks:      f.webhooks,
		Catalog: payments.NewPlanCatalog([]payments.Plan{
			{Key: "monthly", StripePlanID: "price_monthly", Name: "Monthly", Price: decimal.RequireFromString("9.99"), Currency: "usd", Interval: "month"},
		}),
		ProcessorErrors: f.recorder,
	})
	h.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	authenticate := func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			c.Set(middleware.JWTUserIDKey, f.user.ID.String())
			c.Set(middleware.JWTEmailKey, f.user.Email)
		}
		c.Next()
	}

	f.engine = gin.New()
	g := f.engine.Group("/api/v1/payments", authenticate)
	g.GET("/current-user/", h.CurrentUser)
	g.GET("/subscription/", h.GetSubscription)
	g.POST("/subscription/", h.CreateSubscription)
	g.POST("/change-card/", h.ChangeCard)
	g.GET("/charges/", h.Charges)
	g.GET("/invoices/", h.Invoices)
	g.GET("/events/", h.Events)
	g.GET("/plans/", h.Plans)
	g.POST("/webhook/", h.Webhook)
	g.POST("/cancel/", h.Cancel)

	t.Cleanup(func() {
		f.accounts.AssertExpectations(t)
		f.subscriptions.AssertExpectations(t)
		f.cards.AssertExpectations(t)
		f.history.AssertExpectations(t)
		f.webhooks.AssertExpectations(t)
		f.recorder.AssertExpectations(t)
	})
	return f
}

func (f *paymentsFixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, "/api/v1/payments"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newCustomer(t *testing.T, userID uuid.UUID) *payments.Customer {
	t.Helper()
	customer, err := payments.NewCustomer(userID, "cus_123")
	require.NoError(t, err)
	return customer
}

func TestPaymentsHandler_CurrentUser(t *testing.T) {
	f := newPaymentsFixture(t)
	customer := newCustomer(t, f.user.ID)
	f.accounts.On("GetOrCreateCustomer", mock.Anything, f.user).Return(customer, nil).Once()

	w := f.do(http.MethodGet, "/current-user/", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeMap(t, w)
	assert.Equal(t, f.user.ID.String(), body["user"])
	assert.Equal(t, false, body["can_charge"])
	assert.Equal(t, false, body["has_active_subscription"])
}

func TestPaymentsHandler_CurrentUser_Unauthenticated(t *testing.T) {
	f := newPaymentsFixture(t)

	w := f.do(http.MethodGet, "/current-user/", "", "X-Anonymous", "1")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentsHandler_CurrentUser_ProcessorError(t *testing.T) {
	f := newPaymentsFixture(t)
	f.accounts.On("GetOrCreateCustomer", mock.Anything, f.user).
		Return(nil, &payments.ProcessorError{Op: "create_customer", Code: "api_error", Message: "Stripe is unavailable"}).Once()
	f.recorder.On("ProcessorError", "/api/v1/payments/current-user/", "create_customer", "api_error").Once()

	w := f.do(http.MethodGet, "/current-user/", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Stripe is unavailable", decodeError(t, w).Error)
}

func TestPaymentsHandler_GetSubscription(t *testing.T) {
	t.Run("no subscription returns null", func(t *testing.T) {
		f := newPaymentsFixture(t)
		f.accounts.On("CurrentSubscription", mock.Anything, f.user).Return(nil, nil).Once()

		w := f.do(http.MethodGet, "/subscription/", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "null", w.Body.String())
	})

	t.Run("current subscription", func(t *testing.T) {
		f := newPaymentsFixture(t)
		sub := payments.NewCurrentSubscription(uuid.New())
		sub.Plan = "monthly"
		sub.Status = payments.SubscriptionStatusActive
		sub.Amount = decimal.RequireFromString("9.99")
		f.accounts.On("CurrentSubscription", mock.Anything, f.user).Return(sub, nil).Once()

		w := f.do(http.MethodGet, "/subscription/", "")

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeMap(t, w)
		assert.Equal(t, "monthly", body["plan"])
		assert.Equal(t, "9.99", body["amount"])
	})
}

func TestPaymentsHandler_CreateSubscription(t *testing.T) {
	f := newPaymentsFixture(t)
	sub := payments.NewCurrentSubscription(uuid.New())
	sub.Plan = "monthly"
	sub.Status = payments.SubscriptionStatusActive
	f.subscriptions.On("Subscribe", mock.Anything, f.user, "monthly").Return(sub, nil).Once()

	w := f.do(http.MethodPost, "/subscription/", `{"stripe_plan":"monthly"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "monthly", decodeMap(t, w)["plan"])
}

func TestPaymentsHandler_CreateSubscription_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{"missing plan", `{}`, "stripe_plan", middleware.MsgFieldRequired},
		{"unknown plan", `{"stripe_plan":"gold"}`, "stripe_plan", `"gold" is not a valid choice.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentsFixture(t)

			w := f.do(http.MethodPost, "/subscription/", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, dto.MsgValidationFailed, resp.Error)
			assert.Equal(t, []string{tt.wantMsg}, resp.Fields[tt.wantField])
		})
	}
}

func TestPaymentsHandler_CreateSubscription_Purged(t *testing.T) {
	f := newPaymentsFixture(t)
	f.subscriptions.On("Subscribe", mock.Anything, f.user, "monthly").Return(nil, payments.ErrCustomerPurged).Once()

	w := f.do(http.MethodPost, "/subscription/", `{"stripe_plan":"monthly"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Customer has been purged", decodeError(t, w).Error)
}

func TestPaymentsHandler_CreateSubscription_TransportFailure(t *testing.T) {
	f := newPaymentsFixture(t)
	f.subscriptions.On("Subscribe", mock.Anything, f.user, "monthly").
		Return(nil, fmt.Errorf("subscribe: %w", errors.New("dial tcp: connection refused"))).Once()

	w := f.do(http.MethodPost, "/subscription/", `{"stripe_plan":"monthly"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.MsgUnexpected, decodeError(t, w).Error)
}

func TestPaymentsHandler_ChangeCard(t *testing.T) {
	f := newPaymentsFixture(t)
	want := payments.CardDetails{Number: "4242424242424242", ExpMonth: "12", ExpYear: "2030", CVC: "123"}
	f.cards.On("ChangeCard", mock.Anything, f.user, want).Return(newCustomer(t, f.user.ID), nil).Once()

	w := f.do(http.MethodPost, "/change-card/", `{"number":4242424242424242,"exp_month":12,"exp_year":2030,"cvc":123}`)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeMap(t, w)
	assert.Equal(t, "************4242", body["number"])
	assert.NotContains(t, body, "cvc")
	assert.Nil(t, body["address_line1"])
}

func TestPaymentsHandler_ChangeCard_NumericStrings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want payments.CardDetails
	}{
		{
			"digit strings",
			`{"number":"4242424242424242","exp_month":"12","exp_year":"2030","cvc":"123"}`,
			payments.CardDetails{Number: "4242424242424242", ExpMonth: "12", ExpYear: "2030", CVC: "123"},
		},
		{
			"zero cvc is present",
			`{"number":4242424242424242,"exp_month":12,"exp_year":2030,"cvc":0}`,
			payments.CardDetails{Number: "4242424242424242", ExpMonth: "12", ExpYear: "2030", CVC: "0"},
		},
		{
			"cvc leading zeros kept",
			`{"number":"4242424242424242","exp_month":1,"exp_year":2030,"cvc":"007"}`,
			payments.CardDetails{Number: "4242424242424242", ExpMonth: "1", ExpYear: "2030", CVC: "007"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentsFixture(t)
			f.cards.On("ChangeCard", mock.Anything, f.user, tt.want).Return(newCustomer(t, f.user.ID), nil).Once()

			w := f.do(http.MethodPost, "/change-card/", tt.body)

			require.Equal(t, http.StatusCreated, w.Code)
			body := decodeMap(t, w)
			assert.Equal(t, "************4242", body["number"])
			assert.NotContains(t, body, "cvc")
		})
	}
}

func TestPaymentsHandler_ChangeCard_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{"missing number", `{"exp_month":12,"exp_year":2030,"cvc":123}`, "number", middleware.MsgFieldRequired},
		{"string month", `{"number":4242424242424242,"exp_month":"dec","exp_year":2030,"cvc":123}`, "exp_month", "A valid integer is required."},
		{"month out of range", `{"number":4242424242424242,"exp_month":13,"exp_year":2030,"cvc":123}`, "exp_month", "Ensure this value is less than or equal to 12."},
		{"non numeric string", `{"number":"4242-4242","exp_month":12,"exp_year":2030,"cvc":123}`, "number", "A valid integer is required."},
		{"null cvc", `{"number":4242424242424242,"exp_month":12,"exp_year":2030,"cvc":null}`, "cvc", middleware.MsgFieldRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentsFixture(t)

			w := f.do(http.MethodPost, "/change-card/", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, []string{tt.wantMsg}, decodeError(t, w).Fields[tt.wantField])
		})
	}
}

func TestPaymentsHandler_ChangeCard_Declined(t *testing.T) {
	f := newPaymentsFixture(t)
	f.cards.On("ChangeCard", mock.Anything, f.user, mock.Anything).
		Return(nil, &payments.ProcessorError{Op: "update_card", Code: "card_declined", Message: "Your card was declined."}).Once()
	f.recorder.On("ProcessorError", "/api/v1/payments/change-card/", "update_card", "card_declined").Once()

	w := f.do(http.MethodPost, "/change-card/", `{"number":4000000000000002,"exp_month":1,"exp_year":2030,"cvc":1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Your card was declined.", decodeError(t, w).Error)
}

func TestPaymentsHandler_History(t *testing.T) {
	customerID := uuid.New()

	t.Run("charges", func(t *testing.T) {
		f := newPaymentsFixture(t)
		f.history.On("Charges", mock.Anything, f.user).Return([]payments.Charge{*payments.NewCharge(customerID, "ch_1")}, nil).Once()

		w := f.do(http.MethodGet, "/charges/", "")

		require.Equal(t, http.StatusOK, w.Code)
		var body []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, "ch_1", body[0]["stripe_id"])
	})

	t.Run("empty invoices", func(t *testing.T) {
		f := newPaymentsFixture(t)
		f.history.On("Invoices", mock.Anything, f.user).Return([]payments.Invoice(nil), nil).Once()

		w := f.do(http.MethodGet, "/invoices/", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", w.Body.String())
	})

	t.Run("events", func(t *testing.T) {
		f := newPaymentsFixture(t)
		msg, err := payments.ParseWebhookMessage(json.RawMessage(`{"id":"evt_1","type":"customer.updated","livemode":false}`))
		require.NoError(t, err)
		f.history.On("Events", mock.Anything, f.user).Return([]payments.Event{*payments.NewEvent(msg)}, nil).Once()

		w := f.do(http.MethodGet, "/events/", "")

		require.Equal(t, http.StatusOK, w.Code)
		var body []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, "customer.updated", body[0]["kind"])
	})

	t.Run("purged customer", func(t *testing.T) {
		f := newPaymentsFixture(t)
		f.history.On("Charges", mock.Anything, f.user).Return([]payments.Charge(nil), payments.ErrCustomerPurged).Once()

		w := f.do(http.MethodGet, "/charges/", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPaymentsHandler_Plans(t *testing.T) {
	f := newPaymentsFixture(t)

	w := f.do(http.MethodGet, "/plans/", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeMap(t, w)
	monthly, ok := body["monthly"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "price_monthly", monthly["stripe_plan_id"])
	assert.Equal(t, "9.99", monthly["price"])
}

func TestPaymentsHandler_Webhook(t *testing.T) {
	payload := `{"data":{"id":"evt_1","type":"charge.succeeded","livemode":false}}`
	msg, err := payments.ParseWebhookMessage(json.RawMessage(`{"id":"evt_1","type":"charge.succeeded","livemode":false}`))
	require.NoError(t, err)

	t.Run("accepted", func(t *testing.T) {
		f := newPaymentsFixture(t)
		event := payments.NewEvent(msg)
		f.webhooks.On("Receive", mock.Anything, []byte(payload), mock.AnythingOfType("json.RawMessage")).
			Return(&paymentsapp.WebhookResult{Event: event}, nil).Once()

		w := f.do(http.MethodPost, "/webhook/", payload, "X-Anonymous", "1")

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeMap(t, w)
		assert.Equal(t, "evt_1", body["stripe_id"])
		assert.Contains(t, body, "event_processing_exceptions")
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newPaymentsFixture(t)
		exception := payments.NewEventProcessingException(nil, payload, "Duplicate event record", "")
		f.webhooks.On("Receive", mock.Anything, mock.Anything, mock.Anything).
			Return(&paymentsapp.WebhookResult{Exception: exception}, nil).Once()

		w := f.do(http.MethodPost, "/webhook/", payload, "X-Anonymous", "1")

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeMap(t, w)
		assert.Equal(t, "Duplicate event record", body["message"])
		assert.Nil(t, body["event"])
	})

	t.Run("incomplete", func(t *testing.T) {
		f := newPaymentsFixture(t)
		f.webhooks.On("Receive", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, payments.ErrIncompleteWebhook).Once()

		w := f.do(http.MethodPost, "/webhook/", `{"data":{"id":"evt_1"}}`, "X-Anonymous", "1")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Webhook must contain id, type and livemode.", decodeError(t, w).Error)
	})

	t.Run("missing data", func(t *testing.T) {
		f := newPaymentsFixture(t)

		w := f.do(http.MethodPost, "/webhook/", `{}`, "X-Anonymous", "1")

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{middleware.MsgFieldRequired}, decodeError(t, w).Fields["data"])
	})

	t.Run("null data", func(t *testing.T) {
		f := newPaymentsFixture(t)

		w := f.do(http.MethodPost, "/webhook/", `{"data":null}`, "X-Anonymous", "1")

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{middleware.MsgFieldNull}, decodeError(t, w).Fields["data"])
	})
}

func TestPaymentsHandler_Cancel(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		f := newPaymentsFixture(t)
		sub := payments.NewCurrentSubscription(uuid.New())
		f.subscriptions.On("Cancel", mock.Anything, f.user).Return(sub, nil).Once()

		w := f.do(http.MethodPost, "/cancel/", `{"confirm":true}`)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	})

	t.Run("not confirmed", func(t *testing.T) {
		f := newPaymentsFixture(t)

		w := f.do(http.MethodPost, "/cancel/", `{"confirm":false}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{middleware.MsgConfirm}, decodeError(t, w).Fields["confirm"])
	})

	t.Run("missing confirm", func(t *testing.T) {
		f := newPaymentsFixture(t)

		w := f.do(http.MethodPost, "/cancel/", `{}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{middleware.MsgFieldRequired}, decodeError(t, w).Fields["confirm"])
	})

	t.Run("no subscription", func(t *testing.T) {
		f := newPaymentsFixture(t)
		f.subscriptions.On("Cancel", mock.Anything, f.user).Return(nil, nil).Once()

		w := f.do(http.MethodPost, "/cancel/", `{"confirm":true}`)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	})
}
