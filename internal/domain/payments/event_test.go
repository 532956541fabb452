package payments

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"complete", `{"id":"evt_1","type":"charge.succeeded","livemode":false}`, false},
		{"livemode true", `{"id":"evt_1","type":"charge.succeeded","livemode":true}`, false},
		{"missing id", `{"type":"charge.succeeded","livemode":true}`, true},
		{"empty id", `{"id":"","type":"charge.succeeded","livemode":true}`, true},
		{"missing type", `{"id":"evt_1","livemode":true}`, true},
		{"missing livemode", `{"id":"evt_1","type":"charge.succeeded"}`, true},
		{"null livemode", `{"id":"evt_1","type":"charge.succeeded","livemode":null}`, true},
		{"non-object", `"evt_1"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseWebhookMessage(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIncompleteWebhook)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "evt_1", msg.ID)
			assert.Equal(t, "charge.succeeded", msg.Type)
		})
	}
}

func newTestEvent(t *testing.T, raw string) *Event {
	t.Helper()
	msg, err := ParseWebhookMessage(json.RawMessage(raw))
	require.NoError(t, err)
	return NewEvent(msg)
}

func TestEvent_Validate(t *testing.T) {
	raw := `{"id":"evt_1","type":"invoice.paid","livemode":false,"data":{"object":{"id":"in_1","customer":"cus_1","total":100}}}`

	t.Run("matching data is valid", func(t *testing.T) {
		e := newTestEvent(t, raw)
		retrieved := `{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{"total":100,"customer":"cus_1","id":"in_1"}}}`

		require.NoError(t, e.Validate(json.RawMessage(retrieved)))
		assert.True(t, e.IsValid())
		assert.True(t, e.CanProcess())
		assert.JSONEq(t, retrieved, string(e.Message()))
	})

	t.Run("tampered data is invalid", func(t *testing.T) {
		e := newTestEvent(t, raw)
		retrieved := `{"id":"evt_1","data":{"object":{"id":"in_1","customer":"cus_1","total":999}}}`

		require.NoError(t, e.Validate(json.RawMessage(retrieved)))
		require.NotNil(t, e.Valid)
		assert.False(t, *e.Valid)
		assert.False(t, e.CanProcess())
	})

	t.Run("undecodable retrieved message", func(t *testing.T) {
		e := newTestEvent(t, raw)
		assert.Error(t, e.Validate(json.RawMessage(`not json`)))
		assert.Nil(t, e.Valid)
	})
}

func TestEvent_CustomerStripeID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"customer lifecycle uses object id",
			`{"id":"evt_1","type":"customer.deleted","livemode":false,"data":{"object":{"id":"cus_9","object":"customer"}}}`,
			"cus_9",
		},
		{
			"string customer reference",
			`{"id":"evt_1","type":"charge.succeeded","livemode":false,"data":{"object":{"id":"ch_1","customer":"cus_2"}}}`,
			"cus_2",
		},
		{
			"expanded customer reference",
			`{"id":"evt_1","type":"invoice.paid","livemode":false,"data":{"object":{"id":"in_1","customer":{"id":"cus_3"}}}}`,
			"cus_3",
		},
		{
			"no customer",
			`{"id":"evt_1","type":"plan.created","livemode":false,"data":{"object":{"id":"gold"}}}`,
			"",
		},
		{
			"no data",
			`{"id":"evt_1","type":"ping","livemode":false}`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTestEvent(t, tt.raw).CustomerStripeID())
		})
	}
}

func TestEvent_LinksCustomer(t *testing.T) {
	assert.True(t, (&Event{Kind: "invoice.paid"}).LinksCustomer())
	assert.False(t, (&Event{Kind: "plan.updated"}).LinksCustomer())
	assert.False(t, (&Event{Kind: "transfer.created"}).LinksCustomer())
}

func TestEvent_ObjectID(t *testing.T) {
	e := newTestEvent(t, `{"id":"evt_1","type":"charge.refunded","livemode":false,"data":{"object":{"id":"ch_7"}}}`)
	id, err := e.ObjectID()
	require.NoError(t, err)
	assert.Equal(t, "ch_7", id)

	e = newTestEvent(t, `{"id":"evt_1","type":"charge.refunded","livemode":false,"data":{"object":{}}}`)
	_, err = e.ObjectID()
	assert.Error(t, err)
}

func TestEvent_LinkAndProcess(t *testing.T) {
	e := newTestEvent(t, `{"id":"evt_1","type":"charge.refunded","livemode":false}`)
	customerID := uuid.New()

	e.LinkCustomer(customerID)
	e.MarkProcessed()

	assert.Equal(t, customerID, *e.CustomerID)
	assert.True(t, e.Processed)
}

func TestNewEventProcessingException_TruncatesMessage(t *testing.T) {
	t.Run("short message kept", func(t *testing.T) {
		exc := NewEventProcessingException(nil, "{}", "boom", "")
		assert.Equal(t, "boom", exc.Message)
	})

	t.Run("long message cut", func(t *testing.T) {
		exc := NewEventProcessingException(nil, "{}", strings.Repeat("x", 600), "trace")
		assert.Len(t, exc.Message, MaxExceptionMessageLength)
		assert.Equal(t, "trace", exc.Traceback)
	})

	t.Run("multibyte characters stay whole", func(t *testing.T) {
		exc := NewEventProcessingException(nil, "{}", strings.Repeat("é", 501), "")
		assert.Equal(t, strings.Repeat("é", MaxExceptionMessageLength), exc.Message)
	})
}
