package dto

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/payments/backend/internal/domain/payments"
)

// SubscribeRequest selects a configured plan. The allowed keys are checked
// against the plan catalog by the handler.
type SubscribeRequest struct {
	StripePlan string `json:"stripe_plan" binding:"required"`
}

// Integer is a whole number sent either as a JSON number or as a string of
// digits. Digits keeps the text as sent, leading zeros included.
type Integer struct {
	Value  int64
	Digits string
}

var integerType = reflect.TypeOf(int64(0))

// UnmarshalJSON accepts 42, "42", "042" and "42.0". Anything else is reported
// as an integer type error on the field.
func (n *Integer) UnmarshalJSON(data []byte) error {
	text := string(data)
	kind := "number"
	if strings.HasPrefix(text, `"`) {
		kind = "string"
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
	}
	if whole, frac, ok := strings.Cut(text, "."); ok && strings.Trim(frac, "0") == "" {
		text = whole
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil || strings.HasPrefix(text, "+") {
		return &json.UnmarshalTypeError{Value: kind, Type: integerType}
	}
	n.Value = v
	n.Digits = strings.TrimPrefix(text, "-")
	return nil
}

// MarshalJSON writes the numeric value
func (n Integer) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(n.Value, 10)), nil
}

// CardRequest carries raw card data used to create a processor card token.
// The numeric fields are pointers so that required checks presence and a
// zero cvc is accepted.
type CardRequest struct {
	Number         *Integer `json:"number" binding:"required,gt=0"`
	ExpMonth       *Integer `json:"exp_month" binding:"required,min=1,max=12"`
	ExpYear        *Integer `json:"exp_year" binding:"required,gt=0"`
	CVC            *Integer `json:"cvc" binding:"required,gte=0"`
	Name           *string `json:"name"`
	AddressLine1   *string `json:"address_line1"`
	AddressLine2   *string `json:"address_line2"`
	AddressCity    *string `json:"address_city"`
	AddressZip     *string `json:"address_zip"`
	AddressState   *string `json:"address_state"`
	AddressCountry *string `json:"address_country"`
}

// ToCardDetails converts the request into gateway input
func (r CardRequest) ToCardDetails() payments.CardDetails {
	return payments.CardDetails{
		Number:         r.Number.Digits,
		ExpMonth:       strconv.FormatInt(r.ExpMonth.Value, 10),
		ExpYear:        strconv.FormatInt(r.ExpYear.Value, 10),
		CVC:            r.CVC.Digits,
		Name:           r.Name,
		AddressLine1:   r.AddressLine1,
		AddressLine2:   r.AddressLine2,
		AddressCity:    r.AddressCity,
		AddressZip:     r.AddressZip,
		AddressState:   r.AddressState,
		AddressCountry: r.AddressCountry,
	}
}

// CardResponse echoes accepted card data without the security code
type CardResponse struct {
	Number         string  `json:"number"`
	ExpMonth       int64   `json:"exp_month"`
	ExpYear        int64   `json:"exp_year"`
	Name           *string `json:"name"`
	AddressLine1   *string `json:"address_line1"`
	AddressLine2   *string `json:"address_line2"`
	AddressCity    *string `json:"address_city"`
	AddressZip     *string `json:"address_zip"`
	AddressState   *string `json:"address_state"`
	AddressCountry *string `json:"address_country"`
}

// ToCardResponse masks all but the last four digits of the card number
func (r CardRequest) ToCardResponse() CardResponse {
	return CardResponse{
		Number:         MaskCardNumber(r.Number.Digits),
		ExpMonth:       r.ExpMonth.Value,
		ExpYear:        r.ExpYear.Value,
		Name:           r.Name,
		AddressLine1:   r.AddressLine1,
		AddressLine2:   r.AddressLine2,
		AddressCity:    r.AddressCity,
		AddressZip:     r.AddressZip,
		AddressState:   r.AddressState,
		AddressCountry: r.AddressCountry,
	}
}

// MaskCardNumber replaces every digit but the last four with '*'
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	masked := make([]byte, len(number))
	for i := range masked {
		if i < len(number)-4 {
			masked[i] = '*'
		} else {
			masked[i] = number[i]
		}
	}
	return string(masked)
}

// CancelRequest must carry confirm=true
type CancelRequest struct {
	Confirm *bool `json:"confirm" binding:"required,confirmed"`
}

// WebhookRequest wraps the event payload delivered by the processor
type WebhookRequest struct {
	Data json.RawMessage `json:"data" binding:"required"`
}

// HasData reports whether data is present and not JSON null
func (r WebhookRequest) HasData() bool {
	return len(r.Data) > 0 && string(r.Data) != "null"
}
