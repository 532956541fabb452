package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/payments/backend/internal/interfaces/http/dto"
)

// Validation messages returned to clients
const (
	MsgFieldRequired = "This field is required."
	MsgFieldNull     = "This field may not be null."
	MsgConfirm       = "Please confirm to continue."
	MsgInvalidBody   = "Invalid request body"
)

// SetupValidator configures gin's validator: JSON tag names in errors, the
// "confirmed" tag for boolean confirmations and numeric checks on dto.Integer.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("confirmed", validateConfirmed)
	v.RegisterCustomTypeFunc(integerValue, dto.Integer{})
}

// integerValue lets numeric tags such as min and gt compare dto.Integer
func integerValue(field reflect.Value) any {
	if n, ok := field.Interface().(dto.Integer); ok {
		return n.Value
	}
	return nil
}

// validateConfirmed accepts only a true boolean
func validateConfirmed(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return false
		}
		field = field.Elem()
	}
	return field.Kind() == reflect.Bool && field.Bool()
}

// FormatValidationErrors turns a binding error into the 400 response body
func FormatValidationErrors(err error) dto.ErrorResponse {
	fields := map[string][]string{}

	var validationErrors validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &validationErrors):
		for _, e := range validationErrors {
			fields[e.Field()] = append(fields[e.Field()], getValidationMessage(e))
		}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fields[typeErr.Field] = append(fields[typeErr.Field], typeMessage(typeErr.Type.Kind()))
	case errors.Is(err, io.EOF):
		return dto.NewErrorResponse("Request body is empty")
	default:
		return dto.NewErrorResponse(MsgInvalidBody)
	}
	return dto.NewValidationErrorResponse(fields)
}

// HandleValidationError writes a 400 validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err))
}

// FieldError writes a 400 validation response for a single field
func FieldError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(map[string][]string{
		field: {message},
	}))
}

func typeMessage(kind reflect.Kind) string {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "A valid integer is required."
	case reflect.Bool:
		return "Must be a valid boolean."
	case reflect.String:
		return "Not a valid string."
	default:
		return "Invalid value."
	}
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return MsgFieldRequired
	case "confirmed":
		return MsgConfirm
	case "min":
		return "Ensure this value is greater than or equal to " + e.Param() + "."
	case "max":
		return "Ensure this value is less than or equal to " + e.Param() + "."
	case "gt":
		return "Ensure this value is greater than " + e.Param() + "."
	case "gte":
		return "Ensure this value is greater than or equal to " + e.Param() + "."
	case "oneof":
		return "Must be one of: " + e.Param()
	default:
		return "Invalid value."
	}
}
