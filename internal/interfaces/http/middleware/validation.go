package middleware

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms/backend/internal/interfaces/http/dto"
)

// SetupValidator makes binding errors report json (or form) field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
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
	}
}

// BindingErrorResponse converts a ShouldBind error into a validation
// envelope. Field errors are listed under details keyed by field name.
func BindingErrorResponse(err error, requestID string) dto.Response {
	resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeValidation, "Request validation failed", requestID)

	var fieldErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &fieldErrs):
		resp.Error.Details = make(map[string]any, len(fieldErrs))
		for _, e := range fieldErrs {
			resp.Error.Details[fieldPath(e)] = validationMessage(e)
		}
	case errors.As(err, &typeErr):
		resp.Error.Details = map[string]any{typeErr.Field: "Invalid type, expected " + typeErr.Type.String()}
	case errors.As(err, &syntaxErr):
		resp.Error.Message = "Malformed JSON body"
	default:
		resp.Error.Message = "Invalid request: " + err.Error()
	}
	return resp
}

// fieldPath drops the struct name from the namespace, so
// "TransactionInput.items[0].qty" becomes "items[0].qty".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " entries"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at most " + e.Param() + " entries"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
