package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// bindJSON parses the body into req and runs its validate tags. Malformed
// JSON is a 400, rule violations a 422.
func bindJSON(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return validateRequest(req)
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
func bindOptionalJSON(c *fiber.Ctx, req any) error {
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return validateRequest(req)
	}
	return bindJSON(c, req)
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.NewUnprocessable("invalid request data", nil)
	}

	fields := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldErrorMessage(fe), Type: fe.Tag()})
	}
	return apperrors.NewUnprocessable("invalid request data", map[string]any{"fields": fields})
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gt":
		return "Value must be greater than " + fe.Param()
	default:
		return "Invalid value"
	}
}

// rawScalar returns the literal text of a JSON number or string.
func rawScalar(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	return string(trimmed), true
}

func parseDecimalField(raw json.RawMessage, field string) (decimal.Decimal, error) {
	text, ok := rawScalar(raw)
	if !ok {
		return decimal.Zero, apperrors.NewValidationError(field+" must be numeric", map[string]any{"field": field})
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field+" must be numeric", map[string]any{"field": field})
	}
	return value, nil
}

// parseIntField accepts values that fit a 32-bit column.
func parseIntField(raw json.RawMessage, field string) (int, error) {
	text, ok := rawScalar(raw)
	if !ok {
		return 0, apperrors.NewValidationError(field+" must be an integer", map[string]any{"field": field})
	}
	value, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, apperrors.NewValidationError(field+" must be an integer", map[string]any{"field": field})
	}
	return int(value), nil
}

// pathID reads a numeric path parameter. Anything else cannot name a row.
func pathID(c *fiber.Ctx, name, resource string) (int64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound(resource, map[string]any{name: raw})
	}
	return id, nil
}
