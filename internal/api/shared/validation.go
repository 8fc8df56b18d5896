package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/positionhq/position-api/internal/domain"
)

// maxBodyBytes bounds request bodies. No legitimate payload here comes
// close to a megabyte.
const maxBodyBytes = 1 << 20

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process-wide validator with the custom tag
// registrations this API uses.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// eth_addr: 0x-prefixed 40-hex-character address.
		_ = validate.RegisterValidation("eth_addr", func(fl validator.FieldLevel) bool {
			return domain.IsValidAddress(fl.Field().String())
		})
		// tx_hash: 0x-prefixed 64-hex-character transaction hash.
		_ = validate.RegisterValidation("tx_hash", func(fl validator.FieldLevel) bool {
			return domain.IsValidTxHash(fl.Field().String())
		})
	})
	return validate
}

// FieldViolation is one field-level validation failure, surfaced in the
// error envelope's details list.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestError is a decode or validation failure carrying its violations.
type RequestError struct {
	Message    string
	Violations []FieldViolation
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// DecodeJSON reads and decodes the request body into dst, rejecting
// unknown fields, then validates dst with the shared validator. Failures
// come back as a *RequestError suitable for a VALIDATION_ERROR response.
func DecodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return &RequestError{Message: decodeMessage(err)}
	}
	// A body with trailing content after the object is malformed.
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return &RequestError{Message: "request body must contain a single JSON object"}
	}

	return ValidateStruct(dst)
}

// ValidateStruct runs the shared validator over dst, mapping tag failures
// to field violations.
func ValidateStruct(dst any) error {
	err := Validator().Struct(dst)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return &RequestError{Message: "request validation failed"}
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &RequestError{Message: "request validation failed"}
	}

	violations := make([]FieldViolation, 0, len(errs))
	for _, fieldErr := range errs {
		violations = append(violations, FieldViolation{
			Field:   fieldName(fieldErr),
			Message: violationMessage(fieldErr),
		})
	}
	return &RequestError{Message: "request validation failed", Violations: violations}
}

// fieldName prefers the JSON field path over the Go struct path.
func fieldName(fieldErr validator.FieldError) string {
	// Namespace is like "CreateTokenRequest.ChainID"; drop the root type.
	parts := strings.SplitN(fieldErr.Namespace(), ".", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return fieldErr.Field()
}

// violationMessage renders a human-readable message per validation tag.
func violationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "eth_addr":
		return "must be a 0x-prefixed 40-hex-character address"
	case "tx_hash":
		return "must be a 0x-prefixed 64-hex-character transaction hash"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fieldErr.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fieldErr.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fieldErr.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fieldErr.Param())
	default:
		return fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}
}

// decodeMessage turns json decoder errors into caller-safe text.
func decodeMessage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("request body contains malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
		}
		return "request body has the wrong JSON type"
	case errors.As(err, &maxBytesErr):
		return "request body is too large"
	case errors.Is(err, io.EOF):
		return "request body is required"
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return fmt.Sprintf("unknown field %s", field)
	default:
		return "request body could not be decoded"
	}
}
