package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/redact"
	"github.com/positionhq/position-api/internal/service"
	"github.com/positionhq/position-api/internal/service/auth"
)

// ErrorCode is the closed set of API error codes. Every code maps to
// exactly one HTTP status; the envelope carries the code, the transport
// status comes from the table.
type ErrorCode string

// The full error-code set.
const (
	CodeValidationError         ErrorCode = "VALIDATION_ERROR"
	CodeBadRequest              ErrorCode = "BAD_REQUEST"
	CodeInvalidAddress          ErrorCode = "INVALID_ADDRESS"
	CodeChainNotSupported       ErrorCode = "CHAIN_NOT_SUPPORTED"
	CodeUnauthorized            ErrorCode = "UNAUTHORIZED"
	CodeInvalidSIWEMessage      ErrorCode = "INVALID_SIWE_MESSAGE"
	CodeInvalidSignature        ErrorCode = "INVALID_SIGNATURE"
	CodeNonceInvalid            ErrorCode = "NONCE_INVALID"
	CodeForbidden               ErrorCode = "FORBIDDEN"
	CodeNotFound                ErrorCode = "NOT_FOUND"
	CodeTokenNotFound           ErrorCode = "TOKEN_NOT_FOUND"
	CodePoolNotFound            ErrorCode = "POOL_NOT_FOUND"
	CodePositionNotFound        ErrorCode = "POSITION_NOT_FOUND"
	CodeAPIKeyNotFound          ErrorCode = "API_KEY_NOT_FOUND"
	CodeWalletAlreadyRegistered ErrorCode = "WALLET_ALREADY_REGISTERED"
	CodeConflict                ErrorCode = "CONFLICT"
	CodeUnprocessableEntity     ErrorCode = "UNPROCESSABLE_ENTITY"
	CodeTooManyRequests         ErrorCode = "TOO_MANY_REQUESTS"
	CodeInternalServerError     ErrorCode = "INTERNAL_SERVER_ERROR"
	CodeBadGateway              ErrorCode = "BAD_GATEWAY"
	CodeServiceUnavailable      ErrorCode = "SERVICE_UNAVAILABLE"
)

// statusByCode is the total ErrorCode -> HTTP status mapping. The set is
// closed: a code absent here must not exist.
var statusByCode = map[ErrorCode]int{
	CodeValidationError:         http.StatusBadRequest,
	CodeBadRequest:              http.StatusBadRequest,
	CodeInvalidAddress:          http.StatusBadRequest,
	CodeChainNotSupported:       http.StatusBadRequest,
	CodeUnauthorized:            http.StatusUnauthorized,
	CodeInvalidSIWEMessage:      http.StatusUnauthorized,
	CodeInvalidSignature:        http.StatusUnauthorized,
	CodeNonceInvalid:            http.StatusUnauthorized,
	CodeForbidden:               http.StatusForbidden,
	CodeNotFound:                http.StatusNotFound,
	CodeTokenNotFound:           http.StatusNotFound,
	CodePoolNotFound:            http.StatusNotFound,
	CodePositionNotFound:        http.StatusNotFound,
	CodeAPIKeyNotFound:          http.StatusNotFound,
	CodeWalletAlreadyRegistered: http.StatusConflict,
	CodeConflict:                http.StatusConflict,
	CodeUnprocessableEntity:     http.StatusUnprocessableEntity,
	CodeTooManyRequests:         http.StatusTooManyRequests,
	CodeInternalServerError:     http.StatusInternalServerError,
	CodeBadGateway:              http.StatusBadGateway,
	CodeServiceUnavailable:      http.StatusServiceUnavailable,
}

// Status returns the HTTP status bound to the code.
func (c ErrorCode) Status() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	// Unknown codes must not occur; treat one as a server bug.
	return http.StatusInternalServerError
}

// classification is one err-kind -> code binding.
type classification struct {
	target  error
	code    ErrorCode
	message string
}

// classifications orders the error-kind bindings; first match wins. The
// service layer communicates failure through these sentinel kinds rather
// than message text, so classification is errors.Is all the way down.
var classifications = []classification{
	{service.ErrChainNotSupported, CodeChainNotSupported, "chain is not supported"},
	{service.ErrNotERC20, CodeBadRequest, "address is not an ERC-20 token contract"},
	{service.ErrTokenNotFound, CodeTokenNotFound, "token not found"},
	{service.ErrPoolNotFound, CodePoolNotFound, "pool not found"},
	{service.ErrPositionNotFound, CodePositionNotFound, "position not found"},
	{service.ErrPositionExists, CodeConflict, "position is already tracked"},
	{service.ErrAPIKeyNotFound, CodeAPIKeyNotFound, "api key not found"},
	{service.ErrWalletAlreadyRegistered, CodeWalletAlreadyRegistered, "wallet address is already registered"},
	{service.ErrEventOutOfOrder, CodeUnprocessableEntity, "ledger events must be in blockchain order"},
	{service.ErrEventAlreadyRecorded, CodeConflict, "ledger event is already recorded"},
	{service.ErrFirstEventNotIncrease, CodeUnprocessableEntity, "a position must open with an INCREASE_LIQUIDITY event"},
	{service.ErrEmptyLedger, CodeUnprocessableEntity, "position has no ledger events"},
	{service.ErrPriceUnavailable, CodeServiceUnavailable, "token prices are currently unavailable"},
	{auth.ErrInvalidSIWEMessage, CodeInvalidSIWEMessage, "SIWE message is invalid"},
	{auth.ErrInvalidSignature, CodeInvalidSignature, "signature verification failed"},
	{auth.ErrNonceInvalid, CodeNonceInvalid, "nonce is invalid or was already used"},
	{auth.ErrInvalidAPIKey, CodeUnauthorized, "invalid credentials"},
	{auth.ErrInvalidToken, CodeUnauthorized, "invalid credentials"},
	{auth.ErrExpiredToken, CodeUnauthorized, "session has expired"},
	{auth.ErrTokenNotYetValid, CodeUnauthorized, "invalid credentials"},
	{auth.ErrWrongTokenType, CodeUnauthorized, "invalid credentials"},
	{domain.ErrUnauthorized, CodeUnauthorized, "invalid credentials"},
	{domain.ErrInvalidAddress, CodeInvalidAddress, "address is malformed"},
	{domain.ErrValidation, CodeValidationError, "request validation failed"},
}

// Classify maps a service-layer error to its ErrorCode and caller-safe
// message. Unmatched errors become INTERNAL_SERVER_ERROR with a generic
// message; the full detail is the caller's to log.
func Classify(err error) (ErrorCode, string, any) {
	var reqErr *shared.RequestError
	if errors.As(err, &reqErr) {
		var details any
		if len(reqErr.Violations) > 0 {
			details = reqErr.Violations
		}
		return CodeValidationError, reqErr.Message, details
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		details := []shared.FieldViolation{{Field: validationErr.Field, Message: validationErr.Message}}
		code := CodeValidationError
		if errors.Is(validationErr, domain.ErrInvalidAddress) {
			code = CodeInvalidAddress
		}
		return code, "request validation failed", details
	}

	for _, c := range classifications {
		if errors.Is(err, c.target) {
			return c.code, c.message, nil
		}
	}

	return CodeInternalServerError, "an internal error occurred", nil
}

// RespondError classifies err and writes the error envelope. Unclassified
// errors log their full detail server-side before the generic message goes
// out.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	code, message, details := Classify(err)

	if code == CodeInternalServerError {
		logger.FromContext(r.Context()).Error("unhandled service error",
			slog.String("error", redact.Error(err)),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method))
	}

	shared.RespondWithJSON(w, r, code.Status(), Error(code, message, details))
}
