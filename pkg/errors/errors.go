// Package errors defines the coded error type the API speaks. Every
// code maps to fixed HTTP metadata so controllers never pick status
// codes ad hoc.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeAlreadyResponded   Code = "ALREADY_RESPONDED"
	CodePartnerUnavailable Code = "PARTNER_UNAVAILABLE"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeMissingCODAmount   Code = "MISSING_COD_AMOUNT"
	CodeOrderClosed        Code = "ORDER_CLOSED"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
	CodeDependencyTimeout  Code = "DEPENDENCY_TIMEOUT"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:         {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:       {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:          {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeNotFound:           {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeInvalidState:       {HTTPStatus: http.StatusConflict, PublicMessage: "operation not allowed in current state", DetailsAllowed: true},
	CodeAlreadyResponded:   {HTTPStatus: http.StatusConflict, PublicMessage: "assignment already responded to", DetailsAllowed: true},
	CodePartnerUnavailable: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "delivery partner not eligible", DetailsAllowed: true},
	CodeInvalidTransition:  {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "status transition disallowed", DetailsAllowed: true},
	CodeMissingCODAmount:   {HTTPStatus: http.StatusBadRequest, PublicMessage: "cod collected amount required", DetailsAllowed: true},
	CodeOrderClosed:        {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "order delivery flow is closed", DetailsAllowed: true},
	CodeIdempotency:        {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodeRateLimit:          {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
	CodeInternal:           {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:         {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
	CodeDependencyTimeout:  {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency timed out", DetailsAllowed: true},
}

// MetadataFor returns the response metadata for a code. Unknown codes
// degrade to the internal-error metadata.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error. All methods tolerate a nil receiver so call
// sites can chain without guarding.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts the typed error from anywhere in err's chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
