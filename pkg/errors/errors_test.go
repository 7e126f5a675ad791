package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeInvalidState, status: http.StatusConflict, publicMsg: "operation not allowed in current state", detailsOK: true},
		{code: CodeAlreadyResponded, status: http.StatusConflict, publicMsg: "assignment already responded to", detailsOK: true},
		{code: CodePartnerUnavailable, status: http.StatusUnprocessableEntity, publicMsg: "delivery partner not eligible", detailsOK: true},
		{code: CodeInvalidTransition, status: http.StatusUnprocessableEntity, publicMsg: "status transition disallowed", detailsOK: true},
		{code: CodeMissingCODAmount, status: http.StatusBadRequest, publicMsg: "cod collected amount required", detailsOK: true},
		{code: CodeOrderClosed, status: http.StatusUnprocessableEntity, publicMsg: "order delivery flow is closed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeDependencyTimeout, status: http.StatusServiceUnavailable, publicMsg: "dependency timed out", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			if meta.HTTPStatus != tt.status {
				t.Errorf("status = %d, want %d", meta.HTTPStatus, tt.status)
			}
			if meta.PublicMessage != tt.publicMsg {
				t.Errorf("public message = %q, want %q", meta.PublicMessage, tt.publicMsg)
			}
			if meta.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", meta.Retryable, tt.retryable)
			}
			if meta.DetailsAllowed != tt.detailsOK {
				t.Errorf("details allowed = %v, want %v", meta.DetailsAllowed, tt.detailsOK)
			}
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code status = %d, want 500", meta.HTTPStatus)
	}
}

func TestNewCarriesCodeMessageAndDetails(t *testing.T) {
	err := New(CodeValidation, "missing foo")
	if err.Code() != CodeValidation {
		t.Fatalf("code = %s, want %s", err.Code(), CodeValidation)
	}
	if err.Message() != "missing foo" {
		t.Fatalf("message = %q, want %q", err.Message(), "missing foo")
	}
	if err.Details() != nil {
		t.Fatal("fresh error should carry no details")
	}

	err.WithDetails(map[string]any{"field": "foo"})
	if err.Details() == nil {
		t.Fatal("WithDetails should attach the payload")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeAlreadyResponded, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("wrapped error lost its cause")
	}
	if wrapped.Code() != CodeAlreadyResponded {
		t.Fatalf("code = %s, want %s", wrapped.Code(), CodeAlreadyResponded)
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatal("As should surface the typed error")
	}
	if As(nil) != nil {
		t.Fatal("As(nil) should return nil")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("As on an untyped error should return nil")
	}
}
