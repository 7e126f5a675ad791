package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

func decodeErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body
}

func TestWriteSuccessWrapsDataEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("payload = %v, want hello=world", body.Data)
	}
}

func TestWriteErrorExposesClientFaults(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move from in_transit to delivered").
		WithDetails(map[string]string{"from": "in_transit", "to": "delivered"})
	WriteError(context.Background(), nil, w, err)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	body := decodeErrorEnvelope(t, w)
	if body.Error.Code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("code = %s, want %s", body.Error.Code, pkgerrors.CodeInvalidTransition)
	}
	if body.Error.Message != "cannot move from in_transit to delivered" {
		t.Fatalf("client-fault message should pass through, got %q", body.Error.Message)
	}
	if body.Error.Details == nil {
		t.Fatal("details should appear for codes that allow them")
	}
}

func TestWriteErrorHidesServerFaults(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom: secret dsn inside"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := decodeErrorEnvelope(t, w)
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("code = %s, want %s", body.Error.Code, pkgerrors.CodeInternal)
	}
	if body.Error.Message != "internal server error" {
		t.Fatalf("server-fault message should be generic, got %q", body.Error.Message)
	}
	if body.Error.Details != nil {
		t.Fatal("details must be omitted for internal errors")
	}
}
