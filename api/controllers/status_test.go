package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartdash/cartdash-backend/api/middleware"
	"github.com/cartdash/cartdash-backend/internal/tracking"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
)

type testTrackingService struct {
	updateFn func(ctx context.Context, input tracking.UpdateStatusInput) (*tracking.StatusState, error)
}

func (s *testTrackingService) UpdateStatus(ctx context.Context, input tracking.UpdateStatusInput) (*tracking.StatusState, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, input)
	}
	return nil, nil
}

func newStatusRequest(t *testing.T, orderID, partnerID uuid.UUID, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/"+orderID.String()+"/status", strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithPartnerID(ctx, partnerID.String())
	return withRouteParams(req.WithContext(ctx), map[string]string{"orderId": orderID.String()})
}

func TestUpdateOrderStatusPropagatesInput(t *testing.T) {
	orderID := uuid.New()
	partnerID := uuid.New()

	var got tracking.UpdateStatusInput
	svc := &testTrackingService{
		updateFn: func(ctx context.Context, input tracking.UpdateStatusInput) (*tracking.StatusState, error) {
			got = input
			return &tracking.StatusState{OrderID: orderID, Status: enums.OrderStatusDelivered, Applied: true}, nil
		},
	}

	body := `{"status":"delivered","location":{"lat":12.97,"lng":77.59},"notes":"left with guard","cod_collected_amount":450.50}`
	resp := httptest.NewRecorder()
	UpdateOrderStatus(svc, testLogger())(resp, newStatusRequest(t, orderID, partnerID, body))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.OrderID != orderID || got.PartnerID != partnerID {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.Status != "delivered" {
		t.Fatalf("unexpected status %q", got.Status)
	}
	if got.Notes != "left with guard" {
		t.Fatalf("unexpected notes %q", got.Notes)
	}
	if got.CODCollected == nil || !got.CODCollected.Equal(decimal.RequireFromString("450.50")) {
		t.Fatalf("cod amount not propagated: %v", got.CODCollected)
	}
	if got.Location == nil || got.Location.Lng != 77.59 {
		t.Fatalf("location not propagated: %+v", got.Location)
	}
}

func TestUpdateOrderStatusRequiresBody(t *testing.T) {
	resp := httptest.NewRecorder()
	UpdateOrderStatus(&testTrackingService{}, testLogger())(resp, newStatusRequest(t, uuid.New(), uuid.New(), ``))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateOrderStatusRequiresPartnerContext(t *testing.T) {
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/"+orderID.String()+"/status",
		strings.NewReader(`{"status":"picked_up"}`))
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	req = withRouteParams(req.WithContext(ctx), map[string]string{"orderId": orderID.String()})

	resp := httptest.NewRecorder()
	UpdateOrderStatus(&testTrackingService{}, testLogger())(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestUpdateOrderStatusSurfacesDomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *pkgerrors.Error
		wantCode int
	}{
		{"invalid transition", pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot jump"), http.StatusUnprocessableEntity},
		{"missing cod", pkgerrors.New(pkgerrors.CodeMissingCODAmount, "cod amount required"), http.StatusBadRequest},
		{"order closed", pkgerrors.New(pkgerrors.CodeOrderClosed, "return in progress"), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &testTrackingService{
				updateFn: func(ctx context.Context, input tracking.UpdateStatusInput) (*tracking.StatusState, error) {
					return nil, tt.err
				},
			}
			resp := httptest.NewRecorder()
			UpdateOrderStatus(svc, testLogger())(resp, newStatusRequest(t, uuid.New(), uuid.New(), `{"status":"delivered"}`))

			if resp.Code != tt.wantCode {
				t.Fatalf("expected %d got %d", tt.wantCode, resp.Code)
			}
			if code := decodeErrorCode(t, resp); code != string(tt.err.Code()) {
				t.Fatalf("unexpected code %s", code)
			}
		})
	}
}
