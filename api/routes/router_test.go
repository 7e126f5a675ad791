package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/internal/assignment"
	"github.com/cartdash/cartdash-backend/internal/orders"
	"github.com/cartdash/cartdash-backend/internal/partners"
	"github.com/cartdash/cartdash-backend/internal/tracking"
	"github.com/cartdash/cartdash-backend/pkg/config"
	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/logger"
	"github.com/cartdash/cartdash-backend/pkg/pagination"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAssignmentService struct{}

func (stubAssignmentService) Assign(ctx context.Context, input assignment.AssignInput) (*assignment.AssignmentState, error) {
	return &assignment.AssignmentState{OrderID: input.OrderID, OrderStatus: enums.OrderStatusAssigned}, nil
}

func (stubAssignmentService) Accept(ctx context.Context, input assignment.RespondInput) (*assignment.AssignmentState, error) {
	return &assignment.AssignmentState{OrderID: input.OrderID, OrderStatus: enums.OrderStatusAccepted}, nil
}

func (stubAssignmentService) Reject(ctx context.Context, input assignment.RespondInput) (*assignment.AssignmentState, error) {
	return &assignment.AssignmentState{OrderID: input.OrderID, OrderStatus: enums.OrderStatusAssigned}, nil
}

func (stubAssignmentService) Reassign(ctx context.Context, input assignment.ReassignInput) (*assignment.AssignmentState, error) {
	return &assignment.AssignmentState{OrderID: input.OrderID, OrderStatus: enums.OrderStatusAssigned}, nil
}

type stubTrackingService struct{}

func (stubTrackingService) UpdateStatus(ctx context.Context, input tracking.UpdateStatusInput) (*tracking.StatusState, error) {
	return &tracking.StatusState{OrderID: input.OrderID, Status: enums.OrderStatusPickedUp, Applied: true}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) GetOrderDetail(ctx context.Context, orderID uuid.UUID) (*orders.OrderDetail, error) {
	return &orders.OrderDetail{OrderID: orderID}, nil
}

func (stubOrdersService) GetTracking(ctx context.Context, orderID uuid.UUID) ([]orders.TrackingEntry, error) {
	return []orders.TrackingEntry{}, nil
}

func (stubOrdersService) ListUnassigned(ctx context.Context, branchID uuid.UUID, params pagination.Params) (*orders.OrderQueueList, error) {
	return &orders.OrderQueueList{Orders: []orders.OrderQueueEntry{}}, nil
}

func (stubOrdersService) ListPartnerQueue(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*orders.OrderQueueList, error) {
	return &orders.OrderQueueList{Orders: []orders.OrderQueueEntry{}}, nil
}

type stubPartnersRepo struct{}

func (s stubPartnersRepo) WithTx(tx *gorm.DB) partners.Repository {
	return s
}

func (stubPartnersRepo) FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.DeliveryPartner, error) {
	return &models.DeliveryPartner{}, nil
}

func (stubPartnersRepo) UpdateAvailability(ctx context.Context, partnerID uuid.UUID, availability enums.PartnerAvailability) error {
	return nil
}

func (stubPartnersRepo) UpdateLocation(ctx context.Context, partnerID uuid.UUID, location types.GeographyPoint) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // redis disabled in routing tests
		stubPinger{},
		stubAssignmentService{},
		stubTrackingService{},
		stubOrdersService{},
		stubPartnersRepo{},
	)
}

func identityHeaders(req *http.Request, role string) {
	req.Header.Set("X-User-Id", uuid.NewString())
	req.Header.Set("X-Actor-Role", role)
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestAPIGroupRejectsMissingIdentity(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/tracking", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity got %d", resp.Code)
	}
}

func TestTrackingReadableByAnyAuthenticatedActor(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/tracking", nil)
	identityHeaders(req, "customer")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestBranchGroupRequiresBranchHeader(t *testing.T) {
	router := newTestRouter(testConfig())
	orderID := uuid.NewString()

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/branch/orders/"+orderID+"/assign",
		strings.NewReader(`{"partner_id":"`+uuid.NewString()+`"}`))
	identityHeaders(missing, "branch_staff")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without branch header got %d", resp.Code)
	}

	withBranch := httptest.NewRequest(http.MethodPost, "/api/v1/branch/orders/"+orderID+"/assign",
		strings.NewReader(`{"partner_id":"`+uuid.NewString()+`"}`))
	identityHeaders(withBranch, "branch_staff")
	withBranch.Header.Set("X-Branch-Id", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, withBranch)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with branch header got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestReassignRequiresManagerRole(t *testing.T) {
	router := newTestRouter(testConfig())
	branchID := uuid.NewString()
	url := "/api/v1/branch/" + branchID + "/orders/" + uuid.NewString() + "/reassign"
	body := `{"partner_id":"` + uuid.NewString() + `"}`

	staff := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	identityHeaders(staff, "branch_staff")
	staff.Header.Set("X-Branch-Id", branchID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff reassign got %d", resp.Code)
	}

	manager := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	identityHeaders(manager, "branch_manager")
	manager.Header.Set("X-Branch-Id", branchID)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, manager)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager reassign got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPartnerGroupRequiresPartnerHeader(t *testing.T) {
	router := newTestRouter(testConfig())
	orderID := uuid.NewString()

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/"+orderID+"/accept", nil)
	identityHeaders(missing, "partner")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without partner header got %d", resp.Code)
	}

	withPartner := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/"+orderID+"/accept", nil)
	identityHeaders(withPartner, "partner")
	withPartner.Header.Set("X-Partner-Id", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, withPartner)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with partner header got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPartnerStatusRouteWired(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/"+uuid.NewString()+"/status",
		strings.NewReader(`{"status":"picked_up"}`))
	identityHeaders(req, "partner")
	req.Header.Set("X-Partner-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
