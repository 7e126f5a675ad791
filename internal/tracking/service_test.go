package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/internal/orders"
	"github.com/cartdash/cartdash-backend/internal/partners"
	"github.com/cartdash/cartdash-backend/pkg/config"
	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/outbox"
	"github.com/cartdash/cartdash-backend/pkg/pagination"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

type memOrders struct {
	mu       sync.Mutex
	order    *models.Order
	tracking []models.TrackingEvent
}

func (m *memOrders) WithTx(tx *gorm.DB) orders.Repository { return m }

func (m *memOrders) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.order == nil || m.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *m.order
	return &copied, nil
}

func (m *memOrders) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.order == nil || m.order.ID != orderID {
		return gorm.ErrRecordNotFound
	}
	for column, value := range updates {
		switch column {
		case "status":
			m.order.Status = value.(enums.OrderStatus)
		case "return_status":
			status := value.(enums.ReturnStatus)
			m.order.ReturnStatus = &status
		case "cod_collected":
			amount := value.(decimal.Decimal)
			m.order.CODCollected = &amount
		}
	}
	return nil
}

func (m *memOrders) AppendTrackingEvent(ctx context.Context, event *models.TrackingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracking = append(m.tracking, *event)
	return nil
}

func (m *memOrders) ListTrackingEvents(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TrackingEvent{}, m.tracking...), nil
}

func (m *memOrders) ListUnassignedOrders(ctx context.Context, branchID uuid.UUID, params pagination.Params) (*orders.OrderQueueList, error) {
	return &orders.OrderQueueList{}, nil
}

func (m *memOrders) ListPartnerOrders(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*orders.OrderQueueList, error) {
	return &orders.OrderQueueList{}, nil
}

func (m *memOrders) FindStaleOffers(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

type memPartners struct {
	mu       sync.Mutex
	partners map[uuid.UUID]*models.DeliveryPartner
}

func (m *memPartners) WithTx(tx *gorm.DB) partners.Repository { return m }

func (m *memPartners) FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.DeliveryPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	partner, ok := m.partners[partnerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *partner
	return &copied, nil
}

func (m *memPartners) UpdateAvailability(ctx context.Context, partnerID uuid.UUID, availability enums.PartnerAvailability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if partner, ok := m.partners[partnerID]; ok {
		partner.Availability = availability
	}
	return nil
}

func (m *memPartners) UpdateLocation(ctx context.Context, partnerID uuid.UUID, location types.GeographyPoint) error {
	return nil
}

type fixture struct {
	svc       Service
	orders    *memOrders
	partners  *memPartners
	outbox    *stubOutbox
	orderID   uuid.UUID
	partnerID uuid.UUID
	userID    uuid.UUID
}

func newFixture(t *testing.T, mutate func(*models.Order)) *fixture {
	t.Helper()
	orderID := uuid.New()
	partnerID := uuid.New()
	accepted := enums.AssignmentStatusAccepted
	order := &models.Order{
		ID:                orderID,
		BranchID:          uuid.New(),
		OrderNumber:       7002,
		Status:            enums.OrderStatusAccepted,
		PaymentMethod:     enums.PaymentMethodOnline,
		Total:             decimal.NewFromInt(450),
		AssignedPartnerID: &partnerID,
		AssignmentStatus:  &accepted,
	}
	if mutate != nil {
		mutate(order)
	}
	ordersRepo := &memOrders{order: order}
	partnersRepo := &memPartners{partners: map[uuid.UUID]*models.DeliveryPartner{
		partnerID: {
			ID:           partnerID,
			BranchID:     order.BranchID,
			Name:         "Partner",
			Approved:     true,
			Availability: enums.PartnerUnavailable,
		},
	}}
	publisher := &stubOutbox{}
	svc, err := NewService(ordersRepo, partnersRepo, stubTx{}, publisher, nil, nil, config.DispatchConfig{
		LockWait:     200 * time.Millisecond,
		StoreTimeout: time.Second,
	})
	require.NoError(t, err)
	return &fixture{
		svc:       svc,
		orders:    ordersRepo,
		partners:  partnersRepo,
		outbox:    publisher,
		orderID:   orderID,
		partnerID: partnerID,
		userID:    uuid.New(),
	}
}

func (f *fixture) update(t *testing.T, status string, mutate func(*UpdateStatusInput)) (*StatusState, error) {
	t.Helper()
	input := UpdateStatusInput{
		OrderID:     f.orderID,
		PartnerID:   f.partnerID,
		Status:      status,
		ActorUserID: f.userID,
	}
	if mutate != nil {
		mutate(&input)
	}
	return f.svc.UpdateStatus(context.Background(), input)
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestDeliveryTransitionTable(t *testing.T) {
	assert.True(t, CanTransitionDelivery(enums.OrderStatusAccepted, enums.OrderStatusPickedUp))
	assert.True(t, CanTransitionDelivery(enums.OrderStatusInTransit, enums.OrderStatusOutForDelivery))
	assert.True(t, CanTransitionDelivery(enums.OrderStatusInTransit, enums.OrderStatusFailedDelivery))
	assert.False(t, CanTransitionDelivery(enums.OrderStatusInTransit, enums.OrderStatusDelivered))
	assert.False(t, CanTransitionDelivery(enums.OrderStatusDelivered, enums.OrderStatusFailedDelivery))
	assert.False(t, CanTransitionDelivery(enums.OrderStatusAccepted, enums.OrderStatusAccepted))
}

func TestReturnTransitionTable(t *testing.T) {
	pending := enums.ReturnStatusPendingPickup
	inTransit := enums.ReturnStatusInTransit
	completed := enums.ReturnStatusCompleted

	assert.True(t, CanTransitionReturn(nil, enums.ReturnStatusPendingPickup))
	assert.True(t, CanTransitionReturn(&pending, enums.ReturnStatusPickedUpForReturn))
	assert.True(t, CanTransitionReturn(&pending, enums.ReturnStatusFailed))
	assert.True(t, CanTransitionReturn(&inTransit, enums.ReturnStatusCompleted))
	assert.False(t, CanTransitionReturn(nil, enums.ReturnStatusCompleted))
	assert.False(t, CanTransitionReturn(&completed, enums.ReturnStatusFailed))
}

func TestUpdateStatusWalksDeliveryFlow(t *testing.T) {
	f := newFixture(t, nil)

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
	} {
		state, err := f.update(t, string(status), func(in *UpdateStatusInput) {
			in.Location = &types.GeographyPoint{Lat: 13.0, Lng: 80.2}
		})
		require.NoError(t, err, "transition to %s", status)
		assert.Equal(t, status, state.Status)
		assert.True(t, state.Applied)
	}

	require.Len(t, f.orders.tracking, 4)
	assert.Equal(t, enums.TrackingFlowDelivery, f.orders.tracking[0].Flow)
	assert.Equal(t, string(enums.OrderStatusDelivered), f.orders.tracking[3].Status)
}

func TestUpdateStatusRejectsIllegalJump(t *testing.T) {
	f := newFixture(t, func(o *models.Order) {
		o.Status = enums.OrderStatusInTransit
	})

	_, err := f.update(t, string(enums.OrderStatusDelivered), nil)
	assertCode(t, err, pkgerrors.CodeInvalidTransition)
	assert.Empty(t, f.orders.tracking)
}

func TestUpdateStatusIdempotentResubmission(t *testing.T) {
	f := newFixture(t, nil)

	state, err := f.update(t, string(enums.OrderStatusPickedUp), nil)
	require.NoError(t, err)
	assert.True(t, state.Applied)

	state, err = f.update(t, string(enums.OrderStatusPickedUp), nil)
	require.NoError(t, err)
	assert.False(t, state.Applied)
	assert.Equal(t, enums.OrderStatusPickedUp, state.Status)

	require.Len(t, f.orders.tracking, 1, "no duplicate tracking entry on retry")
	require.Len(t, f.outbox.events, 1, "no duplicate event on retry")
}

func TestDeliveredOnCODOrderRequiresAmount(t *testing.T) {
	f := newFixture(t, func(o *models.Order) {
		o.Status = enums.OrderStatusOutForDelivery
		o.PaymentMethod = enums.PaymentMethodCOD
	})

	_, err := f.update(t, string(enums.OrderStatusDelivered), nil)
	assertCode(t, err, pkgerrors.CodeMissingCODAmount)

	negative := decimal.NewFromInt(-1)
	_, err = f.update(t, string(enums.OrderStatusDelivered), func(in *UpdateStatusInput) {
		in.CODCollected = &negative
	})
	assertCode(t, err, pkgerrors.CodeMissingCODAmount)

	amount := decimal.NewFromFloat(450.00)
	state, err := f.update(t, string(enums.OrderStatusDelivered), func(in *UpdateStatusInput) {
		in.CODCollected = &amount
	})
	require.NoError(t, err)
	require.NotNil(t, state.CODCollected)
	assert.True(t, state.CODCollected.Equal(amount))
	require.NotNil(t, f.orders.order.CODCollected)
	assert.True(t, f.orders.order.CODCollected.Equal(amount))
}

func TestTerminalStatusReleasesPartner(t *testing.T) {
	f := newFixture(t, func(o *models.Order) {
		o.Status = enums.OrderStatusOutForDelivery
	})

	_, err := f.update(t, string(enums.OrderStatusFailedDelivery), nil)
	require.NoError(t, err)

	partner, err := f.partners.FindPartner(context.Background(), f.partnerID)
	require.NoError(t, err)
	assert.Equal(t, enums.PartnerAvailable, partner.Availability)
}

func TestReturnFlowRunsIndependentlyOfDeliveredStatus(t *testing.T) {
	f := newFixture(t, func(o *models.Order) {
		o.Status = enums.OrderStatusDelivered
		o.IsReturnRequested = true
	})

	for _, status := range []enums.ReturnStatus{
		enums.ReturnStatusPendingPickup,
		enums.ReturnStatusPickedUpForReturn,
		enums.ReturnStatusInTransit,
		enums.ReturnStatusCompleted,
	} {
		state, err := f.update(t, string(status), nil)
		require.NoError(t, err, "transition to %s", status)
		require.NotNil(t, state.ReturnStatus)
		assert.Equal(t, status, *state.ReturnStatus)
		assert.Equal(t, enums.OrderStatusDelivered, state.Status, "delivery status must not move")
	}

	require.Len(t, f.orders.tracking, 4)
	for _, entry := range f.orders.tracking {
		assert.Equal(t, enums.TrackingFlowReturn, entry.Flow)
	}
}

func TestDeliveryUpdateFailsOnceReturnRequested(t *testing.T) {
	f := newFixture(t, func(o *models.Order) {
		o.Status = enums.OrderStatusDelivered
		o.IsReturnRequested = true
		completed := enums.ReturnStatusCompleted
		o.ReturnStatus = &completed
	})

	_, err := f.update(t, string(enums.OrderStatusFailedDelivery), nil)
	assertCode(t, err, pkgerrors.CodeOrderClosed)
}

func TestReturnStatusRequiresReturnRequested(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.update(t, string(enums.ReturnStatusPendingPickup), nil)
	assertCode(t, err, pkgerrors.CodeInvalidState)
}

func TestUpdateStatusRequiresAssignedPartner(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     f.orderID,
		PartnerID:   uuid.New(),
		Status:      string(enums.OrderStatusPickedUp),
		ActorUserID: f.userID,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.update(t, "teleported", nil)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestLockContentionSurfacesTimeout(t *testing.T) {
	f := newFixture(t, nil)

	svc := f.svc.(*service)
	release, err := svc.locker.Acquire(context.Background(), f.orderID.String(), time.Second)
	require.NoError(t, err)
	defer release()

	_, err = f.update(t, string(enums.OrderStatusPickedUp), nil)
	assertCode(t, err, pkgerrors.CodeDependencyTimeout)
}
