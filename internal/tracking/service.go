package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/internal/orders"
	"github.com/cartdash/cartdash-backend/internal/partners"
	"github.com/cartdash/cartdash-backend/pkg/config"
	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/locks"
	"github.com/cartdash/cartdash-backend/pkg/metrics"
	"github.com/cartdash/cartdash-backend/pkg/outbox"
	"github.com/cartdash/cartdash-backend/pkg/outbox/payloads"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderLocker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (func(), error)
}

// UpdateStatusInput carries a partner's status transition request. Status
// may name either a delivery or a return status; the engine resolves the
// flow from the order.
type UpdateStatusInput struct {
	OrderID      uuid.UUID
	PartnerID    uuid.UUID
	Status       string
	Location     *types.GeographyPoint
	Notes        string
	CODCollected *decimal.Decimal
	ActorUserID  uuid.UUID
}

// StatusState is the post-transition view returned to callers.
type StatusState struct {
	OrderID      uuid.UUID           `json:"order_id"`
	Status       enums.OrderStatus   `json:"status"`
	ReturnStatus *enums.ReturnStatus `json:"return_status,omitempty"`
	CODCollected *decimal.Decimal    `json:"cod_collected,omitempty"`
	Applied      bool                `json:"applied"`
}

// Service defines the transition engine operations.
type Service interface {
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusState, error)
}

type service struct {
	orders   orders.Repository
	partners partners.Repository
	tx       txRunner
	outbox   outboxPublisher
	locker   orderLocker
	metrics  *metrics.DispatchMetrics
	cfg      config.DispatchConfig
}

// NewService builds the transition engine with its dependencies.
func NewService(ordersRepo orders.Repository, partnersRepo partners.Repository, tx txRunner, publisher outboxPublisher, locker orderLocker, dispatchMetrics *metrics.DispatchMetrics, cfg config.DispatchConfig) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if partnersRepo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if locker == nil {
		locker = locks.NewKeyedLocker()
	}
	return &service{
		orders:   ordersRepo,
		partners: partnersRepo,
		tx:       tx,
		outbox:   publisher,
		locker:   locker,
		metrics:  dispatchMetrics,
		cfg:      cfg,
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusState, error) {
	if input.OrderID == uuid.Nil || input.PartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and partner id required")
	}
	if input.Status == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status required")
	}

	returnStatus, returnErr := enums.ParseReturnStatus(input.Status)
	deliveryStatus, deliveryErr := enums.ParseOrderStatus(input.Status)
	if returnErr != nil && deliveryErr != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.Status))
	}

	var state *StatusState
	err := s.withOrderLock(ctx, input.OrderID, func(lockCtx context.Context) error {
		return s.tx.WithTx(lockCtx, func(tx *gorm.DB) error {
			order, err := s.loadOrder(lockCtx, tx, input.OrderID)
			if err != nil {
				return err
			}
			if order.AssignedPartnerID == nil || *order.AssignedPartnerID != input.PartnerID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this partner")
			}

			if returnErr == nil {
				state, err = s.applyReturnTransition(lockCtx, tx, order, returnStatus, input)
			} else {
				state, err = s.applyDeliveryTransition(lockCtx, tx, order, deliveryStatus, input)
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *service) applyDeliveryTransition(ctx context.Context, tx *gorm.DB, order *models.Order, requested enums.OrderStatus, input UpdateStatusInput) (*StatusState, error) {
	// Re-submitting the already-applied transition is a success no-op so
	// client retries stay safe. Checked before everything else.
	if order.Status == requested {
		return currentState(order), nil
	}
	// Once a return is requested the delivery status is informational
	// only; no further delivery transitions are permitted.
	if order.IsReturnRequested {
		return nil, pkgerrors.New(pkgerrors.CodeOrderClosed, "order is closed for delivery updates")
	}
	if !CanTransitionDelivery(order.Status, requested) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move from %s to %s", order.Status, requested))
	}

	updates := map[string]any{"status": requested}
	codCollected := order.CODCollected
	if requested == enums.OrderStatusDelivered && order.PaymentMethod == enums.PaymentMethodCOD {
		if input.CODCollected == nil || input.CODCollected.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeMissingCODAmount, "cod collected amount required at delivery")
		}
		updates["cod_collected"] = *input.CODCollected
		codCollected = input.CODCollected
	}

	now := time.Now().UTC()
	ordersRepo := s.orders.WithTx(tx)
	if err := ordersRepo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if err := ordersRepo.AppendTrackingEvent(ctx, &models.TrackingEvent{
		OrderID:    order.ID,
		Flow:       enums.TrackingFlowDelivery,
		Status:     string(requested),
		RecordedAt: now,
		Location:   input.Location,
		Notes:      notesPtr(input.Notes),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
	}
	if requested.IsTerminal() {
		if err := s.partners.WithTx(tx).UpdateAvailability(ctx, input.PartnerID, enums.PartnerAvailable); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release partner availability")
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(input.ActorUserID, input.PartnerID),
		Data: payloads.StatusChangedEvent{
			OrderID:      order.ID,
			PartnerID:    input.PartnerID,
			FromStatus:   order.Status,
			ToStatus:     requested,
			CODCollected: codCollected,
			Flow:         enums.TrackingFlowDelivery,
			ChangedAt:    now,
		},
	}); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(enums.TrackingFlowDelivery), string(requested))
	return &StatusState{
		OrderID:      order.ID,
		Status:       requested,
		ReturnStatus: order.ReturnStatus,
		CODCollected: codCollected,
		Applied:      true,
	}, nil
}

func (s *service) applyReturnTransition(ctx context.Context, tx *gorm.DB, order *models.Order, requested enums.ReturnStatus, input UpdateStatusInput) (*StatusState, error) {
	if !order.IsReturnRequested {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "no return requested for this order")
	}
	if order.ReturnStatus != nil && *order.ReturnStatus == requested {
		return currentState(order), nil
	}
	if !CanTransitionReturn(order.ReturnStatus, requested) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move return flow to %s", requested))
	}

	now := time.Now().UTC()
	ordersRepo := s.orders.WithTx(tx)
	if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
		"return_status": requested,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return status")
	}
	if err := ordersRepo.AppendTrackingEvent(ctx, &models.TrackingEvent{
		OrderID:    order.ID,
		Flow:       enums.TrackingFlowReturn,
		Status:     string(requested),
		RecordedAt: now,
		Location:   input.Location,
		Notes:      notesPtr(input.Notes),
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
	}
	if requested.IsTerminal() {
		if err := s.partners.WithTx(tx).UpdateAvailability(ctx, input.PartnerID, enums.PartnerAvailable); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release partner availability")
		}
	}

	var fromStatus enums.ReturnStatus
	if order.ReturnStatus != nil {
		fromStatus = *order.ReturnStatus
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReturnChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(input.ActorUserID, input.PartnerID),
		Data: payloads.ReturnStatusChangedEvent{
			OrderID:    order.ID,
			PartnerID:  input.PartnerID,
			FromStatus: fromStatus,
			ToStatus:   requested,
			Flow:       enums.TrackingFlowReturn,
			ChangedAt:  now,
		},
	}); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(enums.TrackingFlowReturn), string(requested))
	applied := requested
	return &StatusState{
		OrderID:      order.ID,
		Status:       order.Status,
		ReturnStatus: &applied,
		CODCollected: order.CODCollected,
		Applied:      true,
	}, nil
}

func (s *service) loadOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.WithTx(tx).FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) withOrderLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error {
	start := time.Now()
	release, err := s.locker.Acquire(ctx, orderID.String(), s.cfg.LockWait)
	s.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, locks.ErrWaitTimeout) {
			s.metrics.IncLockTimeout()
			return pkgerrors.Wrap(pkgerrors.CodeDependencyTimeout, err, "order is locked by another operation")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire order lock")
	}
	defer release()

	opCtx := ctx
	if s.cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()
	}
	if err := fn(opCtx); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodeDependencyTimeout, err, "order store timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order operation failed")
	}
	return nil
}

func currentState(order *models.Order) *StatusState {
	return &StatusState{
		OrderID:      order.ID,
		Status:       order.Status,
		ReturnStatus: order.ReturnStatus,
		CODCollected: order.CODCollected,
	}
}

func notesPtr(notes string) *string {
	if notes == "" {
		return nil
	}
	return &notes
}

func actorRef(userID, partnerID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    userID,
		PartnerID: &partnerID,
		Role:      "partner",
	}
}
