// Package assignment implements the coordinator that hands orders from
// a branch to a delivery partner: offer, accept, reject, reassign.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// Service defines the coordinator operations.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*AssignmentState, error)
	Accept(ctx context.Context, input RespondInput) (*AssignmentState, error)
	Reject(ctx context.Context, input RespondInput) (*AssignmentState, error)
	Reassign(ctx context.Context, input ReassignInput) (*AssignmentState, error)
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

// NewService builds the assignment coordinator with its dependencies.
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

func (s *service) Assign(ctx context.Context, input AssignInput) (*AssignmentState, error) {
	if input.OrderID == uuid.Nil || input.PartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and partner id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "branch context missing")
	}

	var state *AssignmentState
	err := s.withOrderLock(ctx, input.OrderID, func(lockCtx context.Context) error {
		return s.tx.WithTx(lockCtx, func(tx *gorm.DB) error {
			order, err := s.loadOrder(lockCtx, tx, input.OrderID)
			if err != nil {
				return err
			}
			if order.BranchID != input.BranchID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to branch")
			}
			if order.HasActiveAssignment() {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "order already has an active assignment")
			}
			if order.Status.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "order is in a terminal state")
			}

			partner, err := s.loadEligiblePartner(lockCtx, tx, input.PartnerID, order.BranchID)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			state, err = s.offer(lockCtx, tx, order, partner, input.Location, now)
			if err != nil {
				return err
			}
			return s.outbox.Emit(lockCtx, tx, outbox.DomainEvent{
				EventType:     enums.EventPartnerOffered,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(input.ActorUserID, &input.BranchID, nil, input.ActorRole),
				Data: payloads.PartnerOfferedEvent{
					OrderID:   order.ID,
					BranchID:  order.BranchID,
					PartnerID: partner.ID,
					OfferedAt: now,
				},
			})
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOffer("offered")
	return state, nil
}

func (s *service) Accept(ctx context.Context, input RespondInput) (*AssignmentState, error) {
	if input.OrderID == uuid.Nil || input.PartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and partner id required")
	}

	var state *AssignmentState
	err := s.withOrderLock(ctx, input.OrderID, func(lockCtx context.Context) error {
		return s.tx.WithTx(lockCtx, func(tx *gorm.DB) error {
			order, err := s.loadOrder(lockCtx, tx, input.OrderID)
			if err != nil {
				return err
			}
			if err := checkResponder(order, input.PartnerID); err != nil {
				return err
			}

			now := time.Now().UTC()
			ordersRepo := s.orders.WithTx(tx)
			if err := ordersRepo.UpdateOrder(lockCtx, order.ID, map[string]any{
				"assignment_status": enums.AssignmentStatusAccepted,
				"responded_at":      now,
				"status":            enums.OrderStatusAccepted,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignment")
			}
			if err := ordersRepo.AppendTrackingEvent(lockCtx, &models.TrackingEvent{
				OrderID:    order.ID,
				Flow:       enums.TrackingFlowDelivery,
				Status:     string(enums.AssignmentStatusAccepted),
				RecordedAt: now,
				Location:   input.Location,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
			}
			// An accepted partner is busy until the order reaches a
			// terminal state.
			if err := s.partners.WithTx(tx).UpdateAvailability(lockCtx, input.PartnerID, enums.PartnerUnavailable); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update partner availability")
			}

			accepted := enums.AssignmentStatusAccepted
			state = &AssignmentState{
				OrderID:          order.ID,
				OrderStatus:      enums.OrderStatusAccepted,
				PartnerID:        order.AssignedPartnerID,
				AssignmentStatus: &accepted,
				AssignedAt:       order.AssignedAt,
				RespondedAt:      &now,
			}
			return s.outbox.Emit(lockCtx, tx, outbox.DomainEvent{
				EventType:     enums.EventOfferAccepted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(input.ActorUserID, nil, &input.PartnerID, "partner"),
				Data: payloads.OfferAcceptedEvent{
					OrderID:    order.ID,
					BranchID:   order.BranchID,
					PartnerID:  input.PartnerID,
					AcceptedAt: now,
				},
			})
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOffer("accepted")
	return state, nil
}

func (s *service) Reject(ctx context.Context, input RespondInput) (*AssignmentState, error) {
	if input.OrderID == uuid.Nil || input.PartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and partner id required")
	}

	var state *AssignmentState
	err := s.withOrderLock(ctx, input.OrderID, func(lockCtx context.Context) error {
		return s.tx.WithTx(lockCtx, func(tx *gorm.DB) error {
			order, err := s.loadOrder(lockCtx, tx, input.OrderID)
			if err != nil {
				return err
			}
			if err := checkResponder(order, input.PartnerID); err != nil {
				return err
			}

			now := time.Now().UTC()
			rejectedIDs := append(order.RejectedPartnerIDs, input.PartnerID)
			updates := map[string]any{
				"assignment_status":        enums.AssignmentStatusRejected,
				"responded_at":             now,
				"assigned_partner_id":      nil,
				"last_rejected_partner_id": input.PartnerID,
				"rejected_partner_ids":     rejectedIDs,
			}
			if input.Reason != "" {
				updates["rejection_reason"] = input.Reason
			}
			if err := s.orders.WithTx(tx).UpdateOrder(lockCtx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignment")
			}

			rejected := enums.AssignmentStatusRejected
			state = &AssignmentState{
				OrderID:          order.ID,
				OrderStatus:      order.Status,
				AssignmentStatus: &rejected,
				AssignedAt:       order.AssignedAt,
				RespondedAt:      &now,
			}
			if input.Reason != "" {
				reason := input.Reason
				state.RejectionReason = &reason
			}
			return s.outbox.Emit(lockCtx, tx, outbox.DomainEvent{
				EventType:     enums.EventOfferRejected,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(input.ActorUserID, nil, &input.PartnerID, "partner"),
				Data: payloads.OfferRejectedEvent{
					OrderID:    order.ID,
					BranchID:   order.BranchID,
					PartnerID:  input.PartnerID,
					Reason:     input.Reason,
					RejectedAt: now,
				},
			})
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOffer("rejected")
	return state, nil
}

func (s *service) Reassign(ctx context.Context, input ReassignInput) (*AssignmentState, error) {
	if input.OrderID == uuid.Nil || input.NewPartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and partner id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "branch context missing")
	}

	var state *AssignmentState
	err := s.withOrderLock(ctx, input.OrderID, func(lockCtx context.Context) error {
		return s.tx.WithTx(lockCtx, func(tx *gorm.DB) error {
			order, err := s.loadOrder(lockCtx, tx, input.OrderID)
			if err != nil {
				return err
			}
			if order.BranchID != input.BranchID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to branch")
			}
			if order.HasActiveAssignment() && !input.Override {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "order already has an active assignment")
			}
			// Don't bounce the order straight back to the partner who
			// just declined it.
			if !input.Override && order.LastRejectedPartnerID != nil && *order.LastRejectedPartnerID == input.NewPartnerID {
				return pkgerrors.New(pkgerrors.CodePartnerUnavailable, "partner rejected the previous offer")
			}

			partner, err := s.loadEligiblePartner(lockCtx, tx, input.NewPartnerID, order.BranchID)
			if err != nil {
				return err
			}

			previousPartnerID := order.AssignedPartnerID
			now := time.Now().UTC()
			state, err = s.offer(lockCtx, tx, order, partner, input.Location, now)
			if err != nil {
				return err
			}
			return s.outbox.Emit(lockCtx, tx, outbox.DomainEvent{
				EventType:     enums.EventPartnerReassigned,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(input.ActorUserID, &input.BranchID, nil, input.ActorRole),
				Data: payloads.PartnerReassignedEvent{
					OrderID:           order.ID,
					BranchID:          order.BranchID,
					PreviousPartnerID: previousPartnerID,
					NewPartnerID:      partner.ID,
					Override:          input.Override,
					ReassignedAt:      now,
				},
			})
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOffer("reassigned")
	return state, nil
}

// offer writes the shared effect of Assign and Reassign: bind the
// partner as offered and append the tracking entry.
func (s *service) offer(ctx context.Context, tx *gorm.DB, order *models.Order, partner *models.DeliveryPartner, location *types.GeographyPoint, now time.Time) (*AssignmentState, error) {
	ordersRepo := s.orders.WithTx(tx)
	updates := map[string]any{
		"assigned_partner_id": partner.ID,
		"assignment_status":   enums.AssignmentStatusOffered,
		"assigned_at":         now,
		"responded_at":        nil,
		"rejection_reason":    nil,
	}
	orderStatus := order.Status
	if order.Status == enums.OrderStatusPending {
		updates["status"] = enums.OrderStatusAssigned
		orderStatus = enums.OrderStatusAssigned
	}
	if err := ordersRepo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignment")
	}
	if err := ordersRepo.AppendTrackingEvent(ctx, &models.TrackingEvent{
		OrderID:    order.ID,
		Flow:       enums.TrackingFlowDelivery,
		Status:     string(enums.AssignmentStatusOffered),
		RecordedAt: now,
		Location:   location,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
	}

	offered := enums.AssignmentStatusOffered
	partnerID := partner.ID
	return &AssignmentState{
		OrderID:          order.ID,
		OrderStatus:      orderStatus,
		PartnerID:        &partnerID,
		AssignmentStatus: &offered,
		AssignedAt:       &now,
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

func (s *service) loadEligiblePartner(ctx context.Context, tx *gorm.DB, partnerID, branchID uuid.UUID) (*models.DeliveryPartner, error) {
	partner, err := s.partners.WithTx(tx).FindPartner(ctx, partnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	if !partner.IsEligible(branchID) {
		return nil, pkgerrors.New(pkgerrors.CodePartnerUnavailable, "partner is not eligible for this branch")
	}
	return partner, nil
}

// checkResponder enforces the offered-assignment preconditions shared
// by Accept and Reject. First writer wins: a rejection clears
// assigned_partner_id, so the loser of an accept/reject race is
// recognized through last_rejected_partner_id as well.
func checkResponder(order *models.Order, partnerID uuid.UUID) error {
	if order.AssignmentStatus != nil && *order.AssignmentStatus != enums.AssignmentStatusOffered {
		if idMatches(order.AssignedPartnerID, partnerID) || hasRejected(order, partnerID) {
			return pkgerrors.New(pkgerrors.CodeAlreadyResponded, "assignment was already responded to")
		}
	}
	if order.AssignmentStatus == nil || order.AssignedPartnerID == nil {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "order has no assignment to respond to")
	}
	if *order.AssignedPartnerID != partnerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "assignment belongs to another partner")
	}
	return nil
}

func idMatches(id *uuid.UUID, candidate uuid.UUID) bool {
	return id != nil && *id == candidate
}

// hasRejected reports whether the partner appears anywhere in the
// order's rejection history.
func hasRejected(order *models.Order, partnerID uuid.UUID) bool {
	if idMatches(order.LastRejectedPartnerID, partnerID) {
		return true
	}
	for _, id := range order.RejectedPartnerIDs {
		if id == partnerID {
			return true
		}
	}
	return false
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

func actorRef(userID uuid.UUID, branchID, partnerID *uuid.UUID, role string) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:    userID,
		BranchID:  branchID,
		PartnerID: partnerID,
		Role:      role,
	}
}
