package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/pagination"
)

// Service exposes the read side of the delivery core: work queues and
// tracking history.
type Service interface {
	GetOrderDetail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	GetTracking(ctx context.Context, orderID uuid.UUID) ([]TrackingEntry, error)
	ListUnassigned(ctx context.Context, branchID uuid.UUID, params pagination.Params) (*OrderQueueList, error)
	ListPartnerQueue(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*OrderQueueList, error)
}

type service struct {
	repo Repository
}

// NewService builds the order read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrderDetail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	tracking, err := s.GetTracking(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		BranchID:          order.BranchID,
		Status:            order.Status,
		IsReturnRequested: order.IsReturnRequested,
		ReturnStatus:      order.ReturnStatus,
		PaymentMethod:     order.PaymentMethod,
		Total:             order.Total,
		CODCollected:      order.CODCollected,
		AssignedPartnerID: order.AssignedPartnerID,
		AssignmentStatus:  order.AssignmentStatus,
		Tracking:          tracking,
	}, nil
}

func (s *service) GetTracking(ctx context.Context, orderID uuid.UUID) ([]TrackingEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	events, err := s.repo.ListTrackingEvents(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking events")
	}
	entries := make([]TrackingEntry, 0, len(events))
	for _, event := range events {
		entry := TrackingEntry{
			Flow:       event.Flow,
			Status:     event.Status,
			RecordedAt: event.RecordedAt,
			Notes:      event.Notes,
		}
		if event.Location != nil {
			lat, lng := event.Location.Lat, event.Location.Lng
			entry.Latitude = &lat
			entry.Longitude = &lng
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *service) ListUnassigned(ctx context.Context, branchID uuid.UUID, params pagination.Params) (*OrderQueueList, error) {
	if branchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	list, err := s.repo.ListUnassignedOrders(ctx, branchID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned orders")
	}
	return list, nil
}

func (s *service) ListPartnerQueue(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*OrderQueueList, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id required")
	}
	list, err := s.repo.ListPartnerOrders(ctx, partnerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list partner orders")
	}
	return list, nil
}
