package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) AppendTrackingEvent(ctx context.Context, event *models.TrackingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListTrackingEvents(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error) {
	var events []models.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("recorded_at ASC").
		Order("id ASC").
		Find(&events).Error
	return events, err
}

func (r *repository) ListUnassignedOrders(ctx context.Context, branchID uuid.UUID, params pagination.Params) (*OrderQueueList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("branch_id = ?", branchID).
		Where("status IN ?", []enums.OrderStatus{
			enums.OrderStatusPending,
			enums.OrderStatusAssigned,
		}).
		Where("assignment_status IS NULL OR assignment_status IN ?", []enums.AssignmentStatus{
			enums.AssignmentStatusRejected,
			enums.AssignmentStatusExpired,
		})
	return r.listQueue(query, params)
}

func (r *repository) ListPartnerOrders(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*OrderQueueList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("assigned_partner_id = ?", partnerID).
		Where("assignment_status IN ?", []enums.AssignmentStatus{
			enums.AssignmentStatusOffered,
			enums.AssignmentStatusAccepted,
		})
	return r.listQueue(query, params)
}

func (r *repository) listQueue(query *gorm.DB, params pagination.Params) (*OrderQueueList, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	decodedCursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	entries := make([]OrderQueueEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, OrderQueueEntry{
			OrderID:          row.ID,
			OrderNumber:      row.OrderNumber,
			BranchID:         row.BranchID,
			Status:           row.Status,
			ReturnStatus:     row.ReturnStatus,
			PaymentMethod:    row.PaymentMethod,
			Total:            row.Total,
			AssignmentStatus: row.AssignmentStatus,
			AssignedAt:       row.AssignedAt,
			CreatedAt:        row.CreatedAt,
		})
	}
	return &OrderQueueList{Orders: entries, NextCursor: nextCursor}, nil
}

func (r *repository) FindStaleOffers(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("assignment_status = ?", enums.AssignmentStatusOffered).
		Where("assigned_at < ?", cutoff).
		Order("assigned_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
