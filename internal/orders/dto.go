package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartdash/cartdash-backend/pkg/enums"
)

// OrderQueueEntry is one row in a branch or partner work queue.
type OrderQueueEntry struct {
	OrderID          uuid.UUID               `json:"order_id"`
	OrderNumber      int64                   `json:"order_number"`
	BranchID         uuid.UUID               `json:"branch_id"`
	Status           enums.OrderStatus       `json:"status"`
	ReturnStatus     *enums.ReturnStatus     `json:"return_status,omitempty"`
	PaymentMethod    enums.PaymentMethod     `json:"payment_method"`
	Total            decimal.Decimal         `json:"total"`
	AssignmentStatus *enums.AssignmentStatus `json:"assignment_status,omitempty"`
	AssignedAt       *time.Time              `json:"assigned_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// OrderQueueList wraps the paginated queue plus the next page cursor.
type OrderQueueList struct {
	Orders     []OrderQueueEntry `json:"orders"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// TrackingEntry is the read-side view of one tracking event.
type TrackingEntry struct {
	Flow       enums.TrackingFlow `json:"flow"`
	Status     string             `json:"status"`
	RecordedAt time.Time          `json:"recorded_at"`
	Latitude   *float64           `json:"latitude,omitempty"`
	Longitude  *float64           `json:"longitude,omitempty"`
	Notes      *string            `json:"notes,omitempty"`
}

// OrderDetail combines the order row with its full tracking history.
type OrderDetail struct {
	OrderID           uuid.UUID               `json:"order_id"`
	OrderNumber       int64                   `json:"order_number"`
	BranchID          uuid.UUID               `json:"branch_id"`
	Status            enums.OrderStatus       `json:"status"`
	IsReturnRequested bool                    `json:"is_return_requested"`
	ReturnStatus      *enums.ReturnStatus     `json:"return_status,omitempty"`
	PaymentMethod     enums.PaymentMethod     `json:"payment_method"`
	Total             decimal.Decimal         `json:"total"`
	CODCollected      *decimal.Decimal        `json:"cod_collected,omitempty"`
	AssignedPartnerID *uuid.UUID              `json:"assigned_partner_id,omitempty"`
	AssignmentStatus  *enums.AssignmentStatus `json:"assignment_status,omitempty"`
	Tracking          []TrackingEntry         `json:"tracking"`
}
