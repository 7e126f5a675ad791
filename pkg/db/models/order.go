package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/cartdash/cartdash-backend/pkg/db/types"
	"github.com/cartdash/cartdash-backend/pkg/enums"
)

// Order is the delivery-side view of a placed order. The core never creates
// orders; it drives the assignment columns and the status/return fields.
type Order struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID    uuid.UUID          `gorm:"column:branch_id;type:uuid;not null"`
	OrderNumber int64              `gorm:"column:order_number;not null"`
	Status      enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'pending'"`

	IsReturnRequested bool                `gorm:"column:is_return_requested;not null;default:false"`
	ReturnStatus      *enums.ReturnStatus `gorm:"column:return_status;type:return_status"`

	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'online'"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	CODCollected  *decimal.Decimal    `gorm:"column:cod_collected;type:numeric(12,2)"`

	// Assignment columns are written only by the assignment coordinator.
	AssignedPartnerID     *uuid.UUID              `gorm:"column:assigned_partner_id;type:uuid"`
	AssignmentStatus      *enums.AssignmentStatus `gorm:"column:assignment_status;type:assignment_status"`
	AssignedAt            *time.Time              `gorm:"column:assigned_at"`
	RespondedAt           *time.Time              `gorm:"column:responded_at"`
	RejectionReason       *string                 `gorm:"column:rejection_reason"`
	LastRejectedPartnerID *uuid.UUID              `gorm:"column:last_rejected_partner_id;type:uuid"`
	RejectedPartnerIDs    dbtypes.UUIDArray       `gorm:"column:rejected_partner_ids;type:uuid[]"`

	TrackingEvents []TrackingEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an ID when the database default is unavailable.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// HasActiveAssignment reports whether the order still binds a partner.
func (o *Order) HasActiveAssignment() bool {
	return o.AssignmentStatus != nil && o.AssignmentStatus.IsActive()
}
