package assignment

import (
	"time"

	"github.com/google/uuid"

	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

// AssignInput carries the branch-side request to offer an order.
type AssignInput struct {
	OrderID     uuid.UUID
	PartnerID   uuid.UUID
	Location    *types.GeographyPoint
	ActorUserID uuid.UUID
	BranchID    uuid.UUID
	ActorRole   string
}

// RespondInput carries a partner's accept or reject.
type RespondInput struct {
	OrderID     uuid.UUID
	PartnerID   uuid.UUID
	Location    *types.GeographyPoint
	Reason      string
	ActorUserID uuid.UUID
}

// ReassignInput carries the manager-initiated reassignment request.
type ReassignInput struct {
	BranchID     uuid.UUID
	OrderID      uuid.UUID
	NewPartnerID uuid.UUID
	Location     *types.GeographyPoint
	Override     bool
	ActorUserID  uuid.UUID
	ActorRole    string
}

// AssignmentState is the post-operation view returned to callers.
type AssignmentState struct {
	OrderID          uuid.UUID               `json:"order_id"`
	OrderStatus      enums.OrderStatus       `json:"order_status"`
	PartnerID        *uuid.UUID              `json:"partner_id,omitempty"`
	AssignmentStatus *enums.AssignmentStatus `json:"assignment_status,omitempty"`
	AssignedAt       *time.Time              `json:"assigned_at,omitempty"`
	RespondedAt      *time.Time              `json:"responded_at,omitempty"`
	RejectionReason  *string                 `json:"rejection_reason,omitempty"`
}
