package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cartdash/cartdash-backend/pkg/enums"
)

// PartnerOfferedEvent is emitted when an order is offered to a partner.
type PartnerOfferedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	BranchID  uuid.UUID `json:"branch_id"`
	PartnerID uuid.UUID `json:"partner_id"`
	OfferedAt time.Time `json:"offered_at"`
}

// OfferAcceptedEvent is emitted when the offered partner accepts.
type OfferAcceptedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BranchID   uuid.UUID `json:"branch_id"`
	PartnerID  uuid.UUID `json:"partner_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// OfferRejectedEvent is emitted when the offered partner declines.
type OfferRejectedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BranchID   uuid.UUID `json:"branch_id"`
	PartnerID  uuid.UUID `json:"partner_id"`
	Reason     string    `json:"reason,omitempty"`
	RejectedAt time.Time `json:"rejected_at"`
}

// OfferExpiredEvent is emitted when an unanswered offer times out.
type OfferExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	PartnerID uuid.UUID `json:"partner_id"`
	OfferedAt time.Time `json:"offered_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

// PartnerReassignedEvent is emitted when an order moves to a new partner.
type PartnerReassignedEvent struct {
	OrderID           uuid.UUID  `json:"order_id"`
	BranchID          uuid.UUID  `json:"branch_id"`
	PreviousPartnerID *uuid.UUID `json:"previous_partner_id,omitempty"`
	NewPartnerID      uuid.UUID  `json:"new_partner_id"`
	Override          bool       `json:"override,omitempty"`
	ReassignedAt      time.Time  `json:"reassigned_at"`
}

// StatusChangedEvent is emitted for every committed delivery transition.
type StatusChangedEvent struct {
	OrderID      uuid.UUID          `json:"order_id"`
	PartnerID    uuid.UUID          `json:"partner_id"`
	FromStatus   enums.OrderStatus  `json:"from_status"`
	ToStatus     enums.OrderStatus  `json:"to_status"`
	CODCollected *decimal.Decimal   `json:"cod_collected,omitempty"`
	Flow         enums.TrackingFlow `json:"flow"`
	ChangedAt    time.Time          `json:"changed_at"`
}

// ReturnStatusChangedEvent is emitted for every committed return transition.
type ReturnStatusChangedEvent struct {
	OrderID    uuid.UUID          `json:"order_id"`
	PartnerID  uuid.UUID          `json:"partner_id"`
	FromStatus enums.ReturnStatus `json:"from_status"`
	ToStatus   enums.ReturnStatus `json:"to_status"`
	Flow       enums.TrackingFlow `json:"flow"`
	ChangedAt  time.Time          `json:"changed_at"`
}
