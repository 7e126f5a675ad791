package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

// DeliveryPartner is the registry record consulted before offering an
// assignment. The coordinator reads it and flips availability; everything
// else about partners is managed elsewhere.
type DeliveryPartner struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BranchID        uuid.UUID                 `gorm:"column:branch_id;type:uuid;not null;index"`
	Name            string                    `gorm:"column:name;not null"`
	Phone           *string                   `gorm:"column:phone"`
	Approved        bool                      `gorm:"column:approved;not null;default:false"`
	Availability    enums.PartnerAvailability `gorm:"column:availability;type:partner_availability;not null;default:'unavailable'"`
	CurrentLocation *types.GeographyPoint     `gorm:"column:current_location;type:geography(Point,4326)"`
	LastSeenAt      *time.Time                `gorm:"column:last_seen_at"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// IsEligible reports whether the partner can receive an offer for the branch.
func (p *DeliveryPartner) IsEligible(branchID uuid.UUID) bool {
	return p.Approved && p.Availability == enums.PartnerAvailable && p.BranchID == branchID
}
