package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

// TrackingEvent is one immutable entry in an order's tracking history.
// Rows are append-only: nothing in the codebase updates or deletes them.
type TrackingEvent struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Flow       enums.TrackingFlow    `gorm:"column:flow;type:tracking_flow;not null"`
	Status     string                `gorm:"column:status;not null"`
	RecordedAt time.Time             `gorm:"column:recorded_at;not null"`
	Location   *types.GeographyPoint `gorm:"column:location;type:geography(Point,4326)"`
	Notes      *string               `gorm:"column:notes"`
}

// BeforeCreate assigns an ID when the database default is unavailable.
func (e *TrackingEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
